// Package pageview keeps the gallery controllers of each open page. A page
// view is the mount: a fresh one starts every gallery at image 0 with its
// overlay closed, and expires after an idle timeout.
package pageview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamiewells/portfolio/internal/content"
	"github.com/jamiewells/portfolio/internal/gallery"
)

var (
	ErrPageNotFound   = errors.New("pageview: page not found or expired")
	ErrUnknownGallery = errors.New("pageview: unknown gallery")
)

type product struct {
	slug   string
	images gallery.ImageSet
}

// Store holds live page views in memory.
type Store struct {
	mu       sync.Mutex
	pages    map[string]*Page
	products []product
	ttl      time.Duration
	max      int
	now      func() time.Time
}

type Option func(*Store)

// WithMaxPages caps the number of live pages. Mounting past the cap evicts
// the page that has been idle longest. Zero means no cap.
func WithMaxPages(n int) Option {
	return func(s *Store) { s.max = n }
}

// NewStore prepares a store whose pages mount one gallery per product.
func NewStore(site *content.Site, ttl time.Duration, opts ...Option) (*Store, error) {
	products := make([]product, 0, len(site.Products))
	for _, p := range site.Products {
		set, err := p.ImageSet()
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", p.Slug, err)
		}
		products = append(products, product{slug: p.Slug, images: set})
	}
	s := &Store{
		pages:    map[string]*Page{},
		products: products,
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Mount creates a page view.
func (s *Store) Mount() *Page {
	p := &Page{
		ID:        uuid.NewString(),
		galleries: make(map[string]*gallery.Controller, len(s.products)),
		lock:      &gallery.ScrollLock{},
	}
	for _, pr := range s.products {
		p.galleries[pr.slug] = gallery.New(pr.slug, pr.images, p.lock)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p.touched = s.now()
	if s.max > 0 && len(s.pages) >= s.max {
		s.sweepLocked(p.touched)
		for len(s.pages) >= s.max {
			s.evictOldestLocked()
		}
	}
	s.pages[p.ID] = p
	return p
}

func (s *Store) evictOldestLocked() {
	var oldest *Page
	for _, p := range s.pages {
		if oldest == nil || p.touched.Before(oldest.touched) {
			oldest = p
		}
	}
	if oldest != nil {
		delete(s.pages, oldest.ID)
	}
}

// Get returns a live page and refreshes its idle timer.
func (s *Store) Get(id string) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[id]
	if !ok {
		return nil, ErrPageNotFound
	}
	now := s.now()
	if now.Sub(p.touched) > s.ttl {
		delete(s.pages, id)
		return nil, ErrPageNotFound
	}
	p.touched = now
	return p, nil
}

// Unmount drops a page view.
func (s *Store) Unmount(id string) {
	s.mu.Lock()
	delete(s.pages, id)
	s.mu.Unlock()
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages)
}

// Sweep evicts idle pages and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *Store) sweepLocked(now time.Time) int {
	removed := 0
	for id, p := range s.pages {
		if now.Sub(p.touched) > s.ttl {
			delete(s.pages, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := s.Sweep()
			if onSweep != nil && n > 0 {
				onSweep(n)
			}
		}
	}
}

// Page is one mounted page with a gallery per product and a shared scroll lock.
type Page struct {
	ID string

	mu        sync.Mutex
	galleries map[string]*gallery.Controller
	lock      *gallery.ScrollLock
	touched   time.Time
}

// Change is what a single input did to the page.
type Change struct {
	Gallery      gallery.State
	Displaced    *gallery.State
	ScrollLocked bool
}

// Apply runs an input event against one gallery.
func (p *Page) Apply(slug string, e gallery.Event) (Change, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	g, ok := p.galleries[slug]
	if !ok {
		return Change{}, fmt.Errorf("%w: %q", ErrUnknownGallery, slug)
	}
	displaced, err := g.Apply(e)
	if err != nil {
		return Change{}, err
	}
	ch := Change{Gallery: g.State(), ScrollLocked: p.lock.Locked()}
	if displaced != nil {
		st := displaced.State()
		ch.Displaced = &st
	}
	return ch, nil
}

// State returns a gallery's snapshot.
func (p *Page) State(slug string) (gallery.State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	g, ok := p.galleries[slug]
	if !ok {
		return gallery.State{}, fmt.Errorf("%w: %q", ErrUnknownGallery, slug)
	}
	return g.State(), nil
}

// States returns every gallery's snapshot keyed by product slug.
func (p *Page) States() map[string]gallery.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]gallery.State, len(p.galleries))
	for slug, g := range p.galleries {
		out[slug] = g.State()
	}
	return out
}

func (p *Page) ScrollLocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lock.Locked()
}
