package gallery

import "fmt"

// Controller owns the inline and overlay positions for one image set.
// It is not safe for concurrent use; callers serialise access per page.
type Controller struct {
	name    string
	images  ImageSet
	inline  int
	overlay int
	open    bool
	lock    *ScrollLock
}

// New mounts a controller with both positions at 0 and the overlay closed.
// A nil lock gives the controller a private one.
func New(name string, images ImageSet, lock *ScrollLock) *Controller {
	if lock == nil {
		lock = &ScrollLock{}
	}
	return &Controller{name: name, images: images, lock: lock}
}

func (c *Controller) Name() string { return c.name }

func (c *Controller) Images() ImageSet { return c.images }

func (c *Controller) Len() int { return c.images.Len() }

func (c *Controller) IsOpen() bool { return c.open }

// Index returns the current position of the given view.
func (c *Controller) Index(v View) int {
	if v == Overlay {
		return c.overlay
	}
	return c.inline
}

func (c *Controller) position(v View) *int {
	if v == Overlay {
		return &c.overlay
	}
	return &c.inline
}

// Advance moves the view forward one image, wrapping from last to first.
func (c *Controller) Advance(v View) {
	p := c.position(v)
	*p = (*p + 1) % c.Len()
}

// Retreat moves the view back one image, wrapping from first to last.
func (c *Controller) Retreat(v View) {
	p := c.position(v)
	n := c.Len()
	*p = (*p - 1 + n) % n
}

// JumpTo sets the view to target. Out-of-range targets leave the state
// untouched and return an error matching ErrOutOfRange.
func (c *Controller) JumpTo(v View, target int) error {
	if err := c.images.check(target); err != nil {
		return err
	}
	*c.position(v) = target
	return nil
}

// Open shows the overlay at index at and takes the page scroll lock. When
// another gallery on the page held the lock, its overlay is closed and it is
// returned as displaced.
func (c *Controller) Open(at int) (displaced *Controller, err error) {
	if err := c.images.check(at); err != nil {
		return nil, err
	}
	c.overlay = at
	c.open = true
	prev := c.lock.Acquire(c)
	if prev != nil && prev != c {
		prev.open = false
		return prev, nil
	}
	return nil, nil
}

// OpenFromInline opens the overlay on the image the inline view shows now.
func (c *Controller) OpenFromInline() (displaced *Controller) {
	d, _ := c.Open(c.inline)
	return d
}

// Close hides the overlay. The overlay index is kept; the next open reseeds it.
func (c *Controller) Close() {
	c.open = false
	c.lock.Release(c)
}

// State is a read-only snapshot for the presentation layer.
type State struct {
	Name    string
	Images  []string
	Inline  int
	Overlay int
	Open    bool
}

func (c *Controller) State() State {
	return State{
		Name:    c.name,
		Images:  c.images.Images(),
		Inline:  c.inline,
		Overlay: c.overlay,
		Open:    c.open,
	}
}

func (s State) Len() int { return len(s.Images) }

// ShowNav reports whether arrows and indicators are worth drawing.
func (s State) ShowNav() bool { return len(s.Images) > 1 }

// Counter is the overlay caption, e.g. "3 / 5".
func (s State) Counter() string {
	return fmt.Sprintf("%d / %d", s.Overlay+1, len(s.Images))
}

func (s State) Current(v View) string {
	if v == Overlay {
		return s.Images[s.Overlay]
	}
	return s.Images[s.Inline]
}
