// Package thumbs renders the small images used by the gallery thumbnail strip.
package thumbs

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

const (
	Width   = 160
	Height  = 100
	quality = 70
)

var ErrBadPath = errors.New("thumbs: path escapes the assets directory")

// Generator produces JPEG thumbnails from images under root and keeps them
// in memory; source images are part of the deploy and do not change.
type Generator struct {
	root string

	mu    sync.RWMutex
	cache map[string][]byte
}

func New(root string) *Generator {
	return &Generator{root: root, cache: map[string][]byte{}}
}

// Thumbnail returns the JPEG thumbnail for an image reference such as
// "/skillden/skillden-stats.png".
func (g *Generator) Thumbnail(ref string) ([]byte, error) {
	path, err := g.resolve(ref)
	if err != nil {
		return nil, err
	}

	g.mu.RLock()
	data, ok := g.cache[path]
	g.mu.RUnlock()
	if ok {
		return data, nil
	}

	src, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ref, err)
	}
	thumb := imaging.Fit(src, Width, Height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode %s: %w", ref, err)
	}
	data = buf.Bytes()

	g.mu.Lock()
	g.cache[path] = data
	g.mu.Unlock()
	return data, nil
}

// Cached reports how many thumbnails are held in memory.
func (g *Generator) Cached() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.cache)
}

func (g *Generator) resolve(ref string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimSpace(ref))
	if clean == "/" || strings.Contains(ref, "..") {
		return "", ErrBadPath
	}
	return filepath.Join(g.root, filepath.FromSlash(clean)), nil
}
