// Package gallery holds the state of a product image gallery: an inline
// strip with its own position and a lightbox overlay that opens on demand.
package gallery

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyImageSet = errors.New("gallery: image set is empty")
	ErrOutOfRange    = errors.New("gallery: index out of range")
	ErrUnknownView   = errors.New("gallery: unknown view")
)

// RangeError reports a jump or open target outside [0, Len).
type RangeError struct {
	Index int
	Len   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("gallery: index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *RangeError) Is(target error) bool { return target == ErrOutOfRange }

// View selects which of the two positions an operation acts on.
type View int

const (
	Inline View = iota
	Overlay
)

func (v View) String() string {
	switch v {
	case Inline:
		return "inline"
	case Overlay:
		return "overlay"
	default:
		return fmt.Sprintf("view(%d)", int(v))
	}
}

// ParseView accepts "inline" or "overlay". An empty string means inline.
func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "inline":
		return Inline, nil
	case "overlay", "modal", "lightbox":
		return Overlay, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownView, s)
	}
}

// ImageSet is the fixed, ordered list of image references for one product.
type ImageSet struct {
	images []string
}

func NewImageSet(images []string) (ImageSet, error) {
	if len(images) == 0 {
		return ImageSet{}, ErrEmptyImageSet
	}
	out := make([]string, len(images))
	for i, img := range images {
		img = strings.TrimSpace(img)
		if img == "" {
			return ImageSet{}, fmt.Errorf("gallery: image %d has an empty reference", i)
		}
		out[i] = img
	}
	return ImageSet{images: out}, nil
}

func (s ImageSet) Len() int { return len(s.images) }

func (s ImageSet) At(i int) string { return s.images[i] }

// Images returns a copy of the references.
func (s ImageSet) Images() []string {
	out := make([]string, len(s.images))
	copy(out, s.images)
	return out
}

func (s ImageSet) check(i int) error {
	if i < 0 || i >= len(s.images) {
		return &RangeError{Index: i, Len: len(s.images)}
	}
	return nil
}
