package gallery

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownOp = errors.New("gallery: unknown operation")

// Op is a discrete UI input: an arrow, a thumbnail or dot, the enlarge
// click, or the close button and backdrop.
type Op string

const (
	OpNext  Op = "next"
	OpPrev  Op = "prev"
	OpJump  Op = "jump"
	OpOpen  Op = "open"
	OpClose Op = "close"
)

func ParseOp(s string) (Op, error) {
	switch op := Op(strings.ToLower(strings.TrimSpace(s))); op {
	case OpNext, OpPrev, OpJump, OpOpen, OpClose:
		return op, nil
	case "advance":
		return OpNext, nil
	case "retreat", "previous":
		return OpPrev, nil
	case "select":
		return OpJump, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOp, s)
	}
}

// Event is one input addressed to a controller. Index is used by jump, and
// by open when HasIndex is set; otherwise open seeds from the inline view.
type Event struct {
	Op       Op
	View     View
	Index    int
	HasIndex bool
}

// Apply runs the event and returns a gallery displaced by an open, if any.
func (c *Controller) Apply(e Event) (*Controller, error) {
	switch e.Op {
	case OpNext:
		c.Advance(e.View)
	case OpPrev:
		c.Retreat(e.View)
	case OpJump:
		if !e.HasIndex {
			return nil, errors.New("gallery: jump needs an index")
		}
		return nil, c.JumpTo(e.View, e.Index)
	case OpOpen:
		if e.HasIndex {
			return c.Open(e.Index)
		}
		return c.OpenFromInline(), nil
	case OpClose:
		c.Close()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, string(e.Op))
	}
	return nil, nil
}
