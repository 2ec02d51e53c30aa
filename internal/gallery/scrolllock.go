package gallery

// ScrollLock is the page-wide background scroll lock. It has a single owner:
// the gallery whose overlay is currently visible.
type ScrollLock struct {
	owner *Controller
}

// Acquire makes c the owner and returns the previous owner, if any.
func (l *ScrollLock) Acquire(c *Controller) *Controller {
	prev := l.owner
	l.owner = c
	return prev
}

// Release frees the lock if c owns it. It reports whether the lock was freed.
func (l *ScrollLock) Release(c *Controller) bool {
	if l.owner != c || c == nil {
		return false
	}
	l.owner = nil
	return true
}

func (l *ScrollLock) Locked() bool { return l.owner != nil }

// Owner returns the name of the owning gallery, or "".
func (l *ScrollLock) Owner() string {
	if l.owner == nil {
		return ""
	}
	return l.owner.name
}
