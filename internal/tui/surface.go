package tui

import (
	"github.com/SkLight/dyntree/internal/render"
)

// Surface is the render surface behind the browser. It keeps the mounted
// tree in a render.MemorySurface and signals every change on a channel the
// Bubble Tea program listens to. Signals coalesce: a pending signal means
// "something changed since the last redraw".
type Surface struct {
	*render.MemorySurface
	changes chan struct{}
}

// NewSurface creates an empty surface.
func NewSurface() *Surface {
	s := &Surface{changes: make(chan struct{}, 1)}
	s.MemorySurface = render.NewMemorySurface(render.WithOnChange(s.signal))
	return s
}

// Changes is signalled after every change.
func (s *Surface) Changes() <-chan struct{} {
	return s.changes
}

// signal never blocks: it runs under the widget controller's lock.
func (s *Surface) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}
