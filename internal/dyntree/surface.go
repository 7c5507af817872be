package dyntree

import (
	"github.com/SkLight/dyntree/internal/listing"
)

// Handle identifies a rendered tree item. It is the node id; RootHandle is
// the virtual root, which has no item of its own. Node ids are expected to be
// unique within one tree.
type Handle int64

// RootHandle is the handle of the virtual root.
const RootHandle = Handle(listing.RootID)

// ID returns the node id behind h.
func (h Handle) ID() int64 {
	return int64(h)
}

// IsRoot reports whether h is the virtual root.
func (h Handle) IsRoot() bool {
	return listing.IsRoot(int64(h))
}

// Entry is one child item to render under a parent.
type Entry struct {
	Node listing.Node
	// Endpoint is true when the node is known to have no children, so no
	// expand affordance should be shown. Nodes with unknown children are
	// rendered expandable.
	Endpoint bool
}

// Handle returns the handle to pass back to Expand and Collapse.
func (e Entry) Handle() Handle {
	return Handle(e.Node.ID)
}

// Label is the text to display for the entry.
func (e Entry) Label() string {
	return e.Node.Name
}

// RenderSurface materialises controller decisions. Calls for one widget are
// serialised by the controller and made while it holds its lock, so an
// implementation must not call back into the widget synchronously from these
// methods.
type RenderSurface interface {
	// Mount renders entries, in order, as the children of parent. Every
	// entry starts folded.
	Mount(parent Handle, entries []Entry)
	// Unmount removes everything rendered beneath node, at any depth, and
	// shows node as folded. node itself stays.
	Unmount(node Handle)
	// ShowBusy shows a waiting indicator under parent.
	ShowBusy(parent Handle)
	// HideBusy removes the waiting indicator under parent. It is called after
	// every ShowBusy, whether the fetch succeeded or not.
	HideBusy(parent Handle)
}

// EndpointMarker is implemented by surfaces that can re-classify an already
// mounted entry once its children turn out to be empty.
type EndpointMarker interface {
	MarkEndpoint(node Handle)
}
