package listing

import "strconv"

// RootID is the identifier of the virtual root. Its children are the
// top-level nodes of a tree.
const RootID int64 = 0

// Node is a single item returned by the listing source.
// Nodes are immutable once fetched.
type Node struct {
	// ID identifies the node and is used as the parent id when its own
	// children are requested.
	ID int64 `json:"id" yaml:"id"`

	// Name is the display label.
	Name string `json:"name" yaml:"name"`

	// Code is an opaque short code supplied by the source.
	Code string `json:"code,omitempty" yaml:"code,omitempty"`

	// Description is free text supplied by the source.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Listing is the ordered set of children of one parent, in source order.
//
// A nil Listing and an empty Listing are both "no children"; callers that
// need to distinguish "unknown" from "empty" track presence separately.
type Listing []Node

// IDs returns the node ids in listing order.
func (l Listing) IDs() []int64 {
	ids := make([]int64, len(l))
	for i, n := range l {
		ids[i] = n.ID
	}
	return ids
}

// Clone returns a copy that shares no backing array with l.
// A nil listing clones to an empty, non-nil listing.
func (l Listing) Clone() Listing {
	out := make(Listing, len(l))
	copy(out, l)
	return out
}

// IsRoot reports whether id refers to the virtual root.
func IsRoot(id int64) bool {
	return id == RootID
}

// FormatID renders a parent id the way it appears in requests and cache keys.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
