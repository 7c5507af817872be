package render

import (
	"github.com/SkLight/dyntree/internal/dyntree"
)

// RowKind distinguishes tree items from waiting placeholders.
type RowKind int

const (
	// RowEntry is a mounted tree item.
	RowEntry RowKind = iota
	// RowBusy is the waiting indicator under an item whose children are
	// being fetched.
	RowBusy
)

// Row is one visible line of the tree, in display order.
type Row struct {
	Kind  RowKind
	Entry dyntree.Entry
	// Depth is 0 for children of the root.
	Depth int
	// Unfolded is true when the item's children are mounted.
	Unfolded bool
	// Parent is the handle the row is mounted under.
	Parent dyntree.Handle
}

// Rows flattens the mounted tree depth first. A waiting placeholder follows
// the item it belongs to.
func (s *MemorySurface) Rows() []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []Row
	seen := make(map[dyntree.Handle]bool)
	if s.busy[dyntree.RootHandle] {
		rows = append(rows, Row{Kind: RowBusy, Parent: dyntree.RootHandle})
	}
	s.walk(dyntree.RootHandle, 0, seen, &rows)
	return rows
}

func (s *MemorySurface) walk(parent dyntree.Handle, depth int, seen map[dyntree.Handle]bool, rows *[]Row) {
	if seen[parent] {
		return
	}
	seen[parent] = true
	defer delete(seen, parent)

	for _, e := range s.children[parent] {
		h := e.Handle()
		_, unfolded := s.children[h]
		*rows = append(*rows, Row{
			Kind:     RowEntry,
			Entry:    s.classify(e),
			Depth:    depth,
			Unfolded: unfolded,
			Parent:   parent,
		})
		if s.busy[h] {
			*rows = append(*rows, Row{Kind: RowBusy, Depth: depth + 1, Parent: h})
		}
		if unfolded {
			s.walk(h, depth+1, seen, rows)
		}
	}
}
