package listview

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// RenderFunc renders an item. selected is true for the item under the cursor.
type RenderFunc[T any] func(item T, selected bool) string

// SameFunc reports whether two items are the same logical item, for keeping
// the cursor in place across SetItems.
type SameFunc[T any] func(a, b T) bool

// VirtualListModel is a cursor over a list of items that renders only the
// rows that fit in the viewport.
type VirtualListModel[T any] struct {
	items      []T
	renderFunc RenderFunc[T]
	same       SameFunc[T]

	// selected is the cursor index (0-based)
	selected int

	// offset is the first item in the viewport
	offset int

	height int
	width  int
}

// NewVirtualListModel creates a list of items in a viewport of height rows.
func NewVirtualListModel[T any](items []T, height, width int, renderFunc RenderFunc[T]) *VirtualListModel[T] {
	m := &VirtualListModel[T]{
		items:      items,
		renderFunc: renderFunc,
		height:     height,
		width:      width,
	}
	m.clamp()
	return m
}

// WithSame sets the identity used by SetItems.
func (m *VirtualListModel[T]) WithSame(same SameFunc[T]) *VirtualListModel[T] {
	m.same = same
	return m
}

// Init implements tea.Model.
func (m *VirtualListModel[T]) Init() tea.Cmd {
	return nil
}

// Update handles navigation keys and resizes.
func (m *VirtualListModel[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	}
	return m, nil
}

// HandlesKey reports whether msg is a navigation key the list consumes.
//
//nolint:exhaustive // Only navigation keys are relevant.
func HandlesKey(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown, tea.KeyHome, tea.KeyEnd:
		return true
	case tea.KeyRunes:
		return len(msg.Runes) == 1 && (msg.Runes[0] == 'j' || msg.Runes[0] == 'k')
	default:
		return false
	}
}

//nolint:exhaustive // Key handling inherently requires multiple branches for different navigation keys.
func (m *VirtualListModel[T]) handleKeyMsg(msg tea.KeyMsg) {
	if len(m.items) == 0 {
		return
	}

	switch msg.Type {
	case tea.KeyUp:
		m.selected--
	case tea.KeyDown:
		m.selected++
	case tea.KeyPgUp:
		m.selected -= m.height
	case tea.KeyPgDown:
		m.selected += m.height
	case tea.KeyHome:
		m.selected = 0
	case tea.KeyEnd:
		m.selected = len(m.items) - 1
	case tea.KeyRunes:
		if len(msg.Runes) > 0 {
			switch msg.Runes[0] {
			case 'j':
				m.selected++
			case 'k':
				m.selected--
			}
		}
	default:
	}
	m.clamp()
}

// SetItems replaces the items. When a SameFunc is set and the selected item
// is still present, the cursor stays on it; otherwise the cursor keeps its
// index.
func (m *VirtualListModel[T]) SetItems(items []T) {
	if m.same != nil {
		if cur := m.GetSelectedItem(); cur != nil {
			for i := range items {
				if m.same(*cur, items[i]) {
					m.selected = i
					break
				}
			}
		}
	}
	m.items = items
	m.clamp()
}

// SetSize resizes the viewport.
func (m *VirtualListModel[T]) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.clamp()
}

// clamp bounds the cursor and scrolls the viewport just enough to show it.
func (m *VirtualListModel[T]) clamp() {
	if len(m.items) == 0 {
		m.selected = 0
		m.offset = 0
		return
	}
	m.selected = max(0, min(m.selected, len(m.items)-1))

	height := max(m.height, 1)
	if m.selected < m.offset {
		m.offset = m.selected
	}
	if m.selected >= m.offset+height {
		m.offset = m.selected - height + 1
	}
	m.offset = max(0, min(m.offset, len(m.items)-height))
}

// View renders the rows inside the viewport.
func (m *VirtualListModel[T]) View() string {
	if len(m.items) == 0 {
		return ""
	}

	var sb strings.Builder
	for i := m.offset; i < m.VisibleTo(); i++ {
		if i > m.offset {
			sb.WriteByte('\n')
		}
		sb.WriteString(m.renderFunc(m.items[i], i == m.selected))
	}
	return sb.String()
}

// ItemCount returns the total number of items in the list.
func (m *VirtualListModel[T]) ItemCount() int {
	return len(m.items)
}

// Items returns the current items.
func (m *VirtualListModel[T]) Items() []T {
	return m.items
}

// Selected returns the currently selected item index.
func (m *VirtualListModel[T]) Selected() int {
	return m.selected
}

// SetSelected moves the cursor to index, capped to valid bounds.
func (m *VirtualListModel[T]) SetSelected(index int) {
	m.selected = index
	m.clamp()
}

// VisibleFrom returns the first visible item index (inclusive).
func (m *VirtualListModel[T]) VisibleFrom() int {
	return m.offset
}

// VisibleTo returns the last visible item index (exclusive).
func (m *VirtualListModel[T]) VisibleTo() int {
	return min(m.offset+max(m.height, 1), len(m.items))
}

// Height returns the viewport height.
func (m *VirtualListModel[T]) Height() int {
	return m.height
}

// Width returns the viewport width.
func (m *VirtualListModel[T]) Width() int {
	return m.width
}

// GetSelectedItem returns the item under the cursor, or nil for an empty
// list.
func (m *VirtualListModel[T]) GetSelectedItem() *T {
	if len(m.items) == 0 || m.selected < 0 || m.selected >= len(m.items) {
		return nil
	}
	return &m.items[m.selected]
}
