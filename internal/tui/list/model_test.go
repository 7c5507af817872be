package listview

import (
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbers(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func renderInt(item int, selected bool) string {
	if selected {
		return fmt.Sprintf("> %d", item)
	}
	return fmt.Sprintf("  %d", item)
}

func key(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func runes(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestNavigation(t *testing.T) {
	m := NewVirtualListModel(numbers(20), 5, 40, renderInt)

	m.Update(key(tea.KeyDown))
	m.Update(runes('j'))
	assert.Equal(t, 2, m.Selected())

	m.Update(runes('k'))
	assert.Equal(t, 1, m.Selected())

	m.Update(key(tea.KeyUp))
	m.Update(key(tea.KeyUp))
	assert.Equal(t, 0, m.Selected(), "cursor stops at the top")

	m.Update(key(tea.KeyPgDown))
	assert.Equal(t, 5, m.Selected())

	m.Update(key(tea.KeyEnd))
	assert.Equal(t, 19, m.Selected())
	m.Update(key(tea.KeyDown))
	assert.Equal(t, 19, m.Selected(), "cursor stops at the bottom")

	m.Update(key(tea.KeyPgUp))
	assert.Equal(t, 14, m.Selected())

	m.Update(key(tea.KeyHome))
	assert.Equal(t, 0, m.Selected())
}

func TestViewportFollowsCursor(t *testing.T) {
	m := NewVirtualListModel(numbers(20), 5, 40, renderInt)

	assert.Equal(t, 0, m.VisibleFrom())
	assert.Equal(t, 5, m.VisibleTo())

	m.SetSelected(7)
	assert.Equal(t, 3, m.VisibleFrom())
	assert.Equal(t, 8, m.VisibleTo())

	lines := strings.Split(m.View(), "\n")
	require.Len(t, lines, 5, "only the viewport is rendered")
	assert.Equal(t, "  3", lines[0])
	assert.Equal(t, "> 7", lines[4])

	m.SetSelected(4)
	assert.Equal(t, 3, m.VisibleFrom(), "moving inside the viewport does not scroll")
}

func TestSetItems_KeepsLogicalSelection(t *testing.T) {
	m := NewVirtualListModel([]int{10, 20, 30}, 5, 40, renderInt).
		WithSame(func(a, b int) bool { return a == b })
	m.SetSelected(1)

	m.SetItems([]int{5, 6, 10, 20, 30})
	assert.Equal(t, 3, m.Selected())
	assert.Equal(t, 20, *m.GetSelectedItem())

	m.SetItems([]int{1, 2})
	assert.Equal(t, 1, m.Selected(), "missing item keeps the index, clamped")
}

func TestSetItems_WithoutSameKeepsIndex(t *testing.T) {
	m := NewVirtualListModel([]int{10, 20, 30}, 5, 40, renderInt)
	m.SetSelected(2)
	m.SetItems([]int{1, 2, 3, 4})
	assert.Equal(t, 2, m.Selected())
}

func TestEmptyList(t *testing.T) {
	m := NewVirtualListModel[int](nil, 5, 40, renderInt)
	m.Update(key(tea.KeyDown))

	assert.Equal(t, 0, m.Selected())
	assert.Nil(t, m.GetSelectedItem())
	assert.Empty(t, m.View())
	assert.Zero(t, m.ItemCount())
}

func TestResize(t *testing.T) {
	m := NewVirtualListModel(numbers(20), 5, 40, renderInt)
	m.SetSelected(10)

	m.Update(tea.WindowSizeMsg{Width: 80, Height: 3})
	assert.Equal(t, 80, m.Width())
	assert.Equal(t, 3, m.Height())
	assert.Equal(t, 3, m.VisibleTo()-m.VisibleFrom())
	assert.GreaterOrEqual(t, m.Selected(), m.VisibleFrom())
	assert.Less(t, m.Selected(), m.VisibleTo())
}

func TestHandlesKey(t *testing.T) {
	assert.True(t, HandlesKey(key(tea.KeyDown)))
	assert.True(t, HandlesKey(runes('j')))
	assert.False(t, HandlesKey(runes('q')))
	assert.False(t, HandlesKey(key(tea.KeyEnter)))
}
