package render

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/SkLight/dyntree/internal/dyntree"
)

// Markers drawn before item labels.
const (
	MarkerFolded   = "▸"
	MarkerUnfolded = "▾"
	MarkerEndpoint = "•"
)

// TreeOptions controls Tree output.
type TreeOptions struct {
	// Title labels the virtual root.
	Title string
	// Loading is shown under items whose children are being fetched.
	Loading string
	// ShowCodes appends node codes to labels.
	ShowCodes bool
	// ShowIDs appends node ids to labels.
	ShowIDs bool
}

//nolint:gochecknoglobals // Read-only styles.
var (
	codeStyle      = lipgloss.NewStyle().Faint(true)
	loadingStyle   = lipgloss.NewStyle().Italic(true).Faint(true)
	enumeratorStyl = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).PaddingRight(1)
)

// Tree draws the mounted contents of s.
func Tree(s *MemorySurface, opts TreeOptions) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	title := opts.Title
	if title == "" {
		title = "."
	}
	t := tree.Root(title).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(enumeratorStyl)
	if s.busy[dyntree.RootHandle] && opts.Loading != "" {
		t.Child(loadingStyle.Render(opts.Loading))
	}
	s.build(t, dyntree.RootHandle, opts, make(map[dyntree.Handle]bool))
	return t.String()
}

func (s *MemorySurface) build(t *tree.Tree, parent dyntree.Handle, opts TreeOptions, seen map[dyntree.Handle]bool) {
	if seen[parent] {
		return
	}
	seen[parent] = true
	defer delete(seen, parent)

	for _, e := range s.children[parent] {
		e = s.classify(e)
		h := e.Handle()
		_, unfolded := s.children[h]
		label := Label(e, unfolded, opts)

		busy := s.busy[h] && opts.Loading != ""
		if !unfolded && !busy {
			t.Child(label)
			continue
		}

		sub := tree.Root(label)
		if busy {
			sub.Child(loadingStyle.Render(opts.Loading))
		}
		if unfolded {
			s.build(sub, h, opts, seen)
		}
		t.Child(sub)
	}
}

// Label renders one entry with its fold marker.
func Label(e dyntree.Entry, unfolded bool, opts TreeOptions) string {
	marker := MarkerFolded
	switch {
	case e.Endpoint:
		marker = MarkerEndpoint
	case unfolded:
		marker = MarkerUnfolded
	}

	label := marker + " " + e.Label()
	if opts.ShowCodes && e.Node.Code != "" {
		label += " " + codeStyle.Render("["+e.Node.Code+"]")
	}
	if opts.ShowIDs {
		label += " " + codeStyle.Render(fmt.Sprintf("#%d", e.Node.ID))
	}
	return label
}
