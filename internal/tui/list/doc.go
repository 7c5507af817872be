// Package listview provides a scrolling list component for Bubble Tea TUI
// applications.
//
// Only the rows inside the viewport are rendered, so a fully expanded tree of
// thousands of nodes costs no more per frame than a collapsed one. Key
// features:
//   - Keyboard navigation (up/down, pgup/pgdn, home/end, j/k)
//   - Item replacement that keeps the cursor on the same logical item
//   - Viewport that follows the cursor
package listview
