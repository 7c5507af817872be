// Package fixture serves listing trees described in YAML over the listing
// wire format. It backs `dyntree serve`, local development and end-to-end
// tests, and can inject latency and failures per node.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SkLight/dyntree/internal/listing"
)

// Errors reported while loading a fixture.
var (
	ErrDuplicateID = errors.New("duplicate node id")
	ErrReservedID  = errors.New("node id 0 is reserved for the virtual root")
	ErrUnknownNode = errors.New("unknown node")
)

// Fault is a source-reported failure returned instead of a node's children.
type Fault struct {
	Code    string `yaml:"code"`
	Message string `yaml:"message"`
}

// Behaviour controls how the children of one node are served.
type Behaviour struct {
	// Latency delays the answer.
	Latency time.Duration `yaml:"latency,omitempty"`
	// Fail answers with a failed envelope.
	Fail *Fault `yaml:"fail,omitempty"`
	// HTTPStatus, when set to a non-2xx code, answers with a bare HTTP error.
	HTTPStatus int `yaml:"http_status,omitempty"`
}

// Item is one node of the fixture together with its subtree.
type Item struct {
	listing.Node `yaml:",inline"`
	Behaviour    `yaml:",inline"`

	Children []*Item `yaml:"children,omitempty"`
}

// Tree is a fixture document.
//
//	root:
//	  latency: 100ms
//	nodes:
//	  - id: 1
//	    name: Europe
//	    children:
//	      - {id: 11, name: France}
type Tree struct {
	Root  Behaviour `yaml:"root,omitempty"`
	Nodes []*Item   `yaml:"nodes"`

	index map[int64]*entry
}

type entry struct {
	children  listing.Listing
	behaviour Behaviour
}

// Load reads and indexes a fixture file.
func Load(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes and indexes a fixture document.
func Parse(data []byte) (*Tree, error) {
	var t Tree
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	if err := t.build(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Generate builds a synthetic tree with fanout children per node, depth
// levels deep. Ids encode the path, so they are stable between runs.
func Generate(depth, fanout int) *Tree {
	var next int64
	var grow func(level int) []*Item
	grow = func(level int) []*Item {
		if level > depth {
			return nil
		}
		items := make([]*Item, fanout)
		for i := range items {
			next++
			id := next
			items[i] = &Item{
				Node: listing.Node{
					ID:   id,
					Name: fmt.Sprintf("Node %d", id),
					Code: fmt.Sprintf("L%d-%d", level, i+1),
				},
			}
		}
		for _, it := range items {
			it.Children = grow(level + 1)
		}
		return items
	}

	t := &Tree{Nodes: grow(1)}
	_ = t.build() // generated ids are unique and non-zero
	return t
}

func (t *Tree) build() error {
	t.index = map[int64]*entry{
		listing.RootID: {children: nodesOf(t.Nodes), behaviour: t.Root},
	}
	var walk func(items []*Item) error
	walk = func(items []*Item) error {
		for _, it := range items {
			if listing.IsRoot(it.ID) {
				return fmt.Errorf("%w (name %q)", ErrReservedID, it.Name)
			}
			if _, dup := t.index[it.ID]; dup {
				return fmt.Errorf("%w: %d", ErrDuplicateID, it.ID)
			}
			t.index[it.ID] = &entry{children: nodesOf(it.Children), behaviour: it.Behaviour}
			if err := walk(it.Children); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(t.Nodes)
}

func nodesOf(items []*Item) listing.Listing {
	l := make(listing.Listing, len(items))
	for i, it := range items {
		l[i] = it.Node
	}
	return l
}

// Len returns the number of nodes, not counting the virtual root.
func (t *Tree) Len() int {
	return len(t.index) - 1
}

// Children returns the children of parentID and how they should be served.
func (t *Tree) Children(parentID int64) (listing.Listing, Behaviour, error) {
	e, ok := t.index[parentID]
	if !ok {
		return nil, Behaviour{}, fmt.Errorf("%w: %d", ErrUnknownNode, parentID)
	}
	return e.children.Clone(), e.behaviour, nil
}

// Source returns an in-process listing source over the tree. Latency and
// faults are applied the same way the HTTP handler applies them.
func (t *Tree) Source() listing.Source {
	return listing.SourceFunc(func(ctx context.Context, parentID int64) (listing.Listing, error) {
		children, b, err := t.Children(parentID)
		if err != nil {
			return nil, &listing.SourceError{ParentID: parentID, Status: listing.StatusError, Code: CodeUnknownNode, Message: err.Error()}
		}
		if err := sleep(ctx, b.Latency); err != nil {
			return nil, fmt.Errorf("%w: %w", listing.ErrTransport, err)
		}
		if b.HTTPStatus != 0 && !is2xx(b.HTTPStatus) {
			return nil, fmt.Errorf("%w: HTTP %d", listing.ErrTransport, b.HTTPStatus)
		}
		answer := answerFor(children, b)
		return answer.Listing(parentID)
	})
}

func answerFor(children listing.Listing, b Behaviour) listing.Answer {
	if b.Fail != nil {
		return listing.Failure(b.Fail.Code, b.Fail.Message)
	}
	return listing.OK(children)
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
