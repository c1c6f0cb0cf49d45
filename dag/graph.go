// Package dag implements the Graph & marks layer (spec §4.D): the
// directed acyclic container of node.Kind values plus the ternary marks
// forward pass used to detect linearity and scale structure for the
// conjugate samplers.
//
// Adapted from the teacher's core.Graph and dfs package: core.Graph's
// mutex-guarded map-of-maps storage is repurposed here for a node.Kind
// registry keyed by arena.ID, and dfs.TopologicalSort's White/Gray/Black
// three-color cycle-checked DFS becomes dag's topological order and
// cycle-detection pass, generalized from string vertex IDs to arena.ID
// and from core.Graph's adjacency lookup to node.Kind.Parents().
package dag

import (
	"errors"
	"fmt"
	"sync"

	"github.com/arnovik/bugsgraph/arena"
	"github.com/arnovik/bugsgraph/node"
)

// ErrAlreadyRegistered indicates AddNode was called twice for the same ID.
var ErrAlreadyRegistered = errors.New("dag: node already registered")

// ErrUnknownNode indicates a lookup referenced an unregistered ID.
var ErrUnknownNode = errors.New("dag: unknown node")

// ErrUnknownParent indicates a node was added whose parent ID is not yet
// registered; the graph must be built bottom-up (parents before children),
// which also guarantees acyclicity by construction (spec §9 "the graph is
// acyclic by construction").
var ErrUnknownParent = errors.New("dag: parent not registered")

// ErrCycleDetected indicates TopologicalOrder found a cycle — unreachable
// under the bottom-up construction discipline AddNode enforces, but
// checked defensively since TopologicalOrder is also the cheapest place
// to catch a caller that bypassed AddNode's invariant.
var ErrCycleDetected = errors.New("dag: cycle detected")

// color is the three-state DFS visitation marker (White/Gray/Black),
// mirroring dfs.VertexState.
type color int

const (
	white color = iota
	gray
	black
)

// Graph owns the node.Kind registry and derives traversal order from it.
type Graph struct {
	mu    sync.RWMutex
	nodes map[arena.ID]node.Kind
	ids   []arena.ID // insertion order, for deterministic iteration

	orderCache []arena.ID // cached topological order, invalidated by AddNode
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{nodes: make(map[arena.ID]node.Kind)}
}

// AddNode registers n. Every ID in n.Parents() must already be registered,
// so graphs are built strictly bottom-up; this is what makes the graph
// acyclic by construction rather than requiring a runtime cycle check on
// every insert.
func (g *Graph) AddNode(n node.Kind) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	id := n.ID()
	if _, exists := g.nodes[id]; exists {
		return fmt.Errorf("dag: AddNode(%d): %w", id, ErrAlreadyRegistered)
	}
	for _, p := range n.Parents() {
		if _, ok := g.nodes[p]; !ok {
			return fmt.Errorf("dag: AddNode(%d): parent %d: %w", id, p, ErrUnknownParent)
		}
	}
	g.nodes[id] = n
	g.ids = append(g.ids, id)
	g.orderCache = nil

	return nil
}

// Has reports whether id is registered.
func (g *Graph) Has(id arena.ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]

	return ok
}

// Node looks up a registered node.Kind by ID.
func (g *Graph) Node(id arena.ID) (node.Kind, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("dag: Node(%d): %w", id, ErrUnknownNode)
	}

	return n, nil
}

// Nodes returns every registered ID in insertion order.
func (g *Graph) Nodes() []arena.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]arena.ID, len(g.ids))
	copy(out, g.ids)

	return out
}

// Len reports the number of registered nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.ids)
}

// TopologicalOrder returns every node in parent-before-child order (spec
// §4.D "a traversal that visits each node once in parent-before-child
// order"). The result is cached until the next AddNode.
func (g *Graph) TopologicalOrder() ([]arena.ID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.orderCache != nil {
		out := make([]arena.ID, len(g.orderCache))
		copy(out, g.orderCache)

		return out, nil
	}

	state := make(map[arena.ID]color, len(g.ids))
	order := make([]arena.ID, 0, len(g.ids))
	var visit func(id arena.ID) error
	visit = func(id arena.ID) error {
		switch state[id] {
		case gray:
			return fmt.Errorf("dag: TopologicalOrder: %w: at node %d", ErrCycleDetected, id)
		case black:
			return nil
		}
		state[id] = gray
		n := g.nodes[id]
		for _, p := range n.Parents() {
			if err := visit(p); err != nil {
				return err
			}
		}
		state[id] = black
		order = append(order, id)

		return nil
	}
	for _, id := range g.ids {
		if state[id] == white {
			if err := visit(id); err != nil {
				return nil, err
			}
		}
	}

	g.orderCache = order
	out := make([]arena.ID, len(order))
	copy(out, order)

	return out, nil
}

// Children returns every registered node whose Parents() includes id,
// i.e. the direct downstream dependents of id.
func (g *Graph) Children(id arena.ID) []arena.ID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var children []arena.ID
	for _, cid := range g.ids {
		for _, p := range g.nodes[cid].Parents() {
			if p == id {
				children = append(children, cid)

				break
			}
		}
	}

	return children
}
