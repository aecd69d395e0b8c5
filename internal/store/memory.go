// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

// Compile-time interface check.
var _ LoadableStore = (*MemoryGraph)(nil)

// MemoryGraph is a map-backed LoadableStore. Edges are indexed by subject and
// object so that expansion lookups scale with the node degree rather than the
// edge count. Results are returned in load order.
type MemoryGraph struct {
	mu        sync.RWMutex
	nodes     map[string]*Node
	nodeOrder []string
	edges     []*Edge
	edgeIndex map[string]int
	bySubject map[string][]int
	byObject  map[string][]int
}

// NewMemoryGraph creates an empty in-memory graph.
func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{
		nodes:     make(map[string]*Node),
		edgeIndex: make(map[string]int),
		bySubject: make(map[string][]int),
		byObject:  make(map[string][]int),
	}
}

// PutNodes stores copies of nodes. An existing identifier is a conflict.
func (m *MemoryGraph) PutNodes(_ context.Context, nodes []*Node) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, n := range nodes {
		if _, ok := m.nodes[n.ID]; ok {
			return sigilerr.New(sigilerr.CodeStoreConflict, "node already exists", sigilerr.FieldNodeID(n.ID))
		}
		m.nodes[n.ID] = cloneNode(n)
		m.nodeOrder = append(m.nodeOrder, n.ID)
	}
	return nil
}

// PutEdges stores copies of edges. Both endpoints must already exist.
func (m *MemoryGraph) PutEdges(_ context.Context, edges []*Edge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range edges {
		if _, ok := m.edgeIndex[e.ID]; ok {
			return sigilerr.New(sigilerr.CodeStoreConflict, "edge already exists", sigilerr.Field("edge_id", e.ID))
		}
		for _, endpoint := range []string{e.Subject, e.Object} {
			if _, ok := m.nodes[endpoint]; !ok {
				return sigilerr.New(sigilerr.CodeStoreInvalidInput, "edge references unknown node",
					sigilerr.Field("edge_id", e.ID), sigilerr.FieldNodeID(endpoint))
			}
		}
		idx := len(m.edges)
		m.edges = append(m.edges, cloneEdge(e))
		m.edgeIndex[e.ID] = idx
		m.bySubject[e.Subject] = append(m.bySubject[e.Subject], idx)
		m.byObject[e.Object] = append(m.byObject[e.Object], idx)
	}
	return nil
}

// GetNode implements GraphStore.
func (m *MemoryGraph) GetNode(_ context.Context, id string) (*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[id]
	if !ok {
		return nil, sigilerr.New(sigilerr.CodeStoreNodeNotFound, "node "+id+" not found", sigilerr.FieldNodeID(id))
	}
	return cloneNode(n), nil
}

// GetEdges implements GraphStore.
func (m *MemoryGraph) GetEdges(ctx context.Context, q EdgeQuery) ([]*Edge, error) {
	if len(q) == 0 {
		return nil, sigilerr.New(sigilerr.CodeStoreEdgeQueryInvalid, "edge query requires at least one condition")
	}
	if err := ctx.Err(); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeStoreDatabaseFailure, "querying edges: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Edge
	for _, idx := range m.candidates(q) {
		e := m.edges[idx]
		if q.Matches(e) {
			out = append(out, cloneEdge(e))
		}
	}
	return out, nil
}

// candidates narrows the scan using the subject/object/id indexes when the
// query pins one of those fields. Caller must hold m.mu.
func (m *MemoryGraph) candidates(q EdgeQuery) []int {
	for _, c := range q {
		var index func(string) []int
		switch c.Field {
		case FieldSubject:
			index = func(v string) []int { return m.bySubject[v] }
		case FieldObject:
			index = func(v string) []int { return m.byObject[v] }
		case FieldID:
			index = func(v string) []int {
				if idx, ok := m.edgeIndex[v]; ok {
					return []int{idx}
				}
				return nil
			}
		default:
			continue
		}
		var out []int
		for _, v := range c.Values {
			out = append(out, index(v)...)
		}
		slices.Sort(out)
		return slices.Compact(out)
	}

	all := make([]int, len(m.edges))
	for i := range all {
		all[i] = i
	}
	return all
}

// AllNodes implements GraphStore.
func (m *MemoryGraph) AllNodes(_ context.Context) ([]*Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Node, 0, len(m.nodeOrder))
	for _, id := range m.nodeOrder {
		out = append(out, cloneNode(m.nodes[id]))
	}
	return out, nil
}

// AllEdges implements GraphStore.
func (m *MemoryGraph) AllEdges(_ context.Context) ([]*Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Edge, 0, len(m.edges))
	for _, e := range m.edges {
		out = append(out, cloneEdge(e))
	}
	return out, nil
}

// Close implements GraphStore. The graph stays readable after Close.
func (m *MemoryGraph) Close() error {
	return nil
}

func cloneNode(n *Node) *Node {
	c := *n
	c.Categories = slices.Clone(n.Categories)
	c.Attributes = maps.Clone(n.Attributes)
	return &c
}

func cloneEdge(e *Edge) *Edge {
	c := *e
	c.Predicates = slices.Clone(e.Predicates)
	c.Attributes = maps.Clone(e.Attributes)
	return &c
}
