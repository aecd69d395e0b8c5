// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package qgraph

import (
	"slices"

	"github.com/sigil-dev/simplekp/pkg/trapi"
)

// adjacency is the undirected projection of a query graph. Parallel edges
// collapse into one connection; a self-loop connects a node to itself.
type adjacency map[string]map[string]struct{}

func newAdjacency(q trapi.QueryGraph) adjacency {
	adj := make(adjacency, len(q.Nodes))
	for name := range q.Nodes {
		adj[name] = make(map[string]struct{})
	}
	for _, e := range q.Edges {
		adj.connect(e.Subject, e.Object)
	}
	return adj
}

func (a adjacency) connect(x, y string) {
	if a[x] == nil {
		a[x] = make(map[string]struct{})
	}
	if a[y] == nil {
		a[y] = make(map[string]struct{})
	}
	a[x][y] = struct{}{}
	a[y][x] = struct{}{}
}

func (a adjacency) neighbors(x string) []string {
	out := make([]string, 0, len(a[x]))
	for y := range a[x] {
		out = append(out, y)
	}
	slices.Sort(out)
	return out
}

// IsCyclic reports whether the undirected projection of q contains a cycle.
// Each connected component is searched independently. Connections are
// consumed as the search walks them, so walking back over the edge just
// taken is not mistaken for a cycle.
func IsCyclic(q trapi.QueryGraph) bool {
	adj := newAdjacency(q)
	visited := make(map[string]bool, len(adj))

	var visit func(string) bool
	visit = func(x string) bool {
		if visited[x] {
			return true
		}
		visited[x] = true
		for _, y := range adj.neighbors(x) {
			if _, ok := adj[x][y]; !ok {
				continue
			}
			delete(adj[x], y)
			delete(adj[y], x)
			if visit(y) {
				return true
			}
		}
		return false
	}

	for _, name := range sortedKeys(adj) {
		if visited[name] {
			continue
		}
		if visit(name) {
			return true
		}
	}
	return false
}

// Components partitions the node names of q into connected components of its
// undirected projection. Components and their members are sorted.
func Components(q trapi.QueryGraph) [][]string {
	adj := newAdjacency(q)
	seen := make(map[string]bool, len(adj))

	var out [][]string
	for _, start := range sortedKeys(adj) {
		if seen[start] {
			continue
		}
		var comp []string
		stack := []string{start}
		seen[start] = true
		for len(stack) > 0 {
			x := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, x)
			for _, y := range adj.neighbors(x) {
				if !seen[y] {
					seen[y] = true
					stack = append(stack, y)
				}
			}
		}
		slices.Sort(comp)
		out = append(out, comp)
	}
	return out
}
