// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package qgraph holds the query-graph rules shared by the matching engine:
// structural validation, the cyclicity check, normalization and the template
// checks that decide whether a stored element satisfies a pattern element.
package qgraph

import (
	"slices"

	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
	"github.com/sigil-dev/simplekp/pkg/trapi"
)

// Defaults filled in by Normalize. Both match any stored value.
const (
	CategoryWildcard  = "biolink:NamedThing"
	PredicateWildcard = "biolink:related_to"
)

// Validate checks that q can be matched: it is non-empty, every edge names
// existing nodes, its undirected projection is acyclic, it has at least one
// anchor and it forms a single connected component.
func Validate(q trapi.QueryGraph) error {
	if len(q.Nodes) == 0 {
		return sigilerr.New(sigilerr.CodeQueryGraphInvalid, "query graph has no nodes")
	}

	for _, name := range sortedKeys(q.Edges) {
		e := q.Edges[name]
		for _, endpoint := range []string{e.Subject, e.Object} {
			if _, ok := q.Nodes[endpoint]; !ok {
				return sigilerr.New(sigilerr.CodeQueryGraphInvalid,
					"query edge "+name+" references unknown node "+endpoint,
					sigilerr.FieldQEdge(name), sigilerr.FieldQNode(endpoint))
			}
		}
	}

	if IsCyclic(q) {
		return sigilerr.New(sigilerr.CodeQueryGraphCycleInvalid, "query graph is cyclic")
	}

	if _, ok := Anchor(q); !ok {
		return sigilerr.New(sigilerr.CodeQueryGraphAnchorInvalid, "query graph has no node with an id")
	}

	if n := len(Components(q)); n > 1 {
		return sigilerr.Errorf(sigilerr.CodeQueryGraphInvalid, "query graph is disconnected: %d components", n)
	}
	return nil
}

// Anchor returns the lexicographically smallest node name carrying an id.
func Anchor(q trapi.QueryGraph) (string, bool) {
	for _, name := range sortedKeys(q.Nodes) {
		if q.Nodes[name].IsAnchor() {
			return name, true
		}
	}
	return "", false
}

// Normalize returns a copy of q with the default category on every node
// lacking one and the default predicate on every edge lacking one.
func Normalize(q trapi.QueryGraph) trapi.QueryGraph {
	out := q.Clone()
	for name, n := range out.Nodes {
		if len(n.Category) == 0 {
			n.Category = trapi.StringList{CategoryWildcard}
			out.Nodes[name] = n
		}
	}
	for name, e := range out.Edges {
		if len(e.Predicate) == 0 {
			e.Predicate = trapi.StringList{PredicateWildcard}
			out.Edges[name] = e
		}
	}
	return out
}

// Without returns the pattern with one node removed. Edges are shared with q.
func Without(q trapi.QueryGraph, node string) trapi.QueryGraph {
	nodes := make(map[string]trapi.QNode, len(q.Nodes))
	for name, n := range q.Nodes {
		if name != node {
			nodes[name] = n
		}
	}
	return trapi.QueryGraph{Nodes: nodes, Edges: q.Edges}
}

// WithoutEdge returns the pattern with one edge removed. Nodes are shared with q.
func WithoutEdge(q trapi.QueryGraph, edge string) trapi.QueryGraph {
	edges := make(map[string]trapi.QEdge, len(q.Edges))
	for name, e := range q.Edges {
		if name != edge {
			edges[name] = e
		}
	}
	return trapi.QueryGraph{Nodes: q.Nodes, Edges: edges}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
