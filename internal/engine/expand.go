// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package engine

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/sigil-dev/simplekp/internal/qgraph"
	"github.com/sigil-dev/simplekp/internal/store"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
	"github.com/sigil-dev/simplekp/pkg/trapi"
)

// expansion carries the per-request logger through the recursion.
type expansion struct {
	*Provider
	logger *slog.Logger
}

// match is the partial answer for a piece of the query graph: the subgraph
// touched so far and the bindings of every embedding found.
type match struct {
	kg      *trapi.KnowledgeGraph
	results []trapi.Result
}

func newMatch() *match {
	return &match{kg: trapi.NewKnowledgeGraph(), results: []trapi.Result{}}
}

func (m *match) empty() bool {
	return len(m.results) == 0
}

func (m *match) merge(other *match) {
	if other == nil {
		return
	}
	m.kg.Merge(other.kg)
	m.results = append(m.results, other.results...)
}

// prune drops subgraph elements that no result binds.
func (m *match) prune() *trapi.KnowledgeGraph {
	out := trapi.NewKnowledgeGraph()
	for _, r := range m.results {
		for _, bs := range r.NodeBindings {
			for _, b := range bs {
				if n, ok := m.kg.Nodes[b.ID]; ok {
					out.Nodes[b.ID] = n
				}
			}
		}
		for _, bs := range r.EdgeBindings {
			for _, b := range bs {
				if e, ok := m.kg.Edges[b.ID]; ok {
					out.Edges[b.ID] = e
				}
			}
		}
	}
	return out
}

// expandFromNode finds every embedding of the part of pattern reachable from
// qnode, given that qnode is bound to knode.
//
// Each pattern edge touching qnode opens a branch. A branch walks the stored
// edges of knode that satisfy the pattern edge and continues from the far
// end. Branches are joined on the names they share, so a node reached twice
// must be bound to the same stored node both times.
func (x *expansion) expandFromNode(ctx context.Context, pattern trapi.QueryGraph, qnode string, knode *store.Node) (*match, error) {
	incident := incidentEdges(pattern, qnode)
	if len(incident) == 0 {
		m := newMatch()
		m.kg.Nodes[knode.ID] = toKNode(knode)
		m.results = append(m.results, trapi.Result{
			NodeBindings: map[string][]trapi.Binding{qnode: {{ID: knode.ID}}},
			EdgeBindings: map[string][]trapi.Binding{},
		})
		return m, nil
	}

	x.logger.Debug("expanding from node", "qnode", qnode, "knode", knode.ID)

	rest := qgraph.Without(pattern, qnode)
	out := newMatch()
	var joined []trapi.Result

	for i, qedgeName := range incident {
		branch, err := x.expandBranch(ctx, branchPattern(rest, qedgeName, incident), qnode, qedgeName, knode)
		if err != nil {
			return nil, err
		}
		if branch.empty() {
			return newMatch(), nil
		}
		if i == 0 {
			joined = branch.results
		} else {
			joined = join(joined, branch.results)
			if len(joined) == 0 {
				return newMatch(), nil
			}
		}
		out.kg.Merge(branch.kg)
	}

	out.kg.Nodes[knode.ID] = toKNode(knode)
	out.results = make([]trapi.Result, 0, len(joined))
	for _, r := range joined {
		out.results = append(out.results, withNode(r, qnode, knode.ID))
	}
	return out, nil
}

// expandBranch walks one pattern edge away from knode.
func (x *expansion) expandBranch(ctx context.Context, pattern trapi.QueryGraph, qnode, qedgeName string, knode *store.Node) (*match, error) {
	qedge := pattern.Edges[qedgeName]
	out := newMatch()

	var lookups []store.EdgeQuery
	if qedge.Subject == qnode && x.opts.AllowForward {
		lookups = append(lookups, edgeLookup(store.FieldSubject, knode.ID, qedge))
	}
	if qedge.Object == qnode && x.opts.AllowReverse {
		lookups = append(lookups, edgeLookup(store.FieldObject, knode.ID, qedge))
	}

	for _, lookup := range lookups {
		kedges, err := x.store.GetEdges(ctx, lookup)
		if err != nil {
			return nil, err
		}
		for _, kedge := range kedges {
			if !qgraph.ValidateEdge(qedge, kedge) {
				x.logger.Debug("kedge does not satisfy qedge", "qedge", qedgeName, "kedge", kedge.ID)
				continue
			}
			m, err := x.expandFromEdge(ctx, pattern, qedgeName, kedge, qgraph.MatchedPredicates(qedge, kedge))
			if err != nil {
				return nil, err
			}
			out.merge(m)
		}
	}
	return out, nil
}

// expandFromEdge continues from the endpoint of qedge still present in
// pattern, given that qedge is bound to kedge. A far node missing from the
// store prunes the branch.
func (x *expansion) expandFromEdge(ctx context.Context, pattern trapi.QueryGraph, qedgeName string, kedge *store.Edge, predicates []string) (*match, error) {
	x.logger.Debug("expanding from edge", "qedge", qedgeName, "kedge", kedge.ID)

	qedge := pattern.Edges[qedgeName]
	var qnodeName, knodeID string
	switch {
	case hasNode(pattern, qedge.Object):
		qnodeName, knodeID = qedge.Object, kedge.Object
	case hasNode(pattern, qedge.Subject):
		qnodeName, knodeID = qedge.Subject, kedge.Subject
	default:
		return nil, sigilerr.New(sigilerr.CodeEngineMatchFailure, "query edge has no unbound endpoint", sigilerr.FieldQEdge(qedgeName))
	}
	qnode := pattern.Nodes[qnodeName]

	knode, err := x.store.GetNode(ctx, knodeID)
	if err != nil {
		if sigilerr.IsNotFound(err) {
			return newMatch(), nil
		}
		return nil, err
	}
	if !qgraph.MatchesIDs(qnode, knode) || !qgraph.ValidateNode(qnode, knode) {
		x.logger.Debug("knode does not satisfy qnode", "qnode", qnodeName, "knode", knode.ID)
		return newMatch(), nil
	}

	sub, err := x.expandFromNode(ctx, qgraph.WithoutEdge(pattern, qedgeName), qnodeName, knode)
	if err != nil || sub.empty() {
		return sub, err
	}

	sub.kg.Edges[kedge.ID] = toKEdge(kedge, predicates)
	for i, r := range sub.results {
		sub.results[i] = withEdge(r, qedgeName, kedge.ID)
	}
	return sub, nil
}

func edgeLookup(endpoint, id string, qedge trapi.QEdge) store.EdgeQuery {
	q := store.EdgeQuery{store.Eq(endpoint, id)}
	if !qedge.Predicate.Contains(qgraph.PredicateWildcard) && len(qedge.Predicate) > 0 {
		q = append(q, store.In(store.FieldPredicate, qedge.Predicate...))
	}
	return q
}

func hasNode(pattern trapi.QueryGraph, name string) bool {
	_, ok := pattern.Nodes[name]
	return ok
}

// incidentEdges returns the sorted names of pattern edges touching qnode.
func incidentEdges(pattern trapi.QueryGraph, qnode string) []string {
	var out []string
	for name, e := range pattern.Edges {
		if e.Subject == qnode || e.Object == qnode {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// branchPattern restricts rest to the edge qedgeName plus everything
// reachable from its far end without crossing another edge in incident.
func branchPattern(rest trapi.QueryGraph, qedgeName string, incident []string) trapi.QueryGraph {
	out := trapi.QueryGraph{
		Nodes: make(map[string]trapi.QNode),
		Edges: map[string]trapi.QEdge{qedgeName: rest.Edges[qedgeName]},
	}

	var frontier []string
	qedge := rest.Edges[qedgeName]
	for _, name := range []string{qedge.Subject, qedge.Object} {
		if n, ok := rest.Nodes[name]; ok {
			if _, seen := out.Nodes[name]; !seen {
				out.Nodes[name] = n
				frontier = append(frontier, name)
			}
		}
	}

	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for name, e := range rest.Edges {
			if slices.Contains(incident, name) {
				continue
			}
			if _, done := out.Edges[name]; done {
				continue
			}
			if e.Subject != cur && e.Object != cur {
				continue
			}
			out.Edges[name] = e
			for _, end := range []string{e.Subject, e.Object} {
				if _, seen := out.Nodes[end]; !seen {
					out.Nodes[end] = rest.Nodes[end]
					frontier = append(frontier, end)
				}
			}
		}
	}
	return out
}

// join pairs every left result with every right result that agrees with it
// on the names both bind.
func join(left, right []trapi.Result) []trapi.Result {
	var out []trapi.Result
	for _, l := range left {
		for _, r := range right {
			if merged, ok := mergeResults(l, r); ok {
				out = append(out, merged)
			}
		}
	}
	return out
}

func mergeResults(a, b trapi.Result) (trapi.Result, bool) {
	nodes, ok := mergeBindings(a.NodeBindings, b.NodeBindings)
	if !ok {
		return trapi.Result{}, false
	}
	edges, ok := mergeBindings(a.EdgeBindings, b.EdgeBindings)
	if !ok {
		return trapi.Result{}, false
	}
	return trapi.Result{NodeBindings: nodes, EdgeBindings: edges}, true
}

func mergeBindings(a, b map[string][]trapi.Binding) (map[string][]trapi.Binding, bool) {
	out := maps.Clone(a)
	if out == nil {
		out = make(map[string][]trapi.Binding, len(b))
	}
	for k, v := range b {
		if existing, ok := out[k]; ok && !slices.Equal(existing, v) {
			return nil, false
		}
		out[k] = v
	}
	return out, true
}

func withNode(r trapi.Result, qnode, id string) trapi.Result {
	nodes := maps.Clone(r.NodeBindings)
	if nodes == nil {
		nodes = make(map[string][]trapi.Binding, 1)
	}
	nodes[qnode] = []trapi.Binding{{ID: id}}
	return trapi.Result{NodeBindings: nodes, EdgeBindings: r.EdgeBindings}
}

func withEdge(r trapi.Result, qedge, id string) trapi.Result {
	edges := maps.Clone(r.EdgeBindings)
	if edges == nil {
		edges = make(map[string][]trapi.Binding, 1)
	}
	edges[qedge] = []trapi.Binding{{ID: id}}
	return trapi.Result{NodeBindings: r.NodeBindings, EdgeBindings: edges}
}

func toKNode(n *store.Node) trapi.Node {
	return trapi.Node{
		Category:   slices.Clone(n.Categories),
		Name:       n.Name,
		Attributes: maps.Clone(n.Attributes),
	}
}

func toKEdge(e *store.Edge, predicates []string) trapi.Edge {
	return trapi.Edge{
		Subject:    e.Subject,
		Predicate:  trapi.StringList(slices.Clone(predicates)),
		Object:     e.Object,
		Attributes: maps.Clone(e.Attributes),
	}
}
