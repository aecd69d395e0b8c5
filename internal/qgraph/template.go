// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package qgraph

import (
	"slices"

	"github.com/sigil-dev/simplekp/internal/store"
	"github.com/sigil-dev/simplekp/pkg/trapi"
)

// ValidateNode reports whether n satisfies the pattern node q.
//
// The category constraint is satisfied when n carries any of the listed
// categories, or unconditionally when the wildcard is listed. Every other
// constraint must be present on n and equal to it as an ordered list. The
// node id and the grouping flag are not part of the template.
func ValidateNode(q trapi.QNode, n *store.Node) bool {
	if len(q.Category) > 0 && !q.Category.Contains(CategoryWildcard) {
		if !anyOf(q.Category, n.Categories) {
			return false
		}
	}
	return matchTemplate(q.Constraints, n.Field, store.FieldID)
}

// MatchesIDs reports whether n is one of the ids a pattern node is pinned to.
// Unpinned nodes match everything.
func MatchesIDs(q trapi.QNode, n *store.Node) bool {
	return len(q.ID) == 0 || q.ID.Contains(n.ID)
}

// ValidateEdge reports whether e satisfies the pattern edge q. Predicates
// follow the same any-of rule as node categories. The edge id and endpoint
// fields are not part of the template.
func ValidateEdge(q trapi.QEdge, e *store.Edge) bool {
	if len(MatchedPredicates(q, e)) == 0 {
		return false
	}
	return matchTemplate(q.Constraints, e.Field, store.FieldID, store.FieldSubject, store.FieldObject)
}

// MatchedPredicates returns the predicates of e that satisfy q, in stored
// order. With the wildcard (or no constraint) that is all of them.
func MatchedPredicates(q trapi.QEdge, e *store.Edge) []string {
	if len(q.Predicate) == 0 || q.Predicate.Contains(PredicateWildcard) {
		return slices.Clone(e.Predicates)
	}
	var out []string
	for _, p := range e.Predicates {
		if q.Predicate.Contains(p) {
			out = append(out, p)
		}
	}
	return out
}

func anyOf(want trapi.StringList, have []string) bool {
	for _, v := range have {
		if want.Contains(v) {
			return true
		}
	}
	return false
}

func matchTemplate(constraints map[string]trapi.StringList, field func(string) ([]string, bool), skip ...string) bool {
	for key, want := range constraints {
		if len(want) == 0 || slices.Contains(skip, key) {
			continue
		}
		have, ok := field(key)
		if !ok || !slices.Equal([]string(want), have) {
			return false
		}
	}
	return true
}
