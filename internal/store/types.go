// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import (
	"slices"
	"strings"
)

// --- Graph types ---

// Node is a stored knowledge-graph node. Categories keep their load order.
type Node struct {
	ID         string
	Categories []string
	Name       string
	Attributes map[string]string
}

// Prefix returns the CURIE prefix of the node identifier (the text before the
// first colon), or the whole identifier when it has no colon.
func (n *Node) Prefix() string {
	prefix, _, _ := strings.Cut(n.ID, ":")
	return prefix
}

// Field returns the stored value(s) of a named node field and whether the
// node carries it at all.
func (n *Node) Field(name string) ([]string, bool) {
	switch name {
	case FieldID:
		return []string{n.ID}, true
	case FieldCategory:
		return n.Categories, len(n.Categories) > 0
	case FieldName:
		return []string{n.Name}, n.Name != ""
	}
	v, ok := n.Attributes[name]
	if !ok {
		return nil, false
	}
	return []string{v}, true
}

// Edge is a stored directed edge. Predicates keep their load order.
type Edge struct {
	ID         string
	Subject    string
	Object     string
	Predicates []string
	Attributes map[string]string
}

// Field returns the stored value(s) of a named edge field and whether the
// edge carries it at all.
func (e *Edge) Field(name string) ([]string, bool) {
	switch name {
	case FieldID:
		return []string{e.ID}, true
	case FieldSubject:
		return []string{e.Subject}, true
	case FieldObject:
		return []string{e.Object}, true
	case FieldPredicate:
		return e.Predicates, len(e.Predicates) > 0
	}
	v, ok := e.Attributes[name]
	if !ok {
		return nil, false
	}
	return []string{v}, true
}

// HasPredicate reports whether p is one of the edge's predicates.
func (e *Edge) HasPredicate(p string) bool {
	return slices.Contains(e.Predicates, p)
}

// Well-known column names shared by the node and edge tables.
const (
	FieldID        = "id"
	FieldCategory  = "category"
	FieldName      = "name"
	FieldSubject   = "subject"
	FieldObject    = "object"
	FieldPredicate = "predicate"
)

// Condition restricts one edge field to a single value (equality) or to any
// of several values (membership).
type Condition struct {
	Field  string
	Values []string
}

// Eq builds an equality condition.
func Eq(field, value string) Condition {
	return Condition{Field: field, Values: []string{value}}
}

// In builds a membership condition.
func In(field string, values ...string) Condition {
	return Condition{Field: field, Values: values}
}

// EdgeQuery is a conjunction of conditions. It must not be empty.
type EdgeQuery []Condition

// Matches reports whether e satisfies every condition of the query. Backends
// without a native query language use it directly.
func (q EdgeQuery) Matches(e *Edge) bool {
	for _, c := range q {
		values, ok := e.Field(c.Field)
		if !ok {
			return false
		}
		hit := false
		for _, v := range values {
			if slices.Contains(c.Values, v) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}
