// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package trapi defines the wire schema of the knowledge-provider query/answer
// protocol: query graphs, knowledge graphs, results, and capability records.
package trapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// StringList is a JSON value that may be written either as a single string or
// as an array of strings. It always decodes to a slice; a single element
// encodes back to a scalar.
type StringList []string

// UnmarshalJSON accepts a string, an array of strings, other JSON scalars
// (stringified), or null.
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = StringList{s}
		return nil
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err == nil {
		out := make(StringList, 0, len(raw))
		for _, v := range raw {
			out = append(out, stringify(v))
		}
		*l = out
		return nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if _, ok := v.(map[string]any); ok {
		return fmt.Errorf("expected string or list of strings, got object")
	}
	*l = StringList{stringify(v)}
	return nil
}

// MarshalJSON writes a scalar for one element and an array otherwise.
func (l StringList) MarshalJSON() ([]byte, error) {
	if len(l) == 1 {
		return json.Marshal(l[0])
	}
	if l == nil {
		return []byte("null"), nil
	}
	return json.Marshal([]string(l))
}

// Contains reports whether v is one of the list's values.
func (l StringList) Contains(v string) bool {
	return slices.Contains(l, v)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	case float64:
		return fmt.Sprintf("%g", t)
	default:
		return fmt.Sprint(t)
	}
}

// QNode is a pattern node. Fields other than id, category and is_set are
// collected into Constraints and compared against stored node attributes.
type QNode struct {
	ID          StringList            `json:"id,omitempty"`
	Category    StringList            `json:"category,omitempty"`
	IsSet       bool                  `json:"is_set,omitempty"`
	Constraints map[string]StringList `json:"-"`
}

// IsAnchor reports whether the node is pinned to one or more concrete CURIEs.
func (n QNode) IsAnchor() bool {
	return len(n.ID) > 0
}

func (n *QNode) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*n = QNode{}
	for key, value := range raw {
		switch key {
		case "id":
			if err := json.Unmarshal(value, &n.ID); err != nil {
				return fmt.Errorf("qnode id: %w", err)
			}
		case "category":
			if err := json.Unmarshal(value, &n.Category); err != nil {
				return fmt.Errorf("qnode category: %w", err)
			}
		case "is_set":
			if err := json.Unmarshal(value, &n.IsSet); err != nil {
				return fmt.Errorf("qnode is_set: %w", err)
			}
		default:
			var l StringList
			if err := json.Unmarshal(value, &l); err != nil {
				return fmt.Errorf("qnode %s: %w", key, err)
			}
			if l == nil {
				continue
			}
			if n.Constraints == nil {
				n.Constraints = make(map[string]StringList)
			}
			n.Constraints[key] = l
		}
	}
	return nil
}

func (n QNode) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Constraints)+3)
	for k, v := range n.Constraints {
		out[k] = v
	}
	if len(n.ID) > 0 {
		out["id"] = n.ID
	}
	if len(n.Category) > 0 {
		out["category"] = n.Category
	}
	if n.IsSet {
		out["is_set"] = true
	}
	return json.Marshal(out)
}

// QEdge is a pattern edge between two named pattern nodes.
type QEdge struct {
	Subject     string                `json:"subject"`
	Object      string                `json:"object"`
	Predicate   StringList            `json:"predicate,omitempty"`
	Constraints map[string]StringList `json:"-"`
}

func (e *QEdge) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = QEdge{}
	for key, value := range raw {
		switch key {
		case "subject":
			if err := json.Unmarshal(value, &e.Subject); err != nil {
				return fmt.Errorf("qedge subject: %w", err)
			}
		case "object":
			if err := json.Unmarshal(value, &e.Object); err != nil {
				return fmt.Errorf("qedge object: %w", err)
			}
		case "predicate":
			if err := json.Unmarshal(value, &e.Predicate); err != nil {
				return fmt.Errorf("qedge predicate: %w", err)
			}
		default:
			var l StringList
			if err := json.Unmarshal(value, &l); err != nil {
				return fmt.Errorf("qedge %s: %w", key, err)
			}
			if l == nil {
				continue
			}
			if e.Constraints == nil {
				e.Constraints = make(map[string]StringList)
			}
			e.Constraints[key] = l
		}
	}
	return nil
}

func (e QEdge) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Constraints)+3)
	for k, v := range e.Constraints {
		out[k] = v
	}
	out["subject"] = e.Subject
	out["object"] = e.Object
	if len(e.Predicate) > 0 {
		out["predicate"] = e.Predicate
	}
	return json.Marshal(out)
}

// QueryGraph is the caller-supplied pattern.
type QueryGraph struct {
	Nodes map[string]QNode `json:"nodes"`
	Edges map[string]QEdge `json:"edges"`
}

// Clone returns a deep copy so that normalization never touches the caller's
// graph.
func (q QueryGraph) Clone() QueryGraph {
	out := QueryGraph{
		Nodes: make(map[string]QNode, len(q.Nodes)),
		Edges: make(map[string]QEdge, len(q.Edges)),
	}
	for name, n := range q.Nodes {
		n.ID = slices.Clone(n.ID)
		n.Category = slices.Clone(n.Category)
		n.Constraints = cloneConstraints(n.Constraints)
		out.Nodes[name] = n
	}
	for name, e := range q.Edges {
		e.Predicate = slices.Clone(e.Predicate)
		e.Constraints = cloneConstraints(e.Constraints)
		out.Edges[name] = e
	}
	return out
}

func cloneConstraints(in map[string]StringList) map[string]StringList {
	if in == nil {
		return nil
	}
	out := maps.Clone(in)
	for k, v := range out {
		out[k] = slices.Clone(v)
	}
	return out
}

// Node is a knowledge-graph node in a response.
type Node struct {
	Category   []string          `json:"category"`
	Name       string            `json:"name,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Edge is a knowledge-graph edge in a response.
type Edge struct {
	Subject    string            `json:"subject"`
	Predicate  StringList        `json:"predicate"`
	Object     string            `json:"object"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// KnowledgeGraph is the deduplicated subgraph referenced by a set of results.
type KnowledgeGraph struct {
	Nodes map[string]Node `json:"nodes"`
	Edges map[string]Edge `json:"edges"`
}

// NewKnowledgeGraph returns an empty, non-nil knowledge graph.
func NewKnowledgeGraph() *KnowledgeGraph {
	return &KnowledgeGraph{
		Nodes: make(map[string]Node),
		Edges: make(map[string]Edge),
	}
}

// Merge copies every node and edge of other into g.
func (g *KnowledgeGraph) Merge(other *KnowledgeGraph) {
	if other == nil {
		return
	}
	maps.Copy(g.Nodes, other.Nodes)
	maps.Copy(g.Edges, other.Edges)
}

// Binding names one concrete knowledge-graph element.
type Binding struct {
	ID string `json:"id"`
}

// Result is one embedding of the query graph.
type Result struct {
	NodeBindings map[string][]Binding `json:"node_bindings"`
	EdgeBindings map[string][]Binding `json:"edge_bindings"`
}

// Message carries a query graph and, in responses, its answers.
type Message struct {
	QueryGraph     *QueryGraph     `json:"query_graph,omitempty"`
	KnowledgeGraph *KnowledgeGraph `json:"knowledge_graph,omitempty"`
	Results        []Result        `json:"results"`
}

// Query is the request envelope.
type Query struct {
	Message Message `json:"message"`
}

// Response is the response envelope.
type Response struct {
	Message Message `json:"message"`
}

// Operation is one (source category, directed predicate, target category)
// triple the provider can answer.
type Operation struct {
	SourceType string `json:"source_type"`
	EdgeType   string `json:"edge_type"`
	TargetType string `json:"target_type"`
}

// Metadata describes the provider's identifier conventions.
type Metadata struct {
	CuriePrefixes map[string][]string `json:"curie_prefixes"`
}
