// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package loader

import (
	"bufio"
	"io"
	"regexp"
	"slices"
	"strings"

	"github.com/sigil-dev/simplekp/internal/store"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

// Statements of the text fixture format:
//
//	CURIE(( category VALUE ))     add a category (or set name / an attribute)
//	A-- predicate P -->B          edge A -P-> B
//	A<-- predicate P --B          edge B -P-> A
var (
	dslNode    = regexp.MustCompile(`^(\S+?)\(\(\s*(\S+)\s+(.+?)\s*\)\)$`)
	dslForward = regexp.MustCompile(`^(\S+?)--\s*(\S+)\s+(\S+)\s*-->(\S+)$`)
	dslReverse = regexp.MustCompile(`^(\S+?)<--\s*(\S+)\s+(\S+)\s*--(\S+)$`)
)

// ParseDSL reads the line-oriented fixture format. Blank lines and lines
// starting with '#' are ignored; leading indentation is allowed. A node that
// is only mentioned by an edge gets the category biolink:NamedThing. Edge
// ids are assigned in statement order starting at 0.
func ParseDSL(r io.Reader) (*Graph, error) {
	b := newDSLBuilder()

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := dslReverse.FindStringSubmatch(line); m != nil {
			if err := b.edge(lineNo, m[4], m[2], m[3], m[1]); err != nil {
				return nil, err
			}
			continue
		}
		if m := dslForward.FindStringSubmatch(line); m != nil {
			if err := b.edge(lineNo, m[1], m[2], m[3], m[4]); err != nil {
				return nil, err
			}
			continue
		}
		if m := dslNode.FindStringSubmatch(line); m != nil {
			b.property(m[1], m[2], m[3])
			continue
		}
		return nil, sigilerr.Errorf(sigilerr.CodeLoaderParseInvalid, "line %d: unrecognised statement %q", lineNo, line)
	}
	if err := sc.Err(); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeLoaderReadFailure, "reading fixture: %w", err)
	}
	return b.graph(), nil
}

// ParseDSLString is ParseDSL over an in-memory fixture.
func ParseDSLString(s string) (*Graph, error) {
	return ParseDSL(strings.NewReader(s))
}

type dslBuilder struct {
	nodes map[string]*store.Node
	order []string
	edges []*store.Edge
}

func newDSLBuilder() *dslBuilder {
	return &dslBuilder{nodes: make(map[string]*store.Node)}
}

func (b *dslBuilder) node(id string) *store.Node {
	n, ok := b.nodes[id]
	if !ok {
		n = &store.Node{ID: id}
		b.nodes[id] = n
		b.order = append(b.order, id)
	}
	return n
}

func (b *dslBuilder) property(id, key, value string) {
	n := b.node(id)
	switch key {
	case store.FieldCategory:
		if !slices.Contains(n.Categories, value) {
			n.Categories = append(n.Categories, value)
		}
	case store.FieldName:
		n.Name = value
	default:
		if n.Attributes == nil {
			n.Attributes = make(map[string]string)
		}
		n.Attributes[key] = value
	}
}

func (b *dslBuilder) edge(lineNo int, subject, key, value, object string) error {
	if key != store.FieldPredicate {
		return sigilerr.Errorf(sigilerr.CodeLoaderParseInvalid, "line %d: edge statement sets %q, want predicate", lineNo, key)
	}
	b.node(subject)
	b.node(object)
	b.edges = append(b.edges, &store.Edge{
		ID:         edgeID(len(b.edges)),
		Subject:    subject,
		Object:     object,
		Predicates: []string{value},
	})
	return nil
}

func (b *dslBuilder) graph() *Graph {
	g := &Graph{Edges: b.edges}
	for _, id := range b.order {
		n := b.nodes[id]
		if len(n.Categories) == 0 {
			n.Categories = []string{"biolink:NamedThing"}
		}
		g.Nodes = append(g.Nodes, n)
	}
	return g
}
