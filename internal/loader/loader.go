// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package loader reads knowledge-graph fixtures (CSV tables, YAML documents
// and the line-oriented text format used by tests) and bulk-loads them into a
// graph store.
package loader

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/sigil-dev/simplekp/internal/store"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

// Graph is a fixture read into memory, ready to be written to a store.
type Graph struct {
	Nodes []*store.Node
	Edges []*store.Edge
}

// Options selects the fixture sources and the transformations applied to
// them. Exactly one of the CSV pair, YAML or DSL must be set.
type Options struct {
	NodesCSV string
	EdgesCSV string
	YAML     string
	DSL      string

	// Origin keeps only edges whose origin column starts with this prefix.
	// Edges without an origin column are always kept.
	Origin string

	// SynonymsCSV lists one synonym set per row. With CuriePrefixes it
	// rewrites node ids to the first synonym carrying a preferred prefix.
	SynonymsCSV   string
	CuriePrefixes map[string][]string
}

// Build reads the fixture selected by opts and applies the origin filter
// and synonym remapping.
func Build(opts Options) (*Graph, error) {
	var (
		g   *Graph
		err error
	)
	switch {
	case opts.NodesCSV != "" || opts.EdgesCSV != "":
		if opts.NodesCSV == "" || opts.EdgesCSV == "" {
			return nil, sigilerr.New(sigilerr.CodeLoaderParseInvalid, "CSV input needs both a nodes and an edges file")
		}
		g, err = readCSVFiles(opts.NodesCSV, opts.EdgesCSV)
	case opts.YAML != "":
		g, err = readFile(opts.YAML, ReadYAML)
	case opts.DSL != "":
		g, err = readFile(opts.DSL, ParseDSL)
	default:
		return nil, sigilerr.New(sigilerr.CodeLoaderParseInvalid, "no fixture given")
	}
	if err != nil {
		return nil, err
	}

	if opts.Origin != "" {
		g.FilterOrigin(opts.Origin)
	}

	if opts.SynonymsCSV != "" {
		if len(opts.CuriePrefixes) == 0 {
			return nil, sigilerr.New(sigilerr.CodeLoaderParseInvalid, "synonym remapping needs preferred CURIE prefixes")
		}
		syn, err := readFile(opts.SynonymsCSV, ReadSynonyms)
		if err != nil {
			return nil, err
		}
		g.RemapCuries(syn, opts.CuriePrefixes)
	}
	return g, nil
}

func readFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, sigilerr.Wrap(err, sigilerr.CodeLoaderReadFailure, "opening fixture", sigilerr.FieldPath(path))
	}
	defer func() { _ = f.Close() }()

	v, err := parse(f)
	if err != nil {
		return zero, sigilerr.With(err, sigilerr.FieldPath(path))
	}
	return v, nil
}

// Load writes g to w: nodes first, then edges.
func Load(ctx context.Context, w store.GraphWriter, g *Graph) error {
	if err := w.PutNodes(ctx, g.Nodes); err != nil {
		return sigilerr.Wrap(err, sigilerr.CodeLoaderWriteFailure, "writing nodes")
	}
	if err := w.PutEdges(ctx, g.Edges); err != nil {
		return sigilerr.Wrap(err, sigilerr.CodeLoaderWriteFailure, "writing edges")
	}
	slog.Info("loaded graph", "nodes", len(g.Nodes), "edges", len(g.Edges))
	return nil
}

// FilterOrigin drops edges whose origin attribute does not start with
// prefix. Edge ids are kept, so the surviving ids may have gaps.
func (g *Graph) FilterOrigin(prefix string) {
	kept := g.Edges[:0]
	for _, e := range g.Edges {
		origin, ok := e.Attributes["origin"]
		if !ok || strings.HasPrefix(origin, prefix) {
			kept = append(kept, e)
		}
	}
	slog.Debug("filtered edges by origin", "origin", prefix, "kept", len(kept), "dropped", len(g.Edges)-len(kept))
	g.Edges = kept
}

// Synonyms maps every known identifier to its synonym set.
type Synonyms map[string][]string

// NewSynonyms indexes synonym sets by each of their members.
func NewSynonyms(sets [][]string) Synonyms {
	syn := make(Synonyms)
	for _, set := range sets {
		for _, term := range set {
			syn[term] = set
		}
	}
	return syn
}

// RemapCuries rewrites node ids, and the edge endpoints referring to them,
// to the first synonym carrying one of the preferred prefixes of the node's
// categories. Categories and prefixes are tried in order; nodes with no such
// synonym keep their id.
func (g *Graph) RemapCuries(syn Synonyms, preferred map[string][]string) {
	mapping := make(map[string]string)
	for _, n := range g.Nodes {
		if id, ok := preferredCurie(n, syn, preferred); ok && id != n.ID {
			mapping[n.ID] = id
		}
	}

	for _, n := range g.Nodes {
		if id, ok := mapping[n.ID]; ok {
			n.ID = id
		}
	}
	for _, e := range g.Edges {
		if id, ok := mapping[e.Subject]; ok {
			e.Subject = id
		}
		if id, ok := mapping[e.Object]; ok {
			e.Object = id
		}
	}
	slog.Debug("remapped node identifiers", "remapped", len(mapping))
}

func preferredCurie(n *store.Node, syn Synonyms, preferred map[string][]string) (string, bool) {
	set, ok := syn[n.ID]
	if !ok {
		return "", false
	}
	for _, category := range n.Categories {
		for _, prefix := range preferred[category] {
			for _, curie := range set {
				if strings.HasPrefix(curie, prefix+":") {
					return curie, true
				}
			}
		}
	}
	return "", false
}

func edgeID(i int) string {
	return strconv.Itoa(i)
}
