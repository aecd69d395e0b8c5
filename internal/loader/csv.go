// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package loader

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/sigil-dev/simplekp/internal/store"
	"github.com/sigil-dev/simplekp/internal/store/sqlite"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

// ReadCSV reads a nodes table (id, category, then optional name and
// attribute columns) and an edges table (subject, predicate, object, then
// optional attribute columns such as origin). Multi-valued cells use the
// |value| token format; a cell without '|' is a single value. Edge ids are
// the zero-based row index unless the table has an id column.
func ReadCSV(nodes, edges io.Reader) (*Graph, error) {
	nodeRows, err := readTable(nodes, "nodes", store.FieldID, store.FieldCategory)
	if err != nil {
		return nil, err
	}
	edgeRows, err := readTable(edges, "edges", store.FieldSubject, store.FieldPredicate, store.FieldObject)
	if err != nil {
		return nil, err
	}

	g := &Graph{
		Nodes: make([]*store.Node, 0, len(nodeRows)),
		Edges: make([]*store.Edge, 0, len(edgeRows)),
	}
	for _, row := range nodeRows {
		n := &store.Node{ID: row[store.FieldID], Categories: splitCell(row[store.FieldCategory])}
		for k, v := range row {
			switch k {
			case store.FieldID, store.FieldCategory:
			case store.FieldName:
				n.Name = v
			default:
				if n.Attributes == nil {
					n.Attributes = make(map[string]string)
				}
				n.Attributes[k] = v
			}
		}
		g.Nodes = append(g.Nodes, n)
	}
	for i, row := range edgeRows {
		e := &store.Edge{
			ID:         edgeID(i),
			Subject:    row[store.FieldSubject],
			Object:     row[store.FieldObject],
			Predicates: splitCell(row[store.FieldPredicate]),
		}
		for k, v := range row {
			switch k {
			case store.FieldSubject, store.FieldObject, store.FieldPredicate:
			case store.FieldID:
				if v != "" {
					e.ID = v
				}
			default:
				if e.Attributes == nil {
					e.Attributes = make(map[string]string)
				}
				e.Attributes[k] = v
			}
		}
		g.Edges = append(g.Edges, e)
	}
	return g, nil
}

func readCSVFiles(nodesPath, edgesPath string) (*Graph, error) {
	nf, err := os.Open(nodesPath)
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeLoaderReadFailure, "opening nodes table", sigilerr.FieldPath(nodesPath))
	}
	defer func() { _ = nf.Close() }()

	ef, err := os.Open(edgesPath)
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeLoaderReadFailure, "opening edges table", sigilerr.FieldPath(edgesPath))
	}
	defer func() { _ = ef.Close() }()

	return ReadCSV(nf, ef)
}

// readTable returns one header->cell map per data row. A leading byte-order
// mark is ignored.
func readTable(r io.Reader, table string, required ...string) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, sigilerr.Errorf(sigilerr.CodeLoaderParseInvalid, "%s table is empty", table)
		}
		return nil, sigilerr.Errorf(sigilerr.CodeLoaderReadFailure, "reading %s header: %w", table, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for _, col := range required {
		if !slices.Contains(header, col) {
			return nil, sigilerr.Errorf(sigilerr.CodeLoaderParseInvalid, "%s table has no %q column", table, col)
		}
	}

	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeLoaderParseInvalid, "reading %s row %d: %w", table, len(rows)+1, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadSynonyms reads one synonym set per CSV row. Rows may differ in length.
func ReadSynonyms(r io.Reader) (Synonyms, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeLoaderParseInvalid, "reading synonyms: %w", err)
	}
	sets := make([][]string, 0, len(records))
	for _, rec := range records {
		set := slices.DeleteFunc(rec, func(s string) bool { return strings.TrimSpace(s) == "" })
		if len(set) > 0 {
			sets = append(sets, set)
		}
	}
	return NewSynonyms(sets), nil
}

func splitCell(cell string) []string {
	if strings.Contains(cell, "|") {
		return sqlite.DecodeList(cell)
	}
	if cell == "" {
		return nil
	}
	return []string{cell}
}
