// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sigil-dev/simplekp/internal/store"
	"github.com/sigil-dev/simplekp/internal/store/sqlite"
	"github.com/stretchr/testify/require"
)

// testDir creates a temp directory that is removed when the test ends.
func testDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "simplekp-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

// testDBPath returns a temp SQLite database path.
func testDBPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testDir(t), name+".db")
}

// seededGraph opens a file-backed store holding a three-node, three-edge
// fixture. Edge "2" carries two predicates.
func seededGraph(t *testing.T) *sqlite.GraphStore {
	t.Helper()
	ctx := context.Background()

	g, err := sqlite.Open(testDBPath(t, "graph"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	require.NoError(t, g.PutNodes(ctx, []*store.Node{
		{ID: "CHEBI:6801", Categories: []string{"biolink:ChemicalSubstance", "biolink:Drug"}, Name: "metformin"},
		{ID: "MONDO:0005148", Categories: []string{"biolink:Disease"}, Attributes: map[string]string{"origin": "mondo"}},
		{ID: "HP:0001", Categories: []string{"biolink:PhenotypicFeature"}},
	}))
	require.NoError(t, g.PutEdges(ctx, []*store.Edge{
		{ID: "0", Subject: "CHEBI:6801", Object: "MONDO:0005148", Predicates: []string{"biolink:treats"}},
		{ID: "1", Subject: "MONDO:0005148", Object: "HP:0001", Predicates: []string{"biolink:has_phenotype"}, Attributes: map[string]string{"origin": "hpo"}},
		{ID: "2", Subject: "CHEBI:6801", Object: "HP:0001", Predicates: []string{"biolink:causes", "biolink:related_to"}},
	}))
	return g
}

func edgeIDs(edges []*store.Edge) []string {
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.ID)
	}
	return ids
}
