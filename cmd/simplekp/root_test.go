// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
	"github.com/sigil-dev/simplekp/pkg/trapi"
)

const fixture = `
CHEBI:6801(( category biolink:Drug ))
MONDO:0005148(( category biolink:Disease ))
CHEBI:6801-- predicate biolink:treats -->MONDO:0005148
`

const treatsQuery = `{"message": {"query_graph": {
	"nodes": {"n0": {"id": "CHEBI:6801"}, "n1": {"category": "biolink:Disease"}},
	"edges": {"e01": {"subject": "n0", "object": "n1", "predicate": "biolink:treats"}}
}}}`

// execute runs the CLI with args and an isolated home directory.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	root := NewRootCmd()
	out := new(bytes.Buffer)
	root.SetOut(out)
	root.SetErr(new(bytes.Buffer))
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// loadedDB builds a database from fixture and returns its path.
func loadedDB(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	db := filepath.Join(dir, "kp.db")
	out, err := execute(t, "", "load", db, "--dsl", writeFile(t, dir, "fixture.txt", fixture))
	require.NoError(t, err)
	assert.Contains(t, out, "loaded 2 nodes and 1 edges")
	return db
}

func TestRootCommand_Help(t *testing.T) {
	out, err := execute(t, "", "--help")
	require.NoError(t, err)
	for _, sub := range []string{"serve", "load", "query", "ops", "prefixes", "status", "init", "version"} {
		assert.Contains(t, out, sub)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "simplekp dev")
}

func TestServeCommand_BadConfigFile(t *testing.T) {
	_, err := execute(t, "", "serve", "--config", "/nonexistent/path.yaml")
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeConfigLoadReadFailure))
}

func TestServeCommand_InvalidListen(t *testing.T) {
	_, err := execute(t, "", "serve", "--backend", "memory", "--listen", "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "networking.listen")
}

func TestInitCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "conf", "simplekp.yaml")

	out, err := execute(t, "", "init", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote default config")
	assert.FileExists(t, cfgPath)

	out, err = execute(t, "", "init", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestLoadAndQuery(t *testing.T) {
	db := loadedDB(t)
	queryPath := writeFile(t, t.TempDir(), "q.json", treatsQuery)

	out, err := execute(t, "", "query", queryPath, "--db", db)
	require.NoError(t, err)

	var resp trapi.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Message.Results, 1)
	assert.Equal(t, []trapi.Binding{{ID: "0"}}, resp.Message.Results[0].EdgeBindings["e01"])
	assert.Contains(t, resp.Message.KnowledgeGraph.Nodes, "MONDO:0005148")
}

func TestQuery_FromStdin(t *testing.T) {
	db := loadedDB(t)

	out, err := execute(t, treatsQuery, "query", "-", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, `"CHEBI:6801"`)
}

func TestQuery_Errors(t *testing.T) {
	db := loadedDB(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		code sigilerr.Code
	}{
		{"missing database", []string{"query", writeFile(t, dir, "ok.json", treatsQuery), "--db", filepath.Join(dir, "none.db")}, sigilerr.CodeCLIInputInvalid},
		{"malformed query", []string{"query", writeFile(t, dir, "bad.json", "{"), "--db", db}, sigilerr.CodeCLIInputInvalid},
		{"no query graph", []string{"query", writeFile(t, dir, "empty.json", `{"message": {}}`), "--db", db}, sigilerr.CodeCLIInputInvalid},
		{"unanchored", []string{"query", writeFile(t, dir, "unanchored.json",
			`{"message": {"query_graph": {"nodes": {"a": {}}, "edges": {}}}}`), "--db", db}, sigilerr.CodeQueryGraphAnchorInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.True(t, sigilerr.HasCode(err, tt.code), "got %s", sigilerr.CodeOf(err))
		})
	}
}

func TestOpsCommand(t *testing.T) {
	db := loadedDB(t)

	out, err := execute(t, "", "ops", "--db", db)
	require.NoError(t, err)

	var ops []trapi.Operation
	require.NoError(t, json.Unmarshal([]byte(out), &ops))
	assert.Contains(t, ops, trapi.Operation{SourceType: "biolink:Drug", EdgeType: "-biolink:treats->", TargetType: "biolink:Disease"})
}

func TestDBFlag_EachCommandUsesItsOwn(t *testing.T) {
	db := loadedDB(t)
	queryPath := writeFile(t, t.TempDir(), "q.json", treatsQuery)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"query", []string{"query", queryPath, "--db", db}, `"MONDO:0005148"`},
		{"ops", []string{"ops", "--db", db}, "-biolink:treats->"},
		{"prefixes", []string{"prefixes", "--db", db}, `"CHEBI"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			out, err := execute(t, "", tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestServeCommand_DBFlag(t *testing.T) {
	t.Chdir(t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "missing", "kp.db")

	_, err := execute(t, "", "serve", "--listen", "127.0.0.1:18799", "--db", dbPath)
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeStoreDatabaseFailure), "got %s", sigilerr.CodeOf(err))
	assert.Equal(t, dbPath, sigilerr.FieldsOf(err)["path"])
}

func TestOpsCommand_ForwardOnlyFromEnv(t *testing.T) {
	db := loadedDB(t)
	t.Setenv("SIMPLEKP_TRAVERSAL_ALLOW_REVERSE", "false")

	out, err := execute(t, "", "ops", "--db", db)
	require.NoError(t, err)

	var ops []trapi.Operation
	require.NoError(t, json.Unmarshal([]byte(out), &ops))
	require.Len(t, ops, 1)
	assert.Equal(t, "-biolink:treats->", ops[0].EdgeType)
}

func TestPrefixesCommand(t *testing.T) {
	db := loadedDB(t)

	out, err := execute(t, "", "prefixes", "--db", db)
	require.NoError(t, err)

	var md trapi.Metadata
	require.NoError(t, json.Unmarshal([]byte(out), &md))
	assert.Equal(t, []string{"MONDO"}, md.CuriePrefixes["biolink:Disease"])
}

func TestLoad_RefusesExistingDatabase(t *testing.T) {
	db := loadedDB(t)
	dsl := writeFile(t, t.TempDir(), "fixture.txt", fixture)

	_, err := execute(t, "", "load", db, "--dsl", dsl)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	out, err := execute(t, "", "load", db, "--dsl", dsl, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "loaded 2 nodes")
}

func TestLoad_CSVWithSynonyms(t *testing.T) {
	dir := t.TempDir()
	nodes := writeFile(t, dir, "nodes.csv", "id,category\nDOID:9352,biolink:Disease\nCHEBI:6801,biolink:Drug\n")
	edges := writeFile(t, dir, "edges.csv", "subject,predicate,object\nCHEBI:6801,biolink:treats,DOID:9352\n")
	synonyms := writeFile(t, dir, "synonyms.csv", "DOID:9352,MONDO:0005148\n")
	db := filepath.Join(dir, "kp.db")

	_, err := execute(t, "", "load", db, "--nodes", nodes, "--edges", edges,
		"--synonyms", synonyms, "--prefer", "biolink:Disease=MONDO")
	require.NoError(t, err)

	out, err := execute(t, "", "prefixes", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, `"MONDO"`)
	assert.NotContains(t, out, `"DOID"`)
}

func TestParsePreferences(t *testing.T) {
	got, err := parsePreferences([]string{"biolink:Disease=MONDO, DOID", "biolink:Gene=NCBIGene"})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"biolink:Disease": {"MONDO", "DOID"},
		"biolink:Gene":    {"NCBIGene"},
	}, got)

	for _, bad := range []string{"biolink:Disease", "=MONDO", "biolink:Disease="} {
		_, err := parsePreferences([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestStatusCommand(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "name": "simple-kp", "version": "1.2.3"})
	}))
	defer ts.Close()

	out, err := execute(t, "", "status", "--address", strings.TrimPrefix(ts.URL, "http://"))
	require.NoError(t, err)
	assert.Contains(t, out, "simple-kp 1.2.3")
	assert.Contains(t, out, ": ok")
}

func TestStatusCommand_NotRunning(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(ts.URL, "http://")
	ts.Close()

	out, err := execute(t, "", "status", "--address", addr)
	require.NoError(t, err)
	assert.Contains(t, out, "not running")
}
