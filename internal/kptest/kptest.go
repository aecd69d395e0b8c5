// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package kptest stands up throwaway knowledge providers for tests: a graph
// described in the text fixture format is loaded into an in-memory SQLite
// store and served over httptest.
package kptest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/simplekp/internal/engine"
	"github.com/sigil-dev/simplekp/internal/loader"
	"github.com/sigil-dev/simplekp/internal/server"
	"github.com/sigil-dev/simplekp/internal/store/sqlite"
	"github.com/sigil-dev/simplekp/pkg/trapi"
)

// Option adjusts the engine options of a test provider.
type Option func(*engine.Options)

// ForwardOnly disables reverse traversal.
func ForwardOnly() Option {
	return func(o *engine.Options) { o.AllowReverse = false }
}

// ReverseOnly disables forward traversal.
func ReverseOnly() Option {
	return func(o *engine.Options) { o.AllowForward = false }
}

// WithCuriePrefixes configures advertised prefixes.
func WithCuriePrefixes(prefixes map[string][]string) Option {
	return func(o *engine.Options) { o.CuriePrefixes = prefixes }
}

// NewStore loads dsl into a fresh in-memory SQLite store that is closed when
// the test ends.
func NewStore(t testing.TB, dsl string) *sqlite.GraphStore {
	t.Helper()

	g, err := loader.ParseDSLString(dsl)
	require.NoError(t, err, "parsing fixture")

	gs, err := sqlite.Open(sqlite.MemoryPath)
	require.NoError(t, err, "opening in-memory store")
	t.Cleanup(func() { _ = gs.Close() })

	require.NoError(t, loader.Load(context.Background(), gs, g), "loading fixture")
	return gs
}

// NewProvider returns a provider over NewStore(t, dsl).
func NewProvider(t testing.TB, dsl string, opts ...Option) *engine.Provider {
	t.Helper()
	o := engine.DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return engine.New(NewStore(t, dsl), o)
}

// KP is a running test knowledge provider.
type KP struct {
	*httptest.Server
	Provider *engine.Provider
}

// NewServer serves NewProvider(t, dsl) over HTTP until the test ends.
func NewServer(t testing.TB, dsl string, opts ...Option) *KP {
	t.Helper()
	p := NewProvider(t, dsl, opts...)

	srv, err := server.New(server.Config{ListenAddr: "127.0.0.1:0", Name: "kptest"}, p)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &KP{Server: ts, Provider: p}
}

// Query posts qg to /query and decodes a successful response. Non-200
// statuses fail the test.
func (kp *KP) Query(t testing.TB, qg trapi.QueryGraph) trapi.Response {
	t.Helper()
	status, body := kp.PostQuery(t, qg)
	require.Equal(t, http.StatusOK, status, "query failed: %s", body)

	var resp trapi.Response
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

// PostQuery posts qg to /query and returns the raw status and body.
func (kp *KP) PostQuery(t testing.TB, qg trapi.QueryGraph) (int, []byte) {
	t.Helper()
	payload, err := json.Marshal(trapi.Query{Message: trapi.Message{QueryGraph: &qg}})
	require.NoError(t, err)
	return kp.Post(t, "/query", payload)
}

// Post sends a JSON body to path.
func (kp *KP) Post(t testing.TB, path string, payload []byte) (int, []byte) {
	t.Helper()
	resp, err := kp.Client().Post(kp.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}

// Get fetches path.
func (kp *KP) Get(t testing.TB, path string) (int, []byte) {
	t.Helper()
	resp, err := kp.Client().Get(kp.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, body
}
