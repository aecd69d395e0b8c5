// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

// Package engine matches query graphs against a graph store and derives the
// provider's capability catalog from the stored data.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/sigil-dev/simplekp/internal/qgraph"
	"github.com/sigil-dev/simplekp/internal/store"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
	"github.com/sigil-dev/simplekp/pkg/trapi"
)

// Options configures a Provider.
type Options struct {
	// AllowForward permits walking stored edges from subject to object.
	AllowForward bool
	// AllowReverse permits walking stored edges from object to subject.
	AllowReverse bool
	// AnchorConcurrency bounds how many anchor ids are expanded at once.
	// Values below 1 mean 1.
	AnchorConcurrency int
	// CuriePrefixes, when non-empty, is advertised by Metadata instead of
	// the prefixes derived from the store.
	CuriePrefixes map[string][]string
	Logger        *slog.Logger
}

// DefaultOptions enables both traversal directions.
func DefaultOptions() Options {
	return Options{
		AllowForward:      true,
		AllowReverse:      true,
		AnchorConcurrency: 4,
	}
}

// Provider answers query graphs from a read-only graph store. It holds no
// mutable state besides the singleflight group and is safe for concurrent use.
type Provider struct {
	store   store.GraphStore
	opts    Options
	logger  *slog.Logger
	catalog singleflight.Group
}

// New returns a Provider reading from gs. The store is borrowed: the
// provider never closes it.
func New(gs store.GraphStore, opts Options) *Provider {
	if opts.AnchorConcurrency < 1 {
		opts.AnchorConcurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{store: gs, opts: opts, logger: logger}
}

// Options returns the provider's effective options.
func (p *Provider) Options() Options {
	return p.opts
}

// GetResults computes every embedding of q into the store. It returns the
// knowledge subgraph referenced by the results and one result per
// embedding. A query with no embeddings yields an empty, non-nil result list.
//
// Invalid query graphs (dangling references, cycles, no anchor, more than one
// component) are rejected before the store is touched. The caller's graph is
// never modified.
func (p *Provider) GetResults(ctx context.Context, q trapi.QueryGraph) (*trapi.KnowledgeGraph, []trapi.Result, error) {
	start := time.Now()
	logger := p.logger.With("request_id", uuid.NewString())

	kg, results, err := p.getResults(ctx, logger, q)

	queryDuration.Observe(time.Since(start).Seconds())
	switch {
	case err != nil && sigilerr.IsInvalidInput(err):
		queriesTotal.WithLabelValues(outcomeInvalid).Inc()
		logger.Debug("rejected query graph", "error", err)
	case err != nil:
		queriesTotal.WithLabelValues(outcomeError).Inc()
		logger.Warn("query failed", "error", err)
	case len(results) == 0:
		queriesTotal.WithLabelValues(outcomeEmpty).Inc()
	default:
		queriesTotal.WithLabelValues(outcomeOK).Inc()
	}
	if err != nil {
		return nil, nil, err
	}
	resultsPerQuery.Observe(float64(len(results)))
	logger.Debug("query answered",
		"results", len(results),
		"nodes", len(kg.Nodes),
		"edges", len(kg.Edges),
		"elapsed", time.Since(start))
	return kg, results, nil
}

func (p *Provider) getResults(ctx context.Context, logger *slog.Logger, q trapi.QueryGraph) (*trapi.KnowledgeGraph, []trapi.Result, error) {
	if err := qgraph.Validate(q); err != nil {
		return nil, nil, err
	}
	q = qgraph.Normalize(q)

	anchor, _ := qgraph.Anchor(q)
	qnode := q.Nodes[anchor]
	curies := []string(qnode.ID)

	x := &expansion{Provider: p, logger: logger}
	matches := make([]*match, len(curies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.AnchorConcurrency)
	for i, curie := range curies {
		g.Go(func() error {
			m, err := x.expandFromAnchor(gctx, q, anchor, curie)
			if err != nil {
				return err
			}
			matches[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	merged := newMatch()
	for _, m := range matches {
		merged.merge(m)
	}
	return merged.prune(), merged.results, nil
}

// expandFromAnchor looks up one anchor id and expands from it. An id missing
// from the store, or failing its own pattern node, contributes nothing.
func (x *expansion) expandFromAnchor(ctx context.Context, q trapi.QueryGraph, anchor, curie string) (*match, error) {
	knode, err := x.store.GetNode(ctx, curie)
	if err != nil {
		if sigilerr.IsNotFound(err) {
			x.logger.Debug("anchor not in store, skipping", "qnode", anchor, "curie", curie)
			return newMatch(), nil
		}
		return nil, err
	}
	if !qgraph.ValidateNode(q.Nodes[anchor], knode) {
		x.logger.Debug("anchor does not satisfy its qnode", "qnode", anchor, "curie", curie)
		return newMatch(), nil
	}
	return x.expandFromNode(ctx, q, anchor, knode)
}
