// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package engine

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/sigil-dev/simplekp/internal/qgraph"
	"github.com/sigil-dev/simplekp/internal/store"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
	"github.com/sigil-dev/simplekp/pkg/trapi"
)

const (
	catalogOperations = "operations"
	catalogPrefixes   = "prefixes"
)

// Operations lists every distinct (source category, directed predicate,
// target category) triple the stored graph can answer under the provider's
// traversal options. The list is sorted.
func (p *Provider) Operations(ctx context.Context) ([]trapi.Operation, error) {
	v, err := p.shared(ctx, catalogOperations, func(ctx context.Context) (any, error) {
		return p.buildOperations(ctx)
	})
	if err != nil {
		return nil, err
	}
	ops, ok := v.([]trapi.Operation)
	if !ok {
		return nil, sigilerr.Errorf(sigilerr.CodeEngineMatchFailure, "unexpected type from catalog group: %T", v)
	}
	return slices.Clone(ops), nil
}

// shared runs build once for all concurrent callers of key. The build is
// detached from any one caller's cancellation; each caller stops waiting
// when its own ctx is done.
func (p *Provider) shared(ctx context.Context, key string, build func(context.Context) (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	detached := context.WithoutCancel(ctx)
	ch := p.catalog.DoChan(key, func() (any, error) {
		catalogBuilds.WithLabelValues(key).Inc()
		return build(detached)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.Val, r.Err
	}
}

func (p *Provider) buildOperations(ctx context.Context) ([]trapi.Operation, error) {
	nodes, err := p.nodeIndex(ctx)
	if err != nil {
		return nil, err
	}
	edges, err := p.store.AllEdges(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[trapi.Operation]struct{})
	for _, e := range edges {
		src, ok := nodes[e.Subject]
		if !ok {
			continue
		}
		tgt, ok := nodes[e.Object]
		if !ok {
			continue
		}
		for _, pred := range e.Predicates {
			for _, sc := range src.Categories {
				for _, tc := range tgt.Categories {
					if p.opts.AllowForward {
						seen[trapi.Operation{SourceType: sc, EdgeType: qgraph.WrapForward(pred), TargetType: tc}] = struct{}{}
					}
					if p.opts.AllowReverse {
						seen[trapi.Operation{SourceType: tc, EdgeType: qgraph.WrapReverse(pred), TargetType: sc}] = struct{}{}
					}
				}
			}
		}
	}

	ops := make([]trapi.Operation, 0, len(seen))
	for op := range seen {
		ops = append(ops, op)
	}
	slices.SortFunc(ops, func(a, b trapi.Operation) int {
		return cmp.Or(
			cmp.Compare(a.SourceType, b.SourceType),
			cmp.Compare(a.EdgeType, b.EdgeType),
			cmp.Compare(a.TargetType, b.TargetType),
		)
	})
	return ops, nil
}

func (p *Provider) nodeIndex(ctx context.Context) (map[string]*store.Node, error) {
	nodes, err := p.store.AllNodes(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]*store.Node, len(nodes))
	for _, n := range nodes {
		index[n.ID] = n
	}
	return index, nil
}

// CuriePrefixes maps every stored category to the sorted set of identifier
// prefixes of the nodes carrying it.
func (p *Provider) CuriePrefixes(ctx context.Context) (map[string][]string, error) {
	v, err := p.shared(ctx, catalogPrefixes, func(ctx context.Context) (any, error) {
		return p.buildPrefixes(ctx)
	})
	if err != nil {
		return nil, err
	}
	prefixes, ok := v.(map[string][]string)
	if !ok {
		return nil, sigilerr.Errorf(sigilerr.CodeEngineMatchFailure, "unexpected type from catalog group: %T", v)
	}
	return clonePrefixes(prefixes), nil
}

func (p *Provider) buildPrefixes(ctx context.Context) (map[string][]string, error) {
	nodes, err := p.store.AllNodes(ctx)
	if err != nil {
		return nil, err
	}

	sets := make(map[string]map[string]struct{})
	for _, n := range nodes {
		prefix, _, _ := strings.Cut(n.ID, ":")
		for _, c := range n.Categories {
			if sets[c] == nil {
				sets[c] = make(map[string]struct{})
			}
			sets[c][prefix] = struct{}{}
		}
	}

	out := make(map[string][]string, len(sets))
	for c, set := range sets {
		out[c] = slices.Sorted(maps.Keys(set))
	}
	return out, nil
}

// Metadata describes the provider's identifier conventions: the configured
// preferred prefixes when set, otherwise those derived from the store.
func (p *Provider) Metadata(ctx context.Context) (trapi.Metadata, error) {
	if len(p.opts.CuriePrefixes) > 0 {
		return trapi.Metadata{CuriePrefixes: clonePrefixes(p.opts.CuriePrefixes)}, nil
	}
	prefixes, err := p.CuriePrefixes(ctx)
	if err != nil {
		return trapi.Metadata{}, err
	}
	return trapi.Metadata{CuriePrefixes: prefixes}, nil
}

func clonePrefixes(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = slices.Clone(v)
	}
	return out
}
