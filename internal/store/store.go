// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package store

import "context"

// GraphStore is the read side of the knowledge graph. Implementations must be
// safe for concurrent readers.
type GraphStore interface {
	// GetNode looks a node up by identifier. A missing node yields an error
	// for which sigilerr.IsNotFound reports true.
	GetNode(ctx context.Context, id string) (*Node, error)

	// GetEdges returns every edge satisfying all conditions of q. An empty
	// query is rejected with an invalid-input error.
	GetEdges(ctx context.Context, q EdgeQuery) ([]*Edge, error)

	AllNodes(ctx context.Context) ([]*Node, error)
	AllEdges(ctx context.Context) ([]*Edge, error)

	Close() error
}

// GraphWriter bulk-loads nodes and edges. Loading happens before any reader
// attaches; stored elements are never mutated afterwards.
type GraphWriter interface {
	PutNodes(ctx context.Context, nodes []*Node) error
	PutEdges(ctx context.Context, edges []*Edge) error
}

// LoadableStore is a GraphStore that can also be bulk-loaded.
type LoadableStore interface {
	GraphStore
	GraphWriter
}
