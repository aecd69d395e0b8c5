// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package qgraph_test

import (
	"testing"

	"github.com/sigil-dev/simplekp/internal/qgraph"
	"github.com/stretchr/testify/assert"
)

func TestIsCyclic(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{
			name: "single edge",
			raw:  treatsQuery,
			want: false,
		},
		{
			name: "path of three",
			raw: `{"nodes": {"a": {}, "b": {}, "c": {}},
				"edges": {"ab": {"subject": "a", "object": "b"}, "cb": {"subject": "c", "object": "b"}}}`,
			want: false,
		},
		{
			name: "star",
			raw: `{"nodes": {"hub": {}, "a": {}, "b": {}, "c": {}},
				"edges": {"1": {"subject": "hub", "object": "a"}, "2": {"subject": "b", "object": "hub"}, "3": {"subject": "hub", "object": "c"}}}`,
			want: false,
		},
		{
			name: "parallel edges are not a cycle",
			raw: `{"nodes": {"a": {}, "b": {}},
				"edges": {"x": {"subject": "a", "object": "b"}, "y": {"subject": "b", "object": "a"}, "z": {"subject": "a", "object": "b"}}}`,
			want: false,
		},
		{
			name: "triangle",
			raw: `{"nodes": {"a": {}, "b": {}, "c": {}},
				"edges": {"ab": {"subject": "a", "object": "b"}, "bc": {"subject": "b", "object": "c"}, "ca": {"subject": "c", "object": "a"}}}`,
			want: true,
		},
		{
			name: "square",
			raw: `{"nodes": {"a": {}, "b": {}, "c": {}, "d": {}},
				"edges": {"1": {"subject": "a", "object": "b"}, "2": {"subject": "b", "object": "c"}, "3": {"subject": "c", "object": "d"}, "4": {"subject": "d", "object": "a"}}}`,
			want: true,
		},
		{
			name: "self loop",
			raw:  `{"nodes": {"a": {}}, "edges": {"aa": {"subject": "a", "object": "a"}}}`,
			want: true,
		},
		{
			name: "no edges",
			raw:  `{"nodes": {"a": {}, "b": {}}, "edges": {}}`,
			want: false,
		},
		{
			name: "cycle in second component",
			raw: `{"nodes": {"a": {}, "b": {}, "x": {}, "y": {}, "z": {}},
				"edges": {"ab": {"subject": "a", "object": "b"}, "xy": {"subject": "x", "object": "y"}, "yz": {"subject": "y", "object": "z"}, "zx": {"subject": "z", "object": "x"}}}`,
			want: true,
		},
		{
			name: "two acyclic components",
			raw: `{"nodes": {"a": {}, "b": {}, "x": {}, "y": {}},
				"edges": {"ab": {"subject": "a", "object": "b"}, "xy": {"subject": "x", "object": "y"}}}`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, qgraph.IsCyclic(mustQueryGraph(t, tt.raw)))
		})
	}
}

func TestComponents(t *testing.T) {
	q := mustQueryGraph(t, `{"nodes": {"a": {}, "b": {}, "c": {}, "d": {}, "e": {}},
		"edges": {"ab": {"subject": "b", "object": "a"}, "dc": {"subject": "d", "object": "c"}}}`)

	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, qgraph.Components(q))
}
