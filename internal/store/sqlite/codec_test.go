// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite_test

import (
	"testing"

	"github.com/sigil-dev/simplekp/internal/store/sqlite"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeList(t *testing.T) {
	got, err := sqlite.EncodeList([]string{"biolink:Disease", "biolink:NamedThing"})
	require.NoError(t, err)
	assert.Equal(t, "|biolink:Disease||biolink:NamedThing|", got)

	empty, err := sqlite.EncodeList(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEncodeList_RejectsDelimiter(t *testing.T) {
	_, err := sqlite.EncodeList([]string{"a|b"})
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeStoreCodecInvalid))
}

func TestDecodeList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "|biolink:Disease|", []string{"biolink:Disease"}},
		{"several keep order", "|b||a||c|", []string{"b", "a", "c"}},
		{"empty token", "||", []string{""}},
		{"empty column", "", []string{}},
		{"text outside tokens ignored", "x|a|y", []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sqlite.DecodeList(tt.in))
		})
	}
}
