// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package sqlite

import (
	"github.com/sigil-dev/simplekp/internal/store"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

func init() {
	store.RegisterBackend("sqlite", newGraphStore)
}

func newGraphStore(cfg *store.StorageConfig) (store.LoadableStore, error) {
	if cfg.Path == "" {
		return nil, sigilerr.New(sigilerr.CodeStoreInvalidInput, "sqlite backend requires a database path")
	}
	return Open(cfg.Path)
}
