// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	_ "embed"
	"log/slog"
	"os"
	"path/filepath"

	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

//go:embed simplekp.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/simplekp/simplekp.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "simplekp", "simplekp.yaml"), nil
}

// ResolvePath returns explicit when set, otherwise the default config path
// if a file exists there, otherwise "" (defaults and environment only).
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		slog.Debug("no default config path", "error", err)
		return ""
	}
	if _, err := os.Stat(cfgPath); err != nil {
		return ""
	}
	return cfgPath
}

// WriteDefault writes the commented default config to path. An existing file
// is left alone unless force is set; the returned bool reports whether
// anything was written.
func WriteDefault(path string, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return false, sigilerr.Wrap(err, sigilerr.CodeConfigLoadReadFailure, "creating config directory", sigilerr.FieldPath(dir))
	}

	if err := os.WriteFile(path, DefaultConfigYAML, 0o600); err != nil {
		return false, sigilerr.Wrap(err, sigilerr.CodeConfigLoadReadFailure, "writing default config", sigilerr.FieldPath(path))
	}

	slog.Info("created default config", "path", path)
	return true, nil
}
