// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

//go:build !windows

package config

import (
	"io/fs"
	"log/slog"
	"os"
)

// WarnWritablePermissions logs a warning when the config file can be modified
// by group or other users. Such a user could point storage.path at a database
// of their choosing. Startup is not blocked.
func WarnWritablePermissions(path string) {
	if path == "" {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		slog.Debug("could not stat config file for permission check", "path", path, "error", err)
		return
	}

	const groupWrite fs.FileMode = 0o020
	const otherWrite fs.FileMode = 0o002

	mode := info.Mode()
	if mode.Perm()&(groupWrite|otherWrite) != 0 {
		slog.Warn("config file is writable by other users",
			"path", path,
			"mode", mode,
			"recommended", "0644",
		)
	}
}
