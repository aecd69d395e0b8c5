// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigil-dev/simplekp/internal/config"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "simplekp.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
	return cfgPath
}

func validConfig() *config.Config {
	return &config.Config{
		Networking: config.NetworkingConfig{Listen: "127.0.0.1:18790"},
		Storage:    config.StorageConfig{Backend: "sqlite", Path: "kp.db"},
		Traversal: config.TraversalConfig{
			AllowForward:      true,
			AllowReverse:      true,
			AnchorConcurrency: 4,
		},
		Metadata: config.MetadataConfig{Name: "simple-kp"},
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:18790", cfg.Networking.Listen)
	assert.Empty(t, cfg.Networking.CORSOrigins)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "./kp.db", cfg.Storage.Path)
	assert.True(t, cfg.Traversal.AllowForward)
	assert.True(t, cfg.Traversal.AllowReverse)
	assert.Equal(t, 4, cfg.Traversal.AnchorConcurrency)
	assert.Equal(t, "simple-kp", cfg.Metadata.Name)
}

func TestLoad_FromFile(t *testing.T) {
	cfgPath := writeConfig(t, `
networking:
  listen: "0.0.0.0:9999"
  cors_origins: ["http://localhost:3000"]
storage:
  backend: memory
traversal:
  allow_reverse: false
metadata:
  curie_prefixes:
    - category: biolink:Disease
      prefixes: [MONDO, DOID]
`)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", cfg.Networking.Listen)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Networking.CORSOrigins)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.True(t, cfg.Traversal.AllowForward)
	assert.False(t, cfg.Traversal.AllowReverse)
	require.Len(t, cfg.Metadata.CuriePrefixes, 1)
	assert.Equal(t, "biolink:Disease", cfg.Metadata.CuriePrefixes[0].Category)
	assert.Equal(t, []string{"MONDO", "DOID"}, cfg.Metadata.CuriePrefixes[0].Prefixes)
}

func TestLoad_EmbeddedDefaultIsValid(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, string(config.DefaultConfigYAML)))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:18790", cfg.Networking.Listen)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SIMPLEKP_NETWORKING_LISTEN", "10.0.0.1:8080")
	t.Setenv("SIMPLEKP_STORAGE_PATH", "/var/lib/kp.db")
	t.Setenv("SIMPLEKP_TRAVERSAL_ALLOW_REVERSE", "false")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:8080", cfg.Networking.Listen)
	assert.Equal(t, "/var/lib/kp.db", cfg.Storage.Path)
	assert.False(t, cfg.Traversal.AllowReverse)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, sigilerr.HasCode(err, sigilerr.CodeConfigLoadReadFailure))
}

func TestLoad_InvalidConfigFailsFast(t *testing.T) {
	cfgPath := writeConfig(t, `
networking:
  listen: "not-valid"
storage:
  backend: "postgres"
`)

	_, err := config.Load(cfgPath)
	require.Error(t, err, "Load should fail with invalid config")
	assert.Contains(t, err.Error(), "validating config")
	assert.Contains(t, err.Error(), "networking.listen")
	assert.Contains(t, err.Error(), "storage.backend")
	assert.True(t, sigilerr.IsInvalidInput(err))
}

func TestValidate_ValidConfig(t *testing.T) {
	errs := validConfig().Validate()
	assert.Empty(t, errs, "valid config should produce no validation errors")
}

func TestValidate_NetworkingListen(t *testing.T) {
	tests := []struct {
		name    string
		listen  string
		wantErr bool
	}{
		{"valid address", "127.0.0.1:8080", false},
		{"valid all interfaces", "0.0.0.0:9999", false},
		{"valid empty host", ":18790", false},
		{"valid ipv6", "[::1]:8080", false},
		{"empty listen", "", true},
		{"missing port", "127.0.0.1", true},
		{"invalid port zero", "127.0.0.1:0", true},
		{"port too high", "127.0.0.1:70000", true},
		{"not a number", "127.0.0.1:abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Networking.Listen = tt.listen
			errs := cfg.Validate()
			if tt.wantErr {
				require.NotEmpty(t, errs)
				assert.Contains(t, errs[0].Error(), "networking.listen")
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidate_CORSOrigins(t *testing.T) {
	cfg := validConfig()
	cfg.Networking.CORSOrigins = []string{"https://example.org", " "}
	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "cors_origins[1]")
}

func TestValidate_Storage(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		path    string
		wantErr string
	}{
		{"sqlite with path", "sqlite", "kp.db", ""},
		{"memory without path", "memory", "", ""},
		{"sqlite without path", "sqlite", "", "storage.path"},
		{"unknown backend", "postgres", "kp.db", "storage.backend"},
		{"empty backend", "", "kp.db", "storage.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Storage = config.StorageConfig{Backend: tt.backend, Path: tt.path}
			errs := cfg.Validate()
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[0].Error(), tt.wantErr)
		})
	}
}

func TestValidate_Traversal(t *testing.T) {
	tests := []struct {
		name        string
		forward     bool
		reverse     bool
		concurrency int
		wantErr     string
	}{
		{"both directions", true, true, 4, ""},
		{"forward only", true, false, 1, ""},
		{"reverse only", false, true, 1, ""},
		{"no direction", false, false, 4, "allow_forward"},
		{"zero concurrency", true, true, 0, "anchor_concurrency"},
		{"negative concurrency", true, true, -2, "anchor_concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Traversal = config.TraversalConfig{
				AllowForward:      tt.forward,
				AllowReverse:      tt.reverse,
				AnchorConcurrency: tt.concurrency,
			}
			errs := cfg.Validate()
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[0].Error(), tt.wantErr)
		})
	}
}

func TestValidate_CuriePrefixes(t *testing.T) {
	tests := []struct {
		name    string
		entries []config.CuriePrefixConfig
		wantErr string
	}{
		{"valid", []config.CuriePrefixConfig{{Category: "biolink:Disease", Prefixes: []string{"MONDO"}}}, ""},
		{"missing category", []config.CuriePrefixConfig{{Prefixes: []string{"MONDO"}}}, "category must not be empty"},
		{"duplicate category", []config.CuriePrefixConfig{
			{Category: "biolink:Disease", Prefixes: []string{"MONDO"}},
			{Category: "biolink:Disease", Prefixes: []string{"DOID"}},
		}, "twice"},
		{"prefix with colon", []config.CuriePrefixConfig{{Category: "biolink:Gene", Prefixes: []string{"NCBIGene:"}}}, "invalid prefix"},
		{"empty prefix", []config.CuriePrefixConfig{{Category: "biolink:Gene", Prefixes: []string{""}}}, "invalid prefix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Metadata.CuriePrefixes = tt.entries
			errs := cfg.Validate()
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[0].Error(), tt.wantErr)
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &config.Config{
		Networking: config.NetworkingConfig{Listen: ""},
		Storage:    config.StorageConfig{Backend: "postgres"},
		Traversal:  config.TraversalConfig{AnchorConcurrency: 0},
		Metadata: config.MetadataConfig{
			CuriePrefixes: []config.CuriePrefixConfig{{Category: ""}},
		},
	}

	errs := cfg.Validate()
	// Should collect multiple errors, not stop at the first one
	assert.GreaterOrEqual(t, len(errs), 5, "expected at least 5 validation errors, got %d: %v", len(errs), errs)
}

func TestConfig_StoreConfig(t *testing.T) {
	cfg := validConfig()
	sc := cfg.StoreConfig()
	assert.Equal(t, "sqlite", sc.Backend)
	assert.Equal(t, "kp.db", sc.Path)
}

func TestConfig_EngineOptions(t *testing.T) {
	cfg := validConfig()
	cfg.Traversal.AllowReverse = false
	cfg.Traversal.AnchorConcurrency = 2

	opts := cfg.EngineOptions()
	assert.True(t, opts.AllowForward)
	assert.False(t, opts.AllowReverse)
	assert.Equal(t, 2, opts.AnchorConcurrency)
	assert.Nil(t, opts.CuriePrefixes)

	cfg.Metadata.CuriePrefixes = []config.CuriePrefixConfig{
		{Category: "biolink:Disease", Prefixes: []string{"MONDO", "DOID"}},
		{Category: "biolink:Gene", Prefixes: []string{"NCBIGene"}},
	}
	opts = cfg.EngineOptions()
	assert.Equal(t, map[string][]string{
		"biolink:Disease": {"MONDO", "DOID"},
		"biolink:Gene":    {"NCBIGene"},
	}, opts.CuriePrefixes)
}

func TestWriteDefault(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nested", "simplekp.yaml")

	written, err := config.WriteDefault(cfgPath, false)
	require.NoError(t, err)
	assert.True(t, written)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfigYAML, data)

	require.NoError(t, os.WriteFile(cfgPath, []byte("storage:\n  backend: memory\n"), 0o600))
	written, err = config.WriteDefault(cfgPath, false)
	require.NoError(t, err)
	assert.False(t, written, "existing file must not be overwritten")

	written, err = config.WriteDefault(cfgPath, true)
	require.NoError(t, err)
	assert.True(t, written)
}

func TestResolvePath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	assert.Equal(t, "explicit.yaml", config.ResolvePath("explicit.yaml"))
	assert.Empty(t, config.ResolvePath(""), "no default file yet")

	def, err := config.DefaultConfigPath()
	require.NoError(t, err)
	_, err = config.WriteDefault(def, false)
	require.NoError(t, err)
	assert.Equal(t, def, config.ResolvePath(""))
}
