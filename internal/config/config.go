// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/sigil-dev/simplekp/internal/engine"
	"github.com/sigil-dev/simplekp/internal/store"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

// Config is the top-level knowledge-provider configuration.
type Config struct {
	Networking NetworkingConfig `mapstructure:"networking"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Traversal  TraversalConfig  `mapstructure:"traversal"`
	Metadata   MetadataConfig   `mapstructure:"metadata"`
}

// NetworkingConfig controls where the HTTP surface listens.
type NetworkingConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// StorageConfig selects the graph store backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// TraversalConfig controls which stored edge directions the matcher may walk.
type TraversalConfig struct {
	AllowForward      bool `mapstructure:"allow_forward"`
	AllowReverse      bool `mapstructure:"allow_reverse"`
	AnchorConcurrency int  `mapstructure:"anchor_concurrency"`
}

// MetadataConfig describes the provider in /metadata.
type MetadataConfig struct {
	Name string `mapstructure:"name"`
	// CuriePrefixes lists preferred identifier prefixes per category. Empty
	// means derive them from the stored nodes. It is a list rather than a map
	// because viper lower-cases map keys and categories are case-sensitive.
	CuriePrefixes []CuriePrefixConfig `mapstructure:"curie_prefixes"`
}

// CuriePrefixConfig is one category's preferred prefixes.
type CuriePrefixConfig struct {
	Category string   `mapstructure:"category"`
	Prefixes []string `mapstructure:"prefixes"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("networking.listen", "127.0.0.1:18790")
	v.SetDefault("networking.cors_origins", []string{})
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "./kp.db")
	v.SetDefault("traversal.allow_forward", true)
	v.SetDefault("traversal.allow_reverse", true)
	v.SetDefault("traversal.anchor_concurrency", 4)
	v.SetDefault("metadata.name", "simple-kp")
}

// SetupEnv binds SIMPLEKP_-prefixed environment variables, with "." in keys
// replaced by "_" (SIMPLEKP_STORAGE_PATH overrides storage.path).
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix("SIMPLEKP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix SIMPLEKP_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper unmarshals and validates the settings resolved by v, which the
// caller has already populated with defaults, environment, file and flags.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, sigilerr.Errorf(sigilerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if err := sigilerr.Join(sigilerr.CodeConfigValidateInvalidValue, "validating config", cfg.Validate()...); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateTraversal()...)
	errs = append(errs, c.validateMetadata()...)

	return errs
}

func (c *Config) validateNetworking() []error {
	var errs []error

	if c.Networking.Listen == "" {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue, "config: networking.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Networking.Listen)
	if err != nil {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: networking.listen must be a valid host:port address, got %q: %w",
			c.Networking.Listen, err,
		))
		return errs
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: networking.listen port must be a number, got %q",
			portStr,
		))
	} else if port < 1 || port > 65535 {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: networking.listen port must be between 1 and 65535, got %d",
			port,
		))
	}

	for i, origin := range c.Networking.CORSOrigins {
		if strings.TrimSpace(origin) == "" {
			errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
				"config: networking.cors_origins[%d] must not be empty", i,
			))
		}
	}

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [sqlite, memory], got %q",
			c.Storage.Backend,
		))
	}

	if c.Storage.Backend == "sqlite" && c.Storage.Path == "" {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: storage.path is required for the sqlite backend",
		))
	}

	return errs
}

func (c *Config) validateTraversal() []error {
	var errs []error

	if !c.Traversal.AllowForward && !c.Traversal.AllowReverse {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: traversal must allow at least one of allow_forward, allow_reverse",
		))
	}

	if c.Traversal.AnchorConcurrency < 1 {
		errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
			"config: traversal.anchor_concurrency must be at least 1, got %d",
			c.Traversal.AnchorConcurrency,
		))
	}

	return errs
}

func (c *Config) validateMetadata() []error {
	var errs []error

	seen := make(map[string]bool, len(c.Metadata.CuriePrefixes))
	for i, entry := range c.Metadata.CuriePrefixes {
		if entry.Category == "" {
			errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
				"config: metadata.curie_prefixes[%d].category must not be empty", i,
			))
		} else if seen[entry.Category] {
			errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
				"config: metadata.curie_prefixes lists category %q twice", entry.Category,
			))
		}
		seen[entry.Category] = true

		for _, prefix := range entry.Prefixes {
			if prefix == "" || strings.Contains(prefix, ":") {
				errs = append(errs, sigilerr.Errorf(sigilerr.CodeConfigValidateInvalidValue,
					"config: metadata.curie_prefixes[%d] has invalid prefix %q",
					i, prefix,
				))
			}
		}
	}

	return errs
}

// StoreConfig converts the storage section for the store factory.
func (c *Config) StoreConfig() *store.StorageConfig {
	return &store.StorageConfig{
		Backend: c.Storage.Backend,
		Path:    c.Storage.Path,
	}
}

// EngineOptions converts the traversal and metadata sections for the engine.
func (c *Config) EngineOptions() engine.Options {
	opts := engine.Options{
		AllowForward:      c.Traversal.AllowForward,
		AllowReverse:      c.Traversal.AllowReverse,
		AnchorConcurrency: c.Traversal.AnchorConcurrency,
	}
	if len(c.Metadata.CuriePrefixes) > 0 {
		opts.CuriePrefixes = make(map[string][]string, len(c.Metadata.CuriePrefixes))
		for _, entry := range c.Metadata.CuriePrefixes {
			opts.CuriePrefixes[entry.Category] = append(opts.CuriePrefixes[entry.Category], entry.Prefixes...)
		}
	}
	return opts
}
