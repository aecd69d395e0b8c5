// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/simplekp/internal/config"
	"github.com/sigil-dev/simplekp/internal/engine"
	"github.com/sigil-dev/simplekp/internal/loader"
	"github.com/sigil-dev/simplekp/internal/server"
	"github.com/sigil-dev/simplekp/internal/store"
	_ "github.com/sigil-dev/simplekp/internal/store/sqlite" // register sqlite backend
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the knowledge provider over HTTP",
		Long: "Load configuration, open the graph store and serve /query, /ops, /metadata, " +
			"/health and /metrics until interrupted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, v)
		},
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")
	cmd.Flags().String("db", "", "override storage.path")
	cmd.Flags().String("backend", "", "override storage.backend (sqlite, memory)")
	cmd.Flags().String("dsl", "", "text fixture to load into the store before serving")
	cmd.Flags().String("yaml", "", "YAML fixture to load into the store before serving")
	bindFlag(cmd, "networking.listen", "listen")
	bindFlag(cmd, "storage.path", "db")
	bindFlag(cmd, "storage.backend", "backend")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	config.WarnWritablePermissions(v.ConfigFileUsed())

	gs, err := store.OpenGraphStore(cfg.StoreConfig())
	if err != nil {
		return err
	}
	defer func() { _ = gs.Close() }()

	dsl, _ := cmd.Flags().GetString("dsl")
	yamlPath, _ := cmd.Flags().GetString("yaml")
	if dsl != "" || yamlPath != "" {
		g, err := loader.Build(loader.Options{DSL: dsl, YAML: yamlPath})
		if err != nil {
			return err
		}
		if err := loader.Load(ctx, gs, g); err != nil {
			return err
		}
	}

	logger := slog.Default().With("component", "engine")
	opts := cfg.EngineOptions()
	opts.Logger = logger
	provider := engine.New(gs, opts)

	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
		Name:        cfg.Metadata.Name,
		Version:     version,
		Logger:      slog.Default().With("component", "server"),
	}, provider)
	if err != nil {
		return sigilerr.Wrap(err, sigilerr.CodeCLISetupFailure, "creating server")
	}

	slog.Info("starting simplekp",
		"listen", cfg.Networking.Listen,
		"backend", cfg.Storage.Backend,
		"path", cfg.Storage.Path,
		"allow_forward", opts.AllowForward,
		"allow_reverse", opts.AllowReverse,
	)
	return srv.Start(ctx)
}
