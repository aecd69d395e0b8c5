// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/simplekp/internal/config"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config file",
		Long:  "Write the default configuration to --config, or to ~/.config/simplekp/simplekp.yaml.",
		Args:  cobra.NoArgs,
		// The file named by --config may not exist yet; skip reading it.
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(cmd.ErrOrStderr(), false)
		},
		RunE: runInit,
	}

	cmd.Flags().Bool("force", false, "overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		var err error
		if path, err = config.DefaultConfigPath(); err != nil {
			return err
		}
	}

	force, _ := cmd.Flags().GetBool("force")
	written, err := config.WriteDefault(path, force)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !written {
		_, err = fmt.Fprintf(out, "config already exists at %s (use --force to overwrite)\n", path)
		return err
	}
	_, err = fmt.Fprintf(out, "wrote default config to %s\n", path)
	return err
}
