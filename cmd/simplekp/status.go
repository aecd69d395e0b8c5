// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sigil-dev/simplekp/internal/server"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show knowledge provider status",
		Long:  "Check the running server's health endpoint and display status information.",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}

	cmd.Flags().String("address", "127.0.0.1:18790", "server address to check")

	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()

	var body server.HealthBody
	if err := newKPClient(addr).getJSON("/health", &body); err != nil {
		if sigilerr.HasCode(err, sigilerr.CodeCLIServerNotRunning) {
			_, _ = fmt.Fprintf(out, "simplekp at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "simplekp at %s: %s\n", addr, err)
		return nil
	}

	_, _ = fmt.Fprintf(out, "%s %s at %s: %s\n", body.Name, body.Version, addr, body.Status)
	return nil
}
