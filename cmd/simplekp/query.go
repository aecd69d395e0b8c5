// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/simplekp/internal/engine"
	"github.com/sigil-dev/simplekp/internal/store/sqlite"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
	"github.com/sigil-dev/simplekp/pkg/trapi"
)

func newQueryCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query QUERY.json",
		Short: "Answer a query against a database without starting a server",
		Long:  "Read a {\"message\": {\"query_graph\": ...}} document (\"-\" for stdin), run it against the database and print the response.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, v, args[0])
		},
	}
	addDBFlag(cmd)
	return cmd
}

func newOpsCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ops",
		Short: "Print the (source category, predicate, target category) triples a database can answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, closeDB, err := openProvider(v)
			if err != nil {
				return err
			}
			defer closeDB()

			ops, err := provider.Operations(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), ops)
		},
	}
	addDBFlag(cmd)
	return cmd
}

func newPrefixesCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefixes",
		Short: "Print the identifier prefixes per category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			provider, closeDB, err := openProvider(v)
			if err != nil {
				return err
			}
			defer closeDB()

			md, err := provider.Metadata(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), md)
		},
	}
	addDBFlag(cmd)
	return cmd
}

func addDBFlag(cmd *cobra.Command) {
	cmd.Flags().String("db", "", "SQLite database (default storage.path)")
	bindFlag(cmd, "storage.path", "db")
}

func runQuery(cmd *cobra.Command, v *viper.Viper, queryPath string) error {
	raw, err := readInput(cmd.InOrStdin(), queryPath)
	if err != nil {
		return err
	}

	var q trapi.Query
	if err := json.Unmarshal(raw, &q); err != nil {
		return sigilerr.Wrap(err, sigilerr.CodeCLIInputInvalid, "decoding query", sigilerr.FieldPath(queryPath))
	}
	if q.Message.QueryGraph == nil {
		return sigilerr.New(sigilerr.CodeCLIInputInvalid, "message.query_graph is required", sigilerr.FieldPath(queryPath))
	}

	provider, closeDB, err := openProvider(v)
	if err != nil {
		return err
	}
	defer closeDB()

	kg, results, err := provider.GetResults(cmd.Context(), *q.Message.QueryGraph)
	if err != nil {
		return err
	}

	return writeJSON(cmd.OutOrStdout(), trapi.Response{Message: trapi.Message{
		QueryGraph:     q.Message.QueryGraph,
		KnowledgeGraph: kg,
		Results:        results,
	}})
}

// openProvider opens the configured SQLite database read for querying. A
// missing file is an error rather than an empty graph.
func openProvider(v *viper.Viper) (*engine.Provider, func(), error) {
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, nil, err
	}

	dbPath := cfg.Storage.Path
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		return nil, nil, sigilerr.New(sigilerr.CodeCLIInputInvalid, "database does not exist (build it with simplekp load)", sigilerr.FieldPath(dbPath))
	}

	gs, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	return engine.New(gs, cfg.EngineOptions()), func() { _ = gs.Close() }, nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return nil, sigilerr.Wrap(err, sigilerr.CodeCLIInputInvalid, "reading stdin")
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeCLIInputInvalid, "reading query", sigilerr.FieldPath(path))
	}
	return raw, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
