// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/simplekp/internal/loader"
	"github.com/sigil-dev/simplekp/internal/store/sqlite"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

func newLoadCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load DB",
		Short: "Build a SQLite knowledge graph from fixture files",
		Long: "Read nodes and edges from a CSV pair, a YAML document or a text fixture and write them to the SQLite database DB.\n" +
			"Synonym remapping rewrites node ids to the first synonym whose prefix is preferred for the node's category; " +
			"preferences come from --prefer or, when absent, metadata.curie_prefixes.",
		Example: "  simplekp load kp.db --nodes nodes.csv --edges edges.csv --origin semmeddb\n" +
			"  simplekp load kp.db --dsl fixture.txt",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, v, args[0])
		},
	}

	cmd.Flags().String("nodes", "", "nodes CSV (id, category[, name, ...])")
	cmd.Flags().String("edges", "", "edges CSV (subject, predicate, object[, origin, ...])")
	cmd.Flags().String("yaml", "", "YAML fixture")
	cmd.Flags().String("dsl", "", "text fixture")
	cmd.Flags().String("origin", "", "keep only edges whose origin starts with this prefix")
	cmd.Flags().String("synonyms", "", "synonyms CSV, one synonym set per row")
	cmd.Flags().StringArray("prefer", nil, "preferred prefixes as CATEGORY=PREFIX[,PREFIX...] (repeatable)")
	cmd.Flags().Bool("force", false, "replace DB if it already exists")

	return cmd
}

func runLoad(cmd *cobra.Command, v *viper.Viper, dbPath string) error {
	opts := loader.Options{}
	opts.NodesCSV, _ = cmd.Flags().GetString("nodes")
	opts.EdgesCSV, _ = cmd.Flags().GetString("edges")
	opts.YAML, _ = cmd.Flags().GetString("yaml")
	opts.DSL, _ = cmd.Flags().GetString("dsl")
	opts.Origin, _ = cmd.Flags().GetString("origin")
	opts.SynonymsCSV, _ = cmd.Flags().GetString("synonyms")

	prefer, _ := cmd.Flags().GetStringArray("prefer")
	prefixes, err := parsePreferences(prefer)
	if err != nil {
		return err
	}
	if len(prefixes) == 0 && opts.SynonymsCSV != "" {
		cfg, err := loadConfig(v)
		if err != nil {
			return err
		}
		prefixes = cfg.EngineOptions().CuriePrefixes
	}
	opts.CuriePrefixes = prefixes

	g, err := loader.Build(opts)
	if err != nil {
		return err
	}

	force, _ := cmd.Flags().GetBool("force")
	if err := prepareTarget(dbPath, force); err != nil {
		return err
	}

	gs, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = gs.Close() }()

	if err := loader.Load(cmd.Context(), gs, g); err != nil {
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "loaded %d nodes and %d edges into %s\n", len(g.Nodes), len(g.Edges), dbPath)
	return err
}

// prepareTarget refuses to load into an existing database unless force is
// set, in which case the file is removed.
func prepareTarget(dbPath string, force bool) error {
	_, err := os.Stat(dbPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return sigilerr.Wrap(err, sigilerr.CodeCLIInputInvalid, "checking database", sigilerr.FieldPath(dbPath))
	case !force:
		return sigilerr.New(sigilerr.CodeCLIInputInvalid, "database already exists (use --force to replace it)", sigilerr.FieldPath(dbPath))
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return sigilerr.Wrap(err, sigilerr.CodeCLIInputInvalid, "removing database", sigilerr.FieldPath(dbPath+suffix))
		}
	}
	return nil
}

// parsePreferences reads CATEGORY=PREFIX[,PREFIX...] values.
func parsePreferences(values []string) (map[string][]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(values))
	for _, value := range values {
		category, list, ok := strings.Cut(value, "=")
		if !ok || category == "" || list == "" {
			return nil, sigilerr.Errorf(sigilerr.CodeCLIInputInvalid, "invalid --prefer %q: want CATEGORY=PREFIX[,PREFIX...]", value)
		}
		for _, prefix := range strings.Split(list, ",") {
			if prefix = strings.TrimSpace(prefix); prefix != "" {
				out[category] = append(out[category], prefix)
			}
		}
	}
	return out, nil
}
