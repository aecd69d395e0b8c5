// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sigil-dev/simplekp/internal/config"
	sigilerr "github.com/sigil-dev/simplekp/pkg/errors"
)

// NewRootCmd creates the root simplekp command with all subcommands
// registered. Each root owns its own viper instance so that flag bindings do
// not leak between invocations.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "simplekp",
		Short:         "simplekp: a small biomedical knowledge provider",
		Long:          "simplekp answers query graphs against a knowledge graph stored in SQLite and reports which operations it can answer.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd, v)
		},
	}

	// Global flags. These map to viper keys via initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file (default ~/.config/simplekp/simplekp.yaml when present)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newInitCmd(),
		newServeCmd(v),
		newLoadCmd(v),
		newQueryCmd(v),
		newOpsCmd(v),
		newPrefixesCmd(v),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up v with defaults, env bindings, flag bindings, and the
// optional config file so the standard precedence (flag > env > file >
// defaults) is handled uniformly.
func initViper(cmd *cobra.Command, v *viper.Viper) error {
	config.SetDefaults(v)
	config.SetupEnv(v)

	cfgFlag, _ := cmd.Flags().GetString("config")
	if cfgFile := config.ResolvePath(cfgFlag); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return sigilerr.Errorf(sigilerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	}

	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return sigilerr.Errorf(sigilerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}
	if err := bindCommandFlags(cmd, v); err != nil {
		return err
	}

	setupLogging(cmd.ErrOrStderr(), v.GetBool("verbose"))
	if used := v.ConfigFileUsed(); used != "" {
		slog.Debug("using config file", "path", used)
	}
	return nil
}

// setupLogging installs a text handler on w as the default logger.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// loadConfig resolves the validated configuration from v.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, sigilerr.Wrap(err, sigilerr.CodeCLISetupFailure, "loading config")
	}
	return cfg, nil
}

// configKeyAnnotation marks a flag with the config key it overrides.
const configKeyAnnotation = "simplekp/config-key"

// bindFlag records that flag overrides the config key. Commands share one
// viper, so the binding is made by bindCommandFlags for the command that
// actually runs.
func bindFlag(cmd *cobra.Command, key, flag string) {
	_ = cmd.Flags().SetAnnotation(flag, configKeyAnnotation, []string{key})
}

// bindCommandFlags binds the running command's annotated flags to v.
func bindCommandFlags(cmd *cobra.Command, v *viper.Viper) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if len(keys) == 0 || err != nil {
			return
		}
		if bindErr := v.BindPFlag(keys[0], f); bindErr != nil {
			err = sigilerr.Errorf(sigilerr.CodeCLISetupFailure, "binding --%s: %w", f.Name, bindErr)
		}
	})
	return err
}
