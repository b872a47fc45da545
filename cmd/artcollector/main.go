// Package main is the artcollector CLI entry point.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyperjump/artcollector/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/artcollector/config.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "artcollector",
		Short: "Search a museum collection by keyword, century and classification",
		Long: `artcollector searches a museum collection API (or an offline collection
file) by keyword, narrowed by century and classification.

Run 'artcollector server' for the web interface or 'artcollector search' in a terminal.`,
		Version:      version,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("artcollector version {{.Version}}\n")
	cmd.PersistentFlags().StringVar(&flags.configPath, "config", defaultConfigPath, "config file path")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newServerCmd(flags))
	cmd.AddCommand(newSearchCmd(flags))
	cmd.AddCommand(newReferencesCmd(flags))
	cmd.AddCommand(newImportCmd(flags))
	cmd.AddCommand(newStatusCmd(flags))
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development). With no file at either
// place the config comes from defaults and ARTCOLLECTOR_* variables.
// Returns the config and the path that was actually loaded ("" for none).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			cfg, envErr := config.FromEnv()
			return cfg, "", envErr
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "artcollector version %s\n", version)
		},
	}
}

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			cfg := config.Default()
			cfg.Storage.DatabasePath = "./data/artcollector.db"
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nSet api.api_key or ARTCOLLECTOR_API_KEY before searching.\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
