// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docflat CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/docflat/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Set

// rootCmd is the base command for the docflat CLI.
var rootCmd = &cobra.Command{
	Use:   "docflat",
	Short: "Flatten document block trees into content-block lists",
	Long: `docflat turns the hierarchical block tree produced by the marker PDF
extraction tool into a flat, ordered list of content blocks with plain text.

Page containers are dissolved, page furniture (headers, footers, pictures,
list groups) is dropped, and every remaining block keeps its id and type.
Inputs are marker JSON files or PDFs, processed one at a time or as a whole
directory tree. The index and search subcommands build a SQLite full-text
index over the resulting artifacts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		bindFlags(cmd)
		setupLogging(viper.GetBool("verbose"))

		s, err := secrets.Load(secrets.DefaultDir, slog.Default())
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			slog.Debug("loaded secrets", "keys", s.Keys())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./docflat.yaml or ~/.config/docflat/docflat.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging on stderr")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docflat")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docflat"))
		}
	}

	viper.SetEnvPrefix("DOCFLAT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// bindFlags binds the running command's flags to viper keys, turning
// "output-dir" into "output_dir", so flags override the config file and
// DOCFLAT_* environment variables.
func bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "help" {
			return
		}
		_ = viper.BindPFlag(configKey(f.Name), f)
	})
}

func configKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
