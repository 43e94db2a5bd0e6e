package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/confres/cmd/confres/commands"
	"github.com/systmms/confres/internal/config"
	crerrors "github.com/systmms/confres/internal/errors"
	"github.com/systmms/confres/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Exit codes: 0 success, 1 validation/drift findings, 2 usage error,
// 3 backing store unreachable.
const (
	exitFindings    = 1
	exitUsage       = 2
	exitUnreachable = 3
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run() error {
	// Global flags
	var (
		configFile     string
		noColor        bool
		debug          bool
		nonInteractive bool
	)

	// Create config placeholder
	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "confres",
		Short: "Hierarchical configuration and secret resolution",
		Long: `confres resolves environment-specific settings through a priority chain
(remote parameter store, process environment, static defaults) and provides
operator tooling for schema validation, drift detection, and bulk migration.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := logging.New(debug, noColor)

			cfg.Path = configFile
			cfg.Logger = logger
			cfg.NonInteractive = nonInteractive
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "confres.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Non-interactive mode")

	rootCmd.AddCommand(
		commands.NewResolveCommand(cfg),
		commands.NewValidateCommand(cfg),
		commands.NewDriftCommand(cfg),
		commands.NewExportCommand(cfg),
		commands.NewImportCommand(cfg),
	)

	return rootCmd.Execute()
}

func exitCode(err error) int {
	var findings commands.FindingsError
	if errors.As(err, &findings) {
		return findings.ExitCode()
	}

	var transient crerrors.TransientStoreError
	if errors.As(err, &transient) {
		return exitUnreachable
	}

	return exitUsage
}
