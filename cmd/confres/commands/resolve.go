package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/confres/internal/config"
	"github.com/systmms/confres/internal/engine"
	"github.com/systmms/confres/internal/paths"
)

// NewResolveCommand creates the resolve command.
func NewResolveCommand(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		asSecret   bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve a single parameter through the priority chain",
		Long: `Resolve a parameter for this process's environment and application.

The value is looked up through the priority chain (cache, remote store,
process environment variable, static defaults file) and printed to stdout.
The source tier is reported on stderr so scripts reading stdout stay clean.

Examples:
  # Resolve a plain parameter
  confres resolve db/port

  # Resolve with metadata in JSON format
  confres resolve db/port --json

  # Require the parameter to be a secret (no static-default fallback)
  confres resolve db/password --secret`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := paths.ValidateName(name); err != nil {
				return err
			}

			if err := cfg.Load(); err != nil {
				return err
			}

			ctx := context.Background()
			st, err := newStore(ctx, cfg)
			if err != nil {
				return err
			}

			defaults, err := engine.LoadDefaultsFile(cfg.Definition.DefaultsFile)
			if err != nil {
				return err
			}

			eng, err := engine.New(st,
				cfg.Definition.Environment,
				cfg.Definition.Application,
				engine.WithLogger(cfg.Logger),
				engine.WithClassifier(newClassifier(cfg)),
				engine.WithAuditSink(newAuditSink(cfg)),
				engine.WithDefaults(defaults),
				engine.WithStoreTimeout(cfg.Definition.Store.Timeout()),
				engine.WithTTLs(
					cfg.Definition.Cache.RemoteTTL(),
					cfg.Definition.Cache.NegativeTTL(),
					cfg.Definition.Cache.LocalTTL(),
				),
			)
			if err != nil {
				return err
			}

			var result engine.ResolutionResult
			if asSecret {
				result, err = eng.ResolveSecret(ctx, name)
			} else {
				result, err = eng.Resolve(ctx, name)
			}
			if err != nil {
				return err
			}

			if jsonOutput {
				output := map[string]interface{}{
					"name":           name,
					"value":          result.Value,
					"path":           result.Path,
					"sourceTier":     result.SourceTier.String(),
					"classification": result.Classification.String(),
				}
				if result.Version != 0 {
					output["version"] = result.Version
				}
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(output)
			}

			cfg.Logger.Debug("resolved %s from tier %s", result.Path, result.SourceTier)
			fmt.Print(result.Value)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format with metadata")
	cmd.Flags().BoolVar(&asSecret, "secret", false, "Require the parameter to resolve as a secret")

	return cmd
}
