package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/confres/internal/config"
	crerrors "github.com/systmms/confres/internal/errors"
	"github.com/systmms/confres/internal/migrate"
)

// NewExportCommand creates the export command.
func NewExportCommand(cfg *config.Config) *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "export <environment>",
		Short: "Export an environment's parameters to a YAML document",
		Long: `Walk the environment's namespace in the backing store and write an export
document. Secret values are replaced with a placeholder referencing their
path and version, so the document is safe to store in version control.

Examples:
  confres export dev --out dev.yaml
  confres export prod`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			environment := args[0]

			if err := cfg.Load(); err != nil {
				return err
			}
			if err := requireKnownEnvironment(cfg, environment); err != nil {
				return err
			}

			ctx := context.Background()
			st, err := newStore(ctx, cfg)
			if err != nil {
				return err
			}

			tool := migrate.New(st, cfg.Definition.Application, newClassifier(cfg),
				migrate.WithLogger(cfg.Logger),
				migrate.WithAuditSink(newAuditSink(cfg)),
			)

			doc, err := tool.Export(ctx, environment)
			if err != nil {
				return err
			}

			data, err := doc.Marshal()
			if err != nil {
				return fmt.Errorf("failed to serialize export document: %w", err)
			}

			if outFile == "" {
				fmt.Print(string(data))
				return nil
			}

			if err := os.WriteFile(outFile, data, 0o600); err != nil {
				return crerrors.UserError{
					Message:    fmt.Sprintf("Failed to write export document to %s", outFile),
					Details:    err.Error(),
					Suggestion: "Check directory permissions",
					Err:        err,
				}
			}
			cfg.Logger.Info("exported %d parameters from %s to %s", len(doc.Parameters), environment, outFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&outFile, "out", "", "Output file (defaults to stdout)")

	return cmd
}
