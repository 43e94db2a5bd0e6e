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

// NewImportCommand creates the import command.
func NewImportCommand(cfg *config.Config) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file> <environment>",
		Short: "Import an export document into an environment",
		Long: `Apply an export document to the backing store. Each key is written
independently: a conflict or failure is reported for that key and the rest
of the batch continues. Secret placeholders are verified against the store
by version but never written.

With --dry-run the full classification and comparison pass runs and the
planned changes are reported without writing anything.

Examples:
  confres import dev.yaml dev --dry-run
  confres import dev.yaml dev`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, environment := args[0], args[1]

			if err := cfg.Load(); err != nil {
				return err
			}
			if err := requireKnownEnvironment(cfg, environment); err != nil {
				return err
			}

			data, err := os.ReadFile(file)
			if err != nil {
				return crerrors.UserError{
					Message:    fmt.Sprintf("Failed to read import document %s", file),
					Details:    err.Error(),
					Suggestion: "Check the file path",
					Err:        err,
				}
			}

			doc, err := migrate.ParseDocument(data)
			if err != nil {
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

			report, err := tool.Import(ctx, doc, environment, dryRun)
			if err != nil {
				return err
			}

			for _, res := range report.Results {
				switch res.Action {
				case migrate.ActionSkip:
					cfg.Logger.Debug("%s: unchanged", res.Name)
				case migrate.ActionCreate, migrate.ActionUpdate:
					cfg.Logger.Info("%s: %s (version %d)", res.Name, res.Action, res.Version)
				case migrate.ActionConflict, migrate.ActionError:
					cfg.Logger.Error("%s: %s: %v", res.Name, res.Action, res.Err)
				}
			}

			mode := "imported"
			if dryRun {
				mode = "planned"
			}
			cfg.Logger.Info("%s %d writes into %s (%d unchanged, %d failed)",
				mode, report.Writes(), environment, len(report.Results)-report.Writes()-report.Failed(), report.Failed())

			if report.Failed() > 0 {
				return FindingsError{
					Message: fmt.Sprintf("%d keys failed to import into %s", report.Failed(), environment),
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report intended changes without writing")

	return cmd
}
