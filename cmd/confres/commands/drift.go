package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/confres/internal/config"
	"github.com/systmms/confres/internal/validation"
)

// NewDriftCommand creates the drift command.
func NewDriftCommand(cfg *config.Config) *cobra.Command {
	var schemaFile string

	cmd := &cobra.Command{
		Use:   "drift <envA> <envB>",
		Short: "Detect configuration drift between two environments",
		Long: `Compare two environments over the declared schema.

Plain entries are compared by value with both values shown. Secret entries
are compared by presence and version only; their values never appear in
the report.

Exits 0 when the environments agree and 1 when drift is found.

Examples:
  confres drift dev uat
  confres drift uat prod --schema schema.yaml`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			envA, envB := args[0], args[1]

			if err := cfg.Load(); err != nil {
				return err
			}
			if err := requireKnownEnvironment(cfg, envA); err != nil {
				return err
			}
			if err := requireKnownEnvironment(cfg, envB); err != nil {
				return err
			}

			schema, err := loadSchema(cfg, schemaFile)
			if err != nil {
				return err
			}

			ctx := context.Background()
			st, err := newStore(ctx, cfg)
			if err != nil {
				return err
			}

			val := validation.New(st, cfg.Definition.Application,
				validation.WithLogger(cfg.Logger),
				validation.WithAuditSink(newAuditSink(cfg)),
			)

			report, err := val.CompareEnvironments(ctx, envA, envB, schema)
			if err != nil {
				return err
			}

			for _, finding := range report.Findings {
				cfg.Logger.Warn("%s: %s drift (%s: %s, %s: %s)",
					finding.Name, finding.Kind, envA, finding.DetailA, envB, finding.DetailB)
			}

			cfg.Logger.Info("compared %d entries between %s and %s: %d findings",
				report.Compared, envA, envB, len(report.Findings))

			if report.HasFindings() {
				return FindingsError{
					Message: fmt.Sprintf("%d drift findings between %s and %s", len(report.Findings), envA, envB),
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaFile, "schema", "", "Schema file (defaults to schema_file from confres.yaml)")

	return cmd
}
