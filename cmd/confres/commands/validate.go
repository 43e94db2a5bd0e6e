package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/systmms/confres/internal/config"
	crerrors "github.com/systmms/confres/internal/errors"
	"github.com/systmms/confres/internal/validation"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(cfg *config.Config) *cobra.Command {
	var schemaFile string

	cmd := &cobra.Command{
		Use:   "validate <environment>",
		Short: "Validate an environment against the declared schema",
		Long: `Check every schema entry required in the environment: present and valid,
present but failing its predicate, or missing.

Exits 0 when everything is valid and 1 when findings are present.

Examples:
  confres validate dev
  confres validate prod --schema schema.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			environment := args[0]

			if err := cfg.Load(); err != nil {
				return err
			}
			if err := requireKnownEnvironment(cfg, environment); err != nil {
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

			report, err := val.ValidateEnvironment(ctx, environment, schema)
			if err != nil {
				return err
			}

			for _, res := range report.Results {
				switch res.Status {
				case validation.StatusValid:
					cfg.Logger.Info("%s: valid", res.Name)
				case validation.StatusMissing:
					cfg.Logger.Error("%s: missing", res.Name)
				case validation.StatusInvalid:
					cfg.Logger.Error("%s: invalid (%s)", res.Name, res.Detail)
				}
			}

			valid, missing, invalid := report.Counts()
			cfg.Logger.Info("validated %s: %d valid, %d missing, %d invalid",
				environment, valid, missing, invalid)

			if report.HasFindings() {
				return FindingsError{
					Message: fmt.Sprintf("%d schema findings in environment %s", missing+invalid, environment),
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&schemaFile, "schema", "", "Schema file (defaults to schema_file from confres.yaml)")

	return cmd
}

func loadSchema(cfg *config.Config, flagValue string) (*validation.Schema, error) {
	path := flagValue
	if path == "" {
		path = cfg.Definition.SchemaFile
	}
	if path == "" {
		return nil, crerrors.ConfigError{
			Field:      "schema_file",
			Message:    "no schema file configured",
			Suggestion: "Set schema_file in confres.yaml or pass --schema",
		}
	}
	return validation.LoadSchemaFile(path)
}
