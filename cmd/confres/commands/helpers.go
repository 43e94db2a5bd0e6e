package commands

import (
	"context"

	"github.com/systmms/confres/internal/audit"
	"github.com/systmms/confres/internal/classify"
	"github.com/systmms/confres/internal/config"
	crerrors "github.com/systmms/confres/internal/errors"
	"github.com/systmms/confres/internal/storeaws"
	"github.com/systmms/confres/pkg/store"
)

// FindingsError signals validation or drift findings: the run worked but
// found something. The CLI maps it to exit code 1.
type FindingsError struct {
	Message string
}

func (e FindingsError) Error() string {
	return e.Message
}

// ExitCode implements the exit-code contract for findings.
func (e FindingsError) ExitCode() int {
	return 1
}

// newStore builds the backing-store client from configuration.
func newStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	sc := cfg.Definition.Store
	if sc.Type != "" && sc.Type != "aws-ssm" {
		return nil, crerrors.ConfigError{
			Field:      "store.type",
			Value:      sc.Type,
			Message:    "unsupported store type",
			Suggestion: "Only 'aws-ssm' is supported",
		}
	}

	return storeaws.New(ctx, storeaws.Config{
		Region:     sc.Region,
		Profile:    sc.Profile,
		AssumeRole: sc.AssumeRole,
	}, storeaws.WithLogger(cfg.Logger))
}

// newClassifier builds the security classifier from configuration.
func newClassifier(cfg *config.Config) *classify.Classifier {
	var opts []classify.Option
	cc := cfg.Definition.Classify
	if len(cc.Patterns) > 0 {
		opts = append(opts, classify.WithPatterns(cc.Patterns))
	}
	if len(cc.Overrides) > 0 {
		overrides := make([]classify.Override, 0, len(cc.Overrides))
		for _, o := range cc.Overrides {
			class, _ := store.ParseClassification(o.Classification)
			overrides = append(overrides, classify.Override{Name: o.Name, Classification: class})
		}
		opts = append(opts, classify.WithOverrides(overrides))
	}
	return classify.New(opts...)
}

// newAuditSink wires the log and metrics sinks every command records
// through.
func newAuditSink(cfg *config.Config) audit.Sink {
	audit.InitMetrics()
	return audit.MultiSink{
		audit.NewLogSink(cfg.Logger),
		audit.NewMetricsSink(),
	}
}

// requireKnownEnvironment rejects environments outside the configured
// closed set.
func requireKnownEnvironment(cfg *config.Config, name string) error {
	if cfg.KnownEnvironment(name) {
		return nil
	}
	return crerrors.ConfigError{
		Field:      "environment",
		Value:      name,
		Message:    "environment is not in the configured set",
		Suggestion: "Known environments: " + cfg.EnvironmentList(),
	}
}
