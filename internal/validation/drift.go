package validation

import (
	"context"
	"fmt"

	"github.com/systmms/confres/internal/audit"
	crerrors "github.com/systmms/confres/internal/errors"
	"github.com/systmms/confres/internal/paths"
	"github.com/systmms/confres/pkg/store"
)

// DriftKind classifies a drift finding.
type DriftKind int

const (
	// DriftPresence: the entry exists in one environment but not the other.
	DriftPresence DriftKind = iota
	// DriftClassification: the store holds the entry Plain in one
	// environment and Secret in the other.
	DriftClassification
	// DriftValue: Plain entries whose values differ. Both values are
	// included in the finding (Plain only, by policy).
	DriftValue
	// DriftVersion: Secret entries at different versions. Versions are
	// compared instead of values so the report never holds a secret.
	DriftVersion
)

// String returns the report label for a drift kind.
func (k DriftKind) String() string {
	switch k {
	case DriftPresence:
		return "presence"
	case DriftClassification:
		return "classification"
	case DriftValue:
		return "value"
	case DriftVersion:
		return "version"
	}
	return "unknown"
}

// DriftFinding is one divergence between two environments. DetailA/DetailB
// hold the per-environment side of the comparison: values for Plain
// entries, versions or presence markers otherwise.
type DriftFinding struct {
	Name    string
	Kind    DriftKind
	DetailA string
	DetailB string
}

// DriftReport lists every divergence found between two environments, in
// schema declaration order.
type DriftReport struct {
	EnvironmentA string
	EnvironmentB string
	Findings     []DriftFinding
	Compared     int
}

// HasFindings reports whether any drift was detected.
func (r *DriftReport) HasFindings() bool {
	return len(r.Findings) > 0
}

// CompareEnvironments diffs two environments over the schema. Plain entries
// are compared by value with both values visible in the report; Secret
// entries are compared by presence and version only. That split is the core
// policy balancing operability against leaking sensitive values into drift
// reports.
func (e *Engine) CompareEnvironments(ctx context.Context, envA, envB string, schema *Schema) (*DriftReport, error) {
	start := e.now()
	report := &DriftReport{EnvironmentA: envA, EnvironmentB: envB}

	for i := range schema.Entries {
		entry := &schema.Entries[i]

		paramA, foundA, err := e.fetch(ctx, envA, entry.Name)
		if err != nil {
			return nil, err
		}
		paramB, foundB, err := e.fetch(ctx, envB, entry.Name)
		if err != nil {
			return nil, err
		}

		if !foundA && !foundB {
			continue
		}
		report.Compared++

		if foundA != foundB {
			report.Findings = append(report.Findings, DriftFinding{
				Name:    entry.Name,
				Kind:    DriftPresence,
				DetailA: presenceLabel(foundA),
				DetailB: presenceLabel(foundB),
			})
			continue
		}

		if paramA.Classification != paramB.Classification {
			report.Findings = append(report.Findings, DriftFinding{
				Name:    entry.Name,
				Kind:    DriftClassification,
				DetailA: paramA.Classification.String(),
				DetailB: paramB.Classification.String(),
			})
			continue
		}

		secret := entry.Classify() == store.Secret || paramA.Classification == store.Secret
		if secret {
			if paramA.Version != paramB.Version {
				report.Findings = append(report.Findings, DriftFinding{
					Name:    entry.Name,
					Kind:    DriftVersion,
					DetailA: fmt.Sprintf("version %d", paramA.Version),
					DetailB: fmt.Sprintf("version %d", paramB.Version),
				})
			}
			continue
		}

		if paramA.Value != paramB.Value {
			report.Findings = append(report.Findings, DriftFinding{
				Name:    entry.Name,
				Kind:    DriftValue,
				DetailA: paramA.Value,
				DetailB: paramB.Value,
			})
		}
	}

	e.sink.Record(audit.Event{
		Operation: "drift",
		Path:      "/" + envA + "+" + envB + "/" + e.application,
		Outcome:   outcomeFor(report.HasFindings()),
		Duration:  e.now().Sub(start),
	})
	return report, nil
}

func (e *Engine) fetch(ctx context.Context, environment, name string) (store.Parameter, bool, error) {
	path, err := paths.Build(environment, e.application, name)
	if err != nil {
		return store.Parameter{}, false, err
	}
	param, found, err := e.store.Get(ctx, path)
	if err != nil {
		return store.Parameter{}, false, crerrors.TransientStoreError{Op: "drift", Attempts: 1, Err: err}
	}
	return param, found, nil
}

func presenceLabel(found bool) string {
	if found {
		return "present"
	}
	return "absent"
}
