package validation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/confres/internal/validation"
	"github.com/systmms/confres/pkg/store"
	"github.com/systmms/confres/tests/fakes"
)

const driftSchema = `
entries:
  - name: db/host
    classification: Plain
    required_in: [dev, uat]
  - name: db/port
    classification: Plain
    required_in: [dev, uat]
  - name: feature/x
    classification: Plain
    required_in: [dev, uat]
  - name: db/password
    classification: Secret
    required_in: [dev, uat]
`

func TestCompareEnvironmentsNoDrift(t *testing.T) {
	t.Parallel()

	schema, err := validation.ParseSchema([]byte(driftSchema))
	require.NoError(t, err)

	fake := fakes.NewFakeStore().
		WithParameter("/dev/billing/db/host", "db.internal", store.Plain).
		WithParameter("/uat/billing/db/host", "db.internal", store.Plain)
	eng := newValidationEngine(fake)

	report, err := eng.CompareEnvironments(context.Background(), "dev", "uat", schema)
	require.NoError(t, err)

	assert.False(t, report.HasFindings())
	assert.Equal(t, 1, report.Compared, "entries absent on both sides are not compared")
}

func TestCompareEnvironmentsValueDrift(t *testing.T) {
	t.Parallel()

	schema, err := validation.ParseSchema([]byte(driftSchema))
	require.NoError(t, err)

	fake := fakes.NewFakeStore().
		WithParameter("/dev/billing/db/host", "a", store.Plain).
		WithParameter("/uat/billing/db/host", "b", store.Plain)
	eng := newValidationEngine(fake)

	report, err := eng.CompareEnvironments(context.Background(), "dev", "uat", schema)
	require.NoError(t, err)

	require.Len(t, report.Findings, 1)
	finding := report.Findings[0]
	assert.Equal(t, "db/host", finding.Name)
	assert.Equal(t, validation.DriftValue, finding.Kind)
	// Plain drift shows both sides so operators can see the divergence.
	assert.Equal(t, "a", finding.DetailA)
	assert.Equal(t, "b", finding.DetailB)
}

func TestCompareEnvironmentsPresenceDrift(t *testing.T) {
	t.Parallel()

	schema, err := validation.ParseSchema([]byte(driftSchema))
	require.NoError(t, err)

	fake := fakes.NewFakeStore().
		WithParameter("/dev/billing/feature/x", "on", store.Plain)
	eng := newValidationEngine(fake)

	report, err := eng.CompareEnvironments(context.Background(), "dev", "uat", schema)
	require.NoError(t, err)

	require.Len(t, report.Findings, 1)
	finding := report.Findings[0]
	assert.Equal(t, validation.DriftPresence, finding.Kind)
	assert.Equal(t, "present", finding.DetailA)
	assert.Equal(t, "absent", finding.DetailB)
}

func TestCompareEnvironmentsSecretDriftByVersionOnly(t *testing.T) {
	t.Parallel()

	schema, err := validation.ParseSchema([]byte(driftSchema))
	require.NoError(t, err)

	fake := fakes.NewFakeStore().
		WithParameter("/dev/billing/db/password", "old-secret", store.Secret).
		WithParameter("/uat/billing/db/password", "new-secret", store.Secret).
		WithVersion("/uat/billing/db/password", 3)
	eng := newValidationEngine(fake)

	report, err := eng.CompareEnvironments(context.Background(), "dev", "uat", schema)
	require.NoError(t, err)

	require.Len(t, report.Findings, 1)
	finding := report.Findings[0]
	assert.Equal(t, validation.DriftVersion, finding.Kind)
	assert.Equal(t, "version 1", finding.DetailA)
	assert.Equal(t, "version 3", finding.DetailB)

	// Secret values never appear in drift reports, no matter what differs.
	for _, f := range report.Findings {
		assert.NotContains(t, f.DetailA, "secret")
		assert.NotContains(t, f.DetailB, "secret")
	}
}

func TestCompareEnvironmentsSecretSameVersionIsClean(t *testing.T) {
	t.Parallel()

	schema, err := validation.ParseSchema([]byte(driftSchema))
	require.NoError(t, err)

	// Same version, different values: reported clean by policy. Version is
	// the only signal available without exposing the values.
	fake := fakes.NewFakeStore().
		WithParameter("/dev/billing/db/password", "one", store.Secret).
		WithParameter("/uat/billing/db/password", "two", store.Secret)
	eng := newValidationEngine(fake)

	report, err := eng.CompareEnvironments(context.Background(), "dev", "uat", schema)
	require.NoError(t, err)
	assert.False(t, report.HasFindings())
}

func TestCompareEnvironmentsClassificationDrift(t *testing.T) {
	t.Parallel()

	schema, err := validation.ParseSchema([]byte(driftSchema))
	require.NoError(t, err)

	fake := fakes.NewFakeStore().
		WithParameter("/dev/billing/db/port", "5432", store.Plain).
		WithParameter("/uat/billing/db/port", "5432", store.Secret)
	eng := newValidationEngine(fake)

	report, err := eng.CompareEnvironments(context.Background(), "dev", "uat", schema)
	require.NoError(t, err)

	require.Len(t, report.Findings, 1)
	finding := report.Findings[0]
	assert.Equal(t, validation.DriftClassification, finding.Kind)
	assert.Equal(t, "Plain", finding.DetailA)
	assert.Equal(t, "Secret", finding.DetailB)
}

func TestDriftKindLabels(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "presence", validation.DriftPresence.String())
	assert.Equal(t, "classification", validation.DriftClassification.String())
	assert.Equal(t, "value", validation.DriftValue.String())
	assert.Equal(t, "version", validation.DriftVersion.String())
}
