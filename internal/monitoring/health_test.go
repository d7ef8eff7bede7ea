package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/freshapi/freshapi/internal/database/testutil"
)

func TestEvaluateAggregatesStatuses(t *testing.T) {
	m := NewHealthManager()
	m.RegisterReadiness(Check{Name: "ok", Probe: func(context.Context) error { return nil }})
	m.RegisterReadiness(Check{Name: "slow", Timeout: time.Millisecond, Probe: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	report := m.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, StatusDegraded, report.Status)
	require.Len(t, report.Checks, 2)
	require.Equal(t, "slow", report.Checks[1].Component)

	m.RegisterReadiness(Check{Name: "broken", Probe: func(context.Context) error { return errors.New("boom") }})
	report = m.EvaluateReadiness(context.Background())
	require.Equal(t, StatusDown, report.Status)
	require.Equal(t, "boom", report.Checks[2].Details)
}

func TestEvaluateRecoversPanics(t *testing.T) {
	m := NewHealthManager()
	m.RegisterLiveness(Check{Name: "panics", Probe: func(context.Context) error { panic("kaboom") }})
	m.RegisterLiveness(Check{Name: "nil"})
	m.RegisterLiveness(Check{})

	report := m.EvaluateLiveness(context.Background())
	require.Len(t, report.Checks, 2)
	require.Equal(t, StatusDown, report.Checks[0].Status)
	require.Equal(t, "kaboom", report.Checks[0].Details)
	require.Equal(t, "panics", report.Checks[0].Component)
	require.Equal(t, StatusDown, report.Checks[1].Status)
}

func TestEmptyManagerIsUp(t *testing.T) {
	report := NewHealthManager().EvaluateLiveness(context.Background())
	require.True(t, report.Success)
	require.Equal(t, StatusUp, report.Status)
}

func TestDatabaseAndVocabularyChecks(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())

	m := NewHealthManager()
	m.RegisterReadiness(DatabaseCheck(db))
	m.RegisterReadiness(VocabularyCheck(db))

	report := m.EvaluateReadiness(context.Background())
	require.Equal(t, StatusUp, report.Checks[0].Status)
	require.Equal(t, StatusDown, report.Checks[1].Status)
	require.Contains(t, report.Checks[1].Details, "freshapi:read")

	seeded := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	report = evaluate(context.Background(), []Check{VocabularyCheck(seeded)})
	require.True(t, report.Success, report.Checks)
}
