package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketingos/adsurv-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	_, err = s.db.Exec(`INSERT INTO users (user_id, name, email) VALUES ('user-1', 'Test User', 'test@example.com')`)
	require.NoError(t, err)
	return s
}

func TestSQLiteUpsertCompetitor_Roundtrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	created, err := s.UpsertCompetitor(ctx, "  ACME Corp ", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ACME Corp", created.Name)
	assert.Equal(t, "acme corp", created.NameKey)
	assert.True(t, created.IsActive)

	// Different casing resolves to the same row.
	again, err := s.UpsertCompetitor(ctx, "acme CORP", "user-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "ACME Corp", again.Name)

	list, err := s.ListCompetitorsByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLiteDailyMetrics_BatchAndIdempotency(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	comp, err := s.UpsertCompetitor(ctx, "Acme", "user-1")
	require.NoError(t, err)

	exists, err := s.HasDailyMetrics(ctx, comp.ID, model.PlatformMeta, "2026-08-28")
	require.NoError(t, err)
	assert.False(t, exists)

	mk := func(creative string) model.DailyMetric {
		return model.DailyMetric{
			Date: "2026-08-28", CompetitorID: comp.ID, CompetitorName: comp.Name,
			DailySpend: 100, DailyImpressions: 10000, DailyClicks: 120, DailyCTR: 0.012,
			SpendLowerBound: 80, SpendUpperBound: 120,
			ImpressionsLowerBound: 8500, ImpressionsUpperBound: 11500,
			Creative: creative, CreativeFingerprint: model.CreativeFingerprint(creative),
			Platform: model.PlatformMeta,
		}
	}

	// Third row repeats the first creative; the unique fingerprint
	// index drops it.
	inserted, err := s.InsertDailyMetricsBatch(ctx, []model.DailyMetric{
		mk("creative alpha"), mk("creative beta"), mk("creative alpha"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	exists, err = s.HasDailyMetrics(ctx, comp.ID, model.PlatformMeta, "2026-08-28")
	require.NoError(t, err)
	assert.True(t, exists)

	metrics, err := s.ListDailyMetrics(ctx, MetricFilter{UserID: "user-1", Date: "2026-08-28"})
	require.NoError(t, err)
	assert.Len(t, metrics, 2)

	byPlatform, err := s.ListDailyMetrics(ctx, MetricFilter{Platform: model.PlatformLinkedIn})
	require.NoError(t, err)
	assert.Empty(t, byPlatform)
}

func TestSQLiteSummary_Roundtrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	comp, err := s.UpsertCompetitor(ctx, "Acme", "user-1")
	require.NoError(t, err)

	creative := "a long enough creative for the summary test"
	require.NoError(t, s.InsertDailyMetric(ctx, &model.DailyMetric{
		Date: "2026-08-28", CompetitorID: comp.ID, CompetitorName: comp.Name,
		DailySpend: 150, DailyImpressions: 12000, DailyClicks: 144, DailyCTR: 0.012,
		SpendLowerBound: 120, SpendUpperBound: 180,
		ImpressionsLowerBound: 10200, ImpressionsUpperBound: 13800,
		Creative: creative, CreativeFingerprint: model.CreativeFingerprint(creative),
		Platform: model.PlatformMeta,
	}))

	snap, err := s.AggregateDailySummary(ctx, "user-1", "2026-08-28")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ActiveCampaigns)
	assert.Equal(t, 150.0, snap.TotalCompetitorSpend)
	assert.Equal(t, map[string]int{"meta": 1}, snap.PlatformDistribution)
	require.Len(t, snap.TopPerformers, 1)
	assert.Equal(t, "Acme", snap.TopPerformers[0].CompetitorName)

	require.NoError(t, s.UpsertSummary(ctx, snap))
	// Second write same period overwrites, not duplicates.
	snap.TotalCompetitorSpend = 300
	require.NoError(t, s.UpsertSummary(ctx, snap))

	latest, err := s.GetLatestSummary(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 300.0, latest.TotalCompetitorSpend)
	assert.Equal(t, map[string]int{"meta": 1}, latest.PlatformDistribution)

	samples, err := s.ListRecentCreatives(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, creative, samples[0].Creative)
}

func TestSQLiteUsersAndLogs(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	u, err := s.GetUser(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "Test User", u.Name)
	assert.True(t, u.IsActive)

	missing, err := s.GetUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, s.InsertExecutionLog(ctx, &model.ExecutionLog{
		ScriptRunID: "run-1", UserID: "user-1", Status: "COMPLETED",
		CompetitorsAnalyzed: 2, TotalAdsProcessed: 10, DurationSeconds: 30,
		CriticalLimitations: []string{"Acme/meta: blocked"},
	}))

	require.NoError(t, s.InsertTargetingIntel(ctx, &model.TargetingIntel{
		UserID: "user-1", Model: "claude-haiku-4-5-20251001", Insights: `{"a":1}`,
	}))
}
