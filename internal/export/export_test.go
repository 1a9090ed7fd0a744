package export

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/marketingos/adsurv-cli/internal/model"
	"github.com/marketingos/adsurv-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type stubStore struct {
	store.Store

	metrics []model.DailyMetric
	summary *model.SummarySnapshot
}

func (s *stubStore) ListDailyMetrics(ctx context.Context, filter store.MetricFilter) ([]model.DailyMetric, error) {
	return s.metrics, nil
}

func (s *stubStore) GetLatestSummary(ctx context.Context, userID string) (*model.SummarySnapshot, error) {
	return s.summary, nil
}

func TestWriteWorkbook(t *testing.T) {
	st := &stubStore{
		metrics: []model.DailyMetric{
			{
				Date: "2026-08-28", CompetitorName: "Acme", Platform: model.PlatformMeta,
				Creative: "An ad creative", DailySpend: 150.5, DailyImpressions: 12000,
				DailyClicks: 144, DailyCTR: 0.012,
			},
			{
				Date: "2026-08-28", CompetitorName: "Globex", Platform: model.PlatformLinkedIn,
				Creative: "Another ad", DailySpend: 396, DailyImpressions: 12000,
			},
		},
		summary: &model.SummarySnapshot{
			UserID: "user-1", PeriodStart: "2026-08-28", PeriodEnd: "2026-08-28",
			TotalCompetitorSpend: 546.5, ActiveCampaigns: 2,
			PlatformDistribution: map[string]int{"meta": 1, "linkedin": 1},
			TopPerformers:        []model.TopPerformer{{CompetitorName: "Globex", Platform: "linkedin", Spend: 396}},
		},
	}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	rows, err := New(st).WriteWorkbook(context.Background(), store.MetricFilter{UserID: "user-1"}, path)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)
	assert.Equal(t, "Daily Metrics", f.Sheets[0].Name)
	assert.Equal(t, "Summary", f.Sheets[1].Name)

	// Header plus two metric rows.
	require.Len(t, f.Sheets[0].Rows, 3)
	assert.Equal(t, "Acme", f.Sheets[0].Rows[1].Cells[1].String())
	assert.Equal(t, "meta", f.Sheets[0].Rows[1].Cells[2].String())
}

func TestWriteWorkbook_NoUserSkipsSummary(t *testing.T) {
	st := &stubStore{metrics: []model.DailyMetric{{Date: "2026-08-28", CompetitorName: "Acme"}}}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	rows, err := New(st).WriteWorkbook(context.Background(), store.MetricFilter{}, path)
	require.NoError(t, err)
	assert.Equal(t, 1, rows)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Sheets, 1)
}

func TestWriteWorkbook_NoSummaryYet(t *testing.T) {
	st := &stubStore{}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	rows, err := New(st).WriteWorkbook(context.Background(), store.MetricFilter{UserID: "user-1"}, path)
	require.NoError(t, err)
	assert.Zero(t, rows)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	assert.Len(t, f.Sheets, 1)
}
