package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marketingos/adsurv-cli/internal/estimate"
	"github.com/marketingos/adsurv-cli/internal/model"
	"github.com/marketingos/adsurv-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// fakeStore records calls and simulates batch/single insert failures.
// Mutations are locked; RunUsers exercises it concurrently.
type fakeStore struct {
	mu             sync.Mutex
	hasMetrics     bool
	upsertErr      error
	batchErr       error
	singleErrAfter int // rows at index >= singleErrAfter fail; -1 disables
	singleErrSet   map[int]bool

	upserted    []string
	batchCalls  int
	singleCalls int
	inserted    []model.DailyMetric
}

func newFakeStore() *fakeStore {
	return &fakeStore{singleErrAfter: -1}
}

func (f *fakeStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return &model.User{UserID: userID, IsActive: true}, nil
}

func (f *fakeStore) UpsertCompetitor(ctx context.Context, name, userID string) (*model.Competitor, error) {
	f.mu.Lock()
	f.upserted = append(f.upserted, name)
	f.mu.Unlock()
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	return &model.Competitor{
		ID:       "comp-" + model.NameKey(name),
		Name:     strings.TrimSpace(name),
		NameKey:  model.NameKey(name),
		UserID:   userID,
		IsActive: true,
	}, nil
}

func (f *fakeStore) ListCompetitorsByUser(ctx context.Context, userID string) ([]model.Competitor, error) {
	return nil, nil
}

func (f *fakeStore) HasDailyMetrics(ctx context.Context, competitorID string, platform model.Platform, date string) (bool, error) {
	return f.hasMetrics, nil
}

func (f *fakeStore) InsertDailyMetric(ctx context.Context, m *model.DailyMetric) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.singleCalls
	f.singleCalls++
	if f.singleErrSet[idx] || (f.singleErrAfter >= 0 && idx >= f.singleErrAfter) {
		return errors.New("row insert refused")
	}
	f.inserted = append(f.inserted, *m)
	return nil
}

func (f *fakeStore) InsertDailyMetricsBatch(ctx context.Context, metrics []model.DailyMetric) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if f.batchErr != nil {
		return 0, f.batchErr
	}
	f.inserted = append(f.inserted, metrics...)
	return len(metrics), nil
}

func (f *fakeStore) ListDailyMetrics(ctx context.Context, filter store.MetricFilter) ([]model.DailyMetric, error) {
	return f.inserted, nil
}

func (f *fakeStore) AggregateDailySummary(ctx context.Context, userID, date string) (*model.SummarySnapshot, error) {
	return &model.SummarySnapshot{UserID: userID, PeriodStart: date, PeriodEnd: date}, nil
}

func (f *fakeStore) UpsertSummary(ctx context.Context, s *model.SummarySnapshot) error { return nil }

func (f *fakeStore) GetLatestSummary(ctx context.Context, userID string) (*model.SummarySnapshot, error) {
	return nil, nil
}

func (f *fakeStore) ListRecentCreatives(ctx context.Context, userID string, limit int) ([]store.CreativeSample, error) {
	return nil, nil
}

func (f *fakeStore) InsertTargetingIntel(ctx context.Context, ti *model.TargetingIntel) error {
	return nil
}

func (f *fakeStore) InsertExecutionLog(ctx context.Context, l *model.ExecutionLog) error { return nil }
func (f *fakeStore) Migrate(ctx context.Context) error                                  { return nil }
func (f *fakeStore) Close() error                                                       { return nil }

func testOrchestrator(st store.Store) *Orchestrator {
	return NewWithEstimator(st, estimate.NewWithSource(func() float64 { return 0.5 }))
}

func candidates(n int) []model.AdCandidate {
	out := make([]model.AdCandidate, n)
	for i := range out {
		out[i] = model.AdCandidate{
			Advertiser: "Meta Advertiser",
			Creative:   fmt.Sprintf("Candidate %02d: discover the new platform built for growing marketing teams.", i),
		}
	}
	return out
}

const testDate = "2026-08-28"

func TestIngestAds_BatchSuccess(t *testing.T) {
	st := newFakeStore()
	o := testOrchestrator(st)

	outcome, err := o.IngestAds(context.Background(), "user-1", "Acme", model.PlatformMeta, candidates(5), testDate)
	require.NoError(t, err)
	assert.Equal(t, 5, outcome.Queued)
	assert.Equal(t, 5, outcome.Inserted)
	assert.Zero(t, outcome.Failed)
	assert.False(t, outcome.UsedFallback)
	assert.False(t, outcome.Idempotent)
	assert.Equal(t, 1, st.batchCalls)
	assert.Zero(t, st.singleCalls)

	for _, m := range st.inserted {
		assert.Equal(t, testDate, m.Date)
		assert.Equal(t, "comp-acme", m.CompetitorID)
		assert.Equal(t, model.PlatformMeta, m.Platform)
		assert.NotEmpty(t, m.CreativeFingerprint)
		assert.Greater(t, m.DailySpend, 0.0)
		assert.GreaterOrEqual(t, m.DailyImpressions, estimate.ImpressionsMin)
		assert.Less(t, m.DailyImpressions, estimate.ImpressionsMax)
	}
}

func TestIngestAds_IdempotentSkip(t *testing.T) {
	st := newFakeStore()
	st.hasMetrics = true
	o := testOrchestrator(st)

	outcome, err := o.IngestAds(context.Background(), "user-1", "Acme", model.PlatformMeta, candidates(4), testDate)
	require.NoError(t, err)
	assert.True(t, outcome.Idempotent)
	assert.Equal(t, 4, outcome.Skipped)
	assert.Zero(t, outcome.Queued)
	assert.Zero(t, outcome.Inserted)
	assert.Zero(t, st.batchCalls)
}

func TestIngestAds_SkipsUnsanitizableCreatives(t *testing.T) {
	st := newFakeStore()
	o := testOrchestrator(st)

	cands := []model.AdCandidate{
		{Creative: "too short"},
		{Creative: "A perfectly reasonable creative long enough to survive the sanitizer checks."},
		{Creative: "\x01\x02\x03"},
	}
	outcome, err := o.IngestAds(context.Background(), "user-1", "Acme", model.PlatformLinkedIn, cands, testDate)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Queued)
	assert.Equal(t, 1, outcome.Inserted)
	assert.Equal(t, 2, outcome.Skipped)
}

func TestIngestAds_RawLengthCheckedBeforeEscaping(t *testing.T) {
	st := newFakeStore()
	o := testOrchestrator(st)

	// 39 quote characters: under the raw minimum, but escaping would
	// double them to 78 and sneak past a post-clean check alone.
	cands := []model.AdCandidate{{Creative: strings.Repeat(`"`, 39)}}
	outcome, err := o.IngestAds(context.Background(), "user-1", "Acme", model.PlatformMeta, cands, testDate)
	require.NoError(t, err)
	assert.Zero(t, outcome.Queued)
	assert.Equal(t, 1, outcome.Skipped)
	assert.Zero(t, st.batchCalls)
}

func TestIngestAds_NoSurvivors(t *testing.T) {
	st := newFakeStore()
	o := testOrchestrator(st)

	outcome, err := o.IngestAds(context.Background(), "user-1", "Acme", model.PlatformMeta,
		[]model.AdCandidate{{Creative: "short"}}, testDate)
	require.NoError(t, err)
	assert.Zero(t, outcome.Queued)
	assert.Equal(t, 1, outcome.Skipped)
	assert.Zero(t, st.batchCalls)
}

func TestIngestAds_FallbackPartialFailures(t *testing.T) {
	st := newFakeStore()
	st.batchErr = errors.New("batch rejected")
	st.singleErrSet = map[int]bool{1: true, 3: true}
	o := testOrchestrator(st)

	outcome, err := o.IngestAds(context.Background(), "user-1", "Acme", model.PlatformMeta, candidates(6), testDate)
	require.NoError(t, err)
	assert.True(t, outcome.UsedFallback)
	assert.Equal(t, 6, outcome.Queued)
	assert.Equal(t, 4, outcome.Inserted)
	assert.Equal(t, 2, outcome.Failed)
	assert.Equal(t, 6, st.singleCalls)
}

func TestIngestAds_FallbackAbortsAfterTooManyFailures(t *testing.T) {
	st := newFakeStore()
	st.batchErr = errors.New("batch rejected")
	st.singleErrAfter = 0 // every single-row insert fails
	o := testOrchestrator(st)

	outcome, err := o.IngestAds(context.Background(), "user-1", "Acme", model.PlatformMeta, candidates(30), testDate)
	require.Error(t, err)
	assert.True(t, outcome.UsedFallback)
	assert.Equal(t, fallbackAbortAt+1, outcome.Failed)
	assert.Equal(t, fallbackAbortAt+1, st.singleCalls)
	assert.Zero(t, outcome.Inserted)
}

func TestIngestAds_FallbackInsertsEverythingWhenRowsSucceed(t *testing.T) {
	st := newFakeStore()
	st.batchErr = errors.New("batch rejected")
	o := testOrchestrator(st)

	start := time.Now()
	outcome, err := o.IngestAds(context.Background(), "user-1", "Acme", model.PlatformMeta, candidates(25), testDate)
	require.NoError(t, err)
	assert.Equal(t, 25, outcome.Inserted)
	assert.Zero(t, outcome.Failed)
	// Test orchestrator uses an unlimited pacer; the loop must not stall.
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestIngestAds_FingerprintMatchesCreative(t *testing.T) {
	st := newFakeStore()
	o := testOrchestrator(st)

	_, err := o.IngestAds(context.Background(), "user-1", "Acme", model.PlatformMeta, candidates(1), testDate)
	require.NoError(t, err)
	require.Len(t, st.inserted, 1)
	m := st.inserted[0]
	assert.Equal(t, model.CreativeFingerprint(m.Creative), m.CreativeFingerprint)
}
