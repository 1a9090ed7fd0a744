package summary

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marketingos/adsurv-cli/internal/model"
	"github.com/marketingos/adsurv-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type stubStore struct {
	store.Store

	snap      *model.SummarySnapshot
	aggErr    error
	upsertErr error
	upserted  *model.SummarySnapshot
}

func (s *stubStore) AggregateDailySummary(ctx context.Context, userID, date string) (*model.SummarySnapshot, error) {
	return s.snap, s.aggErr
}

func (s *stubStore) UpsertSummary(ctx context.Context, snap *model.SummarySnapshot) error {
	s.upserted = snap
	return s.upsertErr
}

func TestRun_WritesSnapshot(t *testing.T) {
	st := &stubStore{snap: &model.SummarySnapshot{
		UserID:               "user-1",
		PeriodStart:          "2026-08-28",
		PeriodEnd:            "2026-08-28",
		TotalCompetitorSpend: 500,
		ActiveCampaigns:      4,
	}}

	snap, wrote, err := New(st).Run(context.Background(), "user-1", "2026-08-28")
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.Same(t, st.snap, snap)
	assert.Same(t, st.snap, st.upserted)
}

func TestRun_NoDataSkipsWrite(t *testing.T) {
	st := &stubStore{snap: &model.SummarySnapshot{UserID: "user-1", ActiveCampaigns: 0}}

	snap, wrote, err := New(st).Run(context.Background(), "user-1", "2026-08-28")
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.NotNil(t, snap)
	assert.Nil(t, st.upserted)
}

func TestRun_AggregateError(t *testing.T) {
	st := &stubStore{aggErr: errors.New("connection reset")}

	_, wrote, err := New(st).Run(context.Background(), "user-1", "2026-08-28")
	require.Error(t, err)
	assert.False(t, wrote)
}

func TestRun_UpsertError(t *testing.T) {
	st := &stubStore{
		snap:      &model.SummarySnapshot{UserID: "user-1", ActiveCampaigns: 2},
		upsertErr: errors.New("write refused"),
	}

	_, wrote, err := New(st).Run(context.Background(), "user-1", "2026-08-28")
	require.Error(t, err)
	assert.True(t, wrote)
}
