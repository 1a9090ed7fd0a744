// Package summary rolls one day of metric rows up into the per-user
// dashboard snapshot.
package summary

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/marketingos/adsurv-cli/internal/model"
	"github.com/marketingos/adsurv-cli/internal/store"
)

// Service computes and persists daily summary snapshots.
type Service struct {
	store store.Store
}

// New creates a summary Service.
func New(st store.Store) *Service {
	return &Service{store: st}
}

// Run aggregates the user's metrics for the given day and upserts the
// snapshot. Returns the snapshot and whether any data existed; a day
// with no metric rows is not an error, but nothing is written either.
func (s *Service) Run(ctx context.Context, userID, date string) (*model.SummarySnapshot, bool, error) {
	snap, err := s.store.AggregateDailySummary(ctx, userID, date)
	if err != nil {
		return nil, false, eris.Wrapf(err, "summary: aggregate for user %s on %s", userID, date)
	}
	if snap.ActiveCampaigns == 0 {
		zap.L().Info("no metric rows for day, summary skipped",
			zap.String("user_id", userID),
			zap.String("date", date))
		return snap, false, nil
	}

	if err := s.store.UpsertSummary(ctx, snap); err != nil {
		return snap, true, eris.Wrapf(err, "summary: upsert for user %s on %s", userID, date)
	}
	zap.L().Info("daily summary written",
		zap.String("user_id", userID),
		zap.String("date", date),
		zap.Float64("total_spend", snap.TotalCompetitorSpend),
		zap.Int("campaigns", snap.ActiveCampaigns))
	return snap, true, nil
}
