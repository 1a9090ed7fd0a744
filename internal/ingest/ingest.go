// Package ingest turns parsed ad candidates into persisted daily
// metric rows. The orchestrator owns competitor resolution, the
// same-day idempotency guard, sanitization, estimation, and the
// batch-then-fallback write path.
package ingest

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/marketingos/adsurv-cli/internal/estimate"
	"github.com/marketingos/adsurv-cli/internal/model"
	"github.com/marketingos/adsurv-cli/internal/sanitize"
	"github.com/marketingos/adsurv-cli/internal/store"
)

const (
	// Fallback path tuning. When the batch insert fails we retry row
	// by row: log only the first few row errors, give up once failures
	// pile up, and pause periodically so a struggling database is not
	// hammered.
	fallbackLogLimit  = 3
	fallbackAbortAt   = 10
	fallbackPaceEvery = 10
)

// Orchestrator ingests ad candidates for one competitor/platform/day.
type Orchestrator struct {
	store     store.Store
	estimator *estimate.Estimator
	pace      *rate.Limiter
}

// New creates an Orchestrator with default pacing.
func New(st store.Store) *Orchestrator {
	return &Orchestrator{
		store:     st,
		estimator: estimate.New(),
		pace:      rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
}

// NewWithEstimator creates an Orchestrator with an injected estimator;
// used by tests for deterministic draws.
func NewWithEstimator(st store.Store, est *estimate.Estimator) *Orchestrator {
	return &Orchestrator{
		store:     st,
		estimator: est,
		pace:      rate.NewLimiter(rate.Inf, 1),
	}
}

// IngestAds persists estimated metric rows for the given candidates.
//
// If metrics already exist for this competitor/platform/day, nothing
// is written and the outcome reports Idempotent. Candidates whose raw
// creatives are too short or fail sanitization are skipped. Rows are
// written in one batch insert; if the batch fails, a single-row
// fallback inserts what it can.
func (o *Orchestrator) IngestAds(ctx context.Context, userID, competitorName string, platform model.Platform, candidates []model.AdCandidate, date string) (*model.IngestOutcome, error) {
	outcome := &model.IngestOutcome{
		Platform:   platform,
		Competitor: competitorName,
	}

	competitor, err := o.store.UpsertCompetitor(ctx, competitorName, userID)
	if err != nil {
		return outcome, eris.Wrapf(err, "ingest: resolve competitor %s", competitorName)
	}
	outcome.Competitor = competitor.Name

	exists, err := o.store.HasDailyMetrics(ctx, competitor.ID, platform, date)
	if err != nil {
		return outcome, eris.Wrap(err, "ingest: idempotency check")
	}
	if exists {
		outcome.Idempotent = true
		outcome.Skipped = len(candidates)
		zap.L().Info("metrics already recorded for today, skipping",
			zap.String("competitor", competitor.Name),
			zap.String("platform", platform.String()),
			zap.String("date", date))
		return outcome, nil
	}

	metrics := make([]model.DailyMetric, 0, len(candidates))
	for _, cand := range candidates {
		// Raw length gate before cleaning. Escape baking can pad a
		// short creative past the minimum, so the post-clean check
		// alone would let fragments through.
		if utf8.RuneCountInString(cand.Creative) < sanitize.MinCreativeLen {
			outcome.Skipped++
			continue
		}
		creative, ok := sanitize.Clean(cand.Creative)
		if !ok {
			outcome.Skipped++
			continue
		}
		est, err := o.estimator.Estimate(platform)
		if err != nil {
			return outcome, eris.Wrap(err, "ingest: estimate")
		}
		metrics = append(metrics, model.DailyMetric{
			Date:                  date,
			CompetitorID:          competitor.ID,
			CompetitorName:        competitor.Name,
			DailySpend:            est.Spend,
			DailyImpressions:      est.Impressions,
			DailyClicks:           est.Clicks,
			DailyCTR:              est.CTR,
			SpendLowerBound:       est.SpendLowerBound,
			SpendUpperBound:       est.SpendUpperBound,
			ImpressionsLowerBound: est.ImpressionsLowerBound,
			ImpressionsUpperBound: est.ImpressionsUpperBound,
			Creative:              creative,
			CreativeFingerprint:   model.CreativeFingerprint(creative),
			Platform:              platform,
		})
	}
	outcome.Queued = len(metrics)
	if len(metrics) == 0 {
		zap.L().Warn("no candidates survived sanitization",
			zap.String("competitor", competitor.Name),
			zap.String("platform", platform.String()),
			zap.Int("received", len(candidates)))
		return outcome, nil
	}

	inserted, err := o.store.InsertDailyMetricsBatch(ctx, metrics)
	if err == nil {
		outcome.Inserted = inserted
		zap.L().Info("batch insert complete",
			zap.String("competitor", competitor.Name),
			zap.String("platform", platform.String()),
			zap.Int("queued", outcome.Queued),
			zap.Int("inserted", inserted))
		return outcome, nil
	}

	zap.L().Warn("batch insert failed, falling back to single-row inserts",
		zap.String("competitor", competitor.Name),
		zap.String("platform", platform.String()),
		zap.Error(err))
	outcome.UsedFallback = true
	return outcome, o.fallbackInsert(ctx, metrics, outcome)
}

// fallbackInsert writes rows one at a time after a failed batch. It
// logs only the first fallbackLogLimit row errors, aborts once more
// than fallbackAbortAt rows have failed, and waits on the pace limiter
// every fallbackPaceEvery successes.
func (o *Orchestrator) fallbackInsert(ctx context.Context, metrics []model.DailyMetric, outcome *model.IngestOutcome) error {
	for i := range metrics {
		if err := o.store.InsertDailyMetric(ctx, &metrics[i]); err != nil {
			outcome.Failed++
			if outcome.Failed <= fallbackLogLimit {
				zap.L().Warn("fallback insert failed",
					zap.String("competitor", metrics[i].CompetitorName),
					zap.String("fingerprint", metrics[i].CreativeFingerprint),
					zap.Error(err))
			}
			if outcome.Failed > fallbackAbortAt {
				return eris.Errorf("ingest: aborting fallback after %d failed inserts (%d of %d written)",
					outcome.Failed, outcome.Inserted, len(metrics))
			}
			continue
		}
		outcome.Inserted++
		if outcome.Inserted%fallbackPaceEvery == 0 {
			if err := o.pace.Wait(ctx); err != nil {
				return eris.Wrap(err, "ingest: fallback pacing")
			}
		}
	}
	zap.L().Info("fallback insert complete",
		zap.String("competitor", outcome.Competitor),
		zap.Int("inserted", outcome.Inserted),
		zap.Int("failed", outcome.Failed))
	return nil
}
