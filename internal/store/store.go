// Package store persists competitors, daily metrics, summaries, and
// execution logs behind a driver-agnostic interface.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/marketingos/adsurv-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the postgres store uses. pgxmock
// satisfies it for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// MetricFilter specifies criteria for listing daily metrics.
type MetricFilter struct {
	UserID       string         `json:"user_id,omitempty"`
	CompetitorID string         `json:"competitor_id,omitempty"`
	Platform     model.Platform `json:"platform,omitempty"`
	Date         string         `json:"date,omitempty"`
	Limit        int            `json:"limit,omitempty"`
	Offset       int            `json:"offset,omitempty"`
}

// CreativeSample is a stored creative with its context, used as LLM
// input for targeting intelligence.
type CreativeSample struct {
	CompetitorName string         `json:"competitor_name"`
	Platform       model.Platform `json:"platform"`
	Date           string         `json:"date"`
	Creative       string         `json:"creative"`
	DailySpend     float64        `json:"daily_spend"`
}

// Store defines the persistence interface for the surveillance
// pipeline.
type Store interface {
	// Users
	GetUser(ctx context.Context, userID string) (*model.User, error)

	// Competitors
	UpsertCompetitor(ctx context.Context, name, userID string) (*model.Competitor, error)
	ListCompetitorsByUser(ctx context.Context, userID string) ([]model.Competitor, error)

	// Daily metrics
	HasDailyMetrics(ctx context.Context, competitorID string, platform model.Platform, date string) (bool, error)
	InsertDailyMetric(ctx context.Context, m *model.DailyMetric) error
	InsertDailyMetricsBatch(ctx context.Context, metrics []model.DailyMetric) (int, error)
	ListDailyMetrics(ctx context.Context, filter MetricFilter) ([]model.DailyMetric, error)

	// Summaries
	AggregateDailySummary(ctx context.Context, userID, date string) (*model.SummarySnapshot, error)
	UpsertSummary(ctx context.Context, s *model.SummarySnapshot) error
	GetLatestSummary(ctx context.Context, userID string) (*model.SummarySnapshot, error)

	// Targeting intel
	ListRecentCreatives(ctx context.Context, userID string, limit int) ([]CreativeSample, error)
	InsertTargetingIntel(ctx context.Context, ti *model.TargetingIntel) error

	// Execution logs
	InsertExecutionLog(ctx context.Context, l *model.ExecutionLog) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
