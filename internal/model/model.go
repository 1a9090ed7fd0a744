// Package model defines the domain records shared across the
// surveillance pipeline.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Competitor is a brand tracked for a user. Identity is canonical on
// (user_id, NameKey(name)) among active rows; Name keeps the casing
// the user entered.
type Competitor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	NameKey   string    `json:"name_key"`
	UserID    string    `json:"user_id"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NameKey returns the canonical competitor identity key: lowercased,
// trimmed. Used for lookups, storage, and run-level dedupe alike.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AdCandidate is a raw creative emitted by a platform parser. It is
// transient; candidates always pass through sanitization before
// anything is persisted.
type AdCandidate struct {
	Advertiser string `json:"advertiser"`
	Creative   string `json:"creative"`
}

// DailyMetric is one estimated-metrics row for one surviving creative
// on one day. Rows are immutable after insert.
type DailyMetric struct {
	ID                     string    `json:"id"`
	Date                   string    `json:"date"` // YYYY-MM-DD
	CompetitorID           string    `json:"competitor_id"`
	CompetitorName         string    `json:"competitor_name"`
	AdID                   *string   `json:"ad_id"` // always nil: no stable external ad identity
	DailySpend             float64   `json:"daily_spend"`
	DailyImpressions       int       `json:"daily_impressions"`
	DailyClicks            int       `json:"daily_clicks"`
	DailyCTR               float64   `json:"daily_ctr"`
	SpendLowerBound        float64   `json:"spend_lower_bound"`
	SpendUpperBound        float64   `json:"spend_upper_bound"`
	ImpressionsLowerBound  int       `json:"impressions_lower_bound"`
	ImpressionsUpperBound  int       `json:"impressions_upper_bound"`
	Creative               string    `json:"creative"`
	CreativeFingerprint    string    `json:"creative_fingerprint"`
	Platform               Platform  `json:"platform"`
}

// CreativeFingerprint hashes a sanitized creative for the per-day
// uniqueness constraint on daily_metrics.
func CreativeFingerprint(creative string) string {
	sum := sha256.Sum256([]byte(creative))
	return hex.EncodeToString(sum[:16])
}

// User is a product account whose competitor list drives a run.
type User struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	Industry  string    `json:"industry"`
	CreatedAt time.Time `json:"created_at"`
}

// IngestOutcome reports what an ingestion attempt did. Queued counts
// candidates that passed validation and were handed to the store; on
// the batch path Inserted equals Queued when the batch succeeds, while
// the single-row fallback confirms each row individually.
type IngestOutcome struct {
	Platform     Platform `json:"platform"`
	Competitor   string   `json:"competitor"`
	Queued       int      `json:"queued"`
	Inserted     int      `json:"inserted"`
	Failed       int      `json:"failed"`
	Skipped      int      `json:"skipped"`
	Idempotent   bool     `json:"idempotent"`    // today's data already existed; nothing written
	UsedFallback bool     `json:"used_fallback"` // batch insert failed, single-row path ran
}

// SummarySnapshot is the per-user daily rollup consumed by the
// dashboard.
type SummarySnapshot struct {
	UserID               string             `json:"user_id"`
	PeriodStart          string             `json:"period_start_date"`
	PeriodEnd            string             `json:"period_end_date"`
	TotalCompetitorSpend float64            `json:"total_competitor_spend"`
	ActiveCampaigns      int                `json:"active_campaigns_count"`
	TotalImpressions     int64              `json:"total_impressions"`
	AverageCTR           float64            `json:"average_ctr"`
	PlatformDistribution map[string]int     `json:"platform_distribution"`
	TopPerformers        []TopPerformer     `json:"top_performers"`
}

// TopPerformer is one entry in the summary's spend leaderboard.
type TopPerformer struct {
	CompetitorName string  `json:"competitor_name"`
	Platform       string  `json:"platform"`
	Spend          float64 `json:"spend"`
}

// ExecutionLog records one pipeline or single-platform job execution.
type ExecutionLog struct {
	ID                  string    `json:"id"`
	ScriptRunID         string    `json:"script_run_id"`
	UserID              string    `json:"user_id"`
	ExecutedAt          time.Time `json:"executed_at"`
	Status              string    `json:"status"` // COMPLETED, NO_DATA, FAILED
	CompetitorsAnalyzed int       `json:"competitors_analyzed"`
	TotalAdsProcessed   int       `json:"total_ads_processed"`
	DurationSeconds     int       `json:"duration_seconds"`
	ErrorMessage        string    `json:"error_message,omitempty"`
	CriticalLimitations []string  `json:"critical_limitations,omitempty"`
}

// TargetingIntel is one generated intelligence report for a user.
type TargetingIntel struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Model       string    `json:"model"`
	Insights    string    `json:"insights"` // JSON document from the model
}
