package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/marketingos/adsurv-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS users (
	user_id    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	is_active  BOOLEAN NOT NULL DEFAULT true,
	industry   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS competitors (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL,
	name_key   TEXT NOT NULL,
	user_id    TEXT NOT NULL REFERENCES users(user_id),
	is_active  BOOLEAN NOT NULL DEFAULT true,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_competitors_user_name_key
	ON competitors(user_id, name_key) WHERE is_active;

CREATE TABLE IF NOT EXISTS daily_metrics (
	id                      TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	date                    DATE NOT NULL,
	competitor_id           TEXT NOT NULL REFERENCES competitors(id),
	competitor_name         TEXT NOT NULL,
	ad_id                   TEXT,
	daily_spend             NUMERIC(12,2) NOT NULL,
	daily_impressions       BIGINT NOT NULL,
	daily_clicks            BIGINT NOT NULL,
	daily_ctr               NUMERIC(8,4) NOT NULL,
	spend_lower_bound       NUMERIC(12,2) NOT NULL,
	spend_upper_bound       NUMERIC(12,2) NOT NULL,
	impressions_lower_bound BIGINT NOT NULL,
	impressions_upper_bound BIGINT NOT NULL,
	creative                TEXT NOT NULL,
	creative_fingerprint    TEXT NOT NULL,
	platform                TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_daily_metrics_day_creative
	ON daily_metrics(competitor_id, platform, date, creative_fingerprint);
CREATE INDEX IF NOT EXISTS idx_daily_metrics_date ON daily_metrics(date);
CREATE INDEX IF NOT EXISTS idx_daily_metrics_competitor ON daily_metrics(competitor_id);

CREATE TABLE IF NOT EXISTS summary_metrics (
	user_id                TEXT NOT NULL REFERENCES users(user_id),
	period_start_date      DATE NOT NULL,
	period_end_date        DATE NOT NULL,
	total_competitor_spend NUMERIC(14,2) NOT NULL DEFAULT 0,
	active_campaigns_count BIGINT NOT NULL DEFAULT 0,
	total_impressions      BIGINT NOT NULL DEFAULT 0,
	average_ctr            NUMERIC(8,4) NOT NULL DEFAULT 0,
	platform_distribution  JSONB NOT NULL DEFAULT '{}',
	top_performers         JSONB NOT NULL DEFAULT '[]',
	PRIMARY KEY (user_id, period_start_date, period_end_date)
);

CREATE TABLE IF NOT EXISTS targeting_intel (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	user_id      TEXT NOT NULL REFERENCES users(user_id),
	generated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	model        TEXT NOT NULL,
	insights     JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_targeting_intel_user ON targeting_intel(user_id, generated_at DESC);

CREATE TABLE IF NOT EXISTS execution_logs (
	id                    TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	script_run_id         TEXT NOT NULL,
	user_id               TEXT NOT NULL,
	executed_at           TIMESTAMPTZ NOT NULL DEFAULT now(),
	status                TEXT NOT NULL,
	competitors_analyzed  BIGINT NOT NULL DEFAULT 0,
	total_ads_processed   BIGINT NOT NULL DEFAULT 0,
	duration_seconds      BIGINT NOT NULL DEFAULT 0,
	error_message         TEXT,
	critical_limitations  JSONB NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_execution_logs_user ON execution_logs(user_id, executed_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, name, email, is_active, industry, created_at FROM users WHERE user_id = $1`,
		userID,
	).Scan(&u.UserID, &u.Name, &u.Email, &u.IsActive, &u.Industry, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get user %s", userID)
	}
	return &u, nil
}

// UpsertCompetitor resolves the competitor row for (user, name),
// creating it if absent. Identity is canonical on lower(trim(name));
// the display name keeps the caller's casing from first creation.
func (s *PostgresStore) UpsertCompetitor(ctx context.Context, name, userID string) (*model.Competitor, error) {
	if userID == "" {
		return nil, eris.New("postgres: user id is required to upsert a competitor")
	}
	key := model.NameKey(name)
	if key == "" {
		return nil, eris.New("postgres: competitor name is empty")
	}

	var c model.Competitor
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, name_key, user_id, is_active, created_at, updated_at
		 FROM competitors
		 WHERE user_id = $1 AND name_key = $2 AND is_active
		 LIMIT 1`,
		userID, key,
	).Scan(&c.ID, &c.Name, &c.NameKey, &c.UserID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(err, "postgres: find competitor %s", key)
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	// DO UPDATE instead of DO NOTHING so RETURNING always yields the
	// surviving row when a concurrent upsert wins the race.
	err = s.pool.QueryRow(ctx,
		`INSERT INTO competitors (id, name, name_key, user_id, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, true, $5, $5)
		 ON CONFLICT (user_id, name_key) WHERE is_active
		 DO UPDATE SET updated_at = EXCLUDED.updated_at
		 RETURNING id, name, name_key, user_id, is_active, created_at, updated_at`,
		id, strings.TrimSpace(name), key, userID, now,
	).Scan(&c.ID, &c.Name, &c.NameKey, &c.UserID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert competitor %s", key)
	}
	return &c, nil
}

func (s *PostgresStore) ListCompetitorsByUser(ctx context.Context, userID string) ([]model.Competitor, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, name_key, user_id, is_active, created_at, updated_at
		 FROM competitors
		 WHERE user_id = $1 AND is_active
		 ORDER BY name ASC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list competitors")
	}
	defer rows.Close()

	// The unique index guarantees one active row per name_key, but
	// keep the dedupe so historical data from before the index
	// behaves the same.
	seen := make(map[string]bool)
	var out []model.Competitor
	for rows.Next() {
		var c model.Competitor
		if err := rows.Scan(&c.ID, &c.Name, &c.NameKey, &c.UserID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan competitor")
		}
		if seen[c.NameKey] {
			continue
		}
		seen[c.NameKey] = true
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list competitors iterate")
}

func (s *PostgresStore) HasDailyMetrics(ctx context.Context, competitorID string, platform model.Platform, date string) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM daily_metrics WHERE competitor_id = $1 AND platform = $2 AND date = $3`,
		competitorID, string(platform), date,
	).Scan(&count)
	if err != nil {
		return false, eris.Wrap(err, "postgres: check todays metrics")
	}
	return count > 0, nil
}

const dailyMetricColumns = `date, competitor_id, competitor_name, ad_id, daily_spend,
	daily_impressions, daily_clicks, daily_ctr, spend_lower_bound, spend_upper_bound,
	impressions_lower_bound, impressions_upper_bound, creative, creative_fingerprint, platform`

func dailyMetricArgs(m *model.DailyMetric) []any {
	return []any{
		m.Date, m.CompetitorID, m.CompetitorName, m.AdID, m.DailySpend,
		m.DailyImpressions, m.DailyClicks, m.DailyCTR, m.SpendLowerBound, m.SpendUpperBound,
		m.ImpressionsLowerBound, m.ImpressionsUpperBound, m.Creative, m.CreativeFingerprint, string(m.Platform),
	}
}

func (s *PostgresStore) InsertDailyMetric(ctx context.Context, m *model.DailyMetric) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	args := append([]any{m.ID}, dailyMetricArgs(m)...)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO daily_metrics (id, `+dailyMetricColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (competitor_id, platform, date, creative_fingerprint) DO NOTHING`,
		args...,
	)
	return eris.Wrapf(err, "postgres: insert daily metric for %s", m.CompetitorName)
}

// InsertDailyMetricsBatch writes all rows in a single multi-row
// INSERT. Returns the number of rows actually inserted; conflicting
// rows (another run won the same-day race) are skipped, not errors.
func (s *PostgresStore) InsertDailyMetricsBatch(ctx context.Context, metrics []model.DailyMetric) (int, error) {
	if len(metrics) == 0 {
		return 0, nil
	}

	const cols = 16
	placeholders := make([]string, 0, len(metrics))
	args := make([]any, 0, len(metrics)*cols)
	for i := range metrics {
		m := &metrics[i]
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		base := i * cols
		ph := make([]string, cols)
		for j := 0; j < cols; j++ {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")
		args = append(args, append([]any{m.ID}, dailyMetricArgs(m)...)...)
	}

	sql := `INSERT INTO daily_metrics (id, ` + dailyMetricColumns + `) VALUES ` +
		strings.Join(placeholders, ", ") +
		` ON CONFLICT (competitor_id, platform, date, creative_fingerprint) DO NOTHING`

	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: batch insert %d daily metrics", len(metrics))
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) ListDailyMetrics(ctx context.Context, filter MetricFilter) ([]model.DailyMetric, error) {
	query := `SELECT dm.id, dm.date::text, dm.competitor_id, dm.competitor_name, dm.ad_id,
		dm.daily_spend, dm.daily_impressions, dm.daily_clicks, dm.daily_ctr,
		dm.spend_lower_bound, dm.spend_upper_bound, dm.impressions_lower_bound,
		dm.impressions_upper_bound, dm.creative, dm.creative_fingerprint, dm.platform
		FROM daily_metrics dm`
	args := []any{}
	argIdx := 1

	if filter.UserID != "" {
		query += ` JOIN competitors c ON c.id = dm.competitor_id`
	}
	query += ` WHERE true`

	if filter.UserID != "" {
		query += fmt.Sprintf(` AND c.user_id = $%d`, argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.CompetitorID != "" {
		query += fmt.Sprintf(` AND dm.competitor_id = $%d`, argIdx)
		args = append(args, filter.CompetitorID)
		argIdx++
	}
	if filter.Platform != "" {
		query += fmt.Sprintf(` AND dm.platform = $%d`, argIdx)
		args = append(args, string(filter.Platform))
		argIdx++
	}
	if filter.Date != "" {
		query += fmt.Sprintf(` AND dm.date = $%d`, argIdx)
		args = append(args, filter.Date)
		argIdx++
	}
	query += ` ORDER BY dm.date DESC, dm.competitor_name ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list daily metrics")
	}
	defer rows.Close()

	var out []model.DailyMetric
	for rows.Next() {
		var m model.DailyMetric
		if err := rows.Scan(&m.ID, &m.Date, &m.CompetitorID, &m.CompetitorName, &m.AdID,
			&m.DailySpend, &m.DailyImpressions, &m.DailyClicks, &m.DailyCTR,
			&m.SpendLowerBound, &m.SpendUpperBound, &m.ImpressionsLowerBound,
			&m.ImpressionsUpperBound, &m.Creative, &m.CreativeFingerprint, &m.Platform); err != nil {
			return nil, eris.Wrap(err, "postgres: scan daily metric")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list daily metrics iterate")
}

// AggregateDailySummary rolls up one user's daily_metrics for one day.
// Returns a snapshot with ActiveCampaigns == 0 when there is no data.
func (s *PostgresStore) AggregateDailySummary(ctx context.Context, userID, date string) (*model.SummarySnapshot, error) {
	snap := &model.SummarySnapshot{
		UserID:               userID,
		PeriodStart:          date,
		PeriodEnd:            date,
		PlatformDistribution: map[string]int{},
	}

	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(dm.daily_spend), 0), COALESCE(SUM(dm.daily_impressions), 0),
		        COUNT(*), COALESCE(AVG(dm.daily_ctr), 0)
		 FROM daily_metrics dm
		 JOIN competitors c ON c.id = dm.competitor_id
		 WHERE c.user_id = $1 AND dm.date = $2`,
		userID, date,
	).Scan(&snap.TotalCompetitorSpend, &snap.TotalImpressions, &snap.ActiveCampaigns, &snap.AverageCTR)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: aggregate summary totals")
	}
	if snap.ActiveCampaigns == 0 {
		return snap, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT dm.platform, COUNT(*)
		 FROM daily_metrics dm
		 JOIN competitors c ON c.id = dm.competitor_id
		 WHERE c.user_id = $1 AND dm.date = $2
		 GROUP BY dm.platform`,
		userID, date,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: aggregate platform distribution")
	}
	defer rows.Close()
	for rows.Next() {
		var platform string
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan platform distribution")
		}
		snap.PlatformDistribution[platform] = count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: platform distribution iterate")
	}

	topRows, err := s.pool.Query(ctx,
		`SELECT dm.competitor_name, dm.platform, SUM(dm.daily_spend)
		 FROM daily_metrics dm
		 JOIN competitors c ON c.id = dm.competitor_id
		 WHERE c.user_id = $1 AND dm.date = $2
		 GROUP BY dm.competitor_name, dm.platform
		 ORDER BY SUM(dm.daily_spend) DESC
		 LIMIT 5`,
		userID, date,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: aggregate top performers")
	}
	defer topRows.Close()
	for topRows.Next() {
		var tp model.TopPerformer
		if err := topRows.Scan(&tp.CompetitorName, &tp.Platform, &tp.Spend); err != nil {
			return nil, eris.Wrap(err, "postgres: scan top performer")
		}
		snap.TopPerformers = append(snap.TopPerformers, tp)
	}
	return snap, eris.Wrap(topRows.Err(), "postgres: top performers iterate")
}

func (s *PostgresStore) UpsertSummary(ctx context.Context, snap *model.SummarySnapshot) error {
	distJSON, err := json.Marshal(snap.PlatformDistribution)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal platform distribution")
	}
	topJSON, err := json.Marshal(snap.TopPerformers)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal top performers")
	}
	if snap.TopPerformers == nil {
		topJSON = []byte("[]")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO summary_metrics
		 (user_id, period_start_date, period_end_date, total_competitor_spend,
		  active_campaigns_count, total_impressions, average_ctr,
		  platform_distribution, top_performers)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (user_id, period_start_date, period_end_date) DO UPDATE SET
		   total_competitor_spend = $4, active_campaigns_count = $5,
		   total_impressions = $6, average_ctr = $7,
		   platform_distribution = $8, top_performers = $9`,
		snap.UserID, snap.PeriodStart, snap.PeriodEnd, snap.TotalCompetitorSpend,
		snap.ActiveCampaigns, snap.TotalImpressions, snap.AverageCTR,
		distJSON, topJSON,
	)
	return eris.Wrapf(err, "postgres: upsert summary for user %s", snap.UserID)
}

func (s *PostgresStore) GetLatestSummary(ctx context.Context, userID string) (*model.SummarySnapshot, error) {
	var snap model.SummarySnapshot
	var distJSON, topJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, period_start_date::text, period_end_date::text,
		        total_competitor_spend, active_campaigns_count, total_impressions,
		        average_ctr, platform_distribution, top_performers
		 FROM summary_metrics
		 WHERE user_id = $1
		 ORDER BY period_end_date DESC
		 LIMIT 1`,
		userID,
	).Scan(&snap.UserID, &snap.PeriodStart, &snap.PeriodEnd,
		&snap.TotalCompetitorSpend, &snap.ActiveCampaigns, &snap.TotalImpressions,
		&snap.AverageCTR, &distJSON, &topJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get latest summary")
	}
	if err := json.Unmarshal(distJSON, &snap.PlatformDistribution); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal platform distribution")
	}
	if err := json.Unmarshal(topJSON, &snap.TopPerformers); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal top performers")
	}
	return &snap, nil
}

func (s *PostgresStore) ListRecentCreatives(ctx context.Context, userID string, limit int) ([]CreativeSample, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT dm.competitor_name, dm.platform, dm.date::text, dm.creative, dm.daily_spend
		 FROM daily_metrics dm
		 JOIN competitors c ON c.id = dm.competitor_id
		 WHERE c.user_id = $1
		 ORDER BY dm.date DESC, dm.daily_spend DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list recent creatives")
	}
	defer rows.Close()

	var out []CreativeSample
	for rows.Next() {
		var cs CreativeSample
		if err := rows.Scan(&cs.CompetitorName, &cs.Platform, &cs.Date, &cs.Creative, &cs.DailySpend); err != nil {
			return nil, eris.Wrap(err, "postgres: scan creative sample")
		}
		out = append(out, cs)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list recent creatives iterate")
}

func (s *PostgresStore) InsertTargetingIntel(ctx context.Context, ti *model.TargetingIntel) error {
	if ti.ID == "" {
		ti.ID = uuid.New().String()
	}
	if ti.GeneratedAt.IsZero() {
		ti.GeneratedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO targeting_intel (id, user_id, generated_at, model, insights)
		 VALUES ($1, $2, $3, $4, $5)`,
		ti.ID, ti.UserID, ti.GeneratedAt, ti.Model, []byte(ti.Insights),
	)
	return eris.Wrapf(err, "postgres: insert targeting intel for user %s", ti.UserID)
}

func (s *PostgresStore) InsertExecutionLog(ctx context.Context, l *model.ExecutionLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.ExecutedAt.IsZero() {
		l.ExecutedAt = time.Now().UTC()
	}
	limitsJSON, err := json.Marshal(l.CriticalLimitations)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal critical limitations")
	}
	if l.CriticalLimitations == nil {
		limitsJSON = []byte("[]")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO execution_logs
		 (id, script_run_id, user_id, executed_at, status, competitors_analyzed,
		  total_ads_processed, duration_seconds, error_message, critical_limitations)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.ScriptRunID, l.UserID, l.ExecutedAt, l.Status, l.CompetitorsAnalyzed,
		l.TotalAdsProcessed, l.DurationSeconds, nullIfEmpty(l.ErrorMessage), limitsJSON,
	)
	return eris.Wrap(err, "postgres: insert execution log")
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
