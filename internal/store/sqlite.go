package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/marketingos/adsurv-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for
// local development and one-off runs without a Postgres instance.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	user_id    TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL UNIQUE,
	is_active  INTEGER NOT NULL DEFAULT 1,
	industry   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS competitors (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	name_key   TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	is_active  INTEGER NOT NULL DEFAULT 1,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_competitors_user_name_key
	ON competitors(user_id, name_key) WHERE is_active;

CREATE TABLE IF NOT EXISTS daily_metrics (
	id                      TEXT PRIMARY KEY,
	date                    TEXT NOT NULL,
	competitor_id           TEXT NOT NULL,
	competitor_name         TEXT NOT NULL,
	ad_id                   TEXT,
	daily_spend             REAL NOT NULL,
	daily_impressions       INTEGER NOT NULL,
	daily_clicks            INTEGER NOT NULL,
	daily_ctr               REAL NOT NULL,
	spend_lower_bound       REAL NOT NULL,
	spend_upper_bound       REAL NOT NULL,
	impressions_lower_bound INTEGER NOT NULL,
	impressions_upper_bound INTEGER NOT NULL,
	creative                TEXT NOT NULL,
	creative_fingerprint    TEXT NOT NULL,
	platform                TEXT NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_daily_metrics_day_creative
	ON daily_metrics(competitor_id, platform, date, creative_fingerprint);
CREATE INDEX IF NOT EXISTS idx_daily_metrics_date ON daily_metrics(date);

CREATE TABLE IF NOT EXISTS summary_metrics (
	user_id                TEXT NOT NULL,
	period_start_date      TEXT NOT NULL,
	period_end_date        TEXT NOT NULL,
	total_competitor_spend REAL NOT NULL DEFAULT 0,
	active_campaigns_count INTEGER NOT NULL DEFAULT 0,
	total_impressions      INTEGER NOT NULL DEFAULT 0,
	average_ctr            REAL NOT NULL DEFAULT 0,
	platform_distribution  TEXT NOT NULL DEFAULT '{}',
	top_performers         TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (user_id, period_start_date, period_end_date)
);

CREATE TABLE IF NOT EXISTS targeting_intel (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	generated_at DATETIME NOT NULL,
	model        TEXT NOT NULL,
	insights     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS execution_logs (
	id                    TEXT PRIMARY KEY,
	script_run_id         TEXT NOT NULL,
	user_id               TEXT NOT NULL,
	executed_at           DATETIME NOT NULL,
	status                TEXT NOT NULL,
	competitors_analyzed  INTEGER NOT NULL DEFAULT 0,
	total_ads_processed   INTEGER NOT NULL DEFAULT 0,
	duration_seconds      INTEGER NOT NULL DEFAULT 0,
	error_message         TEXT,
	critical_limitations  TEXT NOT NULL DEFAULT '[]'
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, email, is_active, industry, created_at FROM users WHERE user_id = ?`,
		userID,
	).Scan(&u.UserID, &u.Name, &u.Email, &u.IsActive, &u.Industry, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get user %s", userID)
	}
	return &u, nil
}

func (s *SQLiteStore) UpsertCompetitor(ctx context.Context, name, userID string) (*model.Competitor, error) {
	if userID == "" {
		return nil, eris.New("sqlite: user id is required to upsert a competitor")
	}
	key := model.NameKey(name)
	if key == "" {
		return nil, eris.New("sqlite: competitor name is empty")
	}

	var c model.Competitor
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, name_key, user_id, is_active, created_at, updated_at
		 FROM competitors WHERE user_id = ? AND name_key = ? AND is_active LIMIT 1`,
		userID, key,
	).Scan(&c.ID, &c.Name, &c.NameKey, &c.UserID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(err, "sqlite: find competitor %s", key)
	}

	now := time.Now().UTC()
	c = model.Competitor{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		NameKey:   key,
		UserID:    userID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO competitors (id, name, name_key, user_id, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		c.ID, c.Name, c.NameKey, c.UserID, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert competitor %s", key)
	}
	return &c, nil
}

func (s *SQLiteStore) ListCompetitorsByUser(ctx context.Context, userID string) ([]model.Competitor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, name_key, user_id, is_active, created_at, updated_at
		 FROM competitors WHERE user_id = ? AND is_active ORDER BY name ASC`,
		userID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list competitors")
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var out []model.Competitor
	for rows.Next() {
		var c model.Competitor
		if err := rows.Scan(&c.ID, &c.Name, &c.NameKey, &c.UserID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan competitor")
		}
		if seen[c.NameKey] {
			continue
		}
		seen[c.NameKey] = true
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list competitors iterate")
}

func (s *SQLiteStore) HasDailyMetrics(ctx context.Context, competitorID string, platform model.Platform, date string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM daily_metrics WHERE competitor_id = ? AND platform = ? AND date = ?`,
		competitorID, string(platform), date,
	).Scan(&count)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: check todays metrics")
	}
	return count > 0, nil
}

const sqliteMetricInsert = `INSERT INTO daily_metrics
	(id, date, competitor_id, competitor_name, ad_id, daily_spend, daily_impressions,
	 daily_clicks, daily_ctr, spend_lower_bound, spend_upper_bound,
	 impressions_lower_bound, impressions_upper_bound, creative, creative_fingerprint, platform)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (competitor_id, platform, date, creative_fingerprint) DO NOTHING`

func (s *SQLiteStore) InsertDailyMetric(ctx context.Context, m *model.DailyMetric) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, sqliteMetricInsert,
		m.ID, m.Date, m.CompetitorID, m.CompetitorName, m.AdID, m.DailySpend,
		m.DailyImpressions, m.DailyClicks, m.DailyCTR, m.SpendLowerBound, m.SpendUpperBound,
		m.ImpressionsLowerBound, m.ImpressionsUpperBound, m.Creative, m.CreativeFingerprint,
		string(m.Platform),
	)
	return eris.Wrapf(err, "sqlite: insert daily metric for %s", m.CompetitorName)
}

func (s *SQLiteStore) InsertDailyMetricsBatch(ctx context.Context, metrics []model.DailyMetric) (int, error) {
	if len(metrics) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin batch tx")
	}
	defer tx.Rollback()

	inserted := 0
	for i := range metrics {
		m := &metrics[i]
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		res, err := tx.ExecContext(ctx, sqliteMetricInsert,
			m.ID, m.Date, m.CompetitorID, m.CompetitorName, m.AdID, m.DailySpend,
			m.DailyImpressions, m.DailyClicks, m.DailyCTR, m.SpendLowerBound, m.SpendUpperBound,
			m.ImpressionsLowerBound, m.ImpressionsUpperBound, m.Creative, m.CreativeFingerprint,
			string(m.Platform),
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: batch insert %d daily metrics", len(metrics))
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit batch tx")
	}
	return inserted, nil
}

func (s *SQLiteStore) ListDailyMetrics(ctx context.Context, filter MetricFilter) ([]model.DailyMetric, error) {
	query := `SELECT dm.id, dm.date, dm.competitor_id, dm.competitor_name, dm.ad_id,
		dm.daily_spend, dm.daily_impressions, dm.daily_clicks, dm.daily_ctr,
		dm.spend_lower_bound, dm.spend_upper_bound, dm.impressions_lower_bound,
		dm.impressions_upper_bound, dm.creative, dm.creative_fingerprint, dm.platform
		FROM daily_metrics dm`
	var args []any

	if filter.UserID != "" {
		query += ` JOIN competitors c ON c.id = dm.competitor_id`
	}
	query += ` WHERE 1=1`
	if filter.UserID != "" {
		query += ` AND c.user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.CompetitorID != "" {
		query += ` AND dm.competitor_id = ?`
		args = append(args, filter.CompetitorID)
	}
	if filter.Platform != "" {
		query += ` AND dm.platform = ?`
		args = append(args, string(filter.Platform))
	}
	if filter.Date != "" {
		query += ` AND dm.date = ?`
		args = append(args, filter.Date)
	}
	query += ` ORDER BY dm.date DESC, dm.competitor_name ASC LIMIT ?`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list daily metrics")
	}
	defer rows.Close()

	var out []model.DailyMetric
	for rows.Next() {
		var m model.DailyMetric
		if err := rows.Scan(&m.ID, &m.Date, &m.CompetitorID, &m.CompetitorName, &m.AdID,
			&m.DailySpend, &m.DailyImpressions, &m.DailyClicks, &m.DailyCTR,
			&m.SpendLowerBound, &m.SpendUpperBound, &m.ImpressionsLowerBound,
			&m.ImpressionsUpperBound, &m.Creative, &m.CreativeFingerprint, &m.Platform); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan daily metric")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list daily metrics iterate")
}

func (s *SQLiteStore) AggregateDailySummary(ctx context.Context, userID, date string) (*model.SummarySnapshot, error) {
	snap := &model.SummarySnapshot{
		UserID:               userID,
		PeriodStart:          date,
		PeriodEnd:            date,
		PlatformDistribution: map[string]int{},
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(dm.daily_spend), 0), COALESCE(SUM(dm.daily_impressions), 0),
		        COUNT(*), COALESCE(AVG(dm.daily_ctr), 0)
		 FROM daily_metrics dm
		 JOIN competitors c ON c.id = dm.competitor_id
		 WHERE c.user_id = ? AND dm.date = ?`,
		userID, date,
	).Scan(&snap.TotalCompetitorSpend, &snap.TotalImpressions, &snap.ActiveCampaigns, &snap.AverageCTR)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: aggregate summary totals")
	}
	if snap.ActiveCampaigns == 0 {
		return snap, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT dm.platform, COUNT(*)
		 FROM daily_metrics dm
		 JOIN competitors c ON c.id = dm.competitor_id
		 WHERE c.user_id = ? AND dm.date = ?
		 GROUP BY dm.platform`,
		userID, date,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: aggregate platform distribution")
	}
	defer rows.Close()
	for rows.Next() {
		var platform string
		var count int
		if err := rows.Scan(&platform, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan platform distribution")
		}
		snap.PlatformDistribution[platform] = count
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: platform distribution iterate")
	}

	topRows, err := s.db.QueryContext(ctx,
		`SELECT dm.competitor_name, dm.platform, SUM(dm.daily_spend)
		 FROM daily_metrics dm
		 JOIN competitors c ON c.id = dm.competitor_id
		 WHERE c.user_id = ? AND dm.date = ?
		 GROUP BY dm.competitor_name, dm.platform
		 ORDER BY SUM(dm.daily_spend) DESC
		 LIMIT 5`,
		userID, date,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: aggregate top performers")
	}
	defer topRows.Close()
	for topRows.Next() {
		var tp model.TopPerformer
		if err := topRows.Scan(&tp.CompetitorName, &tp.Platform, &tp.Spend); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan top performer")
		}
		snap.TopPerformers = append(snap.TopPerformers, tp)
	}
	return snap, eris.Wrap(topRows.Err(), "sqlite: top performers iterate")
}

func (s *SQLiteStore) UpsertSummary(ctx context.Context, snap *model.SummarySnapshot) error {
	distJSON, err := json.Marshal(snap.PlatformDistribution)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal platform distribution")
	}
	topJSON, err := json.Marshal(snap.TopPerformers)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal top performers")
	}
	if snap.TopPerformers == nil {
		topJSON = []byte("[]")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO summary_metrics
		 (user_id, period_start_date, period_end_date, total_competitor_spend,
		  active_campaigns_count, total_impressions, average_ctr,
		  platform_distribution, top_performers)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, period_start_date, period_end_date) DO UPDATE SET
		   total_competitor_spend = excluded.total_competitor_spend,
		   active_campaigns_count = excluded.active_campaigns_count,
		   total_impressions = excluded.total_impressions,
		   average_ctr = excluded.average_ctr,
		   platform_distribution = excluded.platform_distribution,
		   top_performers = excluded.top_performers`,
		snap.UserID, snap.PeriodStart, snap.PeriodEnd, snap.TotalCompetitorSpend,
		snap.ActiveCampaigns, snap.TotalImpressions, snap.AverageCTR,
		string(distJSON), string(topJSON),
	)
	return eris.Wrapf(err, "sqlite: upsert summary for user %s", snap.UserID)
}

func (s *SQLiteStore) GetLatestSummary(ctx context.Context, userID string) (*model.SummarySnapshot, error) {
	var snap model.SummarySnapshot
	var distJSON, topJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, period_start_date, period_end_date,
		        total_competitor_spend, active_campaigns_count, total_impressions,
		        average_ctr, platform_distribution, top_performers
		 FROM summary_metrics
		 WHERE user_id = ?
		 ORDER BY period_end_date DESC
		 LIMIT 1`,
		userID,
	).Scan(&snap.UserID, &snap.PeriodStart, &snap.PeriodEnd,
		&snap.TotalCompetitorSpend, &snap.ActiveCampaigns, &snap.TotalImpressions,
		&snap.AverageCTR, &distJSON, &topJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get latest summary")
	}
	if err := json.Unmarshal([]byte(distJSON), &snap.PlatformDistribution); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal platform distribution")
	}
	if err := json.Unmarshal([]byte(topJSON), &snap.TopPerformers); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal top performers")
	}
	return &snap, nil
}

func (s *SQLiteStore) ListRecentCreatives(ctx context.Context, userID string, limit int) ([]CreativeSample, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT dm.competitor_name, dm.platform, dm.date, dm.creative, dm.daily_spend
		 FROM daily_metrics dm
		 JOIN competitors c ON c.id = dm.competitor_id
		 WHERE c.user_id = ?
		 ORDER BY dm.date DESC, dm.daily_spend DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list recent creatives")
	}
	defer rows.Close()

	var out []CreativeSample
	for rows.Next() {
		var cs CreativeSample
		if err := rows.Scan(&cs.CompetitorName, &cs.Platform, &cs.Date, &cs.Creative, &cs.DailySpend); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan creative sample")
		}
		out = append(out, cs)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list recent creatives iterate")
}

func (s *SQLiteStore) InsertTargetingIntel(ctx context.Context, ti *model.TargetingIntel) error {
	if ti.ID == "" {
		ti.ID = uuid.New().String()
	}
	if ti.GeneratedAt.IsZero() {
		ti.GeneratedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO targeting_intel (id, user_id, generated_at, model, insights)
		 VALUES (?, ?, ?, ?, ?)`,
		ti.ID, ti.UserID, ti.GeneratedAt, ti.Model, ti.Insights,
	)
	return eris.Wrapf(err, "sqlite: insert targeting intel for user %s", ti.UserID)
}

func (s *SQLiteStore) InsertExecutionLog(ctx context.Context, l *model.ExecutionLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.ExecutedAt.IsZero() {
		l.ExecutedAt = time.Now().UTC()
	}
	limitsJSON, err := json.Marshal(l.CriticalLimitations)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal critical limitations")
	}
	if l.CriticalLimitations == nil {
		limitsJSON = []byte("[]")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO execution_logs
		 (id, script_run_id, user_id, executed_at, status, competitors_analyzed,
		  total_ads_processed, duration_seconds, error_message, critical_limitations)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.ScriptRunID, l.UserID, l.ExecutedAt, l.Status, l.CompetitorsAnalyzed,
		l.TotalAdsProcessed, l.DurationSeconds, nullIfEmpty(l.ErrorMessage), string(limitsJSON),
	)
	return eris.Wrap(err, "sqlite: insert execution log")
}
