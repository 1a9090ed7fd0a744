package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/marketingos/adsurv-cli/internal/model"
)

// Crawler fetches raw ad candidates from a platform's public ad
// library for one advertiser.
type Crawler interface {
	FetchMeta(ctx context.Context, competitor string, keywords []string) ([]model.AdCandidate, error)
	FetchLinkedIn(ctx context.Context, competitor string) ([]model.AdCandidate, error)
	FetchGoogle(ctx context.Context, competitor string) ([]model.AdCandidate, error)
}

// RunReport aggregates the outcomes of one multi-platform run.
type RunReport struct {
	UserID      string                `json:"user_id"`
	Date        string                `json:"date"`
	Competitors int                   `json:"competitors"`
	Outcomes    []model.IngestOutcome `json:"outcomes"`
	Failures    []RunFailure          `json:"failures,omitempty"`
}

// RunFailure records one competitor/platform attempt that errored.
type RunFailure struct {
	Competitor string         `json:"competitor"`
	Platform   model.Platform `json:"platform"`
	Error      string         `json:"error"`
}

// TotalInserted sums inserted rows across all outcomes.
func (r *RunReport) TotalInserted() int {
	total := 0
	for _, o := range r.Outcomes {
		total += o.Inserted
	}
	return total
}

// Driver runs the full surveillance pass: every competitor, Meta then
// LinkedIn. Google has its own single-platform entry point; its ad
// transparency center is too aggressive about blocking unattended
// crawls to belong in the scheduled run.
type Driver struct {
	orch    *Orchestrator
	crawler Crawler
}

// NewDriver wires an orchestrator to a crawler.
func NewDriver(orch *Orchestrator, crawler Crawler) *Driver {
	return &Driver{orch: orch, crawler: crawler}
}

// RunAllPlatforms ingests ads for every competitor in the list, Meta
// first, then LinkedIn. Competitor names are deduplicated
// case-insensitively, keeping the first spelling. Failures are
// isolated per competitor: when the Meta attempt errors, that
// competitor's LinkedIn pass is skipped and the run moves to the next
// name. Only a context cancellation stops the pass.
func (d *Driver) RunAllPlatforms(ctx context.Context, userID string, competitors []string, date string) (*RunReport, error) {
	report := &RunReport{UserID: userID, Date: date}

	seen := make(map[string]bool, len(competitors))
	var names []string
	for _, name := range competitors {
		key := model.NameKey(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		names = append(names, name)
	}
	report.Competitors = len(names)

	zap.L().Info("starting multi-platform run",
		zap.String("user_id", userID),
		zap.String("date", date),
		zap.Int("competitors", len(names)))

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, eris.Wrap(err, "ingest: run cancelled")
		}
		if !d.runOne(ctx, report, userID, name, model.PlatformMeta, date) {
			continue
		}
		d.runOne(ctx, report, userID, name, model.PlatformLinkedIn, date)
	}

	zap.L().Info("multi-platform run complete",
		zap.String("user_id", userID),
		zap.Int("outcomes", len(report.Outcomes)),
		zap.Int("failures", len(report.Failures)),
		zap.Int("inserted", report.TotalInserted()))
	return report, nil
}

// runOne crawls and ingests one competitor/platform pair. It reports
// false on error so the caller can skip the competitor's remaining
// platforms.
func (d *Driver) runOne(ctx context.Context, report *RunReport, userID, competitor string, platform model.Platform, date string) bool {
	candidates, err := d.fetch(ctx, competitor, platform)
	if err != nil {
		zap.L().Error("crawl failed",
			zap.String("competitor", competitor),
			zap.String("platform", platform.String()),
			zap.Error(err))
		report.Failures = append(report.Failures, RunFailure{
			Competitor: competitor, Platform: platform, Error: err.Error(),
		})
		return false
	}
	if len(candidates) == 0 {
		// Nothing to ingest; touching the store here would upsert a
		// competitor row for a library page that showed no ads.
		zap.L().Info("no ads found",
			zap.String("competitor", competitor),
			zap.String("platform", platform.String()))
		return true
	}

	outcome, err := d.orch.IngestAds(ctx, userID, competitor, platform, candidates, date)
	if outcome != nil {
		report.Outcomes = append(report.Outcomes, *outcome)
	}
	if err != nil {
		zap.L().Error("ingest failed",
			zap.String("competitor", competitor),
			zap.String("platform", platform.String()),
			zap.Error(err))
		report.Failures = append(report.Failures, RunFailure{
			Competitor: competitor, Platform: platform, Error: err.Error(),
		})
		return false
	}
	return true
}

func (d *Driver) fetch(ctx context.Context, competitor string, platform model.Platform) ([]model.AdCandidate, error) {
	switch platform {
	case model.PlatformMeta:
		// The competitor name doubles as the relevance keyword so
		// unrelated ads sharing the library page are filtered out.
		return d.crawler.FetchMeta(ctx, competitor, []string{competitor})
	case model.PlatformLinkedIn:
		return d.crawler.FetchLinkedIn(ctx, competitor)
	case model.PlatformGoogle:
		return d.crawler.FetchGoogle(ctx, competitor)
	default:
		return nil, eris.Errorf("ingest: unsupported platform %q", platform)
	}
}

// IngestPlatform crawls and ingests a single competitor on a single
// platform. Unlike RunAllPlatforms this path supports Google.
func (d *Driver) IngestPlatform(ctx context.Context, userID, competitor string, platform model.Platform, date string) (*model.IngestOutcome, error) {
	candidates, err := d.fetch(ctx, competitor, platform)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: crawl %s for %s", platform, competitor)
	}
	return d.orch.IngestAds(ctx, userID, competitor, platform, candidates, date)
}

// UserCompetitors resolves the competitor names to run for a user.
type UserCompetitors struct {
	UserID      string
	Competitors []string
}

// RunUsers executes RunAllPlatforms for several users concurrently,
// at most maxParallel at a time. Within each user the run stays
// sequential; the ad libraries tolerate little parallelism per source
// IP, so concurrency is spent across users, not within a run.
func (d *Driver) RunUsers(ctx context.Context, runs []UserCompetitors, date string, maxParallel int) ([]*RunReport, error) {
	if maxParallel <= 0 {
		maxParallel = 2
	}

	reports := make([]*RunReport, len(runs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for i, run := range runs {
		g.Go(func() error {
			report, err := d.RunAllPlatforms(ctx, run.UserID, run.Competitors, date)
			reports[i] = report
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return reports, eris.Wrap(err, "ingest: multi-user run")
	}
	return reports, nil
}
