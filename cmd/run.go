package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marketingos/adsurv-cli/internal/crawler"
	"github.com/marketingos/adsurv-cli/internal/ingest"
	"github.com/marketingos/adsurv-cli/internal/intel"
	"github.com/marketingos/adsurv-cli/internal/model"
	"github.com/marketingos/adsurv-cli/internal/store"
	"github.com/marketingos/adsurv-cli/internal/summary"
	anthropicpkg "github.com/marketingos/adsurv-cli/pkg/anthropic"
)

var (
	runUsers       []string
	runCompetitors []string
	runDate        string
	runSkipIntel   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full surveillance pass for one or more users",
	Long: "Crawls Meta and LinkedIn ad libraries for each competitor, ingests estimated metrics, " +
		"rolls up the daily summary, and generates a targeting intelligence report. " +
		"The summary and intelligence stages are best effort; a failure there does not undo the ingested metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		date := runDate
		if date == "" {
			date = time.Now().UTC().Format("2006-01-02")
		}

		driver := ingest.NewDriver(ingest.New(st), crawler.New(cfg.Crawler))

		if len(runUsers) == 1 {
			report, err := runForUser(ctx, st, driver, runUsers[0], runCompetitors, date)
			if err != nil {
				return err
			}
			return printJSON(report)
		}

		// Multi-user fan-out: competitor lists come from the store.
		var runs []ingest.UserCompetitors
		for _, userID := range runUsers {
			names, err := storedCompetitors(ctx, st, userID)
			if err != nil {
				return err
			}
			runs = append(runs, ingest.UserCompetitors{UserID: userID, Competitors: names})
		}
		reports, err := driver.RunUsers(ctx, runs, date, cfg.Run.MaxConcurrentUsers)
		if err != nil {
			return eris.Wrap(err, "multi-user run")
		}
		for _, report := range reports {
			if report == nil {
				continue
			}
			runPostStages(ctx, st, report)
		}
		return printJSON(reports)
	},
}

// runForUser executes the three stages for a single user and records
// an execution log row.
func runForUser(ctx context.Context, st store.Store, driver *ingest.Driver, userID string, competitors []string, date string) (*ingest.RunReport, error) {
	started := time.Now()
	execLog := &model.ExecutionLog{
		ScriptRunID: uuid.New().String(),
		UserID:      userID,
		Status:      "COMPLETED",
	}

	user, err := st.GetUser(ctx, userID)
	if err != nil {
		return nil, eris.Wrap(err, "load user")
	}
	if user == nil || !user.IsActive {
		return nil, eris.Errorf("user %s not found or inactive", userID)
	}

	if len(competitors) == 0 {
		competitors, err = storedCompetitors(ctx, st, userID)
		if err != nil {
			return nil, err
		}
	}
	if len(competitors) == 0 {
		execLog.Status = "NO_DATA"
		execLog.DurationSeconds = int(time.Since(started).Seconds())
		if logErr := st.InsertExecutionLog(ctx, execLog); logErr != nil {
			zap.L().Warn("execution log write failed", zap.Error(logErr))
		}
		return nil, eris.Errorf("user %s has no competitors to track", userID)
	}

	report, err := driver.RunAllPlatforms(ctx, userID, competitors, date)
	if err != nil {
		execLog.Status = "FAILED"
		execLog.ErrorMessage = err.Error()
		execLog.DurationSeconds = int(time.Since(started).Seconds())
		if logErr := st.InsertExecutionLog(ctx, execLog); logErr != nil {
			zap.L().Warn("execution log write failed", zap.Error(logErr))
		}
		return report, eris.Wrap(err, "surveillance run")
	}

	runPostStages(ctx, st, report)

	execLog.CompetitorsAnalyzed = report.Competitors
	execLog.TotalAdsProcessed = report.TotalInserted()
	execLog.DurationSeconds = int(time.Since(started).Seconds())
	for _, f := range report.Failures {
		execLog.CriticalLimitations = append(execLog.CriticalLimitations,
			f.Competitor+"/"+f.Platform.String()+": "+f.Error)
	}
	if report.TotalInserted() == 0 {
		execLog.Status = "NO_DATA"
	}
	if err := st.InsertExecutionLog(ctx, execLog); err != nil {
		zap.L().Warn("execution log write failed", zap.Error(err))
	}
	return report, nil
}

// runPostStages rolls up the daily summary and generates targeting
// intelligence. Both are best effort.
func runPostStages(ctx context.Context, st store.Store, report *ingest.RunReport) {
	if _, _, err := summary.New(st).Run(ctx, report.UserID, report.Date); err != nil {
		zap.L().Error("summary stage failed", zap.Error(err))
	}

	if runSkipIntel {
		return
	}
	if cfg.Anthropic.Key == "" {
		zap.L().Warn("no Anthropic key configured, skipping intelligence stage")
		return
	}
	gen := intel.New(anthropicpkg.NewClient(cfg.Anthropic.Key), st, cfg.Anthropic.Model)
	if _, err := gen.Generate(ctx, report.UserID); err != nil {
		zap.L().Error("intelligence stage failed", zap.Error(err))
	}
}

func storedCompetitors(ctx context.Context, st store.Store, userID string) ([]string, error) {
	stored, err := st.ListCompetitorsByUser(ctx, userID)
	if err != nil {
		return nil, eris.Wrapf(err, "load competitors for %s", userID)
	}
	names := make([]string, 0, len(stored))
	for _, c := range stored {
		names = append(names, c.Name)
	}
	return names, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	runCmd.Flags().StringSliceVar(&runUsers, "user", nil, "user ID to run for (repeatable)")
	runCmd.Flags().StringSliceVar(&runCompetitors, "competitors", nil, "competitor names (single-user runs only; default: stored list)")
	runCmd.Flags().StringVar(&runDate, "date", "", "metrics date YYYY-MM-DD (default: today UTC)")
	runCmd.Flags().BoolVar(&runSkipIntel, "skip-intel", false, "skip the targeting intelligence stage")
	_ = runCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(runCmd)
}
