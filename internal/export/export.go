// Package export writes stored metrics and summaries to an xlsx
// workbook for offline analysis.
package export

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/marketingos/adsurv-cli/internal/store"
)

// Exporter writes workbooks from the store.
type Exporter struct {
	store store.Store
}

// New creates an Exporter.
func New(st store.Store) *Exporter {
	return &Exporter{store: st}
}

var metricHeaders = []string{
	"Date", "Competitor", "Platform", "Creative",
	"Daily Spend", "Spend Low", "Spend High",
	"Impressions", "Impressions Low", "Impressions High",
	"Clicks", "CTR",
}

// WriteWorkbook exports the metrics matching filter to path. When the
// filter names a user, their latest summary is added as a second
// sheet. Returns the number of metric rows written.
func (e *Exporter) WriteWorkbook(ctx context.Context, filter store.MetricFilter, path string) (int, error) {
	metrics, err := e.store.ListDailyMetrics(ctx, filter)
	if err != nil {
		return 0, eris.Wrap(err, "export: list metrics")
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Daily Metrics")
	if err != nil {
		return 0, eris.Wrap(err, "export: add metrics sheet")
	}

	header := sheet.AddRow()
	for _, h := range metricHeaders {
		header.AddCell().SetString(h)
	}
	for _, m := range metrics {
		row := sheet.AddRow()
		row.AddCell().SetString(m.Date)
		row.AddCell().SetString(m.CompetitorName)
		row.AddCell().SetString(m.Platform.String())
		row.AddCell().SetString(m.Creative)
		row.AddCell().SetFloat(m.DailySpend)
		row.AddCell().SetFloat(m.SpendLowerBound)
		row.AddCell().SetFloat(m.SpendUpperBound)
		row.AddCell().SetInt(m.DailyImpressions)
		row.AddCell().SetInt(m.ImpressionsLowerBound)
		row.AddCell().SetInt(m.ImpressionsUpperBound)
		row.AddCell().SetInt(m.DailyClicks)
		row.AddCell().SetFloat(m.DailyCTR)
	}

	if filter.UserID != "" {
		if err := e.addSummarySheet(ctx, f, filter.UserID); err != nil {
			return 0, err
		}
	}

	if err := f.Save(path); err != nil {
		return 0, eris.Wrapf(err, "export: save %s", path)
	}
	zap.L().Info("workbook exported",
		zap.String("path", path),
		zap.Int("metric_rows", len(metrics)))
	return len(metrics), nil
}

func (e *Exporter) addSummarySheet(ctx context.Context, f *xlsx.File, userID string) error {
	snap, err := e.store.GetLatestSummary(ctx, userID)
	if err != nil {
		return eris.Wrap(err, "export: load summary")
	}
	if snap == nil {
		return nil
	}

	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	addKV := func(k, v string) {
		row := sheet.AddRow()
		row.AddCell().SetString(k)
		row.AddCell().SetString(v)
	}
	addKV("Period", snap.PeriodStart+" to "+snap.PeriodEnd)
	addKV("Total Competitor Spend", fmt.Sprintf("%.2f", snap.TotalCompetitorSpend))
	addKV("Active Campaigns", fmt.Sprintf("%d", snap.ActiveCampaigns))
	addKV("Total Impressions", fmt.Sprintf("%d", snap.TotalImpressions))
	addKV("Average CTR", fmt.Sprintf("%.4f", snap.AverageCTR))
	for platform, count := range snap.PlatformDistribution {
		addKV("Ads on "+platform, fmt.Sprintf("%d", count))
	}
	for i, tp := range snap.TopPerformers {
		addKV(fmt.Sprintf("Top %d", i+1),
			fmt.Sprintf("%s (%s) %.2f", tp.CompetitorName, tp.Platform, tp.Spend))
	}
	return nil
}
