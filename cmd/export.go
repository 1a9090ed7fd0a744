package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/marketingos/adsurv-cli/internal/export"
	"github.com/marketingos/adsurv-cli/internal/model"
	"github.com/marketingos/adsurv-cli/internal/store"
)

var (
	exportUser     string
	exportDate     string
	exportPlatform string
	exportLimit    int
	exportOut      string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored metrics to an xlsx workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		filter := store.MetricFilter{
			UserID: exportUser,
			Date:   exportDate,
			Limit:  exportLimit,
		}
		if exportPlatform != "" {
			platform, ok := model.ParsePlatform(exportPlatform)
			if !ok {
				return eris.Errorf("unknown platform %q", exportPlatform)
			}
			filter.Platform = platform
		}

		rows, err := export.New(st).WriteWorkbook(ctx, filter, exportOut)
		if err != nil {
			return eris.Wrap(err, "export workbook")
		}
		zap.L().Info("export complete", zap.String("path", exportOut), zap.Int("rows", rows))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportUser, "user", "", "filter by user ID (also adds a summary sheet)")
	exportCmd.Flags().StringVar(&exportDate, "date", "", "filter by date YYYY-MM-DD")
	exportCmd.Flags().StringVar(&exportPlatform, "platform", "", "filter by platform")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 1000, "maximum metric rows")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (required)")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}
