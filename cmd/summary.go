package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/marketingos/adsurv-cli/internal/summary"
)

var (
	summaryUser string
	summaryDate string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Roll up one day of metrics into the dashboard summary",
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

		date := summaryDate
		if date == "" {
			date = time.Now().UTC().Format("2006-01-02")
		}

		snap, wrote, err := summary.New(st).Run(ctx, summaryUser, date)
		if err != nil {
			return eris.Wrap(err, "daily summary")
		}
		if !wrote {
			return eris.Errorf("no metric rows for user %s on %s", summaryUser, date)
		}
		return printJSON(snap)
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryUser, "user", "", "user ID (required)")
	summaryCmd.Flags().StringVar(&summaryDate, "date", "", "date YYYY-MM-DD (default: today UTC)")
	_ = summaryCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(summaryCmd)
}
