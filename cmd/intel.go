package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/marketingos/adsurv-cli/internal/intel"
	anthropicpkg "github.com/marketingos/adsurv-cli/pkg/anthropic"
)

var (
	intelUser  string
	intelModel string
)

var intelCmd = &cobra.Command{
	Use:   "intel",
	Short: "Generate a targeting intelligence report from stored creatives",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic key is required (ADSURV_ANTHROPIC_KEY)")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		model := intelModel
		if model == "" {
			model = cfg.Anthropic.Model
		}

		gen := intel.New(anthropicpkg.NewClient(cfg.Anthropic.Key), st, model)
		report, err := gen.Generate(ctx, intelUser)
		if err != nil {
			return eris.Wrap(err, "generate intelligence")
		}
		if report == nil {
			return eris.Errorf("no creatives stored for user %s yet", intelUser)
		}
		return printJSON(report)
	},
}

func init() {
	intelCmd.Flags().StringVar(&intelUser, "user", "", "user ID (required)")
	intelCmd.Flags().StringVar(&intelModel, "model", "", "model override (default: config anthropic.model)")
	_ = intelCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(intelCmd)
}
