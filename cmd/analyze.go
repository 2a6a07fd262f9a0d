package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/insightforge/company-intel/internal/model"
)

var (
	analyzeName string
	analyzeURL  string
	analyzeTier string
	analyzeWait bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Submit a company for analysis",
	Long:  "Submits a company through the dedup/cache gate. Prints the cached report when one exists, otherwise runs the tier pipeline.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tier, err := model.ParseTier(analyzeTier)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "analyze")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Orch.Submit(ctx, model.CompanyIdentity{Name: analyzeName, URL: analyzeURL}, tier)
		if err != nil {
			return err
		}

		if res.Cached {
			return printJSON(res.Report)
		}

		zap.L().Info("job submitted",
			zap.String("job_id", res.Job.ID),
			zap.String("tier", string(tier)),
			zap.Bool("attached", res.Attached),
		)
		if !analyzeWait {
			return printJSON(res.Job)
		}

		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}

			rec, err := env.Orch.Status(ctx, res.Job.ID)
			if err != nil {
				return err
			}
			zap.L().Info("progress",
				zap.Int("step", rec.Progress.CurrentStep),
				zap.Int("total", rec.Progress.TotalSteps),
				zap.String("label", rec.Progress.Label),
			)

			switch rec.State {
			case model.JobStateSuccess:
				rep, err := env.Orch.Report(ctx, rec.ResultRef)
				if err != nil {
					return err
				}
				return printJSON(rep)
			case model.JobStateFailure:
				return eris.Errorf("analysis failed: %s", rec.Error.Error())
			}
		}
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeName, "name", "", "company name (required)")
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "company website URL (required)")
	analyzeCmd.Flags().StringVar(&analyzeTier, "tier", "standard", "analysis tier: standard, comprehensive, universal")
	analyzeCmd.Flags().BoolVar(&analyzeWait, "wait", true, "poll until the job finishes and print the report")
	analyzeCmd.MarkFlagRequired("name")
	analyzeCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(analyzeCmd)
}
