package main

import (
	"github.com/spf13/cobra"

	"github.com/insightforge/company-intel/internal/model"
	"github.com/insightforge/company-intel/internal/store"
)

var (
	reportsTier  string
	reportsURL   string
	reportsLimit int
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List completed reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		filter := store.ReportFilter{CompanyURL: reportsURL, Limit: reportsLimit}
		if reportsTier != "" {
			tier, err := model.ParseTier(reportsTier)
			if err != nil {
				return err
			}
			filter.Tier = tier
		}

		reports, err := st.ListReports(ctx, filter)
		if err != nil {
			return err
		}

		type summary struct {
			ReportID    string `json:"report_id"`
			Company     string `json:"company"`
			URL         string `json:"url"`
			Tier        string `json:"tier"`
			CompletedAt string `json:"completed_at"`
		}
		out := make([]summary, 0, len(reports))
		for _, r := range reports {
			out = append(out, summary{
				ReportID:    r.ID,
				Company:     r.Identity.Name,
				URL:         r.Identity.URL,
				Tier:        string(r.Tier),
				CompletedAt: r.CompletedAt.Format("2006-01-02 15:04:05"),
			})
		}
		return printJSON(out)
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show <report-id>",
	Short: "Print one report in full",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		rep, err := st.GetReportByID(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(rep)
	},
}

func init() {
	reportsCmd.Flags().StringVar(&reportsTier, "tier", "", "filter by analysis tier")
	reportsCmd.Flags().StringVar(&reportsURL, "url", "", "filter by normalized company URL")
	reportsCmd.Flags().IntVar(&reportsLimit, "limit", 20, "maximum reports to list")
	reportsCmd.AddCommand(reportShowCmd)
	rootCmd.AddCommand(reportsCmd)
}
