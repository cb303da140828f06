package cli

import (
	"fmt"
	"strconv"

	"sells-service/internal/analytics"
	"sells-service/internal/client"
	"sells-service/internal/domain/visit"

	"github.com/spf13/cobra"
)

func newVisitsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visits",
		Short: "List visits and change their status",
	}
	cmd.AddCommand(newVisitsListCmd(), newVisitStatusCmd())
	return cmd
}

func newVisitsListCmd() *cobra.Command {
	var q client.VisitQuery
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List visits, soonest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newAPIClient().ListVisits(cmd.Context(), q)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			if len(resp.Visits) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No visits found.")
				return nil
			}

			rows := make([][]string, 0, len(resp.Visits))
			for _, v := range resp.Visits {
				broker := "-"
				if v.BrokerID != nil {
					broker = strconv.FormatInt(*v.BrokerID, 10)
				}
				score := "-"
				if v.FeedbackScore != nil {
					score = strconv.Itoa(*v.FeedbackScore)
				}
				rows = append(rows, []string{
					v.UUID,
					v.ScheduledAt.Format("2006-01-02 15:04"),
					truncate(orDash(v.LeadName), 24),
					truncate(orDash(v.PropertyTitle), 30),
					broker,
					analytics.VisitStatusLabel(string(v.Status)),
					score,
				})
			}
			return table(cmd.OutOrStdout(), []string{"VISIT", "SCHEDULED", "LEAD", "PROPERTY", "BROKER", "STATUS", "SCORE"}, rows)
		},
	}
	cmd.Flags().StringVar(&q.Status, "status", "", "filter by status (pending|confirmed|completed|cancelled)")
	cmd.Flags().Int64Var(&q.BrokerID, "broker", 0, "filter by broker ID")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.PageSize, "page-size", 20, "visits per page (max 100)")
	return cmd
}

func newVisitStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <uuid> <status>",
		Short: "Change a visit's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newAPIClient().UpdateVisitStatus(cmd.Context(), args[0], visit.Status(args[1]))
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), v)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Visit %s is now %s\n", v.UUID, analytics.VisitStatusLabel(string(v.Status)))
			return nil
		},
	}
}
