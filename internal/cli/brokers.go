package cli

import (
	"fmt"
	"strconv"

	"sells-service/internal/client"
	"sells-service/internal/domain/broker"

	"github.com/spf13/cobra"
)

func newBrokersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brokers",
		Short: "Manage brokers and view their ranking",
	}
	cmd.AddCommand(newBrokersListCmd(), newBrokerAddCmd(), newBrokerDeactivateCmd(), newBrokerRankingCmd())
	return cmd
}

func newBrokersListCmd() *cobra.Command {
	var q client.BrokerQuery
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List brokers with their visit stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newAPIClient().ListBrokers(cmd.Context(), q)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			if len(resp.Data) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No brokers found.")
				return nil
			}

			rows := make([][]string, 0, len(resp.Data))
			for _, b := range resp.Data {
				creci := "-"
				if b.Creci != nil {
					creci = *b.Creci
				}
				rows = append(rows, []string{
					strconv.FormatInt(b.ID, 10),
					truncate(b.Name, 30),
					b.Phone,
					creci,
					string(b.Status),
					strconv.FormatInt(b.TotalVisits, 10),
					strconv.FormatInt(b.CompletedVisits, 10),
					strconv.FormatFloat(b.AvgFeedbackScore, 'f', 1, 64),
				})
			}
			return table(cmd.OutOrStdout(), []string{"ID", "NAME", "PHONE", "CRECI", "STATUS", "VISITS", "DONE", "AVG"}, rows)
		},
	}
	cmd.Flags().StringVar(&q.Status, "status", "", "filter by status (active|inactive)")
	cmd.Flags().StringVar(&q.Search, "search", "", "match name, email, phone or CRECI")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.PerPage, "per-page", 20, "brokers per page (max 100)")
	return cmd
}

func newBrokerAddCmd() *cobra.Command {
	var req broker.CreateBrokerRequest
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a broker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newAPIClient().CreateBroker(cmd.Context(), req)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), b)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Broker #%d created: %s (%s)\n", b.ID, b.Name, b.Phone)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "broker name (required)")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "WhatsApp phone (required, unique)")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Creci, "creci", "", "CRECI license number")
	return cmd
}

func newBrokerDeactivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate a broker; history is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "broker")
			if err != nil {
				return err
			}
			if err := newAPIClient().DeactivateBroker(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Broker #%d deactivated\n", id)
			return nil
		},
	}
}

func newBrokerRankingCmd() *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "ranking",
		Short: "Rank active brokers by completed visits, then feedback",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newAPIClient().Ranking(cmd.Context(), period)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			if len(resp.Data) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No brokers to rank.")
				return nil
			}

			rows := make([][]string, 0, len(resp.Data))
			for _, r := range resp.Data {
				rows = append(rows, []string{
					strconv.Itoa(r.Rank),
					truncate(r.Name, 30),
					strconv.FormatInt(r.CompletedVisits, 10),
					strconv.FormatFloat(r.AvgFeedbackScore, 'f', 1, 64),
				})
			}
			return table(cmd.OutOrStdout(), []string{"#", "BROKER", "COMPLETED", "AVG SCORE"}, rows)
		},
	}
	cmd.Flags().StringVar(&period, "period", "30d", "time window (7d|30d|90d)")
	return cmd
}
