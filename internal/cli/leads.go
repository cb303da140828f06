package cli

import (
	"fmt"
	"strconv"

	"sells-service/internal/analytics"
	"sells-service/internal/client"
	"sells-service/internal/domain/lead"

	"github.com/spf13/cobra"
)

func newLeadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leads",
		Short: "List, inspect and update leads",
	}
	cmd.AddCommand(newLeadsListCmd(), newLeadShowCmd(), newLeadConversationCmd(), newLeadStatusCmd())
	return cmd
}

func newLeadsListCmd() *cobra.Command {
	var q client.LeadQuery
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List leads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newAPIClient().ListLeads(cmd.Context(), q)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			if len(resp.Leads) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No leads found.")
				return nil
			}

			rows := make([][]string, 0, len(resp.Leads))
			for _, l := range resp.Leads {
				rows = append(rows, []string{
					strconv.FormatInt(l.ID, 10),
					truncate(orDash(l.Name), 30),
					l.Phone,
					analytics.LeadStatusLabel(string(l.Status)),
					analytics.SourceLabel(l.Source),
					l.CreatedAt.Format("2006-01-02"),
				})
			}
			if err := table(cmd.OutOrStdout(), []string{"ID", "NAME", "PHONE", "STATUS", "SOURCE", "CREATED"}, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nPage %d of %d (%d leads)\n", resp.Page, resp.TotalPages, resp.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&q.Status, "status", "", "filter by status")
	cmd.Flags().StringVar(&q.Search, "search", "", "match name or phone")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.PageSize, "page-size", 20, "leads per page (max 100)")
	return cmd
}

func newLeadShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a lead with its visits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "lead")
			if err != nil {
				return err
			}
			l, err := newAPIClient().GetLead(cmd.Context(), id)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), l)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Lead #%d\n", l.ID)
			fmt.Fprintf(out, "  Name:    %s\n", orDash(l.Name))
			fmt.Fprintf(out, "  Phone:   %s\n", l.Phone)
			fmt.Fprintf(out, "  Status:  %s\n", analytics.LeadStatusLabel(string(l.Status)))
			fmt.Fprintf(out, "  Source:  %s\n", analytics.SourceLabel(l.Source))
			if l.PropertyTitle != nil {
				fmt.Fprintf(out, "  Imóvel:  %s\n", *l.PropertyTitle)
			}
			if l.QualificationScore != nil {
				fmt.Fprintf(out, "  Score:   %d\n", *l.QualificationScore)
			}
			if len(l.Visits) == 0 {
				return nil
			}

			fmt.Fprintln(out)
			rows := make([][]string, 0, len(l.Visits))
			for _, v := range l.Visits {
				rows = append(rows, []string{v.UUID, v.ScheduledAt.Format("2006-01-02 15:04"), truncate(orDash(v.PropertyTitle), 30), analytics.VisitStatusLabel(string(v.Status))})
			}
			return table(out, []string{"VISIT", "SCHEDULED", "PROPERTY", "STATUS"}, rows)
		},
	}
}

func newLeadConversationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conversation <id>",
		Short: "Print the lead's WhatsApp conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "lead")
			if err != nil {
				return err
			}
			thread, err := newAPIClient().Conversation(cmd.Context(), id)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), thread)
			}
			if len(thread.Messages) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No messages.")
				return nil
			}
			for _, m := range thread.Messages {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", m.CreatedAt.Format("2006-01-02 15:04"), m.Role, m.Content)
			}
			return nil
		},
	}
}

func newLeadStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a lead along the pipeline",
		Long:  "Set a lead's status. Statuses only move forward, except lost, which any open lead can reach.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "lead")
			if err != nil {
				return err
			}
			l, err := newAPIClient().UpdateLeadStatus(cmd.Context(), id, lead.Status(args[1]))
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), l)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Lead #%d is now %s\n", l.ID, analytics.LeadStatusLabel(string(l.Status)))
			return nil
		},
	}
}

func parseID(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID: %s", what, raw)
	}
	return id, nil
}
