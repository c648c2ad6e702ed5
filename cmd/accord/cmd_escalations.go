package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"accord/internal/escalation"
)

var escalationsStatus string

var escalationsCmd = &cobra.Command{
	Use:   "escalations",
	Short: "Inspect and maintain pending decision requests",
}

var escalationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List escalations, optionally filtered by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		var filter []escalation.Status
		if escalationsStatus != "" {
			filter = append(filter, escalation.Status(strings.ToLower(escalationsStatus)))
		}
		escs, err := a.manager.List(filter...)
		if err != nil {
			return err
		}
		if len(escs) == 0 {
			fmt.Println("No escalations.")
			return nil
		}

		fmt.Printf("%-36s  %-8s  %-13s  %-19s  %s\n", "ID", "PRIORITY", "STATUS", "CREATED", "CHOSEN")
		for _, e := range escs {
			chosen := e.ChosenOption
			if chosen == "" {
				chosen = "-"
			}
			fmt.Printf("%-36s  %-8s  %-13s  %-19s  %s\n",
				e.ID, e.Priority, e.Status, e.CreatedAt.Format("2006-01-02 15:04:05"), chosen)
		}
		return nil
	},
}

var escalationsTimeoutsCmd = &cobra.Command{
	Use:   "check-timeouts",
	Short: "Sweep open escalations against their SLA deadlines",
	Long: `check-timeouts sends overdue reminders, auto-selects the
recommended option on expired standard and low tiers, and marks expired
critical and high tiers as timed out for mandatory human follow-up.
Safe to run from cron; the sweep never touches settled escalations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		report, err := a.manager.CheckTimeouts(context.Background())
		if err != nil {
			return err
		}
		logger.Info("Timeout sweep complete",
			zap.Int("checked", report.Checked),
			zap.Int("reminded", len(report.Reminded)),
			zap.Int("autoSelected", len(report.AutoSelected)),
			zap.Int("timedOut", len(report.TimedOut)))
		fmt.Printf("%d open escalation(s): %d reminded, %d auto-selected, %d timed out\n",
			report.Checked, len(report.Reminded), len(report.AutoSelected), len(report.TimedOut))
		return nil
	},
}

var respondCmd = &cobra.Command{
	Use:   "respond <escalation-id> <reply...>",
	Short: "Record a human reply to an escalation",
	Long: `respond feeds a free-text reply into the escalation state
machine: an option letter settles it, "explain" posts more detail, and
"custom: <text>" records a preference for manual follow-up.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		id := args[0]
		text := strings.Join(args[1:], " ")
		esc, err := a.manager.ProcessResponse(context.Background(), id, text)
		if err != nil {
			return err
		}

		switch esc.Status {
		case escalation.StatusResolved:
			fmt.Printf("Escalation %s resolved with option %s.\n", esc.ID, esc.ChosenOption)
		case escalation.StatusAwaitingInfo:
			fmt.Printf("Escalation %s is awaiting further information.\n", esc.ID)
		default:
			fmt.Printf("Escalation %s remains %s; reply was not understood.\n", esc.ID, esc.Status)
		}
		return nil
	},
}

func init() {
	escalationsListCmd.Flags().StringVar(&escalationsStatus, "status", "",
		"Filter by status: pending, awaiting_info, resolved, auto_selected, timeout")
	escalationsCmd.AddCommand(escalationsListCmd)
	escalationsCmd.AddCommand(escalationsTimeoutsCmd)
}
