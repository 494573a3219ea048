package kcaldebt

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saadjs/kcaldebt/internal/ledger"
)

var streakDate string

var streakCmd = &cobra.Command{
	Use:   "streak",
	Short: "Show the current dry streak and credit multiplier",
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := parseTimestamp(streakDate, "")
		if err != nil {
			return err
		}
		return withEngine(cmd, func(s *session) error {
			ref := &ts
			if ts.IsZero() {
				ref = nil
			}
			streak, err := s.engine.CurrentStreak(cmd.Context(), ref)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Streak: %d day(s)\n", streak)
			fmt.Fprintf(cmd.OutOrStdout(), "Multiplier: x%.1f\n", ledger.Multiplier(streak))
			return nil
		})
	},
}

var balanceDays int

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Summarize debt and credit for the current period",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(s *session) error {
			report, err := s.engine.Balance(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			period := string(report.State.Mode)
			if report.State.Label != "" {
				period += " " + report.State.Label
			}
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Period: %s since %s", period, formatDate(report.State.PeriodStart))))
			fmt.Fprintf(out, "%s %s\n", label("Debt:"), signed(report.Debt))
			fmt.Fprintf(out, "%s %s\n", label("Credit:"), signed(report.Credit))
			fmt.Fprintf(out, "%s %s\n", label("Balance:"), signed(report.Balance))
			fmt.Fprintf(out, "%s %d\n", label("Entries:"), report.Entries)
			fmt.Fprintf(out, "%s %d day(s), x%.1f\n", label("Streak:"), report.Streak, report.Multiplier)
			if report.Archived != 0 {
				fmt.Fprintf(out, "%s %s\n", label("Archived balance:"), signed(report.Archived))
			}
			if len(report.Days) == 0 {
				return nil
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "DAY\tDEBT\tCREDIT\tBALANCE\tCHECK\tOUTCOME")
			for i, d := range report.Days {
				if balanceDays > 0 && i >= balanceDays {
					break
				}
				fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\t%s\n", d.Day, formatKCal(d.Debt), formatKCal(d.Credit), formatKCal(d.Balance), d.Check, d.Outcome)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(streakCmd, balanceCmd)
	streakCmd.Flags().StringVar(&streakDate, "date", "", "Reference date YYYY-MM-DD (default: now)")
	balanceCmd.Flags().IntVar(&balanceDays, "days", 14, "Max days in the breakdown (0 = all)")
}
