package kcaldebt

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/saadjs/kcaldebt/internal/service"
)

var recalcFrom string

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recalculate streak bonuses and archive totals from a date",
	RunE: func(cmd *cobra.Command, args []string) error {
		var from time.Time
		if recalcFrom != "" {
			t, err := parseDate("from", recalcFrom)
			if err != nil {
				return err
			}
			from = t
		}
		return withEngine(cmd, func(s *session) error {
			var report service.CascadeReport
			var err error
			if from.IsZero() {
				report, err = s.engine.RecalculateAll(cmd.Context())
			} else {
				report, err = s.engine.Recalculate(cmd.Context(), from)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Walked %d day(s) from %s through %s\n", report.DaysWalked, report.From, report.Through)
			fmt.Fprintf(out, "Corrections: %d\n", len(report.Corrections))
			for _, c := range report.Corrections {
				where := "live"
				if c.Archived {
					where = "archived"
				}
				fmt.Fprintf(out, "  %d\t%s\t%s -> %s\tx%.1f\t%s\n", c.EntryID, c.Day, formatKCal(c.OldKCal), formatKCal(c.NewKCal), c.Multiplier, where)
			}
			fmt.Fprintf(out, "Archives updated: %d\n", report.ArchivesUpdated)
			if report.Absorbed > 0 {
				fmt.Fprintf(out, "Entries absorbed into archives: %d\n", report.Absorbed)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(recalcCmd)
	recalcCmd.Flags().StringVar(&recalcFrom, "from", "", "Start date YYYY-MM-DD (default: beginning of history)")
}

