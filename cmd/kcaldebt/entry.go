package kcaldebt

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saadjs/kcaldebt/internal/model"
	"github.com/saadjs/kcaldebt/internal/service"
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "List and delete ledger entries",
}

var (
	entryDay   string
	entryKind  string
	entryLimit int
	entryAll   bool
)

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entries of the current period",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, err := parseDay(entryDay)
		if err != nil {
			return err
		}
		return withEngine(cmd, func(s *session) error {
			items, err := s.engine.ListEntries(cmd.Context(), service.EntryFilter{
				Day:       day,
				Kind:      model.EntryKind(entryKind),
				Limit:     entryLimit,
				AllPeriod: entryAll,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tTIME\tKIND\tKCAL\tDETAIL")
			for _, it := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\t%s\n", it.ID, formatTime(it.Timestamp), it.Kind(), formatKCal(it.KCal), entryDetail(it))
			}
			return nil
		})
	},
}

var entryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an entry and recalculate history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("id", args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd, func(s *session) error {
			res, err := s.engine.DeleteEntry(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %d (logged %s)\n", id, formatTime(res.Timestamp))
			return nil
		})
	},
}

func entryDetail(e model.LogEntry) string {
	if e.Workout != nil {
		w := e.Workout
		detail := fmt.Sprintf("%s %.0fmin", w.Activity, w.DurationMin)
		if w.Annotation != "" {
			detail += " " + w.Annotation
		}
		return detail
	}
	d := e.Drink
	detail := fmt.Sprintf("%dx %.0fml %.1f%%", d.Count, d.VolumeMl, d.StrengthPct)
	if d.Style != "" {
		detail += " " + d.Style
	}
	if d.Brewery != "" {
		detail += " (" + d.Brewery + ")"
	}
	return detail
}

func init() {
	rootCmd.AddCommand(entryCmd)
	entryCmd.AddCommand(entryListCmd, entryDeleteCmd)

	entryListCmd.Flags().StringVar(&entryDay, "day", "", "Virtual day YYYY-MM-DD")
	entryListCmd.Flags().StringVar(&entryKind, "kind", "", "Filter by kind: debt or credit")
	entryListCmd.Flags().IntVar(&entryLimit, "limit", 0, "Max entries to show (0 = all)")
	entryListCmd.Flags().BoolVar(&entryAll, "all", false, "Include entries from before the current period")
}
