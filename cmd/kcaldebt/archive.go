package kcaldebt

import (
	"fmt"

	"github.com/spf13/cobra"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Browse archived periods",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived periods",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(s *session) error {
			items, err := s.engine.ListArchives(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tMODE\tSTART\tEND\tENTRIES\tBALANCE")
			for _, a := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%d\t%s\n", a.ID, a.Mode, formatDate(a.StartDate), formatDate(a.EndDate), len(a.Entries), formatKCal(a.TotalBalance))
			}
			return nil
		})
	},
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an archived period and its entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(s *session) error {
			a, err := s.engine.GetArchive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Archive %s (%s)", a.ID, a.Mode)))
			fmt.Fprintf(out, "%s %s to %s\n", label("Range:"), formatTime(a.StartDate), formatTime(a.EndDate))
			fmt.Fprintf(out, "%s %s\n", label("Balance:"), signed(a.TotalBalance))
			fmt.Fprintln(out, "ID\tTIME\tKIND\tKCAL\tDETAIL")
			for _, it := range a.Entries {
				fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%s\n", it.ID, formatTime(it.Timestamp), it.Kind(), formatKCal(it.KCal), entryDetail(it))
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveListCmd, archiveShowCmd)
}
