package kcaldebt

import (
	"fmt"

	"github.com/spf13/cobra"
)

var doctorFix bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run ledger integrity checks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return openSession(cmd, false, func(s *session) error {
			report, err := s.engine.RunDoctor(cmd.Context(), doctorFix)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Overlapping archives: %d\n", report.ArchiveOverlaps)
			fmt.Fprintf(out, "Archive total mismatches: %d\n", report.ArchiveTotalMismatch)
			fmt.Fprintf(out, "Entries inside archived ranges: %d\n", report.StrandedEntries)
			fmt.Fprintf(out, "Duplicate saved check-ins: %d\n", report.DuplicateCheckIns)
			fmt.Fprintf(out, "Stale credits: %d\n", report.StaleCredits)
			if doctorFix {
				fmt.Fprintf(out, "Fixed archives: %d\n", report.FixedArchives)
				fmt.Fprintf(out, "Fixed credits: %d\n", report.FixedCredits)
				// Re-check after fixes so exit status reflects final state.
				report, err = s.engine.RunDoctor(cmd.Context(), false)
				if err != nil {
					return err
				}
			}
			if !report.Healthy() {
				return fmt.Errorf("doctor found integrity issues")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Recalculate history to repair derived values")
}
