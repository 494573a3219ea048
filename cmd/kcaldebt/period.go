package kcaldebt

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/saadjs/kcaldebt/internal/model"
	"github.com/saadjs/kcaldebt/internal/service"
)

var periodCmd = &cobra.Command{
	Use:   "period",
	Short: "Manage the accounting period",
}

var (
	periodNextStart string
	periodStart     string
	periodEnd       string
	periodLabel     string
)

var periodStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current period",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(s *session) error {
			state, err := s.engine.PeriodState(cmd.Context())
			if err != nil {
				return err
			}
			printPeriodState(cmd, state)
			return nil
		})
	},
}

var periodCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Archive the previous period if a rollover is due",
	RunE: func(cmd *cobra.Command, args []string) error {
		return openSession(cmd, false, func(s *session) error {
			res, err := s.engine.CheckPeriodRollover(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case res.RolledOver && res.Skipped:
				fmt.Fprintf(out, "Period already archived; advanced to %s\n", formatDate(res.State.PeriodStart))
			case res.RolledOver:
				fmt.Fprintf(out, "Archived %d entries as %s (balance %s)\n", len(res.Archive.Entries), res.Archive.ID, formatKCal(res.Archive.TotalBalance))
			case res.CustomEnded:
				fmt.Fprintf(out, "Custom period %q has ended; use period extend or period switch\n", res.State.Label)
			default:
				fmt.Fprintln(out, "No rollover due")
			}
			return nil
		})
	},
}

var periodArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive the current period now and start a new one",
	RunE: func(cmd *cobra.Command, args []string) error {
		return openSession(cmd, false, func(s *session) error {
			state, err := s.engine.EnsurePeriodState(cmd.Context())
			if err != nil {
				return err
			}
			next := time.Now()
			if periodNextStart != "" {
				next, err = parseDate("next-start", periodNextStart)
				if err != nil {
					return err
				}
			}
			res, err := s.engine.ArchiveAndReset(cmd.Context(), state.PeriodStart, next, state.Mode)
			if err != nil {
				return err
			}
			if res.Skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "Archive for this range already exists; period now starts %s\n", formatDate(res.State.PeriodStart))
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Archived %d entries as %s (balance %s)\n", res.Moved, res.Archive.ID, formatKCal(res.Archive.TotalBalance))
			}
			if res.State.Mode == model.PeriodCustom && periodEnd != "" {
				end, err := parseEndDate("end", periodEnd)
				if err != nil {
					return err
				}
				state, err := s.engine.ExtendCustomPeriod(cmd.Context(), end)
				if err != nil {
					return err
				}
				printPeriodState(cmd, state)
			}
			return nil
		})
	},
}

var periodSwitchCmd = &cobra.Command{
	Use:   "switch <weekly|monthly|custom|permanent>",
	Short: "Change the period mode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := model.ParsePeriodMode(args[0])
		if err != nil {
			return err
		}
		var bounds *service.CustomBounds
		if mode == model.PeriodCustom {
			if periodStart == "" || periodEnd == "" || periodLabel == "" {
				return fmt.Errorf("--start, --end and --label are required for custom mode")
			}
			start, err := parseDate("start", periodStart)
			if err != nil {
				return err
			}
			end, err := parseEndDate("end", periodEnd)
			if err != nil {
				return err
			}
			bounds = &service.CustomBounds{Start: start, End: end, Label: periodLabel}
		}
		return openSession(cmd, false, func(s *session) error {
			res, err := s.engine.SwitchPeriodMode(cmd.Context(), mode, bounds)
			if err != nil {
				return err
			}
			if res.Restored > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %d archived entries\n", res.Restored)
			}
			printPeriodState(cmd, res.State)
			return nil
		})
	},
}

var periodExtendCmd = &cobra.Command{
	Use:   "extend",
	Short: "Move the end of the custom period later",
	RunE: func(cmd *cobra.Command, args []string) error {
		if periodEnd == "" {
			return fmt.Errorf("--end is required")
		}
		end, err := parseEndDate("end", periodEnd)
		if err != nil {
			return err
		}
		return openSession(cmd, false, func(s *session) error {
			state, err := s.engine.ExtendCustomPeriod(cmd.Context(), end)
			if err != nil {
				return err
			}
			printPeriodState(cmd, state)
			return nil
		})
	},
}

func printPeriodState(cmd *cobra.Command, state model.PeriodState) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Mode: %s\n", state.Mode)
	fmt.Fprintf(out, "Start: %s\n", formatDate(state.PeriodStart))
	if state.PeriodEnd != nil {
		fmt.Fprintf(out, "End: %s\n", formatDate(*state.PeriodEnd))
	}
	if state.Label != "" {
		fmt.Fprintf(out, "Label: %s\n", state.Label)
	}
}

func init() {
	rootCmd.AddCommand(periodCmd)
	periodCmd.AddCommand(periodStatusCmd, periodCheckCmd, periodArchiveCmd, periodSwitchCmd, periodExtendCmd)

	periodArchiveCmd.Flags().StringVar(&periodNextStart, "next-start", "", "Start date YYYY-MM-DD of the new period (default: now)")
	periodArchiveCmd.Flags().StringVar(&periodEnd, "end", "", "End date YYYY-MM-DD of the restarted custom period (inclusive)")
	periodSwitchCmd.Flags().StringVar(&periodStart, "start", "", "Custom period start date YYYY-MM-DD")
	periodSwitchCmd.Flags().StringVar(&periodEnd, "end", "", "Custom period end date YYYY-MM-DD (inclusive)")
	periodSwitchCmd.Flags().StringVar(&periodLabel, "label", "", "Custom period label")
	periodExtendCmd.Flags().StringVar(&periodEnd, "end", "", "New end date YYYY-MM-DD (inclusive)")
}
