package kcaldebt

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saadjs/kcaldebt/internal/service"
)

var workoutCmd = &cobra.Command{
	Use:   "workout",
	Short: "Log and edit workouts (calorie credit)",
}

var (
	workoutActivity string
	workoutMinutes  float64
	workoutNote     string
	workoutDate     string
	workoutTime     string
)

var workoutAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Log a workout",
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := parseTimestamp(workoutDate, workoutTime)
		if err != nil {
			return err
		}
		return withEngine(cmd, func(s *session) error {
			res, err := s.engine.RecordCredit(cmd.Context(), service.CreditInput{
				Timestamp:   ts,
				Activity:    workoutActivity,
				DurationMin: workoutMinutes,
				Annotation:  workoutNote,
			})
			if err != nil {
				return err
			}
			printCredit(cmd, "Logged", res)
			return nil
		})
	},
}

var workoutUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a logged workout",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("id", args[0])
		if err != nil {
			return err
		}
		return withEngine(cmd, func(s *session) error {
			existing, err := s.engine.GetEntry(cmd.Context(), id)
			if err != nil {
				return err
			}
			if existing.Workout == nil {
				return fmt.Errorf("entry %d is not a workout", id)
			}
			in := service.CreditInput{
				Timestamp:   existing.Timestamp,
				Activity:    existing.Workout.Activity,
				DurationMin: existing.Workout.DurationMin,
			}
			flags := cmd.Flags()
			if flags.Changed("date") || flags.Changed("time") {
				ts, err := parseTimestamp(workoutDate, workoutTime)
				if err != nil {
					return err
				}
				in.Timestamp = ts
			}
			if flags.Changed("activity") {
				in.Activity = workoutActivity
			}
			if flags.Changed("minutes") {
				in.DurationMin = workoutMinutes
			}
			if flags.Changed("note") {
				in.Annotation = workoutNote
			}
			res, err := s.engine.UpdateCredit(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			printCredit(cmd, "Updated", res)
			return nil
		})
	},
}

func printCredit(cmd *cobra.Command, verb string, res service.RecordResult) {
	line := fmt.Sprintf("%s workout %d: +%s kcal", verb, res.ID, formatKCal(res.KCal))
	if res.Multiplier > 1 {
		line += " " + bonusStyle.Render(fmt.Sprintf("(streak bonus x%.1f)", res.Multiplier))
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
}

func addWorkoutFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&workoutActivity, "activity", "", "Activity key (see activities)")
	cmd.Flags().Float64Var(&workoutMinutes, "minutes", 0, "Duration in minutes")
	cmd.Flags().StringVar(&workoutNote, "note", "", "Free-text note")
	cmd.Flags().StringVar(&workoutDate, "date", "", "Date YYYY-MM-DD (default: now)")
	cmd.Flags().StringVar(&workoutTime, "time", "", "Time HH:MM (requires --date)")
}

func init() {
	rootCmd.AddCommand(workoutCmd)
	workoutCmd.AddCommand(workoutAddCmd, workoutUpdateCmd)

	addWorkoutFlags(workoutAddCmd)
	addWorkoutFlags(workoutUpdateCmd)
	_ = workoutAddCmd.MarkFlagRequired("activity")
	_ = workoutAddCmd.MarkFlagRequired("minutes")
}
