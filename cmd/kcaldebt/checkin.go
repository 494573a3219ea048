package kcaldebt

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saadjs/kcaldebt/internal/service"
)

var checkinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Record daily dry/drank check-ins",
}

var (
	checkinDry         bool
	checkinDrank       bool
	checkinConditions  []string
	checkinWeight      float64
	checkinPlaceholder bool
	checkinDate        string
	checkinDays        int
)

var checkinSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the check-in for a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		if checkinDry == checkinDrank {
			return fmt.Errorf("set exactly one of --dry or --drank")
		}
		ts, err := parseTimestamp(checkinDate, "")
		if err != nil {
			return err
		}
		conditions, err := parseConditions(checkinConditions)
		if err != nil {
			return err
		}
		in := service.CheckInInput{
			Timestamp:   ts,
			IsDryDay:    checkinDry,
			Conditions:  conditions,
			Placeholder: checkinPlaceholder,
		}
		if cmd.Flags().Changed("weight") {
			w := checkinWeight
			in.Weight = &w
		}
		return withEngine(cmd, func(s *session) error {
			id, err := s.engine.SaveCheckIn(cmd.Context(), in)
			if err != nil {
				return err
			}
			state := "drank"
			if checkinDry {
				state = "dry"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved check-in %d (%s)\n", id, state)
			return nil
		})
	},
}

var checkinListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show check-ins of recent days",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(cmd, func(s *session) error {
			items, err := s.engine.ListCheckIns(cmd.Context(), checkinDays)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "DAY\tSTATE\tSAVED\tWEIGHT\tCONDITIONS")
			for _, it := range items {
				c := it.CheckIn
				state := "drank"
				if c.IsDryDay {
					state = "dry"
				}
				weight := "-"
				if c.Weight != nil {
					weight = strconv.FormatFloat(*c.Weight, 'f', 1, 64)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%t\t%s\t%s\n", it.Day, state, c.IsSaved, weight, formatConditions(c.Conditions))
			}
			return nil
		})
	},
}

// parseConditions accepts name or name=true|false pairs.
func parseConditions(values []string) (map[string]bool, error) {
	out := make(map[string]bool, len(values))
	for _, raw := range values {
		name, value, hasValue := strings.Cut(strings.TrimSpace(raw), "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid --condition %q", raw)
		}
		if !hasValue {
			out[name] = true
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("invalid --condition %q (expected name=true|false)", raw)
		}
		out[name] = b
	}
	return out, nil
}

func formatConditions(m map[string]bool) string {
	if len(m) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%t", k, m[k]))
	}
	return strings.Join(parts, ",")
}

func init() {
	rootCmd.AddCommand(checkinCmd)
	checkinCmd.AddCommand(checkinSaveCmd, checkinListCmd)

	checkinSaveCmd.Flags().BoolVar(&checkinDry, "dry", false, "Mark the day as dry")
	checkinSaveCmd.Flags().BoolVar(&checkinDrank, "drank", false, "Mark the day as a drinking day")
	checkinSaveCmd.Flags().StringArrayVar(&checkinConditions, "condition", nil, "Condition flag name[=true|false] (repeatable)")
	checkinSaveCmd.Flags().Float64Var(&checkinWeight, "weight", 0, "Body weight in kg")
	checkinSaveCmd.Flags().BoolVar(&checkinPlaceholder, "placeholder", false, "Save as an unconfirmed placeholder")
	checkinSaveCmd.Flags().StringVar(&checkinDate, "date", "", "Date YYYY-MM-DD (default: today)")
	checkinListCmd.Flags().IntVar(&checkinDays, "days", 7, "Number of days to show")
}
