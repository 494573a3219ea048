package kcaldebt

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saadjs/kcaldebt/internal/service"
)

var drinkCmd = &cobra.Command{
	Use:   "drink",
	Short: "Log and edit drinks (calorie debt)",
}

var (
	drinkVolume  float64
	drinkABV     float64
	drinkCarbs   float64
	drinkStyle   string
	drinkBrewery string
	drinkRating  int
	drinkCount   int
	drinkDate    string
	drinkTime    string
)

var drinkAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Log a drink",
	RunE: func(cmd *cobra.Command, args []string) error {
		ts, err := parseTimestamp(drinkDate, drinkTime)
		if err != nil {
			return err
		}
		return withEngine(cmd, func(s *session) error {
			res, err := s.engine.RecordDebt(cmd.Context(), service.DebtInput{
				Timestamp:     ts,
				VolumeMl:      drinkVolume,
				StrengthPct:   drinkABV,
				CarbsPer100ml: drinkCarbs,
				Style:         drinkStyle,
				Brewery:       drinkBrewery,
				Rating:        drinkRating,
				Count:         drinkCount,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged drink %d: %s kcal\n", res.ID, formatKCal(res.KCal))
			return nil
		})
	},
}

var drinkUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Edit a logged drink",
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
			if existing.Drink == nil {
				return fmt.Errorf("entry %d is not a drink", id)
			}
			d := *existing.Drink
			in := service.DebtInput{
				Timestamp:     existing.Timestamp,
				VolumeMl:      d.VolumeMl,
				StrengthPct:   d.StrengthPct,
				CarbsPer100ml: d.CarbsPer100ml,
				Style:         d.Style,
				Brewery:       d.Brewery,
				Rating:        d.Rating,
				Count:         d.Count,
			}
			flags := cmd.Flags()
			if flags.Changed("date") || flags.Changed("time") {
				ts, err := parseTimestamp(drinkDate, drinkTime)
				if err != nil {
					return err
				}
				in.Timestamp = ts
			}
			if flags.Changed("volume") {
				in.VolumeMl = drinkVolume
			}
			if flags.Changed("abv") {
				in.StrengthPct = drinkABV
			}
			if flags.Changed("carbs") {
				in.CarbsPer100ml = drinkCarbs
			}
			if flags.Changed("style") {
				in.Style = drinkStyle
			}
			if flags.Changed("brewery") {
				in.Brewery = drinkBrewery
			}
			if flags.Changed("rating") {
				in.Rating = drinkRating
			}
			if flags.Changed("count") {
				in.Count = drinkCount
			}
			res, err := s.engine.UpdateDebt(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated drink %d: %s kcal\n", res.ID, formatKCal(res.KCal))
			return nil
		})
	},
}

func addDrinkFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&drinkVolume, "volume", 0, "Volume in ml")
	cmd.Flags().Float64Var(&drinkABV, "abv", 0, "Alcohol by volume in percent")
	cmd.Flags().Float64Var(&drinkCarbs, "carbs", 0, "Carbohydrates in g per 100 ml")
	cmd.Flags().StringVar(&drinkStyle, "style", "", "Drink style, e.g. IPA")
	cmd.Flags().StringVar(&drinkBrewery, "brewery", "", "Brewery or producer")
	cmd.Flags().IntVar(&drinkRating, "rating", 0, "Rating 1-5 (0 = unrated)")
	cmd.Flags().IntVar(&drinkCount, "count", 1, "Number of identical drinks")
	cmd.Flags().StringVar(&drinkDate, "date", "", "Date YYYY-MM-DD (default: now)")
	cmd.Flags().StringVar(&drinkTime, "time", "", "Time HH:MM (requires --date)")
}

func init() {
	rootCmd.AddCommand(drinkCmd)
	drinkCmd.AddCommand(drinkAddCmd, drinkUpdateCmd)

	addDrinkFlags(drinkAddCmd)
	addDrinkFlags(drinkUpdateCmd)
	_ = drinkAddCmd.MarkFlagRequired("volume")
	_ = drinkAddCmd.MarkFlagRequired("abv")
}
