package kcaldebt

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saadjs/kcaldebt/internal/ledger"
)

var activitiesMinutes float64

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "List workout activities and their estimated burn",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		profile := cfg.ProfileModel()
		fmt.Fprintf(cmd.OutOrStdout(), "ACTIVITY\tMET\tKCAL/%.0fMIN\n", activitiesMinutes)
		for _, key := range ledger.Activities() {
			met, _ := ledger.ActivityMET(key)
			burn, err := ledger.BaseBurn(key, activitiesMinutes, profile)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.1f\t%s\n", key, met, formatKCal(burn))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(activitiesCmd)
	activitiesCmd.Flags().Float64Var(&activitiesMinutes, "minutes", 30, "Duration used for the burn estimate")
}
