package kcaldebt

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saadjs/kcaldebt/internal/app"
	"github.com/saadjs/kcaldebt/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize local kcaldebt database and config",
	RunE: func(cmd *cobra.Command, args []string) error {
		return openSession(cmd, false, func(s *session) error {
			state, err := s.engine.EnsurePeriodState(cmd.Context())
			if err != nil {
				return err
			}
			path, err := app.ConfigPath(configPath)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if err := config.Init(path, s.cfg); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote config to %s\n", path)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized kcaldebt database at %s (%s period from %s)\n", s.cfg.DBPath, state.Mode, formatDate(state.PeriodStart))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
