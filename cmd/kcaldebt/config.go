package kcaldebt

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saadjs/kcaldebt/internal/app"
	"github.com/saadjs/kcaldebt/internal/config"
	"github.com/saadjs/kcaldebt/internal/db"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage kcaldebt configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := app.ConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := config.Init(path, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote config to %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := app.ConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "KEY\tVALUE")
		fmt.Fprintf(out, "config_path\t%s\n", path)
		fmt.Fprintf(out, "db_path\t%s\n", cfg.DBPath)
		fmt.Fprintf(out, "log_dir\t%s\n", cfg.LogDir)
		fmt.Fprintf(out, "debug\t%t\n", cfg.Debug)
		fmt.Fprintf(out, "rollover_hour\t%d\n", cfg.RolloverHour)
		fmt.Fprintf(out, "default_period_mode\t%s\n", cfg.DefaultPeriodMode)
		fmt.Fprintf(out, "profile.weight_kg\t%.1f\n", cfg.Profile.WeightKg)
		fmt.Fprintf(out, "profile.height_cm\t%.1f\n", cfg.Profile.HeightCm)
		fmt.Fprintf(out, "profile.age\t%d\n", cfg.Profile.Age)
		fmt.Fprintf(out, "profile.gender\t%s\n", cfg.Profile.Gender)
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the database schema is current",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveDBPath()
		if err != nil {
			return err
		}
		sqldb, err := db.Open(path)
		if err != nil {
			return err
		}
		defer sqldb.Close()
		if err := db.CheckMigrations(sqldb); err != nil {
			return err
		}
		schema, err := db.SchemaVersion(sqldb)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Schema version %d is current\n", schema)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configCheckCmd)
}
