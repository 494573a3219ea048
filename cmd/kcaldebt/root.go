package kcaldebt

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dbPath     string
	configPath string
	debugMode  bool
)

var rootCmd = &cobra.Command{
	Use:   "kcaldebt",
	Short: "kcaldebt balances drink calories against workout calories",
	Long: "kcaldebt is a local-first ledger of alcohol calories (debt) and exercise calories (credit) " +
		"with virtual days, a dry streak, streak bonus multipliers and archived accounting periods.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Log debug output to stderr")
}
