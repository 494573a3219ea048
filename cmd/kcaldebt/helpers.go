package kcaldebt

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/saadjs/kcaldebt/internal/app"
	"github.com/saadjs/kcaldebt/internal/config"
	"github.com/saadjs/kcaldebt/internal/db"
	"github.com/saadjs/kcaldebt/internal/ledger"
	"github.com/saadjs/kcaldebt/internal/logger"
	"github.com/saadjs/kcaldebt/internal/model"
	"github.com/saadjs/kcaldebt/internal/service"
	"github.com/saadjs/kcaldebt/internal/store"
)

type session struct {
	cfg    *config.Config
	db     *sql.DB
	engine *service.Engine
	log    *logger.Logger
}

// loadConfig reads the config file and applies the persistent flag overrides.
func loadConfig() (*config.Config, error) {
	path, err := app.ConfigPath(configPath)
	if err != nil {
		return nil, err
	}
	defaultDB, err := app.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	defaultLogs, err := app.DefaultLogDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path, config.Default(defaultDB, defaultLogs))
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDB
	}
	if cfg.LogDir == "" {
		cfg.LogDir = defaultLogs
	}
	if debugMode {
		cfg.Debug = true
	}
	return cfg, nil
}

func resolveDBPath() (string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	return cfg.DBPath, nil
}

func withDB(cfg *config.Config, run func(*sql.DB) error) error {
	if err := app.EnsureDBDir(cfg.DBPath); err != nil {
		return err
	}
	sqldb, err := db.OpenMigrated(cfg.DBPath)
	if err != nil {
		return err
	}
	defer sqldb.Close()
	return run(sqldb)
}

// withEngine opens the database and builds the engine. Unless the command
// manages periods itself, a due period rollover is applied first.
func withEngine(cmd *cobra.Command, run func(*session) error) error {
	return openSession(cmd, true, run)
}

func openSession(cmd *cobra.Command, autoRollover bool, run func(*session) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := logger.New(logger.Config{Debug: cfg.Debug, LogDir: cfg.LogDir, Stderr: cmd.ErrOrStderr()})
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer log.Close()

	return withDB(cfg, func(sqldb *sql.DB) error {
		engine, err := service.NewEngine(service.Options{
			Store:        store.NewSQLStore(sqldb, time.Local),
			Logger:       log.With("command", cmd.CommandPath()),
			Profile:      cfg.ProfileModel(),
			RolloverHour: cfg.RolloverHour,
			Location:     time.Local,
			DefaultMode:  model.PeriodMode(cfg.DefaultPeriodMode),
		})
		if err != nil {
			return err
		}
		if autoRollover {
			res, err := engine.CheckPeriodRollover(cmd.Context())
			if err != nil {
				return err
			}
			if res.RolledOver || res.CustomEnded {
				printRollover(cmd, res)
			}
		}
		return run(&session{cfg: cfg, db: sqldb, engine: engine, log: log})
	})
}

func printRollover(cmd *cobra.Command, res service.RolloverResult) {
	w := cmd.ErrOrStderr()
	switch {
	case res.CustomEnded:
		fmt.Fprintf(w, "Custom period %q has ended; use period archive, extend or switch\n", res.State.Label)
	case res.Skipped:
		fmt.Fprintf(w, "Period already archived; new %s period from %s\n", res.State.Mode, formatDate(res.State.PeriodStart))
	default:
		fmt.Fprintf(w, "Archived previous period; new %s period from %s\n", res.State.Mode, formatDate(res.State.PeriodStart))
	}
}

func parseInt64Arg(name, value string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, value)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be > 0", name)
	}
	return v, nil
}

// parseTimestamp returns the zero time when neither flag is set so the engine
// stamps the entry with its own clock.
func parseTimestamp(date, timeStr string) (time.Time, error) {
	date = strings.TrimSpace(date)
	timeStr = strings.TrimSpace(timeStr)
	if date == "" && timeStr == "" {
		return time.Time{}, nil
	}
	if date == "" {
		return time.Time{}, fmt.Errorf("--date is required when --time is set")
	}
	if timeStr == "" {
		t, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --date %q (expected YYYY-MM-DD)", date)
		}
		// Noon keeps a date-only entry clear of the rollover hour.
		if now := time.Now(); t.Add(12 * time.Hour).After(now) {
			return now, nil
		}
		return t.Add(12 * time.Hour), nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+timeStr, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date/--time (expected YYYY-MM-DD and HH:MM)")
	}
	return t, nil
}

func parseDate(flag, value string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(value), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q (expected YYYY-MM-DD)", flag, value)
	}
	return t, nil
}

// parseEndDate resolves a date to the last millisecond of that calendar day.
func parseEndDate(flag, value string) (time.Time, error) {
	t, err := parseDate(flag, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.AddDate(0, 0, 1).Add(-time.Millisecond), nil
}

func parseDay(value string) (ledger.DayKey, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	d, err := ledger.ParseDayKey(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("invalid --day %q (expected YYYY-MM-DD)", value)
	}
	return d, nil
}

func formatDate(t time.Time) string {
	return t.In(time.Local).Format("2006-01-02")
}

func formatTime(t time.Time) string {
	return t.In(time.Local).Format("2006-01-02 15:04")
}

func formatKCal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
