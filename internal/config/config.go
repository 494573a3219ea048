// Package config reads and writes the kcaldebt TOML settings file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/saadjs/kcaldebt/internal/model"
)

// Config is the on-disk settings file.
type Config struct {
	DBPath            string        `toml:"db_path"`
	LogDir            string        `toml:"log_dir"`
	Debug             bool          `toml:"debug"`
	RolloverHour      int           `toml:"rollover_hour"`
	DefaultPeriodMode string        `toml:"default_period_mode"`
	Profile           ProfileConfig `toml:"profile"`
}

// ProfileConfig feeds the burn-rate math. Gender is "male", "female" or anything else.
type ProfileConfig struct {
	WeightKg float64 `toml:"weight_kg"`
	HeightCm float64 `toml:"height_cm"`
	Age      int     `toml:"age"`
	Gender   string  `toml:"gender"`
}

// Default returns the settings used when no file exists.
func Default(dbPath, logDir string) *Config {
	return &Config{
		DBPath:            dbPath,
		LogDir:            logDir,
		RolloverHour:      4,
		DefaultPeriodMode: string(model.PeriodWeekly),
		Profile: ProfileConfig{
			WeightKg: 75,
			HeightCm: 175,
			Age:      35,
			Gender:   "unspecified",
		},
	}
}

func (c *Config) Validate() error {
	if c.RolloverHour < 0 || c.RolloverHour > 23 {
		return fmt.Errorf("rollover_hour must be between 0 and 23")
	}
	mode, err := model.ParsePeriodMode(c.DefaultPeriodMode)
	if err != nil {
		return fmt.Errorf("default_period_mode: %w", err)
	}
	if mode == model.PeriodCustom {
		return fmt.Errorf("default_period_mode cannot be custom")
	}
	if c.Profile.WeightKg <= 0 || c.Profile.HeightCm <= 0 || c.Profile.Age <= 0 {
		return fmt.Errorf("profile weight_kg, height_cm and age must be positive")
	}
	return nil
}

func (c *Config) ProfileModel() model.Profile {
	return model.Profile{
		WeightKg: c.Profile.WeightKg,
		HeightCm: c.Profile.HeightCm,
		Age:      c.Profile.Age,
		Gender:   strings.TrimSpace(c.Profile.Gender),
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("read config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load overlays the file at path on top of defaults. A missing file yields
// the defaults unchanged.
func Load(path string, defaults *Config) (*Config, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	cfg := *defaults
	if _, err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("read config from %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("write config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to path, refusing to overwrite an existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("initialize config: %w", err)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initialize config: %w", err)
	}
	return nil
}
