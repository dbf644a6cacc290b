package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"battlematus/internal/pip"
)

// Settings holds the simulator run configuration.
type Settings struct {
	// Records
	DataDir string `yaml:"data_dir" env:"BATTLEMATUS_DATA_DIR"`

	// Simulation
	Seed      int64  `yaml:"seed" env:"BATTLEMATUS_SEED"`
	MaxRounds int    `yaml:"max_rounds" env:"BATTLEMATUS_MAX_ROUNDS"`
	Workers   int    `yaml:"workers" env:"BATTLEMATUS_WORKERS"`
	Overflow  string `yaml:"pip_overflow" env:"BATTLEMATUS_PIP_OVERFLOW"` // drop | promote

	// Output
	LogLevel    string `yaml:"log_level" env:"BATTLEMATUS_LOG_LEVEL"`
	JournalPath string `yaml:"journal_path" env:"BATTLEMATUS_JOURNAL"`
	ArchivePath string `yaml:"archive_path" env:"BATTLEMATUS_ARCHIVE"`
}

// DefaultSettings returns Settings with sensible defaults.
func DefaultSettings() Settings {
	return Settings{
		DataDir:   "data",
		Seed:      1,
		MaxRounds: 100,
		Workers:   4,
		Overflow:  pip.OverflowDrop.String(),
		LogLevel:  "info",
	}
}

// LoadSettings loads settings from a YAML file and applies environment
// overrides. If the file doesn't exist, defaults are used.
func LoadSettings(path string) (Settings, error) {
	cfg := DefaultSettings()

	if path != "" {
		if err := loadYAML(path, &cfg); err != nil && !os.IsNotExist(err) {
			return cfg, fmt.Errorf("parsing settings %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if _, err := cfg.OverflowPolicy(); err != nil {
		return cfg, err
	}
	if cfg.MaxRounds <= 0 {
		return cfg, fmt.Errorf("max_rounds must be positive, got %d", cfg.MaxRounds)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return cfg, nil
}

// OverflowPolicy parses the configured pip overflow policy.
func (s Settings) OverflowPolicy() (pip.Overflow, error) {
	return pip.ParseOverflow(s.Overflow)
}

// Level maps LogLevel to a slog level; unknown values mean info.
func (s Settings) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Dump renders the effective settings as YAML.
func (s Settings) Dump() string {
	b, err := yaml.Marshal(s)
	if err != nil {
		return err.Error()
	}
	return string(b)
}
