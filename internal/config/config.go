package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"pcsd-remove-file/internal/safety"
)

const (
	DefaultConfigPath       = "/etc/pcsd/remove-file.yaml"
	DefaultPacemakerAuthkey = "/etc/pacemaker/authkey"
	DefaultPcsdSettings     = "/var/lib/pcsd/pcs_settings.conf"
	DefaultDatabasePath     = "/var/lib/pcsd/remove-file.db"
)

type Paths struct {
	PacemakerAuthkey string `yaml:"pacemaker_authkey" json:"pacemaker_authkey"` // Pacemaker remote authentication key
	PcsdSettings     string `yaml:"pcsd_settings" json:"pcsd_settings"`         // Cluster-wide pcsd settings file
}

type MetricsCfg struct {
	Textfile string `yaml:"textfile" json:"textfile"` // node_exporter textfile collector target, empty disables
}

type LoggingCfg struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"` // Empty logs to stderr only
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

type Config struct {
	Paths                Paths      `yaml:"paths" json:"paths"`
	DatabasePath         *string    `yaml:"database_path" json:"database_path"` // Removal history, "" disables
	HistoryRetentionDays int        `yaml:"history_retention_days" json:"history_retention_days"`
	Metrics              MetricsCfg `yaml:"metrics" json:"metrics"`
	Logging              LoggingCfg `yaml:"logging" json:"logging"`
}

var (
	errInvalidPath      = errors.New("path must be absolute")
	errNegativeDays     = errors.New("history_retention_days cannot be negative")
	errInvalidLogLevel  = errors.New("unknown logging level")
	errNegativeRotation = errors.New("log rotation settings cannot be negative")
)

var logLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

// Load reads and validates the configuration file at path
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	if err := cfg.validateAndDefault(); err != nil {
		panic(err)
	}
	return cfg
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if c.Paths.PacemakerAuthkey == "" {
		c.Paths.PacemakerAuthkey = DefaultPacemakerAuthkey
	}
	if c.Paths.PcsdSettings == "" {
		c.Paths.PcsdSettings = DefaultPcsdSettings
	}

	var err error
	if c.Paths.PacemakerAuthkey, err = safety.ValidateTarget(c.Paths.PacemakerAuthkey); err != nil {
		return fmt.Errorf("paths.pacemaker_authkey: %w", err)
	}
	if c.Paths.PcsdSettings, err = safety.ValidateTarget(c.Paths.PcsdSettings); err != nil {
		return fmt.Errorf("paths.pcsd_settings: %w", err)
	}

	// nil means unset; an explicit empty string turns history off
	if c.DatabasePath == nil {
		p := DefaultDatabasePath
		c.DatabasePath = &p
	} else if *c.DatabasePath != "" {
		p, err := cleanAbsolute(*c.DatabasePath)
		if err != nil {
			return fmt.Errorf("database_path: %w", err)
		}
		c.DatabasePath = &p
	}

	if c.HistoryRetentionDays < 0 {
		return errNegativeDays
	}
	if c.HistoryRetentionDays == 0 {
		c.HistoryRetentionDays = 90
	}

	if c.Metrics.Textfile != "" {
		if c.Metrics.Textfile, err = cleanAbsolute(c.Metrics.Textfile); err != nil {
			return fmt.Errorf("metrics.textfile: %w", err)
		}
	}

	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if !logLevels[c.Logging.Level] {
		return fmt.Errorf("%w: %s", errInvalidLogLevel, c.Logging.Level)
	}
	if c.Logging.File != "" {
		if c.Logging.File, err = cleanAbsolute(c.Logging.File); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return errNegativeRotation
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 10
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 5
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = 30
	}

	return nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

// SettingsFilePath resolves the location of the pcsd settings file
func (c *Config) SettingsFilePath() string {
	return c.Paths.PcsdSettings
}

// HistoryEnabled reports whether removals are recorded to the database
func (c *Config) HistoryEnabled() bool {
	return c.DatabasePath != nil && *c.DatabasePath != ""
}

// Database returns the history database path, or "" when disabled
func (c *Config) Database() string {
	if c.DatabasePath == nil {
		return ""
	}
	return *c.DatabasePath
}
