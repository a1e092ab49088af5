package config

import (
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultDataDir is where exports are read from when no directory is given.
	DefaultDataDir = "data"

	// DefaultOutputDir is where report files are written.
	DefaultOutputDir = "output"

	// DefaultReportDays is the length of the export date range. Google Ads
	// exports default to the last 30 days, and budget pacing divides spend
	// by this value.
	DefaultReportDays = 30

	// DefaultFormat is the report format written by the audit command.
	DefaultFormat = "markdown"

	// DefaultConcurrency is the number of account directories audited at
	// once. Each audit is single-pass, so this only matters for batches.
	DefaultConcurrency = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "adsaudit"

	// EnvPrefix prefixes environment overrides, e.g. ADSAUDIT_REPORT_DAYS.
	EnvPrefix = "ADSAUDIT"
)

// validFormats are the report formats the report package can write.
var validFormats = map[string]bool{
	"markdown": true,
	"json":     true,
	"text":     true,
}

// Config holds all configuration options for adsaudit.
// This struct is populated from defaults, the config file, environment and
// CLI flags, in increasing precedence, and passed through the application
// rather than kept as global state.
//
// Design decision: We use a single flat struct instead of nested structs
// for simplicity. The only nested value is the per-account table, which
// mirrors the config file layout.
type Config struct {
	// DataDir is the directory holding the canonical export files.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// OutputDir is where timestamped report files are written.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	// ReportDays is the length of the export date range in days.
	ReportDays int `mapstructure:"report_days" yaml:"report_days"`

	// Format is the report format: markdown, json or text.
	Format string `mapstructure:"format" yaml:"format"`

	// Concurrency is the number of directories audited at once.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`

	// Accounts holds per-account overrides keyed by data directory.
	Accounts map[string]AccountConfig `mapstructure:"accounts" yaml:"accounts,omitempty"`

	// ConfigFilePath is the file the configuration was read from, if any.
	ConfigFilePath string `mapstructure:"-" yaml:"-"`
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because most defaults are non-zero. This also serves as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		DataDir:     DefaultDataDir,
		OutputDir:   DefaultOutputDir,
		ReportDays:  DefaultReportDays,
		Format:      DefaultFormat,
		Concurrency: DefaultConcurrency,
		Accounts:    make(map[string]AccountConfig),
	}
}

// XDGConfigDir returns the XDG config directory for adsaudit.
// On Linux: ~/.config/adsaudit
// On macOS: ~/Library/Application Support/adsaudit
// On Windows: %APPDATA%\adsaudit
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGConfigFile returns the config file path inside the XDG config directory.
func XDGConfigFile() string {
	return filepath.Join(XDGConfigDir(), "config.yaml")
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// We return the first error found because fixing one error often makes
// others irrelevant.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return ErrEmptyDataDir
	}

	// report_days divides spend in budget pacing
	if c.ReportDays <= 0 {
		return ErrInvalidReportDays
	}

	if !validFormats[strings.ToLower(c.Format)] {
		return ErrInvalidFormat
	}

	if c.Concurrency < 1 {
		return ErrInvalidConcurrency
	}

	for dir, acct := range c.Accounts {
		if acct.ReportDays < 0 {
			return &AccountError{Dir: dir, Err: ErrInvalidReportDays}
		}
	}

	return nil
}
