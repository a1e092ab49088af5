package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".adsaudit"

// Load builds the configuration from defaults, the config file and
// environment variables, in increasing precedence. CLI flags are applied
// by the caller on top of the result.
//
// If configPath is set and does not exist, Load returns ErrConfigNotFound.
// Without configPath a missing file is not an error.
func Load(configPath string) (*Config, error) {
	// Account keys are directory paths, which may contain dots.
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	defaults := NewConfig()
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("report_days", defaults.ReportDays)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("concurrency", defaults.Concurrency)
	v.SetDefault("verbose", defaults.Verbose)

	path := FindConfigFile(configPath)
	if configPath != "" && path == "" {
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	c := NewConfig()
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Accounts == nil {
		c.Accounts = make(map[string]AccountConfig)
	}
	c.ConfigFilePath = path
	return c, nil
}

// Save writes c as YAML to path, creating parent directories.
// It refuses to overwrite an existing file unless force is set.
func Save(c *Config, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("check config file: %w", err)
		}
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
	}

	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .adsaudit in the current directory
// 3. Look for config.yaml in the XDG config directory
// 4. Look for .adsaudit in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, XDGConfigFile())
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}
