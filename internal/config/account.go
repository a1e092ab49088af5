package config

import (
	"path/filepath"
	"strings"
)

// AccountConfig holds overrides for a single account's export directory.
// This allows batch audits over accounts exported with different date ranges.
type AccountConfig struct {
	// Name is a display name for the account.
	Name string `mapstructure:"name" yaml:"name,omitempty"`

	// ReportDays overrides the global report_days for this account.
	// If zero, the global ReportDays is used.
	ReportDays int `mapstructure:"report_days" yaml:"report_days,omitempty"`
}

// Account returns the effective settings for a data directory. Entries are
// matched by the cleaned directory, then by its base name. Matching ignores
// case because the config loader folds keys to lower case.
func (c *Config) Account(dir string) AccountConfig {
	clean := filepath.Clean(dir)
	result := AccountConfig{Name: filepath.Base(clean), ReportDays: c.ReportDays}

	for _, key := range []string{clean, filepath.Base(clean)} {
		acct, ok := c.lookupAccount(key)
		if !ok {
			continue
		}
		if acct.Name != "" {
			result.Name = acct.Name
		}
		if acct.ReportDays != 0 {
			result.ReportDays = acct.ReportDays
		}
		break
	}

	return result
}

// ReportDaysFor returns the effective report_days for a data directory.
func (c *Config) ReportDaysFor(dir string) int {
	return c.Account(dir).ReportDays
}

func (c *Config) lookupAccount(key string) (AccountConfig, bool) {
	for k, acct := range c.Accounts {
		if strings.EqualFold(filepath.Clean(k), key) {
			return acct, true
		}
	}
	return AccountConfig{}, false
}
