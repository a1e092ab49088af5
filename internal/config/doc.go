// Package config provides configuration structures and utilities for adsaudit.
// It defines where exports are read from, where reports are written, the
// report format and per-account overrides.
package config
