package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity represents how urgently a finding needs attention.
//
// Design decision: We use iota-based constants rather than string constants
// so that findings can be sorted and compared directly. The JSON form is
// the upper-case name ("HIGH") so reports stay readable and stable.
type Severity int

const (
	// SeverityInfo indicates an observation with no direct cost impact.
	// Example: the general note recommending Smart Bidding once data allows.
	SeverityInfo Severity = iota

	// SeverityLow indicates hygiene issues with limited spend impact.
	// Examples: duplicate keywords, single-keyword ad groups, shared budgets.
	SeverityLow

	// SeverityMedium indicates issues that erode efficiency over time.
	// Examples: low CTR, weak ad strength, match-type imbalance.
	SeverityMedium

	// SeverityHigh indicates issues that are wasting money or capping
	// growth right now.
	// Examples: spend without conversions, budget-capped campaigns, ROAS below 1.
	SeverityHigh

	// SeverityCritical is reserved for account-breaking conditions. No
	// built-in rule emits it today but the scale keeps room for it.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity converts a severity name (case-insensitive) to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO":
		return SeverityInfo, nil
	case "LOW":
		return SeverityLow, nil
	case "MEDIUM":
		return SeverityMedium, nil
	case "HIGH":
		return SeverityHigh, nil
	case "CRITICAL":
		return SeverityCritical, nil
	default:
		return SeverityInfo, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalJSON encodes the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// AllSeverities returns every level from most to least severe.
func AllSeverities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
}

// SeverityCounts tallies findings per severity level.
type SeverityCounts struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
}

// Add increments the counter for s.
func (c *SeverityCounts) Add(s Severity) {
	switch s {
	case SeverityCritical:
		c.Critical++
	case SeverityHigh:
		c.High++
	case SeverityMedium:
		c.Medium++
	case SeverityLow:
		c.Low++
	default:
		c.Info++
	}
}

// Get returns the counter for s.
func (c SeverityCounts) Get(s Severity) int {
	switch s {
	case SeverityCritical:
		return c.Critical
	case SeverityHigh:
		return c.High
	case SeverityMedium:
		return c.Medium
	case SeverityLow:
		return c.Low
	default:
		return c.Info
	}
}

// Total returns the number of findings counted.
func (c SeverityCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low + c.Info
}
