package models

import (
	"strings"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities for threshold comparisons: low < medium < high < critical.
// Unknown severities rank below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

func (s Severity) Valid() bool {
	return s.Rank() > 0
}

func ParseSeverity(s string) Severity {
	switch strings.ToLower(s) {
	case "low":
		return SeverityLow
	case "medium":
		return SeverityMedium
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return ""
	}
}

type AlertType string

const (
	AlertTypeRisk      AlertType = "risk"
	AlertTypeTest      AlertType = "test"
	AlertTypeEmergency AlertType = "emergency"
)

// Alert is one notifiable event derived from a risk score crossing a
// threshold. Immutable once created; dispatch outcome lives in DeliveryRecord.
type Alert struct {
	ID                 string
	Severity           Severity
	ZoneID             string
	ZoneName           string
	Message            string
	RiskScore          float64  // 0-10
	RiskProbability    *float64 // 0-1, passed through from the caller when known
	RecommendedActions []string
	AlertType          AlertType
	Timestamp          time.Time
}
