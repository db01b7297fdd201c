// Package risk converts raw zone risk scores into classified alerts.
package risk

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minewatch/go-mine-alerts/internal/models"
)

// Thresholds are the three ascending score levels on the 0-10 scale that
// gate alerting. Crossing High produces a medium-severity alert, Critical a
// high-severity one, Emergency a critical one.
type Thresholds struct {
	High      float64
	Critical  float64
	Emergency float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{High: 7.5, Critical: 8.5, Emergency: 9.0}
}

type Evaluator struct {
	thresholds Thresholds
	now        func() time.Time
}

func NewEvaluator(t Thresholds) *Evaluator {
	return &Evaluator{
		thresholds: t,
		now:        time.Now,
	}
}

// Evaluate classifies one sensor reading. It returns nil when the score
// stays below the High threshold. Pure aside from ID and timestamp
// generation; persistence and dispatch belong to the caller.
func (e *Evaluator) Evaluate(zoneID, zoneName string, score float64, probability *float64) *models.Alert {
	if score < e.thresholds.High {
		return nil
	}

	var (
		severity models.Severity
		message  string
		actions  []string
	)
	switch {
	case score >= e.thresholds.Emergency:
		severity = models.SeverityCritical
		message = fmt.Sprintf("EMERGENCY: slope failure risk in %s has reached %.1f/10. Evacuate immediately.", zoneName, score)
		actions = []string{
			"Evacuate all personnel from the zone immediately",
			"Halt all equipment operating in or below the zone",
			"Muster at the designated safe assembly point",
			"Await all-clear from the control room",
		}
	case score >= e.thresholds.Critical:
		severity = models.SeverityHigh
		message = fmt.Sprintf("High risk detected in %s: score %.1f/10. Prepare to withdraw.", zoneName, score)
		actions = []string{
			"Suspend non-essential work in the zone",
			"Move equipment away from the highwall",
			"Keep evacuation routes clear",
			"Monitor for further instructions",
		}
	default:
		severity = models.SeverityMedium
		message = fmt.Sprintf("Elevated risk in %s: score %.1f/10. Exercise caution.", zoneName, score)
		actions = []string{
			"Increase visual inspection frequency",
			"Restrict access to essential personnel",
			"Verify radio contact with the control room",
		}
	}

	return &models.Alert{
		ID:                 uuid.NewString(),
		Severity:           severity,
		ZoneID:             zoneID,
		ZoneName:           zoneName,
		Message:            message,
		RiskScore:          score,
		RiskProbability:    probability,
		RecommendedActions: actions,
		AlertType:          models.AlertTypeRisk,
		Timestamp:          e.now(),
	}
}
