package dispatch

import (
	"time"

	"github.com/minewatch/go-mine-alerts/internal/models"
)

// Admits reports whether a device should be targeted for an alert at all.
// Critical alerts bypass minimum severity and quiet hours but never an
// inactive device. Per-channel enable flags are applied later by the
// orchestrator, not here.
func Admits(device *models.Device, alert *models.Alert, now time.Time) bool {
	if !device.IsActive {
		return false
	}
	if alert.Severity == models.SeverityCritical {
		return true
	}

	prefs := device.Preferences
	if prefs.MinimumSeverity.Valid() && alert.Severity.Rank() < prefs.MinimumSeverity.Rank() {
		return false
	}
	if inQuietHours(prefs.QuietHours, now) {
		return false
	}
	return true
}

// inQuietHours checks whether now falls inside the quiet window. When the
// window wraps midnight (start > end), inside means [start,24:00) or
// [00:00,end]; otherwise [start,end].
func inQuietHours(q *models.QuietHours, now time.Time) bool {
	if q == nil {
		return false
	}

	start, okStart := parseClock(q.Start)
	end, okEnd := parseClock(q.End)
	if !okStart || !okEnd {
		return false
	}

	minute := now.Hour()*60 + now.Minute()
	if start > end {
		return minute >= start || minute <= end
	}
	return minute >= start && minute <= end
}

// parseClock converts "HH:MM" to minutes past midnight.
func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}
