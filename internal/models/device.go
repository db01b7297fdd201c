package models

import "time"

// QuietHours is a per-device window during which non-critical alerts are
// suppressed. Start/End are "HH:MM" 24h clock strings; the window may wrap
// midnight (Start > End).
type QuietHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Preferences is the single normalized preference shape. It is constructed
// once at the API boundary (registration / preference update) and never
// re-interpreted downstream.
type Preferences struct {
	EnablePush      bool        `json:"enable_push"`
	EnableSMS       bool        `json:"enable_sms"`
	EnableEmail     bool        `json:"enable_email"`
	EnableVibration bool        `json:"enable_vibration"`
	QuietHours      *QuietHours `json:"quiet_hours,omitempty"`
	MinimumSeverity Severity    `json:"minimum_severity"`
}

// DefaultPreferences matches the defaults applied at device registration:
// push and SMS on, email opt-in, no quiet hours, low minimum severity.
func DefaultPreferences() Preferences {
	return Preferences{
		EnablePush:      true,
		EnableSMS:       true,
		EnableEmail:     false,
		EnableVibration: true,
		MinimumSeverity: SeverityLow,
	}
}

// Device is a registered notification endpoint bound to one person.
type Device struct {
	ID               string
	OwnerName        string
	DeviceType       string // android, ios, web
	PhoneNumber      string
	Email            string
	PushToken        string // mobile push token
	PushSubscription string // browser push subscription JSON
	ZoneAssignment   string
	IsActive         bool
	Preferences      Preferences
	Battery          int
	NetworkStatus    string
	Latitude         float64
	Longitude        float64
	LastSeen         time.Time
	CreatedAt        time.Time
	DeletedAt        *time.Time // soft delete marker
}
