package api

import (
	"github.com/minewatch/go-mine-alerts/internal/models"
)

type evaluateRequest struct {
	ZoneID      string   `json:"zone_id" binding:"required"`
	ZoneName    string   `json:"zone_name"`
	RiskScore   float64  `json:"risk_score" binding:"min=0,max=10"`
	Probability *float64 `json:"probability" binding:"omitempty,min=0,max=1"`
}

type dispatchRequest struct {
	Severity  string   `json:"severity" binding:"required"`
	ZoneID    string   `json:"zone_id" binding:"required"`
	ZoneName  string   `json:"zone_name"`
	Message   string   `json:"message"`
	RiskScore float64  `json:"risk_score" binding:"min=0,max=10"`
	AlertType string   `json:"alert_type"`
	DeviceIDs []string `json:"device_ids"`
}

type registerDeviceRequest struct {
	OwnerName        string              `json:"owner_name" binding:"required"`
	DeviceType       string              `json:"device_type" binding:"required"`
	PhoneNumber      string              `json:"phone_number"`
	Email            string              `json:"email"`
	PushToken        string              `json:"push_token"`
	PushSubscription string              `json:"push_subscription"`
	ZoneAssignment   string              `json:"zone_assignment" binding:"required"`
	Preferences      *preferencesRequest `json:"preferences"`
}

// preferencesRequest is the loosely-optional wire shape. It is normalized
// into models.Preferences exactly once, here at the boundary.
type preferencesRequest struct {
	EnablePush      *bool              `json:"enable_push"`
	EnableSMS       *bool              `json:"enable_sms"`
	EnableEmail     *bool              `json:"enable_email"`
	EnableVibration *bool              `json:"enable_vibration"`
	QuietHours      *models.QuietHours `json:"quiet_hours"`
	MinimumSeverity string             `json:"minimum_severity"`
}

func (r *preferencesRequest) normalize() models.Preferences {
	prefs := models.DefaultPreferences()
	if r == nil {
		return prefs
	}

	if r.EnablePush != nil {
		prefs.EnablePush = *r.EnablePush
	}
	if r.EnableSMS != nil {
		prefs.EnableSMS = *r.EnableSMS
	}
	if r.EnableEmail != nil {
		prefs.EnableEmail = *r.EnableEmail
	}
	if r.EnableVibration != nil {
		prefs.EnableVibration = *r.EnableVibration
	}
	if r.QuietHours != nil && r.QuietHours.Start != "" && r.QuietHours.End != "" {
		prefs.QuietHours = r.QuietHours
	}
	if sev := models.ParseSeverity(r.MinimumSeverity); sev != "" {
		prefs.MinimumSeverity = sev
	}
	return prefs
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type heartbeatRequest struct {
	Battery       int     `json:"battery" binding:"min=0,max=100"`
	NetworkStatus string  `json:"network_status"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
}
