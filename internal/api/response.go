package api

import (
	"github.com/gin-gonic/gin"

	"github.com/minewatch/go-mine-alerts/internal/models"
)

func alertJSON(a *models.Alert) gin.H {
	return gin.H{
		"id":                  a.ID,
		"severity":            a.Severity,
		"zone_id":             a.ZoneID,
		"zone_name":           a.ZoneName,
		"message":             a.Message,
		"risk_score":          a.RiskScore,
		"risk_probability":    a.RiskProbability,
		"recommended_actions": a.RecommendedActions,
		"alert_type":          a.AlertType,
		"timestamp":           a.Timestamp,
	}
}

func deviceJSON(d *models.Device) gin.H {
	return gin.H{
		"id":              d.ID,
		"owner_name":      d.OwnerName,
		"device_type":     d.DeviceType,
		"phone_number":    d.PhoneNumber,
		"email":           d.Email,
		"zone_assignment": d.ZoneAssignment,
		"is_active":       d.IsActive,
		"preferences":     d.Preferences,
		"battery":         d.Battery,
		"network_status":  d.NetworkStatus,
		"last_seen":       d.LastSeen,
		"created_at":      d.CreatedAt,
	}
}

func deliveriesJSON(records []models.DeliveryRecord) []gin.H {
	out := make([]gin.H, 0, len(records))
	for _, r := range records {
		out = append(out, gin.H{
			"id":                r.ID,
			"alert_id":          r.AlertID,
			"device_id":         r.DeviceID,
			"channel":           r.Channel,
			"status":            r.Status,
			"delivery_attempts": r.DeliveryAttempts,
			"error_message":     r.ErrorMessage,
			"provider_ref":      r.ProviderRef,
			"created_at":        r.CreatedAt,
			"sent_at":           r.SentAt,
		})
	}
	return out
}

func assessmentJSON(a *models.RiskAssessment) gin.H {
	return gin.H{
		"id":          a.ID,
		"zone_id":     a.ZoneID,
		"zone_name":   a.ZoneName,
		"risk_score":  a.RiskScore,
		"probability": a.Probability,
		"severity":    a.Severity,
		"alert_id":    a.AlertID,
		"created_at":  a.CreatedAt,
	}
}
