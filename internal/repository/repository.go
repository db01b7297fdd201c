package repository

import (
	"context"
	"errors"
	"time"

	"github.com/minewatch/go-mine-alerts/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// AlertFilter narrows ListAlerts results. Nil pointer fields are ignored.
type AlertFilter struct {
	Limit       int
	Offset      int
	ZoneID      string
	Severity    *models.Severity
	MinSeverity *models.Severity // >= this rank (e.g. high includes high and critical)
	Since       *time.Time
}

// DeviceFilter narrows ListDevices results.
type DeviceFilter struct {
	ZoneID     string
	ActiveOnly bool
}

type DeviceRepository interface {
	Register(ctx context.Context, d *models.Device) error
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	ListDevices(ctx context.Context, opts DeviceFilter) ([]models.Device, error)
	UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error
	Heartbeat(ctx context.Context, id string, battery int, network string, lat, lon float64, at time.Time) error
	SetActive(ctx context.Context, id string, active bool) error
	// Delete soft-deletes by default; permanent removes the row.
	Delete(ctx context.Context, id string, permanent bool) error
}

type AlertRepository interface {
	AddAlert(ctx context.Context, a *models.Alert) error
	GetAlert(ctx context.Context, id string) (*models.Alert, error)
	ListAlerts(ctx context.Context, opts AlertFilter) ([]models.Alert, error)
}

// DeliveryRepository is the delivery tracker's persistence. CreatePending
// upserts on (alert_id, device_id, channel): a re-dispatch for the same alert
// reuses the record and increments DeliveryAttempts.
type DeliveryRepository interface {
	CreatePending(ctx context.Context, alertID, deviceID string, channel models.Channel) (*models.DeliveryRecord, error)
	UpdateDeliveryStatus(ctx context.Context, id string, status models.DeliveryStatus, providerRef, errMsg string) error
	ListDeliveriesByAlert(ctx context.Context, alertID string) ([]models.DeliveryRecord, error)
}

type AssessmentRepository interface {
	AddAssessment(ctx context.Context, a *models.RiskAssessment) error
	ListAssessments(ctx context.Context, zoneID string, limit int) ([]models.RiskAssessment, error)
}
