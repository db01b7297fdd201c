package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/minewatch/go-mine-alerts/internal/dispatch"
	"github.com/minewatch/go-mine-alerts/internal/models"
	"github.com/minewatch/go-mine-alerts/internal/repository"
	"github.com/minewatch/go-mine-alerts/internal/risk"
)

// Repository is the full data-access surface the HTTP layer needs.
type Repository interface {
	repository.DeviceRepository
	repository.AlertRepository
	repository.DeliveryRepository
	repository.AssessmentRepository
}

type Handler struct {
	repo         Repository
	evaluator    *risk.Evaluator
	orchestrator *dispatch.Orchestrator
}

func NewHandler(repo Repository, evaluator *risk.Evaluator, orchestrator *dispatch.Orchestrator) *Handler {
	return &Handler{
		repo:         repo,
		evaluator:    evaluator,
		orchestrator: orchestrator,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	r.POST("/api/risk/evaluate", h.evaluateRisk)
	r.POST("/api/alerts/dispatch", h.dispatchAlert)
	r.GET("/api/alerts", h.listAlerts)
	r.GET("/api/alerts/:id/deliveries", h.listDeliveries)
	r.GET("/api/assessments", h.listAssessments)

	r.GET("/api/devices", h.listDevices)
	r.POST("/api/devices", h.registerDevice)
	r.PATCH("/api/devices/:id/preferences", h.updatePreferences)
	r.PATCH("/api/devices/:id/active", h.setActive)
	r.POST("/api/devices/:id/heartbeat", h.heartbeat)
	r.DELETE("/api/devices/:id", h.deleteDevice)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// evaluateRisk classifies a zone risk score and, when a threshold was
// crossed, runs a full dispatch pass synchronously and returns its summary.
func (h *Handler) evaluateRisk(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	zoneName := req.ZoneName
	if zoneName == "" {
		zoneName = req.ZoneID
	}

	alert := h.evaluator.Evaluate(req.ZoneID, zoneName, req.RiskScore, req.Probability)

	assessment := &models.RiskAssessment{
		ID:          uuid.NewString(),
		ZoneID:      req.ZoneID,
		ZoneName:    zoneName,
		RiskScore:   req.RiskScore,
		Probability: req.Probability,
		CreatedAt:   time.Now(),
	}

	if alert == nil {
		if err := h.repo.AddAssessment(ctx, assessment); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record assessment"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"alert":      nil,
			"assessment": assessmentJSON(assessment),
		})
		return
	}

	assessment.Severity = alert.Severity
	assessment.AlertID = alert.ID

	if err := h.repo.AddAlert(ctx, alert); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist alert"})
		return
	}
	if err := h.repo.AddAssessment(ctx, assessment); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record assessment"})
		return
	}

	result, err := h.orchestrator.Dispatch(ctx, alert, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"alert":    alertJSON(alert),
		"dispatch": result,
	})
}

// dispatchAlert builds an alert from the request and dispatches it directly,
// optionally to an explicit device list. Used for tests and drills.
func (h *Handler) dispatchAlert(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	severity := models.ParseSeverity(req.Severity)
	if severity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid severity: " + req.Severity})
		return
	}

	alertType := models.AlertType(req.AlertType)
	if alertType == "" {
		alertType = models.AlertTypeTest
	}
	zoneName := req.ZoneName
	if zoneName == "" {
		zoneName = req.ZoneID
	}
	msg := req.Message
	if msg == "" {
		msg = "Manual alert for " + zoneName
	}

	alert := &models.Alert{
		ID:        uuid.NewString(),
		Severity:  severity,
		ZoneID:    req.ZoneID,
		ZoneName:  zoneName,
		Message:   msg,
		RiskScore: req.RiskScore,
		AlertType: alertType,
		Timestamp: time.Now(),
	}

	ctx := c.Request.Context()
	if err := h.repo.AddAlert(ctx, alert); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist alert"})
		return
	}

	result, err := h.orchestrator.Dispatch(ctx, alert, req.DeviceIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"alert":    alertJSON(alert),
		"dispatch": result,
	})
}

func (h *Handler) listAlerts(c *gin.Context) {
	filter := repository.AlertFilter{
		Limit:  20,
		ZoneID: c.Query("zone"),
	}

	if s := c.Query("severity"); s != "" {
		if sev := models.ParseSeverity(s); sev != "" {
			filter.Severity = &sev
		}
	}
	if s := c.Query("min_severity"); s != "" {
		if sev := models.ParseSeverity(s); sev != "" {
			filter.MinSeverity = &sev
		}
	}
	if s := c.Query("since"); s != "" {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			filter.Since = &t
		}
	}
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 500 {
			filter.Limit = lim
		}
	}

	alerts, err := h.repo.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch alerts"})
		return
	}

	out := make([]gin.H, 0, len(alerts))
	for i := range alerts {
		out = append(out, alertJSON(&alerts[i]))
	}
	c.JSON(http.StatusOK, gin.H{"alerts": out})
}

func (h *Handler) listDeliveries(c *gin.Context) {
	records, err := h.repo.ListDeliveriesByAlert(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch deliveries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliveries": deliveriesJSON(records)})
}

func (h *Handler) listAssessments(c *gin.Context) {
	limit := 50
	if l := c.Query("limit"); l != "" {
		if lim, err := strconv.Atoi(l); err == nil && lim > 0 && lim <= 500 {
			limit = lim
		}
	}

	assessments, err := h.repo.ListAssessments(c.Request.Context(), c.Query("zone"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch assessments"})
		return
	}

	out := make([]gin.H, 0, len(assessments))
	for i := range assessments {
		out = append(out, assessmentJSON(&assessments[i]))
	}
	c.JSON(http.StatusOK, gin.H{"assessments": out})
}

func (h *Handler) listDevices(c *gin.Context) {
	filter := repository.DeviceFilter{
		ZoneID:     c.Query("zone"),
		ActiveOnly: c.Query("active") == "true",
	}

	devices, err := h.repo.ListDevices(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch devices"})
		return
	}

	out := make([]gin.H, 0, len(devices))
	for i := range devices {
		out = append(out, deviceJSON(&devices[i]))
	}
	c.JSON(http.StatusOK, gin.H{"devices": out})
}

func (h *Handler) registerDevice(c *gin.Context) {
	var req registerDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device := &models.Device{
		ID:               uuid.NewString(),
		OwnerName:        req.OwnerName,
		DeviceType:       req.DeviceType,
		PhoneNumber:      req.PhoneNumber,
		Email:            req.Email,
		PushToken:        req.PushToken,
		PushSubscription: req.PushSubscription,
		ZoneAssignment:   req.ZoneAssignment,
		IsActive:         true,
		Preferences:      req.Preferences.normalize(),
		CreatedAt:        time.Now(),
	}

	if err := h.repo.Register(c.Request.Context(), device); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register device"})
		return
	}

	c.JSON(http.StatusCreated, deviceJSON(device))
}

func (h *Handler) updatePreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	err := h.repo.UpdatePreferences(c.Request.Context(), id, req.normalize())
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update preferences"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// setActive flips the operator's on/off switch for a device. An inactive
// device receives nothing, including critical alerts.
func (h *Handler) setActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	err := h.repo.SetActive(c.Request.Context(), id, *req.Active)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update device"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated", "is_active": *req.Active})
}

func (h *Handler) heartbeat(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	err := h.repo.Heartbeat(c.Request.Context(), id, req.Battery, req.NetworkStatus, req.Latitude, req.Longitude, time.Now())
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record heartbeat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) deleteDevice(c *gin.Context) {
	permanent := c.Query("permanent") == "true"

	err := h.repo.Delete(c.Request.Context(), c.Param("id"), permanent)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete device"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted", "permanent": permanent})
}
