// Package monitor runs the background risk loop: polling the sensor feed,
// classifying readings, and queueing resulting alerts for dispatch.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minewatch/go-mine-alerts/internal/config"
	"github.com/minewatch/go-mine-alerts/internal/dispatch"
	"github.com/minewatch/go-mine-alerts/internal/events"
	"github.com/minewatch/go-mine-alerts/internal/models"
	"github.com/minewatch/go-mine-alerts/internal/repository"
	"github.com/minewatch/go-mine-alerts/internal/risk"
	"github.com/minewatch/go-mine-alerts/internal/worker"
)

// Store bundles the repositories the monitor persists into.
type Store interface {
	repository.AlertRepository
	repository.AssessmentRepository
}

type Manager struct {
	cfg          *config.Config
	evaluator    *risk.Evaluator
	orchestrator *dispatch.Orchestrator
	store        Store
	broadcaster  *events.Broadcaster

	pool  *worker.Pool[*models.Alert]
	subID uint64
	wg    sync.WaitGroup
}

func NewManager(cfg *config.Config, evaluator *risk.Evaluator, orchestrator *dispatch.Orchestrator, store Store, broadcaster *events.Broadcaster) *Manager {
	return &Manager{
		cfg:          cfg,
		evaluator:    evaluator,
		orchestrator: orchestrator,
		store:        store,
		broadcaster:  broadcaster,
	}
}

func (m *Manager) Start(ctx context.Context) {
	processor := func(ctx context.Context, alert *models.Alert) error {
		result, err := m.orchestrator.Dispatch(ctx, alert, nil)
		if err != nil {
			slog.Error("dispatch failed", "alert_id", alert.ID, "error", err)
			return err
		}
		slog.Info("alert dispatched",
			"alert_id", alert.ID,
			"severity", alert.Severity,
			"zone", alert.ZoneID,
			"targeted", result.TotalTargeted,
			"admitted", result.Admitted)
		return nil
	}

	m.pool = worker.NewPool(m.cfg.Worker.Count, m.cfg.Worker.BufferSize, processor)
	m.pool.Start(ctx)

	var alerts chan *models.Alert
	m.subID, alerts = m.broadcaster.Subscribe()
	m.wg.Add(1)
	go m.runDispatchLoop(ctx, alerts)

	if m.cfg.Monitor.FeedEnabled {
		m.wg.Add(1)
		go m.runPoller(ctx, m.cfg.Monitor.FeedURL, m.cfg.Monitor.PollInterval)
	}
}

func (m *Manager) runDispatchLoop(ctx context.Context, alerts chan *models.Alert) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case alert, ok := <-alerts:
			if !ok {
				return
			}
			m.pool.Submit(alert)
		}
	}
}

func (m *Manager) runPoller(ctx context.Context, url string, interval time.Duration) {
	defer m.wg.Done()
	slog.Info("starting sensor feed poller", "url", url, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.poll(ctx, url)

	for {
		select {
		case <-ctx.Done():
			slog.Info("sensor feed poller shutting down")
			return
		case <-ticker.C:
			m.poll(ctx, url)
		}
	}
}

func (m *Manager) poll(ctx context.Context, url string) {
	slog.Debug("polling sensor feed")

	readings, err := m.fetchReadings(ctx, url)
	if err != nil {
		slog.Error("sensor feed poll failed", "error", err)
		return
	}

	for _, r := range readings {
		if err := m.Process(ctx, r); err != nil {
			slog.Error("error processing reading", "zone", r.ZoneID, "error", err)
		}
	}

	slog.Debug("poll complete", "count", len(readings))
}

// Process evaluates one reading, persists the assessment snapshot, and, when
// a threshold was crossed, persists the alert and hands it to the dispatch
// queue via the broadcaster.
func (m *Manager) Process(ctx context.Context, r Reading) error {
	alert := m.evaluator.Evaluate(r.ZoneID, r.ZoneName, r.RiskScore, r.Probability)

	assessment := &models.RiskAssessment{
		ID:          uuid.NewString(),
		ZoneID:      r.ZoneID,
		ZoneName:    r.ZoneName,
		RiskScore:   r.RiskScore,
		Probability: r.Probability,
		CreatedAt:   time.Now(),
	}

	if alert != nil {
		if err := m.store.AddAlert(ctx, alert); err != nil {
			return err
		}
		assessment.Severity = alert.Severity
		assessment.AlertID = alert.ID
	}

	if err := m.store.AddAssessment(ctx, assessment); err != nil {
		return err
	}

	if alert != nil {
		m.broadcaster.Broadcast(alert)
		slog.Info("alert raised", "alert_id", alert.ID, "zone", alert.ZoneID, "severity", alert.Severity, "score", alert.RiskScore)
	}

	return nil
}

// Stop drains the poller and the dispatch queue.
func (m *Manager) Stop() {
	m.broadcaster.Unsubscribe(m.subID)
	m.wg.Wait()
	m.pool.Stop()
	slog.Info("risk monitor stopped")
}
