package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/minewatch/go-mine-alerts/internal/config"
	"github.com/minewatch/go-mine-alerts/internal/dispatch"
	"github.com/minewatch/go-mine-alerts/internal/events"
	"github.com/minewatch/go-mine-alerts/internal/models"
	"github.com/minewatch/go-mine-alerts/internal/provider"
	"github.com/minewatch/go-mine-alerts/internal/repository"
	"github.com/minewatch/go-mine-alerts/internal/risk"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// mockStore implements the Store interface in memory.
type mockStore struct {
	mu          sync.Mutex
	alerts      map[string]*models.Alert
	assessments []*models.RiskAssessment
}

func newMockStore() *mockStore {
	return &mockStore{alerts: make(map[string]*models.Alert)}
}

func (m *mockStore) AddAlert(ctx context.Context, a *models.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[a.ID] = a
	return nil
}

func (m *mockStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alerts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return a, nil
}

func (m *mockStore) ListAlerts(ctx context.Context, opts repository.AlertFilter) ([]models.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []models.Alert
	for _, a := range m.alerts {
		results = append(results, *a)
	}
	return results, nil
}

func (m *mockStore) AddAssessment(ctx context.Context, a *models.RiskAssessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments = append(m.assessments, a)
	return nil
}

func (m *mockStore) ListAssessments(ctx context.Context, zoneID string, limit int) ([]models.RiskAssessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []models.RiskAssessment
	for _, a := range m.assessments {
		results = append(results, *a)
	}
	return results, nil
}

func (m *mockStore) alertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

func (m *mockStore) assessmentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.assessments)
}

// mockDevices implements repository.DeviceRepository over a fixed set.
type mockDevices struct {
	devices []models.Device
}

func (m *mockDevices) Register(ctx context.Context, d *models.Device) error { return nil }

func (m *mockDevices) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	for i := range m.devices {
		if m.devices[i].ID == id {
			return &m.devices[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockDevices) ListDevices(ctx context.Context, opts repository.DeviceFilter) ([]models.Device, error) {
	var results []models.Device
	for _, d := range m.devices {
		if opts.ZoneID != "" && d.ZoneAssignment != opts.ZoneID {
			continue
		}
		results = append(results, d)
	}
	return results, nil
}

func (m *mockDevices) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error {
	return nil
}

func (m *mockDevices) Heartbeat(ctx context.Context, id string, battery int, network string, lat, lon float64, at time.Time) error {
	return nil
}

func (m *mockDevices) SetActive(ctx context.Context, id string, active bool) error { return nil }

func (m *mockDevices) Delete(ctx context.Context, id string, permanent bool) error { return nil }

// mockDeliveries counts records; status detail is covered elsewhere.
type mockDeliveries struct {
	mu      sync.Mutex
	records []models.DeliveryRecord
	seq     int
}

func (m *mockDeliveries) CreatePending(ctx context.Context, alertID, deviceID string, channel models.Channel) (*models.DeliveryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	r := models.DeliveryRecord{
		ID:               alertID + "-" + deviceID + "-" + string(channel),
		AlertID:          alertID,
		DeviceID:         deviceID,
		Channel:          channel,
		Status:           models.DeliveryPending,
		DeliveryAttempts: 1,
	}
	m.records = append(m.records, r)
	return &r, nil
}

func (m *mockDeliveries) UpdateDeliveryStatus(ctx context.Context, id string, status models.DeliveryStatus, providerRef, errMsg string) error {
	return nil
}

func (m *mockDeliveries) ListDeliveriesByAlert(ctx context.Context, alertID string) ([]models.DeliveryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.DeliveryRecord(nil), m.records...), nil
}

func (m *mockDeliveries) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func testConfig() *config.Config {
	return &config.Config{
		Worker: config.WorkerConfig{
			Count:      2,
			BufferSize: 50,
		},
		Monitor: config.MonitorConfig{
			FeedEnabled: false,
		},
		Dispatch: config.DispatchConfig{
			Concurrency: 2,
		},
	}
}

func newTestManager(store *mockStore, devices *mockDevices, deliveries *mockDeliveries) (*Manager, *events.Broadcaster) {
	providers := provider.Set{
		models.ChannelPush:  provider.NewSimulated(models.ChannelPush, 1.0, 0, 1),
		models.ChannelSMS:   provider.NewSimulated(models.ChannelSMS, 1.0, 0, 1),
		models.ChannelEmail: provider.NewSimulated(models.ChannelEmail, 1.0, 0, 1),
	}
	resolver := dispatch.NewResolver(devices, nil)
	orchestrator := dispatch.NewOrchestrator(resolver, providers, deliveries, 2)
	evaluator := risk.NewEvaluator(risk.DefaultThresholds())
	broadcaster := events.NewBroadcaster()

	return NewManager(testConfig(), evaluator, orchestrator, store, broadcaster), broadcaster
}

func TestManager_StartStop(t *testing.T) {
	mgr, broadcaster := newTestManager(newMockStore(), &mockDevices{}, &mockDeliveries{})
	defer broadcaster.Close()

	ctx, cancel := context.WithCancel(context.Background())

	mgr.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	cancel()
	mgr.Stop()
}

func TestManager_ProcessBelowThreshold(t *testing.T) {
	store := newMockStore()
	mgr, broadcaster := newTestManager(store, &mockDevices{}, &mockDeliveries{})
	defer broadcaster.Close()

	err := mgr.Process(context.Background(), Reading{
		ZoneID:    "Z1",
		ZoneName:  "North Pit",
		RiskScore: 4.2,
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if store.alertCount() != 0 {
		t.Errorf("expected no alert below threshold, got %d", store.alertCount())
	}
	if store.assessmentCount() != 1 {
		t.Fatalf("expected 1 assessment, got %d", store.assessmentCount())
	}
	if store.assessments[0].Severity != "" {
		t.Errorf("below-threshold assessment should carry no severity, got %q", store.assessments[0].Severity)
	}
}

func TestManager_ProcessRaisesAndDispatches(t *testing.T) {
	store := newMockStore()
	devices := &mockDevices{devices: []models.Device{{
		ID:             "d1",
		OwnerName:      "Operator",
		PhoneNumber:    "+15550001",
		Email:          "op@example.com",
		PushToken:      "tok",
		ZoneAssignment: "Z1",
		IsActive:       true,
		Preferences:    models.DefaultPreferences(),
	}}}
	deliveries := &mockDeliveries{}

	mgr, broadcaster := newTestManager(store, devices, deliveries)
	defer broadcaster.Close()

	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)

	p := 0.8
	err := mgr.Process(ctx, Reading{
		ZoneID:      "Z1",
		ZoneName:    "North Pit",
		RiskScore:   9.5,
		Probability: &p,
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	if store.alertCount() != 1 {
		t.Fatalf("expected 1 alert, got %d", store.alertCount())
	}
	if store.assessmentCount() != 1 {
		t.Fatalf("expected 1 assessment, got %d", store.assessmentCount())
	}
	assessment := store.assessments[0]
	if assessment.Severity != models.SeverityCritical || assessment.AlertID == "" {
		t.Errorf("assessment should link the raised alert: %+v", assessment)
	}

	// The alert travels broadcaster -> dispatch loop -> worker pool; wait for
	// the delivery records to appear.
	deadline := time.After(2 * time.Second)
	for deliveries.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for dispatch to produce delivery records")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	mgr.Stop()

	// Critical alert, fully reachable device: one record per channel.
	if deliveries.count() != 3 {
		t.Errorf("expected 3 delivery records, got %d", deliveries.count())
	}
}

func TestManager_GracefulShutdown(t *testing.T) {
	store := newMockStore()
	mgr, broadcaster := newTestManager(store, &mockDevices{}, &mockDeliveries{})
	defer broadcaster.Close()

	ctx, cancel := context.WithCancel(context.Background())
	mgr.Start(ctx)

	for i := 0; i < 20; i++ {
		if err := mgr.Process(ctx, Reading{ZoneID: "Z1", ZoneName: "North Pit", RiskScore: 8.0}); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
	}

	cancel()

	done := make(chan struct{})
	go func() {
		mgr.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("manager.Stop() timed out - possible goroutine leak")
	}
}
