package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/minewatch/go-mine-alerts/internal/models"
	"github.com/minewatch/go-mine-alerts/internal/repository"
)

// mockDeviceRepo implements repository.DeviceRepository for testing.
type mockDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]*models.Device
	err     error
}

func newMockDeviceRepo(devices ...*models.Device) *mockDeviceRepo {
	m := &mockDeviceRepo{devices: make(map[string]*models.Device)}
	for _, d := range devices {
		m.devices[d.ID] = d
	}
	return m
}

func (m *mockDeviceRepo) Register(ctx context.Context, d *models.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[d.ID] = d
	return nil
}

func (m *mockDeviceRepo) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return d, nil
}

func (m *mockDeviceRepo) ListDevices(ctx context.Context, opts repository.DeviceFilter) ([]models.Device, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var results []models.Device
	for _, d := range m.devices {
		if opts.ZoneID != "" && d.ZoneAssignment != opts.ZoneID {
			continue
		}
		if opts.ActiveOnly && !d.IsActive {
			continue
		}
		results = append(results, *d)
	}
	return results, nil
}

func (m *mockDeviceRepo) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error {
	return nil
}

func (m *mockDeviceRepo) Heartbeat(ctx context.Context, id string, battery int, network string, lat, lon float64, at time.Time) error {
	return nil
}

func (m *mockDeviceRepo) SetActive(ctx context.Context, id string, active bool) error {
	return nil
}

func (m *mockDeviceRepo) Delete(ctx context.Context, id string, permanent bool) error {
	return nil
}

func deviceInZone(id, zone string) *models.Device {
	return &models.Device{
		ID:             id,
		OwnerName:      "Operator " + id,
		DeviceType:     "android",
		PhoneNumber:    "+15550001",
		Email:          id + "@example.com",
		PushToken:      "tok-" + id,
		ZoneAssignment: zone,
		IsActive:       true,
		Preferences:    models.DefaultPreferences(),
	}
}

func zoneAlert(zone string, sev models.Severity) *models.Alert {
	return &models.Alert{
		ID:        "alert-" + zone,
		Severity:  sev,
		ZoneID:    zone,
		ZoneName:  zone,
		RiskScore: 8.0,
		AlertType: models.AlertTypeRisk,
		Timestamp: time.Now(),
	}
}

func idsOf(devices []models.Device) map[string]bool {
	ids := make(map[string]bool, len(devices))
	for _, d := range devices {
		ids[d.ID] = true
	}
	return ids
}

func TestResolve_MediumSeverityStaysInZone(t *testing.T) {
	repo := newMockDeviceRepo(
		deviceInZone("a", "Z1"),
		deviceInZone("b", "Z2"),
		deviceInZone("c", "Z3"),
	)
	r := NewResolver(repo, map[string][]string{"Z1": {"Z2"}})

	targets, err := r.Resolve(context.Background(), zoneAlert("Z1", models.SeverityMedium), nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	ids := idsOf(targets)
	if !ids["a"] || ids["b"] || ids["c"] {
		t.Errorf("medium alert should target only Z1, got %v", ids)
	}
}

func TestResolve_HighSeverityIncludesAdjacentZones(t *testing.T) {
	repo := newMockDeviceRepo(
		deviceInZone("a", "Z1"),
		deviceInZone("b", "Z2"),
		deviceInZone("c", "Z3"),
	)
	r := NewResolver(repo, map[string][]string{"Z1": {"Z2"}})

	targets, err := r.Resolve(context.Background(), zoneAlert("Z1", models.SeverityHigh), nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	ids := idsOf(targets)
	if !ids["a"] || !ids["b"] {
		t.Errorf("high alert should reach Z1 and adjacent Z2, got %v", ids)
	}
	if ids["c"] {
		t.Error("high alert must not reach non-adjacent Z3")
	}
}

func TestResolve_CriticalSeverityBroadcastsSiteWide(t *testing.T) {
	repo := newMockDeviceRepo(
		deviceInZone("a", "Z1"),
		deviceInZone("b", "Z2"),
		deviceInZone("c", "Z3"),
	)
	r := NewResolver(repo, map[string][]string{"Z1": {"Z2"}})

	targets, err := r.Resolve(context.Background(), zoneAlert("Z1", models.SeverityCritical), nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(targets) != 3 {
		t.Errorf("critical alert should target all 3 devices site-wide, got %d", len(targets))
	}
}

func TestResolve_ExplicitIDs(t *testing.T) {
	repo := newMockDeviceRepo(
		deviceInZone("a", "Z1"),
		deviceInZone("b", "Z2"),
	)
	r := NewResolver(repo, nil)

	targets, err := r.Resolve(context.Background(), zoneAlert("Z3", models.SeverityCritical), []string{"b", "b", "missing"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(targets) != 1 || targets[0].ID != "b" {
		t.Errorf("explicit resolve should return exactly device b once, got %v", idsOf(targets))
	}
}

func TestResolve_DedupesAcrossZones(t *testing.T) {
	repo := newMockDeviceRepo(deviceInZone("a", "Z1"))
	// Z1 listed as its own neighbor must not duplicate the device.
	r := NewResolver(repo, map[string][]string{"Z1": {"Z1", "Z2"}})

	targets, err := r.Resolve(context.Background(), zoneAlert("Z1", models.SeverityHigh), nil)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(targets) != 1 {
		t.Errorf("expected 1 deduplicated target, got %d", len(targets))
	}
}

func TestResolve_StoreFailureFailsDispatch(t *testing.T) {
	repo := newMockDeviceRepo(deviceInZone("a", "Z1"))
	repo.err = errors.New("database unreachable")
	r := NewResolver(repo, nil)

	if _, err := r.Resolve(context.Background(), zoneAlert("Z1", models.SeverityMedium), nil); err == nil {
		t.Fatal("expected resolve to fail when the device store is unreachable")
	}
}
