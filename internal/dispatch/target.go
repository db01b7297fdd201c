// Package dispatch implements alert fan-out: resolving target devices,
// filtering by personal preferences, and orchestrating per-channel delivery.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/minewatch/go-mine-alerts/internal/models"
	"github.com/minewatch/go-mine-alerts/internal/repository"
)

// Resolver computes which devices an alert must reach. Adjacency is an
// injected zone -> neighbors lookup supplied by deployment configuration.
type Resolver struct {
	devices   repository.DeviceRepository
	adjacency map[string][]string
}

func NewResolver(devices repository.DeviceRepository, adjacency map[string][]string) *Resolver {
	return &Resolver{
		devices:   devices,
		adjacency: adjacency,
	}
}

// Resolve returns the deduplicated target set for an alert.
//   - Explicit device IDs address exactly those devices (test/simulation path).
//   - Otherwise the alert's zone is targeted; high severity widens to adjacent
//     zones, critical severity broadcasts site-wide.
//
// A device-store failure fails the whole dispatch; there is no cached
// fallback.
func (r *Resolver) Resolve(ctx context.Context, alert *models.Alert, explicitIDs []string) ([]models.Device, error) {
	if len(explicitIDs) > 0 {
		return r.resolveExplicit(ctx, explicitIDs)
	}

	if alert.Severity == models.SeverityCritical {
		devices, err := r.devices.ListDevices(ctx, repository.DeviceFilter{})
		if err != nil {
			return nil, fmt.Errorf("resolving site-wide targets: %w", err)
		}
		return devices, nil
	}

	zones := []string{alert.ZoneID}
	if alert.Severity == models.SeverityHigh {
		zones = append(zones, r.adjacency[alert.ZoneID]...)
	}

	seen := make(map[string]bool)
	var targets []models.Device
	for _, zone := range zones {
		devices, err := r.devices.ListDevices(ctx, repository.DeviceFilter{ZoneID: zone})
		if err != nil {
			return nil, fmt.Errorf("resolving targets for zone %s: %w", zone, err)
		}
		for _, d := range devices {
			if !seen[d.ID] {
				seen[d.ID] = true
				targets = append(targets, d)
			}
		}
	}
	return targets, nil
}

func (r *Resolver) resolveExplicit(ctx context.Context, ids []string) ([]models.Device, error) {
	seen := make(map[string]bool)
	var targets []models.Device
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		d, err := r.devices.GetDevice(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("explicit dispatch target not found", "device_id", id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolving explicit target %s: %w", id, err)
		}
		targets = append(targets, *d)
	}
	return targets, nil
}
