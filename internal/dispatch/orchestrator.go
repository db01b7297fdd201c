package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minewatch/go-mine-alerts/internal/message"
	"github.com/minewatch/go-mine-alerts/internal/models"
	"github.com/minewatch/go-mine-alerts/internal/provider"
	"github.com/minewatch/go-mine-alerts/internal/repository"
)

type ChannelStats struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// Result summarizes one dispatch pass: how many devices were targeted, how
// many survived preference filtering, and every delivery record produced.
type Result struct {
	AlertID       string                          `json:"alert_id"`
	TotalTargeted int                             `json:"total_targeted"`
	Admitted      int                             `json:"admitted"`
	PerChannel    map[models.Channel]ChannelStats `json:"per_channel"`
	Records       []models.DeliveryRecord         `json:"records"`
}

// Orchestrator runs the full fan-out for one alert: resolve targets, filter
// by preference, then per device render, send, and track each channel
// attempt. Only the orchestrator creates and updates delivery records.
type Orchestrator struct {
	resolver    *Resolver
	providers   provider.Set
	deliveries  repository.DeliveryRepository
	concurrency int
	now         func() time.Time
}

func NewOrchestrator(resolver *Resolver, providers provider.Set, deliveries repository.DeliveryRepository, concurrency int) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		resolver:    resolver,
		providers:   providers,
		deliveries:  deliveries,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Dispatch executes one best-effort pass for an alert. Provider failures are
// isolated into failed records; a repository failure aborts the whole pass.
// Channel order within one device is fixed (push, sms, email); device order
// is unspecified and concurrent.
func (o *Orchestrator) Dispatch(ctx context.Context, alert *models.Alert, explicitIDs []string) (*Result, error) {
	if err := validateAlert(alert); err != nil {
		return nil, err
	}

	targets, err := o.resolver.Resolve(ctx, alert, explicitIDs)
	if err != nil {
		return nil, err
	}

	result := &Result{
		AlertID:       alert.ID,
		TotalTargeted: len(targets),
		PerChannel:    make(map[models.Channel]ChannelStats),
	}

	now := o.now()
	var admitted []models.Device
	for _, d := range targets {
		if Admits(&d, alert, now) {
			admitted = append(admitted, d)
		}
	}
	result.Admitted = len(admitted)

	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(o.concurrency)

	for _, device := range admitted {
		device := device
		eg.Go(func() error {
			for _, channel := range models.DispatchOrder {
				if !channelWanted(&device, alert, channel) {
					continue
				}

				record, err := o.attempt(egCtx, alert, &device, channel)
				if err != nil {
					// Repository failure: fatal to the whole pass.
					return err
				}

				mu.Lock()
				result.Records = append(result.Records, *record)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("dispatch aborted: %w", err)
	}

	for _, r := range result.Records {
		stats := result.PerChannel[r.Channel]
		if r.Status == models.DeliverySent {
			stats.Sent++
		} else {
			stats.Failed++
		}
		result.PerChannel[r.Channel] = stats
	}

	slog.Info("dispatch pass complete",
		"alert_id", alert.ID,
		"severity", alert.Severity,
		"targeted", result.TotalTargeted,
		"admitted", result.Admitted,
		"records", len(result.Records))

	return result, nil
}

// channelWanted applies the per-channel enable gates. Critical alerts force
// push and SMS regardless of the device's toggles; email stays opt-in even
// then, unless the device has an address on file. That asymmetry is
// deliberate and must not be "fixed".
func channelWanted(device *models.Device, alert *models.Alert, channel models.Channel) bool {
	prefs := device.Preferences
	critical := alert.Severity == models.SeverityCritical

	switch channel {
	case models.ChannelPush:
		return critical || prefs.EnablePush
	case models.ChannelSMS:
		return critical || prefs.EnableSMS
	case models.ChannelEmail:
		if critical {
			return prefs.EnableEmail || device.Email != ""
		}
		return prefs.EnableEmail
	default:
		return false
	}
}

// attempt runs one device/channel leg: create the pending record, validate
// the target, render, send, and record the terminal status. The returned
// error is always a repository error; send failures come back inside the
// record.
func (o *Orchestrator) attempt(ctx context.Context, alert *models.Alert, device *models.Device, channel models.Channel) (*models.DeliveryRecord, error) {
	record, err := o.deliveries.CreatePending(ctx, alert.ID, device.ID, channel)
	if err != nil {
		return nil, err
	}

	if verr := provider.ValidateTarget(device, channel); verr != nil {
		return o.finish(ctx, record, models.DeliveryFailed, "", verr.Error())
	}

	p, ok := o.providers[channel]
	if !ok {
		return o.finish(ctx, record, models.DeliveryFailed, "", fmt.Sprintf("no provider for channel %s", channel))
	}

	rendered := message.Render(alert.Severity, channel, alert)
	outcome, sendErr := p.Send(ctx, device, rendered)
	if sendErr != nil {
		slog.Warn("delivery attempt failed",
			"alert_id", alert.ID, "device_id", device.ID, "channel", channel, "error", sendErr)
		return o.finish(ctx, record, models.DeliveryFailed, "", sendErr.Error())
	}

	return o.finish(ctx, record, models.DeliverySent, outcome.ProviderRef, "")
}

func (o *Orchestrator) finish(ctx context.Context, record *models.DeliveryRecord, status models.DeliveryStatus, providerRef, errMsg string) (*models.DeliveryRecord, error) {
	if err := o.deliveries.UpdateDeliveryStatus(ctx, record.ID, status, providerRef, errMsg); err != nil {
		return nil, err
	}

	record.Status = status
	record.ProviderRef = providerRef
	record.ErrorMessage = errMsg
	if status == models.DeliverySent {
		t := o.now()
		record.SentAt = &t
	}
	return record, nil
}

func validateAlert(alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is nil")
	}
	if alert.ID == "" {
		return fmt.Errorf("alert has no id")
	}
	if !alert.Severity.Valid() {
		return fmt.Errorf("alert %s has invalid severity %q", alert.ID, alert.Severity)
	}
	if alert.RiskScore < 0 || alert.RiskScore > 10 {
		return fmt.Errorf("alert %s has out-of-range risk score %.2f", alert.ID, alert.RiskScore)
	}
	return nil
}
