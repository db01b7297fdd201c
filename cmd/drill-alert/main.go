// drill-alert fires a single dispatch pass against the configured database,
// useful for readiness drills and for exercising providers offline.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/minewatch/go-mine-alerts/internal/config"
	"github.com/minewatch/go-mine-alerts/internal/dispatch"
	"github.com/minewatch/go-mine-alerts/internal/logging"
	"github.com/minewatch/go-mine-alerts/internal/models"
	"github.com/minewatch/go-mine-alerts/internal/provider"
	"github.com/minewatch/go-mine-alerts/internal/repository"
)

func main() {
	zone := flag.String("zone", "", "zone id to target (required)")
	zoneName := flag.String("zone-name", "", "zone display name (defaults to zone id)")
	severity := flag.String("severity", "high", "drill severity: low, medium, high or critical")
	score := flag.Float64("score", 8.0, "risk score to stamp on the drill alert (0-10)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	if *zone == "" {
		logging.Fatalf("-zone is required")
	}
	sev := models.ParseSeverity(*severity)
	if sev == "" {
		logging.Fatalf("invalid severity: %s", *severity)
	}

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	adjacency, err := config.ParseAdjacency(cfg.Zones.Adjacency)
	if err != nil {
		logging.Fatalf("Failed to parse zone adjacency: %v", err)
	}

	name := *zoneName
	if name == "" {
		name = *zone
	}

	alert := &models.Alert{
		ID:        uuid.NewString(),
		Severity:  sev,
		ZoneID:    *zone,
		ZoneName:  name,
		Message:   "Readiness drill for " + name,
		RiskScore: *score,
		RecommendedActions: []string{
			"This is a drill - follow your normal alert procedure",
			"Report reception problems to the control room",
		},
		AlertType: models.AlertTypeTest,
		Timestamp: time.Now(),
	}

	providers := provider.NewSet(cfg.Providers, cfg.Dispatch.SendTimeout)
	resolver := dispatch.NewResolver(db, adjacency)
	orchestrator := dispatch.NewOrchestrator(resolver, providers, db, cfg.Dispatch.Concurrency)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := db.AddAlert(ctx, alert); err != nil {
		logging.Fatalf("Failed to persist drill alert: %v", err)
	}

	result, err := orchestrator.Dispatch(ctx, alert, nil)
	if err != nil {
		logging.Fatalf("Dispatch failed: %v", err)
	}

	slog.Info("drill complete", "alert_id", alert.ID, "targeted", result.TotalTargeted, "admitted", result.Admitted)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
