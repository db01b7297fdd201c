package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/minewatch/go-mine-alerts/internal/models"
)

func (s *SQLiteDB) AddAlert(ctx context.Context, a *models.Alert) error {
	actions, err := json.Marshal(a.RecommendedActions)
	if err != nil {
		return fmt.Errorf("error encoding recommended actions: %w", err)
	}

	var probability any
	if a.RiskProbability != nil {
		probability = *a.RiskProbability
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO alerts (
			id, severity, zone_id, zone_name, message, risk_score,
			risk_probability, recommended_actions, alert_type, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, string(a.Severity), a.ZoneID, a.ZoneName, a.Message, a.RiskScore,
		probability, string(actions), string(a.AlertType), a.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("error inserting alert: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, alertSelect+` WHERE id = ?`, id)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying alert: %w", err)
	}
	return a, nil
}

func (s *SQLiteDB) ListAlerts(ctx context.Context, opts AlertFilter) ([]models.Alert, error) {
	query := alertSelect + ` WHERE 1=1`
	args := []any{}

	if opts.ZoneID != "" {
		query += ` AND zone_id = ?`
		args = append(args, opts.ZoneID)
	}
	if opts.Severity != nil {
		query += ` AND severity = ?`
		args = append(args, string(*opts.Severity))
	}
	if opts.MinSeverity != nil {
		query += ` AND CASE severity
			WHEN 'low' THEN 1 WHEN 'medium' THEN 2 WHEN 'high' THEN 3 WHEN 'critical' THEN 4
			ELSE 0 END >= ?`
		args = append(args, opts.MinSeverity.Rank())
	}
	if opts.Since != nil {
		query += ` AND timestamp >= ?`
		args = append(args, *opts.Since)
	}

	query += ` ORDER BY timestamp DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

const alertSelect = `
	SELECT id, severity, zone_id, zone_name, message, risk_score,
		risk_probability, recommended_actions, alert_type, timestamp
	FROM alerts`

func scanAlert(row rowScanner) (*models.Alert, error) {
	var (
		a           models.Alert
		severity    string
		alertType   string
		probability sql.NullFloat64
		actions     string
	)
	err := row.Scan(&a.ID, &severity, &a.ZoneID, &a.ZoneName, &a.Message,
		&a.RiskScore, &probability, &actions, &alertType, &a.Timestamp)
	if err != nil {
		return nil, err
	}

	a.Severity = models.Severity(severity)
	a.AlertType = models.AlertType(alertType)
	if probability.Valid {
		p := probability.Float64
		a.RiskProbability = &p
	}
	if err := json.Unmarshal([]byte(actions), &a.RecommendedActions); err != nil {
		return nil, fmt.Errorf("error decoding recommended actions for alert %s: %w", a.ID, err)
	}
	return &a, nil
}
