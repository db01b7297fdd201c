package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minewatch/go-mine-alerts/internal/models"
)

// CreatePending inserts a pending delivery record, or, when the same
// alert/device/channel triple was dispatched before, resets the existing
// record to pending and increments its attempt counter.
func (s *SQLiteDB) CreatePending(ctx context.Context, alertID, deviceID string, channel models.Channel) (*models.DeliveryRecord, error) {
	id := uuid.NewString()
	now := time.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, alert_id, device_id, channel, status, delivery_attempts, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT (alert_id, device_id, channel) DO UPDATE SET
			status = excluded.status,
			delivery_attempts = delivery_attempts + 1,
			error_message = NULL,
			provider_ref = NULL,
			sent_at = NULL`,
		id, alertID, deviceID, string(channel), string(models.DeliveryPending), now,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating delivery record: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		deliverySelect+` WHERE alert_id = ? AND device_id = ? AND channel = ?`,
		alertID, deviceID, string(channel))
	record, err := scanDelivery(row)
	if err != nil {
		return nil, fmt.Errorf("error reading delivery record back: %w", err)
	}
	return record, nil
}

func (s *SQLiteDB) UpdateDeliveryStatus(ctx context.Context, id string, status models.DeliveryStatus, providerRef, errMsg string) error {
	var sentAt any
	if status == models.DeliverySent {
		sentAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE deliveries
		SET status = ?, provider_ref = ?, error_message = ?, sent_at = COALESCE(?, sent_at)
		WHERE id = ?`,
		string(status), providerRef, errMsg, sentAt, id)
	if err != nil {
		return fmt.Errorf("error updating delivery status: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteDB) ListDeliveriesByAlert(ctx context.Context, alertID string) ([]models.DeliveryRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		deliverySelect+` WHERE alert_id = ? ORDER BY created_at`, alertID)
	if err != nil {
		return nil, fmt.Errorf("error querying deliveries: %w", err)
	}
	defer rows.Close()

	var records []models.DeliveryRecord
	for rows.Next() {
		r, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning delivery: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

const deliverySelect = `
	SELECT id, alert_id, device_id, channel, status, delivery_attempts,
		error_message, provider_ref, created_at, sent_at, delivered_at, read_at
	FROM deliveries`

func scanDelivery(row rowScanner) (*models.DeliveryRecord, error) {
	var (
		r           models.DeliveryRecord
		channel     string
		status      string
		errMsg      sql.NullString
		providerRef sql.NullString
		sentAt      sql.NullTime
		deliveredAt sql.NullTime
		readAt      sql.NullTime
	)
	err := row.Scan(&r.ID, &r.AlertID, &r.DeviceID, &channel, &status,
		&r.DeliveryAttempts, &errMsg, &providerRef, &r.CreatedAt,
		&sentAt, &deliveredAt, &readAt)
	if err != nil {
		return nil, err
	}

	r.Channel = models.Channel(channel)
	r.Status = models.DeliveryStatus(status)
	r.ErrorMessage = errMsg.String
	r.ProviderRef = providerRef.String
	if sentAt.Valid {
		t := sentAt.Time
		r.SentAt = &t
	}
	if deliveredAt.Valid {
		t := deliveredAt.Time
		r.DeliveredAt = &t
	}
	if readAt.Valid {
		t := readAt.Time
		r.ReadAt = &t
	}
	return &r, nil
}

func (s *SQLiteDB) AddAssessment(ctx context.Context, a *models.RiskAssessment) error {
	var probability any
	if a.Probability != nil {
		probability = *a.Probability
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments (id, zone_id, zone_name, risk_score, probability, severity, alert_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ZoneID, a.ZoneName, a.RiskScore, probability, string(a.Severity), a.AlertID, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("error inserting risk assessment: %w", err)
	}
	return nil
}

func (s *SQLiteDB) ListAssessments(ctx context.Context, zoneID string, limit int) ([]models.RiskAssessment, error) {
	query := `
		SELECT id, zone_id, zone_name, risk_score, probability, severity, alert_id, created_at
		FROM risk_assessments WHERE 1=1`
	args := []any{}

	if zoneID != "" {
		query += ` AND zone_id = ?`
		args = append(args, zoneID)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying risk assessments: %w", err)
	}
	defer rows.Close()

	var assessments []models.RiskAssessment
	for rows.Next() {
		var (
			a           models.RiskAssessment
			probability sql.NullFloat64
			severity    sql.NullString
			alertID     sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.ZoneID, &a.ZoneName, &a.RiskScore,
			&probability, &severity, &alertID, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning risk assessment: %w", err)
		}
		if probability.Valid {
			p := probability.Float64
			a.Probability = &p
		}
		a.Severity = models.Severity(severity.String)
		a.AlertID = alertID.String
		assessments = append(assessments, a)
	}
	return assessments, rows.Err()
}
