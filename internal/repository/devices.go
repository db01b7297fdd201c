package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minewatch/go-mine-alerts/internal/models"
)

func (s *SQLiteDB) Register(ctx context.Context, d *models.Device) error {
	prefs, err := json.Marshal(d.Preferences)
	if err != nil {
		return fmt.Errorf("error encoding preferences: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO devices (
			id, owner_name, device_type, phone_number, email, push_token,
			push_subscription, zone_assignment, is_active, preferences,
			battery, network_status, latitude, longitude, last_seen, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OwnerName, d.DeviceType, d.PhoneNumber, d.Email, d.PushToken,
		d.PushSubscription, d.ZoneAssignment, boolToInt(d.IsActive), string(prefs),
		d.Battery, d.NetworkStatus, d.Latitude, d.Longitude, nullTime(d.LastSeen), d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting device: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	row := s.db.QueryRowContext(ctx, deviceSelect+` WHERE id = ? AND deleted_at IS NULL`, id)
	d, err := scanDevice(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying device: %w", err)
	}
	return d, nil
}

func (s *SQLiteDB) ListDevices(ctx context.Context, opts DeviceFilter) ([]models.Device, error) {
	query := deviceSelect + ` WHERE deleted_at IS NULL`
	args := []any{}

	if opts.ZoneID != "" {
		query += ` AND zone_assignment = ?`
		args = append(args, opts.ZoneID)
	}
	if opts.ActiveOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying devices: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	return devices, rows.Err()
}

func (s *SQLiteDB) UpdatePreferences(ctx context.Context, id string, prefs models.Preferences) error {
	encoded, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("error encoding preferences: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE devices SET preferences = ? WHERE id = ? AND deleted_at IS NULL`,
		string(encoded), id)
	if err != nil {
		return fmt.Errorf("error updating preferences: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteDB) Heartbeat(ctx context.Context, id string, battery int, network string, lat, lon float64, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE devices
		SET battery = ?, network_status = ?, latitude = ?, longitude = ?, last_seen = ?
		WHERE id = ? AND deleted_at IS NULL`,
		battery, network, lat, lon, at, id)
	if err != nil {
		return fmt.Errorf("error recording heartbeat: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteDB) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE devices SET is_active = ? WHERE id = ? AND deleted_at IS NULL`,
		boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("error updating device active flag: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteDB) Delete(ctx context.Context, id string, permanent bool) error {
	var (
		res sql.Result
		err error
	)
	if permanent {
		res, err = s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	} else {
		res, err = s.db.ExecContext(ctx,
			`UPDATE devices SET deleted_at = ?, is_active = 0 WHERE id = ? AND deleted_at IS NULL`,
			time.Now(), id)
	}
	if err != nil {
		return fmt.Errorf("error deleting device: %w", err)
	}
	return requireRow(res)
}

const deviceSelect = `
	SELECT id, owner_name, device_type, phone_number, email, push_token,
		push_subscription, zone_assignment, is_active, preferences,
		battery, network_status, latitude, longitude, last_seen, created_at, deleted_at
	FROM devices`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*models.Device, error) {
	var (
		d        models.Device
		active   int
		prefs    string
		network  sql.NullString
		lastSeen sql.NullTime
		deleted  sql.NullTime
	)
	err := row.Scan(&d.ID, &d.OwnerName, &d.DeviceType, &d.PhoneNumber, &d.Email,
		&d.PushToken, &d.PushSubscription, &d.ZoneAssignment, &active, &prefs,
		&d.Battery, &network, &d.Latitude, &d.Longitude, &lastSeen, &d.CreatedAt, &deleted)
	if err != nil {
		return nil, err
	}

	d.IsActive = active == 1
	d.NetworkStatus = network.String
	if lastSeen.Valid {
		d.LastSeen = lastSeen.Time
	}
	if deleted.Valid {
		t := deleted.Time
		d.DeletedAt = &t
	}
	if err := json.Unmarshal([]byte(prefs), &d.Preferences); err != nil {
		return nil, fmt.Errorf("error decoding preferences for device %s: %w", d.ID, err)
	}
	return &d, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
