package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS devices (
			id TEXT PRIMARY KEY,
			owner_name TEXT NOT NULL,
			device_type TEXT NOT NULL,
			phone_number TEXT,
			email TEXT,
			push_token TEXT,
			push_subscription TEXT,
			zone_assignment TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			preferences TEXT NOT NULL,
			battery INTEGER NOT NULL DEFAULT 0,
			network_status TEXT,
			latitude REAL NOT NULL DEFAULT 0,
			longitude REAL NOT NULL DEFAULT 0,
			last_seen DATETIME,
			created_at DATETIME NOT NULL,
			deleted_at DATETIME
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			severity TEXT NOT NULL,
			zone_id TEXT NOT NULL,
			zone_name TEXT NOT NULL,
			message TEXT NOT NULL,
			risk_score REAL NOT NULL,
			risk_probability REAL,
			recommended_actions TEXT NOT NULL,
			alert_type TEXT NOT NULL,
			timestamp DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS deliveries (
			id TEXT PRIMARY KEY,
			alert_id TEXT NOT NULL,
			device_id TEXT NOT NULL,
			channel TEXT NOT NULL,
			status TEXT NOT NULL,
			delivery_attempts INTEGER NOT NULL DEFAULT 1,
			error_message TEXT,
			provider_ref TEXT,
			created_at DATETIME NOT NULL,
			sent_at DATETIME,
			delivered_at DATETIME,
			read_at DATETIME,
			UNIQUE (alert_id, device_id, channel),
			FOREIGN KEY (alert_id) REFERENCES alerts(id)
		);

		CREATE TABLE IF NOT EXISTS risk_assessments (
			id TEXT PRIMARY KEY,
			zone_id TEXT NOT NULL,
			zone_name TEXT NOT NULL,
			risk_score REAL NOT NULL,
			probability REAL,
			severity TEXT,
			alert_id TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_devices_zone ON devices(zone_assignment);
		CREATE INDEX IF NOT EXISTS idx_alerts_zone ON alerts(zone_id);
		CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts(timestamp);
		CREATE INDEX IF NOT EXISTS idx_deliveries_alert_id ON deliveries(alert_id);
		CREATE INDEX IF NOT EXISTS idx_assessments_zone ON risk_assessments(zone_id);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
