package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nitinshakthi/energy-tracker/internal/analytics"
	"github.com/nitinshakthi/energy-tracker/internal/tracker"
)

// Timestamps are stored as fixed-width UTC strings so lexicographic order in
// the index matches chronological order.
const timeLayout = "2006-01-02 15:04:05.000000000"

// Store handles persistent storage using SQLite
type Store struct {
	db *sql.DB
}

// NewStore creates a new store and initializes the database
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL lets dashboard reads run alongside ingestion appends.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// initialize creates the database schema
func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		api_key TEXT NOT NULL UNIQUE,
		tariff TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS homes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		address TEXT DEFAULT '',
		rooms TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS readings (
		id TEXT PRIMARY KEY,
		home_id TEXT NOT NULL,
		device_id TEXT NOT NULL,
		room_id TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		consumption REAL NOT NULL,
		watts REAL NOT NULL,
		cost REAL NOT NULL,
		is_peak_hour INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (home_id) REFERENCES homes(id)
	);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		home_id TEXT NOT NULL,
		type TEXT NOT NULL,
		severity TEXT NOT NULL DEFAULT 'medium',
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		recommendation TEXT DEFAULT '',
		is_read INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		FOREIGN KEY (home_id) REFERENCES homes(id)
	);

	CREATE INDEX IF NOT EXISTS idx_homes_user ON homes(user_id);
	CREATE INDEX IF NOT EXISTS idx_readings_home_time ON readings(home_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_readings_device_time ON readings(device_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_alerts_home ON alerts(home_id, is_read, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateUser inserts a new user
func (s *Store) CreateUser(ctx context.Context, u *tracker.User) error {
	tariffJSON, _ := json.Marshal(u.Tariff)

	query := `INSERT INTO users (id, name, email, api_key, tariff) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, u.ID, u.Name, u.Email, u.APIKey, string(tariffJSON))
	return err
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id string) (*tracker.User, error) {
	query := `SELECT id, name, email, api_key, tariff, created_at FROM users WHERE id = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByAPIKey retrieves a user by API key
func (s *Store) GetUserByAPIKey(ctx context.Context, apiKey string) (*tracker.User, error) {
	query := `SELECT id, name, email, api_key, tariff, created_at FROM users WHERE api_key = ?`
	return s.scanUser(s.db.QueryRowContext(ctx, query, apiKey))
}

func (s *Store) scanUser(row *sql.Row) (*tracker.User, error) {
	var u tracker.User
	var tariffJSON string

	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.APIKey, &tariffJSON, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tracker.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(tariffJSON), &u.Tariff)
	return &u, nil
}

// CreateHome inserts a new home with its room tree
func (s *Store) CreateHome(ctx context.Context, h *tracker.Home) error {
	roomsJSON, _ := json.Marshal(h.Rooms)

	query := `INSERT INTO homes (id, user_id, name, address, rooms) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, h.ID, h.UserID, h.Name, h.Address, string(roomsJSON))
	return err
}

// SaveHome updates an existing home, replacing its room tree
func (s *Store) SaveHome(ctx context.Context, h *tracker.Home) error {
	roomsJSON, _ := json.Marshal(h.Rooms)

	query := `UPDATE homes SET name = ?, address = ?, rooms = ? WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query, h.Name, h.Address, string(roomsJSON), h.ID)
	return err
}

// GetHome retrieves a home by ID
func (s *Store) GetHome(ctx context.Context, id string) (*tracker.Home, error) {
	query := `SELECT id, user_id, name, address, rooms, created_at FROM homes WHERE id = ?`

	var h tracker.Home
	var roomsJSON string

	err := s.db.QueryRowContext(ctx, query, id).Scan(&h.ID, &h.UserID, &h.Name, &h.Address, &roomsJSON, &h.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tracker.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(roomsJSON), &h.Rooms)
	if h.Rooms == nil {
		h.Rooms = []tracker.Room{}
	}

	return &h, nil
}

// ListHomes retrieves all homes for a user
func (s *Store) ListHomes(ctx context.Context, userID string) ([]tracker.Home, error) {
	query := `SELECT id, user_id, name, address, rooms, created_at FROM homes WHERE user_id = ? ORDER BY created_at, name`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	homes := []tracker.Home{}
	for rows.Next() {
		var h tracker.Home
		var roomsJSON string

		if err := rows.Scan(&h.ID, &h.UserID, &h.Name, &h.Address, &roomsJSON, &h.CreatedAt); err != nil {
			return nil, err
		}

		json.Unmarshal([]byte(roomsJSON), &h.Rooms)
		if h.Rooms == nil {
			h.Rooms = []tracker.Room{}
		}
		homes = append(homes, h)
	}

	return homes, rows.Err()
}

// DeleteHome deletes a home by ID
func (s *Store) DeleteHome(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM homes WHERE id = ?`, id)
	return err
}

// InsertReadings appends readings inside one transaction: either the whole
// batch becomes visible or none of it does.
func (s *Store) InsertReadings(ctx context.Context, readings []analytics.Reading) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO readings (id, home_id, device_id, room_id, timestamp, consumption, watts, cost, is_peak_hour)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for _, r := range readings {
		_, err := tx.ExecContext(ctx, query, r.ID, r.HomeID, r.DeviceID, r.RoomID,
			r.Timestamp.UTC().Format(timeLayout), r.Consumption, r.Watts, r.Cost, boolToInt(r.IsPeakHour))
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ReadingsInRange retrieves all readings for a home with timestamp in
// [rng.Start, rng.End], ascending.
func (s *Store) ReadingsInRange(ctx context.Context, homeID string, rng analytics.TimeRange) ([]analytics.Reading, error) {
	query := `SELECT id, home_id, device_id, room_id, timestamp, consumption, watts, cost, is_peak_hour
		FROM readings WHERE home_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp`

	rows, err := s.db.QueryContext(ctx, query, homeID,
		rng.Start.UTC().Format(timeLayout), rng.End.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReadings(rows)
}

// DeviceReadingsInRange retrieves one device's readings for a home within
// the range, ascending.
func (s *Store) DeviceReadingsInRange(ctx context.Context, homeID, deviceID string, rng analytics.TimeRange) ([]analytics.Reading, error) {
	query := `SELECT id, home_id, device_id, room_id, timestamp, consumption, watts, cost, is_peak_hour
		FROM readings WHERE device_id = ? AND home_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp`

	rows, err := s.db.QueryContext(ctx, query, deviceID, homeID,
		rng.Start.UTC().Format(timeLayout), rng.End.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReadings(rows)
}

// LatestReadings retrieves the newest readings for a home, newest first.
func (s *Store) LatestReadings(ctx context.Context, homeID string, limit int) ([]analytics.Reading, error) {
	query := `SELECT id, home_id, device_id, room_id, timestamp, consumption, watts, cost, is_peak_hour
		FROM readings WHERE home_id = ? ORDER BY timestamp DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, homeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReadings(rows)
}

func scanReadings(rows *sql.Rows) ([]analytics.Reading, error) {
	readings := []analytics.Reading{}
	for rows.Next() {
		var r analytics.Reading
		var ts string
		var peakInt int

		if err := rows.Scan(&r.ID, &r.HomeID, &r.DeviceID, &r.RoomID, &ts,
			&r.Consumption, &r.Watts, &r.Cost, &peakInt); err != nil {
			return nil, err
		}

		t, err := time.ParseInLocation(timeLayout, ts, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parsing reading timestamp: %w", err)
		}
		r.Timestamp = t
		r.IsPeakHour = peakInt == 1

		readings = append(readings, r)
	}

	return readings, rows.Err()
}

// InsertAlert inserts a notification
func (s *Store) InsertAlert(ctx context.Context, a *tracker.Alert) error {
	query := `INSERT INTO alerts (id, home_id, type, severity, title, message, recommendation, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, a.ID, a.HomeID, string(a.Type), string(a.Severity),
		a.Title, a.Message, a.Recommendation, boolToInt(a.IsRead), a.CreatedAt.UTC().Format(timeLayout))
	return err
}

// GetAlert retrieves an alert by ID
func (s *Store) GetAlert(ctx context.Context, id string) (*tracker.Alert, error) {
	query := `SELECT id, home_id, type, severity, title, message, recommendation, is_read, created_at
		FROM alerts WHERE id = ?`

	var a tracker.Alert
	var alertType, severity, ts string
	var readInt int

	err := s.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.HomeID, &alertType, &severity,
		&a.Title, &a.Message, &a.Recommendation, &readInt, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tracker.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.Type = tracker.AlertType(alertType)
	a.Severity = tracker.Severity(severity)
	a.IsRead = readInt == 1
	a.CreatedAt, _ = time.ParseInLocation(timeLayout, ts, time.UTC)

	return &a, nil
}

// UnreadAlerts retrieves unread alerts for a home, newest first.
func (s *Store) UnreadAlerts(ctx context.Context, homeID string, limit int) ([]tracker.Alert, error) {
	query := `SELECT id, home_id, type, severity, title, message, recommendation, is_read, created_at
		FROM alerts WHERE home_id = ? AND is_read = 0 ORDER BY created_at DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, homeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := []tracker.Alert{}
	for rows.Next() {
		var a tracker.Alert
		var alertType, severity, ts string
		var readInt int

		if err := rows.Scan(&a.ID, &a.HomeID, &alertType, &severity,
			&a.Title, &a.Message, &a.Recommendation, &readInt, &ts); err != nil {
			return nil, err
		}

		a.Type = tracker.AlertType(alertType)
		a.Severity = tracker.Severity(severity)
		a.IsRead = readInt == 1
		a.CreatedAt, _ = time.ParseInLocation(timeLayout, ts, time.UTC)

		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

// MarkAlertRead flips an alert's read flag
func (s *Store) MarkAlertRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE alerts SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tracker.ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
