package sensor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repository persists readings and alerts.
type Repository interface {
	// InsertReading stores a reading.
	InsertReading(ctx context.Context, r *Reading) error

	// HistoricalData returns readings for a room inside [from, to],
	// newest first, capped at limit.
	HistoricalData(ctx context.Context, roomID string, from, to time.Time, limit int) ([]Reading, error)

	// InsertAlert stores an alert.
	InsertAlert(ctx context.Context, a *Alert) error

	// SetAlertAcknowledged updates an alert's acknowledged flag.
	SetAlertAcknowledged(ctx context.Context, id string, acknowledged bool) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// InsertReading stores a reading.
func (r *SQLiteRepository) InsertReading(ctx context.Context, reading *Reading) error {
	metrics, err := json.Marshal(reading.Metrics)
	if err != nil {
		return fmt.Errorf("marshalling metrics: %w", err)
	}

	query := `
		INSERT INTO sensor_readings (id, device_id, room_id, timestamp, metrics, quality_score, is_anomaly)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		reading.ID, reading.DeviceID, reading.RoomID,
		reading.Timestamp.UTC().Format(time.RFC3339Nano),
		string(metrics), reading.QualityScore, boolToInt(reading.IsAnomaly),
	)
	if err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}
	return nil
}

// HistoricalData returns readings for a room inside [from, to], newest
// first, capped at limit.
func (r *SQLiteRepository) HistoricalData(ctx context.Context, roomID string, from, to time.Time, limit int) ([]Reading, error) {
	if limit <= 0 {
		limit = 1000
	}

	query := `
		SELECT id, device_id, room_id, timestamp, metrics, quality_score, is_anomaly
		FROM sensor_readings
		WHERE room_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, roomID,
		from.UTC().Format(time.RFC3339Nano), to.UTC().Format(time.RFC3339Nano), limit)
	if err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var (
			reading   Reading
			timestamp string
			metrics   string
			isAnomaly int
		)
		if err := rows.Scan(&reading.ID, &reading.DeviceID, &reading.RoomID,
			&timestamp, &metrics, &reading.QualityScore, &isAnomaly); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		if reading.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		if err := json.Unmarshal([]byte(metrics), &reading.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshalling metrics: %w", err)
		}
		reading.IsAnomaly = isAnomaly != 0
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return readings, nil
}

// InsertAlert stores an alert. Re-inserting the same deterministic
// alert ID is a no-op rather than an error.
func (r *SQLiteRepository) InsertAlert(ctx context.Context, a *Alert) error {
	query := `
		INSERT OR IGNORE INTO sensor_alerts
			(id, device_id, room_id, alert_type, severity, message, recommendation, acknowledged, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.DeviceID, a.RoomID, a.AlertType, string(a.Severity),
		a.Message, a.Recommendation, boolToInt(a.Acknowledged),
		a.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting alert: %w", err)
	}
	return nil
}

// SetAlertAcknowledged updates an alert's acknowledged flag.
func (r *SQLiteRepository) SetAlertAcknowledged(ctx context.Context, id string, acknowledged bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE sensor_alerts SET acknowledged = ? WHERE id = ?`, boolToInt(acknowledged), id)
	if err != nil {
		return fmt.Errorf("updating alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
