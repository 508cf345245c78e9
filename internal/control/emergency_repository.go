package control

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteEmergencyRepository implements EmergencyRepository using SQLite.
type SQLiteEmergencyRepository struct {
	db *sql.DB
}

// NewSQLiteEmergencyRepository creates a new SQLite-backed repository.
func NewSQLiteEmergencyRepository(db *sql.DB) *SQLiteEmergencyRepository {
	return &SQLiteEmergencyRepository{db: db}
}

// Insert stores a new emergency shutdown record.
func (r *SQLiteEmergencyRepository) Insert(ctx context.Context, rec *EmergencyShutdown) error {
	query := `
		INSERT INTO emergency_shutdowns (id, room_id, reason, timestamp, resolved, resolved_at)
		VALUES (?, ?, ?, ?, 0, NULL)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.RoomID, rec.Reason, rec.Timestamp.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting emergency record: %w", err)
	}
	return nil
}

// ResolveForRoom marks every unresolved record for the room resolved
// and returns how many were updated.
func (r *SQLiteEmergencyRepository) ResolveForRoom(ctx context.Context, roomID string, at time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE emergency_shutdowns SET resolved = 1, resolved_at = ? WHERE room_id = ? AND resolved = 0`,
		at.UTC().Format(time.RFC3339), roomID)
	if err != nil {
		return 0, fmt.Errorf("resolving emergency records: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking resolve result: %w", err)
	}
	return int(affected), nil
}

// UnresolvedForRoom returns the room's open emergency records, oldest
// first.
func (r *SQLiteEmergencyRepository) UnresolvedForRoom(ctx context.Context, roomID string) ([]EmergencyShutdown, error) {
	query := `
		SELECT id, room_id, reason, timestamp, resolved, resolved_at
		FROM emergency_shutdowns
		WHERE room_id = ? AND resolved = 0
		ORDER BY timestamp`

	rows, err := r.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("querying emergency records: %w", err)
	}
	defer rows.Close()

	var records []EmergencyShutdown
	for rows.Next() {
		var (
			rec        EmergencyShutdown
			timestamp  string
			resolved   int
			resolvedAt sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.RoomID, &rec.Reason, &timestamp, &resolved, &resolvedAt); err != nil {
			return nil, fmt.Errorf("scanning emergency record: %w", err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339, timestamp); err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		rec.Resolved = resolved != 0
		if resolvedAt.Valid {
			t, err := time.Parse(time.RFC3339, resolvedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing resolved_at: %w", err)
			}
			rec.ResolvedAt = &t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating emergency records: %w", err)
	}
	return records, nil
}
