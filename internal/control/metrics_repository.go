package control

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// MetricsRepository persists controller counters across restarts.
type MetricsRepository interface {
	Upsert(ctx context.Context, snap Snapshot, wateringDay string) error
	LoadAll(ctx context.Context) ([]PersistedController, error)
}

// PersistedController is one stored controller row.
type PersistedController struct {
	Snapshot    Snapshot
	WateringDay string
}

// SQLiteMetricsRepository implements MetricsRepository using SQLite.
type SQLiteMetricsRepository struct {
	db *sql.DB
}

// NewSQLiteMetricsRepository creates a new SQLite-backed repository.
func NewSQLiteMetricsRepository(db *sql.DB) *SQLiteMetricsRepository {
	return &SQLiteMetricsRepository{db: db}
}

// Upsert writes a controller snapshot, replacing any previous row for
// the (room, domain) pair.
func (r *SQLiteMetricsRepository) Upsert(ctx context.Context, snap Snapshot, wateringDay string) error {
	query := `
		INSERT INTO controller_metrics
			(room_id, domain, total_actions, error_count, last_action_time,
			 daily_watering_count, watering_day, energy_consumed, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(room_id, domain) DO UPDATE SET
			total_actions = excluded.total_actions,
			error_count = excluded.error_count,
			last_action_time = excluded.last_action_time,
			daily_watering_count = excluded.daily_watering_count,
			watering_day = excluded.watering_day,
			energy_consumed = excluded.energy_consumed,
			updated_at = excluded.updated_at`

	now := time.Now().UTC().Format(time.RFC3339)
	var lastAction string
	if !snap.LastActionTime.IsZero() {
		lastAction = snap.LastActionTime.UTC().Format(time.RFC3339)
	}

	_, err := r.db.ExecContext(ctx, query,
		snap.RoomID, string(snap.Domain), snap.TotalActions, snap.ErrorCount,
		lastAction, snap.DailyWateringCount, wateringDay, snap.EnergyConsumed,
		snap.StartedAt.UTC().Format(time.RFC3339), now)
	if err != nil {
		return fmt.Errorf("upserting controller metrics: %w", err)
	}
	return nil
}

// LoadAll returns every stored controller row.
func (r *SQLiteMetricsRepository) LoadAll(ctx context.Context) ([]PersistedController, error) {
	query := `
		SELECT room_id, domain, total_actions, error_count, last_action_time,
		       daily_watering_count, watering_day, energy_consumed, started_at
		FROM controller_metrics`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying controller metrics: %w", err)
	}
	defer rows.Close()

	var out []PersistedController
	for rows.Next() {
		var (
			pc         PersistedController
			domain     string
			lastAction string
			startedAt  string
		)
		if err := rows.Scan(&pc.Snapshot.RoomID, &domain,
			&pc.Snapshot.TotalActions, &pc.Snapshot.ErrorCount, &lastAction,
			&pc.Snapshot.DailyWateringCount, &pc.WateringDay,
			&pc.Snapshot.EnergyConsumed, &startedAt); err != nil {
			return nil, fmt.Errorf("scanning controller metrics: %w", err)
		}
		pc.Snapshot.Domain = Domain(domain)
		if lastAction != "" {
			if pc.Snapshot.LastActionTime, err = time.Parse(time.RFC3339, lastAction); err != nil {
				return nil, fmt.Errorf("parsing last_action_time: %w", err)
			}
		}
		if pc.Snapshot.StartedAt, err = time.Parse(time.RFC3339, startedAt); err != nil {
			return nil, fmt.Errorf("parsing started_at: %w", err)
		}
		out = append(out, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating controller metrics: %w", err)
	}
	return out, nil
}
