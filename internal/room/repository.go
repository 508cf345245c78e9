package room

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository defines the interface for room persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a room by its unique identifier.
	// Returns ErrRoomNotFound if the room does not exist.
	GetByID(ctx context.Context, id string) (*Room, error)

	// List retrieves all rooms.
	List(ctx context.Context) ([]Room, error)

	// ListActive retrieves rooms with IsActive set.
	ListActive(ctx context.Context) ([]Room, error)

	// Create inserts a new room.
	// Returns ErrRoomExists if a room with the same ID already exists.
	Create(ctx context.Context, r *Room) error

	// Update modifies an existing room.
	// Returns ErrRoomNotFound if the room does not exist.
	Update(ctx context.Context, r *Room) error

	// Delete removes a room by ID.
	// Returns ErrRoomNotFound if the room does not exist.
	Delete(ctx context.Context, id string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const roomColumns = `id, name, is_active, targets, automation, created_at, updated_at`

// GetByID retrieves a room by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	rm, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("querying room %s: %w", id, err)
	}
	return rm, nil
}

// List retrieves all rooms ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms ORDER BY name`
	return r.queryRooms(ctx, query)
}

// ListActive retrieves all active rooms ordered by name.
func (r *SQLiteRepository) ListActive(ctx context.Context) ([]Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE is_active = 1 ORDER BY name`
	return r.queryRooms(ctx, query)
}

func (r *SQLiteRepository) queryRooms(ctx context.Context, query string, args ...any) ([]Room, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		rm, scanErr := scanRoom(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning room: %w", scanErr)
		}
		rooms = append(rooms, *rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rooms: %w", err)
	}
	return rooms, nil
}

// Create inserts a new room.
func (r *SQLiteRepository) Create(ctx context.Context, rm *Room) error {
	if err := Validate(rm); err != nil {
		return err
	}

	targets, err := json.Marshal(rm.Targets)
	if err != nil {
		return fmt.Errorf("marshalling targets: %w", err)
	}
	automation, err := json.Marshal(rm.Automation)
	if err != nil {
		return fmt.Errorf("marshalling automation settings: %w", err)
	}

	now := time.Now().UTC()
	if rm.CreatedAt.IsZero() {
		rm.CreatedAt = now
	}
	rm.UpdatedAt = now

	query := `
		INSERT INTO rooms (id, name, is_active, targets, automation, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		rm.ID, rm.Name, boolToInt(rm.IsActive),
		string(targets), string(automation),
		rm.CreatedAt.Format(time.RFC3339), rm.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrRoomExists
		}
		return fmt.Errorf("inserting room: %w", err)
	}
	return nil
}

// Update modifies an existing room.
func (r *SQLiteRepository) Update(ctx context.Context, rm *Room) error {
	if err := Validate(rm); err != nil {
		return err
	}

	targets, err := json.Marshal(rm.Targets)
	if err != nil {
		return fmt.Errorf("marshalling targets: %w", err)
	}
	automation, err := json.Marshal(rm.Automation)
	if err != nil {
		return fmt.Errorf("marshalling automation settings: %w", err)
	}

	rm.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE rooms
		SET name = ?, is_active = ?, targets = ?, automation = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		rm.Name, boolToInt(rm.IsActive),
		string(targets), string(automation),
		rm.UpdatedAt.Format(time.RFC3339), rm.ID,
	)
	if err != nil {
		return fmt.Errorf("updating room: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// Delete removes a room by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting room: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanRoom.
type scanner interface {
	Scan(dest ...any) error
}

// scanRoom reads one room row.
func scanRoom(s scanner) (*Room, error) {
	var (
		rm         Room
		isActive   int
		targets    string
		automation string
		createdAt  string
		updatedAt  string
	)

	if err := s.Scan(&rm.ID, &rm.Name, &isActive, &targets, &automation, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	rm.IsActive = isActive != 0

	if err := json.Unmarshal([]byte(targets), &rm.Targets); err != nil {
		return nil, fmt.Errorf("unmarshalling targets: %w", err)
	}
	if err := json.Unmarshal([]byte(automation), &rm.Automation); err != nil {
		return nil, fmt.Errorf("unmarshalling automation settings: %w", err)
	}

	var err error
	if rm.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if rm.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &rm, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation reports whether err is a SQLite unique constraint error.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
