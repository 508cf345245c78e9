package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for device persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetByID retrieves a device by its unique identifier.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// List retrieves all devices.
	List(ctx context.Context) ([]Device, error)

	// ListByRoom retrieves all devices in a specific room.
	ListByRoom(ctx context.Context, roomID string) ([]Device, error)

	// Create inserts a new device.
	// Returns ErrDeviceExists if a device with the same ID already exists.
	Create(ctx context.Context, d *Device) error

	// Update modifies an existing device.
	// Returns ErrDeviceNotFound if the device does not exist.
	Update(ctx context.Context, d *Device) error

	// Delete removes a device by ID.
	// Returns ErrDeviceNotFound if the device does not exist.
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

const deviceColumns = `id, room_id, name, type, is_active, calibration, created_at, updated_at`

// GetByID retrieves a device by its unique identifier.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	d, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device %s: %w", id, err)
	}
	return d, nil
}

// List retrieves all devices ordered by room then name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices ORDER BY room_id, name`
	return r.queryDevices(ctx, query)
}

// ListByRoom retrieves all devices in a specific room.
func (r *SQLiteRepository) ListByRoom(ctx context.Context, roomID string) ([]Device, error) {
	query := `SELECT ` + deviceColumns + ` FROM devices WHERE room_id = ? ORDER BY name`
	return r.queryDevices(ctx, query, roomID)
}

func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, scanErr := scanDevice(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning device: %w", scanErr)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Create inserts a new device.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	if err := validate(d); err != nil {
		return err
	}

	calibration, err := json.Marshal(calibrationOrEmpty(d.Calibration))
	if err != nil {
		return fmt.Errorf("marshalling calibration: %w", err)
	}

	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now

	query := `
		INSERT INTO devices (id, room_id, name, type, is_active, calibration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		d.ID, d.RoomID, d.Name, string(d.Type), boolToInt(d.IsActive),
		string(calibration),
		d.CreatedAt.Format(time.RFC3339), d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Update modifies an existing device.
func (r *SQLiteRepository) Update(ctx context.Context, d *Device) error {
	if err := validate(d); err != nil {
		return err
	}

	calibration, err := json.Marshal(calibrationOrEmpty(d.Calibration))
	if err != nil {
		return fmt.Errorf("marshalling calibration: %w", err)
	}

	d.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE devices
		SET room_id = ?, name = ?, type = ?, is_active = ?, calibration = ?, updated_at = ?
		WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		d.RoomID, d.Name, string(d.Type), boolToInt(d.IsActive),
		string(calibration), d.UpdatedAt.Format(time.RFC3339), d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update result: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// Delete removes a device by ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanDevice.
type scanner interface {
	Scan(dest ...any) error
}

// scanDevice reads one device row.
func scanDevice(s scanner) (*Device, error) {
	var (
		d           Device
		devType     string
		isActive    int
		calibration string
		createdAt   string
		updatedAt   string
	)

	if err := s.Scan(&d.ID, &d.RoomID, &d.Name, &devType, &isActive, &calibration, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	d.Type = Type(devType)
	d.IsActive = isActive != 0

	if err := json.Unmarshal([]byte(calibration), &d.Calibration); err != nil {
		return nil, fmt.Errorf("unmarshalling calibration: %w", err)
	}

	var err error
	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &d, nil
}

// validate checks a device for structural errors.
func validate(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDevice)
	}
	if d.RoomID == "" {
		return fmt.Errorf("%w: room_id is required", ErrInvalidDevice)
	}
	if !d.Type.IsSensor() && !d.Type.IsActuator() {
		return fmt.Errorf("%w: %q", ErrUnknownType, d.Type)
	}
	return nil
}

// calibrationOrEmpty avoids persisting JSON null for a nil map.
func calibrationOrEmpty(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GenerateID creates a new unique device identifier.
func GenerateID() string {
	return uuid.New().String()
}
