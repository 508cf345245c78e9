package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the devices table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE devices (
			id          TEXT PRIMARY KEY,
			room_id     TEXT NOT NULL,
			name        TEXT NOT NULL,
			type        TEXT NOT NULL,
			is_active   INTEGER NOT NULL DEFAULT 1,
			calibration TEXT NOT NULL DEFAULT '{}',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func validDevice() *Device {
	return &Device{
		ID:       "dev-th-1",
		RoomID:   "room-veg-1",
		Name:     "Canopy Temp/RH Probe",
		Type:     TypeTempHumidity,
		IsActive: true,
		Calibration: map[string]float64{
			"temperature": -0.3,
			"humidity":    1.2,
		},
	}
}

func TestRepositoryCreateAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := validDevice()
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != d.Name {
		t.Errorf("Name = %q, want %q", got.Name, d.Name)
	}
	if got.Type != TypeTempHumidity {
		t.Errorf("Type = %q, want %q", got.Type, TypeTempHumidity)
	}
	if got.Calibration["temperature"] != -0.3 {
		t.Errorf("Calibration[temperature] = %v, want -0.3", got.Calibration["temperature"])
	}
	if !got.IsActive {
		t.Error("IsActive = false, want true")
	}
}

func TestRepositoryCreateDuplicate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := validDevice()
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(ctx, d); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("Create() duplicate error = %v, want ErrDeviceExists", err)
	}
}

func TestRepositoryCreateInvalid(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*Device)
		wantErr error
	}{
		{"missing name", func(d *Device) { d.Name = " " }, ErrInvalidDevice},
		{"missing room", func(d *Device) { d.RoomID = "" }, ErrInvalidDevice},
		{"unknown type", func(d *Device) { d.Type = "toaster" }, ErrUnknownType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDevice()
			tt.mutate(d)
			if err := repo.Create(ctx, d); !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRepositoryGetMissing(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "nope")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRepositoryListByRoom(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	probe := validDevice()
	if err := repo.Create(ctx, probe); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	heater := validDevice()
	heater.ID = "dev-heat-1"
	heater.Name = "Veg Heater"
	heater.Type = TypeHeater
	if err := repo.Create(ctx, heater); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	other := validDevice()
	other.ID = "dev-th-2"
	other.RoomID = "room-flower-1"
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	devices, err := repo.ListByRoom(ctx, "room-veg-1")
	if err != nil {
		t.Fatalf("ListByRoom() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("ListByRoom() returned %d devices, want 2", len(devices))
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("List() returned %d devices, want 3", len(all))
	}
}

func TestRepositoryUpdate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := validDevice()
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	d.Name = "Recalibrated Probe"
	d.Calibration["temperature"] = 0.1
	d.IsActive = false
	if err := repo.Update(ctx, d); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Recalibrated Probe" {
		t.Errorf("Name = %q, want updated name", got.Name)
	}
	if got.Calibration["temperature"] != 0.1 {
		t.Errorf("Calibration[temperature] = %v, want 0.1", got.Calibration["temperature"])
	}
	if got.IsActive {
		t.Error("IsActive = true, want false")
	}
}

func TestRepositoryUpdateMissing(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	d := validDevice()
	d.ID = "ghost"
	if err := repo.Update(context.Background(), d); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Update() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRepositoryDelete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := validDevice()
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Delete(ctx, d.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, d.ID); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrDeviceNotFound", err)
	}
	if err := repo.Delete(ctx, d.ID); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Delete() missing error = %v, want ErrDeviceNotFound", err)
	}
}
