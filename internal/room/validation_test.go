package room

import (
	"errors"
	"strings"
	"testing"
)

func validRoom() *Room {
	return &Room{
		ID:       "room-veg-1",
		Name:     "Veg Room 1",
		IsActive: true,
		Targets: EnvironmentalTargets{
			Temperature:  Range{Min: 20, Max: 28},
			Humidity:     Range{Min: 50, Max: 70},
			CO2:          Range{Min: 400, Max: 1200},
			VPD:          Range{Min: 0.8, Max: 1.2},
			SoilMoisture: Range{Min: 40, Max: 70},
		},
		Automation: AutomationSettings{
			Enabled: true,
			Climate: ClimateSettings{
				Enabled:              true,
				TemperatureTolerance: 1,
				CirculationRange:     Range{Min: 0.2, Max: 1},
			},
			Lighting: LightingSettings{Enabled: true, OnHours: 18},
			CO2:      CO2Settings{Enabled: true, InjectionRate: 0.5},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Room)
		wantErr error
	}{
		{
			name:    "valid room",
			mutate:  func(_ *Room) {},
			wantErr: nil,
		},
		{
			name:    "empty name",
			mutate:  func(r *Room) { r.Name = "" },
			wantErr: ErrInvalidRoom,
		},
		{
			name:    "whitespace-only name",
			mutate:  func(r *Room) { r.Name = "   " },
			wantErr: ErrInvalidRoom,
		},
		{
			name:    "name too long",
			mutate:  func(r *Room) { r.Name = strings.Repeat("a", 101) },
			wantErr: ErrInvalidRoom,
		},
		{
			name:    "inverted temperature band",
			mutate:  func(r *Room) { r.Targets.Temperature = Range{Min: 30, Max: 20} },
			wantErr: ErrInvalidTargets,
		},
		{
			name:    "negative tolerance",
			mutate:  func(r *Room) { r.Automation.Climate.TemperatureTolerance = -1 },
			wantErr: ErrInvalidSettings,
		},
		{
			name:    "circulation range above 1",
			mutate:  func(r *Room) { r.Automation.Climate.CirculationRange = Range{Min: 0.5, Max: 1.5} },
			wantErr: ErrInvalidSettings,
		},
		{
			name:    "photoperiod over 24h",
			mutate:  func(r *Room) { r.Automation.Lighting.OnHours = 25 },
			wantErr: ErrInvalidSettings,
		},
		{
			name:    "injection rate out of range",
			mutate:  func(r *Room) { r.Automation.CO2.InjectionRate = 1.5 },
			wantErr: ErrInvalidSettings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rm := validRoom()
			tt.mutate(rm)
			err := Validate(rm)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NilRoom(t *testing.T) {
	if err := Validate(nil); !errors.Is(err, ErrInvalidRoom) {
		t.Errorf("Validate(nil) error = %v, want ErrInvalidRoom", err)
	}
}

func TestRangeContains(t *testing.T) {
	band := Range{Min: 20, Max: 28}

	if !band.Contains(20) || !band.Contains(28) || !band.Contains(24) {
		t.Error("Contains() should be inclusive of bounds")
	}
	if band.Contains(19.9) || band.Contains(28.1) {
		t.Error("Contains() should reject values outside the band")
	}
}

func TestDeepCopy(t *testing.T) {
	rm := validRoom()
	cpy := rm.DeepCopy()

	if cpy == rm {
		t.Fatal("DeepCopy() returned the same pointer")
	}
	cpy.Targets.Temperature.Max = 99
	if rm.Targets.Temperature.Max == 99 {
		t.Error("mutating the copy affected the original")
	}

	var nilRoom *Room
	if nilRoom.DeepCopy() != nil {
		t.Error("DeepCopy() of nil should be nil")
	}
}
