package advisor

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/canopylabs/canopy-core/internal/room"
	"github.com/canopylabs/canopy-core/internal/sensor"
)

type stubRooms struct {
	rooms map[string]*room.Room
}

func (s *stubRooms) GetRoom(_ context.Context, id string) (*room.Room, error) {
	rm, ok := s.rooms[id]
	if !ok {
		return nil, errors.New("room not found")
	}
	return rm, nil
}

func wateringRoom(threshold float64) *room.Room {
	return &room.Room{
		ID:       "room-1",
		IsActive: true,
		Automation: room.AutomationSettings{
			Enabled: true,
			Watering: room.WateringSettings{
				Enabled:           true,
				MoistureThreshold: threshold,
				SmartWatering:     true,
			},
		},
	}
}

func newTestAdvisor(threshold float64) *Advisor {
	return New(&stubRooms{rooms: map[string]*room.Room{
		"room-1": wateringRoom(threshold),
	}})
}

func TestPredictNearThresholdHighDemand(t *testing.T) {
	a := newTestAdvisor(40)

	// 2% above threshold with vpd 1.8: proximity 0.8, demand 0.9
	pred, err := a.PredictWateringNeed(context.Background(), "room-1", map[string]float64{
		sensor.MetricSoilMoisture: 42,
		sensor.MetricVPD:          1.8,
	})
	if err != nil {
		t.Fatalf("PredictWateringNeed() error = %v", err)
	}
	if !pred.ShouldWater {
		t.Fatal("ShouldWater = false near threshold under high demand")
	}
	if pred.Confidence <= 0.7 {
		t.Errorf("Confidence = %v, want above the control gate (0.7)", pred.Confidence)
	}
	if pred.Amount <= 0 || pred.Amount > 1 {
		t.Errorf("Amount = %v, want in (0,1]", pred.Amount)
	}
}

func TestPredictBorderlineStaysBelowGate(t *testing.T) {
	a := newTestAdvisor(40)

	// 8% headroom: recommends watering but with low confidence, so the
	// control loop's gate keeps it from acting
	pred, err := a.PredictWateringNeed(context.Background(), "room-1", map[string]float64{
		sensor.MetricSoilMoisture: 48,
		sensor.MetricVPD:          1.8,
	})
	if err != nil {
		t.Fatalf("PredictWateringNeed() error = %v", err)
	}
	if !pred.ShouldWater {
		t.Fatal("ShouldWater = false, want borderline recommendation")
	}
	if pred.Confidence > 0.7 {
		t.Errorf("Confidence = %v, want at or below the control gate for 8%% headroom", pred.Confidence)
	}
}

func TestPredictComfortablyWet(t *testing.T) {
	a := newTestAdvisor(40)

	pred, err := a.PredictWateringNeed(context.Background(), "room-1", map[string]float64{
		sensor.MetricSoilMoisture: 55,
		sensor.MetricVPD:          1.8,
	})
	if err != nil {
		t.Fatalf("PredictWateringNeed() error = %v", err)
	}
	if pred.ShouldWater {
		t.Error("ShouldWater = true with 15% headroom")
	}
}

func TestPredictLowDemand(t *testing.T) {
	a := newTestAdvisor(40)

	pred, err := a.PredictWateringNeed(context.Background(), "room-1", map[string]float64{
		sensor.MetricSoilMoisture: 42,
		sensor.MetricVPD:          0.4,
	})
	if err != nil {
		t.Fatalf("PredictWateringNeed() error = %v", err)
	}
	if pred.ShouldWater {
		t.Error("ShouldWater = true under low evaporative demand")
	}
}

func TestPredictDerivesVPDFromClimate(t *testing.T) {
	a := newTestAdvisor(40)

	// No vpd metric; 28C at 40% RH derives roughly 2.3 kPa
	pred, err := a.PredictWateringNeed(context.Background(), "room-1", map[string]float64{
		sensor.MetricSoilMoisture: 42,
		sensor.MetricTemperature:  28,
		sensor.MetricHumidity:     40,
	})
	if err != nil {
		t.Fatalf("PredictWateringNeed() error = %v", err)
	}
	if !pred.ShouldWater {
		t.Error("ShouldWater = false, want demand derived from temperature and humidity")
	}
}

func TestPredictNoSignals(t *testing.T) {
	a := newTestAdvisor(40)

	tests := []struct {
		name    string
		metrics map[string]float64
	}{
		{"no soil moisture", map[string]float64{sensor.MetricVPD: 1.5}},
		{"no demand signal", map[string]float64{sensor.MetricSoilMoisture: 42}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := a.PredictWateringNeed(context.Background(), "room-1", tt.metrics)
			if err != nil {
				t.Fatalf("PredictWateringNeed() error = %v", err)
			}
			if pred.ShouldWater {
				t.Error("ShouldWater = true without the required signals")
			}
		})
	}
}

func TestPredictUnconfiguredThreshold(t *testing.T) {
	a := newTestAdvisor(0)

	pred, err := a.PredictWateringNeed(context.Background(), "room-1", map[string]float64{
		sensor.MetricSoilMoisture: 5,
		sensor.MetricVPD:          2.5,
	})
	if err != nil {
		t.Fatalf("PredictWateringNeed() error = %v", err)
	}
	if pred.ShouldWater {
		t.Error("ShouldWater = true with no threshold configured")
	}
}

func TestPredictUnknownRoom(t *testing.T) {
	a := newTestAdvisor(40)

	if _, err := a.PredictWateringNeed(context.Background(), "room-missing", map[string]float64{
		sensor.MetricSoilMoisture: 42,
	}); err == nil {
		t.Error("PredictWateringNeed() for an unknown room returned nil error")
	}
}

func TestPredictDeterministic(t *testing.T) {
	a := newTestAdvisor(40)
	metrics := map[string]float64{
		sensor.MetricSoilMoisture: 43,
		sensor.MetricVPD:          1.6,
	}

	first, err := a.PredictWateringNeed(context.Background(), "room-1", metrics)
	if err != nil {
		t.Fatalf("PredictWateringNeed() error = %v", err)
	}
	second, err := a.PredictWateringNeed(context.Background(), "room-1", metrics)
	if err != nil {
		t.Fatalf("PredictWateringNeed() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("predictions differ for identical input: %+v vs %+v", first, second)
	}
}
