package device

import (
	"testing"
	"time"
)

func TestSamplingPeriod(t *testing.T) {
	tests := []struct {
		name    string
		devType Type
		want    time.Duration
		wantOK  bool
	}{
		{"temp humidity", TypeTempHumidity, 5 * time.Second, true},
		{"light", TypeLight, 1 * time.Second, true},
		{"co2", TypeCO2, 30 * time.Second, true},
		{"soil moisture", TypeSoilMoisture, 60 * time.Second, true},
		{"ph ec", TypePHEC, 30 * time.Second, true},
		{"water level", TypeWaterLevel, 120 * time.Second, true},
		{"actuator has no period", TypeHeater, 0, false},
		{"unknown type", Type("toaster"), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SamplingPeriod(tt.devType)
			if ok != tt.wantOK {
				t.Fatalf("SamplingPeriod(%q) ok = %v, want %v", tt.devType, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("SamplingPeriod(%q) = %v, want %v", tt.devType, got, tt.want)
			}
		})
	}
}

func TestTypeClassification(t *testing.T) {
	sensors := []Type{TypeTempHumidity, TypeLight, TypeCO2, TypeSoilMoisture, TypePHEC, TypeWaterLevel}
	actuators := []Type{
		TypeHeater, TypeCooler, TypeHumidifier, TypeDehumidifier,
		TypeCirculationFan, TypeExhaustFan, TypeWaterPump, TypeDrainValve,
		TypeGrowLight, TypeCO2Injector,
	}

	for _, s := range sensors {
		if !s.IsSensor() {
			t.Errorf("%q.IsSensor() = false, want true", s)
		}
		if s.IsActuator() {
			t.Errorf("%q.IsActuator() = true, want false", s)
		}
	}
	for _, a := range actuators {
		if !a.IsActuator() {
			t.Errorf("%q.IsActuator() = false, want true", a)
		}
		if a.IsSensor() {
			t.Errorf("%q.IsSensor() = true, want false", a)
		}
	}
	if Type("").IsActuator() {
		t.Error("empty type classified as actuator")
	}
}

func TestHandlesCommand(t *testing.T) {
	tests := []struct {
		devType Type
		command string
		want    bool
	}{
		{TypeHeater, "heat", true},
		{TypeHeater, "cool", false},
		{TypeCooler, "cool", true},
		{TypeExhaustFan, "cool", true},
		{TypeExhaustFan, "ventilate", true},
		{TypeCirculationFan, "circulate", true},
		{TypeCirculationFan, "ventilate", false},
		{TypeHumidifier, "humidify", true},
		{TypeDehumidifier, "dehumidify", true},
		{TypeWaterPump, "water", true},
		{TypeDrainValve, "drain", true},
		{TypeGrowLight, "set_light", true},
		{TypeCO2Injector, "inject_co2", true},
		{TypeTempHumidity, "heat", false},
		{TypeHeater, "no_such_command", false},
	}

	for _, tt := range tests {
		if got := tt.devType.HandlesCommand(tt.command); got != tt.want {
			t.Errorf("%q.HandlesCommand(%q) = %v, want %v", tt.devType, tt.command, got, tt.want)
		}
	}
}

func TestEmergencyStopReachesAllActuators(t *testing.T) {
	actuators := []Type{
		TypeHeater, TypeCooler, TypeHumidifier, TypeDehumidifier,
		TypeCirculationFan, TypeExhaustFan, TypeWaterPump, TypeDrainValve,
		TypeGrowLight, TypeCO2Injector,
	}
	for _, a := range actuators {
		if !a.HandlesCommand("emergency_stop") {
			t.Errorf("%q does not handle emergency_stop", a)
		}
	}
}

func TestDeviceDeepCopy(t *testing.T) {
	orig := &Device{
		ID:          "dev-1",
		RoomID:      "room-1",
		Name:        "Canopy Probe",
		Type:        TypeTempHumidity,
		IsActive:    true,
		Calibration: map[string]float64{"temperature": -0.4},
	}

	cpy := orig.DeepCopy()
	cpy.Calibration["temperature"] = 99
	cpy.Name = "mutated"

	if orig.Calibration["temperature"] != -0.4 {
		t.Error("DeepCopy shares calibration map with original")
	}
	if orig.Name != "Canopy Probe" {
		t.Error("DeepCopy shares fields with original")
	}

	var nilDev *Device
	if nilDev.DeepCopy() != nil {
		t.Error("DeepCopy of nil should be nil")
	}
}
