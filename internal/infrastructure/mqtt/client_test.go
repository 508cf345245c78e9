package mqtt

import (
	"strings"
	"testing"

	"github.com/canopylabs/canopy-core/internal/infrastructure/config"
)

// Broker-dependent connection tests live in integration_test.go behind the
// integration build tag. These tests cover the pure parts of the package.

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "canopy-test",
			TLS:      false,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "engine"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("expected 1 broker, got %d", len(opts.Servers))
	}
	if got := opts.Servers[0].String(); got != "tcp://127.0.0.1:1883" {
		t.Errorf("broker URL = %q, want tcp://127.0.0.1:1883", got)
	}
	if opts.ClientID != "canopy-test" {
		t.Errorf("ClientID = %q, want canopy-test", opts.ClientID)
	}
	if opts.Username != "engine" {
		t.Errorf("Username = %q, want engine", opts.Username)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].Scheme; got != "ssl" {
		t.Errorf("scheme = %q, want ssl", got)
	}
	if opts.TLSConfig == nil {
		t.Error("expected TLS config to be set")
	}
}

func TestStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("canopy-test")
	if !strings.Contains(online, `"status":"online"`) {
		t.Errorf("online payload missing status: %s", online)
	}
	if !strings.Contains(online, "canopy-test") {
		t.Errorf("online payload missing client ID: %s", online)
	}

	offline := buildOfflinePayload("canopy-test")
	if !strings.Contains(offline, `"status":"offline"`) {
		t.Errorf("offline payload missing status: %s", offline)
	}
	if !strings.Contains(offline, "graceful_shutdown") {
		t.Errorf("offline payload missing reason: %s", offline)
	}
}

func TestTopics(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"sensor state", topics.SensorState("room-veg-1", "th-1"), "canopy/sensor/room-veg-1/th-1"},
		{"all sensor states", topics.AllSensorStates(), "canopy/sensor/+/+"},
		{"device command", topics.DeviceCommand("room-veg-1", "pump-1"), "canopy/command/room-veg-1/pump-1"},
		{"tank level", topics.TankLevel("room-veg-1"), "canopy/tank/room-veg-1"},
		{"all tank levels", topics.AllTankLevels(), "canopy/tank/+"},
		{"alert", topics.Alert("room-veg-1"), "canopy/alert/room-veg-1"},
		{"notification", topics.Notification("room-veg-1"), "canopy/notification/room-veg-1"},
		{"system status", topics.SystemStatus(), "canopy/system/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestPublishValidation(t *testing.T) {
	c := &Client{}

	if err := c.Publish("", []byte("x"), 1, false); err != ErrInvalidTopic {
		t.Errorf("empty topic: got %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("canopy/test", []byte("x"), 3, false); err != ErrInvalidQoS {
		t.Errorf("invalid qos: got %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribeValidation(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if err := c.Subscribe("", 1, func(string, []byte) error { return nil }); err != ErrInvalidTopic {
		t.Errorf("empty topic: got %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("canopy/test", 3, func(string, []byte) error { return nil }); err != ErrInvalidQoS {
		t.Errorf("invalid qos: got %v, want ErrInvalidQoS", err)
	}
}
