package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Canopy Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
	Engine   EngineConfig   `yaml:"engine"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for sensor telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// EngineConfig contains control-engine settings.
//
// Loop intervals are in seconds. Defaults match the reference cadence:
// climate/lighting every minute, watering every five minutes, CO2 every
// two minutes, safety monitoring every thirty seconds.
type EngineConfig struct {
	Loops LoopConfig `yaml:"loops"`

	// HistoryLimit caps the in-memory per-room reading history.
	HistoryLimit int `yaml:"history_limit"`

	// SmoothingWindow is the moving-average window applied per device.
	SmoothingWindow int `yaml:"smoothing_window"`

	// DispatchTimeout bounds a single hardware command send (seconds).
	DispatchTimeout int `yaml:"dispatch_timeout"`

	// FilterByCapability restricts action dispatch to devices whose type
	// can act on the command, instead of broadcasting to the whole room.
	FilterByCapability bool `yaml:"filter_by_capability"`
}

// LoopConfig contains control-loop intervals in seconds.
type LoopConfig struct {
	Climate    int `yaml:"climate"`
	Watering   int `yaml:"watering"`
	Lighting   int `yaml:"lighting"`
	CO2        int `yaml:"co2"`
	Monitoring int `yaml:"monitoring"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: CANOPY_SECTION_KEY
// For example: CANOPY_DATABASE_PATH, CANOPY_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Canopy",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/canopy.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "canopy-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Engine: EngineConfig{
			Loops: LoopConfig{
				Climate:    60,
				Watering:   300,
				Lighting:   60,
				CO2:        120,
				Monitoring: 30,
			},
			HistoryLimit:       1000,
			SmoothingWindow:    5,
			DispatchTimeout:    5,
			FilterByCapability: true,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CANOPY_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("CANOPY_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("CANOPY_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("CANOPY_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("CANOPY_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("CANOPY_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Site
	if v := os.Getenv("CANOPY_SITE_TIMEZONE"); v != "" {
		cfg.Site.Timezone = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Site validation
	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}
	if _, err := time.LoadLocation(c.Site.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("site.timezone %q is not a valid IANA timezone", c.Site.Timezone))
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Engine validation. Zero intervals would spin the control loops.
	loops := map[string]int{
		"climate":    c.Engine.Loops.Climate,
		"watering":   c.Engine.Loops.Watering,
		"lighting":   c.Engine.Loops.Lighting,
		"co2":        c.Engine.Loops.CO2,
		"monitoring": c.Engine.Loops.Monitoring,
	}
	for name, interval := range loops {
		if interval < 1 {
			errs = append(errs, fmt.Sprintf("engine.loops.%s must be at least 1 second", name))
		}
	}
	if c.Engine.HistoryLimit < 1 {
		errs = append(errs, "engine.history_limit must be positive")
	}
	if c.Engine.SmoothingWindow < 1 {
		errs = append(errs, "engine.smoothing_window must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Location returns the site timezone as a *time.Location.
// Falls back to UTC if the timezone is invalid (Validate catches this earlier).
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Site.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// GetDispatchTimeout returns the hardware dispatch timeout as a Duration.
func (c *Config) GetDispatchTimeout() time.Duration {
	return time.Duration(c.Engine.DispatchTimeout) * time.Second
}

// LoopInterval converts a loop interval in seconds to a Duration.
func LoopInterval(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
