// Canopy Core - Grow Room Automation Engine
//
// This is the main entry point for the Canopy Core application.
// Canopy Core runs the full sensing and control stack for grow rooms:
//   - Sensor intake, validation and alerting over MQTT
//   - Climate, watering, lighting and CO2 control loops
//   - Safety supervision with emergency shutdown
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	_ "github.com/canopylabs/canopy-core/migrations"

	"github.com/canopylabs/canopy-core/internal/advisor"
	"github.com/canopylabs/canopy-core/internal/control"
	"github.com/canopylabs/canopy-core/internal/device"
	"github.com/canopylabs/canopy-core/internal/hardware"
	"github.com/canopylabs/canopy-core/internal/infrastructure/config"
	"github.com/canopylabs/canopy-core/internal/infrastructure/database"
	"github.com/canopylabs/canopy-core/internal/infrastructure/influxdb"
	"github.com/canopylabs/canopy-core/internal/infrastructure/logging"
	"github.com/canopylabs/canopy-core/internal/infrastructure/mqtt"
	"github.com/canopylabs/canopy-core/internal/room"
	"github.com/canopylabs/canopy-core/internal/sensor"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Load .env if present; secrets like MQTT credentials and the
	// InfluxDB token usually arrive this way in development.
	_ = godotenv.Load()

	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Canopy Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Initialise room registry
	roomRepo := room.NewSQLiteRepository(db.DB)
	roomRegistry := room.NewRegistry(roomRepo)
	roomRegistry.SetLogger(log)
	if refreshErr := roomRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading room registry: %w", refreshErr)
	}
	log.Info("room registry initialised", "rooms", roomRegistry.RoomCount())

	// Initialise device registry
	deviceRepo := device.NewSQLiteRepository(db.DB)
	deviceRegistry := device.NewRegistry(deviceRepo)
	deviceRegistry.SetLogger(log)
	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	log.Info("device registry initialised", "devices", deviceRegistry.DeviceCount())

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil && !errors.Is(err, influxdb.ErrDisabled) {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Hardware adapter: sensor reads, actuator commands, alert and
	// notification publishing all go through MQTT.
	adapter := hardware.NewAdapter(mqttClient, hardware.WithQoS(byte(cfg.MQTT.QoS)), hardware.WithLogger(log))
	if startErr := adapter.Start(); startErr != nil {
		return fmt.Errorf("starting hardware adapter: %w", startErr)
	}
	log.Info("hardware adapter started")

	// Sensor intake pipeline
	sensorRepo := sensor.NewSQLiteRepository(db.DB)
	history := sensor.NewHistoryStore(cfg.Engine.HistoryLimit)

	pipelineOpts := []sensor.PipelineOption{
		sensor.WithNotifier(adapter),
		sensor.WithLogger(log),
	}
	if influxClient != nil {
		pipelineOpts = append(pipelineOpts, sensor.WithMetricsWriter(influxClient))
	}
	pipeline := sensor.NewPipeline(
		roomRegistry,
		deviceRegistry,
		adapter,
		sensorRepo,
		history,
		cfg.Engine.SmoothingWindow,
		pipelineOpts...,
	)
	log.Info("sensor pipeline initialised",
		"history_limit", cfg.Engine.HistoryLimit,
		"smoothing_window", cfg.Engine.SmoothingWindow,
	)

	// Action dispatcher
	store := control.NewControllerStore(cfg.Location())
	dispatcherOpts := []control.DispatcherOption{
		control.WithNotifier(adapter),
		control.WithLogger(log),
		control.WithCapabilityFilter(cfg.Engine.FilterByCapability),
		control.WithDispatchTimeout(cfg.GetDispatchTimeout()),
	}
	if influxClient != nil {
		dispatcherOpts = append(dispatcherOpts, control.WithMetricsWriter(influxClient))
	}
	dispatcher := control.NewDispatcher(deviceRegistry, adapter, store, dispatcherOpts...)

	// Safety supervisor
	safetyOpts := []control.SafetyOption{
		control.WithSafetyNotifier(adapter),
		control.WithSafetyLogger(log),
	}
	if influxClient != nil {
		safetyOpts = append(safetyOpts, control.WithSafetyWriter(influxClient))
	}
	supervisor := control.NewSafetySupervisor(
		dispatcher,
		control.NewSQLiteEmergencyRepository(db.DB),
		safetyOpts...,
	)

	// Watering advisor
	predictor := advisor.New(roomRegistry, advisor.WithLogger(log))

	// Control engine
	engine := control.NewEngine(
		roomRegistry,
		history,
		pipeline,
		dispatcher,
		supervisor,
		cfg.Location(),
		control.WithPredictor(predictor),
		control.WithTankReader(adapter),
		control.WithMetricsRepository(control.NewSQLiteMetricsRepository(db.DB)),
		control.WithEngineLogger(log),
		control.WithIntervals(control.Intervals{
			Intake:     control.DefaultIntervals().Intake,
			Climate:    config.LoopInterval(cfg.Engine.Loops.Climate),
			Watering:   config.LoopInterval(cfg.Engine.Loops.Watering),
			Lighting:   config.LoopInterval(cfg.Engine.Loops.Lighting),
			CO2:        config.LoopInterval(cfg.Engine.Loops.CO2),
			Monitoring: config.LoopInterval(cfg.Engine.Loops.Monitoring),
		}),
	)

	if startErr := engine.Start(ctx); startErr != nil {
		return fmt.Errorf("starting control engine: %w", startErr)
	}
	defer func() {
		log.Info("stopping control engine")
		engine.Stop()
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Control engine (flushes controller metrics)
	// 2. InfluxDB (if enabled)
	// 3. MQTT
	// 4. Database

	log.Info("Canopy Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CANOPY_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CANOPY_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
