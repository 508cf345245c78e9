// Package influxdb provides InfluxDB connectivity for Canopy Core.
//
// It wraps the official influxdb-client-go v2 library with Canopy-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Processed sensor readings (per room/device)
//   - Dispatched automation actions
//   - Safety evaluation events
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "canopy",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteSensorReading("room-veg-1", "th-1",
//	    map[string]interface{}{"temperature_c": 24.5}, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via the
// SetOnError callback. Connection and health check errors are returned
// directly.
package influxdb
