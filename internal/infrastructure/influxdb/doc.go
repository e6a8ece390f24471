// Package influxdb provides InfluxDB connectivity for the Diematic daemon.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, snapshot writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage of boiler telemetry: after each
// successful poll cycle the decoded parameter snapshot is written as a single
// point in the "diematic" measurement, one field per parameter.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "home",
//	    Bucket: "diematic",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteSnapshot(map[string]any{"boiler_temp": 58.5}, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
package influxdb
