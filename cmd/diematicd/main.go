// Diematic daemon - Modbus RTU bridge for De Dietrich boilers
//
// This is the main entry point for diematicd. The daemon polls a Diematic
// regulator over an RS-485 serial line, keeps a decoded parameter store in
// memory, and fronts it with an HTTP API, MQTT publishing with Home
// Assistant discovery, InfluxDB snapshots and a local SQLite history.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/nerrad567/diematic-core/internal/api"
	"github.com/nerrad567/diematic-core/internal/boiler"
	"github.com/nerrad567/diematic-core/internal/history"
	"github.com/nerrad567/diematic-core/internal/infrastructure/config"
	"github.com/nerrad567/diematic-core/internal/infrastructure/database"
	"github.com/nerrad567/diematic-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/diematic-core/internal/infrastructure/logging"
	"github.com/nerrad567/diematic-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/diematic-core/internal/register"
	"github.com/nerrad567/diematic-core/internal/session"
	"github.com/nerrad567/diematic-core/internal/telemetry"
	"github.com/nerrad567/diematic-core/internal/transport"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/diematic.yaml"

// historyPruneInterval is how often expired history rows are deleted.
const historyPruneInterval = time.Hour

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// pollRunner couples a poll cycle with the telemetry fan-out. The active
// session is swappable so a SIGUSR1 reload can replace it without
// touching the HTTP server or the poll loop.
type pollRunner struct {
	session   atomic.Pointer[session.Session]
	publisher *telemetry.Publisher
}

// RunPollCycle reads every configured range and, on success, pushes the
// fresh snapshot to the telemetry sinks.
func (p *pollRunner) RunPollCycle(ctx context.Context) error {
	sess := p.session.Load()
	if sess == nil {
		return fmt.Errorf("no active poll session")
	}
	if err := sess.RunPollCycle(ctx); err != nil {
		return err
	}
	if p.publisher != nil {
		p.publisher.PublishCycle(ctx, time.Now())
	}
	return nil
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting diematicd",
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

	// Write PID file (optional)
	if cfg.PIDFile != "" {
		if err := writePIDFile(cfg.PIDFile); err != nil {
			return fmt.Errorf("writing pid file: %w", err)
		}
		defer os.Remove(cfg.PIDFile) //nolint:errcheck // Best effort cleanup
	}

	// Build the register index and parameter store
	index, err := register.NewIndex(cfg.Registers)
	if err != nil {
		return fmt.Errorf("building register index: %w", err)
	}
	store := boiler.NewStore(index)
	log.Info("register index built",
		"registers", len(index.Descriptors()),
		"parameters", len(index.ParameterNames()),
	)

	// Serial transport and bus gate
	bus := transport.NewSerial(transport.SerialConfig{
		Device:   cfg.Modbus.Device,
		BaudRate: cfg.Modbus.BaudRate,
		DataBits: cfg.Modbus.DataBits,
		Parity:   cfg.Modbus.Parity,
		StopBits: cfg.Modbus.StopBits,
		UnitID:   byte(cfg.Modbus.Unit),
		Timeout:  cfg.Modbus.Timeout,
	})
	defer func() {
		if closeErr := bus.Close(); closeErr != nil {
			log.Error("error closing serial transport", "error", closeErr)
		}
	}()

	gate, err := buildGate(cfg, log)
	if err != nil {
		return fmt.Errorf("building bus gate: %w", err)
	}

	// Poll session and write pipeline
	sess := session.NewSession(bus, gate, store, pollRanges(cfg), log)
	writer := session.NewWriter(bus, gate, store, session.WriterConfig{}, log)
	go writer.Run(ctx)

	// Backends registered here are checked by GET /health and by the
	// startup health check.
	healthChecks := map[string]api.HealthChecker{}

	// SQLite history (optional)
	var historyRepo *history.Repository
	if cfg.Database.Enabled {
		db, dbErr := database.Open(database.Config{
			Path:        cfg.Database.Path,
			WALMode:     cfg.Database.WALMode,
			BusyTimeout: cfg.Database.BusyTimeout,
		})
		if dbErr != nil {
			return fmt.Errorf("opening database: %w", dbErr)
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		historyRepo = history.NewRepository(db.DB)
		if initErr := historyRepo.Init(ctx); initErr != nil {
			return fmt.Errorf("initialising history schema: %w", initErr)
		}
		healthChecks["database"] = db
		log.Info("history store ready", "path", cfg.Database.Path)

		if cfg.Database.RetentionDays > 0 {
			go pruneHistoryLoop(ctx, historyRepo, cfg.Database.RetentionDays, log)
		}
	} else {
		log.Info("history store disabled")
	}

	// MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
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
		healthChecks["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
			"topic", cfg.MQTT.Topic,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		healthChecks["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Telemetry fan-out
	var broker telemetry.Broker
	if mqttClient != nil {
		broker = mqttClient
	}
	publisher := telemetry.New(telemetry.Options{
		Store:   store,
		Broker:  broker,
		Influx:  influxClient,
		History: historyRepo,
		Writer:  writer,
		MQTT:    cfg.MQTT,
		Boiler:  cfg.Boiler,
		Logger:  log,
	})
	if mqttClient != nil {
		if cfg.MQTT.Discovery.Enabled {
			if err := publisher.PublishDiscovery(); err != nil {
				log.Warn("Home Assistant discovery failed", "error", err)
			}
		}
		if err := publisher.SubscribeCommands(); err != nil {
			return fmt.Errorf("subscribing to command topics: %w", err)
		}
	}

	runner := &pollRunner{publisher: publisher}
	runner.session.Store(sess)

	// HTTP API
	server, err := api.New(api.Deps{
		Config:  cfg.HTTP,
		Logger:  log,
		Store:   store,
		History: historyRepo,
		Writer:  writer,
		Poller:  runner,
		Health:  healthChecks,
		UUID:    publisher.UUID(),
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	healthChecks["api"] = server
	log.Info("API server listening", "host", cfg.HTTP.Host, "port", cfg.HTTP.Port)

	if err := healthCheck(ctx, healthChecks, log); err != nil {
		return fmt.Errorf("startup health check: %w", err)
	}

	// Poll loop
	go pollLoop(ctx, runner, cfg.Modbus.PollInterval, cfg.Modbus.RetryDelay, log)

	// SIGUSR1 reloads the configuration and swaps the register table
	go reloadLoop(ctx, runner, bus, gate, store, log)

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	log.Info("diematicd stopped")
	return nil
}

// healthCheck verifies every registered backend responds before the
// daemon is declared up. The same checkers back GET /health afterwards.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker, log *logging.Logger) error {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for name, check := range checks {
		if err := check.HealthCheck(checkCtx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	log.Info("all health checks passed", "components", len(checks))
	return nil
}

// buildGate returns the serial port exclusion gate: a lock file shared
// with other processes when lock_dir is set, an in-process mutex
// otherwise.
func buildGate(cfg *config.Config, log *logging.Logger) (transport.Gate, error) {
	if cfg.Modbus.LockDir == "" {
		return transport.NewMutexGate(), nil
	}

	gate, err := transport.NewFileGate(cfg.Modbus.LockDir, cfg.Modbus.Device)
	if err != nil {
		return nil, err
	}
	log.Info("serial port lock enabled", "path", gate.Path())
	return gate, nil
}

// pollRanges converts the configured register ranges.
func pollRanges(cfg *config.Config) []session.Range {
	ranges := make([]session.Range, 0, len(cfg.Modbus.Ranges))
	for _, r := range cfg.Modbus.Ranges {
		ranges = append(ranges, session.Range{First: r.First, Last: r.Last})
	}
	return ranges
}

// pollLoop runs poll cycles until the context is cancelled. A failed
// cycle is retried after the (shorter) retry delay instead of waiting a
// full interval.
func pollLoop(ctx context.Context, runner *pollRunner, interval, retryDelay time.Duration, log *logging.Logger) {
	if retryDelay <= 0 || retryDelay > interval {
		retryDelay = interval
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		next := interval
		if err := runner.RunPollCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("poll cycle failed", "error", err, "retry_in", retryDelay)
			next = retryDelay
		}
		timer.Reset(next)
	}
}

// pruneHistoryLoop periodically enforces the history retention window.
func pruneHistoryLoop(ctx context.Context, repo *history.Repository, retentionDays int, log *logging.Logger) {
	retention := time.Duration(retentionDays) * 24 * time.Hour
	ticker := time.NewTicker(historyPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.Prune(ctx, retention)
			if err != nil {
				log.Error("history prune failed", "error", err)
				continue
			}
			if deleted > 0 {
				log.Debug("history pruned", "deleted", deleted, "retention_days", retentionDays)
			}
		}
	}
}

// reloadLoop reloads the configuration on SIGUSR1: the register table is
// rebuilt and the poll session replaced. Line settings, sink connections
// and the HTTP listener keep their startup configuration; changing those
// requires a restart.
func reloadLoop(ctx context.Context, runner *pollRunner, bus transport.Transport, gate transport.Gate, store *boiler.Store, log *logging.Logger) {
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGUSR1)
	defer signal.Stop(reload)

	for {
		select {
		case <-ctx.Done():
			return
		case <-reload:
		}

		cfg, err := config.Load(getConfigPath())
		if err != nil {
			log.Error("reload failed: config", "error", err)
			continue
		}

		index, err := register.NewIndex(cfg.Registers)
		if err != nil {
			log.Error("reload failed: register index", "error", err)
			continue
		}

		store.Rebuild(index)
		runner.session.Store(session.NewSession(bus, gate, store, pollRanges(cfg), log))
		log.Info("configuration reloaded",
			"registers", len(index.Descriptors()),
			"parameters", len(index.ParameterNames()),
		)
	}
}

// writePIDFile records the daemon's PID for init scripts.
func writePIDFile(path string) error {
	pid := strconv.Itoa(os.Getpid())
	return os.WriteFile(path, []byte(pid+"\n"), 0o644)
}

// getConfigPath returns the configuration file path.
// Uses DIEMATIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DIEMATIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
