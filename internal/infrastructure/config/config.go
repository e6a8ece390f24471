package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/diematic-core/internal/register"
)

// Config is the root configuration structure for the Diematic daemon.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Boiler    BoilerConfig          `yaml:"boiler"`
	Modbus    ModbusConfig          `yaml:"modbus"`
	Database  DatabaseConfig        `yaml:"database"`
	MQTT      MQTTConfig            `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig        `yaml:"influxdb"`
	HTTP      HTTPConfig            `yaml:"http"`
	Logging   LoggingConfig         `yaml:"logging"`
	PIDFile   string                `yaml:"pid_file"`
	Registers []register.Descriptor `yaml:"registers"`
}

// BoilerConfig identifies the boiler this daemon fronts. The UUID keys
// MQTT discovery topics and unique IDs; when empty a stable one is
// derived from the name.
type BoilerConfig struct {
	UUID string `yaml:"uuid"`
	Name string `yaml:"name"`
}

// ModbusConfig contains the RTU line settings and the poll schedule.
type ModbusConfig struct {
	Device       string                `yaml:"device"`
	BaudRate     int                   `yaml:"baudrate"`
	DataBits     int                   `yaml:"data_bits"`
	Parity       string                `yaml:"parity"`
	StopBits     int                   `yaml:"stop_bits"`
	Unit         int                   `yaml:"unit"`
	Timeout      time.Duration         `yaml:"timeout"`
	PollInterval time.Duration         `yaml:"poll_interval"`
	RetryDelay   time.Duration         `yaml:"retry_delay"`
	LockDir      string                `yaml:"lock_dir"`
	Ranges       []RegisterRangeConfig `yaml:"register_ranges"`
}

// RegisterRangeConfig is one contiguous block of holding registers read
// per poll cycle.
type RegisterRangeConfig struct {
	First uint16 `yaml:"first"`
	Last  uint16 `yaml:"last"`
}

// DatabaseConfig contains SQLite history settings.
type DatabaseConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	WALMode       bool   `yaml:"wal_mode"`
	BusyTimeout   int    `yaml:"busy_timeout"`
	RetentionDays int    `yaml:"retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Topic     string              `yaml:"topic"`
	Retain    bool                `yaml:"retain"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
	Discovery MQTTDiscoveryConfig `yaml:"discovery"`
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

// MQTTDiscoveryConfig contains Home Assistant discovery settings.
type MQTTDiscoveryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// HTTPConfig contains HTTP API server settings.
type HTTPConfig struct {
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Timeouts HTTPTimeoutConfig `yaml:"timeouts"`
}

// HTTPTimeoutConfig contains HTTP timeout settings in seconds.
type HTTPTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DIEMATIC_SECTION_KEY
// For example: DIEMATIC_MODBUS_DEVICE, DIEMATIC_MQTT_PASSWORD
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
		Boiler: BoilerConfig{
			Name: "Diematic",
		},
		Modbus: ModbusConfig{
			BaudRate:     9600,
			DataBits:     8,
			Parity:       "N",
			StopBits:     1,
			Unit:         10,
			Timeout:      2 * time.Second,
			PollInterval: 60 * time.Second,
			RetryDelay:   10 * time.Second,
			LockDir:      "/run/lock",
		},
		Database: DatabaseConfig{
			Path:        "./data/diematic.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "diematicd",
			},
			QoS:    1,
			Topic:  "diematic",
			Retain: true,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			Discovery: MQTTDiscoveryConfig{
				Prefix: "homeassistant",
			},
		},
		HTTP: HTTPConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: HTTPTimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DIEMATIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Modbus
	if v := os.Getenv("DIEMATIC_MODBUS_DEVICE"); v != "" {
		cfg.Modbus.Device = v
	}

	// Database
	if v := os.Getenv("DIEMATIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("DIEMATIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DIEMATIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DIEMATIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// HTTP
	if v := os.Getenv("DIEMATIC_HTTP_HOST"); v != "" {
		cfg.HTTP.Host = v
	}

	// InfluxDB
	if v := os.Getenv("DIEMATIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Modbus validation
	if c.Modbus.Device == "" {
		errs = append(errs, "modbus.device is required (set DIEMATIC_MODBUS_DEVICE or modbus.device)")
	}
	if c.Modbus.Unit < 1 || c.Modbus.Unit > 247 {
		errs = append(errs, "modbus.unit must be between 1 and 247")
	}
	if c.Modbus.PollInterval <= 0 {
		errs = append(errs, "modbus.poll_interval must be positive")
	}
	if len(c.Modbus.Ranges) == 0 {
		errs = append(errs, "modbus.register_ranges is required")
	}
	for _, r := range c.Modbus.Ranges {
		if r.Last < r.First {
			errs = append(errs, fmt.Sprintf("modbus.register_ranges [%d, %d]: last before first", r.First, r.Last))
		}
	}

	// Register index validation
	if len(c.Registers) == 0 {
		errs = append(errs, "registers is required")
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database.enabled")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Topic == "" {
		errs = append(errs, "mqtt.topic is required when mqtt.enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb.enabled")
	}

	// HTTP validation
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		errs = append(errs, "http.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReadTimeout returns the HTTP read timeout as a Duration.
func (c HTTPConfig) ReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// WriteTimeout returns the HTTP write timeout as a Duration.
func (c HTTPConfig) WriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// IdleTimeout returns the HTTP idle timeout as a Duration.
func (c HTTPConfig) IdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}
