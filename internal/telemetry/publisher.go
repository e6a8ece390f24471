package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/diematic-core/internal/boiler"
	"github.com/nerrad567/diematic-core/internal/history"
	"github.com/nerrad567/diematic-core/internal/infrastructure/config"
	"github.com/nerrad567/diematic-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/diematic-core/internal/infrastructure/logging"
	"github.com/nerrad567/diematic-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/diematic-core/internal/register"
)

// commandQoS is the subscription QoS for Home Assistant command topics.
const commandQoS = 2

// Broker is the subset of the MQTT client the publisher uses.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Kicker wakes the write pipeline after a command enqueues a write.
type Kicker interface {
	Kick()
}

// Options wires a Publisher to its sinks. Broker, Influx, History and
// Writer are all optional; a nil sink is skipped.
type Options struct {
	Store   *boiler.Store
	Broker  Broker
	Influx  *influxdb.Client
	History *history.Repository
	Writer  Kicker
	MQTT    config.MQTTConfig
	Boiler  config.BoilerConfig
	Logger  *logging.Logger
}

// Publisher fans poll cycle snapshots out to MQTT, InfluxDB and the
// local history store, and owns the Home Assistant integration.
type Publisher struct {
	store   *boiler.Store
	broker  Broker
	influx  *influxdb.Client
	history *history.Repository
	writer  Kicker
	cfg     config.MQTTConfig
	device  config.BoilerConfig
	topics  mqtt.Topics
	logger  *logging.Logger
}

// New creates a Publisher from the given options.
func New(opts Options) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	return &Publisher{
		store:   opts.Store,
		broker:  opts.Broker,
		influx:  opts.Influx,
		history: opts.History,
		writer:  opts.Writer,
		cfg:     opts.MQTT,
		device:  opts.Boiler,
		topics: mqtt.Topics{
			Base:            opts.MQTT.Topic,
			DiscoveryPrefix: opts.MQTT.Discovery.Prefix,
			DeviceUUID:      DeviceUUID(opts.Boiler),
		},
		logger: logger.With("component", "telemetry"),
	}
}

// DeviceUUID returns the boiler's discovery UUID. An explicitly configured
// UUID wins; otherwise a stable one is derived from the boiler name so the
// Home Assistant entity registry survives restarts.
func DeviceUUID(cfg config.BoilerConfig) string {
	if cfg.UUID != "" {
		return cfg.UUID
	}
	name := cfg.Name
	if name == "" {
		name = "boiler"
	}
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte("diematic."+name)).String()
}

// UUID returns the discovery UUID in use.
func (p *Publisher) UUID() string {
	return p.topics.DeviceUUID
}

// PublishCycle pushes the current snapshot to every configured sink.
//
// Sink failures are logged and do not affect the other sinks; the poll
// loop calls this after each successful cycle and must not be blocked
// by a flaky broker or database.
//
// Parameters:
//   - ctx: Context for the history write
//   - at: Timestamp of the poll cycle that produced the snapshot
func (p *Publisher) PublishCycle(ctx context.Context, at time.Time) {
	snapshot := p.Snapshot()
	if len(snapshot) == 0 {
		return
	}

	if p.broker != nil {
		// The published document carries the boiler UUID alongside the
		// values, same shape as GET /diematic/json.
		doc := make(map[string]any, len(snapshot)+1)
		doc["uuid"] = p.topics.DeviceUUID
		for k, v := range snapshot {
			doc[k] = v
		}
		payload, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			p.logger.Error("marshalling snapshot", "error", err)
		} else if err := p.broker.Publish(p.topics.State(), payload, byte(p.cfg.QoS), p.cfg.Retain); err != nil {
			p.logger.Error("publishing snapshot", "topic", p.topics.State(), "error", err)
		}
	}

	if p.influx != nil {
		p.influx.WriteSnapshot(snapshot, at)
	}

	if p.history != nil {
		if err := p.history.RecordSnapshot(ctx, snapshot, at); err != nil {
			p.logger.Error("recording history", "error", err)
		}
	}
}

// Snapshot returns the externally visible parameter values as a map,
// keyed by parameter name. Parameters without a decoded value are
// excluded.
func (p *Publisher) Snapshot() map[string]any {
	records := p.store.Snapshot()
	out := make(map[string]any, len(records))
	for _, r := range records {
		out[r.Name] = r.Value
	}
	return out
}

// SubscribeCommands subscribes to the command topic of every writable
// Home Assistant entity. Incoming values are validated by the store and
// queued for the write pipeline.
//
// Returns:
//   - error: If any subscription fails
func (p *Publisher) SubscribeCommands() error {
	if p.broker == nil {
		return nil
	}

	for _, d := range p.store.Index().Descriptors() {
		if !isCommandable(&d) {
			continue
		}
		topic := p.topics.Command(d.Component, d.Name)
		if err := p.broker.Subscribe(topic, commandQoS, p.handleCommand); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}

	return nil
}

// isCommandable reports whether a descriptor gets a command topic.
// Only number and select entities accept writes from Home Assistant.
func isCommandable(d *register.Descriptor) bool {
	if d.Name == "" || d.ReadOnly() {
		return false
	}
	return d.Component == "number" || d.Component == "select"
}

// handleCommand processes one command topic message: parse the JSON
// payload, queue the write, wake the writer.
func (p *Publisher) handleCommand(topic string, payload []byte) error {
	name, ok := p.topics.ParseCommand(topic)
	if !ok {
		return nil
	}

	value, err := parseCommandPayload(payload)
	if err != nil {
		p.logger.Error("invalid command payload", "topic", topic, "error", err)
		return err
	}
	if value == nil {
		return nil
	}

	if err := p.store.RequestWrite(name, value); err != nil {
		p.logger.Error("rejected command", "parameter", name, "value", value, "error", err)
		return err
	}

	p.logger.Info("write queued from mqtt", "parameter", name, "value", value)
	if p.writer != nil {
		p.writer.Kick()
	}
	return nil
}

// parseCommandPayload decodes a command payload. Home Assistant sends
// bare JSON scalars: numbers for number entities, quoted strings for
// select entities. Empty payloads are ignored.
func parseCommandPayload(payload []byte) (register.Value, error) {
	if len(payload) == 0 {
		return nil, nil
	}

	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, fmt.Errorf("parsing command payload: %w", err)
	}
	return value, nil
}
