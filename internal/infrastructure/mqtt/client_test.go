package mqtt

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/diematic-core/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "diematicd-test",
			TLS:      false,
		},
		QoS:    1,
		Topic:  "diematic2mqtt/boiler",
		Retain: true,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// =============================================================================
// Validation (no broker required)
// =============================================================================

func TestCloseNil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client = %v, want nil", err)
	}
}

func TestPublishEmptyTopic(t *testing.T) {
	c := &Client{cfg: testConfig()}
	if err := c.Publish("", []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish(empty topic) = %v, want ErrInvalidTopic", err)
	}
}

func TestPublishInvalidQoS(t *testing.T) {
	c := &Client{cfg: testConfig()}
	if err := c.Publish("diematic2mqtt/boiler", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish(qos 3) = %v, want ErrInvalidQoS", err)
	}
}

func TestPublishDisconnected(t *testing.T) {
	c := &Client{cfg: testConfig()}
	if err := c.Publish("diematic2mqtt/boiler", []byte("x"), 1, false); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() on disconnected client = %v, want ErrNotConnected", err)
	}
}

func TestSubscribeValidation(t *testing.T) {
	c := &Client{cfg: testConfig(), subscriptions: make(map[string]subscription)}

	if err := c.Subscribe("", 1, func(string, []byte) error { return nil }); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe(empty topic) = %v, want ErrInvalidTopic", err)
	}
	if err := c.Subscribe("t", 3, func(string, []byte) error { return nil }); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe(qos 3) = %v, want ErrInvalidQoS", err)
	}
	if err := c.Subscribe("t", 1, nil); !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe(nil handler) = %v, want ErrSubscribeFailed", err)
	}
	if err := c.Subscribe("t", 1, func(string, []byte) error { return nil }); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() on disconnected client = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheckDisconnected(t *testing.T) {
	c := &Client{cfg: testConfig()}
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() on disconnected client = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheckCancelled(t *testing.T) {
	c := &Client{cfg: testConfig()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled ctx) = %v, want context.Canceled", err)
	}
}

func TestSubscriptionTracking(t *testing.T) {
	c := &Client{subscriptions: make(map[string]subscription)}

	if c.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", c.SubscriptionCount())
	}
	if c.HasSubscription("t") {
		t.Error("HasSubscription() = true for untracked topic")
	}
}

// =============================================================================
// Option building
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "boileruser"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].String(); got != "tcp://127.0.0.1:1883" {
		t.Errorf("broker URL = %q, want tcp://127.0.0.1:1883", got)
	}
	if opts.ClientID != "diematicd-test" {
		t.Errorf("client ID = %q, want diematicd-test", opts.ClientID)
	}
	if opts.Username != "boileruser" {
		t.Errorf("username = %q, want boileruser", opts.Username)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
}

func TestBuildClientOptionsTLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true

	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].Scheme; got != "ssl" {
		t.Errorf("broker scheme = %q, want ssl", got)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLS config missing or below minimum version")
	}
}

func TestConfigureLWT(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg)

	if !opts.WillEnabled {
		t.Fatal("will not enabled")
	}
	if opts.WillTopic != "diematic2mqtt/boiler/availability" {
		t.Errorf("will topic = %q, want availability topic", opts.WillTopic)
	}
	if string(opts.WillPayload) != availabilityOffline {
		t.Errorf("will payload = %q, want %q", opts.WillPayload, availabilityOffline)
	}
	if !opts.WillRetained {
		t.Error("will not retained")
	}
}

// =============================================================================
// Topic builders
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{
		Base:            "diematic2mqtt/boiler",
		DiscoveryPrefix: "homeassistant",
		DeviceUUID:      "abc-123",
	}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"State", topics.State(), "diematic2mqtt/boiler"},
		{"Availability", topics.Availability(), "diematic2mqtt/boiler/availability"},
		{"Subtopic", topics.Subtopic(), "boiler"},
		{"EntityHead", topics.EntityHead("sensor", "boiler_temp"), "homeassistant/sensor/abc-123/boiler_temp"},
		{"DiscoveryConfig", topics.DiscoveryConfig("number", "setpoint"), "homeassistant/number/abc-123/setpoint/config"},
		{"Command", topics.Command("number", "setpoint"), "homeassistant/number/abc-123/setpoint/set/setpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.expected)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	topics := Topics{
		Base:            "diematic2mqtt/boiler",
		DiscoveryPrefix: "homeassistant",
		DeviceUUID:      "abc-123",
	}

	tests := []struct {
		name     string
		topic    string
		wantName string
		wantOK   bool
	}{
		{"command topic", topics.Command("number", "setpoint"), "setpoint", true},
		{"config topic", topics.DiscoveryConfig("number", "setpoint"), "", false},
		{"state topic", topics.State(), "", false},
		{"short topic", "a/b/c", "", false},
		{"set in wrong place", "homeassistant/set/abc/x/y/z", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, ok := topics.ParseCommand(tt.topic)
			if name != tt.wantName || ok != tt.wantOK {
				t.Errorf("ParseCommand(%q) = %q, %v, want %q, %v", tt.topic, name, ok, tt.wantName, tt.wantOK)
			}
		})
	}
}

func TestParseCommandMultiSegmentPrefix(t *testing.T) {
	topics := Topics{
		Base:            "diematic2mqtt/boiler",
		DiscoveryPrefix: "home/ha",
		DeviceUUID:      "abc-123",
	}

	name, ok := topics.ParseCommand(topics.Command("number", "setpoint"))
	if !ok || name != "setpoint" {
		t.Errorf("ParseCommand(own command topic) = %q, %v, want setpoint, true", name, ok)
	}
	if _, ok := topics.ParseCommand(topics.DiscoveryConfig("number", "setpoint")); ok {
		t.Error("ParseCommand(config topic) accepted under multi-segment prefix")
	}
}
