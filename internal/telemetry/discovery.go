package telemetry

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/diematic-core/internal/register"
)

// discoveryManufacturer is fixed: Diematic regulators are De Dietrich kit.
const discoveryManufacturer = "De Dietrich"

// discoveryDevice groups all entities under one Home Assistant device.
type discoveryDevice struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Name         string   `json:"name"`
	SWVersion    string   `json:"sw_version"`
}

// discoveryAvailability is one availability topic entry.
type discoveryAvailability struct {
	Topic string `json:"topic"`
}

// discoveryConfig is the payload published to an entity's config topic.
// Field names follow the Home Assistant MQTT discovery schema.
type discoveryConfig struct {
	ConfigTopic    string                  `json:"config_topic"`
	Availability   []discoveryAvailability `json:"availability"`
	Device         discoveryDevice         `json:"device"`
	Name           string                  `json:"name"`
	Retain         bool                    `json:"retain"`
	StateTopic     string                  `json:"state_topic"`
	ValueTemplate  string                  `json:"value_template"`
	UniqueID       string                  `json:"unique_id"`
	EntityCategory string                  `json:"entity_category"`
	Icon           string                  `json:"icon"`
	ObjectID       string                  `json:"object_id"`
	QoS            int                     `json:"qos"`
	DeviceClass    string                  `json:"device_class,omitempty"`
	StateClass     string                  `json:"state_class,omitempty"`
	Unit           string                  `json:"unit_of_measurement,omitempty"`
	Min            *float64                `json:"min,omitempty"`
	Max            *float64                `json:"max,omitempty"`
	Step           *float64                `json:"step,omitempty"`
	Options        []string                `json:"options,omitempty"`
	CommandTopic   string                  `json:"command_topic,omitempty"`
	Platform       string                  `json:"platform,omitempty"`
}

// PublishDiscovery publishes a Home Assistant discovery config for every
// descriptor carrying a component. Descriptors missing the mandatory
// entity metadata are logged and skipped, never fatal.
//
// Returns:
//   - error: If a publish fails
func (p *Publisher) PublishDiscovery() error {
	if p.broker == nil {
		return nil
	}

	device := discoveryDevice{
		Identifiers:  []string{p.topics.DeviceUUID},
		Manufacturer: discoveryManufacturer,
		Model:        p.stringValue("boiler_model", "Unknown"),
		Name:         p.deviceName(),
		SWVersion:    p.stringValue("software_version", "0"),
	}

	for _, d := range p.store.Index().Descriptors() {
		if d.Component == "" || d.Name == "" {
			continue
		}
		if d.EntityCategory == "" {
			p.logger.Error("discovery skipped: entity_category missing", "parameter", d.Name)
			continue
		}
		if d.Icon == "" {
			p.logger.Error("discovery skipped: icon missing", "parameter", d.Name)
			continue
		}

		payload, err := json.MarshalIndent(p.entityConfig(&d, device), "", "  ")
		if err != nil {
			return fmt.Errorf("marshalling discovery config for %s: %w", d.Name, err)
		}

		topic := p.topics.DiscoveryConfig(d.Component, d.Name)
		if err := p.broker.Publish(topic, payload, byte(p.cfg.QoS), p.cfg.Retain); err != nil {
			return fmt.Errorf("publishing discovery config for %s: %w", d.Name, err)
		}
		p.logger.Debug("entity discovered", "parameter", d.Name, "topic", topic)
	}

	return nil
}

// entityConfig builds the discovery payload for one descriptor.
func (p *Publisher) entityConfig(d *register.Descriptor, device discoveryDevice) discoveryConfig {
	entityName := d.Description
	if entityName == "" {
		entityName = d.Name
	}

	cfg := discoveryConfig{
		ConfigTopic: p.topics.DiscoveryConfig(d.Component, d.Name),
		Availability: []discoveryAvailability{
			{Topic: p.topics.Availability()},
		},
		Device:         device,
		Name:           entityName,
		Retain:         p.cfg.Retain,
		StateTopic:     p.topics.State(),
		ValueTemplate:  fmt.Sprintf("{{ value_json.%s }}", d.Name),
		UniqueID:       fmt.Sprintf("%s_%s", p.topics.DeviceUUID, d.Name),
		EntityCategory: d.EntityCategory,
		Icon:           d.Icon,
		ObjectID:       fmt.Sprintf("%s_%s", p.topics.Subtopic(), d.Name),
		QoS:            1,
		DeviceClass:    d.DeviceClass,
		StateClass:     d.StateClass,
		Unit:           displayUnit(d.Unit),
		Min:            d.Min,
		Max:            d.Max,
		Step:           d.Step,
		Options:        d.Options,
	}

	if isCommandable(d) {
		cfg.CommandTopic = p.topics.Command(d.Component, d.Name)
	}
	if d.Component == "sensor" {
		cfg.Platform = "sensor"
	}

	return cfg
}

// displayUnit maps register table unit names onto Home Assistant units.
func displayUnit(unit string) string {
	if unit == "CelsiusTemperature" {
		return "°C"
	}
	return unit
}

// deviceName returns the configured boiler name or the default.
func (p *Publisher) deviceName() string {
	if p.device.Name != "" {
		return p.device.Name
	}
	return "Boiler"
}

// stringValue renders a parameter value for the device block, falling
// back when the parameter has not been read yet.
func (p *Publisher) stringValue(name, fallback string) string {
	rec, ok := p.store.Get(name)
	if !ok || rec.Value == nil {
		return fallback
	}
	return fmt.Sprintf("%v", rec.Value)
}
