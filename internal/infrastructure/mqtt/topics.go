package mqtt

import (
	"fmt"
	"strings"
)

// Topics builds the daemon's MQTT topic names.
//
// The boiler state lives under a single configurable base topic; Home
// Assistant discovery entities live under the discovery prefix, keyed
// by the boiler UUID:
//
//	t := mqtt.Topics{Base: "diematic2mqtt/boiler", DiscoveryPrefix: "homeassistant", DeviceUUID: uuid}
//	t.State()        // "diematic2mqtt/boiler"
//	t.Availability() // "diematic2mqtt/boiler/availability"
type Topics struct {
	// Base is the state topic the full parameter snapshot is published
	// to after each poll cycle.
	Base string

	// DiscoveryPrefix is the Home Assistant discovery prefix
	// (conventionally "homeassistant").
	DiscoveryPrefix string

	// DeviceUUID identifies the boiler within the discovery namespace.
	DeviceUUID string
}

// commandMarker separates an entity's discovery head from its command
// suffix. Incoming write topics are recognised by this segment.
const commandMarker = "set"

// State returns the snapshot topic.
func (t Topics) State() string {
	return t.Base
}

// Availability returns the online/offline topic. It carries the plain
// payloads "online" and "offline"; the latter is also the Last Will.
func (t Topics) Availability() string {
	return t.Base + "/availability"
}

// Subtopic returns the last segment of the base topic, used to prefix
// discovery object IDs so multiple boilers stay distinct.
func (t Topics) Subtopic() string {
	parts := strings.Split(t.Base, "/")
	return parts[len(parts)-1]
}

// EntityHead returns the discovery namespace for one parameter entity.
//
// Example: homeassistant/sensor/<uuid>/boiler_temp
func (t Topics) EntityHead(component, objectID string) string {
	return fmt.Sprintf("%s/%s/%s/%s", t.DiscoveryPrefix, component, t.DeviceUUID, objectID)
}

// DiscoveryConfig returns the discovery config topic for one entity.
//
// Example: homeassistant/number/<uuid>/setpoint/config
func (t Topics) DiscoveryConfig(component, objectID string) string {
	return t.EntityHead(component, objectID) + "/config"
}

// Command returns the command topic Home Assistant publishes new values
// to for a writable entity.
//
// Example: homeassistant/number/<uuid>/setpoint/set/setpoint
func (t Topics) Command(component, objectID string) string {
	return fmt.Sprintf("%s/%s/%s", t.EntityHead(component, objectID), commandMarker, objectID)
}

// ParseCommand extracts the parameter name from an incoming command
// topic. It returns false for topics that are not command topics.
//
// The marker position depends on how many segments the discovery
// prefix itself has, so it is derived rather than hard-coded.
func (t Topics) ParseCommand(topic string) (string, bool) {
	marker := len(strings.Split(t.DiscoveryPrefix, "/")) + 3
	parts := strings.Split(topic, "/")
	if len(parts) > marker+1 && parts[marker] == commandMarker {
		return parts[marker+1], true
	}
	return "", false
}
