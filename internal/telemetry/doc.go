// Package telemetry fans the decoded boiler snapshot out to the external
// surfaces after each successful poll cycle.
//
// A Publisher owns the optional sinks (MQTT state topic, InfluxDB bucket,
// SQLite history) and the Home Assistant integration: discovery configs for
// every descriptor carrying a component, and command topic subscriptions
// that enqueue parameter writes.
//
// Sinks are independent. A failure on one surface is logged and does not
// stop the others; the poll loop never blocks on telemetry.
package telemetry
