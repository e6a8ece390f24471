// Package register models the Diematic holding-register map.
//
// It provides two things: the Register Index (the static list of register
// descriptors loaded from configuration, which defines the parameter
// namespace) and the Register Codec (pure functions translating between raw
// 16-bit words and typed parameter values).
//
// # Register kinds
//
//   - raw16:       the word itself, unmodified
//   - bits:        up to 16 named boolean parameters packed into one word
//   - decimal1:    signed sign-magnitude value with one implied decimal digit
//   - modeflag:    tri-state schedule mode (anti-freeze / night / day)
//   - errorcode:   read-only lookup of the boiler error register
//   - circuittype: heating-circuit type enum
//   - programslot: 1-based program number (0-based on the wire)
//
// The codec is stateless and deterministic; all device I/O and lifecycle
// handling live in internal/session and internal/boiler.
package register
