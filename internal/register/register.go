package register

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies the encoding of a register's 16-bit word.
type Kind string

// Register kinds understood by the codec.
const (
	KindRaw16       Kind = "raw16"
	KindBits        Kind = "bits"
	KindDecimal1    Kind = "decimal1"
	KindModeFlag    Kind = "modeflag"
	KindErrorCode   Kind = "errorcode"
	KindCircuitType Kind = "circuittype"
	KindProgramSlot Kind = "programslot"
)

// UnusedBit marks a bit position in a bits register that carries no
// parameter. Such positions are skipped during decode and preserved as
// zero during encode.
const UnusedBit = "io_unused"

// bitsPerWord is the number of bit positions in one holding register.
const bitsPerWord = 16

// Value is a decoded parameter value.
//
// Numeric kinds (raw16, bits, decimal1, modeflag, programslot) decode to
// float64; errorcode and circuittype decode to string. A nil Value means
// "no data": either the register has never been read or the raw word is
// the device's no-data sentinel.
type Value any

// Descriptor describes one holding register: its address, its encoding,
// and the parameter name(s) it contributes to the namespace.
//
// Descriptors are immutable after the index is built. The Home Assistant
// fields (Component, Icon, ...) are static metadata carried through to the
// MQTT discovery payloads; the synchronization engine ignores them.
type Descriptor struct {
	Address uint16   `yaml:"address" json:"id"`
	Kind    Kind     `yaml:"kind" json:"type"`
	Name    string   `yaml:"name,omitempty" json:"name,omitempty"`
	Bits    []string `yaml:"bits,omitempty" json:"bits,omitempty"`

	// Influx controls whether the parameter's value appears in external
	// snapshots (InfluxDB, MQTT state, history). Defaults to true.
	Influx *bool `yaml:"influx,omitempty" json:"influx,omitempty"`

	// Home Assistant discovery metadata.
	Component      string   `yaml:"component,omitempty" json:"component,omitempty"`
	Description    string   `yaml:"desc,omitempty" json:"desc,omitempty"`
	Icon           string   `yaml:"icon,omitempty" json:"icon,omitempty"`
	Unit           string   `yaml:"unit,omitempty" json:"unit,omitempty"`
	EntityCategory string   `yaml:"entity_category,omitempty" json:"entity_category,omitempty"`
	DeviceClass    string   `yaml:"device_class,omitempty" json:"device_class,omitempty"`
	StateClass     string   `yaml:"state_class,omitempty" json:"state_class,omitempty"`
	Min            *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max            *float64 `yaml:"max,omitempty" json:"max,omitempty"`
	Step           *float64 `yaml:"step,omitempty" json:"step,omitempty"`
	Options        []string `yaml:"options,omitempty" json:"options,omitempty"`
}

// ExternallyVisible reports whether the parameter value should appear in
// snapshots consumed by InfluxDB, MQTT and the history store.
func (d *Descriptor) ExternallyVisible() bool {
	return d.Influx == nil || *d.Influx
}

// ReadOnly reports whether the register kind rejects writes.
func (d *Descriptor) ReadOnly() bool {
	return d.Kind == KindErrorCode
}

// ParameterNames returns the parameter names this descriptor contributes,
// in bit order for bits registers. Unused bit positions are skipped.
func (d *Descriptor) ParameterNames() []string {
	if d.Kind == KindBits {
		names := make([]string, 0, len(d.Bits))
		for _, bit := range d.Bits {
			if bit == UnusedBit {
				continue
			}
			names = append(names, bit)
		}
		return names
	}
	if d.Name == "" {
		return nil
	}
	return []string{d.Name}
}

// BitPosition returns the bit index of the named parameter within a bits
// register, or false if the name is not one of its bits.
func (d *Descriptor) BitPosition(name string) (int, bool) {
	for i, bit := range d.Bits {
		if bit != UnusedBit && bit == name {
			return i, true
		}
	}
	return 0, false
}

// Index is the validated, immutable register index. It is built once from
// configuration and rebuilt wholesale on an explicit reload; nothing
// mutates it at runtime.
type Index struct {
	descriptors []Descriptor
	byAddress   map[uint16]*Descriptor
	byName      map[string]*Descriptor
	names       []string // parameter namespace in descriptor/bit order
}

// NewIndex validates the descriptor list and builds the lookup tables.
//
// Validation enforces the namespace invariants: every address appears in
// exactly one descriptor, every parameter name is globally unique, scalar
// kinds carry a name, bits registers carry at most 16 bit names, and the
// kind is one the codec understands.
func NewIndex(descriptors []Descriptor) (*Index, error) {
	idx := &Index{
		descriptors: make([]Descriptor, len(descriptors)),
		byAddress:   make(map[uint16]*Descriptor, len(descriptors)),
		byName:      make(map[string]*Descriptor),
	}
	copy(idx.descriptors, descriptors)

	// Keep descriptors sorted by address; the poll cycle relies on this
	// when mapping read windows back onto descriptors.
	sort.SliceStable(idx.descriptors, func(i, j int) bool {
		return idx.descriptors[i].Address < idx.descriptors[j].Address
	})

	for i := range idx.descriptors {
		d := &idx.descriptors[i]
		if err := validateDescriptor(d); err != nil {
			return nil, err
		}
		if _, dup := idx.byAddress[d.Address]; dup {
			return nil, fmt.Errorf("%w: address %d", ErrDuplicateAddress, d.Address)
		}
		idx.byAddress[d.Address] = d

		for _, name := range d.ParameterNames() {
			if _, dup := idx.byName[name]; dup {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
			}
			idx.byName[name] = d
			idx.names = append(idx.names, name)
		}
	}

	if len(idx.names) == 0 {
		return nil, ErrEmptyIndex
	}
	return idx, nil
}

// validateDescriptor checks a single descriptor's shape.
func validateDescriptor(d *Descriptor) error {
	switch d.Kind {
	case KindBits:
		if len(d.Bits) == 0 {
			return fmt.Errorf("%w: register %d has kind bits but no bit names", ErrInvalidDescriptor, d.Address)
		}
		if len(d.Bits) > bitsPerWord {
			return fmt.Errorf("%w: register %d has %d bits (max %d)", ErrInvalidDescriptor, d.Address, len(d.Bits), bitsPerWord)
		}
	case KindRaw16, KindDecimal1, KindModeFlag, KindErrorCode, KindCircuitType, KindProgramSlot:
		if strings.TrimSpace(d.Name) == "" {
			return fmt.Errorf("%w: register %d has kind %s but no name", ErrInvalidDescriptor, d.Address, d.Kind)
		}
	default:
		return fmt.Errorf("%w: register %d has unknown kind %q", ErrInvalidDescriptor, d.Address, d.Kind)
	}
	return nil
}

// Descriptors returns the descriptors in address order.
// Callers must not modify the returned slice.
func (idx *Index) Descriptors() []Descriptor {
	return idx.descriptors
}

// ByName returns the descriptor owning the named parameter.
func (idx *Index) ByName(name string) (*Descriptor, bool) {
	d, ok := idx.byName[name]
	return d, ok
}

// ByAddress returns the descriptor at the given register address.
func (idx *Index) ByAddress(addr uint16) (*Descriptor, bool) {
	d, ok := idx.byAddress[addr]
	return d, ok
}

// ParameterNames returns the full parameter namespace in descriptor order.
// Callers must not modify the returned slice.
func (idx *Index) ParameterNames() []string {
	return idx.names
}
