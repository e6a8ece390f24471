package register

import (
	"errors"
	"reflect"
	"testing"
)

func testDescriptors() []Descriptor {
	no := false
	return []Descriptor{
		{Address: 7, Kind: KindDecimal1, Name: "outside_temp"},
		{Address: 3, Kind: KindRaw16, Name: "boiler_hours"},
		{Address: 459, Kind: KindBits, Bits: []string{
			"burner", UnusedBit, "pump_a", "pump_b",
		}},
		{Address: 465, Kind: KindErrorCode, Name: "error"},
		{Address: 308, Kind: KindModeFlag, Name: "mode_a", Influx: &no},
	}
}

func TestNewIndex(t *testing.T) {
	idx, err := NewIndex(testDescriptors())
	if err != nil {
		t.Fatalf("NewIndex() error = %v", err)
	}

	// Descriptors come back in address order regardless of input order.
	var addrs []uint16
	for _, d := range idx.Descriptors() {
		addrs = append(addrs, d.Address)
	}
	wantAddrs := []uint16{3, 7, 308, 459, 465}
	if !reflect.DeepEqual(addrs, wantAddrs) {
		t.Errorf("Descriptors() addresses = %v, want %v", addrs, wantAddrs)
	}

	// The namespace follows descriptor order, bits expanded in bit order
	// with unused positions dropped.
	wantNames := []string{"boiler_hours", "outside_temp", "mode_a", "burner", "pump_a", "pump_b", "error"}
	if got := idx.ParameterNames(); !reflect.DeepEqual(got, wantNames) {
		t.Errorf("ParameterNames() = %v, want %v", got, wantNames)
	}

	d, ok := idx.ByName("pump_a")
	if !ok || d.Address != 459 {
		t.Errorf("ByName(pump_a) = %+v, %v, want bits register 459", d, ok)
	}
	if pos, ok := d.BitPosition("pump_a"); !ok || pos != 2 {
		t.Errorf("BitPosition(pump_a) = %d, %v, want 2, true", pos, ok)
	}
	if _, ok := d.BitPosition(UnusedBit); ok {
		t.Error("BitPosition(unused marker) = true, want false")
	}

	if d, ok := idx.ByAddress(465); !ok || d.Name != "error" {
		t.Errorf("ByAddress(465) = %+v, %v, want error register", d, ok)
	}
	if _, ok := idx.ByAddress(999); ok {
		t.Error("ByAddress(999) = true, want false")
	}
}

func TestNewIndexValidation(t *testing.T) {
	tests := []struct {
		name        string
		descriptors []Descriptor
		wantErr     error
	}{
		{
			"empty list",
			nil,
			ErrEmptyIndex,
		},
		{
			"only unused bits",
			[]Descriptor{{Address: 1, Kind: KindBits, Bits: []string{UnusedBit}}},
			ErrEmptyIndex,
		},
		{
			"duplicate address",
			[]Descriptor{
				{Address: 5, Kind: KindRaw16, Name: "a"},
				{Address: 5, Kind: KindRaw16, Name: "b"},
			},
			ErrDuplicateAddress,
		},
		{
			"duplicate name across registers",
			[]Descriptor{
				{Address: 1, Kind: KindRaw16, Name: "a"},
				{Address: 2, Kind: KindDecimal1, Name: "a"},
			},
			ErrDuplicateName,
		},
		{
			"duplicate name between scalar and bit",
			[]Descriptor{
				{Address: 1, Kind: KindRaw16, Name: "pump"},
				{Address: 2, Kind: KindBits, Bits: []string{"pump"}},
			},
			ErrDuplicateName,
		},
		{
			"scalar without name",
			[]Descriptor{{Address: 1, Kind: KindDecimal1}},
			ErrInvalidDescriptor,
		},
		{
			"bits without bit names",
			[]Descriptor{{Address: 1, Kind: KindBits}},
			ErrInvalidDescriptor,
		},
		{
			"bits with too many positions",
			[]Descriptor{{Address: 1, Kind: KindBits, Bits: make([]string, 17)}},
			ErrInvalidDescriptor,
		},
		{
			"unknown kind",
			[]Descriptor{{Address: 1, Kind: Kind("float99"), Name: "a"}},
			ErrInvalidDescriptor,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewIndex(tt.descriptors)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewIndex() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDescriptorVisibility(t *testing.T) {
	yes, no := true, false

	tests := []struct {
		name string
		d    Descriptor
		want bool
	}{
		{"default visible", Descriptor{}, true},
		{"explicit visible", Descriptor{Influx: &yes}, true},
		{"suppressed", Descriptor{Influx: &no}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.ExternallyVisible(); got != tt.want {
				t.Errorf("ExternallyVisible() = %v, want %v", got, tt.want)
			}
		})
	}

	if !(&Descriptor{Kind: KindErrorCode}).ReadOnly() {
		t.Error("errorcode descriptor should be read only")
	}
	if (&Descriptor{Kind: KindDecimal1}).ReadOnly() {
		t.Error("decimal1 descriptor should be writable")
	}
}
