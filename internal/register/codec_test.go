package register

import (
	"errors"
	"testing"
)

// ─── Decimal1 ──────────────────────────────────────────────────────

func TestDecodeDecimal(t *testing.T) {
	tests := []struct {
		name string
		raw  uint16
		want Value
	}{
		{"positive 4.0", 0x0028, 4.0},
		{"positive 21.5", 0x00D7, 21.5},
		{"negative -0.1", 0x8001, -0.1},
		{"negative -12.3", 0x807B, -12.3},
		{"zero", 0x0000, 0.0},
		{"negative zero is zero", 0x8000, 0.0},
		{"no data sentinel", 0xFFFF, nil},
		{"max magnitude", 0x7FFF, 3276.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeDecimal(tt.raw)
			if got != tt.want {
				t.Errorf("DecodeDecimal(0x%04X) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestEncodeDecimal(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  uint16
	}{
		{"positive 4.0", 4.0, 0x0028},
		{"positive 21.5", 21.5, 0x00D7},
		{"negative -0.1", -0.1, 0x8001},
		{"negative -12.3", -12.3, 0x807B},
		{"zero", 0.0, 0x0000},
		{"truncates toward zero", 4.09, 0x0028},
		{"truncates negative toward zero", -4.09, 0x8028},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeDecimal(tt.value)
			if err != nil {
				t.Fatalf("EncodeDecimal(%v): %v", tt.value, err)
			}
			if got != tt.want {
				t.Errorf("EncodeDecimal(%v) = 0x%04X, want 0x%04X", tt.value, got, tt.want)
			}
		})
	}
}

func TestEncodeDecimalOutOfRange(t *testing.T) {
	for _, value := range []float64{3276.8, -3276.8, 100000, -100000} {
		if _, err := EncodeDecimal(value); !errors.Is(err, ErrInvalidValue) {
			t.Errorf("EncodeDecimal(%v): got %v, want ErrInvalidValue", value, err)
		}
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	for _, value := range []float64{-100.0, -0.1, 0.0, 0.5, 21.5, 80.0, 3276.7} {
		raw, err := EncodeDecimal(value)
		if err != nil {
			t.Fatalf("EncodeDecimal(%v): %v", value, err)
		}
		got := DecodeDecimal(raw)
		if got != value {
			t.Errorf("round trip %v: encoded 0x%04X, decoded %v", value, raw, got)
		}
	}
}

// ─── Mode flag ─────────────────────────────────────────────────────

func TestDecodeModeFlag(t *testing.T) {
	tests := []struct {
		name string
		raw  uint16
		want Value
	}{
		{"antifreeze", 0, -1.0},
		{"night", 2, 0.0},
		{"day", 4, 1.0},
		{"unknown raw decodes nil", 3, nil},
		{"high raw decodes nil", 0xFFFF, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeModeFlag(tt.raw)
			if got != tt.want {
				t.Errorf("DecodeModeFlag(%d) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestEncodeModeFlag(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		want    uint16
		wantErr bool
	}{
		{"antifreeze", -1, 0, false},
		{"night", 0, 2, false},
		{"day", 1, 4, false},
		{"out of range", 2, 0, true},
		{"fractional", 0.5, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeModeFlag(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EncodeModeFlag(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrInvalidValue) {
				t.Errorf("EncodeModeFlag(%v) error = %v, want ErrInvalidValue", tt.value, err)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("EncodeModeFlag(%v) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

// ─── Error code ────────────────────────────────────────────────────

func TestDecodeErrorCode(t *testing.T) {
	tests := []struct {
		name string
		raw  uint16
		want string
	}{
		{"ok", 0x0000, "OK"},
		{"boiler sensor", 0x0001, "BOILER S.FAIL."},
		{"last known code", 0x003A, "FAIL UNKNOWN"},
		{"gap in table", 0x0008, "Unknown error 0x0008"},
		{"beyond table", 0x00FF, "Unknown error 0x00ff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeErrorCode(tt.raw)
			if got != tt.want {
				t.Errorf("DecodeErrorCode(0x%04X) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestEncodeErrorCodeReadOnly(t *testing.T) {
	if _, err := Encode(KindErrorCode, "OK"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Encode(errorcode) error = %v, want ErrReadOnly", err)
	}
}

// ─── Circuit type ──────────────────────────────────────────────────

func TestDecodeCircuitType(t *testing.T) {
	tests := []struct {
		name string
		raw  uint16
		want string
	}{
		{"disabled", 0, "DISABLE"},
		{"direct", 1, "DIRECT"},
		{"three way valve", 2, "3WV"},
		{"swimming pool", 5, "SWIM."},
		{"beyond enum", 6, CircuitTypeUnknown},
		{"far beyond enum", 99, CircuitTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeCircuitType(tt.raw)
			if got != tt.want {
				t.Errorf("DecodeCircuitType(%d) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestEncodeCircuitType(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    uint16
		wantErr bool
	}{
		{"disabled", "DISABLE", 0, false},
		{"three way valve", "3WV", 2, false},
		{"swimming pool", "SWIM.", 5, false},
		{"unknown marker rejected", CircuitTypeUnknown, 0, true},
		{"garbage rejected", "CHEESE", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeCircuitType(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EncodeCircuitType(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("EncodeCircuitType(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

// ─── Program slot ──────────────────────────────────────────────────

func TestProgramSlot(t *testing.T) {
	if got := DecodeProgramSlot(0); got != 1 {
		t.Errorf("DecodeProgramSlot(0) = %v, want 1", got)
	}
	if got := DecodeProgramSlot(3); got != 4 {
		t.Errorf("DecodeProgramSlot(3) = %v, want 4", got)
	}

	got, err := EncodeProgramSlot(1)
	if err != nil || got != 0 {
		t.Errorf("EncodeProgramSlot(1) = %d, %v, want 0, nil", got, err)
	}
	if _, err := EncodeProgramSlot(0); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("EncodeProgramSlot(0) error = %v, want ErrInvalidValue", err)
	}
}

// ─── Bits ──────────────────────────────────────────────────────────

func TestDecodeBit(t *testing.T) {
	const word = uint16(0b1010_0000_0000_0101)

	tests := []struct {
		bit  int
		want float64
	}{
		{0, 1}, {1, 0}, {2, 1}, {3, 0}, {13, 1}, {14, 0}, {15, 1},
	}

	for _, tt := range tests {
		if got := DecodeBit(word, tt.bit); got != tt.want {
			t.Errorf("DecodeBit(0x%04X, %d) = %v, want %v", word, tt.bit, got, tt.want)
		}
	}
}

// ─── Dispatchers ───────────────────────────────────────────────────

func TestDecodeDispatch(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		raw     uint16
		want    Value
		wantErr bool
	}{
		{"raw16", KindRaw16, 1234, 1234.0, false},
		{"decimal1", KindDecimal1, 0x0028, 4.0, false},
		{"decimal1 no data", KindDecimal1, 0xFFFF, nil, false},
		{"modeflag", KindModeFlag, 4, 1.0, false},
		{"errorcode", KindErrorCode, 0, "OK", false},
		{"circuittype", KindCircuitType, 2, "3WV", false},
		{"programslot", KindProgramSlot, 0, 1.0, false},
		{"bits rejected", KindBits, 0, nil, true},
		{"unknown kind", Kind("mystery"), 0, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.kind, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode(%q, 0x%04X) error = %v, wantErr %v", tt.kind, tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Decode(%q, 0x%04X) = %v, want %v", tt.kind, tt.raw, got, tt.want)
			}
		})
	}
}

func TestEncodeDispatch(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		value   Value
		want    uint16
		wantErr error
	}{
		{"raw16", KindRaw16, 1234.0, 1234, nil},
		{"raw16 from int", KindRaw16, 1234, 1234, nil},
		{"raw16 negative", KindRaw16, -1.0, 0, ErrInvalidValue},
		{"raw16 overflow", KindRaw16, 70000.0, 0, ErrInvalidValue},
		{"decimal1", KindDecimal1, -0.1, 0x8001, nil},
		{"decimal1 non numeric", KindDecimal1, "hot", 0, ErrInvalidValue},
		{"modeflag", KindModeFlag, 1.0, 4, nil},
		{"errorcode read only", KindErrorCode, "OK", 0, ErrReadOnly},
		{"circuittype", KindCircuitType, "DIRECT", 1, nil},
		{"circuittype non string", KindCircuitType, 1.0, 0, ErrInvalidValue},
		{"programslot", KindProgramSlot, 4.0, 3, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.kind, tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Encode(%q, %v) error = %v, want %v", tt.kind, tt.value, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Encode(%q, %v) unexpected error: %v", tt.kind, tt.value, err)
			}
			if got != tt.want {
				t.Errorf("Encode(%q, %v) = 0x%04X, want 0x%04X", tt.kind, tt.value, got, tt.want)
			}
		})
	}
}
