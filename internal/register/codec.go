package register

import (
	"fmt"
	"math"
)

// Decimal1 wire format constants.
const (
	// decimalNoData is the raw word the boiler reports when a decimal1
	// register carries no measurement.
	decimalNoData = 0xFFFF

	// decimalSignBit flags a negative value (sign-magnitude, bit 15).
	decimalSignBit = 0x8000

	// decimalMagnitudeMask selects the 15 magnitude bits.
	decimalMagnitudeMask = 0x7FFF
)

// Mode flag values on the wire and their normalised logical form.
const (
	modeRawAntifreeze = 0
	modeRawNight      = 2
	modeRawDay        = 4

	ModeAntifreeze float64 = -1
	ModeNight      float64 = 0
	ModeDay        float64 = 1
)

// CircuitTypeUnknown is the decode marker for circuit type raw values
// outside the known enum. Decoding never fails for this kind.
const CircuitTypeUnknown = "UNKNOWN"

// circuitTypes maps the raw enum to the controller's display mnemonics.
var circuitTypes = []string{"DISABLE", "DIRECT", "3WV", "DIRECT+", "3WV+", "SWIM."}

// errorCodes maps the boiler error register to the controller's panel
// mnemonics. Codes absent from the table decode via the formatted
// "Unknown error" fallback.
var errorCodes = map[uint16]string{
	0x0000: "OK",
	0x0001: "BOILER S.FAIL.",
	0x0002: "OUTL S.A FAIL.",
	0x0003: "OUTL S.B FAIL.",
	0x0004: "OUTL S.C FAIL.",
	0x0005: "OUTSI. S.FAIL.",
	0x0006: "SMOKE S. FAIL.",
	0x0007: "AUX. F. DEFEKT",
	0x0009: "DHW S. FAILURE",
	0x000A: "BACK S.FAILURE",
	0x000B: "ROOM S.A FAIL.",
	0x000C: "ROOM S.B FAIL.",
	0x000D: "ROOM S.C FAIL.",
	0x000E: "SOLAR S. FAIL",
	0x000F: "ST.TANK S.FAIL",
	0x0010: "SWIM.P.A S.FAIL",
	0x0011: "DHW 2 S. FAIL",
	0x0012: "CDI.A COM.FAIL",
	0x0013: "CDI.B COM.FAIL",
	0x0014: "CDI.C COM.FAIL",
	0x001B: "I-CURRENT FAIL",
	0x001C: "BURNER FAILURE",
	0x001D: "PARASIT FLAME",
	0x001E: "STB BOILER",
	0x001F: "STB BACK",
	0x0020: "VALVE FAIL",
	0x0022: "PCU BLOCKING",
	0x0023: "EXCHAN.S.FAIL",
	0x0024: "STB EXCHANGE",
	0x0025: "TA-S SHORT-CIR",
	0x0026: "TA-S DISCONNEC",
	0x0027: "TA-S FAILURE",
	0x0028: "MC COM.FAIL",
	0x0029: "AUX2.SENS.FAIL",
	0x002A: "UNIV.SENS.FAIL",
	0x002B: "SWIM.P.B S.FAIL",
	0x002C: "SWIM.P.C S.FAIL",
	0x002D: "PCU COM. FAIL",
	0x002E: "LOCKING",
	0x002F: "PSU FAIL",
	0x0030: "PSU PARAM FAIL",
	0x0031: "CCE TEST FAIL",
	0x0032: "FAN FAILURE",
	0x0033: "SMOKE.P.FAIL",
	0x0034: "SU COM.FAIL",
	0x0035: "PCU-M3 COM.FAIL",
	0x0036: "CS OPEN FAIL",
	0x0037: "EXCH-BACK<MIN",
	0x0038: "EXCH-BACK>MAX",
	0x0039: "BACK>BOIL FAIL",
	0x003A: "FAIL UNKNOWN",
}

// Decode translates a raw word into the typed value for a scalar kind.
//
// A nil Value with a nil error means the word is valid but carries no
// data (decimal1 no-data sentinel, unrecognised mode flag). Bits
// registers are per-bit; use DecodeBit instead.
func Decode(kind Kind, raw uint16) (Value, error) {
	switch kind {
	case KindRaw16:
		return float64(raw), nil
	case KindDecimal1:
		return DecodeDecimal(raw), nil
	case KindModeFlag:
		return DecodeModeFlag(raw), nil
	case KindErrorCode:
		return DecodeErrorCode(raw), nil
	case KindCircuitType:
		return DecodeCircuitType(raw), nil
	case KindProgramSlot:
		return DecodeProgramSlot(raw), nil
	case KindBits:
		return nil, fmt.Errorf("%w: bits registers decode per bit", ErrInvalidDescriptor)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidDescriptor, kind)
	}
}

// Encode translates a typed value into the raw word for a scalar kind.
//
// Encoding a read-only kind fails with ErrReadOnly; a value outside the
// kind's representable set fails with ErrInvalidValue. Bit-field words
// are assembled by the write pipeline from the individual bit values.
func Encode(kind Kind, value Value) (uint16, error) {
	switch kind {
	case KindRaw16:
		f, ok := asFloat(value)
		if !ok || f < 0 || f > math.MaxUint16 {
			return 0, fmt.Errorf("%w: raw16 wants an integer 0..65535, got %v", ErrInvalidValue, value)
		}
		return uint16(f), nil
	case KindDecimal1:
		f, ok := asFloat(value)
		if !ok {
			return 0, fmt.Errorf("%w: decimal1 wants a number, got %v", ErrInvalidValue, value)
		}
		return EncodeDecimal(f)
	case KindModeFlag:
		f, ok := asFloat(value)
		if !ok {
			return 0, fmt.Errorf("%w: modeflag wants a number, got %v", ErrInvalidValue, value)
		}
		return EncodeModeFlag(f)
	case KindErrorCode:
		return 0, ErrReadOnly
	case KindCircuitType:
		s, ok := value.(string)
		if !ok {
			return 0, fmt.Errorf("%w: circuittype wants a string, got %v", ErrInvalidValue, value)
		}
		return EncodeCircuitType(s)
	case KindProgramSlot:
		f, ok := asFloat(value)
		if !ok {
			return 0, fmt.Errorf("%w: programslot wants a number, got %v", ErrInvalidValue, value)
		}
		return EncodeProgramSlot(f)
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidDescriptor, kind)
	}
}

// DecodeBit extracts bit i (0 = least significant) of a word as 0 or 1.
func DecodeBit(raw uint16, bit int) float64 {
	return float64((raw >> bit) & 1)
}

// DecodeDecimal decodes a decimal1 word: bits 0-14 magnitude, bit 15
// sign, one implied decimal digit. 0xFFFF means no data and decodes nil.
func DecodeDecimal(raw uint16) Value {
	if raw == decimalNoData {
		return nil
	}
	magnitude := float64(raw & decimalMagnitudeMask)
	if raw&decimalSignBit != 0 {
		magnitude = -magnitude
	}
	return magnitude / 10
}

// EncodeDecimal encodes a value into the decimal1 sign-magnitude form.
// The value is scaled by 10 and truncated toward zero, matching the
// controller's own rounding. Values whose magnitude exceeds the 15-bit
// range (|value| > 3276.7) are rejected.
func EncodeDecimal(value float64) (uint16, error) {
	scaled := math.Trunc(value * 10)
	if math.IsNaN(scaled) || math.Abs(scaled) > decimalMagnitudeMask {
		return 0, fmt.Errorf("%w: decimal1 wants -3276.7..3276.7, got %v", ErrInvalidValue, value)
	}
	if scaled < 0 {
		return uint16(-scaled) | decimalSignBit, nil
	}
	return uint16(scaled), nil
}

// DecodeModeFlag normalises the schedule mode register. Raw values other
// than 0/2/4 decode nil (no data).
func DecodeModeFlag(raw uint16) Value {
	switch raw {
	case modeRawAntifreeze:
		return ModeAntifreeze
	case modeRawNight:
		return ModeNight
	case modeRawDay:
		return ModeDay
	default:
		return nil
	}
}

// EncodeModeFlag is the exact inverse of DecodeModeFlag; values outside
// {-1, 0, 1} are rejected.
func EncodeModeFlag(value float64) (uint16, error) {
	switch value {
	case ModeAntifreeze:
		return modeRawAntifreeze, nil
	case ModeNight:
		return modeRawNight, nil
	case ModeDay:
		return modeRawDay, nil
	default:
		return 0, fmt.Errorf("%w: modeflag wants -1, 0 or 1, got %v", ErrInvalidValue, value)
	}
}

// DecodeErrorCode maps the boiler error register to its panel mnemonic.
// Unknown codes produce a formatted fallback rather than an error.
func DecodeErrorCode(raw uint16) string {
	if text, ok := errorCodes[raw]; ok {
		return text
	}
	return fmt.Sprintf("Unknown error 0x%04x", raw)
}

// DecodeCircuitType maps the circuit type enum to its mnemonic.
// Values outside the enum decode to CircuitTypeUnknown, never an error.
func DecodeCircuitType(raw uint16) string {
	if int(raw) < len(circuitTypes) {
		return circuitTypes[raw]
	}
	return CircuitTypeUnknown
}

// EncodeCircuitType is the inverse of DecodeCircuitType; unrecognised
// mnemonics (including the unknown marker) are rejected.
func EncodeCircuitType(value string) (uint16, error) {
	for raw, text := range circuitTypes {
		if text == value {
			return uint16(raw), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown circuit type %q", ErrInvalidValue, value)
}

// DecodeProgramSlot converts the device's 0-based program number to the
// 1-based external form.
func DecodeProgramSlot(raw uint16) float64 {
	return float64(raw) + 1
}

// EncodeProgramSlot converts a 1-based program number back to the
// device's 0-based form.
func EncodeProgramSlot(value float64) (uint16, error) {
	slot := math.Trunc(value)
	if slot < 1 || slot > math.MaxUint16 {
		return 0, fmt.Errorf("%w: programslot wants a number >= 1, got %v", ErrInvalidValue, value)
	}
	return uint16(slot - 1), nil
}

// asFloat coerces the numeric representations a Value can arrive in
// (decoded JSON, YAML, or literals in tests) to float64.
func asFloat(value Value) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint16:
		return float64(v), true
	default:
		return 0, false
	}
}
