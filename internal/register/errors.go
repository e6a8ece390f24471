package register

import "errors"

// Sentinel errors for index validation and codec operations.
// Use errors.Is() to check for these in calling code.
var (
	// ErrInvalidDescriptor is returned when a descriptor's shape is wrong
	// (unknown kind, missing name, too many bits).
	ErrInvalidDescriptor = errors.New("register: invalid descriptor")

	// ErrDuplicateAddress is returned when two descriptors share an address.
	ErrDuplicateAddress = errors.New("register: duplicate address")

	// ErrDuplicateName is returned when a parameter name appears twice in
	// the namespace.
	ErrDuplicateName = errors.New("register: duplicate parameter name")

	// ErrEmptyIndex is returned when the descriptor list produces no
	// parameters at all.
	ErrEmptyIndex = errors.New("register: index defines no parameters")

	// ErrReadOnly is returned when encoding a value for a read-only kind.
	ErrReadOnly = errors.New("register: kind is read-only")

	// ErrInvalidValue is returned when a value cannot be encoded for the
	// register's kind.
	ErrInvalidValue = errors.New("register: value not encodable")
)
