package memo

import "errors"

// Sentinel errors for registry operations.
var (
	// ErrInvalidKey is returned when a key sequence is empty.
	ErrInvalidKey = errors.New("memo: missing required memoization keys")

	// ErrUncomparableKey is returned when a key cannot be used as a map key
	// (slices, maps, funcs, or structs containing them).
	ErrUncomparableKey = errors.New("memo: key is not comparable")

	// ErrNilFactory is returned when Register is called without a factory.
	ErrNilFactory = errors.New("memo: factory is nil")
)
