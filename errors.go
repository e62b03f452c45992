package confstore

import "errors"

// Sentinel errors returned by Store operations. Callers should match
// them with errors.Is since they are usually wrapped with context.
var (
	// ErrNotFound indicates the configuration file does not exist and
	// the store was not constructed with WithNotFoundOK.
	ErrNotFound = errors.New("config file not found")

	// ErrSource indicates that not exactly one configuration source
	// (file path or in-memory mapping) was supplied.
	ErrSource = errors.New("exactly one configuration source required")

	// ErrShape indicates a flat (unsectioned) mapping was supplied with
	// no target section to wrap it under.
	ErrShape = errors.New("config data must have a section")

	// ErrConvert indicates a section name or key could not be
	// normalized under strict conversion.
	ErrConvert = errors.New("invalid section or key name")

	// ErrKeyPolicy indicates a key not declared in a non-empty default
	// section was introduced while strict key checking is enabled.
	ErrKeyPolicy = errors.New("key not declared in defaults")

	// ErrCast indicates a value could not be coerced to the type of its
	// default while strict casting is enabled.
	ErrCast = errors.New("cast failed")

	// ErrUnknownMode indicates an unrecognized save mode string.
	ErrUnknownMode = errors.New("unknown save mode")
)
