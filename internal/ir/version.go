package ir

// Version constants for the IR schema and runtime.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// RuntimeVersion is the typefn runtime version.
	RuntimeVersion = "0.1.0"
)
