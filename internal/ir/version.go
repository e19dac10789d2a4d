package ir

// Version constants for IR schema and generator.
const (
	// IRVersion is the IR schema version.
	IRVersion = "1"

	// GeneratorVersion is the bindgen generator version.
	GeneratorVersion = "0.3.0"

	// RuntimeABI is the runtime support library ABI the emitted code targets.
	RuntimeABI = "1.2"
)
