package ir

const (
	// IRVersion is the network description schema version.
	IRVersion = "1"

	// EngineVersion is the pulse engine version recorded with every run.
	EngineVersion = "0.1.0"
)
