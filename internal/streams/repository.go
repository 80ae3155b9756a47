package streams

// Store provides read access to stream definitions. The supervisor
// never persists anything; definitions are operator-owned files.
type Store interface {
	// Load reads the definitions from the backing file. A missing file
	// is not an error and yields an empty set.
	Load() error

	// GetStream retrieves a definition by ID.
	GetStream(id string) (StreamSpec, bool)

	// GetAllStreams returns all definitions keyed by ID.
	GetAllStreams() map[string]StreamSpec

	// GetEnabledStreams returns only the definitions marked enabled.
	GetEnabledStreams() map[string]StreamSpec
}
