package streams

// StreamSpec is one stream definition from the definitions file:
// identity and source plus the push configuration. Specs are plain
// values and comparable, which the reload diff relies on.
type StreamSpec struct {
	// ID is the unique stream identifier; the definitions table key
	// doubles as the ID when the field is omitted.
	ID string `toml:"id" json:"id"`

	// Name is a human-readable label, defaulting to the ID.
	Name string `toml:"name" json:"name"`

	// Source is the media file or URL handed to the push process.
	Source string `toml:"source" json:"source"`

	// Enabled streams are started by the run command; disabled ones
	// stay defined but dormant.
	Enabled bool `toml:"enabled" json:"enabled"`

	// Push holds the ingest and encoding configuration.
	Push StreamConfig `toml:"push" json:"push"`
}

// DisplayName returns Name, falling back to the ID.
func (s StreamSpec) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}
