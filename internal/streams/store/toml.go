package store

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/PatrickBoulton12345/livestreamrepeater/internal/streams"
)

// config is the on-disk shape of the stream definitions file.
type config struct {
	Version int                           `toml:"version"`
	Streams map[string]streams.StreamSpec `toml:"streams"`
}

// tomlStore implements streams.Store backed by a TOML file. It only
// ever reads the file; definitions belong to the operator.
type tomlStore struct {
	configPath string
	config     *config
}

// NewTOML creates a TOML-backed definitions store.
func NewTOML(configPath string) streams.Store {
	if configPath == "" {
		configPath = "streams.toml"
	}

	return &tomlStore{
		configPath: configPath,
		config: &config{
			Version: 1,
			Streams: make(map[string]streams.StreamSpec),
		},
	}
}

// Load reads the definitions file. Unmarshals into a fresh config so
// repeated loads drop entries removed from the file.
func (s *tomlStore) Load() error {
	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		// No file yet means no streams defined
		s.config = &config{Version: 1, Streams: make(map[string]streams.StreamSpec)}
		return nil
	}

	data, err := os.ReadFile(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to read stream definitions: %w", err)
	}

	cfg := &config{}
	if unmarshalErr := toml.Unmarshal(data, cfg); unmarshalErr != nil {
		return fmt.Errorf("failed to parse stream definitions: %w", unmarshalErr)
	}

	if cfg.Streams == nil {
		cfg.Streams = make(map[string]streams.StreamSpec)
	}
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported definitions version %d, this build understands version 1", cfg.Version)
	}

	// The table key doubles as the ID so entries need not repeat it
	for id, spec := range cfg.Streams {
		if spec.ID == "" {
			spec.ID = id
			cfg.Streams[id] = spec
		}
	}

	s.config = cfg
	return nil
}

// GetStream retrieves a definition by ID.
func (s *tomlStore) GetStream(id string) (streams.StreamSpec, bool) {
	spec, exists := s.config.Streams[id]
	return spec, exists
}

// GetAllStreams returns all definitions.
func (s *tomlStore) GetAllStreams() map[string]streams.StreamSpec {
	return s.config.Streams
}

// GetEnabledStreams returns only the definitions marked enabled.
func (s *tomlStore) GetEnabledStreams() map[string]streams.StreamSpec {
	enabled := make(map[string]streams.StreamSpec)
	for id, spec := range s.config.Streams {
		if spec.Enabled {
			enabled[id] = spec
		}
	}
	return enabled
}
