package store

import (
	"os"
	"path/filepath"
	"testing"
)

// setupTestStore creates a store against a file in a temp dir.
func setupTestStore(t *testing.T) (*tomlStore, string) {
	t.Helper()

	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test_streams.toml")

	s := NewTOML(testFile).(*tomlStore)
	return s, testFile
}

func writeDefinitions(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing definitions file: %v", err)
	}
}

const sampleDefinitions = `version = 1

[streams.intro]
name = "Intro Loop"
source = "/media/intro.mp4"
enabled = true

[streams.intro.push]
loop = true
resolution = "720p"
rtmp_url = "rtmp://ingest.example.com/live"
stream_key = "abc123"

[streams.backup]
id = "backup"
name = "Backup Feed"
source = "/media/backup.mp4"
enabled = false

[streams.backup.push]
rtmp_url = "rtmp://backup.example.com/live"
`

func TestNewTOML(t *testing.T) {
	s := NewTOML("").(*tomlStore)
	if s.configPath != "streams.toml" {
		t.Errorf("expected default path 'streams.toml', got %s", s.configPath)
	}

	s = NewTOML("/custom/path.toml").(*tomlStore)
	if s.configPath != "/custom/path.toml" {
		t.Errorf("expected custom path '/custom/path.toml', got %s", s.configPath)
	}

	if s.config == nil {
		t.Fatal("config should be initialized")
	}
	if s.config.Version != 1 {
		t.Errorf("expected version 1, got %d", s.config.Version)
	}
	if s.config.Streams == nil {
		t.Error("streams map should be initialized")
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	s, _ := setupTestStore(t)

	if err := s.Load(); err != nil {
		t.Errorf("Load should not error on non-existent file, got: %v", err)
	}
	if len(s.GetAllStreams()) != 0 {
		t.Errorf("expected no streams, got %d", len(s.GetAllStreams()))
	}
}

func TestLoadDefinitions(t *testing.T) {
	s, testFile := setupTestStore(t)
	writeDefinitions(t, testFile, sampleDefinitions)

	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	intro, ok := s.GetStream("intro")
	if !ok {
		t.Fatal("stream 'intro' not found")
	}
	// The table key fills the omitted ID field
	if intro.ID != "intro" {
		t.Errorf("expected id 'intro' from table key, got %q", intro.ID)
	}
	if intro.Name != "Intro Loop" {
		t.Errorf("unexpected name %q", intro.Name)
	}
	if !intro.Enabled {
		t.Error("intro should be enabled")
	}
	if !intro.Push.Loop {
		t.Error("intro push.loop should be true")
	}
	if intro.Push.Resolution != "720p" {
		t.Errorf("unexpected resolution %q", intro.Push.Resolution)
	}
	if intro.Push.RTMPURL != "rtmp://ingest.example.com/live" {
		t.Errorf("unexpected rtmp url %q", intro.Push.RTMPURL)
	}
	if intro.Push.StreamKey != "abc123" {
		t.Errorf("unexpected stream key %q", intro.Push.StreamKey)
	}

	if _, ok := s.GetStream("missing"); ok {
		t.Error("GetStream returned a stream for an unknown id")
	}
}

func TestGetEnabledStreams(t *testing.T) {
	s, testFile := setupTestStore(t)
	writeDefinitions(t, testFile, sampleDefinitions)

	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	enabled := s.GetEnabledStreams()
	if len(enabled) != 1 {
		t.Fatalf("expected 1 enabled stream, got %d", len(enabled))
	}
	if _, ok := enabled["intro"]; !ok {
		t.Error("expected 'intro' in enabled streams")
	}
}

func TestReloadDropsRemovedStreams(t *testing.T) {
	s, testFile := setupTestStore(t)
	writeDefinitions(t, testFile, sampleDefinitions)
	if err := s.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(s.GetAllStreams()) != 2 {
		t.Fatalf("expected 2 streams, got %d", len(s.GetAllStreams()))
	}

	writeDefinitions(t, testFile, `version = 1

[streams.intro]
source = "/media/intro.mp4"
enabled = true

[streams.intro.push]
rtmp_url = "rtmp://ingest.example.com/live"
`)
	if err := s.Load(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	if len(s.GetAllStreams()) != 1 {
		t.Errorf("expected 1 stream after reload, got %d", len(s.GetAllStreams()))
	}
	if _, ok := s.GetStream("backup"); ok {
		t.Error("removed stream 'backup' survived the reload")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	s, testFile := setupTestStore(t)
	writeDefinitions(t, testFile, "version = [broken")

	if err := s.Load(); err == nil {
		t.Error("expected an error for malformed TOML")
	}
}

func TestLoadUnsupportedVersion(t *testing.T) {
	s, testFile := setupTestStore(t)
	writeDefinitions(t, testFile, `version = 2

[streams.intro]
source = "/media/intro.mp4"
`)

	if err := s.Load(); err == nil {
		t.Error("expected an error for a definitions version from the future")
	}
}
