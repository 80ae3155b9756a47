package streams

import "time"

// Status is the lifecycle state of a supervised stream.
type Status string

const (
	StatusRunning Status = "running"
	// StatusReconnecting is internal: external snapshots report it as
	// running with the Reconnecting flag raised, so polling clients
	// handle two states plus a boolean instead of three states.
	StatusReconnecting Status = "reconnecting"
	StatusStopped      Status = "stopped"
	StatusCompleted    Status = "completed"
	StatusError        Status = "error"
	// StatusNotFound is reserved for ids never passed to Start.
	StatusNotFound Status = "not_found"
)

// terminal reports whether no further transitions can leave the status.
func (s Status) terminal() bool {
	switch s {
	case StatusStopped, StatusCompleted, StatusError:
		return true
	}
	return false
}

// Stats is the latest progress observation for a stream.
type Stats struct {
	// Time is the elapsed encode clock, HH:MM:SS.
	Time string `json:"time"`
	// LoopCount is how many times the clip has played, derived from
	// Time and the configured clip window. 0 when no window is set.
	LoopCount int `json:"loop_count"`
}

// StreamStatus is the snapshot returned by status queries.
type StreamStatus struct {
	StreamID string `json:"stream_id"`
	Status   Status `json:"status"`

	// Reconnecting stays raised from a failure until the replacement
	// process reports progress, spanning the relaunch itself.
	Reconnecting     bool `json:"reconnecting"`
	ReconnectAttempt int  `json:"reconnect_attempt"`

	// PID of the live process, 0 when none.
	PID int `json:"pid,omitempty"`

	// StartedAt is the first launch; reconnects do not reset it.
	StartedAt time.Time `json:"started_at"`

	Stats Stats `json:"stats"`
}
