package events

// Event type constants for kelindar/event.
const (
	TypeStreamStarted uint32 = iota + 1
	TypeStreamStopped
	TypeStreamReconnecting
	TypeStreamCompleted
	TypeStreamFailed
	TypeStreamProgress
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// StreamStartedEvent is published when a stream is registered and its
// first push process is launched.
type StreamStartedEvent struct {
	StreamID  string `json:"stream_id"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for StreamStartedEvent.
func (e StreamStartedEvent) Type() uint32 { return TypeStreamStarted }

// StreamStoppedEvent is published when an operator stops a stream.
type StreamStoppedEvent struct {
	StreamID  string `json:"stream_id"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for StreamStoppedEvent.
func (e StreamStoppedEvent) Type() uint32 { return TypeStreamStopped }

// StreamReconnectingEvent is published when a push process fails and a
// relaunch has been scheduled.
type StreamReconnectingEvent struct {
	StreamID  string `json:"stream_id"`
	Attempt   int    `json:"attempt"`
	ExitCode  int    `json:"exit_code"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for StreamReconnectingEvent.
func (e StreamReconnectingEvent) Type() uint32 { return TypeStreamReconnecting }

// StreamCompletedEvent is published when a push process exits cleanly.
type StreamCompletedEvent struct {
	StreamID  string `json:"stream_id"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for StreamCompletedEvent.
func (e StreamCompletedEvent) Type() uint32 { return TypeStreamCompleted }

// StreamFailedEvent is published when a stream exhausts its reconnect
// attempts and gives up.
type StreamFailedEvent struct {
	StreamID  string `json:"stream_id"`
	Attempts  int    `json:"attempts"`
	ExitCode  int    `json:"exit_code"`
	Timestamp string `json:"timestamp"`
}

// Type returns the event type identifier for StreamFailedEvent.
func (e StreamFailedEvent) Type() uint32 { return TypeStreamFailed }

// StreamProgressEvent carries a progress observation parsed from the
// push process output.
type StreamProgressEvent struct {
	StreamID  string  `json:"stream_id"`
	Time      string  `json:"time"`
	Seconds   float64 `json:"seconds"`
	FPS       float64 `json:"fps"`
	Speed     float64 `json:"speed"`
	LoopCount int     `json:"loop_count"`
}

// Type returns the event type identifier for StreamProgressEvent.
func (e StreamProgressEvent) Type() uint32 { return TypeStreamProgress }
