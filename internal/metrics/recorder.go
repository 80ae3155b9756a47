package metrics

import (
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/events"
	"github.com/PatrickBoulton12345/livestreamrepeater/internal/logging"
)

// Recorder translates stream events into Prometheus metrics, keeping
// the supervisor free of any metrics dependency.
type Recorder struct {
	bus    *events.Bus
	logger logging.Logger
	unsubs []func()
}

// NewRecorder creates a recorder on the given bus.
func NewRecorder(bus *events.Bus) *Recorder {
	return &Recorder{
		bus:    bus,
		logger: logging.GetLogger("metrics"),
	}
}

// Start subscribes to stream events.
func (r *Recorder) Start() {
	r.unsubs = append(r.unsubs,
		r.bus.Subscribe(func(e events.StreamStartedEvent) {
			IncActiveStreams()
		}),
		r.bus.Subscribe(func(e events.StreamReconnectingEvent) {
			IncReconnects(e.StreamID)
		}),
		r.bus.Subscribe(func(e events.StreamStoppedEvent) {
			DecActiveStreams()
			IncTerminations(e.StreamID, "stopped")
			DeleteStreamMetrics(e.StreamID)
		}),
		r.bus.Subscribe(func(e events.StreamCompletedEvent) {
			DecActiveStreams()
			IncTerminations(e.StreamID, "completed")
			DeleteStreamMetrics(e.StreamID)
		}),
		r.bus.Subscribe(func(e events.StreamFailedEvent) {
			DecActiveStreams()
			IncTerminations(e.StreamID, "failed")
			DeleteStreamMetrics(e.StreamID)
		}),
		r.bus.Subscribe(func(e events.StreamProgressEvent) {
			SetProgress(e.StreamID, e.Seconds)
			SetLoopCount(e.StreamID, float64(e.LoopCount))
			// FPS and speed are absent from some stats lines; zero
			// means not reported, not zero speed
			if e.FPS > 0 {
				SetOutputFPS(e.StreamID, e.FPS)
			}
			if e.Speed > 0 {
				SetOutputSpeed(e.StreamID, e.Speed)
			}
		}),
	)
	r.logger.Debug("Metrics recorder started")
}

// Stop unsubscribes from the bus.
func (r *Recorder) Stop() {
	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil
}
