// Package metrics provides Prometheus metrics for supervised streams
// and their push processes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	streamsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "repeater",
		Name:      "streams_active",
		Help:      "Number of streams currently supervised, including reconnecting ones",
	})

	reconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "repeater",
		Name:      "reconnects_total",
		Help:      "Total push process relaunches scheduled after failures",
	}, []string{"stream_id"})

	terminationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "repeater",
		Name:      "terminations_total",
		Help:      "Total streams finished, by outcome",
	}, []string{"stream_id", "reason"})

	progressSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "repeater",
		Name:      "progress_seconds",
		Help:      "Elapsed encode clock reported by the push process",
	}, []string{"stream_id"})

	loopCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "repeater",
		Name:      "loop_count",
		Help:      "Current play count of the looped clip",
	}, []string{"stream_id"})

	outputFPS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "repeater",
		Name:      "output_fps",
		Help:      "Current encoding FPS reported by the push process",
	}, []string{"stream_id"})

	outputSpeed = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "repeater",
		Name:      "output_speed_ratio",
		Help:      "Encoding speed relative to realtime; 1.0 keeps up with the ingest",
	}, []string{"stream_id"})
)

// IncActiveStreams records one more supervised stream.
func IncActiveStreams() {
	streamsActive.Inc()
}

// DecActiveStreams records a stream reaching a terminal state.
func DecActiveStreams() {
	streamsActive.Dec()
}

// IncReconnects counts one scheduled relaunch for a stream.
func IncReconnects(streamID string) {
	reconnectsTotal.WithLabelValues(streamID).Inc()
}

// IncTerminations counts one finished stream with its outcome:
// stopped, completed, or failed.
func IncTerminations(streamID, reason string) {
	terminationsTotal.WithLabelValues(streamID, reason).Inc()
}

// SetProgress sets the elapsed encode clock for a stream.
func SetProgress(streamID string, seconds float64) {
	progressSeconds.WithLabelValues(streamID).Set(seconds)
}

// SetLoopCount sets the current clip play count for a stream.
func SetLoopCount(streamID string, count float64) {
	loopCount.WithLabelValues(streamID).Set(count)
}

// SetOutputFPS sets the current encoding FPS for a stream.
func SetOutputFPS(streamID string, fps float64) {
	outputFPS.WithLabelValues(streamID).Set(fps)
}

// SetOutputSpeed sets the encoding speed ratio for a stream.
func SetOutputSpeed(streamID string, speed float64) {
	outputSpeed.WithLabelValues(streamID).Set(speed)
}

// DeleteStreamMetrics removes the per-stream gauges when a stream
// finishes. The counters stay; they are the historical record.
func DeleteStreamMetrics(streamID string) {
	progressSeconds.DeleteLabelValues(streamID)
	loopCount.DeleteLabelValues(streamID)
	outputFPS.DeleteLabelValues(streamID)
	outputSpeed.DeleteLabelValues(streamID)
	DeleteProcessMetrics(streamID)
}
