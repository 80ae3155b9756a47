package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processCPU = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "repeater",
		Subsystem: "process",
		Name:      "cpu_percent",
		Help:      "CPU usage of the push process",
	}, []string{"stream_id"})

	processMemory = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "repeater",
		Subsystem: "process",
		Name:      "memory_bytes",
		Help:      "Resident memory of the push process",
	}, []string{"stream_id"})
)

// SetProcessCPU sets the CPU usage for a stream's push process.
func SetProcessCPU(streamID string, percent float64) {
	processCPU.WithLabelValues(streamID).Set(percent)
}

// SetProcessMemory sets the resident memory for a stream's push process.
func SetProcessMemory(streamID string, bytes float64) {
	processMemory.WithLabelValues(streamID).Set(bytes)
}

// DeleteProcessMetrics removes the process gauges for a stream.
func DeleteProcessMetrics(streamID string) {
	processCPU.DeleteLabelValues(streamID)
	processMemory.DeleteLabelValues(streamID)
}
