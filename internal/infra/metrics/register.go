package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	pending      []prometheus.Collector
)

// register queues collectors from each file's init. Nothing is exported to
// Prometheus until MustRegister runs.
func register(cs ...prometheus.Collector) {
	pending = append(pending, cs...)
}

// MustRegister hands the queued collectors to the default registry. Calls
// after the first are ignored, so tests and main may both call it.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(pending...)
	})
}

// norm keeps label values to one spelling.
func norm(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
