package observability

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// Collector keeps process-wide counters. Exposed in Prometheus text format
// by its Handler.
type Collector struct {
	requests  uint64
	errors    uint64
	started   uint64
	submitted uint64
	expired   uint64
	decisions uint64
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) IncRequests() { atomic.AddUint64(&c.requests, 1) }
func (c *Collector) IncErrors()   { atomic.AddUint64(&c.errors, 1) }

func (c *Collector) IncIntakeStarted() {
	if c != nil {
		atomic.AddUint64(&c.started, 1)
	}
}

func (c *Collector) IncIntakeSubmitted() {
	if c != nil {
		atomic.AddUint64(&c.submitted, 1)
	}
}

func (c *Collector) IncIntakeExpired() {
	if c != nil {
		atomic.AddUint64(&c.expired, 1)
	}
}

func (c *Collector) IncDecisions() {
	if c != nil {
		atomic.AddUint64(&c.decisions, 1)
	}
}

type MetricsHandler struct {
	collector *Collector
}

func NewMetricsHandler(collector *Collector) *MetricsHandler {
	return &MetricsHandler{collector: collector}
}

func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	c := h.collector
	if c == nil {
		c = &Collector{}
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	writeCounter(w, "applybot_requests_total", "Total number of HTTP requests.", atomic.LoadUint64(&c.requests))
	writeCounter(w, "applybot_errors_total", "Total number of 5xx HTTP responses.", atomic.LoadUint64(&c.errors))
	writeCounter(w, "applybot_intakes_started_total", "Total number of intake sessions started.", atomic.LoadUint64(&c.started))
	writeCounter(w, "applybot_applications_submitted_total", "Total number of completed applications.", atomic.LoadUint64(&c.submitted))
	writeCounter(w, "applybot_intakes_expired_total", "Total number of sessions evicted by the expiry sweep.", atomic.LoadUint64(&c.expired))
	writeCounter(w, "applybot_decisions_total", "Total number of committed review decisions.", atomic.LoadUint64(&c.decisions))
}

func writeCounter(w http.ResponseWriter, name, help string, value uint64) {
	_, _ = fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	_, _ = fmt.Fprintf(w, "# TYPE %s counter\n", name)
	_, _ = fmt.Fprintf(w, "%s %d\n", name, value)
}
