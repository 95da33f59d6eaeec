package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/healthsync/healthsync-api/internal/observability/metrics"
	"github.com/healthsync/healthsync-api/pkg/logging"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

type healthResponse struct {
	Status     string                  `json:"status"`
	Checks     map[string]string       `json:"checks,omitempty"`
	LLMLatency metrics.LatencySnapshot `json:"llm_latency"`
}

// HealthHandler reports dependency status and a model latency summary.
type HealthHandler struct {
	checks   map[string]Check
	gatherer prometheus.Gatherer
	timeout  time.Duration
	logger   *logging.Logger
}

func NewHealthHandler(checks map[string]Check, gatherer prometheus.Gatherer, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{checks: checks, gatherer: gatherer, timeout: 2 * time.Second, logger: logger}
}

// Health handles GET /health. Any failing check turns the status into
// "degraded" with a 503.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := healthResponse{
		Status:     "ok",
		LLMLatency: metrics.SnapshotLLMLatency(h.gatherer),
	}
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > 0 {
		resp.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("health check failed", "check", name, "error", err)
			resp.Checks[name] = "error"
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
