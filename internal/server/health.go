package server

import (
	"net/http"
	"time"

	"github.com/desertthunder/vibemix/internal/services"
	"github.com/desertthunder/vibemix/internal/shared"
)

// HealthReport is the body of the health endpoint.
type HealthReport struct {
	Status   string                  `json:"status"`
	Services []services.HealthStatus `json:"services"`
}

// HealthHandler runs the configured probes on every request.
type HealthHandler struct {
	probes  []services.Probe
	timeout time.Duration
}

// NewHealthHandler creates a handler that bounds each probe by timeout.
func NewHealthHandler(timeout time.Duration, probes ...services.Probe) *HealthHandler {
	return &HealthHandler{probes: probes, timeout: timeout}
}

func (h *HealthHandler) Routes() []string {
	return []string{"GET /health"}
}

// ServeHTTP answers 200 when every probe passes and 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report := HealthReport{Status: "ok", Services: services.CheckHealth(r.Context(), h.timeout, h.probes...)}
	status := http.StatusOK
	for _, s := range report.Services {
		if !s.Healthy {
			report.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	body, err := shared.MarshalJSON(report, false)
	if err != nil {
		http.Error(w, "Failed to encode health report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
