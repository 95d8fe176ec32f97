package services

import (
	"context"
	"time"

	"github.com/desertthunder/vibemix/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Probe checks that one external dependency is reachable and authorized.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthStatus is the outcome of one probe.
type HealthStatus struct {
	Service string        `json:"service"`
	Healthy bool          `json:"healthy"`
	Message string        `json:"message"`
	Latency time.Duration `json:"latency"`
}

// SpotifyProbe checks the vendor session by fetching the current user.
func SpotifyProbe(vendor MusicVendor) Probe {
	return Probe{Name: "spotify", Check: func(ctx context.Context) error {
		_, err := vendor.CurrentUserID(ctx)
		return err
	}}
}

// OpenAIProbe checks the text and image API key.
func OpenAIProbe(client *OpenAIClient) Probe {
	return Probe{Name: "openai", Check: client.Ping}
}

// CheckHealth runs every probe concurrently, each bounded by timeout, and reports results in probe order.
func CheckHealth(ctx context.Context, timeout time.Duration, probes ...Probe) []HealthStatus {
	results := make([]HealthStatus, len(probes))

	var g errgroup.Group
	for i, p := range probes {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := time.Now()
			err := p.Check(probeCtx)
			status := HealthStatus{Service: p.Name, Healthy: err == nil, Message: "ok", Latency: time.Since(start)}
			if err != nil {
				status.Message = shared.UserMessage(err)
			}
			results[i] = status
			return nil
		})
	}
	_ = g.Wait()

	return results
}
