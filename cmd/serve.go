package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/vibemix/internal/server"
	"github.com/desertthunder/vibemix/internal/services"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/urfave/cli/v3"
)

const healthTimeout = 10 * time.Second

// Serve hosts durable covers, the health endpoint and, when Spotify is configured, the OAuth
// callback until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.Logging(r.logger))

	store, err := r.coverStore()
	if err != nil {
		return err
	}
	router.Handler(server.NewCoverHandler(store))
	router.Handler(server.NewHealthHandler(healthTimeout, r.healthProbes()...))

	if session, err := r.spotifySession(); err != nil {
		r.logger.Warn("OAuth callback disabled", "error", err)
	} else {
		state, err := shared.GenerateState()
		if err != nil {
			return fmt.Errorf("failed to generate state token: %w", err)
		}
		oauthHandler := server.NewOAuthHandler(services.SpotifyOAuthConfig(r.config.Credentials.Spotify), state, session, r.logger)
		router.Handler(oauthHandler)
		r.writePlain("→ Sign in to Spotify: %s\n", oauthHandler.AuthCodeURL())
	}

	r.writePlain("→ Serving covers from %s at %s\n", store.Dir(), store.PublicURL(""))
	return server.New(r.config.Server.Addr(), router, r.logger).Run(ctx)
}

// Health probes Spotify and OpenAI and fails when either is unreachable.
func (r *Runner) Health(ctx context.Context, cmd *cli.Command) error {
	statuses := services.CheckHealth(ctx, healthTimeout, r.healthProbes()...)

	healthy := true
	for _, s := range statuses {
		healthy = healthy && s.Healthy
	}

	if cmd.Bool("json") {
		status := "ok"
		if !healthy {
			status = "degraded"
		}
		if err := r.writeJSON(server.HealthReport{Status: status, Services: statuses}, true); err != nil {
			return err
		}
	} else {
		for _, s := range statuses {
			mark := "✓"
			if !s.Healthy {
				mark = "✗"
			}
			r.writePlain("%s %-8s %-40s %s\n", mark, s.Service, s.Message, s.Latency.Round(time.Millisecond))
		}
	}

	if !healthy {
		return fmt.Errorf("%w: one or more services are unhealthy", shared.ErrServiceUnavailable)
	}
	return nil
}

// healthProbes returns a probe per external service. A service that cannot be built from
// configuration gets a probe that reports why.
func (r *Runner) healthProbes() []services.Probe {
	probes := make([]services.Probe, 0, 2)

	if vendor, err := r.musicVendor(); err != nil {
		probes = append(probes, unavailableProbe("spotify", err))
	} else {
		probes = append(probes, services.SpotifyProbe(vendor))
	}

	if _, _, err := r.generators(); err != nil {
		probes = append(probes, unavailableProbe("openai", err))
	} else if r.openai != nil {
		probes = append(probes, services.OpenAIProbe(r.openai))
	}
	return probes
}

func unavailableProbe(name string, err error) services.Probe {
	return services.Probe{Name: name, Check: func(context.Context) error { return err }}
}
