package generation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/services"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/samber/lo"
	"gopkg.in/matryer/try.v1"
)

const (
	maxBadGatewayRetries = 3
	maxSkippedArtists    = 20
	maxRecommendations   = 100
)

// Options tunes the discovery engine.
type Options struct {
	MaxRounds       int
	OverRequest     int
	SearchLimit     int
	MaxSearchOffset int
	RetryUnit       time.Duration
	MainstreamShare float64
	Classifier      MainstreamClassifier
}

// DefaultOptions mirrors the defaults of the embedded configuration.
func DefaultOptions() Options {
	return Options{
		MaxRounds:       5,
		OverRequest:     3,
		SearchLimit:     5,
		MaxSearchOffset: 4,
		RetryUnit:       2 * time.Second,
		MainstreamShare: defaultMainstreamRate,
		Classifier:      HeuristicClassifier{},
	}
}

// OptionsFromConfig overlays the non-zero generation settings on [DefaultOptions].
func OptionsFromConfig(cfg shared.GenerationConfig) Options {
	opts := DefaultOptions()
	if cfg.MaxRounds > 0 {
		opts.MaxRounds = cfg.MaxRounds
	}
	if cfg.OverRequest > 0 {
		opts.OverRequest = cfg.OverRequest
	}
	if cfg.SearchLimit > 0 {
		opts.SearchLimit = cfg.SearchLimit
	}
	if cfg.MaxSearchOffset >= 0 {
		opts.MaxSearchOffset = cfg.MaxSearchOffset
	}
	if cfg.RetryUnitMillis > 0 {
		opts.RetryUnit = time.Duration(cfg.RetryUnitMillis) * time.Millisecond
	}
	if cfg.MainstreamShare > 0 {
		opts.MainstreamShare = cfg.MainstreamShare
	}
	return opts
}

// RoundReport describes the accumulator after a discovery round.
type RoundReport struct {
	Round     int
	Found     int
	Total     int
	Augmented bool
	Tracks    []models.Track
}

// Engine turns suggestions from the text generator into vendor tracks.
type Engine struct {
	text   services.TextGenerator
	vendor services.MusicVendor
	opts   Options
	logger *log.Logger
}

func NewEngine(text services.TextGenerator, vendor services.MusicVendor, opts Options, logger *log.Logger) *Engine {
	if opts.Classifier == nil {
		opts.Classifier = HeuristicClassifier{}
	}
	opts.MaxSearchOffset = max(opts.MaxSearchOffset, 0)
	return &Engine{text: text, vendor: vendor, opts: opts, logger: shared.WithLogger(logger, "component", "discovery")}
}

// run is the per-generation accumulator.
type run struct {
	target  int
	gate    *Gate
	tracks  []models.Track
	tried   map[string]bool
	worst   error
	skipped []string
}

func (r *run) full() bool { return len(r.tracks) >= r.target }

func (r *run) admit(t models.Track) bool {
	if r.full() || !r.gate.Admit(t) {
		return false
	}
	r.tracks = append(r.tracks, t)
	r.skipped = append(r.skipped, t.PrimaryArtist().Name)
	return true
}

// report snapshots the accumulator; the tracks are copied so receivers may keep them.
func (r *run) report(round int, augmented bool) RoundReport {
	return RoundReport{
		Round:     round,
		Found:     len(r.tracks),
		Total:     r.target,
		Augmented: augmented,
		Tracks:    slices.Clone(r.tracks),
	}
}

// record keeps the most severe vendor error seen.
func (r *run) record(err error) {
	if severity(err) > severity(r.worst) {
		r.worst = err
	}
}

// Discover collects up to req.SongCount distinct tracks within the diversity caps.
//
// A failed candidate never aborts the run. When nothing is found the most severe vendor error
// seen is returned, otherwise [shared.ErrNoTracksFound]. On cancellation the tracks found so far
// are returned with the context error.
func (e *Engine) Discover(ctx context.Context, req models.PlaylistRequest, intent models.Intent, keywords []string, onRound func(RoundReport)) ([]models.Track, error) {
	if _, err := e.vendor.CurrentUserID(ctx); err != nil {
		return nil, probeError(err)
	}

	token := NewDiversityToken(req)
	r := &run{
		target: req.SongCount,
		gate:   NewGate(req.SongCount, e.opts.MainstreamShare, e.opts.Classifier),
		tried:  make(map[string]bool),
	}

	round := 0
	for ; round < e.opts.MaxRounds && !r.full(); round++ {
		if err := ctx.Err(); err != nil {
			return r.tracks, err
		}

		prompt := suggestionPrompt(req, intent, keywords, token, round, req.SongCount*e.opts.OverRequest, lastN(r.skipped, maxSkippedArtists))
		out, err := e.text.Complete(ctx, services.CompletionRequest{System: suggestionSystem, Prompt: prompt, MaxTokens: 1500})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return r.tracks, ctxErr
			}
			e.logger.Warn("suggestion request failed", "round", round+1, "error", err)
		}

		suggestions := ParseSuggestions(out)
		e.logger.Debug("parsed suggestions", "round", round+1, "count", len(suggestions))
		for _, s := range suggestions {
			if r.full() || ctx.Err() != nil {
				break
			}
			e.resolve(ctx, r, s, intent)
		}
		notify(onRound, r.report(round+1, false))
	}

	if !r.full() && intent == models.Generic && ctx.Err() == nil {
		e.augment(ctx, r, req, keywords)
		notify(onRound, r.report(round+1, true))
	}
	if err := ctx.Err(); err != nil {
		return r.tracks, err
	}

	ordered := DiversifyWithShare(r.tracks, req.SongCount, e.opts.MainstreamShare, e.opts.Classifier)
	if len(ordered) == 0 {
		if r.worst != nil {
			return nil, r.worst
		}
		return nil, fmt.Errorf("%w: %q after %d rounds", shared.ErrNoTracksFound, req.Vibe, round)
	}
	return ordered, nil
}

// resolve searches for one suggestion and admits the first acceptable result.
func (e *Engine) resolve(ctx context.Context, r *run, s Suggestion, intent models.Intent) {
	if r.tried[s.Key()] {
		return
	}
	r.tried[s.Key()] = true

	for _, query := range s.queries(intent) {
		tracks, err := e.search(ctx, query)
		if err != nil {
			r.record(err)
			e.logger.Warn("search failed", "query", query, "error", err)
			return
		}
		for _, t := range tracks {
			if r.admit(t) {
				return
			}
		}
	}
}

// augment fills a short generic playlist from keyword searches and seeded recommendations.
func (e *Engine) augment(ctx context.Context, r *run, req models.PlaylistRequest, keywords []string) {
	for _, query := range KeywordQueries(req.Vibe, keywords) {
		if r.full() || ctx.Err() != nil {
			return
		}
		tracks, err := e.search(ctx, query)
		if err != nil {
			r.record(err)
			e.logger.Warn("keyword search failed", "query", query, "error", err)
			continue
		}
		lo.ForEach(tracks, func(t models.Track, _ int) { r.admit(t) })
	}

	genres := SeedGenres(req.Emojis)
	if r.full() || len(genres) == 0 || ctx.Err() != nil {
		return
	}
	seeds := services.RecommendationSeeds{Genres: genres, Targets: TargetsForVibe(req.Vibe)}
	tracks, err := e.vendor.Recommendations(ctx, seeds, min(maxRecommendations, (r.target-len(r.tracks))*e.opts.OverRequest))
	if err != nil {
		r.record(err)
		e.logger.Warn("recommendations failed", "genres", genres, "error", err)
		return
	}
	lo.ForEach(tracks, func(t models.Track, _ int) { r.admit(t) })
}

// search retries vendor 502s with a linear pause of attempt × RetryUnit.
func (e *Engine) search(ctx context.Context, query string) ([]models.Track, error) {
	offset := rand.IntN(e.opts.MaxSearchOffset + 1)

	var tracks []models.Track
	err := try.Do(func(attempt int) (bool, error) {
		if attempt > 1 {
			if err := sleep(ctx, time.Duration(attempt-1)*e.opts.RetryUnit); err != nil {
				return false, err
			}
		}
		var err error
		tracks, err = e.vendor.Search(ctx, query, e.opts.SearchLimit, offset)
		return attempt <= maxBadGatewayRetries && isBadGateway(err), err
	})
	return tracks, err
}

func isBadGateway(err error) bool {
	var verr *shared.VendorError
	return errors.As(err, &verr) && verr.Status == 502
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// severity ranks vendor errors: auth above rate limiting above transient failures.
func severity(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, shared.ErrVendorAuth), errors.Is(err, shared.ErrSessionExpired),
		errors.Is(err, shared.ErrNotAuthenticated), errors.Is(err, shared.ErrVendorPermission):
		return 3
	case errors.Is(err, shared.ErrVendorRateLimit):
		return 2
	case errors.Is(err, shared.ErrVendorTransient), errors.Is(err, shared.ErrNetwork):
		return 1
	default:
		return 0
	}
}

// probeError keeps auth failures recognizable and reports anything else as an unavailable service.
func probeError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || severity(err) == 3 {
		return err
	}
	return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
}

func notify(onRound func(RoundReport), report RoundReport) {
	if onRound != nil {
		onRound(report)
	}
}

func lastN(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
