package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibemix/internal/cache"
	"github.com/desertthunder/vibemix/internal/generation"
	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/services"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/desertthunder/vibemix/internal/validation"
	"golang.org/x/sync/errgroup"
)

const resultCacheSize = 100

// GenerateOpts tunes a single generation.
type GenerateOpts struct {
	NoCache bool // Skip the result cache lookup; the fresh result still replaces the cached one
}

// Generator produces complete playlists from a request.
type Generator interface {
	// Generate runs the full pipeline and returns the finished playlist.
	Generate(ctx context.Context, req models.PlaylistRequest, opts GenerateOpts) (*models.PlaylistData, error)

	// GenerateStreaming runs the same pipeline and reports progress on the channel without blocking.
	GenerateStreaming(ctx context.Context, progress chan<- ProgressUpdate, req models.PlaylistRequest, opts GenerateOpts) (*models.PlaylistData, error)
}

// PlaylistEngine implements [Generator] by wiring the classifier, metadata, cover and discovery components.
//
// Each call owns its own accumulator; the only state shared between calls is the result cache.
type PlaylistEngine struct {
	classifier *generation.Classifier
	metadata   *generation.MetadataGenerator
	covers     *generation.CoverGenerator
	discovery  *generation.Engine
	vendor     services.MusicVendor
	results    *cache.ReadThrough[*models.PlaylistData]
	config     shared.GenerationConfig
	logger     *log.Logger
}

// NewPlaylistEngine creates a new PlaylistEngine with the provided services.
func NewPlaylistEngine(
	text services.TextGenerator,
	images services.ImageGenerator,
	vendor services.MusicVendor,
	config shared.GenerationConfig,
	logger *log.Logger,
) *PlaylistEngine {
	ttl := time.Duration(config.CacheMinutes) * time.Minute
	return &PlaylistEngine{
		classifier: generation.NewClassifier(text, logger),
		metadata:   generation.NewMetadataGenerator(text, logger),
		covers:     generation.NewCoverGenerator(text, images, logger),
		discovery:  generation.NewEngine(text, vendor, generation.OptionsFromConfig(config), logger),
		vendor:     vendor,
		results:    cache.New[*models.PlaylistData](ttl, resultCacheSize),
		config:     config,
		logger:     shared.WithLogger(logger, "component", "pipeline"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Generate runs the pipeline without progress reporting.
func (e *PlaylistEngine) Generate(ctx context.Context, req models.PlaylistRequest, opts GenerateOpts) (*models.PlaylistData, error) {
	return e.GenerateStreaming(ctx, nil, req, opts)
}

// GenerateStreaming validates req, then classifies the vibe, generates metadata and cover art
// concurrently, discovers tracks round by round and scores the result.
//
// The whole run is bounded by [shared.GenerationConfig.Deadline]; running out of time
// returns [shared.ErrGenerationTimeout]. A result cached for the same inputs is returned
// unless opts.NoCache is set.
func (e *PlaylistEngine) GenerateStreaming(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	req models.PlaylistRequest,
	opts GenerateOpts,
) (*models.PlaylistData, error) {
	if err := validation.ValidateRequest(req).Err(); err != nil {
		return nil, err
	}
	req.Vibe = strings.TrimSpace(req.Vibe)

	key := CacheKey(req)
	if !opts.NoCache {
		if cached, stale, ok := e.results.Get(key); ok && !stale {
			e.logger.Debug("using cached playlist", "vibe", req.Vibe)
			p := cached.Clone()
			e.sendProgress(progress, cachedUpdate(p))
			return p, nil
		}
	}

	deadline := e.config.Deadline(req.SongCount)
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	start := time.Now()
	playlist, err := e.run(runCtx, progress, req)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: no result after %s", shared.ErrGenerationTimeout, deadline)
		}
		return nil, err
	}

	e.logger.Info("playlist generated",
		"name", playlist.Name,
		"tracks", len(playlist.Tracks),
		"requested", req.SongCount,
		"score", *playlist.UniquenessScore,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	e.results.Set(key, playlist.Clone())
	return playlist, nil
}

func (e *PlaylistEngine) run(ctx context.Context, progress chan<- ProgressUpdate, req models.PlaylistRequest) (*models.PlaylistData, error) {
	total := req.SongCount

	e.sendProgress(progress, classifyUpdate(total))
	intent := e.classifier.Classify(ctx, req.Vibe)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		info  models.PlaylistInfo
		cover string
	)
	// The cover uses the mood palette so it does not wait on the metadata call.
	palette := generation.FallbackInfo(req.Emojis, req.Vibe, intent).ColorPalette

	g, gctx := errgroup.WithContext(ctx)
	e.sendProgress(progress, infoUpdate(total))
	g.Go(func() error {
		info = e.metadata.Generate(gctx, req.Emojis, req.Vibe, intent)
		e.sendProgress(progress, coverUpdate(total))
		return nil
	})
	g.Go(func() error {
		cover = e.covers.Generate(gctx, req.Emojis, req.Vibe, palette, intent)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.sendProgress(progress, searchUpdate(total, info))
	last := 0
	tracks, err := e.discovery.Discover(ctx, req, intent, info.Keywords, func(report generation.RoundReport) {
		report.Found = max(report.Found, last)
		last = report.Found
		e.sendProgress(progress, roundUpdate(report))
	})
	if err != nil {
		return nil, err
	}

	score := generation.Score(tracks, req.Vibe, req.Emojis)
	now := time.Now().UTC()
	playlist := &models.PlaylistData{
		Name:            info.Name,
		Description:     info.Description,
		ColorPalette:    info.ColorPalette,
		Keywords:        info.Keywords,
		CoverImageURL:   cover,
		Emojis:          req.Emojis,
		SongCount:       len(tracks),
		Vibe:            req.Vibe,
		Tracks:          tracks,
		UniquenessScore: &score,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	e.sendProgress(progress, completeUpdate(playlist))
	return playlist, nil
}

// Close stops the result cache.
func (e *PlaylistEngine) Close() {
	e.results.Stop()
}

// Invalidate drops the cached result for req so the next call regenerates it.
func (e *PlaylistEngine) Invalidate(req models.PlaylistRequest) bool {
	req.Vibe = strings.TrimSpace(req.Vibe)
	return e.results.Invalidate(CacheKey(req))
}

// CacheKey identifies generation inputs: emojis, song count and vibe.
func CacheKey(req models.PlaylistRequest) string {
	return shared.NormalizeKey(strings.Join(req.Emojis, ""), strconv.Itoa(req.SongCount), req.Vibe)
}
