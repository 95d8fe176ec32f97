package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BatchOpts contains configuration for generating several playlists.
type BatchOpts struct {
	NumWorkers int     // Concurrent generations (default: 2, max: 5)
	RateLimit  float64 // Generations started per second (default: 1)
	NoCache    bool    // Bypass the result cache for every request
}

// BatchItem is the outcome of one request in a batch.
type BatchItem struct {
	Index    int
	Request  models.PlaylistRequest
	Playlist *models.PlaylistData
	Error    error
}

// BatchResult summarizes a batch run. Items keep the order of the requests.
type BatchResult struct {
	Total     int
	Succeeded int
	Failed    int
	Items     []BatchItem
}

// Playlists returns the successful playlists in request order.
func (r *BatchResult) Playlists() []*models.PlaylistData {
	playlists := make([]*models.PlaylistData, 0, r.Succeeded)
	for _, item := range r.Items {
		if item.Playlist != nil {
			playlists = append(playlists, item.Playlist)
		}
	}
	return playlists
}

// GenerateMany generates several playlists concurrently with rate limiting and progress tracking.
//
// Failures are recorded per item and never cancel the rest of the batch. Cancelling ctx stops
// starting new generations; requests that never started are marked with the context error.
func (e *PlaylistEngine) GenerateMany(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	requests []models.PlaylistRequest,
	opts BatchOpts,
) (*BatchResult, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: no playlists requested", shared.ErrMissingArgument)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 2
	}
	if opts.NumWorkers > 5 {
		opts.NumWorkers = 5
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1.0
	}

	result := &BatchResult{
		Total: len(requests),
		Items: make([]BatchItem, len(requests)),
	}
	for i, req := range requests {
		result.Items[i] = BatchItem{Index: i, Request: req}
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	var (
		mu        sync.Mutex
		completed int
		g         errgroup.Group
	)
	g.SetLimit(opts.NumWorkers)

	finish := func(item BatchItem) {
		mu.Lock()
		defer mu.Unlock()
		result.Items[item.Index] = item
		completed++
		if item.Error != nil {
			result.Failed++
			e.sendProgress(progress, batchFailedUpdate(completed, result.Total, item))
			return
		}
		result.Succeeded++
		e.sendProgress(progress, batchCompletedUpdate(completed, result.Total, item))
	}

	for i, req := range requests {
		if err := limiter.Wait(ctx); err != nil {
			for _, rest := range result.Items[i:] {
				rest.Error = err
				finish(rest)
			}
			break
		}

		g.Go(func() error {
			item := BatchItem{Index: i, Request: req}
			item.Playlist, item.Error = e.Generate(ctx, req, GenerateOpts{NoCache: opts.NoCache})
			if item.Error != nil {
				e.logger.Warn("batch generation failed", "vibe", req.Vibe, "error", item.Error)
			}
			finish(item)
			return nil
		})
	}
	g.Wait()

	return result, nil
}
