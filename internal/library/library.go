// package library is the persistence and dedup gateway for generated playlists.
//
// It sits in front of the playlist store, mirrors expiring cover images to durable storage,
// and keeps a per-user read-through cache consistent with the store after every write.
package library

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibemix/internal/cache"
	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/desertthunder/vibemix/internal/storage"
	"github.com/desertthunder/vibemix/internal/validation"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

// PlaylistStore is the document store the gateway writes through.
type PlaylistStore interface {
	Insert(ctx context.Context, playlist *models.PlaylistData) (bool, error)
	Get(ctx context.Context, id string) (*models.PlaylistData, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*models.PlaylistData, error)
	UpdateMetadata(ctx context.Context, id, name, description, coverURL string) error
	UpdateCover(ctx context.Context, id, coverURL string) error
	MarkPublished(ctx context.Context, id, spotifyURL string) error
	Delete(ctx context.Context, id string) (bool, error)
}

// BackfillOpts throttles cover migration.
type BackfillOpts struct {
	RateLimit  float64 // Uploads per second (default: 2)
	NumWorkers int     // Concurrent workers (default: 3, max: 10)
}

// BackfillResult summarizes a cover migration run.
type BackfillResult struct {
	Total    int // Playlists with a non-durable cover
	Migrated int
	Failed   int
}

// Gateway saves, lists and edits playlists for a user.
type Gateway struct {
	store   PlaylistStore
	objects storage.ObjectStore
	lists   *cache.ReadThrough[[]*models.PlaylistData]
	opts    BackfillOpts
	logger  *log.Logger
}

// NewGateway creates a gateway. objects and lists may be nil, which disables cover mirroring and caching.
func NewGateway(store PlaylistStore, objects storage.ObjectStore, lists *cache.ReadThrough[[]*models.PlaylistData], opts BackfillOpts, logger *log.Logger) *Gateway {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2.0
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	return &Gateway{
		store:   store,
		objects: objects,
		lists:   lists,
		opts:    opts,
		logger:  shared.WithLogger(logger, "component", "library"),
	}
}

// Close stops the list cache.
func (g *Gateway) Close() {
	if g.lists != nil {
		g.lists.Stop()
	}
}

// Save stores playlist for userID and returns its id.
//
// A playlist whose id is already stored is left untouched and its id returned. A playlist without
// an id always gets a new one; playlists are never deduplicated by content.
func (g *Gateway) Save(ctx context.Context, playlist *models.PlaylistData, userID string) (string, error) {
	if playlist == nil {
		return "", fmt.Errorf("%w: playlist is required", shared.ErrInvalidArgument)
	}
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", shared.ErrNotAuthenticated)
	}

	p := validation.SanitizePlaylistData(playlist)
	p.UserID = userID
	if err := validation.ValidatePlaylistData(p).Err(); err != nil {
		return "", err
	}

	if p.ID != "" {
		exists, err := g.store.Exists(ctx, p.ID)
		if err != nil {
			return "", err
		}
		if exists {
			g.logger.Debug("playlist already saved", "id", p.ID)
			return p.ID, nil
		}
	} else {
		p.ID = uuid.NewString()
	}

	p.CoverImageURL = g.mirror(ctx, p.CoverImageURL)

	inserted, err := g.store.Insert(ctx, p)
	if err != nil {
		return "", err
	}
	if !inserted {
		g.logger.Debug("concurrent save resolved to existing playlist", "id", p.ID)
		return p.ID, nil
	}

	g.logger.Info("saved playlist", "id", p.ID, "user", userID, "tracks", len(p.Tracks))
	g.reconcile(ctx, userID)
	return p.ID, nil
}

// Get returns a stored playlist.
func (g *Gateway) Get(ctx context.Context, id string) (*models.PlaylistData, error) {
	return g.store.Get(ctx, id)
}

// List returns a user's playlists, newest first.
func (g *Gateway) List(ctx context.Context, userID string) ([]*models.PlaylistData, error) {
	if g.lists == nil {
		return g.store.ListByUser(ctx, userID)
	}
	return g.lists.Fetch(listKey(userID), func() ([]*models.PlaylistData, error) {
		return g.store.ListByUser(ctx, userID)
	})
}

// Delete removes a playlist. Deleting an id that is not stored is a no-op.
func (g *Gateway) Delete(ctx context.Context, id string) error {
	existing, err := g.store.Get(ctx, id)
	if errors.Is(err, shared.ErrPlaylistNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if _, err := g.store.Delete(ctx, id); err != nil {
		return err
	}
	g.logger.Info("deleted playlist", "id", id)
	g.reconcile(ctx, existing.UserID)
	return nil
}

// UpdateMetadata replaces a playlist's name, description and cover. A new cover is mirrored first.
func (g *Gateway) UpdateMetadata(ctx context.Context, id, name, description, coverURL string) error {
	existing, err := g.store.Get(ctx, id)
	if err != nil {
		return err
	}

	edited := existing.Clone()
	edited.Name, edited.Description = name, description
	if coverURL != "" {
		edited.CoverImageURL = coverURL
	}
	edited = validation.SanitizePlaylistData(edited)
	if err := validation.ValidatePlaylistData(edited).Err(); err != nil {
		return err
	}
	if edited.CoverImageURL != existing.CoverImageURL {
		edited.CoverImageURL = g.mirror(ctx, edited.CoverImageURL)
	}

	if err := g.store.UpdateMetadata(ctx, id, edited.Name, edited.Description, edited.CoverImageURL); err != nil {
		return err
	}
	g.reconcile(ctx, existing.UserID)
	return nil
}

// MarkPublished records the vendor URL of a stored playlist.
func (g *Gateway) MarkPublished(ctx context.Context, id, spotifyURL string) error {
	existing, err := g.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := g.store.MarkPublished(ctx, id, spotifyURL); err != nil {
		return err
	}
	g.reconcile(ctx, existing.UserID)
	return nil
}

// Backfill migrates a user's remaining non-durable covers to object storage.
//
// Work is rate limited and spread over a worker pool. Per-playlist failures are logged
// and counted; only failing to list the playlists is returned as an error.
func (g *Gateway) Backfill(ctx context.Context, userID string) (*BackfillResult, error) {
	if g.objects == nil {
		return nil, fmt.Errorf("%w: object storage not configured", shared.ErrServiceUnavailable)
	}

	playlists, err := g.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	pending := lo.Filter(playlists, func(p *models.PlaylistData, _ int) bool {
		return p.CoverImageURL != "" && !g.objects.IsDurable(p.CoverImageURL)
	})

	result := &BackfillResult{Total: len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(g.opts.RateLimit), 1)
	jobs := make(chan *models.PlaylistData, len(pending))
	results := make(chan error, len(pending))

	var wg sync.WaitGroup
	for range min(g.opts.NumWorkers, len(pending)) {
		wg.Add(1)
		go g.backfillWorker(ctx, &wg, limiter, jobs, results)
	}

	for _, p := range pending {
		jobs <- p
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for err := range results {
		if err != nil {
			result.Failed++
			continue
		}
		result.Migrated++
	}

	g.logger.Info("cover backfill finished", "user", userID, "migrated", result.Migrated, "failed", result.Failed)
	if result.Migrated > 0 {
		g.reconcile(ctx, userID)
	}
	return result, nil
}

func (g *Gateway) backfillWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan *models.PlaylistData,
	results chan<- error,
) {
	defer wg.Done()

	for p := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			results <- err
			continue
		}

		url, err := g.objects.UploadFromURL(ctx, p.CoverImageURL)
		if err == nil {
			err = g.store.UpdateCover(ctx, p.ID, url)
		}
		if err != nil {
			g.logger.Warn("cover backfill failed", "id", p.ID, "error", err)
		}
		results <- err
	}
}

// mirror copies a non-durable cover to object storage, keeping the original URL on failure.
func (g *Gateway) mirror(ctx context.Context, url string) string {
	if g.objects == nil || url == "" || g.objects.IsDurable(url) {
		return url
	}
	durable, err := g.objects.UploadFromURL(ctx, url)
	if err != nil {
		g.logger.Warn("cover mirror failed, keeping original url", "url", shared.Truncate(url, 60), "error", err)
		return url
	}
	return durable
}

func (g *Gateway) reconcile(ctx context.Context, userID string) {
	if g.lists == nil {
		return
	}
	err := g.lists.Reconcile(listKey(userID), func() ([]*models.PlaylistData, error) {
		return g.store.ListByUser(ctx, userID)
	})
	if err != nil {
		g.logger.Warn("cache reconcile failed", "user", userID, "error", err)
	}
}

func listKey(userID string) string {
	return "playlists:" + userID
}
