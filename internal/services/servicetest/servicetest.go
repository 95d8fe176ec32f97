// Package servicetest provides in-memory implementations of the service interfaces for tests.
package servicetest

import (
	"context"
	"strings"
	"sync"

	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/services"
)

// TextGenerator answers completions with a scripted function and records every prompt.
type TextGenerator struct {
	mu      sync.Mutex
	Respond func(req services.CompletionRequest) (string, error)
	Prompts []string
}

// Static returns a generator that always answers with text.
func Static(text string) *TextGenerator {
	return &TextGenerator{Respond: func(services.CompletionRequest) (string, error) { return text, nil }}
}

// Failing returns a generator that always fails with err.
func Failing(err error) *TextGenerator {
	return &TextGenerator{Respond: func(services.CompletionRequest) (string, error) { return "", err }}
}

func (g *TextGenerator) Complete(ctx context.Context, req services.CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	g.Prompts = append(g.Prompts, req.Prompt)
	g.mu.Unlock()
	return g.Respond(req)
}

// Calls returns the number of completions requested.
func (g *TextGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Prompts)
}

// ImageGenerator returns a fixed URL or error.
type ImageGenerator struct {
	mu      sync.Mutex
	URL     string
	Err     error
	Prompts []string
}

func (g *ImageGenerator) GenerateImage(ctx context.Context, req services.ImageRequest) (string, error) {
	g.mu.Lock()
	g.Prompts = append(g.Prompts, req.Prompt)
	g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	return g.URL, nil
}

// Vendor is an in-memory music catalog.
//
// Search matches tracks whose name or primary artist appears in the query, unless SearchFunc is set.
type Vendor struct {
	mu sync.Mutex

	Catalog         []models.Track
	Recommended     []models.Track
	UserID          string
	UserErr         error
	SearchFunc      func(query string, limit, offset int) ([]models.Track, error)
	RecommendErr    error
	Queries         []string
	Seeds           []services.RecommendationSeeds
	CreatedPlaylist string
	AddedTracks     []string
	Image           []byte
	PublishErr      error
}

func (v *Vendor) Search(ctx context.Context, query string, limit, offset int) ([]models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.Queries = append(v.Queries, query)
	search := v.SearchFunc
	v.mu.Unlock()

	if search != nil {
		return search(query, limit, offset)
	}

	q := strings.ToLower(query)
	var matches []models.Track
	for _, t := range v.Catalog {
		if strings.Contains(q, strings.ToLower(t.Name)) || strings.Contains(q, strings.ToLower(t.PrimaryArtist().Name)) {
			matches = append(matches, t)
		}
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}

func (v *Vendor) Recommendations(ctx context.Context, seeds services.RecommendationSeeds, limit int) ([]models.Track, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Seeds = append(v.Seeds, seeds)
	if v.RecommendErr != nil {
		return nil, v.RecommendErr
	}
	if len(v.Recommended) > limit {
		return v.Recommended[:limit], nil
	}
	return v.Recommended, nil
}

func (v *Vendor) CurrentUserID(ctx context.Context) (string, error) {
	if v.UserErr != nil {
		return "", v.UserErr
	}
	if v.UserID == "" {
		return "listener", nil
	}
	return v.UserID, nil
}

func (v *Vendor) CreatePlaylist(ctx context.Context, name, description string, public bool) (string, string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.PublishErr != nil {
		return "", "", v.PublishErr
	}
	v.CreatedPlaylist = name
	return "vendor-" + strings.ReplaceAll(name, " ", "-"), "https://open.spotify.com/playlist/vendor", nil
}

func (v *Vendor) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.AddedTracks = append(v.AddedTracks, trackIDs...)
	return nil
}

func (v *Vendor) SetPlaylistImage(ctx context.Context, playlistID string, jpeg []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Image = jpeg
	return nil
}

// QueryCount returns how many searches ran.
func (v *Vendor) QueryCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.Queries)
}
