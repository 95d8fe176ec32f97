// package services defines the external API boundaries used by generation
//
// Text completion, image generation (OpenAI) and the music vendor (Spotify)
package services

import (
	"context"

	"github.com/desertthunder/vibemix/internal/models"
)

// TextGenerator produces a completion for a single prompt.
type TextGenerator interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ImageGenerator returns the URL of an image rendered from a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req ImageRequest) (string, error)
}

// MusicVendor is the subset of the streaming service used to discover tracks and publish playlists.
type MusicVendor interface {
	// Search returns up to limit tracks for query starting at offset.
	Search(ctx context.Context, query string, limit, offset int) ([]models.Track, error)

	// Recommendations returns tracks seeded by genres and tuned by audio feature targets.
	Recommendations(ctx context.Context, seeds RecommendationSeeds, limit int) ([]models.Track, error)

	// CurrentUserID probes the session and returns the authenticated user's id.
	CurrentUserID(ctx context.Context) (string, error)

	// CreatePlaylist creates an empty playlist and returns its id and public URL.
	CreatePlaylist(ctx context.Context, name, description string, public bool) (id, url string, err error)

	// AddTracks appends track ids to a playlist.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// SetPlaylistImage uploads a JPEG cover.
	SetPlaylistImage(ctx context.Context, playlistID string, jpeg []byte) error
}

// CompletionRequest is a single-turn text generation call. A nil Temperature uses the client's
// configured creativity.
type CompletionRequest struct {
	Prompt      string
	System      string
	Temperature *float64
	MaxTokens   int
}

// Temperature returns t for [CompletionRequest.Temperature]; zero is a valid setting.
func Temperature(t float64) *float64 {
	return &t
}

// ImageRequest is a single image generation call. Empty fields fall back to the client defaults.
type ImageRequest struct {
	Prompt  string
	Size    string
	Quality string
	Style   string
}

// AudioTargets are recommendation tuning targets; nil fields are not sent.
type AudioTargets struct {
	Energy       *float64
	Danceability *float64
	Valence      *float64
	Acousticness *float64
	Tempo        *float64
}

// IsZero reports whether no target is set.
func (a AudioTargets) IsZero() bool {
	return a.Energy == nil && a.Danceability == nil && a.Valence == nil && a.Acousticness == nil && a.Tempo == nil
}

// RecommendationSeeds seed a recommendation request.
type RecommendationSeeds struct {
	Genres  []string
	Targets AudioTargets
}
