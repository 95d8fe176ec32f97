// Spotify implementation of [MusicVendor]
//
// Built on github.com/zmb3/spotify/v2; every vendor error is normalized into [shared.VendorError].
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
)

const (
	spotifyVendor   = "spotify"
	maxSearchLimit  = 50
	maxRecommended  = 100
	maxTracksPerAdd = 100
)

var httpStatusPattern = regexp.MustCompile(`HTTP (\d{3})`)

// SpotifyScopes are the OAuth scopes needed to search, create playlists and upload covers.
var SpotifyScopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopeImageUpload,
}

// SpotifyService implements [MusicVendor] over an authenticated HTTP client.
type SpotifyService struct {
	client *spotify.Client
	logger *log.Logger
	userID string
}

// NewSpotifyService wraps httpClient, which must attach the OAuth bearer token.
//
// baseURL overrides the API root and is only set in tests. Client-side 429 retries are disabled so rate
// limits surface as errors.
func NewSpotifyService(httpClient *http.Client, baseURL string, logger *log.Logger) *SpotifyService {
	opts := []spotify.ClientOption{spotify.WithRetry(false)}
	if baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &SpotifyService{
		client: spotify.New(httpClient, opts...),
		logger: shared.WithLogger(logger, "service", spotifyVendor),
	}
}

// Search runs a track search.
func (s *SpotifyService) Search(ctx context.Context, query string, limit, offset int) ([]models.Track, error) {
	limit = min(max(limit, 1), maxSearchLimit)
	result, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit), spotify.Offset(max(offset, 0)))
	if err != nil {
		return nil, normalizeError(err)
	}
	if result == nil || result.Tracks == nil {
		return nil, nil
	}

	tracks := make([]models.Track, 0, len(result.Tracks.Tracks))
	for _, ft := range result.Tracks.Tracks {
		if t, ok := fromFullTrack(ft); ok {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

// Recommendations asks for tracks near the seed genres and audio targets.
func (s *SpotifyService) Recommendations(ctx context.Context, seeds RecommendationSeeds, limit int) ([]models.Track, error) {
	if len(seeds.Genres) == 0 {
		return nil, fmt.Errorf("%w: at least one seed genre is required", shared.ErrInvalidArgument)
	}
	genres := seeds.Genres
	if len(genres) > 5 {
		genres = genres[:5]
	}

	attrs := trackAttributes(seeds.Targets)
	limit = min(max(limit, 1), maxRecommended)
	recs, err := s.client.GetRecommendations(ctx, spotify.Seeds{Genres: genres}, attrs, spotify.Limit(limit))
	if err != nil {
		return nil, normalizeError(err)
	}
	if recs == nil {
		return nil, nil
	}

	tracks := make([]models.Track, 0, len(recs.Tracks))
	for _, st := range recs.Tracks {
		if t, ok := fromSimpleTrack(st); ok {
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

// CurrentUserID returns the authenticated user's id, caching it for later playlist creation.
func (s *SpotifyService) CurrentUserID(ctx context.Context) (string, error) {
	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		return "", normalizeError(err)
	}
	if user == nil || user.ID == "" {
		return "", fmt.Errorf("%w: profile has no user id", shared.ErrVendorResponse)
	}
	s.userID = user.ID
	return user.ID, nil
}

// CreatePlaylist creates a non-collaborative playlist for the current user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string, public bool) (string, string, error) {
	userID := s.userID
	if userID == "" {
		id, err := s.CurrentUserID(ctx)
		if err != nil {
			return "", "", err
		}
		userID = id
	}

	playlist, err := s.client.CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return "", "", normalizeError(err)
	}
	if playlist == nil || playlist.ID == "" {
		return "", "", fmt.Errorf("%w: created playlist has no id", shared.ErrVendorResponse)
	}

	url := playlist.ExternalURLs["spotify"]
	if url == "" {
		url = "https://open.spotify.com/playlist/" + string(playlist.ID)
	}
	return string(playlist.ID), url, nil
}

// AddTracks appends tracks in batches of 100.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	for start := 0; start < len(trackIDs); start += maxTracksPerAdd {
		end := min(start+maxTracksPerAdd, len(trackIDs))
		ids := make([]spotify.ID, 0, end-start)
		for _, id := range trackIDs[start:end] {
			ids = append(ids, spotify.ID(id))
		}
		if _, err := s.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids...); err != nil {
			return normalizeError(err)
		}
	}
	return nil
}

// SetPlaylistImage uploads a JPEG cover.
func (s *SpotifyService) SetPlaylistImage(ctx context.Context, playlistID string, jpeg []byte) error {
	if len(jpeg) == 0 {
		return fmt.Errorf("%w: empty cover image", shared.ErrInvalidArgument)
	}
	if err := s.client.SetPlaylistImage(ctx, spotify.ID(playlistID), bytes.NewReader(jpeg)); err != nil {
		return normalizeError(err)
	}
	return nil
}

func trackAttributes(t AudioTargets) *spotify.TrackAttributes {
	if t.IsZero() {
		return nil
	}
	attrs := spotify.NewTrackAttributes()
	if t.Energy != nil {
		attrs = attrs.TargetEnergy(*t.Energy)
	}
	if t.Danceability != nil {
		attrs = attrs.TargetDanceability(*t.Danceability)
	}
	if t.Valence != nil {
		attrs = attrs.TargetValence(*t.Valence)
	}
	if t.Acousticness != nil {
		attrs = attrs.TargetAcousticness(*t.Acousticness)
	}
	if t.Tempo != nil {
		attrs = attrs.TargetTempo(*t.Tempo)
	}
	return attrs
}

// fromFullTrack maps a search result, rejecting entries without an id, name or artist.
func fromFullTrack(ft spotify.FullTrack) (models.Track, bool) {
	t, ok := fromSimpleTrack(ft.SimpleTrack)
	if !ok {
		return t, false
	}
	t.Album = fromAlbum(ft.Album)
	t.Popularity = int(ft.Popularity)
	return t, true
}

func fromSimpleTrack(st spotify.SimpleTrack) (models.Track, bool) {
	if st.ID == "" || st.Name == "" || len(st.Artists) == 0 {
		return models.Track{}, false
	}

	artists := make([]models.Artist, 0, len(st.Artists))
	for _, a := range st.Artists {
		artists = append(artists, models.Artist{ID: string(a.ID), Name: a.Name})
	}

	url := st.ExternalURLs["spotify"]
	if url == "" {
		url = "https://open.spotify.com/track/" + string(st.ID)
	}

	return models.Track{
		ID:          string(st.ID),
		Name:        st.Name,
		Artists:     artists,
		Album:       fromAlbum(st.Album),
		DurationMs:  int(st.Duration),
		URI:         string(st.URI),
		ExternalURL: url,
	}, true
}

func fromAlbum(a spotify.SimpleAlbum) models.Album {
	images := make([]models.Image, 0, len(a.Images))
	for _, img := range a.Images {
		images = append(images, models.Image{URL: img.URL, Height: int(img.Height), Width: int(img.Width)})
	}
	return models.Album{ID: string(a.ID), Name: a.Name, Images: images}
}

// normalizeError converts client errors into the vendor taxonomy. Context and session errors pass through untouched.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		errors.Is(err, shared.ErrNotAuthenticated) || errors.Is(err, shared.ErrSessionExpired) {
		return err
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		return shared.NewVendorError(spotifyVendor, apiErr.Status, apiErr.Message)
	}
	var apiErrPtr *spotify.Error
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return shared.NewVendorError(spotifyVendor, apiErrPtr.Status, apiErrPtr.Message)
	}

	// Errors raised before decoding (empty bodies, image uploads) only carry the status in their text.
	if m := httpStatusPattern.FindStringSubmatch(err.Error()); m != nil {
		status, _ := strconv.Atoi(m[1])
		return shared.NewVendorError(spotifyVendor, status, "")
	}

	return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
}
