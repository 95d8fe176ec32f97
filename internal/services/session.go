package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibemix/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// SpotifyTokenKey is the service key the Spotify token is stored under.
const SpotifyTokenKey = "spotify"

// refreshBuffer refreshes tokens this long before they actually expire.
const refreshBuffer = 5 * time.Minute

// TokenStore persists OAuth tokens by service name.
type TokenStore interface {
	LoadToken(ctx context.Context, service string) (*oauth2.Token, error)
	SaveToken(ctx context.Context, service string, token *oauth2.Token) error
	DeleteToken(ctx context.Context, service string) error
}

// Session owns the Spotify OAuth token: loading, refreshing, persisting and clearing it.
//
// A Session is safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	config *oauth2.Config
	store  TokenStore
	token  *oauth2.Token
	loaded bool
	logger *log.Logger
}

// SpotifyOAuthConfig returns the oauth2 configuration for the Spotify accounts service.
func SpotifyOAuthConfig(config shared.SpotifyConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURI,
		Scopes:       SpotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}
}

// NewSession creates a session backed by store. The token is loaded lazily.
func NewSession(config *oauth2.Config, store TokenStore, logger *log.Logger) *Session {
	return &Session{config: config, store: store, logger: shared.WithLogger(logger, "component", "session")}
}

// SetToken replaces the current token and persists it.
func (s *Session) SetToken(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: empty token", shared.ErrAuthFailed)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveToken(ctx, SpotifyTokenKey, token); err != nil {
		return err
	}
	s.token = token
	s.loaded = true
	return nil
}

// ValidToken returns a token valid for at least the refresh buffer, refreshing and persisting it when needed.
//
// Returns [shared.ErrNotAuthenticated] when no token exists and [shared.ErrSessionExpired] when the token
// cannot be refreshed.
func (s *Session) ValidToken(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	if s.token == nil {
		return nil, shared.ErrNotAuthenticated
	}

	if s.token.RefreshToken == "" && expiring(s.token) {
		return nil, shared.ErrSessionExpired
	}

	source := oauth2.ReuseTokenSourceWithExpiry(s.token, s.config.TokenSource(ctx, s.token), refreshBuffer)
	fresh, err := source.Token()
	if err != nil {
		s.logger.Warn("token refresh failed", "error", err)
		return nil, fmt.Errorf("%w: %v", shared.ErrSessionExpired, err)
	}

	if fresh.AccessToken != s.token.AccessToken {
		if fresh.RefreshToken == "" {
			fresh.RefreshToken = s.token.RefreshToken
		}
		if err := s.store.SaveToken(ctx, SpotifyTokenKey, fresh); err != nil {
			s.logger.Warn("failed to persist refreshed token", "error", err)
		}
		s.logger.Debug("token refreshed", "expiry", fresh.Expiry)
		s.token = fresh
	}
	return s.token, nil
}

// IsAuthenticated reports whether a usable token is available.
func (s *Session) IsAuthenticated(ctx context.Context) bool {
	_, err := s.ValidToken(ctx)
	return err == nil
}

// Clear forgets the token in memory and in the store.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
	s.loaded = true
	return s.store.DeleteToken(ctx, SpotifyTokenKey)
}

// HTTPClient returns a client that authorizes each request with a valid token and clears the session
// when the vendor answers 401.
func (s *Session) HTTPClient() *http.Client {
	return &http.Client{Transport: &sessionTransport{session: s, base: http.DefaultTransport}}
}

func (s *Session) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	token, err := s.store.LoadToken(ctx, SpotifyTokenKey)
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		token = nil
	case err != nil:
		return err
	}
	s.token = token
	s.loaded = true
	return nil
}

func expiring(t *oauth2.Token) bool {
	return !t.Expiry.IsZero() && time.Until(t.Expiry) < refreshBuffer
}

type sessionTransport struct {
	session *Session
	base    http.RoundTripper
}

func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.session.ValidToken(req.Context())
	if err != nil {
		return nil, err
	}

	authorized := req.Clone(req.Context())
	token.SetAuthHeader(authorized)

	resp, err := t.base.RoundTrip(authorized)
	if err == nil && resp.StatusCode == http.StatusUnauthorized {
		if cerr := t.session.Clear(req.Context()); cerr != nil {
			t.session.logger.Error("failed to clear session", "error", cerr)
		}
	}
	return resp, err
}
