// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/shared"
	"golang.org/x/oauth2"
)

// NewTestDB opens a migrated in-memory database closed at test cleanup.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Track builds a playable track whose artist id is derived from artist.
func Track(id, name, artist string) models.Track {
	return models.Track{
		ID:          id,
		Name:        name,
		Artists:     []models.Artist{{ID: "artist-" + artist, Name: artist}},
		Album:       models.Album{ID: "album-" + id, Name: name + " (Single)"},
		DurationMs:  200000,
		URI:         "spotify:track:" + id,
		ExternalURL: "https://open.spotify.com/track/" + id,
		Popularity:  30,
	}
}

// Tracks builds n tracks by n distinct artists.
func Tracks(n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range n {
		tracks[i] = Track(fmt.Sprintf("t%d", i+1), fmt.Sprintf("Song %d", i+1), fmt.Sprintf("Artist %d", i+1))
	}
	return tracks
}

// Playlist builds a valid generated playlist holding tracks.
func Playlist(tracks ...models.Track) *models.PlaylistData {
	score := 72
	return &models.PlaylistData{
		Name:            "velvet static",
		Description:     "hazy synths for slow city nights",
		ColorPalette:    []string{"#6366F1", "#8B5CF6", "#A855F7"},
		Keywords:        []string{"synthwave", "dream pop"},
		CoverImageURL:   "https://images.example.com/cover.png",
		Emojis:          []string{"🌙", "✨"},
		SongCount:       len(tracks),
		Vibe:            "late night drive",
		Tracks:          tracks,
		UniquenessScore: &score,
	}
}

// MemoryTokenStore keeps OAuth tokens in memory.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*oauth2.Token
	Saves  int
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]*oauth2.Token)}
}

func (m *MemoryTokenStore) LoadToken(_ context.Context, service string) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[service]
	if !ok {
		return nil, shared.ErrNotAuthenticated
	}
	return tok, nil
}

func (m *MemoryTokenStore) SaveToken(_ context.Context, service string, token *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[service] = token
	m.Saves++
	return nil
}

func (m *MemoryTokenStore) DeleteToken(_ context.Context, service string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, service)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
