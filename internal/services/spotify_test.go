package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/vibemix/internal/shared"
)

const searchBody = `{"tracks":{"href":"","limit":5,"offset":3,"total":2,"items":[
	{"id":"t1","name":"Midnight City","duration_ms":243000,"uri":"spotify:track:t1","popularity":81,
	 "external_urls":{"spotify":"https://open.spotify.com/track/t1"},
	 "artists":[{"id":"a1","name":"M83"}],
	 "album":{"id":"al1","name":"Hurry Up, We're Dreaming","images":[{"url":"https://i.scdn.co/a.jpg","height":640,"width":640}]}},
	{"id":"","name":"Broken Entry","duration_ms":1000,"artists":[]}
]}}`

func newTestSpotify(t *testing.T, handler http.HandlerFunc) *SpotifyService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewSpotifyService(server.Client(), server.URL, nil)
}

func writeSpotifyError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"status":%d,"message":%q}}`, status, message)
}

func TestSpotifyService(t *testing.T) {
	t.Run("Search", func(t *testing.T) {
		t.Run("Maps Tracks", func(t *testing.T) {
			srv := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/search" {
					t.Errorf("expected /search, got %s", r.URL.Path)
				}
				q := r.URL.Query()
				if q.Get("q") != "midnight city m83" || q.Get("type") != "track" {
					t.Errorf("unexpected query %v", q)
				}
				if q.Get("limit") != "5" || q.Get("offset") != "3" {
					t.Errorf("expected limit 5 offset 3, got %s %s", q.Get("limit"), q.Get("offset"))
				}
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, searchBody)
			})

			tracks, err := srv.Search(context.Background(), "midnight city m83", 5, 3)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 1 {
				t.Fatalf("expected the incomplete entry to be dropped, got %d tracks", len(tracks))
			}

			got := tracks[0]
			if got.ID != "t1" || got.Name != "Midnight City" || got.DurationMs != 243000 {
				t.Errorf("unexpected track %+v", got)
			}
			if got.PrimaryArtist().Name != "M83" || got.ArtistKey() != "a1" {
				t.Errorf("unexpected artist %+v", got.Artists)
			}
			if got.Album.Name != "Hurry Up, We're Dreaming" || len(got.Album.Images) != 1 || got.Album.Images[0].Height != 640 {
				t.Errorf("unexpected album %+v", got.Album)
			}
			if got.Popularity != 81 || got.URI != "spotify:track:t1" || got.ExternalURL != "https://open.spotify.com/track/t1" {
				t.Errorf("unexpected track details %+v", got)
			}
		})

		t.Run("Normalizes Errors", func(t *testing.T) {
			tc := []struct {
				name   string
				status int
				want   error
			}{
				{"expired token", http.StatusUnauthorized, shared.ErrVendorAuth},
				{"forbidden", http.StatusForbidden, shared.ErrVendorPermission},
				{"rate limited", http.StatusTooManyRequests, shared.ErrVendorRateLimit},
				{"bad gateway", http.StatusBadGateway, shared.ErrVendorTransient},
			}

			for _, tt := range tc {
				t.Run(tt.name, func(t *testing.T) {
					srv := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
						writeSpotifyError(w, tt.status, "failure")
					})
					_, err := srv.Search(context.Background(), "anything", 5, 0)
					if !errors.Is(err, tt.want) {
						t.Errorf("expected %v, got %v", tt.want, err)
					}
					var verr *shared.VendorError
					if !errors.As(err, &verr) || verr.Status != tt.status {
						t.Errorf("expected vendor error with status %d, got %v", tt.status, err)
					}
				})
			}
		})
	})

	t.Run("Recommendations", func(t *testing.T) {
		t.Run("Sends Seeds And Targets", func(t *testing.T) {
			srv := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/recommendations" {
					t.Errorf("expected /recommendations, got %s", r.URL.Path)
				}
				q := r.URL.Query()
				if q.Get("seed_genres") != "electronic,dance" {
					t.Errorf("unexpected seed_genres %q", q.Get("seed_genres"))
				}
				if q.Get("target_energy") == "" || q.Get("target_danceability") == "" {
					t.Errorf("expected audio targets, got %v", q)
				}
				io.WriteString(w, `{"seeds":[],"tracks":[{"id":"r1","name":"Strobe","duration_ms":600000,"uri":"spotify:track:r1",
					"artists":[{"id":"a9","name":"deadmau5"}],"album":{"id":"al9","name":"For Lack of a Better Name","images":[]}}]}`)
			})

			energy, dance := 0.8, 0.7
			tracks, err := srv.Recommendations(context.Background(), RecommendationSeeds{
				Genres:  []string{"electronic", "dance"},
				Targets: AudioTargets{Energy: &energy, Danceability: &dance},
			}, 10)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 1 || tracks[0].ID != "r1" || tracks[0].Popularity != 0 {
				t.Errorf("unexpected tracks %+v", tracks)
			}
		})

		t.Run("Requires Genres", func(t *testing.T) {
			srv := NewSpotifyService(http.DefaultClient, "http://127.0.0.1:0", nil)
			if _, err := srv.Recommendations(context.Background(), RecommendationSeeds{}, 5); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("Publishing", func(t *testing.T) {
		var added []string
		srv := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			switch {
			case r.Method == http.MethodGet && r.URL.Path == "/me":
				io.WriteString(w, `{"id":"user-1","display_name":"Listener"}`)
			case r.Method == http.MethodPost && r.URL.Path == "/users/user-1/playlists":
				w.WriteHeader(http.StatusCreated)
				io.WriteString(w, `{"id":"pl-1","name":"velvet static","external_urls":{"spotify":"https://open.spotify.com/playlist/pl-1"}}`)
			case r.Method == http.MethodPost && r.URL.Path == "/playlists/pl-1/tracks":
				body, _ := io.ReadAll(r.Body)
				added = append(added, string(body))
				w.WriteHeader(http.StatusCreated)
				io.WriteString(w, `{"snapshot_id":"snap"}`)
			default:
				writeSpotifyError(w, http.StatusNotFound, "no route "+r.URL.Path)
			}
		})

		ctx := context.Background()
		userID, err := srv.CurrentUserID(ctx)
		if err != nil || userID != "user-1" {
			t.Fatalf("expected user-1, got %q (%v)", userID, err)
		}

		id, url, err := srv.CreatePlaylist(ctx, "velvet static", "hazy synths", false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if id != "pl-1" || url != "https://open.spotify.com/playlist/pl-1" {
			t.Errorf("unexpected playlist %s %s", id, url)
		}

		ids := make([]string, 150)
		for i := range ids {
			ids[i] = fmt.Sprintf("t%d", i+1)
		}
		if err := srv.AddTracks(ctx, id, ids); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(added) != 2 {
			t.Fatalf("expected 2 batches, got %d", len(added))
		}
		if !strings.Contains(added[1], "spotify:track:t150") {
			t.Errorf("expected the last batch to hold t150, got %s", added[1])
		}

		if err := srv.SetPlaylistImage(ctx, id, nil); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for an empty image, got %v", err)
		}
	})
}

func TestNormalizeError(t *testing.T) {
	if err := normalizeError(context.DeadlineExceeded); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline to pass through, got %v", err)
	}
	if err := normalizeError(shared.ErrSessionExpired); !errors.Is(err, shared.ErrSessionExpired) {
		t.Errorf("expected session error to pass through, got %v", err)
	}
	if err := normalizeError(errors.New("spotify: couldn't set playlist image: HTTP 413")); !errors.Is(err, shared.ErrVendorResponse) {
		t.Errorf("expected status parsed from message, got %v", err)
	}
	if err := normalizeError(errors.New("dial tcp: connection refused")); !errors.Is(err, shared.ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}
