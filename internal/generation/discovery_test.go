package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/services"
	"github.com/desertthunder/vibemix/internal/services/servicetest"
	"github.com/desertthunder/vibemix/internal/shared"
	tu "github.com/desertthunder/vibemix/internal/testing"
)

func testOptions(rounds int) Options {
	return Options{
		MaxRounds:       rounds,
		OverRequest:     3,
		SearchLimit:     5,
		MaxSearchOffset: 0,
		RetryUnit:       time.Millisecond,
		MainstreamShare: 0.2,
	}
}

// suggestionLines renders n "Song i" by Artist i lines.
func suggestionLines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%d. \"Song %d\" by Artist %d\n", i, i, i)
	}
	return b.String()
}

func TestDiscover(t *testing.T) {
	ctx := context.Background()

	t.Run("Party Energy", func(t *testing.T) {
		text := servicetest.Static(suggestionLines(30))
		vendor := &servicetest.Vendor{Catalog: tu.Tracks(30)}
		req := models.PlaylistRequest{Emojis: []string{"😄", "🥳"}, SongCount: 10, Vibe: "party energy"}

		var reports []RoundReport
		tracks, err := NewEngine(text, vendor, testOptions(5), nil).Discover(ctx, req, models.Generic, []string{"dance pop"}, func(r RoundReport) {
			reports = append(reports, r)
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) < 1 || len(tracks) > 10 {
			t.Fatalf("expected between 1 and 10 tracks, got %d", len(tracks))
		}

		seen := map[string]bool{}
		artists := map[string]bool{}
		for _, tr := range tracks {
			if seen[tr.ID] {
				t.Errorf("duplicate track id %s", tr.ID)
			}
			if artists[tr.ArtistKey()] {
				t.Errorf("duplicate artist %s", tr.ArtistKey())
			}
			seen[tr.ID], artists[tr.ArtistKey()] = true, true
		}

		if text.Calls() != 1 {
			t.Errorf("expected a single round to fill the playlist, got %d", text.Calls())
		}
		if !strings.Contains(text.Prompts[0], "30") {
			t.Errorf("expected the prompt to over-request 30 songs, got %s", text.Prompts[0])
		}
		if len(reports) != 1 || reports[0].Found != 10 || reports[0].Total != 10 {
			t.Fatalf("unexpected round reports %+v", reports)
		}
		if len(reports[0].Tracks) != reports[0].Found {
			t.Errorf("expected the report to carry %d tracks, got %d", reports[0].Found, len(reports[0].Tracks))
		}
	})

	t.Run("Attack On Titan", func(t *testing.T) {
		text := servicetest.Static(`"Guren no Yumiya" by Linked Horizon
"Shinzou wo Sasageyo!" by Linked Horizon
"Vogel im Käfig" by Hiroyuki Sawano`)
		vendor := &servicetest.Vendor{Catalog: []models.Track{
			tu.Track("aot1", "Guren no Yumiya", "Linked Horizon"),
			tu.Track("aot2", "Shinzou wo Sasageyo!", "Linked Horizon"),
			tu.Track("aot3", "Vogel im Käfig", "Hiroyuki Sawano"),
		}}
		req := models.PlaylistRequest{Emojis: []string{"⚡"}, SongCount: 3, Vibe: "Attack on Titan"}

		tracks, err := NewEngine(text, vendor, testOptions(2), nil).Discover(ctx, req, models.Specific, nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected one track per artist, got %d: %v", len(tracks), ids(tracks))
		}
		if !strings.HasPrefix(vendor.Queries[0], "Linked Horizon") {
			t.Errorf("expected artist-first queries for specific vibes, got %q", vendor.Queries[0])
		}
		if len(vendor.Seeds) != 0 {
			t.Error("expected no recommendation augmentation for a specific vibe")
		}
	})

	t.Run("No Parseable Lines", func(t *testing.T) {
		text := servicetest.Static("I'd love to help, but I can't recommend music right now.")
		vendor := &servicetest.Vendor{Catalog: tu.Tracks(5)}
		req := models.PlaylistRequest{Emojis: []string{"😄"}, SongCount: 5, Vibe: "zzz"}

		_, err := NewEngine(text, vendor, testOptions(5), nil).Discover(ctx, req, models.Generic, nil, nil)
		if !errors.Is(err, shared.ErrNoTracksFound) {
			t.Errorf("expected ErrNoTracksFound, got %v", err)
		}
		if text.Calls() != 5 {
			t.Errorf("expected 5 rounds, got %d", text.Calls())
		}
	})

	t.Run("Augments Generic Vibes", func(t *testing.T) {
		text := servicetest.Static(suggestionLines(2))
		vendor := &servicetest.Vendor{
			Catalog:     tu.Tracks(2),
			Recommended: []models.Track{tu.Track("rec1", "Tidepool", "Shoreline"), tu.Track("rec2", "Drift", "Undertow")},
		}
		req := models.PlaylistRequest{Emojis: []string{"🌊"}, SongCount: 4, Vibe: "chill ocean"}

		tracks, err := NewEngine(text, vendor, testOptions(1), nil).Discover(ctx, req, models.Generic, nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 4 {
			t.Fatalf("expected 4 tracks, got %d: %v", len(tracks), ids(tracks))
		}
		if len(vendor.Seeds) != 1 {
			t.Fatalf("expected one recommendation call, got %d", len(vendor.Seeds))
		}
		seeds := vendor.Seeds[0]
		if seeds.Genres[0] != "ambient" || seeds.Targets.Acousticness == nil {
			t.Errorf("unexpected seeds %+v", seeds)
		}
	})

	t.Run("Retries Bad Gateway", func(t *testing.T) {
		var calls atomic.Int32
		vendor := &servicetest.Vendor{SearchFunc: func(query string, limit, offset int) ([]models.Track, error) {
			if calls.Add(1) <= 2 {
				return nil, shared.NewVendorError("spotify", 502, "bad gateway")
			}
			return []models.Track{tu.Track("t1", "Song 1", "Artist 1")}, nil
		}}
		req := models.PlaylistRequest{SongCount: 1, Vibe: "Radiohead"}

		tracks, err := NewEngine(servicetest.Static(suggestionLines(1)), vendor, testOptions(1), nil).Discover(ctx, req, models.Specific, nil, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 1 || calls.Load() != 3 {
			t.Errorf("expected success on the third call, got %d tracks after %d calls", len(tracks), calls.Load())
		}
	})

	t.Run("Exhausted Bad Gateway", func(t *testing.T) {
		var calls atomic.Int32
		vendor := &servicetest.Vendor{SearchFunc: func(query string, limit, offset int) ([]models.Track, error) {
			calls.Add(1)
			return nil, shared.NewVendorError("spotify", 502, "bad gateway")
		}}
		req := models.PlaylistRequest{SongCount: 1, Vibe: "Radiohead"}

		_, err := NewEngine(servicetest.Static(suggestionLines(1)), vendor, testOptions(1), nil).Discover(ctx, req, models.Specific, nil, nil)
		if !errors.Is(err, shared.ErrVendorTransient) {
			t.Errorf("expected ErrVendorTransient, got %v", err)
		}
		if calls.Load() != 4 {
			t.Errorf("expected 1 call and 3 retries, got %d", calls.Load())
		}
	})

	t.Run("Surfaces Most Severe Error", func(t *testing.T) {
		vendor := &servicetest.Vendor{SearchFunc: func(query string, limit, offset int) ([]models.Track, error) {
			if strings.Contains(query, "Artist 1") {
				return nil, shared.NewVendorError("spotify", 429, "slow down")
			}
			return nil, shared.NewVendorError("spotify", 401, "The access token expired")
		}}
		req := models.PlaylistRequest{SongCount: 2, Vibe: "Radiohead"}

		_, err := NewEngine(servicetest.Static(suggestionLines(3)), vendor, testOptions(1), nil).Discover(ctx, req, models.Specific, nil, nil)
		if !errors.Is(err, shared.ErrVendorAuth) {
			t.Errorf("expected ErrVendorAuth, got %v", err)
		}
	})

	t.Run("Session Probe", func(t *testing.T) {
		tc := []struct {
			name string
			err  error
			want error
		}{
			{"expired", shared.NewVendorError("spotify", 401, "expired"), shared.ErrVendorAuth},
			{"not connected", shared.ErrNotAuthenticated, shared.ErrNotAuthenticated},
			{"network", fmt.Errorf("%w: dial tcp", shared.ErrNetwork), shared.ErrServiceUnavailable},
		}
		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				text := servicetest.Static(suggestionLines(1))
				vendor := &servicetest.Vendor{UserErr: tt.err}
				_, err := NewEngine(text, vendor, testOptions(1), nil).Discover(ctx, models.PlaylistRequest{SongCount: 1, Vibe: "x"}, models.Generic, nil, nil)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
				if text.Calls() != 0 {
					t.Error("expected no suggestion calls after a failed probe")
				}
			})
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		vendor := &servicetest.Vendor{Catalog: tu.Tracks(3)}
		text := &servicetest.TextGenerator{Respond: func(services.CompletionRequest) (string, error) {
			cancel()
			return suggestionLines(3), nil
		}}

		_, err := NewEngine(text, vendor, testOptions(5), nil).Discover(cctx, models.PlaylistRequest{SongCount: 3, Vibe: "x"}, models.Generic, nil, nil)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(shared.DefaultConfig().Generation)
	if opts.MaxRounds != 5 || opts.OverRequest != 3 || opts.SearchLimit != 5 || opts.MaxSearchOffset != 4 {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.RetryUnit != 2*time.Second || opts.MainstreamShare != 0.2 {
		t.Errorf("unexpected retry/share %+v", opts)
	}
}

func TestDiversityToken(t *testing.T) {
	req := models.PlaylistRequest{Emojis: []string{"🌙"}, SongCount: 5, Vibe: "late night"}
	a, b := NewDiversityToken(req), NewDiversityToken(req)
	if a.Value == "" || a.Index < 0 {
		t.Errorf("unexpected token %+v", a)
	}
	if a == b {
		t.Error("expected distinct tokens for repeated calls")
	}
}
