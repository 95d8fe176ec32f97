package library

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/vibemix/internal/cache"
	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/repositories"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/desertthunder/vibemix/internal/storage"
	tu "github.com/desertthunder/vibemix/internal/testing"
)

const durablePrefix = "https://storage.test/covers/"

// fakeObjects mirrors any URL containing "ok" and fails the rest.
type fakeObjects struct {
	mu      sync.Mutex
	uploads int
}

func (f *fakeObjects) Upload(ctx context.Context, data []byte) (string, error) {
	return durablePrefix + "uploaded.png", nil
}

func (f *fakeObjects) UploadFromURL(ctx context.Context, sourceURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !strings.Contains(sourceURL, "ok") {
		return "", shared.ErrNetwork
	}
	f.uploads++
	return durablePrefix + sourceURL[strings.LastIndex(sourceURL, "/")+1:], nil
}

func (f *fakeObjects) IsDurable(url string) bool {
	return strings.HasPrefix(url, durablePrefix)
}

func newGateway(t *testing.T) (*Gateway, *repositories.PlaylistRepository, *fakeObjects) {
	t.Helper()
	repo := repositories.NewPlaylistRepository(tu.NewTestDB(t))
	objects := &fakeObjects{}
	lists := cache.New[[]*models.PlaylistData](time.Minute, 100)
	t.Cleanup(lists.Stop)
	return NewGateway(repo, objects, lists, BackfillOpts{RateLimit: 1000, NumWorkers: 2}, nil), repo, objects
}

func playlistWithCover(cover string) *models.PlaylistData {
	p := tu.Playlist(tu.Tracks(3)...)
	p.CoverImageURL = cover
	return p
}

func TestGatewaySave(t *testing.T) {
	ctx := context.Background()

	t.Run("Assigns New Ids", func(t *testing.T) {
		gw, _, _ := newGateway(t)
		p := playlistWithCover("")

		first, err := gw.Save(ctx, p, "user-1")
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		second, err := gw.Save(ctx, p, "user-1")
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if first == "" || first == second {
			t.Errorf("expected two distinct ids, got %q and %q", first, second)
		}

		list, _ := gw.List(ctx, "user-1")
		if len(list) != 2 {
			t.Errorf("expected identical content to be stored twice, got %d", len(list))
		}
		if p.ID != "" || p.UserID != "" {
			t.Error("expected the caller's playlist to be left untouched")
		}
	})

	t.Run("Pre-assigned Id Is Idempotent", func(t *testing.T) {
		gw, repo, _ := newGateway(t)
		p := playlistWithCover("")
		p.ID = "4x1nvY2FN8jxqAFA0DA02H"

		for range 2 {
			id, err := gw.Save(ctx, p, "user-1")
			if err != nil || id != p.ID {
				t.Fatalf("expected (%s, nil), got (%s, %v)", p.ID, id, err)
			}
		}
		list, _ := repo.ListByUser(ctx, "user-1")
		if len(list) != 1 {
			t.Errorf("expected one record, got %d", len(list))
		}
	})

	t.Run("Concurrent Saves Of One Id", func(t *testing.T) {
		gw, repo, _ := newGateway(t)

		var wg sync.WaitGroup
		for range 6 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p := playlistWithCover("")
				p.ID = "same"
				if id, err := gw.Save(ctx, p, "user-1"); err != nil || id != "same" {
					t.Errorf("unexpected save result (%s, %v)", id, err)
				}
			}()
		}
		wg.Wait()

		list, _ := repo.ListByUser(ctx, "user-1")
		if len(list) != 1 {
			t.Errorf("expected one record, got %d", len(list))
		}
	})

	t.Run("Mirrors Covers", func(t *testing.T) {
		gw, repo, objects := newGateway(t)

		id, err := gw.Save(ctx, playlistWithCover("https://cdn.openai.test/ok.png"), "user-1")
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		got, _ := repo.Get(ctx, id)
		if got.CoverImageURL != durablePrefix+"ok.png" || objects.uploads != 1 {
			t.Errorf("expected mirrored cover, got %s", got.CoverImageURL)
		}

		id, err = gw.Save(ctx, playlistWithCover("https://cdn.openai.test/expired.png"), "user-1")
		if err != nil {
			t.Fatalf("expected mirror failure to be tolerated, got %v", err)
		}
		got, _ = repo.Get(ctx, id)
		if got.CoverImageURL != "https://cdn.openai.test/expired.png" {
			t.Errorf("expected original cover kept, got %s", got.CoverImageURL)
		}
	})

	t.Run("Rejects Invalid Playlists", func(t *testing.T) {
		gw, _, _ := newGateway(t)

		var verr *shared.ValidationError
		if _, err := gw.Save(ctx, playlistWithCover("").Clone(), ""); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}

		empty := tu.Playlist()
		if _, err := gw.Save(ctx, empty, "user-1"); !errors.As(err, &verr) {
			t.Errorf("expected ValidationError, got %v", err)
		}
	})
}

func TestGatewayCacheConsistency(t *testing.T) {
	ctx := context.Background()
	gw, _, _ := newGateway(t)

	if list, err := gw.List(ctx, "user-1"); err != nil || len(list) != 0 {
		t.Fatalf("expected empty list, got %v (%v)", list, err)
	}

	id, _ := gw.Save(ctx, playlistWithCover(""), "user-1")
	list, _ := gw.List(ctx, "user-1")
	if len(list) != 1 || list[0].ID != id {
		t.Fatalf("expected cached list to include the new playlist, got %v", list)
	}

	if err := gw.UpdateMetadata(ctx, id, "renamed", "new words", ""); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	list, _ = gw.List(ctx, "user-1")
	if list[0].Name != "renamed" {
		t.Errorf("expected cached list to reflect the edit, got %s", list[0].Name)
	}

	if err := gw.MarkPublished(ctx, id, "https://open.spotify.com/playlist/abc"); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	list, _ = gw.List(ctx, "user-1")
	if !list[0].IsSpotifyPlaylist {
		t.Error("expected cached list to reflect publishing")
	}

	if err := gw.Delete(ctx, id); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	list, _ = gw.List(ctx, "user-1")
	if len(list) != 0 {
		t.Errorf("expected cached list to drop the deleted playlist, got %d", len(list))
	}

	if err := gw.Delete(ctx, id); err != nil {
		t.Errorf("expected deleting a missing playlist to be a no-op, got %v", err)
	}
}

func TestGatewayUpdateMetadata(t *testing.T) {
	ctx := context.Background()
	gw, repo, _ := newGateway(t)

	if err := gw.UpdateMetadata(ctx, "missing", "n", "d", ""); !errors.Is(err, shared.ErrPlaylistNotFound) {
		t.Errorf("expected ErrPlaylistNotFound, got %v", err)
	}

	id, _ := gw.Save(ctx, playlistWithCover(""), "user-1")
	if err := gw.UpdateMetadata(ctx, id, "new name", "desc", "https://cdn.openai.test/ok-2.png"); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	got, _ := repo.Get(ctx, id)
	if got.CoverImageURL != durablePrefix+"ok-2.png" {
		t.Errorf("expected the new cover to be mirrored, got %s", got.CoverImageURL)
	}

	if err := gw.UpdateMetadata(ctx, id, strings.Repeat("x", 150), "desc", ""); err != nil {
		t.Fatalf("expected an over-long name to be truncated, got %v", err)
	}
	got, _ = repo.Get(ctx, id)
	if len(got.Name) != 100 {
		t.Errorf("expected a 100 character name, got %d", len(got.Name))
	}
}

func TestGatewayBackfill(t *testing.T) {
	ctx := context.Background()
	gw, repo, _ := newGateway(t)

	covers := []string{
		"https://cdn.openai.test/ok-a.png",
		"https://cdn.openai.test/ok-b.png",
		"https://cdn.openai.test/gone.png",
		durablePrefix + "already.png",
		"",
	}
	for i, cover := range covers {
		p := playlistWithCover("")
		p.ID = "pl-" + string(rune('a'+i))
		p.UserID = "user-1"
		p.CoverImageURL = cover
		if _, err := repo.Insert(ctx, p); err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	result, err := gw.Backfill(ctx, "user-1")
	if err != nil {
		t.Fatalf("backfill failed: %v", err)
	}
	if result.Total != 3 || result.Migrated != 2 || result.Failed != 1 {
		t.Errorf("unexpected result %+v", result)
	}

	a, _ := repo.Get(ctx, "pl-a")
	if a.CoverImageURL != durablePrefix+"ok-a.png" {
		t.Errorf("expected migrated cover, got %s", a.CoverImageURL)
	}
	c, _ := repo.Get(ctx, "pl-c")
	if c.CoverImageURL != "https://cdn.openai.test/gone.png" {
		t.Errorf("expected failed cover left in place, got %s", c.CoverImageURL)
	}

	again, err := gw.Backfill(ctx, "user-1")
	if err != nil || again.Total != 1 {
		t.Errorf("expected only the failed cover to remain, got %+v (%v)", again, err)
	}

	noStorage := NewGateway(repo, nil, nil, BackfillOpts{}, nil)
	if _, err := noStorage.Backfill(ctx, "user-1"); !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestGatewayWithFileStore(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	}))
	defer server.Close()

	store, err := storage.NewFileStore(shared.StorageConfig{Dir: t.TempDir(), PublicURL: "http://127.0.0.1:3000/covers"}, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	repo := repositories.NewPlaylistRepository(tu.NewTestDB(t))
	gw := NewGateway(repo, store, nil, BackfillOpts{}, nil)

	id, err := gw.Save(context.Background(), playlistWithCover(server.URL+"/dalle.png"), "user-1")
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	got, _ := repo.Get(context.Background(), id)
	if !store.IsDurable(got.CoverImageURL) {
		t.Errorf("expected durable cover, got %s", got.CoverImageURL)
	}
}
