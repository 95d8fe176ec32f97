package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/vibemix/internal/shared"
	tu "github.com/desertthunder/vibemix/internal/testing"
	"golang.org/x/oauth2"
)

func TestPlaylistRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Insert And Get", func(t *testing.T) {
		repo := NewPlaylistRepository(tu.NewTestDB(t))
		playlist := tu.Playlist(tu.Tracks(3)...)
		playlist.ID = "pl-1"
		playlist.UserID = "user-1"

		inserted, err := repo.Insert(ctx, playlist)
		if err != nil {
			t.Fatalf("failed to insert playlist: %v", err)
		}
		if !inserted {
			t.Error("expected a new row")
		}

		got, err := repo.Get(ctx, "pl-1")
		if err != nil {
			t.Fatalf("failed to get playlist: %v", err)
		}
		if got.Name != playlist.Name || got.UserID != "user-1" || got.SongCount != 3 {
			t.Errorf("unexpected playlist %+v", got)
		}
		if len(got.Tracks) != 3 || got.Tracks[2].ID != "t3" || got.Tracks[0].PrimaryArtist().Name != "Artist 1" {
			t.Errorf("unexpected tracks %+v", got.Tracks)
		}
		if len(got.ColorPalette) != 3 || got.ColorPalette[0] != "#6366F1" {
			t.Errorf("unexpected palette %v", got.ColorPalette)
		}
		if got.UniquenessScore == nil || *got.UniquenessScore != 72 {
			t.Errorf("unexpected score %v", got.UniquenessScore)
		}
		if got.CreatedAt.IsZero() {
			t.Error("expected a server-assigned created_at")
		}
	})

	t.Run("Insert Is Idempotent", func(t *testing.T) {
		repo := NewPlaylistRepository(tu.NewTestDB(t))
		first := tu.Playlist(tu.Tracks(2)...)
		first.ID = "pl-1"
		if _, err := repo.Insert(ctx, first); err != nil {
			t.Fatalf("failed to insert playlist: %v", err)
		}

		second := first.Clone()
		second.Name = "changed"
		inserted, err := repo.Insert(ctx, second)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if inserted {
			t.Error("expected the existing row to be kept")
		}

		got, _ := repo.Get(ctx, "pl-1")
		if got.Name != first.Name {
			t.Errorf("expected original name, got %s", got.Name)
		}
	})

	t.Run("Concurrent Inserts Of One Id", func(t *testing.T) {
		repo := NewPlaylistRepository(tu.NewTestDB(t))

		var wg sync.WaitGroup
		var mu sync.Mutex
		written := 0
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p := tu.Playlist(tu.Tracks(1)...)
				p.ID, p.UserID = "shared-id", "user-1"
				inserted, err := repo.Insert(ctx, p)
				if err != nil {
					t.Errorf("insert failed: %v", err)
				}
				if inserted {
					mu.Lock()
					written++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if written != 1 {
			t.Errorf("expected exactly one write, got %d", written)
		}
		list, _ := repo.ListByUser(ctx, "user-1")
		if len(list) != 1 {
			t.Errorf("expected one stored playlist, got %d", len(list))
		}
	})

	t.Run("Requires Id", func(t *testing.T) {
		repo := NewPlaylistRepository(tu.NewTestDB(t))
		if _, err := repo.Insert(ctx, tu.Playlist()); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Get Missing", func(t *testing.T) {
		repo := NewPlaylistRepository(tu.NewTestDB(t))
		if _, err := repo.Get(ctx, "nope"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if ok, err := repo.Exists(ctx, "nope"); ok || err != nil {
			t.Errorf("expected (false, nil), got (%v, %v)", ok, err)
		}
	})

	t.Run("List Newest First", func(t *testing.T) {
		repo := NewPlaylistRepository(tu.NewTestDB(t))
		for i := 1; i <= 3; i++ {
			p := tu.Playlist(tu.Tracks(1)...)
			p.ID, p.UserID = fmt.Sprintf("pl-%d", i), "user-1"
			repo.Insert(ctx, p)
		}
		other := tu.Playlist(tu.Tracks(1)...)
		other.ID, other.UserID = "other", "user-2"
		repo.Insert(ctx, other)

		list, err := repo.ListByUser(ctx, "user-1")
		if err != nil {
			t.Fatalf("failed to list playlists: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 playlists, got %d", len(list))
		}
		if list[0].ID != "pl-3" || list[2].ID != "pl-1" {
			t.Errorf("expected newest first, got %s..%s", list[0].ID, list[2].ID)
		}

		empty, err := repo.ListByUser(ctx, "nobody")
		if err != nil || empty == nil || len(empty) != 0 {
			t.Errorf("expected an empty list, got %v (%v)", empty, err)
		}
	})

	t.Run("Updates", func(t *testing.T) {
		repo := NewPlaylistRepository(tu.NewTestDB(t))
		p := tu.Playlist(tu.Tracks(1)...)
		p.ID = "pl-1"
		repo.Insert(ctx, p)

		if err := repo.UpdateMetadata(ctx, "pl-1", "new name", "new description", "https://cdn.example.com/c.jpg"); err != nil {
			t.Fatalf("failed to update: %v", err)
		}
		if err := repo.MarkPublished(ctx, "pl-1", "https://open.spotify.com/playlist/x"); err != nil {
			t.Fatalf("failed to mark published: %v", err)
		}
		got, _ := repo.Get(ctx, "pl-1")
		if got.Name != "new name" || got.CoverImageURL != "https://cdn.example.com/c.jpg" || !got.IsSpotifyPlaylist {
			t.Errorf("unexpected playlist after update %+v", got)
		}

		if err := repo.UpdateCover(ctx, "missing", "x"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewPlaylistRepository(tu.NewTestDB(t))
		p := tu.Playlist(tu.Tracks(1)...)
		p.ID = "pl-1"
		repo.Insert(ctx, p)

		if deleted, err := repo.Delete(ctx, "pl-1"); !deleted || err != nil {
			t.Errorf("expected (true, nil), got (%v, %v)", deleted, err)
		}
		if deleted, err := repo.Delete(ctx, "pl-1"); deleted || err != nil {
			t.Errorf("expected (false, nil) for a missing row, got (%v, %v)", deleted, err)
		}
	})

	t.Run("Closed Database", func(t *testing.T) {
		db := tu.NewTestDB(t)
		repo := NewPlaylistRepository(db)
		db.Close()
		if _, err := repo.ListByUser(ctx, "user-1"); !errors.Is(err, shared.ErrPersistence) {
			t.Errorf("expected ErrPersistence, got %v", err)
		}
	})
}

func TestTokenRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTokenRepository(tu.NewTestDB(t))

	if _, err := repo.LoadToken(ctx, "spotify"); !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated, got %v", err)
	}

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := repo.SaveToken(ctx, "spotify", &oauth2.Token{AccessToken: "a1", RefreshToken: "r1", Expiry: expiry}); err != nil {
		t.Fatalf("failed to save token: %v", err)
	}
	if err := repo.SaveToken(ctx, "spotify", &oauth2.Token{AccessToken: "a2", RefreshToken: "r1", TokenType: "Bearer", Expiry: expiry}); err != nil {
		t.Fatalf("failed to replace token: %v", err)
	}

	tok, err := repo.LoadToken(ctx, "spotify")
	if err != nil {
		t.Fatalf("failed to load token: %v", err)
	}
	if tok.AccessToken != "a2" || tok.RefreshToken != "r1" || tok.TokenType != "Bearer" {
		t.Errorf("unexpected token %+v", tok)
	}
	if !tok.Expiry.Equal(expiry) {
		t.Errorf("expected expiry %v, got %v", expiry, tok.Expiry)
	}

	if err := repo.SaveToken(ctx, "spotify", &oauth2.Token{}); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}

	if err := repo.DeleteToken(ctx, "spotify"); err != nil {
		t.Fatalf("failed to delete token: %v", err)
	}
	if _, err := repo.LoadToken(ctx, "spotify"); !errors.Is(err, shared.ErrNotAuthenticated) {
		t.Errorf("expected ErrNotAuthenticated after delete, got %v", err)
	}
}
