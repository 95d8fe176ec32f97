package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/shared"
)

const playlistColumns = `id, user_id, name, description, color_palette, keywords, cover_image_url, emojis,
	song_count, vibe, tracks, spotify_url, is_spotify_playlist, uniqueness_score, created_at, updated_at`

// PlaylistRepository stores generated playlists.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Insert writes playlist under its id unless a row with that id already exists.
//
// It reports whether a row was written. Timestamps are assigned by the database.
func (r *PlaylistRepository) Insert(ctx context.Context, playlist *models.PlaylistData) (bool, error) {
	if playlist.ID == "" {
		return false, fmt.Errorf("%w: playlist id is required", shared.ErrInvalidArgument)
	}

	palette, err := encodeColumn(playlist.ColorPalette)
	if err != nil {
		return false, err
	}
	keywords, err := encodeColumn(playlist.Keywords)
	if err != nil {
		return false, err
	}
	emojis, err := encodeColumn(playlist.Emojis)
	if err != nil {
		return false, err
	}
	tracks, err := encodeColumn(playlist.Tracks)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO playlists (id, user_id, name, description, color_palette, keywords, cover_image_url, emojis,
			song_count, vibe, tracks, spotify_url, is_spotify_playlist, uniqueness_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`

	var score sql.NullInt64
	if playlist.UniquenessScore != nil {
		score = sql.NullInt64{Int64: int64(*playlist.UniquenessScore), Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		playlist.ID,
		playlist.UserID,
		playlist.Name,
		playlist.Description,
		palette,
		keywords,
		playlist.CoverImageURL,
		emojis,
		playlist.SongCount,
		playlist.Vibe,
		tracks,
		playlist.SpotifyURL,
		playlist.IsSpotifyPlaylist,
		score,
	)
	if err != nil {
		return false, fmt.Errorf("%w: failed to insert playlist: %v", shared.ErrPersistence, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrPersistence, err)
	}
	return rows > 0, nil
}

// Get retrieves a playlist by id.
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.PlaylistData, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ?`
	return r.scan(r.db.QueryRowContext(ctx, query, id))
}

// Exists reports whether a playlist with id is stored.
func (r *PlaylistRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM playlists WHERE id = ?)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: failed to check playlist: %v", shared.ErrPersistence, err)
	}
	return exists, nil
}

// ListByUser returns a user's playlists, newest first.
func (r *PlaylistRepository) ListByUser(ctx context.Context, userID string) ([]*models.PlaylistData, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query playlists: %v", shared.ErrPersistence, err)
	}
	defer rows.Close()

	playlists := []*models.PlaylistData{}
	for rows.Next() {
		playlist, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: row iteration error: %v", shared.ErrPersistence, err)
	}
	return playlists, nil
}

// UpdateMetadata replaces the user-editable fields of a playlist.
func (r *PlaylistRepository) UpdateMetadata(ctx context.Context, id, name, description, coverURL string) error {
	query := `
		UPDATE playlists
		SET name = ?, description = ?, cover_image_url = ?, updated_at = ?
		WHERE id = ?
	`
	return r.exec(ctx, "update playlist", query, name, description, coverURL, time.Now().UTC(), id)
}

// UpdateCover replaces the cover image URL of a playlist.
func (r *PlaylistRepository) UpdateCover(ctx context.Context, id, coverURL string) error {
	query := `UPDATE playlists SET cover_image_url = ?, updated_at = ? WHERE id = ?`
	return r.exec(ctx, "update cover", query, coverURL, time.Now().UTC(), id)
}

// MarkPublished records the vendor playlist URL of a saved playlist.
func (r *PlaylistRepository) MarkPublished(ctx context.Context, id, spotifyURL string) error {
	query := `UPDATE playlists SET spotify_url = ?, is_spotify_playlist = 1, updated_at = ? WHERE id = ?`
	return r.exec(ctx, "mark playlist published", query, spotifyURL, time.Now().UTC(), id)
}

// Delete removes a playlist and reports whether a row existed.
func (r *PlaylistRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("%w: failed to delete playlist: %v", shared.ErrPersistence, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrPersistence, err)
	}
	return rows > 0, nil
}

func (r *PlaylistRepository) exec(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: failed to %s: %v", shared.ErrPersistence, op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to get affected rows: %v", shared.ErrPersistence, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, args[len(args)-1])
	}
	return nil
}

// scan reads one row into a [models.PlaylistData]
func (r *PlaylistRepository) scan(row scanner) (*models.PlaylistData, error) {
	var (
		p                                 models.PlaylistData
		palette, keywords, emojis, tracks string
		score                             sql.NullInt64
		createdAt, updatedAt              time.Time
	)

	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &palette, &keywords, &p.CoverImageURL, &emojis,
		&p.SongCount, &p.Vibe, &tracks, &p.SpotifyURL, &p.IsSpotifyPlaylist, &score, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrPlaylistNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to scan playlist: %v", shared.ErrPersistence, err)
	}

	columns := []struct {
		raw    string
		target any
	}{
		{palette, &p.ColorPalette},
		{keywords, &p.Keywords},
		{emojis, &p.Emojis},
		{tracks, &p.Tracks},
	}
	for _, c := range columns {
		if err := decodeColumn(c.raw, c.target); err != nil {
			return nil, err
		}
	}
	if score.Valid {
		s := int(score.Int64)
		p.UniquenessScore = &s
	}
	p.CreatedAt, p.UpdatedAt = createdAt, updatedAt
	return &p, nil
}
