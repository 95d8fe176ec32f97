// Package repositories implements SQLite persistence for generated playlists and vendor sessions.
//
// Key Implementations:
//   - [PlaylistRepository] : Playlist documents keyed by id, with list columns stored as JSON text.
//     Inserts are upserts that never overwrite, so concurrent saves of one id produce one row.
//   - [TokenRepository] : OAuth tokens keyed by service name, satisfying the session token store.
//
// Every failure that reaches the database is wrapped in [shared.ErrPersistence]; lookups of
// missing playlists return [shared.ErrPlaylistNotFound].
package repositories
