package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/vibemix/internal/formatter"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/urfave/cli/v3"
)

// LibraryList prints the current user's saved playlists.
func (r *Runner) LibraryList(ctx context.Context, cmd *cli.Command) error {
	gateway, err := r.gateway()
	if err != nil {
		return err
	}
	userID, err := r.currentUser(ctx)
	if err != nil {
		return err
	}

	playlists, err := gateway.List(ctx, userID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}

	if len(playlists) == 0 {
		r.writePlain("No saved playlists.\n")
		return nil
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Vibe: %s %s\n", strings.Join(p.Emojis, " "), p.Vibe)
		r.writePlain("   Tracks: %d\n", len(p.Tracks))
		if p.SpotifyURL != "" {
			r.writePlain("   Spotify: %s\n", p.SpotifyURL)
		}
		r.writePlain("\n")
	}
	return nil
}

// LibrarySave stores a playlist read from a JSON export.
func (r *Runner) LibrarySave(ctx context.Context, cmd *cli.Command) error {
	result, err := r.readImport(cmd.String("file"), "json")
	if err != nil {
		return err
	}

	id, err := r.savePlaylist(ctx, result.Playlist)
	if err != nil {
		return err
	}
	r.writePlain("✓ Saved %s: %s\n", result.Playlist.Name, id)
	return nil
}

// LibraryDelete removes a saved playlist.
func (r *Runner) LibraryDelete(ctx context.Context, cmd *cli.Command) error {
	gateway, err := r.gateway()
	if err != nil {
		return err
	}
	id := cmd.String("id")
	if err := gateway.Delete(ctx, id); err != nil {
		return err
	}
	r.writePlain("✓ Deleted %s\n", id)
	return nil
}

// LibraryEdit changes the name, description or cover of a saved playlist. Omitted flags keep
// their current value.
func (r *Runner) LibraryEdit(ctx context.Context, cmd *cli.Command) error {
	name, description, cover := cmd.String("name"), cmd.String("description"), cmd.String("cover")
	if name == "" && description == "" && cover == "" {
		return fmt.Errorf("%w: one of --name, --description or --cover is required", shared.ErrMissingArgument)
	}

	gateway, err := r.gateway()
	if err != nil {
		return err
	}

	id := cmd.String("id")
	existing, err := gateway.Get(ctx, id)
	if err != nil {
		return err
	}
	if name == "" {
		name = existing.Name
	}
	if description == "" {
		description = existing.Description
	}

	if err := gateway.UpdateMetadata(ctx, id, name, description, cover); err != nil {
		return err
	}
	r.writePlain("✓ Updated %s\n", id)
	return nil
}

// LibraryBackfill copies the current user's expiring covers to durable storage.
func (r *Runner) LibraryBackfill(ctx context.Context, cmd *cli.Command) error {
	gateway, err := r.gateway()
	if err != nil {
		return err
	}
	userID, err := r.currentUser(ctx)
	if err != nil {
		return err
	}

	result, err := gateway.Backfill(ctx, userID)
	if err != nil {
		return err
	}
	r.writePlain("✓ Covers: %d pending, %d migrated, %d failed\n", result.Total, result.Migrated, result.Failed)
	return nil
}

// Export renders a saved playlist to stdout or a file.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String("format"))
	if _, ok := formatter.FormatInfo(format); !ok {
		return fmt.Errorf("%w: unsupported format %q (use %s)", shared.ErrInvalidArgument, format, strings.Join(formatter.SupportedFormats(), ", "))
	}

	gateway, err := r.gateway()
	if err != nil {
		return err
	}
	playlist, err := gateway.Get(ctx, cmd.String("id"))
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		content, err := formatter.Export(playlist, format)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", content)
	}

	path, err := formatter.WriteExport(playlist, format, output)
	if err != nil {
		return err
	}
	r.logger.Infof("playlist exported to %v with %v tracks", path, len(playlist.Tracks))
	r.writePlain("✓ Playlist exported to %s\n", path)
	r.writePlain("  Playlist: %s\n", playlist.Name)
	r.writePlain("  Tracks: %d\n", len(playlist.Tracks))
	return nil
}

// Import parses a JSON or CSV playlist and saves it unless --dry-run is set.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	result, err := r.readImport(cmd.String("file"), cmd.String("format"))
	if err != nil {
		return err
	}

	if cmd.Bool("dry-run") {
		r.writePlain("✓ Valid playlist: %s (%d tracks)\n", result.Playlist.Name, len(result.Playlist.Tracks))
		return nil
	}

	id, err := r.savePlaylist(ctx, result.Playlist)
	if err != nil {
		return err
	}
	r.writePlain("✓ Imported %s: %s (%d tracks)\n", result.Playlist.Name, id, len(result.Playlist.Tracks))
	return nil
}

// readImport loads path and parses it in format, detected from the extension when empty.
// Warnings are printed; a failed import returns every error joined into one.
func (r *Runner) readImport(path, format string) (formatter.ImportResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return formatter.ImportResult{}, fmt.Errorf("%w: failed to read %s: %v", shared.ErrInvalidArgument, path, err)
	}

	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}

	result := formatter.Import(string(content), format)
	for _, w := range result.Warnings {
		r.writePlain("⚠ %s\n", w)
	}
	if !result.Success {
		return result, fmt.Errorf("%w: %s", shared.ErrInvalidInput, strings.Join(result.Errors, "; "))
	}
	return result, nil
}
