package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/desertthunder/vibemix/internal/generation"
	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/desertthunder/vibemix/internal/tasks"
	"github.com/desertthunder/vibemix/internal/validation"
	"github.com/urfave/cli/v3"
)

const defaultSongCount = 20

// batchItemView is the JSON shape of one batch outcome.
type batchItemView struct {
	Index    int                    `json:"index"`
	Request  models.PlaylistRequest `json:"request"`
	Playlist *models.PlaylistData   `json:"playlist,omitempty"`
	SavedID  string                 `json:"savedId,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// Generate creates one playlist and optionally saves and publishes it.
func (r *Runner) Generate(ctx context.Context, cmd *cli.Command) error {
	req := models.PlaylistRequest{
		Emojis:    cmd.StringSlice("emoji"),
		SongCount: cmd.Int("songs"),
		Vibe:      cmd.String("vibe"),
	}
	if err := validation.ValidateRequest(req).Err(); err != nil {
		return err
	}

	engine, err := r.pipeline()
	if err != nil {
		return err
	}

	stream := cmd.Bool("stream")
	progress, finish := r.progressPrinter(stream)
	playlist, err := engine.GenerateStreaming(ctx, progress, req, tasks.GenerateOpts{NoCache: cmd.Bool("no-cache")})
	finish()
	if err != nil {
		return err
	}

	var savedID string
	if cmd.Bool("save") {
		if savedID, err = r.savePlaylist(ctx, playlist); err != nil {
			return err
		}
		playlist.ID = savedID
	}

	if cmd.Bool("publish") {
		progress, finish := r.progressPrinter(stream)
		published, err := engine.Publish(ctx, progress, playlist)
		finish()
		if err != nil {
			return err
		}
		playlist = published
		if savedID != "" {
			if err := r.library.MarkPublished(ctx, savedID, playlist.SpotifyURL); err != nil {
				r.logger.Warn("failed to record published playlist", "id", savedID, "error", err)
			}
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, cmd.Bool("pretty"))
	}

	r.printPlaylist(playlist)
	if savedID != "" {
		r.writePlain("✓ Saved to library: %s\n", savedID)
	}
	if playlist.SpotifyURL != "" {
		r.writePlain("✓ On Spotify: %s\n", playlist.SpotifyURL)
	}
	return nil
}

// Batch generates one playlist per request line of --file.
func (r *Runner) Batch(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("file")
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: failed to read %s: %v", shared.ErrInvalidArgument, path, err)
	}

	requests, err := parseBatchFile(string(content))
	if err != nil {
		return err
	}

	engine, err := r.pipeline()
	if err != nil {
		return err
	}

	useJSON := cmd.Bool("json")
	progress, finish := r.progressPrinter(!useJSON)
	result, err := engine.GenerateMany(ctx, progress, requests, tasks.BatchOpts{
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
		NoCache:    cmd.Bool("no-cache"),
	})
	finish()
	if err != nil {
		return err
	}

	views := make([]batchItemView, len(result.Items))
	for i, item := range result.Items {
		views[i] = batchItemView{Index: item.Index, Request: item.Request, Playlist: item.Playlist}
		if item.Error != nil {
			views[i].Error = shared.UserMessage(item.Error)
			continue
		}
		if cmd.Bool("save") {
			id, err := r.savePlaylist(ctx, item.Playlist)
			if err != nil {
				r.logger.Warn("failed to save batch playlist", "index", item.Index, "error", err)
				views[i].Error = shared.UserMessage(err)
				continue
			}
			views[i].SavedID = id
		}
	}

	if useJSON {
		return r.writeJSON(views, true)
	}

	r.writePlainHeader(fmt.Sprintf("Batch: %d succeeded, %d failed", result.Succeeded, result.Failed))
	for _, v := range views {
		label := strings.Join(v.Request.Emojis, " ") + " " + v.Request.Vibe
		if v.Playlist == nil {
			r.writePlain("%d. ✗ %s\n   %s\n", v.Index+1, strings.TrimSpace(label), v.Error)
			continue
		}
		r.writePlain("%d. ✓ %s (%d tracks)\n", v.Index+1, v.Playlist.Name, len(v.Playlist.Tracks))
		if v.SavedID != "" {
			r.writePlain("   Saved: %s\n", v.SavedID)
		} else if v.Error != "" {
			r.writePlain("   Not saved: %s\n", v.Error)
		}
	}
	return nil
}

// parseBatchFile reads one request per line in the form "emojis | songs | vibe".
//
// Emojis are whitespace separated; an empty song count means 20. Blank lines and lines starting with
// # are skipped. Requests are not validated here so that one bad line only fails its own item.
func parseBatchFile(content string) ([]models.PlaylistRequest, error) {
	var requests []models.PlaylistRequest

	scanner := bufio.NewScanner(strings.NewReader(content))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		parts := strings.SplitN(text, "|", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: line %d: expected \"emojis | songs | vibe\"", shared.ErrInvalidInput, line)
		}

		count := defaultSongCount
		if raw := strings.TrimSpace(parts[1]); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: song count %q is not a number", shared.ErrInvalidInput, line, raw)
			}
			count = n
		}

		requests = append(requests, models.PlaylistRequest{
			Emojis:    strings.Fields(parts[0]),
			SongCount: count,
			Vibe:      strings.TrimSpace(parts[2]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: no requests in batch file", shared.ErrMissingArgument)
	}
	return requests, nil
}

// progressPrinter returns a channel whose updates are printed until finish is called.
// When enabled is false the channel is nil and nothing is printed.
func (r *Runner) progressPrinter(enabled bool) (chan<- tasks.ProgressUpdate, func()) {
	if !enabled {
		return nil, func() {}
	}

	progress := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		printed := 0
		for update := range progress {
			if update.Total > 0 {
				r.writePlain("[%s] %d/%d %s\n", update.Phase, update.Step, update.Total, update.Message)
			} else {
				r.writePlain("[%s] %s\n", update.Phase, update.Message)
			}
			if report, ok := update.Data.(generation.RoundReport); ok {
				for _, t := range report.Tracks[min(printed, len(report.Tracks)):] {
					r.writePlain("    + %s - %s\n", t.ArtistNames(), t.Name)
				}
				printed = max(printed, len(report.Tracks))
			}
		}
	}()

	return progress, func() {
		close(progress)
		wg.Wait()
	}
}

func (r *Runner) savePlaylist(ctx context.Context, playlist *models.PlaylistData) (string, error) {
	gateway, err := r.gateway()
	if err != nil {
		return "", err
	}
	userID, err := r.currentUser(ctx)
	if err != nil {
		return "", err
	}
	return gateway.Save(ctx, playlist, userID)
}

func (r *Runner) printPlaylist(p *models.PlaylistData) {
	r.writePlainHeader(p.Name)
	if p.Description != "" {
		r.writePlain("%s\n", p.Description)
	}
	r.writePlain("Vibe: %s %s\n", strings.Join(p.Emojis, " "), p.Vibe)
	if len(p.ColorPalette) > 0 {
		r.writePlain("Palette: %s\n", strings.Join(p.ColorPalette, " "))
	}
	if p.CoverImageURL != "" {
		r.writePlain("Cover: %s\n", p.CoverImageURL)
	}
	if p.UniquenessScore != nil {
		r.writePlain("Uniqueness: %d/100\n", *p.UniquenessScore)
	}
	r.writePlain("Tracks: %d/%d\n\n", len(p.Tracks), p.SongCount)

	for i, track := range p.Tracks {
		r.writePlain("%2d. %s - %s (%s)\n", i+1, track.ArtistNames(), track.Name, shared.FormatDuration(track.DurationMs))
	}
}
