package tasks

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/desertthunder/vibemix/internal/storage"
	"github.com/go-resty/resty/v2"
)

const (
	// maxCoverUpload is the vendor's limit for an uploaded playlist image, which is sent base64 encoded.
	maxCoverUpload = 256 << 10
	// maxCoverJPEG is the largest raw JPEG whose base64 encoding fits in maxCoverUpload.
	maxCoverJPEG = maxCoverUpload * 3 / 4
)

// Publish saves playlist to the music vendor: it creates the vendor playlist, adds the tracks and
// uploads the cover. The returned copy carries the vendor id and URL.
//
// A cover that cannot be downloaded or converted is logged and skipped.
func (e *PlaylistEngine) Publish(ctx context.Context, progress chan<- ProgressUpdate, playlist *models.PlaylistData) (*models.PlaylistData, error) {
	if e.vendor == nil {
		return nil, fmt.Errorf("%w: music vendor not initialized", shared.ErrServiceUnavailable)
	}
	if playlist == nil || len(playlist.Tracks) == 0 {
		return nil, fmt.Errorf("%w: playlist has no tracks", shared.ErrInvalidArgument)
	}

	const steps = 3
	e.sendProgress(progress, publishUpdate(1, steps, "Creating playlist on Spotify..."))
	id, url, err := e.vendor.CreatePlaylist(ctx, playlist.Name, playlist.Description, false)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, publishUpdate(2, steps, fmt.Sprintf("Adding %d tracks...", len(playlist.Tracks))))
	if err := e.vendor.AddTracks(ctx, id, playlist.TrackIDs()); err != nil {
		return nil, err
	}

	if playlist.CoverImageURL != "" {
		e.sendProgress(progress, publishUpdate(3, steps, "Uploading cover image..."))
		if err := e.uploadCover(ctx, id, playlist.CoverImageURL); err != nil {
			e.logger.Warn("cover upload skipped", "playlist", id, "error", err)
		}
	}

	published := playlist.Clone()
	published.ID = id
	published.SpotifyURL = url
	published.IsSpotifyPlaylist = true

	e.logger.Info("published playlist", "id", id, "url", url, "tracks", len(playlist.Tracks))
	e.sendProgress(progress, publishUpdate(steps, steps, "Saved to Spotify!"))
	return published, nil
}

func (e *PlaylistEngine) uploadCover(ctx context.Context, playlistID, coverURL string) error {
	data, err := storage.Download(ctx, resty.New(), coverURL)
	if err != nil {
		return err
	}
	encoded, err := CoverJPEG(data)
	if err != nil {
		return err
	}
	return e.vendor.SetPlaylistImage(ctx, playlistID, encoded)
}

// CoverJPEG re-encodes a PNG or JPEG image as a JPEG small enough for the vendor,
// lowering quality until it fits.
func CoverJPEG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable cover image: %v", shared.ErrCoverArt, err)
	}

	var buf bytes.Buffer
	for quality := 90; quality >= 30; quality -= 15 {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("%w: failed to encode cover: %v", shared.ErrCoverArt, err)
		}
		if buf.Len() <= maxCoverJPEG {
			return buf.Bytes(), nil
		}
	}
	return nil, fmt.Errorf("%w: cover exceeds %d bytes", shared.ErrCoverArt, maxCoverJPEG)
}
