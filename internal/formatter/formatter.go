// package formatter exports playlists to JSON, CSV, Markdown and plain text, and imports them back from JSON or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/desertthunder/vibemix/internal/validation"
)

// ExportVersion is written into every JSON export envelope.
const ExportVersion = "1.0.0"

var csvHeaders = []string{"Track Name", "Artist(s)", "Album", "Duration (ms)", "Spotify URI", "Spotify URL"}

// Format describes one export format.
type Format struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Extension   string `json:"extension"`
}

var formats = map[string]Format{
	"json":     {Name: "JSON", Description: "Complete playlist data in JSON format", Extension: ".json"},
	"csv":      {Name: "CSV", Description: "Track list in comma-separated values format", Extension: ".csv"},
	"txt":      {Name: "Text", Description: "Human-readable playlist summary", Extension: ".txt"},
	"markdown": {Name: "Markdown", Description: "Track list as a Markdown document", Extension: ".md"},
}

// SupportedFormats lists the export format keys.
func SupportedFormats() []string {
	return []string{"json", "csv", "txt", "markdown"}
}

// FormatInfo returns the description of format, matched case-insensitively.
func FormatInfo(format string) (Format, bool) {
	f, ok := formats[strings.ToLower(strings.TrimSpace(format))]
	return f, ok
}

// Envelope is the JSON export document.
type Envelope struct {
	Version    string               `json:"version"`
	ExportDate string               `json:"exportDate"`
	Playlist   *models.PlaylistData `json:"playlist"`
}

// Export renders playlist in format.
func Export(playlist *models.PlaylistData, format string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		return ExportJSON(playlist)
	case "csv":
		return ExportCSV(playlist)
	case "txt", "text":
		return ExportText(playlist)
	case "markdown", "md":
		return ExportMarkdown(playlist)
	default:
		return "", fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportJSON wraps playlist in a versioned envelope. Internal ids are stripped.
func ExportJSON(playlist *models.PlaylistData) (string, error) {
	p, err := prepare(playlist)
	if err != nil {
		return "", err
	}

	data, err := shared.MarshalJSON(Envelope{
		Version:    ExportVersion,
		ExportDate: time.Now().UTC().Format(time.RFC3339Nano),
		Playlist:   p,
	}, true)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	return string(data), nil
}

// ExportCSV writes one row per track with columns: Track Name, Artist(s), Album, Duration (ms), Spotify URI, Spotify URL
func ExportCSV(playlist *models.PlaylistData) (string, error) {
	p, err := prepare(playlist)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeaders); err != nil {
		return "", fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range p.Tracks {
		record := []string{
			track.Name,
			track.ArtistNames(),
			track.Album.Name,
			fmt.Sprintf("%d", track.DurationMs),
			track.URI,
			track.ExternalURL,
		}
		if err := writer.Write(record); err != nil {
			return "", fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.String(), nil
}

// ExportText renders a human-readable summary followed by the numbered track list.
func ExportText(playlist *models.PlaylistData) (string, error) {
	p, err := prepare(playlist)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "Playlist: %s\n", p.Name)
	fmt.Fprintf(&buf, "Description: %s\n", p.Description)
	fmt.Fprintf(&buf, "Vibe: %s\n", p.Vibe)
	fmt.Fprintf(&buf, "Emojis: %s\n", strings.Join(p.Emojis, " "))
	fmt.Fprintf(&buf, "Songs: %d\n", p.SongCount)
	fmt.Fprintf(&buf, "Created: %s\n\n", createdLabel(playlist.CreatedAt))

	buf.WriteString("Tracks:\n")
	buf.WriteString(strings.Repeat("=", 50) + "\n\n")

	for i, track := range p.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, track.Name)
		fmt.Fprintf(&buf, "   Artist: %s\n", track.ArtistNames())
		fmt.Fprintf(&buf, "   Album: %s\n", track.Album.Name)
		fmt.Fprintf(&buf, "   Duration: %s\n", shared.FormatDuration(track.DurationMs))
		fmt.Fprintf(&buf, "   Spotify: %s\n\n", track.ExternalURL)
	}
	return buf.String(), nil
}

// ExportMarkdown renders the playlist as a Markdown document with its cover, palette and tracks.
func ExportMarkdown(playlist *models.PlaylistData) (string, error) {
	p, err := prepare(playlist)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "# %s\n\n", p.Name)

	if p.CoverImageURL != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", p.CoverImageURL)
	}
	if p.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", p.Description)
	}

	fmt.Fprintf(&buf, "**Vibe**: %s %s\n", p.Vibe, strings.Join(p.Emojis, ""))
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(p.Tracks))
	fmt.Fprintf(&buf, "**Palette**: %s\n", strings.Join(p.ColorPalette, " "))
	if len(p.Keywords) > 0 {
		fmt.Fprintf(&buf, "**Keywords**: %s\n", strings.Join(p.Keywords, ", "))
	}
	if p.UniquenessScore != nil {
		fmt.Fprintf(&buf, "**Uniqueness**: %d/100\n", *p.UniquenessScore)
	}
	if p.SpotifyURL != "" {
		fmt.Fprintf(&buf, "**Spotify**: %s\n", p.SpotifyURL)
	}

	buf.WriteString("\n## Tracks\n\n")
	for i, track := range p.Tracks {
		albumPart := ""
		if track.Album.Name != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album.Name)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.ArtistNames(), track.Name, albumPart, shared.FormatDuration(track.DurationMs))
	}
	return buf.String(), nil
}

// WriteExport renders playlist in format and writes it to path, creating parent directories.
// An empty path defaults to {name}{extension} in the working directory.
func WriteExport(playlist *models.PlaylistData, format, path string) (string, error) {
	info, ok := FormatInfo(format)
	if !ok {
		return "", fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, format)
	}

	content, err := Export(playlist, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = fileName(playlist.Name) + info.Extension
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", info.Name, err)
	}
	return path, nil
}

// prepare validates playlist and returns an export copy without internal ids.
func prepare(playlist *models.PlaylistData) (*models.PlaylistData, error) {
	if err := validation.ValidatePlaylistData(playlist).Err(); err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}

	p := playlist.Clone()
	p.ID, p.UserID = "", ""

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	return p, nil
}

func createdLabel(t time.Time) string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Local().Format("Jan 2, 2006")
}

func fileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ' || r == '_':
			return '-'
		default:
			return -1
		}
	}, name)
	if cleaned == "" {
		return "playlist"
	}
	return cleaned
}
