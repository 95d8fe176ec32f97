package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/validation"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

var requiredCSVHeaders = csvHeaders[:5]

// ImportResult is the outcome of an import. Playlist is set only on success.
type ImportResult struct {
	Success  bool                 `json:"success"`
	Playlist *models.PlaylistData `json:"playlist,omitempty"`
	Errors   []string             `json:"errors,omitempty"`
	Warnings []string             `json:"warnings,omitempty"`
}

func failed(errs ...string) ImportResult {
	return ImportResult{Success: false, Errors: errs}
}

// Import parses content in format ("json" or "csv").
func Import(content, format string) ImportResult {
	switch strings.ToLower(format) {
	case "json":
		return ImportJSON(content)
	case "csv":
		return ImportCSV(content)
	default:
		return failed(fmt.Sprintf("Unsupported import format: %s", format))
	}
}

// ImportJSON accepts an export envelope or a bare playlist object.
func ImportJSON(content string) ImportResult {
	if !gjson.Valid(content) {
		return failed("JSON parsing failed: invalid JSON")
	}

	doc := gjson.Parse(content)
	if !doc.IsObject() {
		return failed("Invalid JSON format")
	}

	var raw gjson.Result
	switch {
	case doc.Get("version").Exists() && doc.Get("playlist").IsObject():
		raw = doc.Get("playlist")
	case doc.Get("name").Exists() && doc.Get("tracks").Exists():
		raw = doc
	default:
		return failed("Unsupported format: missing playlist data")
	}

	if raw.Get("name").String() == "" || !raw.Get("tracks").IsArray() {
		return failed("Invalid playlist data: missing name or tracks")
	}

	var playlist models.PlaylistData
	if err := json.Unmarshal([]byte(raw.Raw), &playlist); err != nil {
		return failed(fmt.Sprintf("Import validation failed: %v", err))
	}

	if result := validation.ValidatePlaylistData(&playlist); !result.IsValid {
		return failed(result.Errors...)
	}

	imported := validation.SanitizePlaylistData(&playlist)
	stamp(imported)
	return ImportResult{Success: true, Playlist: imported}
}

// ImportCSV reads a track list written by [ExportCSV].
//
// Columns are located by header name. Malformed rows are skipped with a warning;
// a file without any valid row fails.
func ImportCSV(content string) ImportResult {
	reader := csv.NewReader(strings.NewReader(strings.TrimSpace(content)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return failed("CSV must have at least a header and one data row")
	}
	if err != nil {
		return failed(fmt.Sprintf("CSV import failed: %v", err))
	}

	columns, missing := locateColumns(header)
	if len(missing) > 0 {
		return failed(fmt.Sprintf("Missing required headers: %s", strings.Join(missing, ", ")))
	}

	var (
		tracks   []models.Track
		warnings []string
		seen     = map[string]struct{}{}
	)
	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Skipping row %d: %v", row, err))
			continue
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < len(requiredCSVHeaders) {
			warnings = append(warnings, fmt.Sprintf("Skipping invalid row %d: insufficient data", row))
			continue
		}

		track, err := trackFromRecord(record, columns, row)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Skipping row %d: %v", row, err))
			continue
		}
		if _, dup := seen[track.ID]; dup {
			warnings = append(warnings, fmt.Sprintf("Skipping row %d: duplicate track %s", row, track.ID))
			continue
		}
		seen[track.ID] = struct{}{}
		tracks = append(tracks, track)
	}

	if len(tracks) == 0 {
		return ImportResult{Success: false, Errors: []string{"No valid tracks found in CSV"}, Warnings: warnings}
	}

	playlist := &models.PlaylistData{
		Name:         "Imported Playlist",
		Description:  "playlist imported from csv",
		ColorPalette: []string{"#6366F1", "#8B5CF6", "#A855F7"},
		Keywords:     []string{},
		Emojis:       []string{"📱"},
		SongCount:    len(tracks),
		Vibe:         "imported",
		Tracks:       tracks,
	}
	stamp(playlist)
	return ImportResult{Success: true, Playlist: playlist, Warnings: warnings}
}

func locateColumns(header []string) (map[string]int, []string) {
	columns := make(map[string]int, len(csvHeaders))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, want := range csvHeaders {
			if _, taken := columns[want]; !taken && strings.Contains(h, strings.ToLower(want)) {
				columns[want] = i
				break
			}
		}
	}

	var missing []string
	for _, want := range requiredCSVHeaders {
		if _, ok := columns[want]; !ok {
			missing = append(missing, want)
		}
	}
	return columns, missing
}

func trackFromRecord(record []string, columns map[string]int, row int) (models.Track, error) {
	field := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	name := field("Track Name")
	if name == "" {
		return models.Track{}, fmt.Errorf("track name is empty")
	}
	duration, err := strconv.Atoi(field("Duration (ms)"))
	if err != nil || duration <= 0 {
		return models.Track{}, fmt.Errorf("invalid duration %q", field("Duration (ms)"))
	}

	uri := field("Spotify URI")
	id := strings.TrimPrefix(uri, "spotify:track:")
	if id == "" || id == uri {
		id = fmt.Sprintf("imported-%s-%d", uuid.NewString()[:8], row)
	}

	artist := field("Artist(s)")
	if artist == "" {
		artist = "Unknown Artist"
	}
	album := field("Album")
	if album == "" {
		album = "Unknown Album"
	}

	return models.Track{
		ID:          id,
		Name:        name,
		Artists:     []models.Artist{{ID: fmt.Sprintf("imported-artist-%d", row), Name: artist}},
		Album:       models.Album{ID: fmt.Sprintf("imported-album-%d", row), Name: album},
		DurationMs:  duration,
		URI:         uri,
		ExternalURL: field("Spotify URL"),
	}, nil
}

// stamp gives an imported playlist a fresh id and timestamps and detaches it from any user.
func stamp(p *models.PlaylistData) {
	now := time.Now().UTC()
	p.ID = "imported-" + uuid.NewString()
	p.UserID = ""
	p.IsSpotifyPlaylist = false
	p.SpotifyURL = ""
	p.CreatedAt, p.UpdatedAt = now, now
}
