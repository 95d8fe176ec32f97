package formatter

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/shared"
	tu "github.com/desertthunder/vibemix/internal/testing"
	"github.com/tidwall/gjson"
)

func samplePlaylist() *models.PlaylistData {
	p := tu.Playlist(tu.Tracks(3)...)
	p.ID = "pl-1"
	p.UserID = "user-1"
	p.Tracks[1].Name = "Song, With Comma"
	p.Tracks[1].Artists = append(p.Tracks[1].Artists, models.Artist{ID: "artist-x", Name: "Guest"})
	p.CreatedAt = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	return p
}

func TestExporters(t *testing.T) {
	t.Run("ExportJSON", func(t *testing.T) {
		out, err := ExportJSON(samplePlaylist())
		if err != nil {
			t.Fatalf("ExportJSON failed: %v", err)
		}

		doc := gjson.Parse(out)
		if doc.Get("version").String() != "1.0.0" {
			t.Errorf("expected version 1.0.0, got %s", doc.Get("version").String())
		}
		if _, err := time.Parse(time.RFC3339Nano, doc.Get("exportDate").String()); err != nil {
			t.Errorf("expected an RFC3339 export date, got %s", doc.Get("exportDate").String())
		}
		if doc.Get("playlist.id").Exists() || doc.Get("playlist.userId").Exists() {
			t.Error("expected internal ids to be stripped")
		}
		if doc.Get("playlist.tracks.#").Int() != 3 {
			t.Errorf("expected 3 tracks, got %d", doc.Get("playlist.tracks.#").Int())
		}
	})

	t.Run("ExportCSV", func(t *testing.T) {
		out, err := ExportCSV(samplePlaylist())
		if err != nil {
			t.Fatalf("ExportCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(out), "\n")
		if lines[0] != "Track Name,Artist(s),Album,Duration (ms),Spotify URI,Spotify URL" {
			t.Errorf("unexpected header %q", lines[0])
		}
		if len(lines) != 4 {
			t.Fatalf("expected header and 3 rows, got %d lines", len(lines))
		}
		if !strings.HasPrefix(lines[2], `"Song, With Comma","Artist 2, Guest",`) {
			t.Errorf("expected quoted fields, got %q", lines[2])
		}
		if !strings.HasSuffix(lines[1], ",200000,spotify:track:t1,https://open.spotify.com/track/t1") {
			t.Errorf("unexpected row %q", lines[1])
		}
	})

	t.Run("ExportText", func(t *testing.T) {
		out, err := ExportText(samplePlaylist())
		if err != nil {
			t.Fatalf("ExportText failed: %v", err)
		}
		for _, want := range []string{
			"Playlist: velvet static",
			"Vibe: late night drive",
			"Emojis: 🌙 ✨",
			"Songs: 3",
			strings.Repeat("=", 50),
			"2. Song, With Comma",
			"   Artist: Artist 2, Guest",
			"   Duration: 3:20",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("text export missing %q", want)
			}
		}
	})

	t.Run("ExportMarkdown", func(t *testing.T) {
		out, err := ExportMarkdown(samplePlaylist())
		if err != nil {
			t.Fatalf("ExportMarkdown failed: %v", err)
		}
		for _, want := range []string{"# velvet static", "![Cover](https://images.example.com/cover.png)", "**Uniqueness**: 72/100", "1. Artist 1 - Song 1 (Song 1 (Single)) [3:20]"} {
			if !strings.Contains(out, want) {
				t.Errorf("markdown export missing %q", want)
			}
		}
	})

	t.Run("Invalid Playlist", func(t *testing.T) {
		p := samplePlaylist()
		p.SongCount = 7
		p.ColorPalette = []string{"red"}

		for _, format := range SupportedFormats() {
			_, err := Export(p, format)
			var verr *shared.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("%s: expected ValidationError, got %v", format, err)
			}
			if len(verr.Errors) < 2 {
				t.Errorf("%s: expected aggregated messages, got %v", format, verr.Errors)
			}
		}
	})

	t.Run("Unknown Format", func(t *testing.T) {
		if _, err := Export(samplePlaylist(), "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestImportJSON(t *testing.T) {
	t.Run("Round Trip", func(t *testing.T) {
		original := samplePlaylist()
		out, err := ExportJSON(original)
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}

		res := ImportJSON(out)
		if !res.Success {
			t.Fatalf("import failed: %v", res.Errors)
		}
		p := res.Playlist
		if !strings.HasPrefix(p.ID, "imported-") || p.ID == original.ID {
			t.Errorf("expected a fresh imported id, got %s", p.ID)
		}
		if p.UserID != "" {
			t.Errorf("expected no user id, got %s", p.UserID)
		}
		if p.Name != original.Name || p.SongCount != 3 || len(p.Tracks) != 3 {
			t.Errorf("unexpected playlist %+v", p)
		}
		for i := range p.Tracks {
			if p.Tracks[i].ID != original.Tracks[i].ID || p.Tracks[i].ArtistNames() != original.Tracks[i].ArtistNames() {
				t.Errorf("track %d differs after round trip", i)
			}
		}
	})

	t.Run("Bare Object", func(t *testing.T) {
		out, _ := ExportJSON(samplePlaylist())
		bare := gjson.Get(out, "playlist").Raw
		if res := ImportJSON(bare); !res.Success {
			t.Errorf("expected bare playlist to import, got %v", res.Errors)
		}
	})

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"Invalid JSON", "{not json", "JSON parsing failed"},
		{"Array", "[1,2]", "Invalid JSON format"},
		{"Missing Playlist", `{"version":"1.0.0"}`, "Unsupported format"},
		{"Tracks Not Array", `{"name":"x","tracks":"nope"}`, "missing name or tracks"},
		{"Fails Validation", `{"name":"x","tracks":[],"songCount":0,"colorPalette":["#000000","#111111","#222222"]}`, "at least one track"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ImportJSON(tt.content)
			if res.Success {
				t.Fatal("expected import to fail")
			}
			if !strings.Contains(strings.Join(res.Errors, "; "), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, res.Errors)
			}
		})
	}
}

func TestImportCSV(t *testing.T) {
	t.Run("Round Trip", func(t *testing.T) {
		out, err := ExportCSV(samplePlaylist())
		if err != nil {
			t.Fatalf("export failed: %v", err)
		}

		res := ImportCSV(out)
		if !res.Success {
			t.Fatalf("import failed: %v", res.Errors)
		}
		p := res.Playlist
		if p.Name != "Imported Playlist" || p.Vibe != "imported" || p.SongCount != 3 {
			t.Errorf("unexpected defaults %+v", p)
		}
		if p.Tracks[1].ID != "t2" || p.Tracks[1].Name != "Song, With Comma" || p.Tracks[1].ArtistNames() != "Artist 2, Guest" {
			t.Errorf("unexpected track %+v", p.Tracks[1])
		}
		if !strings.HasPrefix(p.ID, "imported-") || len(res.Warnings) != 0 {
			t.Errorf("unexpected id %s or warnings %v", p.ID, res.Warnings)
		}
	})

	t.Run("Skips Malformed Rows", func(t *testing.T) {
		content := strings.Join([]string{
			"Track Name,Artist(s),Album,Duration (ms),Spotify URI,Spotify URL",
			"Good Song,Someone,Record,181000,spotify:track:abc,https://open.spotify.com/track/abc",
			"Short Row,Someone",
			"Bad Duration,Someone,Record,soon,spotify:track:def,",
			"Duplicate,Someone,Record,181000,spotify:track:abc,",
			"No Uri,Someone Else,,95000,,",
		}, "\n")

		res := ImportCSV(content)
		if !res.Success {
			t.Fatalf("import failed: %v", res.Errors)
		}
		if len(res.Playlist.Tracks) != 2 {
			t.Errorf("expected 2 tracks, got %d", len(res.Playlist.Tracks))
		}
		if len(res.Warnings) != 3 {
			t.Errorf("expected 3 warnings, got %v", res.Warnings)
		}
		last := res.Playlist.Tracks[1]
		if !strings.HasPrefix(last.ID, "imported-") || last.Album.Name != "Unknown Album" {
			t.Errorf("expected generated id and album default, got %+v", last)
		}
	})

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"Empty", "", "at least a header"},
		{"Missing Headers", "Title,Artist\nx,y", "Missing required headers"},
		{"No Valid Rows", "Track Name,Artist(s),Album,Duration (ms),Spotify URI\nx,y,z,0,u", "No valid tracks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ImportCSV(tt.content)
			if res.Success {
				t.Fatal("expected import to fail")
			}
			if !strings.Contains(strings.Join(res.Errors, "; "), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, res.Errors)
			}
		})
	}
}

func TestFormatInfo(t *testing.T) {
	if info, ok := FormatInfo("CSV"); !ok || info.Extension != ".csv" {
		t.Errorf("unexpected csv info %+v", info)
	}
	if _, ok := FormatInfo("xml"); ok {
		t.Error("expected unknown format")
	}
	for _, f := range SupportedFormats() {
		if _, ok := FormatInfo(f); !ok {
			t.Errorf("supported format %s has no info", f)
		}
	}
}

func TestWriteExport(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteExport(samplePlaylist(), "markdown", filepath.Join(dir, "nested", "out.md"))
	if err != nil {
		t.Fatalf("WriteExport failed: %v", err)
	}
	tu.AssertFileExists(t, path)
	if !strings.Contains(tu.MustReadFile(t, path), "## Tracks") {
		t.Error("expected markdown content")
	}

	if _, err := WriteExport(samplePlaylist(), "xml", filepath.Join(dir, "x")); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
