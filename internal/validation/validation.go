// package validation checks and normalizes generation input and playlist data.
//
// The strict validators report every violation at once; the sanitizers are the forgiving
// path that coerces input into range instead of rejecting it.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/samber/lo"
)

const (
	MaxEmojis     = 10
	MinSongCount  = 1
	MaxSongCount  = 50
	MaxVibeLength = 200
	MaxKeywords   = 20
	MaxNameLength = 100
	MaxDescLength = 300
	PaletteSize   = 3
	fallbackEmoji = "🎵"
	fallbackName  = "untitled mix"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Result is the outcome of a validation pass.
type Result struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors,omitempty"`
}

// Err converts a failed result into a [*shared.ValidationError], or nil when valid.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	return &shared.ValidationError{Errors: r.Errors}
}

func result(errs []string) Result {
	return Result{IsValid: len(errs) == 0, Errors: errs}
}

// IsHexColor reports whether s is a six digit #RRGGBB color.
func IsHexColor(s string) bool {
	return hexColor.MatchString(s)
}

// Validate applies the strict pre-submission rules to raw input.
func Validate(emojis []string, songCount int, vibe string) Result {
	var errs []string

	switch {
	case len(emojis) == 0:
		errs = append(errs, "At least one emoji is required")
	case len(emojis) > MaxEmojis:
		errs = append(errs, fmt.Sprintf("Maximum %d emojis allowed", MaxEmojis))
	}
	if lo.SomeBy(emojis, func(e string) bool { return strings.TrimSpace(e) == "" }) {
		errs = append(errs, "Emojis cannot be empty")
	}

	if songCount < MinSongCount {
		errs = append(errs, "Song count must be at least 1")
	}
	if songCount > MaxSongCount {
		errs = append(errs, fmt.Sprintf("Maximum %d songs allowed", MaxSongCount))
	}

	trimmed := strings.TrimSpace(vibe)
	if trimmed == "" {
		errs = append(errs, "Vibe description is required")
	} else if utf8.RuneCountInString(trimmed) > MaxVibeLength {
		errs = append(errs, fmt.Sprintf("Vibe description must be %d characters or less", MaxVibeLength))
	}

	return result(errs)
}

// ValidateRequest validates a [models.PlaylistRequest].
func ValidateRequest(req models.PlaylistRequest) Result {
	return Validate(req.Emojis, req.SongCount, req.Vibe)
}

// Sanitize coerces input into range: blank emojis dropped, at most ten kept, song count clamped and
// the trimmed vibe cut to 200 characters.
func Sanitize(emojis []string, songCount int, vibe string) models.PlaylistRequest {
	cleaned := lo.FilterMap(emojis, func(e string, _ int) (string, bool) {
		e = strings.TrimSpace(e)
		return e, e != ""
	})
	if len(cleaned) > MaxEmojis {
		cleaned = cleaned[:MaxEmojis]
	}

	return models.PlaylistRequest{
		Emojis:    cleaned,
		SongCount: min(max(songCount, MinSongCount), MaxSongCount),
		Vibe:      shared.Truncate(strings.TrimSpace(vibe), MaxVibeLength),
	}
}

// ValidatePlaylistInfo checks generated metadata.
func ValidatePlaylistInfo(info models.PlaylistInfo) Result {
	var errs []string
	if strings.TrimSpace(info.Name) == "" {
		errs = append(errs, "Playlist name is required")
	} else if utf8.RuneCountInString(info.Name) > MaxNameLength {
		errs = append(errs, fmt.Sprintf("Playlist name must be %d characters or less", MaxNameLength))
	}
	if utf8.RuneCountInString(info.Description) > MaxDescLength {
		errs = append(errs, fmt.Sprintf("Description must be %d characters or less", MaxDescLength))
	}
	errs = append(errs, paletteErrors(info.ColorPalette)...)
	if len(info.Keywords) > MaxKeywords {
		errs = append(errs, fmt.Sprintf("Maximum %d keywords allowed", MaxKeywords))
	}
	return result(errs)
}

func paletteErrors(palette []string) []string {
	var errs []string
	if len(palette) != PaletteSize {
		errs = append(errs, fmt.Sprintf("Color palette must contain exactly %d colors", PaletteSize))
	}
	for i, c := range palette {
		if !IsHexColor(c) {
			errs = append(errs, fmt.Sprintf("Color %d is not a valid hex color: %q", i+1, c))
		}
	}
	return errs
}

// ValidateTrack checks a single track; index is used to label messages.
func ValidateTrack(track models.Track, index int) Result {
	var errs []string
	label := fmt.Sprintf("Track %d", index+1)

	if strings.TrimSpace(track.ID) == "" {
		errs = append(errs, label+": id is required")
	}
	if strings.TrimSpace(track.Name) == "" {
		errs = append(errs, label+": name is required")
	}
	if len(track.Artists) == 0 {
		errs = append(errs, label+": at least one artist is required")
	}
	for _, a := range track.Artists {
		if strings.TrimSpace(a.Name) == "" {
			errs = append(errs, label+": artist name is required")
			break
		}
	}
	if track.DurationMs <= 0 {
		errs = append(errs, label+": duration must be positive")
	}
	return result(errs)
}

// ValidatePlaylistData runs every structural check on a complete playlist.
func ValidatePlaylistData(p *models.PlaylistData) Result {
	if p == nil {
		return result([]string{"Playlist is required"})
	}

	var errs []string
	errs = append(errs, ValidatePlaylistInfo(models.PlaylistInfo{
		Name:         p.Name,
		Description:  p.Description,
		ColorPalette: p.ColorPalette,
		Keywords:     p.Keywords,
	}).Errors...)

	if len(p.Tracks) == 0 {
		errs = append(errs, "Playlist must contain at least one track")
	}
	if p.SongCount != len(p.Tracks) {
		errs = append(errs, fmt.Sprintf("Song count %d does not match %d tracks", p.SongCount, len(p.Tracks)))
	}
	if len(p.Emojis) > MaxEmojis {
		errs = append(errs, fmt.Sprintf("Maximum %d emojis allowed", MaxEmojis))
	}
	if utf8.RuneCountInString(p.Vibe) > MaxVibeLength {
		errs = append(errs, fmt.Sprintf("Vibe description must be %d characters or less", MaxVibeLength))
	}
	if p.UniquenessScore != nil && (*p.UniquenessScore < 0 || *p.UniquenessScore > 100) {
		errs = append(errs, "Uniqueness score must be between 0 and 100")
	}

	seen := make(map[string]struct{}, len(p.Tracks))
	for i, t := range p.Tracks {
		errs = append(errs, ValidateTrack(t, i).Errors...)
		if t.ID == "" {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			errs = append(errs, fmt.Sprintf("Track %d: duplicate track id %s", i+1, t.ID))
		}
		seen[t.ID] = struct{}{}
	}

	return result(errs)
}

// SanitizePlaylistData returns a cleaned copy: strings trimmed and capped, invalid colors and blank emojis
// dropped, keywords deduplicated and capped, duplicate tracks removed and SongCount recomputed.
func SanitizePlaylistData(p *models.PlaylistData) *models.PlaylistData {
	c := p.Clone()

	c.Name = shared.Truncate(strings.TrimSpace(c.Name), MaxNameLength)
	if c.Name == "" {
		c.Name = fallbackName
	}
	c.Description = shared.Truncate(strings.TrimSpace(c.Description), MaxDescLength)
	c.Vibe = shared.Truncate(strings.TrimSpace(c.Vibe), MaxVibeLength)

	c.ColorPalette = lo.Filter(c.ColorPalette, func(col string, _ int) bool { return IsHexColor(col) })

	c.Keywords = lo.Uniq(lo.FilterMap(c.Keywords, func(k string, _ int) (string, bool) {
		k = strings.ToLower(strings.TrimSpace(k))
		return k, k != ""
	}))
	if len(c.Keywords) > MaxKeywords {
		c.Keywords = c.Keywords[:MaxKeywords]
	}

	c.Emojis = Sanitize(c.Emojis, MinSongCount, c.Vibe).Emojis
	if len(c.Emojis) == 0 {
		c.Emojis = []string{fallbackEmoji}
	}

	c.Tracks = lo.UniqBy(c.Tracks, func(t models.Track) string { return t.ID })
	c.SongCount = len(c.Tracks)
	return c
}
