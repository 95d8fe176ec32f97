package generation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/services"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/desertthunder/vibemix/internal/validation"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

const metadataSystem = "You name playlists. Reply with a single JSON object and nothing else."

const metadataGeneric = `Invent a playlist identity for this request.

Emojis: %s
Vibe: %q

Return JSON with exactly these fields:
{"name": "...", "description": "...", "colorPalette": ["#RRGGBB", "#RRGGBB", "#RRGGBB"], "keywords": ["...", "..."]}

Rules:
- name: 1 to 3 invented lowercase words. Never use words like playlist, mix, vibes, songs or music.
- description: one lowercase sentence under 20 words.
- colorPalette: exactly 3 hex colors drawn from the mood. No near-black or near-white colors.
- keywords: 3 to 5 music search terms such as genres, moods, eras or instrumentation.`

const metadataSpecific = `Invent a playlist identity for music inspired by a specific work or artist.

Emojis: %s
Source: %q

Return JSON with exactly these fields:
{"name": "...", "description": "...", "colorPalette": ["#RRGGBB", "#RRGGBB", "#RRGGBB"]}

Rules:
- name: 1 to 3 invented lowercase words evoking the source without quoting its title.
- description: one lowercase sentence under 20 words.
- colorPalette: exactly 3 hex colors from the source's visual world. No near-black or near-white colors.`

const maxNameWords = 3

var genericNameWords = []string{"playlist", "mix", "vibes", "songs", "music"}

// MetadataGenerator names, describes and colors a playlist.
type MetadataGenerator struct {
	text   services.TextGenerator
	logger *log.Logger
}

func NewMetadataGenerator(text services.TextGenerator, logger *log.Logger) *MetadataGenerator {
	return &MetadataGenerator{text: text, logger: shared.WithLogger(logger, "component", "metadata")}
}

// Generate never fails; malformed output yields [FallbackInfo].
//
// Keywords are always empty for [models.Specific].
func (g *MetadataGenerator) Generate(ctx context.Context, emojis []string, vibe string, intent models.Intent) models.PlaylistInfo {
	fallback := FallbackInfo(emojis, vibe, intent)

	template := metadataGeneric
	if intent == models.Specific {
		template = metadataSpecific
	}
	out, err := g.text.Complete(ctx, services.CompletionRequest{
		System:    metadataSystem,
		Prompt:    fmt.Sprintf(template, strings.Join(emojis, " "), vibe),
		MaxTokens: 300,
	})
	if err != nil {
		g.logger.Warn("metadata generation failed, using fallback", "error", err)
		return fallback
	}

	info, err := ParseMetadata(out)
	if err != nil {
		g.logger.Warn("metadata parse failed, using fallback", "error", err)
		return fallback
	}

	info.ColorPalette = normalizePalette(info.ColorPalette, fallback.ColorPalette)
	if intent == models.Specific {
		info.Keywords = []string{}
	} else if len(info.Keywords) == 0 {
		info.Keywords = fallback.Keywords
	}
	return info
}

// ParseMetadata extracts the first JSON object from out and checks its fields.
//
// Palette entries are returned as given; callers replace unusable colors.
func ParseMetadata(out string) (models.PlaylistInfo, error) {
	obj, ok := ExtractJSONObject(out)
	if !ok || !gjson.Valid(obj) {
		return models.PlaylistInfo{}, fmt.Errorf("%w: no JSON object in response", shared.ErrMetadataParse)
	}

	doc := gjson.Parse(obj)
	name := doc.Get("name")
	desc := doc.Get("description")
	palette := doc.Get("colorPalette")
	if name.Type != gjson.String || strings.TrimSpace(name.String()) == "" {
		return models.PlaylistInfo{}, fmt.Errorf("%w: missing name", shared.ErrMetadataParse)
	}
	if desc.Type != gjson.String || strings.TrimSpace(desc.String()) == "" {
		return models.PlaylistInfo{}, fmt.Errorf("%w: missing description", shared.ErrMetadataParse)
	}
	if !palette.IsArray() {
		return models.PlaylistInfo{}, fmt.Errorf("%w: missing colorPalette", shared.ErrMetadataParse)
	}

	info := models.PlaylistInfo{
		Name:        cleanName(name.String()),
		Description: shared.Truncate(strings.ToLower(strings.TrimSpace(desc.String())), validation.MaxDescLength),
	}
	if info.Name == "" {
		return models.PlaylistInfo{}, fmt.Errorf("%w: unusable name %q", shared.ErrMetadataParse, name.String())
	}
	for _, c := range palette.Array() {
		info.ColorPalette = append(info.ColorPalette, strings.TrimSpace(c.String()))
	}
	for _, k := range doc.Get("keywords").Array() {
		if k.Type == gjson.String {
			info.Keywords = append(info.Keywords, k.String())
		}
	}
	info.Keywords = lo.Uniq(lo.FilterMap(info.Keywords, func(k string, _ int) (string, bool) {
		k = strings.ToLower(strings.TrimSpace(k))
		return k, k != ""
	}))
	if len(info.Keywords) > validation.MaxKeywords {
		info.Keywords = info.Keywords[:validation.MaxKeywords]
	}
	return info, nil
}

// cleanName lowercases, keeps letters and spaces, and caps the name at three words.
//
// Names built from generic playlist words come back empty.
func cleanName(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		switch {
		case r >= 'a' && r <= 'z', r == ' ':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(' ')
		}
	}
	words := strings.Fields(b.String())
	if len(words) > maxNameWords {
		words = words[:maxNameWords]
	}
	if lo.SomeBy(words, func(w string) bool { return lo.Contains(genericNameWords, w) }) {
		return ""
	}
	return strings.Join(words, " ")
}

// ExtractJSONObject returns the first balanced top-level {...} in s, skipping code fences.
//
// Braces inside JSON strings are ignored.
func ExtractJSONObject(s string) (string, bool) {
	s = stripFences(s)
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

// FallbackInfo is the deterministic identity for the dominant mood of emojis and vibe.
func FallbackInfo(emojis []string, vibe string, intent models.Intent) models.PlaylistInfo {
	m := findMood(DominantMood(emojis, vibe))
	h := contentHash(strings.Join(emojis, ""), vibe)

	info := models.PlaylistInfo{
		Name:         m.names[h%uint64(len(m.names))],
		Description:  m.descriptions[h%uint64(len(m.descriptions))],
		ColorPalette: append([]string(nil), m.palette...),
		Keywords:     []string{},
	}
	if intent == models.Generic {
		info.Keywords = append(info.Keywords, m.keywords...)
	}
	return info
}

// normalizePalette returns exactly three usable colors, substituting from fallback by position.
func normalizePalette(colors, fallback []string) []string {
	out := make([]string, validation.PaletteSize)
	for i := range out {
		if i < len(colors) && validation.IsHexColor(colors[i]) && !isExtremeColor(colors[i]) {
			out[i] = strings.ToUpper(colors[i])
			continue
		}
		out[i] = fallback[i%len(fallback)]
	}
	return out
}

// isExtremeColor reports near-black or near-white colors by relative luminance.
func isExtremeColor(hex string) bool {
	v, err := strconv.ParseUint(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return true
	}
	r, g, b := float64(v>>16&0xFF), float64(v>>8&0xFF), float64(v&0xFF)
	lum := (0.2126*r + 0.7152*g + 0.0722*b) / 255
	return lum < 0.08 || lum > 0.92
}
