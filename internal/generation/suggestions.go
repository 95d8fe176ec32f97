package generation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/vibemix/internal/models"
)

// Suggestion is one "Title" by Artist line from the text generator.
type Suggestion struct {
	Title  string
	Artist string
}

// Key identifies a suggestion regardless of case and spacing.
func (s Suggestion) Key() string {
	return strings.ToLower(strings.Join(strings.Fields(s.Title+" "+s.Artist), " "))
}

var suggestionPattern = regexp.MustCompile(`["“]([^"”]+)["”]\s+by\s+(.+)$`)

const suggestionSystem = `You are a crate-digging music curator. Reply only with lines formatted exactly as "Song Title" by Artist Name.`

var genericTemplates = []string{
	`List %[1]d real songs for a playlist that feels like %[2]q. Mood emojis: %[3]s.
Favor deep cuts, b-sides and artists with small followings over chart hits. Use a different artist on every line.
Themes to lean into: %[4]s. Session %[5]s.`,
	`Dig up %[1]d lesser-known tracks that soundtrack %[2]q (%[3]s).
Mix decades and countries, skip anything that topped the charts, and never repeat an artist.
Touchstones: %[4]s. Reference %[5]s.`,
	`Curate %[1]d songs from independent labels and underground scenes matching %[2]q with the energy of %[3]s.
One song per artist, no remixes, no featured-artist singles.
Keep it close to: %[4]s. Batch %[5]s.`,
	`Pretend you run a late-night radio show. Pick %[1]d songs for a segment called %[2]q, inspired by %[3]s.
Choose artists listeners have probably not heard yet, one track each.
Genres in rotation: %[4]s. Show %[5]s.`,
}

var specificTemplates = []string{
	`List %[1]d real songs connected to %[2]q: its soundtrack, theme songs, its composers and performers, and artists its fans love.
Mood emojis: %[3]s. Use a different artist on every line where possible. Session %[5]s.`,
	`Build a %[1]d song set for fans of %[2]q (%[3]s). Start with official music from it, then closely related artists and covers.
Avoid repeating an artist. Reference %[5]s.`,
}

// suggestionPrompt picks a template by (seed index + round) and asks for count lines.
func suggestionPrompt(req models.PlaylistRequest, intent models.Intent, keywords []string, token DiversityToken, round, count int, skip []string) string {
	templates := genericTemplates
	themes := strings.Join(keywords, ", ")
	if themes == "" {
		themes = strings.Join(GenresForEmojis(req.Emojis), ", ")
	}
	if intent == models.Specific {
		templates = specificTemplates
	}
	tmpl := templates[(token.Index+round)%len(templates)]

	prompt := fmt.Sprintf(tmpl, count, req.Vibe, strings.Join(req.Emojis, " "), themes, fmt.Sprintf("%s-%d", token.Value, round))
	if len(skip) > 0 {
		prompt += "\nDo not suggest these artists again: " + strings.Join(skip, ", ") + "."
	}
	return prompt + "\nFormat every line as \"Song Title\" by Artist Name."
}

// ParseSuggestions reads every line matching "Title" by Artist, ignoring numbering, bullets and anything else.
func ParseSuggestions(text string) []Suggestion {
	var out []Suggestion
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		m := suggestionPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		title := strings.TrimSpace(m[1])
		artist := strings.Trim(strings.TrimSpace(m[2]), `"*_.`)
		if title == "" || artist == "" {
			continue
		}
		out = append(out, Suggestion{Title: title, Artist: artist})
	}
	return out
}

// queries returns the search queries for a suggestion in the order they should be tried.
func (s Suggestion) queries(intent models.Intent) []string {
	if intent == models.Specific {
		return []string{s.Artist + " " + s.Title, s.Artist}
	}
	return []string{s.Title + " " + s.Artist}
}
