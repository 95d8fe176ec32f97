package generation

import (
	"math"
	"strings"

	"github.com/desertthunder/vibemix/internal/models"
	"github.com/samber/lo"
)

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "songs": true, "music": true,
	"playlist": true, "vibe": true, "vibes": true, "like": true, "from": true, "that": true,
}

// culturalTerms widen vibe alignment for requests rooted in a scene or medium.
var culturalTerms = map[string][]string{
	"anime":  {"anime", "opening", "ending", "ost", "j-pop", "j-rock"},
	"k-pop":  {"k-pop", "korean"},
	"latin":  {"latin", "reggaeton", "salsa", "bachata"},
	"game":   {"game", "soundtrack", "theme", "8-bit"},
	"film":   {"film", "movie", "soundtrack", "score", "theme"},
	"disco":  {"disco", "funk", "boogie"},
	"gospel": {"gospel", "choir", "spiritual"},
}

// Score summarizes how varied and on-theme a track list is, from 0 to 100.
//
// Artist diversity is worth 40, estimated genre variety 30, title word variety 10 and
// vibe alignment 20. The score is informational and never gates output.
func Score(tracks []models.Track, vibe string, emojis []string) int {
	if len(tracks) == 0 {
		return 0
	}
	n := float64(len(tracks))

	artists := lo.UniqBy(tracks, func(t models.Track) string { return t.ArtistKey() })
	artistScore := float64(len(artists)) / n * 40

	genres := lo.Uniq(lo.FilterMap(tracks, func(t models.Track, _ int) (string, bool) {
		g := EstimateGenre(t)
		return g, g != ""
	}))
	genreScore := math.Min(float64(len(genres))*5, 30)

	var ratios float64
	for _, t := range tracks {
		words := strings.Fields(strings.ToLower(t.Name))
		if len(words) == 0 {
			continue
		}
		ratios += float64(len(lo.Uniq(words))) / float64(len(words))
	}
	titleScore := math.Min(ratios/n*10, 10)

	terms := vibeTerms(vibe, emojis)
	matched := lo.CountBy(tracks, func(t models.Track) bool {
		text := strings.ToLower(t.Name + " " + t.Album.Name + " " + t.ArtistNames())
		return lo.SomeBy(terms, func(term string) bool { return strings.Contains(text, term) })
	})
	alignScore := math.Min(float64(matched)/n*20, 20)

	total := int(math.Round(artistScore + genreScore + titleScore + alignScore))
	return max(0, min(100, total))
}

// vibeTerms derives the words a matching track might carry: vibe words, emoji genres and cultural terms.
func vibeTerms(vibe string, emojis []string) []string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(vibe)) {
		w = strings.Trim(w, ".,!?\"'")
		if len(w) >= 3 && !stopWords[w] {
			terms = append(terms, w)
		}
	}
	terms = append(terms, GenresForEmojis(emojis)...)
	for _, t := range append([]string(nil), terms...) {
		terms = append(terms, culturalTerms[t]...)
	}
	return lo.Uniq(terms)
}
