package generation

import (
	"math"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/desertthunder/vibemix/internal/models"
)

const (
	maxPerArtist          = 1
	maxPerGenre           = 3
	defaultMainstreamRate = 0.2
	popularityThreshold   = 70
)

// MainstreamClassifier flags tracks that read as chart material.
type MainstreamClassifier interface {
	IsMainstream(track models.Track) bool
}

var mainstreamPattern = regexp.MustCompile(`(?i)(\bfeat\.|\bft\.|\bfeaturing\b|\bremix\b|\bofficial\b|\bchart\b|\btop 40\b|\bradio edit\b|\bgreatest hits\b)`)

// HeuristicClassifier flags chart language in the title or album and popularity above a threshold.
type HeuristicClassifier struct {
	Threshold int
}

func (c HeuristicClassifier) IsMainstream(track models.Track) bool {
	threshold := c.Threshold
	if threshold <= 0 {
		threshold = popularityThreshold
	}
	if track.Popularity > threshold {
		return true
	}
	return mainstreamPattern.MatchString(track.Name) || mainstreamPattern.MatchString(track.Album.Name)
}

type genreRule struct {
	genre string
	terms []string
}

var genreTerms = []genreRule{
	{"soundtrack", []string{"soundtrack", "ost", "theme", "score", "opening", "ending"}},
	{"classical", []string{"symphony", "sonata", "concerto", "nocturne", "prelude", "etude", "opus"}},
	{"jazz", []string{"jazz", "swing", "bebop", "bossa"}},
	{"electronic", []string{"techno", "house", "synth", "edm", "trance", "electro", "rave"}},
	{"hip-hop", []string{"rap", "hip hop", "hip-hop", "trap", "cypher", "freestyle"}},
	{"rock", []string{"rock", "punk", "metal", "grunge", "riff"}},
	{"ambient", []string{"ambient", "drone", "meditation", "lullaby"}},
	{"lofi", []string{"lofi", "lo-fi", "chillhop", "beats to"}},
	{"folk", []string{"folk", "acoustic", "ballad", "banjo"}},
	{"r&b", []string{"soul", "r&b", "groove", "slow jam"}},
	{"latin", []string{"reggaeton", "salsa", "bachata", "cumbia", "samba"}},
	{"country", []string{"country", "honky", "bluegrass"}},
}

// artistTerms match credited artist names only, and only when genreTerms found nothing.
var artistTerms = []genreRule{
	{"classical", []string{"orchestra", "philharmonic", "symphonic", "quartet", "chamber", "choir", "sinfonia"}},
	{"jazz", []string{"trio", "quintet", "sextet", "septet", "big band"}},
	{"electronic", []string{"dj"}},
	{"hip-hop", []string{"mc", "lil"}},
}

// EstimateGenre guesses a coarse genre from a track's title, album and artist names.
//
// It returns "" when nothing matches; unknown genres are never capped.
func EstimateGenre(track models.Track) string {
	artists := genreText(track.ArtistNames())
	if g := matchGenre(genreTerms, genreText(track.Name+" "+track.Album.Name)+artists); g != "" {
		return g
	}
	return matchGenre(artistTerms, artists)
}

func matchGenre(table []genreRule, text string) string {
	for _, g := range table {
		for _, term := range g.terms {
			if strings.Contains(text, " "+term+" ") {
				return g.genre
			}
		}
	}
	return ""
}

func genreText(s string) string {
	return " " + strings.Map(genreRune, strings.ToLower(s)) + " "
}

func genreRune(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '&' || r == '-' {
		return r
	}
	return ' '
}

// Gate enforces the per-artist, per-genre and mainstream caps while a playlist is assembled.
type Gate struct {
	classifier    MainstreamClassifier
	mainstreamCap int
	mainstream    int
	ids           map[string]bool
	artists       map[string]int
	genres        map[string]int
}

// NewGate sizes the mainstream cap as floor(share × target).
func NewGate(target int, share float64, classifier MainstreamClassifier) *Gate {
	if classifier == nil {
		classifier = HeuristicClassifier{}
	}
	if share <= 0 {
		share = defaultMainstreamRate
	}
	return &Gate{
		classifier:    classifier,
		mainstreamCap: int(math.Floor(share * float64(target))),
		ids:           make(map[string]bool),
		artists:       make(map[string]int),
		genres:        make(map[string]int),
	}
}

// Seen reports whether a track id was already admitted.
func (g *Gate) Seen(id string) bool {
	return g.ids[id]
}

// Allows reports whether track would pass every cap without recording it.
func (g *Gate) Allows(track models.Track) bool {
	if track.ID == "" || g.ids[track.ID] {
		return false
	}
	if g.artists[track.ArtistKey()] >= maxPerArtist {
		return false
	}
	if genre := EstimateGenre(track); genre != "" && g.genres[genre] >= maxPerGenre {
		return false
	}
	if g.classifier.IsMainstream(track) && g.mainstream >= g.mainstreamCap {
		return false
	}
	return true
}

// Admit records track if it passes every cap.
func (g *Gate) Admit(track models.Track) bool {
	if !g.Allows(track) {
		return false
	}
	g.ids[track.ID] = true
	g.artists[track.ArtistKey()]++
	if genre := EstimateGenre(track); genre != "" {
		g.genres[genre]++
	}
	if g.classifier.IsMainstream(track) {
		g.mainstream++
	}
	return true
}

type ranked struct {
	track    models.Track
	priority int
}

// AdvancedDiversify orders pool by diversity priority and greedily keeps at most target tracks
// under the artist, genre and mainstream caps.
//
// Priority favors first appearances of an artist and genre and longer titles. Ties keep pool order.
func AdvancedDiversify(pool []models.Track, target int, classifier MainstreamClassifier) []models.Track {
	return DiversifyWithShare(pool, target, defaultMainstreamRate, classifier)
}

// DiversifyWithShare is [AdvancedDiversify] with a configurable mainstream share.
func DiversifyWithShare(pool []models.Track, target int, share float64, classifier MainstreamClassifier) []models.Track {
	if target <= 0 || len(pool) == 0 {
		return []models.Track{}
	}

	artistUsed := make(map[string]int)
	genreUsed := make(map[string]int)
	candidates := make([]ranked, len(pool))
	for i, t := range pool {
		genre := EstimateGenre(t)
		words := min(len(strings.Fields(t.Name)), 5)
		candidates[i] = ranked{
			track:    t,
			priority: (10 - 5*artistUsed[t.ArtistKey()]) + (5 - 2*genreUsed[genre]) + words,
		}
		artistUsed[t.ArtistKey()]++
		if genre != "" {
			genreUsed[genre]++
		}
	}
	slices.SortStableFunc(candidates, func(a, b ranked) int { return b.priority - a.priority })

	gate := NewGate(target, share, classifier)
	out := make([]models.Track, 0, target)
	for _, c := range candidates {
		if len(out) == target {
			break
		}
		if gate.Admit(c.track) {
			out = append(out, c.track)
		}
	}
	return out
}
