package generation

import (
	"slices"
	"strings"

	"github.com/desertthunder/vibemix/internal/services"
	"github.com/samber/lo"
)

// mood is a fallback profile used when the text generator cannot be trusted.
type mood struct {
	name         string
	emojis       []string
	words        []string
	names        []string
	descriptions []string
	palette      []string
	keywords     []string
}

// moods is ordered; earlier entries win ties.
var moods = []mood{
	{
		name:         "happy",
		emojis:       []string{"😄", "😊", "😎", "🤩", "✨"},
		words:        []string{"happy", "joy", "upbeat", "sunny", "bright", "good"},
		names:        []string{"sunlit fizz", "golden hum", "marmalade skies"},
		descriptions: []string{"bright hooks and easy grins for a day that keeps getting better"},
		palette:      []string{"#F59E0B", "#F472B6", "#38BDF8"},
		keywords:     []string{"indie pop", "feel good", "upbeat"},
	},
	{
		name:         "calm",
		emojis:       []string{"😌", "🌿", "🌊", "🧘", "🪷"},
		words:        []string{"calm", "chill", "relax", "slow", "quiet", "soft", "peaceful"},
		names:        []string{"tidepool drift", "moss hours", "low lanterns"},
		descriptions: []string{"soft textures and slow tides for unhurried hours"},
		palette:      []string{"#6366F1", "#8B5CF6", "#A855F7"},
		keywords:     []string{"ambient", "chill", "lofi"},
	},
	{
		name:         "love",
		emojis:       []string{"🥰", "😍", "😘", "💖", "💘"},
		words:        []string{"love", "romantic", "crush", "intimate", "date"},
		names:        []string{"velvet pulse", "rosewater static", "slow bloom"},
		descriptions: []string{"warm vocals and tender grooves for two people and one night"},
		palette:      []string{"#E11D48", "#F472B6", "#C084FC"},
		keywords:     []string{"r&b", "neo soul", "romantic"},
	},
	{
		name:         "sad",
		emojis:       []string{"😔", "🌧️", "😢", "💔", "🥀"},
		words:        []string{"sad", "melancholy", "blue", "heartbreak", "lonely", "rain"},
		names:        []string{"grey letters", "quiet ache", "wilted neon"},
		descriptions: []string{"rainy window songs for sitting with the heavy stuff"},
		palette:      []string{"#475569", "#6366F1", "#0EA5E9"},
		keywords:     []string{"sad indie", "melancholy", "emotional"},
	},
	{
		name:         "angry",
		emojis:       []string{"😠", "🔥", "🤬", "💢", "⚡"},
		words:        []string{"angry", "rage", "aggressive", "intense", "loud", "workout"},
		names:        []string{"iron static", "scorched wire", "riot glass"},
		descriptions: []string{"loud guitars and hard edges for burning it all off"},
		palette:      []string{"#DC2626", "#EA580C", "#FACC15"},
		keywords:     []string{"punk", "metal", "intense"},
	},
	{
		name:         "confused",
		emojis:       []string{"🤯", "😵", "🤔", "😶‍🌫️", "😕"},
		words:        []string{"confused", "weird", "strange", "trippy", "dizzy", "lost"},
		names:        []string{"prism fog", "sideways echo", "glass maze"},
		descriptions: []string{"off-kilter sounds for a head full of questions"},
		palette:      []string{"#14B8A6", "#A855F7", "#F97316"},
		keywords:     []string{"experimental", "psychedelic", "alternative"},
	},
	{
		name:         "excited",
		emojis:       []string{"🥳", "🤩", "🎉", "💫", "🔥"},
		words:        []string{"party", "dance", "club", "hype", "energy", "energetic", "celebrate"},
		names:        []string{"confetti engine", "strobe bloom", "neon sprint"},
		descriptions: []string{"big drops and bigger choruses for a room that will not sit down"},
		palette:      []string{"#EC4899", "#8B5CF6", "#22D3EE"},
		keywords:     []string{"dance pop", "party", "electronic"},
	},
	{
		name:         "nature",
		emojis:       []string{"🌿", "🌊", "🌅", "🌈", "🍃"},
		words:        []string{"nature", "forest", "ocean", "sunrise", "hike", "outdoors"},
		names:        []string{"fern light", "canopy drift", "saltwind"},
		descriptions: []string{"open-air folk and ambient swells for trails and shorelines"},
		palette:      []string{"#16A34A", "#0EA5E9", "#F59E0B"},
		keywords:     []string{"folk", "indie folk", "ambient"},
	},
	{
		name:         "weather",
		emojis:       []string{"☀️", "☁️", "🌧️", "🌩️", "🌬️"},
		words:        []string{"weather", "storm", "cloudy", "summer", "winter", "wind"},
		names:        []string{"pressure front", "cloud cellar", "thunderglass"},
		descriptions: []string{"shifting skies in sound, from overcast hush to summer glare"},
		palette:      []string{"#0284C7", "#64748B", "#FBBF24"},
		keywords:     []string{"atmospheric", "indie", "summer"},
	},
}

const defaultMood = "calm"

var emojiGenres = map[string][]string{
	"😄":    {"pop", "happy", "upbeat"},
	"😊":    {"pop", "indie", "folk"},
	"😎":    {"jazz", "soul", "r&b"},
	"🤩":    {"pop", "electronic", "dance"},
	"✨":    {"pop", "indie", "magical"},
	"😌":    {"ambient", "chill", "lofi"},
	"🌿":    {"folk", "indie", "nature"},
	"🌊":    {"ambient", "chill", "ocean"},
	"🧘":    {"ambient", "meditation", "zen"},
	"🪷":    {"ambient", "spiritual", "peaceful"},
	"🥰":    {"r&b", "pop", "romance"},
	"😍":    {"r&b", "pop", "romance"},
	"😘":    {"r&b", "pop", "romance"},
	"💖":    {"r&b", "pop", "romance"},
	"💘":    {"r&b", "pop", "romance"},
	"😔":    {"sad", "indie", "folk"},
	"🌧️":   {"sad", "indie", "melancholy"},
	"😢":    {"sad", "indie", "emotional"},
	"💔":    {"sad", "indie", "emotional"},
	"🥀":    {"sad", "indie", "melancholy"},
	"😠":    {"rock", "metal", "punk"},
	"🔥":    {"hip-hop", "trap", "electronic"},
	"🤬":    {"rock", "metal", "aggressive"},
	"💢":    {"rock", "metal", "intense"},
	"⚡":    {"electronic", "dance", "energetic"},
	"🤯":    {"experimental", "electronic", "psychedelic"},
	"😵":    {"experimental", "electronic", "psychedelic"},
	"🤔":    {"indie", "alternative", "thoughtful"},
	"😶‍🌫️": {"ambient", "experimental", "atmospheric"},
	"😕":    {"indie", "alternative", "melancholy"},
	"🥳":    {"pop", "dance", "party"},
	"🎉":    {"pop", "dance", "celebration"},
	"💫":    {"ambient", "electronic", "magical"},
	"🌅":    {"ambient", "nature", "peaceful"},
	"🌈":    {"pop", "indie", "alternative"},
	"🍃":    {"folk", "indie", "nature"},
	"☀️":   {"pop", "summer", "happy"},
	"☁️":   {"ambient", "chill", "atmospheric"},
	"🌩️":   {"rock", "electronic", "intense"},
	"🌬️":   {"ambient", "atmospheric", "wind"},
}

// seedGenres are the emoji genres the vendor accepts as recommendation seeds.
var seedGenres = []string{
	"pop", "indie", "folk", "jazz", "soul", "r&b", "electronic", "dance", "ambient", "chill",
	"sad", "rock", "metal", "punk", "hip-hop", "trap", "alternative", "party", "summer", "happy",
}

type vibeTarget struct {
	words   []string
	targets func() services.AudioTargets
}

var vibeTargets = []vibeTarget{
	{[]string{"energetic", "pump", "workout"}, func() services.AudioTargets {
		return services.AudioTargets{Energy: lo.ToPtr(0.8), Danceability: lo.ToPtr(0.7)}
	}},
	{[]string{"chill", "relax", "calm"}, func() services.AudioTargets {
		return services.AudioTargets{Energy: lo.ToPtr(0.3), Acousticness: lo.ToPtr(0.7)}
	}},
	{[]string{"sad", "melancholy", "blue"}, func() services.AudioTargets {
		return services.AudioTargets{Energy: lo.ToPtr(0.3), Valence: lo.ToPtr(0.3)}
	}},
	{[]string{"happy", "joy", "upbeat"}, func() services.AudioTargets {
		return services.AudioTargets{Energy: lo.ToPtr(0.7), Valence: lo.ToPtr(0.8)}
	}},
	{[]string{"romantic", "love", "intimate"}, func() services.AudioTargets {
		return services.AudioTargets{Energy: lo.ToPtr(0.4), Valence: lo.ToPtr(0.6)}
	}},
	{[]string{"party", "dance", "club"}, func() services.AudioTargets {
		return services.AudioTargets{Energy: lo.ToPtr(0.8), Danceability: lo.ToPtr(0.8), Tempo: lo.ToPtr(130.0)}
	}},
}

var vibeQueries = map[string][]string{
	"chill":     {"chill vibes", "relaxing", "ambient"},
	"energetic": {"energetic", "upbeat", "pump up"},
	"sad":       {"melancholy", "sad songs", "emotional"},
	"happy":     {"happy", "feel good", "positive"},
}

const maxKeywordQueries = 5

func findMood(name string) mood {
	for _, m := range moods {
		if m.name == name {
			return m
		}
	}
	return moods[1]
}

// DominantMood picks the mood most emojis point at, breaking ties with words from the vibe.
//
// With no signal at all the result is "calm".
func DominantMood(emojis []string, vibe string) string {
	words := strings.Fields(strings.ToLower(vibe))
	best, bestEmoji, bestWords := "", 0, 0
	for _, m := range moods {
		emojiHits := lo.CountBy(emojis, func(e string) bool { return slices.Contains(m.emojis, e) })
		wordHits := lo.CountBy(words, func(w string) bool {
			return lo.SomeBy(m.words, func(mw string) bool { return strings.HasPrefix(w, mw) })
		})
		if emojiHits == 0 && wordHits == 0 {
			continue
		}
		if emojiHits > bestEmoji || (emojiHits == bestEmoji && wordHits > bestWords) {
			best, bestEmoji, bestWords = m.name, emojiHits, wordHits
		}
	}
	if best == "" {
		return defaultMood
	}
	return best
}

// GenresForEmojis returns the distinct genres associated with emojis, in emoji order.
func GenresForEmojis(emojis []string) []string {
	var genres []string
	for _, e := range emojis {
		genres = append(genres, emojiGenres[e]...)
	}
	return lo.Uniq(genres)
}

// SeedGenres narrows GenresForEmojis to genres usable as recommendation seeds, at most five.
func SeedGenres(emojis []string) []string {
	seeds := lo.Filter(GenresForEmojis(emojis), func(g string, _ int) bool { return slices.Contains(seedGenres, g) })
	if len(seeds) > 5 {
		seeds = seeds[:5]
	}
	return seeds
}

// TargetsForVibe returns the audio feature targets of the first vibe word group that matches.
func TargetsForVibe(vibe string) services.AudioTargets {
	lower := strings.ToLower(vibe)
	for _, vt := range vibeTargets {
		if lo.SomeBy(vt.words, func(w string) bool { return strings.Contains(lower, w) }) {
			return vt.targets()
		}
	}
	return services.AudioTargets{}
}

// KeywordQueries builds the augmentation search queries from keywords and vibe words, capped at five.
func KeywordQueries(vibe string, keywords []string) []string {
	queries := append([]string(nil), keywords...)
	lower := strings.ToLower(vibe)
	for _, key := range []string{"chill", "energetic", "sad", "happy"} {
		if strings.Contains(lower, key) {
			queries = append(queries, vibeQueries[key]...)
		}
	}
	queries = lo.Uniq(lo.FilterMap(queries, func(q string, _ int) (string, bool) {
		q = strings.TrimSpace(strings.ToLower(q))
		return q, q != ""
	}))
	if len(queries) > maxKeywordQueries {
		queries = queries[:maxKeywordQueries]
	}
	return queries
}
