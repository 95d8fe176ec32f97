package generation

import (
	"fmt"
	"testing"

	"github.com/desertthunder/vibemix/internal/models"
	tu "github.com/desertthunder/vibemix/internal/testing"
)

func TestHeuristicClassifier(t *testing.T) {
	c := HeuristicClassifier{}
	tc := []struct {
		name  string
		track models.Track
		want  bool
	}{
		{"plain", tu.Track("1", "Quiet Harbour", "Low Tide"), false},
		{"featuring", tu.Track("2", "Summer Nights (feat. Someone)", "Star"), true},
		{"remix", tu.Track("3", "Glow - Club Remix", "Star"), true},
		{"official", tu.Track("4", "Anthem (Official Audio)", "Star"), true},
		{"remixed word is not remix", tu.Track("5", "Remixed Memories", "Star"), false},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsMainstream(tt.track); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("popularity", func(t *testing.T) {
		track := tu.Track("6", "Quiet Harbour", "Low Tide")
		track.Popularity = 71
		if !c.IsMainstream(track) {
			t.Error("expected popularity above 70 to be mainstream")
		}
		track.Popularity = 70
		if c.IsMainstream(track) {
			t.Error("expected popularity 70 to be niche")
		}
	})
}

func TestEstimateGenre(t *testing.T) {
	tc := []struct {
		name string
		want string
	}{
		{"Garage Rock Revival", "rock"},
		{"Rocket Man", ""},
		{"Nocturne Op. 9", "classical"},
		{"Lo-Fi Study Beats", "lofi"},
		{"Hip Hop Hooray", "hip-hop"},
		{"Song 1", ""},
	}
	for _, tt := range tc {
		if got := EstimateGenre(tu.Track("x", tt.name, "a")); got != tt.want {
			t.Errorf("EstimateGenre(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}

	t.Run("Artist Names", func(t *testing.T) {
		tc := []struct {
			artist string
			want   string
		}{
			{"Jazz Quartet", "jazz"},
			{"Jazz Collective", "jazz"},
			{"Berlin Philharmonic Orchestra", "classical"},
			{"Kronos Quartet", "classical"},
			{"Bad Plus Trio", "jazz"},
			{"DJ Shadow", "electronic"},
			{"MC Lyte", "hip-hop"},
			{"Lil Simz", "hip-hop"},
			{"Djavan", ""},
			{"Lilt", ""},
			{"Artist 7", ""},
		}
		for _, tt := range tc {
			if got := EstimateGenre(tu.Track("x", "Untitled", tt.artist)); got != tt.want {
				t.Errorf("EstimateGenre(by %q) = %q, want %q", tt.artist, got, tt.want)
			}
		}
	})
}

func TestGate(t *testing.T) {
	gate := NewGate(10, 0.2, nil)

	if !gate.Admit(tu.Track("1", "First", "A")) {
		t.Fatal("expected first track to be admitted")
	}
	if gate.Admit(tu.Track("1", "First Again", "B")) {
		t.Error("expected duplicate id to be rejected")
	}
	if gate.Admit(tu.Track("2", "Second", "A")) {
		t.Error("expected second track by the same artist to be rejected")
	}
	if !gate.Seen("1") || gate.Seen("2") {
		t.Error("unexpected seen state")
	}

	noID := tu.Track("", "Nameless", "C")
	if gate.Allows(noID) {
		t.Error("expected a track without an id to be rejected")
	}
}

func TestAdvancedDiversify(t *testing.T) {
	pool := []models.Track{
		tu.Track("a1", "Night Drive", "A"),
		tu.Track("a2", "Night Drive Two", "A"),
	}
	for i := 1; i <= 4; i++ {
		pool = append(pool, tu.Track(fmt.Sprintf("r%d", i), fmt.Sprintf("Rock Anthem %d", i), fmt.Sprintf("R%d", i)))
	}
	for i := 1; i <= 3; i++ {
		hit := tu.Track(fmt.Sprintf("m%d", i), fmt.Sprintf("Hit %d", i), fmt.Sprintf("M%d", i))
		hit.Popularity = 90
		pool = append(pool, hit)
	}

	got := AdvancedDiversify(pool, 10, HeuristicClassifier{})
	if len(got) != 6 {
		t.Fatalf("expected 6 tracks after caps, got %d: %v", len(got), ids(got))
	}

	artists := map[string]int{}
	genres := map[string]int{}
	mainstream := 0
	for _, tr := range got {
		artists[tr.ArtistKey()]++
		if g := EstimateGenre(tr); g != "" {
			genres[g]++
		}
		if tr.Popularity > 70 {
			mainstream++
		}
	}
	for artist, n := range artists {
		if n > 1 {
			t.Errorf("artist %s appears %d times", artist, n)
		}
	}
	if genres["rock"] != 3 {
		t.Errorf("expected 3 rock tracks, got %d", genres["rock"])
	}
	if mainstream != 2 {
		t.Errorf("expected mainstream capped at 2, got %d", mainstream)
	}

	t.Run("Truncates To Target", func(t *testing.T) {
		if got := AdvancedDiversify(tu.Tracks(8), 5, nil); len(got) != 5 {
			t.Errorf("expected 5 tracks, got %d", len(got))
		}
	})

	t.Run("Keeps Pool Order On Ties", func(t *testing.T) {
		got := AdvancedDiversify(tu.Tracks(4), 4, nil)
		for i, tr := range got {
			if want := fmt.Sprintf("t%d", i+1); tr.ID != want {
				t.Errorf("position %d: expected %s, got %s", i, want, tr.ID)
			}
		}
	})

	t.Run("Genre From Artist Names", func(t *testing.T) {
		var pool []models.Track
		for i, artist := range []string{"Jazz Quartet", "Jazz Trio", "Jazz Ensemble", "Jazz Collective"} {
			pool = append(pool, tu.Track(fmt.Sprintf("j%d", i), fmt.Sprintf("Blue Hour %d", i), artist))
		}

		got := AdvancedDiversify(pool, 4, HeuristicClassifier{})
		if len(got) > maxPerGenre {
			t.Errorf("expected at most %d jazz tracks, got %d: %v", maxPerGenre, len(got), ids(got))
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if got := AdvancedDiversify(nil, 5, nil); len(got) != 0 {
			t.Errorf("expected no tracks, got %d", len(got))
		}
	})
}

func TestScore(t *testing.T) {
	if got := Score(nil, "anything", nil); got != 0 {
		t.Errorf("expected 0 for no tracks, got %d", got)
	}

	distinct := Score(tu.Tracks(10), "late night drive", nil)
	if distinct != 50 {
		t.Errorf("expected 50 for distinct artists, got %d", distinct)
	}

	solo := make([]models.Track, 10)
	for i := range solo {
		solo[i] = tu.Track(fmt.Sprintf("s%d", i), fmt.Sprintf("Song %d", i), "Solo")
	}
	if got := Score(solo, "late night drive", nil); got != 14 {
		t.Errorf("expected 14 for a single artist, got %d", got)
	}

	aligned := []models.Track{tu.Track("n1", "Night Drive", "A"), tu.Track("n2", "Jazz Night", "B")}
	got := Score(aligned, "late night drive", nil)
	if got <= distinct || got > 100 {
		t.Errorf("expected aligned, genre-varied tracks to score above %d, got %d", distinct, got)
	}
}

func ids(tracks []models.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}
