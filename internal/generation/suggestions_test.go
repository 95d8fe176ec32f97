package generation

import (
	"strings"
	"testing"

	"github.com/desertthunder/vibemix/internal/models"
)

func TestParseSuggestions(t *testing.T) {
	text := `Here are some picks:
1. "Kids" by MGMT
- "Shiny Happy People" by R.E.M.
“Dancing On My Own” by Robyn
**"Gimme! Gimme! Gimme!" by ABBA**
Song Without Quotes by Nobody
"Missing Artist" by
Enjoy!`

	got := ParseSuggestions(text)
	want := []Suggestion{
		{"Kids", "MGMT"},
		{"Shiny Happy People", "R.E.M"},
		{"Dancing On My Own", "Robyn"},
		{"Gimme! Gimme! Gimme!", "ABBA"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d suggestions, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("suggestion %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}

	if ParseSuggestions("I'm sorry, I can't list songs.") != nil {
		t.Error("expected no suggestions from prose")
	}
}

func TestSuggestionQueries(t *testing.T) {
	s := Suggestion{Title: "Guren no Yumiya", Artist: "Linked Horizon"}
	if q := s.queries(models.Generic); len(q) != 1 || q[0] != "Guren no Yumiya Linked Horizon" {
		t.Errorf("unexpected generic queries %v", q)
	}
	if q := s.queries(models.Specific); len(q) != 2 || q[0] != "Linked Horizon Guren no Yumiya" || q[1] != "Linked Horizon" {
		t.Errorf("unexpected specific queries %v", q)
	}
	if s.Key() != (Suggestion{Title: "guren  no yumiya", Artist: "LINKED horizon"}).Key() {
		t.Error("expected keys to ignore case and spacing")
	}
}

func TestSuggestionPrompt(t *testing.T) {
	req := models.PlaylistRequest{Emojis: []string{"🌊"}, SongCount: 4, Vibe: "tidal calm"}
	token := DiversityToken{Value: "abc", Index: 1}

	first := suggestionPrompt(req, models.Generic, []string{"ambient"}, token, 0, 12, nil)
	second := suggestionPrompt(req, models.Generic, []string{"ambient"}, token, 1, 12, []string{"Enya"})
	if first == second {
		t.Error("expected rounds to vary the template")
	}
	for _, want := range []string{"12", `"tidal calm"`, "🌊", "ambient", `"Song Title" by Artist Name`} {
		if !strings.Contains(first, want) {
			t.Errorf("expected prompt to contain %q, got %s", want, first)
		}
	}
	if !strings.Contains(second, "Enya") {
		t.Errorf("expected skipped artists in prompt, got %s", second)
	}
	if strings.Contains(first, "%!") {
		t.Errorf("prompt has formatting errors: %s", first)
	}
	specific := suggestionPrompt(req, models.Specific, nil, token, 0, 12, nil)
	if strings.Contains(specific, "%!") || !strings.Contains(specific, "soundtrack") && !strings.Contains(specific, "official music") {
		t.Errorf("unexpected specific prompt %s", specific)
	}
}
