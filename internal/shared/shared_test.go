package shared

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNormalizeKey(t *testing.T) {
	tc := []struct {
		name  string
		parts []string
		want  string
	}{
		{
			name:  "basic normalization",
			parts: []string{"Song Title", "Artist Name"},
			want:  "song title|artist name",
		},
		{
			name:  "extra whitespace",
			parts: []string{"  Song   Title  ", "  Artist   Name  "},
			want:  "song title|artist name",
		},
		{
			name:  "single part",
			parts: []string{"SoNg TiTlE"},
			want:  "song title",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeKey(tt.parts...); got != tt.want {
				t.Errorf("NormalizeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tc := map[int]string{0: "0:00", 61000: "1:01", 245999: "4:05", -5: "0:00"}
	for ms, want := range tc {
		if got := FormatDuration(ms); got != want {
			t.Errorf("FormatDuration(%d) = %s, want %s", ms, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("héllo", 2); got != "hé" {
		t.Errorf("Truncate rune-aware = %q", got)
	}
	if got := Truncate("abc", 10); got != "abc" {
		t.Errorf("Truncate short string = %q", got)
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a, b)
	}
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState() error = %v", err)
	}
	b, _ := GenerateState()
	if len(a) != 32 || a == b {
		t.Errorf("expected distinct 32 character states, got %q and %q", a, b)
	}
	if strings.ContainsAny(a, "+/=") {
		t.Errorf("expected a URL-safe state, got %q", a)
	}
}

func TestVendorError(t *testing.T) {
	tc := []struct {
		status  int
		message string
		want    error
	}{
		{401, "The access token expired", ErrVendorAuth},
		{403, "Forbidden", ErrVendorPermission},
		{400, "Insufficient client scope", ErrVendorPermission},
		{404, "Not found", ErrVendorNotFound},
		{429, "API rate limit exceeded", ErrVendorRateLimit},
		{502, "Bad gateway", ErrVendorTransient},
		{500, "Server error", ErrVendorResponse},
	}

	for _, tt := range tc {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := fmt.Errorf("search failed: %w", NewVendorError("spotify", tt.status, tt.message))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v to match %v", err, tt.want)
			}
			var verr *VendorError
			if !errors.As(err, &verr) || verr.Status != tt.status {
				t.Errorf("expected VendorError with status %d", tt.status)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tc := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"auth", NewVendorError("spotify", 401, "raw token payload"), "Your Spotify session has expired. Please reconnect your account."},
		{"rate limit", fmt.Errorf("wrapped: %w", NewVendorError("spotify", 429, "")), "Too many requests to Spotify. Please wait a moment and try again."},
		{"timeout", fmt.Errorf("%w: after 150s", ErrGenerationTimeout), "Playlist generation took too long. Try again with fewer songs."},
		{"no tracks", ErrNoTracksFound, "We couldn't find any tracks for this vibe. Try a different description."},
		{"validation", &ValidationError{Errors: []string{"a", "b"}}, "a\nb"},
		{"unknown", errors.New("boom: secret vendor body"), "Something went wrong. Please try again."},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenBrowser(t *testing.T) {
	origRuntime, origStart := getRuntime, startCommand
	t.Cleanup(func() { getRuntime, startCommand = origRuntime, origStart })

	var gotName string
	startCommand = func(name string, args ...string) error {
		gotName = name
		return nil
	}

	for rt, want := range map[string]string{"darwin": "open", "linux": "xdg-open", "windows": "rundll32"} {
		getRuntime = func() string { return rt }
		if err := OpenBrowser("http://127.0.0.1:3000"); err != nil {
			t.Fatalf("OpenBrowser on %s: %v", rt, err)
		}
		if gotName != want {
			t.Errorf("on %s expected %s, got %s", rt, want, gotName)
		}
	}

	getRuntime = func() string { return "plan9" }
	if err := OpenBrowser("http://127.0.0.1:3000"); err == nil {
		t.Error("expected unsupported platform error")
	}
}
