// package models defines the data model for vibe-driven playlist generation
package models

import (
	"strings"
	"time"
)

// Intent classifies a vibe as naming concrete source material or describing a mood.
type Intent int

const (
	Generic Intent = iota
	Specific
)

func (i Intent) String() string {
	switch i {
	case Specific:
		return "SPECIFIC"
	default:
		return "GENERIC"
	}
}

// PlaylistRequest is the user's raw generation input.
type PlaylistRequest struct {
	Emojis    []string `json:"emojis"`
	SongCount int      `json:"songCount"`
	Vibe      string   `json:"vibe"`
}

// PlaylistInfo is the generated name, description, palette and search keywords.
type PlaylistInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	ColorPalette []string `json:"colorPalette"`
	Keywords     []string `json:"keywords"`
}

// Image is a vendor-hosted artwork reference.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// Artist is a track credit.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album is the release a track belongs to.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Track is a music vendor track, kept verbatim from search or recommendation results.
type Track struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []Artist `json:"artists"`
	Album       Album    `json:"album"`
	DurationMs  int      `json:"durationMs"`
	URI         string   `json:"uri"`
	ExternalURL string   `json:"externalUrl"`
	Popularity  int      `json:"popularity,omitempty"`
}

// PrimaryArtist returns the first credited artist, or a zero Artist.
func (t Track) PrimaryArtist() Artist {
	if len(t.Artists) == 0 {
		return Artist{}
	}
	return t.Artists[0]
}

// ArtistKey identifies the primary artist, falling back to the lowercased name when the id is missing.
func (t Track) ArtistKey() string {
	a := t.PrimaryArtist()
	if a.ID != "" {
		return a.ID
	}
	return strings.ToLower(strings.TrimSpace(a.Name))
}

// ArtistNames joins every credited artist name.
func (t Track) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// PlaylistData is a generated playlist, in memory or persisted.
type PlaylistData struct {
	ID                string    `json:"id,omitempty"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	ColorPalette      []string  `json:"colorPalette"`
	Keywords          []string  `json:"keywords"`
	CoverImageURL     string    `json:"coverImageUrl,omitempty"`
	Emojis            []string  `json:"emojis"`
	SongCount         int       `json:"songCount"`
	Vibe              string    `json:"vibe"`
	Tracks            []Track   `json:"tracks"`
	SpotifyURL        string    `json:"spotifyUrl,omitempty"`
	IsSpotifyPlaylist bool      `json:"isSpotifyPlaylist"`
	UniquenessScore   *int      `json:"uniquenessScore,omitempty"`
	UserID            string    `json:"userId,omitempty"`
	CreatedAt         time.Time `json:"createdAt,omitzero"`
	UpdatedAt         time.Time `json:"updatedAt,omitzero"`
}

// TrackIDs returns the ids of every track in order.
func (p *PlaylistData) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// Clone returns a copy whose slices can be modified without touching p.
func (p *PlaylistData) Clone() *PlaylistData {
	c := *p
	c.ColorPalette = append([]string(nil), p.ColorPalette...)
	c.Keywords = append([]string(nil), p.Keywords...)
	c.Emojis = append([]string(nil), p.Emojis...)
	c.Tracks = append([]Track(nil), p.Tracks...)
	if p.UniquenessScore != nil {
		s := *p.UniquenessScore
		c.UniquenessScore = &s
	}
	return &c
}

// GenerationProgress is an ephemeral progress report for streaming generation.
type GenerationProgress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Phase   string `json:"phase"`
}
