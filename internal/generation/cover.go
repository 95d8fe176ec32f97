package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/services"
	"github.com/desertthunder/vibemix/internal/shared"
)

const describeSystem = "You are an art director. You never mention names, titles, characters, logos or brands."

const describePrompt = `Describe the visual feeling of %q as an original artwork brief.

Cover the mood, visual themes, color and lighting, and an artistic style in at most 60 words.
Do not name the work, its creators, characters, places or any trademark. Describe only what a painter would see.`

const coverPrompt = `An impressionist painting for a music album cover, loose visible brushstrokes and soft light.
Subject: %s
Mood: %s
Palette: %s
Abstract and painterly, not photorealistic. No text, letters, words, logos or signatures anywhere in the image.`

// CoverGenerator renders playlist cover art.
type CoverGenerator struct {
	text   services.TextGenerator
	images services.ImageGenerator
	logger *log.Logger
}

func NewCoverGenerator(text services.TextGenerator, images services.ImageGenerator, logger *log.Logger) *CoverGenerator {
	return &CoverGenerator{text: text, images: images, logger: shared.WithLogger(logger, "component", "cover")}
}

// Generate returns a cover image URL, or "" when any step fails.
//
// Specific vibes are first rewritten into a name-free artistic description.
func (g *CoverGenerator) Generate(ctx context.Context, emojis []string, vibe string, palette []string, intent models.Intent) string {
	subject := vibe
	if intent == models.Specific {
		desc, err := g.describe(ctx, vibe)
		if err != nil {
			g.logger.Warn("cover description failed", "error", fmt.Errorf("%w: %v", shared.ErrCoverArt, err))
			return ""
		}
		subject = desc
	}

	url, err := g.images.GenerateImage(ctx, services.ImageRequest{Prompt: CoverPrompt(emojis, subject, palette)})
	if err != nil {
		g.logger.Warn("cover generation failed", "error", fmt.Errorf("%w: %v", shared.ErrCoverArt, err))
		return ""
	}
	return url
}

func (g *CoverGenerator) describe(ctx context.Context, vibe string) (string, error) {
	out, err := g.text.Complete(ctx, services.CompletionRequest{
		System:      describeSystem,
		Prompt:      fmt.Sprintf(describePrompt, vibe),
		Temperature: services.Temperature(0.7),
		MaxTokens:   150,
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("empty description")
	}
	return out, nil
}

// CoverPrompt builds the image prompt from a subject, mood emojis and palette.
func CoverPrompt(emojis []string, subject string, palette []string) string {
	mood := findMood(DominantMood(emojis, subject)).name
	if len(emojis) > 0 {
		mood = fmt.Sprintf("%s, evoking %s", mood, strings.Join(emojis, " "))
	}
	colors := "soft complementary tones"
	if len(palette) > 0 {
		colors = strings.Join(palette, ", ")
	}
	return fmt.Sprintf(coverPrompt, strings.TrimSpace(subject), mood, colors)
}
