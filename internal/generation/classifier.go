package generation

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibemix/internal/models"
	"github.com/desertthunder/vibemix/internal/services"
	"github.com/desertthunder/vibemix/internal/shared"
)

const classifierSystem = "You label music requests. Answer with exactly one word: SPECIFIC or GENERIC."

const classifierPrompt = `Decide whether a playlist request names concrete source material or only describes a mood.

SPECIFIC: the request names a particular show, film, game, anime, book, artist, band, album or song.
GENERIC: the request describes a feeling, activity, setting, season or genre.

Examples:
"Attack on Titan" -> SPECIFIC
"songs like Radiohead" -> SPECIFIC
"Studio Ghibli summer" -> SPECIFIC
"Taylor Swift breakup era" -> SPECIFIC
"chill" -> GENERIC
"rainy sunday reading" -> GENERIC
"hype gym session" -> GENERIC
"late night drive" -> GENERIC

Request: %q
Answer:`

// Classifier labels a vibe as SPECIFIC or GENERIC with a single completion.
type Classifier struct {
	text   services.TextGenerator
	logger *log.Logger
}

func NewClassifier(text services.TextGenerator, logger *log.Logger) *Classifier {
	return &Classifier{text: text, logger: shared.WithLogger(logger, "component", "classifier")}
}

// Classify never fails: generator errors and unrecognized answers fall back to [models.Generic].
func (c *Classifier) Classify(ctx context.Context, vibe string) models.Intent {
	out, err := c.text.Complete(ctx, services.CompletionRequest{
		System:      classifierSystem,
		Prompt:      fmt.Sprintf(classifierPrompt, strings.TrimSpace(vibe)),
		Temperature: services.Temperature(0),
		MaxTokens:   5,
	})
	if err != nil {
		c.logger.Warn("classification failed", "error", fmt.Errorf("%w: %v", shared.ErrClassification, err))
		return models.Generic
	}

	intent, err := ParseIntent(out)
	if err != nil {
		c.logger.Warn("classification failed", "error", err)
		return models.Generic
	}
	c.logger.Debug("classified vibe", "vibe", vibe, "intent", intent)
	return intent
}

// ParseIntent accepts SPECIFIC or GENERIC in any case, ignoring surrounding punctuation and whitespace.
func ParseIntent(out string) (models.Intent, error) {
	label := strings.TrimFunc(out, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsPunct(r) })
	switch strings.ToUpper(label) {
	case "SPECIFIC":
		return models.Specific, nil
	case "GENERIC":
		return models.Generic, nil
	default:
		return models.Generic, fmt.Errorf("%w: unexpected label %q", shared.ErrClassification, shared.Truncate(out, 40))
	}
}
