// OpenAI implementation of [TextGenerator] and [ImageGenerator]
//
// Chat completions and image generation over the REST API; responses are checked with gjson before use.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibemix/internal/shared"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

const openAIVendor = "openai"

// OpenAIClient talks to the chat completion and image endpoints.
type OpenAIClient struct {
	http   *resty.Client
	config shared.OpenAIConfig
	logger *log.Logger
}

// NewOpenAIClient creates a client from config. The API key is required.
func NewOpenAIClient(config shared.OpenAIConfig, logger *log.Logger) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api_key", shared.ErrMissingCredentials)
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	timeout := time.Duration(config.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetAuthToken(config.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &OpenAIClient{http: client, config: config, logger: shared.WithLogger(logger, "service", openAIVendor)}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type imageRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality,omitempty"`
	Style   string `json:"style,omitempty"`
}

// Complete sends one chat completion and returns the trimmed message content.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	temperature := c.config.Creativity
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := c.post(ctx, "/chat/completions", chatRequest{
		Model:       c.config.TextModel,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if content.Type != gjson.String {
		return "", fmt.Errorf("%w: completion response has no message content", shared.ErrVendorResponse)
	}
	return strings.TrimSpace(content.Str), nil
}

// GenerateImage renders a single image and returns its temporary URL.
func (c *OpenAIClient) GenerateImage(ctx context.Context, req ImageRequest) (string, error) {
	payload := imageRequest{
		Model:   c.config.ImageModel,
		Prompt:  req.Prompt,
		N:       1,
		Size:    firstNonEmpty(req.Size, c.config.ImageSize, "1024x1024"),
		Quality: firstNonEmpty(req.Quality, c.config.Quality),
		Style:   firstNonEmpty(req.Style, c.config.Style),
	}

	body, err := c.post(ctx, "/images/generations", payload)
	if err != nil {
		return "", err
	}

	url := gjson.GetBytes(body, "data.0.url")
	if url.Type != gjson.String || url.Str == "" {
		return "", fmt.Errorf("%w: image response has no url", shared.ErrVendorResponse)
	}
	return url.Str, nil
}

// Ping lists models to confirm the key and endpoint work.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/models")
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	if resp.IsError() {
		return shared.NewVendorError(openAIVendor, resp.StatusCode(), errorMessage(resp.Body()))
	}
	return nil
}

// post sends payload and returns the validated JSON body, retrying transient failures with exponential backoff.
func (c *OpenAIClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	var body []byte

	operation := func() error {
		resp, err := c.http.R().SetContext(ctx).SetBody(payload).Post(path)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("%w: %v", shared.ErrNetwork, err)
		}

		if resp.IsError() {
			verr := shared.NewVendorError(openAIVendor, resp.StatusCode(), errorMessage(resp.Body()))
			if errors.Is(verr, shared.ErrVendorTransient) || resp.StatusCode() == 500 {
				return verr
			}
			return backoff.Permanent(verr)
		}

		if !gjson.ValidBytes(resp.Body()) {
			return backoff.Permanent(fmt.Errorf("%w: invalid json from %s", shared.ErrVendorResponse, path))
		}
		body = resp.Body()
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(newBackoff(), c.config.MaxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("retrying request", "path", path, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, err
	}
	return body, nil
}

func newBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = time.Minute
	return b
}

// errorMessage extracts error.message from an OpenAI error body.
func errorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return msg.String()
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
