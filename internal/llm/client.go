// Package llm provides the text-completion capability used by all
// generation stages.
//
// The backend is any OpenAI-compatible completion API reached through
// langchaingo. Model selection happens per call so one client can serve
// both the cheap analysis model and the stronger drafting model.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrEmptyPrompt indicates an empty prompt was submitted.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Client issues one completion call per invocation.
type Client interface {
	// Complete sends prompt to the named model and returns the generated text.
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Config holds backend connection settings.
type Config struct {
	// BaseURL is the API base URL. Works for OpenAI and any
	// OpenAI-compatible server.
	BaseURL string

	// APIKey authenticates against the backend.
	APIKey string

	// DefaultModel is used when a call names no model.
	DefaultModel string
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL is required")
	}
	if c.DefaultModel == "" {
		return errors.New("default model is required")
	}
	return nil
}

type client struct {
	llm    *openai.LLM
	config Config
}

// NewClient creates a completion client for the configured backend.
func NewClient(cfg Config) (Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		// langchaingo requires a token even for keyless local servers.
		apiKey = "placeholder"
	}

	backend, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.DefaultModel),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	return &client{llm: backend, config: cfg}, nil
}

func (c *client) Complete(ctx context.Context, model, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	if model == "" {
		model = c.config.DefaultModel
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, llms.WithModel(model))
	if err != nil {
		return "", fmt.Errorf("completion call failed: %w", err)
	}
	return out, nil
}
