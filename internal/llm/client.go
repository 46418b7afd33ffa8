package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"papersum/internal/retry"
)

// backend issues one raw completion against a concrete provider API.
type backend interface {
	complete(ctx context.Context, model string, call callParams) (string, error)
}

// callParams is a fully resolved request: defaults already applied.
type callParams struct {
	prompt      string
	system      string
	temperature float64
	maxTokens   int
	jsonMode    bool
}

// resolvedModel carries a model identifier together with the backend
// chosen for it at construction time.
type resolvedModel struct {
	name    string
	backend backend
}

// Options configures a GenerationClient.
type Options struct {
	PrimaryModel  string
	FallbackModel string
	AnthropicKey  string
	OpenAIKey     string
	Temperature   float64
	MaxTokens     int
	MaxRetries    int
	Timeout       time.Duration
	BaseDelay     time.Duration
	Log           *slog.Logger
}

// GenerationClient drives one or more text-generation backends with
// timeout, exponential-backoff retry, and primary-to-fallback model
// substitution. Calls are synchronous; the backoff sleep blocks.
type GenerationClient struct {
	primary     resolvedModel
	fallback    *resolvedModel
	temperature float64
	maxTokens   int
	maxRetries  int
	baseDelay   time.Duration
	log         *slog.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

// New resolves both model identifiers to providers and verifies their
// credentials. All failure modes here are configuration errors raised
// before any generation call.
func New(opts Options) (*GenerationClient, error) {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	primary, err := buildModel(opts.PrimaryModel, opts)
	if err != nil {
		return nil, err
	}

	c := &GenerationClient{
		primary:     *primary,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		maxRetries:  opts.MaxRetries,
		baseDelay:   opts.BaseDelay,
		log:         opts.Log,
		sleep:       time.Sleep,
	}
	if opts.FallbackModel != "" {
		fb, err := buildModel(opts.FallbackModel, opts)
		if err != nil {
			return nil, err
		}
		c.fallback = fb
	}
	return c, nil
}

func buildModel(model string, opts Options) (*resolvedModel, error) {
	provider, err := ResolveProvider(model)
	if err != nil {
		return nil, err
	}
	switch provider {
	case ProviderAnthropic:
		if opts.AnthropicKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for model %q", model)
		}
		return &resolvedModel{name: model, backend: newAnthropicBackend(opts.AnthropicKey, opts.Timeout)}, nil
	case ProviderOpenAI:
		if opts.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for model %q", model)
		}
		return &resolvedModel{name: model, backend: newOpenAIBackend(opts.OpenAIKey, opts.Timeout)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, model)
	}
}

// PrimaryModel returns the configured primary model identifier.
func (c *GenerationClient) PrimaryModel() string {
	return c.primary.name
}

// MaxResponseTokens returns the configured maximum response size.
func (c *GenerationClient) MaxResponseTokens() int {
	return c.maxTokens
}

// Complete runs the retry sequence on the primary model and, if that is
// exhausted, on the fallback. It fails with a GenerationError only after
// both paths are spent.
func (c *GenerationClient) Complete(ctx context.Context, req Request) (string, error) {
	call := c.resolve(req)

	out, err := c.callModel(ctx, c.primary, call)
	if err == nil {
		return out, nil
	}
	c.log.Warn("primary model failed", "model", c.primary.name, "err", err)

	if c.fallback == nil {
		return "", &GenerationError{Model: c.primary.name, Attempts: c.maxRetries, Err: err}
	}

	c.log.Info("attempting fallback model", "model", c.fallback.name)
	out, err = c.callModel(ctx, *c.fallback, call)
	if err == nil {
		return out, nil
	}
	return "", &GenerationError{Model: c.fallback.name, Attempts: c.maxRetries, Err: err}
}

func (c *GenerationClient) resolve(req Request) callParams {
	call := callParams{
		prompt:      req.Prompt,
		system:      req.System,
		temperature: c.temperature,
		maxTokens:   c.maxTokens,
		jsonMode:    req.JSONMode,
	}
	if req.Temperature != nil {
		call.temperature = *req.Temperature
	}
	if req.MaxTokens > 0 {
		call.maxTokens = req.MaxTokens
	}
	return call
}

// callModel runs up to maxRetries attempts against one model, sleeping
// base*2^(k-1) before retry k. Malformed structured output is retried the
// same as a transport error; the last error is the one reported.
func (c *GenerationClient) callModel(ctx context.Context, m resolvedModel, call callParams) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retry.ExponentialBackoff(attempt-1, c.baseDelay)
			c.log.Debug("retrying generation", "model", m.name, "attempt", attempt+1, "delay", delay)
			c.sleep(delay)
		}

		out, err := m.backend.complete(ctx, m.name, call)
		if err != nil {
			lastErr = err
			continue
		}
		if call.jsonMode {
			if _, err := cleanStructured(out); err != nil {
				lastErr = err
				continue
			}
		}
		return out, nil
	}
	return "", lastErr
}

// DecodeJSON parses a structured-mode response into v, stripping a
// leading and trailing delimiter fence first.
func DecodeJSON(response string, v any) error {
	cleaned, err := cleanStructured(response)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

// cleanStructured strips markdown code fences and verifies the remainder
// is valid JSON.
func cleanStructured(response string) (string, error) {
	cleaned := strings.TrimSpace(response)
	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.IndexByte(cleaned, '\n'); idx >= 0 {
			cleaned = cleaned[idx+1:]
		} else {
			cleaned = cleaned[3:]
		}
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	if !json.Valid([]byte(cleaned)) {
		preview := cleaned
		if len(preview) > 80 {
			preview = preview[:80]
		}
		return "", fmt.Errorf("%w: %q", ErrMalformedResponse, preview)
	}
	return cleaned, nil
}
