package llm

import "context"

// Request is one generation call. Zero values fall back to the client's
// configured defaults.
type Request struct {
	Prompt      string
	System      string
	Temperature *float64
	MaxTokens   int
	JSONMode    bool
}

// Client is the minimal generation interface the pipeline depends on;
// mocks and alternative providers plug in behind it.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	PrimaryModel() string
	MaxResponseTokens() int
}
