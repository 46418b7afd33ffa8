package llm

import (
	"fmt"
	"strings"
)

// Provider enumerates the supported generation backends. A model
// identifier resolves to exactly one provider by naming prefix, once, at
// client construction.
type Provider int

const (
	ProviderAnthropic Provider = iota
	ProviderOpenAI
)

func (p Provider) String() string {
	switch p {
	case ProviderAnthropic:
		return "anthropic"
	case ProviderOpenAI:
		return "openai"
	default:
		return "unknown"
	}
}

// ResolveProvider maps a model identifier to its backend provider.
func ResolveProvider(model string) (Provider, error) {
	switch {
	case strings.HasPrefix(model, "claude"):
		return ProviderAnthropic, nil
	case strings.HasPrefix(model, "gpt"):
		return ProviderOpenAI, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownProvider, model)
	}
}
