package tokenizer

import (
	"strings"
)

// Tokenizer counts and truncates text in model tokens. All chunk sizing
// decisions in the pipeline go through this interface; character or word
// counts are never substituted where a Tokenizer is available.
type Tokenizer interface {
	// CountTokens returns the exact token count of text.
	CountTokens(text string) int
	// Truncate decodes only the first maxTokens encoded tokens back to
	// text. Lossy at the truncation boundary.
	Truncate(text string, maxTokens int) string
}

// Words approximates tokens by whitespace-delimited words. It is
// deterministic and dependency-free, which makes it the tokenizer of
// choice in tests; production wiring uses Tiktoken.
type Words struct{}

func (Words) CountTokens(text string) int {
	return len(strings.Fields(text))
}

func (Words) Truncate(text string, maxTokens int) string {
	words := strings.Fields(text)
	if len(words) <= maxTokens {
		return text
	}
	return strings.Join(words[:maxTokens], " ")
}
