package llm

import (
	"errors"
	"fmt"
)

// ErrUnknownProvider marks a model identifier that maps to no backend.
// This is a configuration error surfaced at client construction, never a
// runtime retry case.
var ErrUnknownProvider = errors.New("cannot determine provider for model")

// ErrMalformedResponse marks structured-mode output that fails to parse
// after fence stripping. Distinct from transport failures, but retried
// identically.
var ErrMalformedResponse = errors.New("malformed structured response")

// GenerationError is returned by Complete only after both primary and
// fallback attempt sequences are exhausted. It wraps the last error seen.
type GenerationError struct {
	Model    string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed on %s after %d attempts: %v", e.Model, e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
