package chunker

import (
	"log/slog"
	"regexp"
	"strings"

	"papersum/internal/tokenizer"
)

// Chunk represents a token-bounded slice of a section's text. Chunks in
// one call form a 0-based contiguous sequence; adjacent chunks share a
// sentence-granular overlap measured in tokens.
type Chunk struct {
	Index      int
	Text       string
	Start      int
	End        int
	TokenCount int
}

// Chunker splits text into overlapping token-bounded segments along
// sentence boundaries. ChunkOverlap < ChunkSize is a precondition
// enforced by config validation, not here.
type Chunker struct {
	tok     tokenizer.Tokenizer
	size    int
	overlap int
	log     *slog.Logger
}

func New(tok tokenizer.Tokenizer, chunkSize, chunkOverlap int, log *slog.Logger) *Chunker {
	return &Chunker{
		tok:     tok,
		size:    chunkSize,
		overlap: chunkOverlap,
		log:     log,
	}
}

// oversizedFactor triggers the comma/semicolon fallback split for
// sentences that blow past the chunk budget, usually a sign of broken
// extraction rather than real prose. Heuristic, not a contract.
const oversizedFactor = 1.5

var (
	newlineRuns      = regexp.MustCompile(`\n+`)
	clauseBoundary   = regexp.MustCompile(`[;,]\s+`)
	sentenceBoundary = regexp.MustCompile(`[.!?]\s+[A-Z]`)
)

// Chunk packs sentences into chunks of at most the configured token size,
// seeding each new chunk with a trailing-sentence overlap from the one it
// closes. No chunk exceeds the budget except a single sentence that is
// itself oversized and unsplittable.
func (c *Chunker) Chunk(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	sentences := c.splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var (
		chunks        []Chunk
		current       []string
		currentTokens int
		start         int
	)

	flush := func() {
		joined := strings.Join(current, " ")
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Text:       joined,
			Start:      start,
			End:        start + len(joined),
			TokenCount: currentTokens,
		})
	}

	for _, sentence := range sentences {
		sentTokens := c.tok.CountTokens(sentence)

		if currentTokens > 0 && currentTokens+sentTokens > c.size {
			flush()

			// Seed the next chunk with whole trailing sentences up to
			// the overlap budget.
			overlap, overlapTokens := c.trailingOverlap(current)
			prevEnd := chunks[len(chunks)-1].End
			current = overlap
			currentTokens = overlapTokens
			start = prevEnd - len(strings.Join(overlap, " "))
		}

		current = append(current, sentence)
		currentTokens += sentTokens
	}

	if len(current) > 0 {
		flush()
	}
	return chunks
}

// trailingOverlap walks backward through the sentences just placed in a
// closed chunk, accumulating whole sentences until the next one would
// exceed the overlap token budget.
func (c *Chunker) trailingOverlap(placed []string) ([]string, int) {
	var (
		overlap []string
		total   int
	)
	for i := len(placed) - 1; i >= 0; i-- {
		n := c.tok.CountTokens(placed[i])
		if total+n > c.overlap {
			break
		}
		overlap = append([]string{placed[i]}, overlap...)
		total += n
	}
	return overlap, total
}

// splitSentences segments text on sentence-final punctuation followed by
// whitespace and an uppercase letter, after collapsing internal newlines.
// Units beyond 1.5x the chunk budget are re-split on clause punctuation.
func (c *Chunker) splitSentences(text string) []string {
	text = newlineRuns.ReplaceAllString(text, " ")

	var sentences []string
	rest := text
	for {
		loc := sentenceBoundary.FindStringIndex(rest)
		if loc == nil {
			break
		}
		// Cut after the terminal punctuation, keeping the uppercase
		// letter with the next sentence.
		sentences = append(sentences, rest[:loc[0]+1])
		rest = rest[loc[1]-1:]
	}
	sentences = append(sentences, rest)

	limit := int(float64(c.size) * oversizedFactor)
	var final []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if c.tok.CountTokens(s) > limit {
			if c.log != nil {
				c.log.Debug("splitting oversized sentence on clause boundaries", "tokens", c.tok.CountTokens(s))
			}
			for _, sub := range clauseBoundary.Split(s, -1) {
				sub = strings.TrimSpace(sub)
				if sub != "" {
					final = append(final, sub)
				}
			}
			continue
		}
		final = append(final, s)
	}
	return final
}

// CountTokens exposes the sizing tokenizer's exact count.
func (c *Chunker) CountTokens(text string) int {
	return c.tok.CountTokens(text)
}

// TruncateToTokens decodes only the first n tokens of text back to text.
// Used for prompt-length budgeting, never for final output.
func (c *Chunker) TruncateToTokens(text string, n int) string {
	return c.tok.Truncate(text, n)
}
