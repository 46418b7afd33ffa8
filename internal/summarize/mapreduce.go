package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"papersum/internal/chunker"
	"papersum/internal/llm"
	"papersum/internal/prompts"
	"papersum/internal/sections"
)

// directThresholdRatio decides DIRECT vs MAP_REDUCE: sections at or under
// this share of the client's maximum response tokens are summarized in a
// single call, leaving room for the prompt.
const directThresholdRatio = 0.7

// Prompt-budget constants for field extraction sources, in tokens.
const (
	metadataIntroTokens   = 1200
	metadataMethodsTokens = 800
	methodsSourceTokens   = 2000
)

var (
	tempPrecise  = 0.1
	tempStandard = 0.2
)

// Summarizer drives per-section map-reduce summarization and the second
// round of structured field extraction. All calls run strictly
// sequentially.
type Summarizer struct {
	llm       llm.Client
	chunker   *chunker.Chunker
	maxChunks int
	log       *slog.Logger
}

func NewSummarizer(client llm.Client, ch *chunker.Chunker, maxChunks int, log *slog.Logger) *Summarizer {
	return &Summarizer{
		llm:       client,
		chunker:   ch,
		maxChunks: maxChunks,
		log:       log,
	}
}

// SummarizeSection summarizes one section, directly when it fits the
// response budget and via chunk map + reduce merge otherwise.
func (s *Summarizer) SummarizeSection(ctx context.Context, sec sections.Section) (string, error) {
	tokens := s.chunker.CountTokens(sec.Content)
	threshold := int(float64(s.llm.MaxResponseTokens()) * directThresholdRatio)

	if tokens <= threshold {
		s.log.Debug("summarizing section directly", "section", sec.Name, "tokens", tokens)
		return s.summarizeText(ctx, sec.Name, sec.Content)
	}

	chunks := s.chunker.Chunk(sec.Content)
	if len(chunks) > s.maxChunks {
		// Documented lossy policy: later chunks are dropped, not an error.
		s.log.Warn("truncating chunk sequence",
			"section", sec.Name, "chunks", len(chunks), "ceiling", s.maxChunks)
		chunks = chunks[:s.maxChunks]
	}

	// Map phase: each retained chunk is summarized independently.
	summaries := make([]string, 0, len(chunks))
	for _, ch := range chunks {
		s.log.Debug("summarizing chunk", "section", sec.Name, "chunk", ch.Index, "of", len(chunks))
		summary, err := s.summarizeText(ctx, sec.Name, ch.Text)
		if err != nil {
			return "", fmt.Errorf("chunk %d of %s: %w", ch.Index, sec.Name, err)
		}
		summaries = append(summaries, summary)
	}

	if len(summaries) == 1 {
		return summaries[0], nil
	}

	// Reduce phase: one synthesis call over the labeled chunk summaries.
	return s.combine(ctx, sec.Name, summaries)
}

func (s *Summarizer) summarizeText(ctx context.Context, name sections.Name, text string) (string, error) {
	out, err := s.llm.Complete(ctx, llm.Request{
		Prompt:      prompts.ChunkSummary(name, text),
		System:      prompts.System,
		Temperature: &tempStandard,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (s *Summarizer) combine(ctx context.Context, name sections.Name, summaries []string) (string, error) {
	labeled := make([]string, len(summaries))
	for i, summary := range summaries {
		labeled[i] = fmt.Sprintf("CHUNK %d:\n%s", i+1, summary)
	}

	out, err := s.llm.Complete(ctx, llm.Request{
		Prompt:      prompts.SectionSynthesis(name, strings.Join(labeled, "\n\n"), len(summaries)),
		System:      prompts.System,
		Temperature: &tempStandard,
	})
	if err != nil {
		return "", fmt.Errorf("combining %d summaries for %s: %w", len(summaries), name, err)
	}
	return strings.TrimSpace(out), nil
}

// SummarizeAll summarizes sections in the given order. A failing section
// yields an inline error marker and never aborts the others.
func (s *Summarizer) SummarizeAll(ctx context.Context, secs map[sections.Name]sections.Section, order []sections.Name) map[sections.Name]string {
	summaries := make(map[sections.Name]string, len(secs))
	for _, name := range order {
		sec, ok := secs[name]
		if !ok {
			continue
		}
		summary, err := s.SummarizeSection(ctx, sec)
		if err != nil {
			s.log.Error("failed to summarize section", "section", name, "err", err)
			summaries[name] = errorMarker(err)
			continue
		}
		summaries[name] = summary
	}
	return summaries
}

func errorMarker(err error) string {
	msg := err.Error()
	if len(msg) > 100 {
		msg = msg[:100]
	}
	return fmt.Sprintf("[Error summarizing section: %s]", msg)
}

// Extraction accumulates the structured field values pulled out of
// section summaries and raw section text.
type Extraction struct {
	Objective   string
	StudyType   string
	Population  string
	Methods     string
	Findings    []string
	Limitations []string
	Conclusions string
}

// ExtractFields runs the second round of prompts. Each field is isolated:
// one field's failure is logged and degraded, never propagated.
func (s *Summarizer) ExtractFields(ctx context.Context, secs map[sections.Name]sections.Section, summaries map[sections.Name]string, preamble string) Extraction {
	var ext Extraction

	if text := s.metadataSource(secs, preamble); text != "" {
		if err := s.extractMetadata(ctx, text, &ext); err != nil {
			s.log.Error("failed to extract metadata", "err", err)
		}
	}

	if source, fallback := s.methodsSource(secs, summaries); source != "" {
		methods, err := s.extractMethods(ctx, source)
		if err != nil {
			s.log.Error("failed to extract methods", "err", err)
			methods = fallback
		}
		ext.Methods = methods
	}

	if resultsSummary, ok := summaries[sections.Results]; ok {
		findings, err := s.extractFindings(ctx, resultsSummary)
		if err != nil {
			s.log.Error("failed to extract findings", "err", err)
			findings = []string{resultsSummary}
		}
		ext.Findings = findings
	}

	if text := limitationsSource(secs, summaries); text != "" {
		limitations, err := s.extractLimitations(ctx, text)
		if err != nil {
			s.log.Error("failed to extract limitations", "err", err)
			limitations = nil
		}
		ext.Limitations = limitations
	}

	if text := conclusionSource(summaries); text != "" {
		conclusions, err := s.extractConclusions(ctx, text)
		if err != nil {
			s.log.Error("failed to extract conclusions", "err", err)
			conclusions = ""
		}
		ext.Conclusions = conclusions
	}

	return ext
}

// metadataSource prefers the abstract, falling back to the pre-heading
// preamble, enriched with truncated introduction and methods prefixes.
// Richer context outranks brevity for these fields.
func (s *Summarizer) metadataSource(secs map[sections.Name]sections.Section, preamble string) string {
	var parts []string
	if abstract, ok := secs[sections.Abstract]; ok {
		parts = append(parts, abstract.Content)
	} else if preamble != "" {
		parts = append(parts, preamble)
	}
	if intro, ok := secs[sections.Introduction]; ok {
		parts = append(parts, s.chunker.TruncateToTokens(intro.Content, metadataIntroTokens))
	}
	// Study type and population often appear at the start of methods.
	if methods, ok := secs[sections.Methods]; ok {
		parts = append(parts, "METHODS:\n"+s.chunker.TruncateToTokens(methods.Content, metadataMethodsTokens))
	}
	return strings.Join(parts, "\n\n")
}

// methodsSource prefers raw methods content for detail, falling back to
// the methods summary; the summary is also the degraded value on failure.
func (s *Summarizer) methodsSource(secs map[sections.Name]sections.Section, summaries map[sections.Name]string) (source, fallback string) {
	fallback = summaries[sections.Methods]
	if methods, ok := secs[sections.Methods]; ok {
		return s.chunker.TruncateToTokens(methods.Content, methodsSourceTokens), fallback
	}
	return fallback, fallback
}

func limitationsSource(secs map[sections.Name]sections.Section, summaries map[sections.Name]string) string {
	if limitations, ok := secs[sections.Limitations]; ok {
		return limitations.Content
	}
	return summaries[sections.Discussion]
}

func conclusionSource(summaries map[sections.Name]string) string {
	if conclusion, ok := summaries[sections.Conclusion]; ok {
		return conclusion
	}
	return summaries[sections.Discussion]
}

func (s *Summarizer) extractMetadata(ctx context.Context, text string, ext *Extraction) error {
	out, err := s.llm.Complete(ctx, llm.Request{
		Prompt:      prompts.Metadata(text),
		System:      prompts.System,
		Temperature: &tempPrecise,
		JSONMode:    true,
	})
	if err != nil {
		return err
	}
	var metadata struct {
		Objective  string `json:"objective"`
		StudyType  string `json:"study_type"`
		Population string `json:"population"`
	}
	if err := llm.DecodeJSON(out, &metadata); err != nil {
		return err
	}
	ext.Objective = metadata.Objective
	ext.StudyType = metadata.StudyType
	ext.Population = metadata.Population
	return nil
}

func (s *Summarizer) extractMethods(ctx context.Context, text string) (string, error) {
	out, err := s.llm.Complete(ctx, llm.Request{
		Prompt:      prompts.MethodsNarrative(text),
		System:      prompts.System,
		Temperature: &tempStandard,
	})
	if err != nil {
		return "", err
	}
	return stripLeadingHeader(strings.TrimSpace(out)), nil
}

// stripLeadingHeader drops a markdown header line the model sometimes
// prepends despite instructions.
func stripLeadingHeader(text string) string {
	if !strings.HasPrefix(text, "#") {
		return text
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[idx+1:])
	}
	return text
}

func (s *Summarizer) extractFindings(ctx context.Context, resultsText string) ([]string, error) {
	out, err := s.llm.Complete(ctx, llm.Request{
		Prompt:      prompts.Findings(resultsText),
		System:      prompts.System,
		Temperature: &tempPrecise,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}
	// Each element is kept verbatim, order preserved.
	var findings []string
	if err := llm.DecodeJSON(out, &findings); err != nil {
		return nil, err
	}
	return findings, nil
}

func (s *Summarizer) extractLimitations(ctx context.Context, text string) ([]string, error) {
	out, err := s.llm.Complete(ctx, llm.Request{
		Prompt:      prompts.Limitations(text),
		System:      prompts.System,
		Temperature: &tempPrecise,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}
	var limitations []string
	if err := llm.DecodeJSON(out, &limitations); err != nil {
		return nil, err
	}
	return limitations, nil
}

func (s *Summarizer) extractConclusions(ctx context.Context, text string) (string, error) {
	out, err := s.llm.Complete(ctx, llm.Request{
		Prompt:      prompts.Conclusions(text),
		System:      prompts.System,
		Temperature: &tempStandard,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
