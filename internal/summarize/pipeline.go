package summarize

import (
	"context"
	"fmt"
	"log/slog"

	"papersum/internal/chunker"
	"papersum/internal/llm"
	"papersum/internal/prompts"
	"papersum/internal/report"
	"papersum/internal/sections"
)

const (
	preambleTokens = 1500
	keywordTokens  = 2000
)

// Pipeline turns cleaned paper text into a structured summary. It always
// produces a result when the document yields any summarizable content;
// individual section or field failures degrade quality, never abort.
type Pipeline struct {
	parser     *sections.Parser
	summarizer *Summarizer
	llm        llm.Client
	chunker    *chunker.Chunker
	log        *slog.Logger
}

func NewPipeline(parser *sections.Parser, summarizer *Summarizer, client llm.Client, ch *chunker.Chunker, log *slog.Logger) *Pipeline {
	return &Pipeline{
		parser:     parser,
		summarizer: summarizer,
		llm:        client,
		chunker:    ch,
		log:        log,
	}
}

// Run executes the full sequence: parse sections, summarize each,
// extract structured fields, and assemble the record. titleHint comes
// from the document loader and wins over extraction when non-empty.
func (p *Pipeline) Run(ctx context.Context, text, titleHint string) (report.PaperSummary, error) {
	secs := p.parser.Parse(text)
	p.log.Info("detected sections", "count", len(secs))

	if !p.parser.Validate(secs) {
		// Structural warning only; processing continues with whatever
		// structure was recoverable.
		p.log.Warn("document structure may be incomplete")
	}

	order := p.parser.Order(secs)
	summaries := p.summarizer.SummarizeAll(ctx, secs, order)

	preamble := p.preamble(text, secs)
	ext := p.summarizer.ExtractFields(ctx, secs, summaries, preamble)

	findings := ext.Findings
	if len(findings) == 0 {
		findings = p.fallbackFindings(summaries)
	}

	title := titleHint
	if title == "" {
		title = "Untitled Paper"
	}

	keywords := p.extractKeywords(ctx, text)

	summary, err := report.New(report.Fields{
		Title:             title,
		Objective:         ext.Objective,
		StudyType:         ext.StudyType,
		Population:        ext.Population,
		Methods:           ext.Methods,
		KeyFindings:       findings,
		Limitations:       ext.Limitations,
		AuthorConclusions: ext.Conclusions,
		Keywords:          keywords,
		ModelUsed:         p.llm.PrimaryModel(),
	})
	if err != nil {
		return report.PaperSummary{}, fmt.Errorf("assembling summary: %w", err)
	}
	return summary, nil
}

// preamble returns a token-truncated prefix of the text before the first
// detected section; for numbered-format papers it often holds the
// abstract.
func (p *Pipeline) preamble(text string, secs map[sections.Name]sections.Section) string {
	if len(secs) == 0 {
		return ""
	}
	if _, ok := secs[sections.FullText]; ok {
		return ""
	}
	first := len(text)
	for _, sec := range secs {
		if sec.Start < first {
			first = sec.Start
		}
	}
	if first <= 0 {
		return ""
	}
	return p.chunker.TruncateToTokens(text[:first], preambleTokens)
}

// fallbackFindings degrades to a section summary verbatim when findings
// extraction produced nothing: the results summary first, then the
// full-document summary for heading-less papers.
func (p *Pipeline) fallbackFindings(summaries map[sections.Name]string) []string {
	for _, name := range []sections.Name{sections.Results, sections.FullText} {
		if summary, ok := summaries[name]; ok && summary != "" {
			return []string{summary}
		}
	}
	return nil
}

// extractKeywords analyzes a token-truncated prefix of the paper. A
// failure yields an empty list, never an error.
func (p *Pipeline) extractKeywords(ctx context.Context, text string) []string {
	truncated := p.chunker.TruncateToTokens(text, keywordTokens)

	out, err := p.llm.Complete(ctx, llm.Request{
		Prompt:      prompts.Keywords(truncated),
		System:      prompts.System,
		Temperature: &tempPrecise,
		JSONMode:    true,
	})
	if err != nil {
		p.log.Error("failed to extract keywords", "err", err)
		return nil
	}
	var keywords []string
	if err := llm.DecodeJSON(out, &keywords); err != nil {
		p.log.Error("failed to decode keywords", "err", err)
		return nil
	}
	return keywords
}
