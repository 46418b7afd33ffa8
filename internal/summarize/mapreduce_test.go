package summarize

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"papersum/internal/chunker"
	"papersum/internal/llm"
	"papersum/internal/sections"
	"papersum/internal/tokenizer"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func promptContains(sub string) interface{} {
	return mock.MatchedBy(func(r llm.Request) bool {
		return strings.Contains(r.Prompt, sub)
	})
}

// sixSentences is 24 word-tokens: 6 sentences of 4 words each.
const sixSentences = "Alpha beta gamma delta. Epsilon zeta eta theta. Iota kappa lambda mu. " +
	"Nu xi omicron pi. Rho sigma tau upsilon. Phi chi psi omega."

func newSummarizer(client llm.Client, chunkSize, overlap, maxChunks int) *Summarizer {
	ch := chunker.New(tokenizer.Words{}, chunkSize, overlap, discard())
	return NewSummarizer(client, ch, maxChunks, discard())
}

func TestSummarizeSectionDirectBelowThreshold(t *testing.T) {
	client := new(llm.MockClient)
	client.On("MaxResponseTokens").Return(100) // threshold 70 tokens
	client.On("Complete", mock.Anything, promptContains("Summarize the following excerpt")).
		Return("direct summary", nil).Once()

	s := newSummarizer(client, 8, 2, 20)
	sec := sections.Section{Name: sections.Results, Content: sixSentences}

	out, err := s.SummarizeSection(context.Background(), sec)

	require.NoError(t, err)
	assert.Equal(t, "direct summary", out)
	// A single call means the chunker was never consulted.
	client.AssertNumberOfCalls(t, "Complete", 1)
}

func TestSummarizeSectionMapReduce(t *testing.T) {
	client := new(llm.MockClient)
	client.On("MaxResponseTokens").Return(10) // threshold 7 tokens
	client.On("Complete", mock.Anything, promptContains("Summarize the following excerpt")).
		Return("chunk summary", nil).Times(3)
	client.On("Complete", mock.Anything, promptContains("Combine them into a coherent summary")).
		Return("merged summary", nil).Once()

	s := newSummarizer(client, 8, 2, 20)
	sec := sections.Section{Name: sections.Results, Content: sixSentences}

	out, err := s.SummarizeSection(context.Background(), sec)

	require.NoError(t, err)
	assert.Equal(t, "merged summary", out)
	client.AssertExpectations(t)
}

func TestSummarizeSectionReducePromptLabelsChunks(t *testing.T) {
	client := new(llm.MockClient)
	client.On("MaxResponseTokens").Return(10)
	client.On("Complete", mock.Anything, promptContains("Summarize the following excerpt")).
		Return("chunk summary", nil)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return strings.Contains(r.Prompt, "CHUNK 1:") && strings.Contains(r.Prompt, "CHUNK 3:")
	})).Return("merged", nil).Once()

	s := newSummarizer(client, 8, 2, 20)
	_, err := s.SummarizeSection(context.Background(), sections.Section{Name: sections.Results, Content: sixSentences})

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestSummarizeSectionSingleChunkSkipsReduce(t *testing.T) {
	client := new(llm.MockClient)
	client.On("MaxResponseTokens").Return(10) // threshold 7; content is 8 tokens
	client.On("Complete", mock.Anything, promptContains("Summarize the following excerpt")).
		Return("only chunk summary", nil).Once()

	s := newSummarizer(client, 20, 2, 20)
	sec := sections.Section{Name: sections.Methods, Content: "Alpha beta gamma delta. Epsilon zeta eta theta."}

	out, err := s.SummarizeSection(context.Background(), sec)

	require.NoError(t, err)
	assert.Equal(t, "only chunk summary", out)
	client.AssertNumberOfCalls(t, "Complete", 1)
}

func TestSummarizeSectionChunkCeilingTruncates(t *testing.T) {
	client := new(llm.MockClient)
	client.On("MaxResponseTokens").Return(10)
	client.On("Complete", mock.Anything, promptContains("Summarize the following excerpt")).
		Return("chunk summary", nil).Times(2)
	client.On("Complete", mock.Anything, promptContains("You have 2 summaries")).
		Return("merged", nil).Once()

	// Chunk size 8 over 24 tokens yields 3 chunks; ceiling 2 drops the last.
	s := newSummarizer(client, 8, 2, 2)
	_, err := s.SummarizeSection(context.Background(), sections.Section{Name: sections.Discussion, Content: sixSentences})

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestSummarizeAllIsolatesFailures(t *testing.T) {
	client := new(llm.MockClient)
	client.On("MaxResponseTokens").Return(1000)
	client.On("Complete", mock.Anything, promptContains("methods content here")).
		Return("", errors.New("backend exploded")).Once()
	client.On("Complete", mock.Anything, promptContains("results content here")).
		Return("results summary", nil).Once()

	s := newSummarizer(client, 8, 2, 20)
	secs := map[sections.Name]sections.Section{
		sections.Methods: {Name: sections.Methods, Content: "methods content here"},
		sections.Results: {Name: sections.Results, Content: "results content here"},
	}

	summaries := s.SummarizeAll(context.Background(), secs, []sections.Name{sections.Methods, sections.Results})

	assert.Equal(t, "results summary", summaries[sections.Results])
	assert.Contains(t, summaries[sections.Methods], "[Error summarizing section:")
	assert.Contains(t, summaries[sections.Methods], "backend exploded")
}

func TestExtractFieldsFindingsVerbatim(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, promptContains("Extract the key findings")).
		Return(`["A reduced X by 10% (p<0.01)", "B showed no effect"]`, nil).Once()

	s := newSummarizer(client, 8, 2, 20)
	summaries := map[sections.Name]string{
		sections.Results: "results summary text",
	}

	ext := s.ExtractFields(context.Background(), map[sections.Name]sections.Section{}, summaries, "")

	assert.Equal(t, []string{"A reduced X by 10% (p<0.01)", "B showed no effect"}, ext.Findings)
	client.AssertExpectations(t)
}

func TestExtractFieldsFindingsDegradeToSummary(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, promptContains("Extract the key findings")).
		Return("", errors.New("down")).Once()

	s := newSummarizer(client, 8, 2, 20)
	summaries := map[sections.Name]string{sections.Results: "verbatim results summary"}

	ext := s.ExtractFields(context.Background(), map[sections.Name]sections.Section{}, summaries, "")

	assert.Equal(t, []string{"verbatim results summary"}, ext.Findings)
}

func TestExtractFieldsMetadata(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, promptContains("Extract the following metadata")).
		Return(`{"objective": "Assess X", "study_type": "RCT", "population": "120 adults"}`, nil).Once()

	s := newSummarizer(client, 8, 2, 20)
	secs := map[sections.Name]sections.Section{
		sections.Abstract: {Name: sections.Abstract, Content: "We assessed X in adults."},
	}

	ext := s.ExtractFields(context.Background(), secs, map[sections.Name]string{}, "")

	assert.Equal(t, "Assess X", ext.Objective)
	assert.Equal(t, "RCT", ext.StudyType)
	assert.Equal(t, "120 adults", ext.Population)
}

func TestExtractFieldsMetadataUsesPreambleWithoutAbstract(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, promptContains("pre-heading preamble text")).
		Return(`{"objective": "O", "study_type": "S", "population": "P"}`, nil).Once()

	s := newSummarizer(client, 8, 2, 20)

	ext := s.ExtractFields(context.Background(), map[sections.Name]sections.Section{}, map[sections.Name]string{}, "pre-heading preamble text")

	assert.Equal(t, "O", ext.Objective)
	client.AssertExpectations(t)
}

func TestExtractFieldsLimitationsPreferRawSection(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return strings.Contains(r.Prompt, "Extract the study limitations") &&
			strings.Contains(r.Prompt, "raw limitations paragraph")
	})).Return(`["short follow-up", "single center"]`, nil).Once()
	client.On("Complete", mock.Anything, promptContains("authors' stated conclusions")).
		Return("conclusion text", nil).Once()

	s := newSummarizer(client, 8, 2, 20)
	secs := map[sections.Name]sections.Section{
		sections.Limitations: {Name: sections.Limitations, Content: "raw limitations paragraph"},
	}
	summaries := map[sections.Name]string{sections.Discussion: "discussion summary"}

	ext := s.ExtractFields(context.Background(), secs, summaries, "")

	assert.Equal(t, []string{"short follow-up", "single center"}, ext.Limitations)
	client.AssertExpectations(t)
}

func TestExtractFieldsLimitationsFallBackToDiscussionSummary(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, promptContains("Extract the study limitations")).
		Return(`["limitation from discussion"]`, nil).Once()
	client.On("Complete", mock.Anything, promptContains("authors' stated conclusions")).
		Return("conclusion text", nil).Once()

	s := newSummarizer(client, 8, 2, 20)
	summaries := map[sections.Name]string{sections.Discussion: "discussion summary text"}

	ext := s.ExtractFields(context.Background(), map[sections.Name]sections.Section{}, summaries, "")

	assert.Equal(t, []string{"limitation from discussion"}, ext.Limitations)
}

func TestExtractFieldsConclusionsPreferConclusionSummary(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return strings.Contains(r.Prompt, "authors' stated conclusions") &&
			strings.Contains(r.Prompt, "conclusion summary text")
	})).Return("The authors conclude X.", nil).Once()
	client.On("Complete", mock.Anything, promptContains("Extract the study limitations")).
		Return(`[]`, nil).Once()
	// The discussion summary also exists but must not be used for conclusions.
	s := newSummarizer(client, 8, 2, 20)
	summaries := map[sections.Name]string{
		sections.Conclusion: "conclusion summary text",
		sections.Discussion: "discussion summary text",
	}

	ext := s.ExtractFields(context.Background(), map[sections.Name]sections.Section{}, summaries, "")

	assert.Equal(t, "The authors conclude X.", ext.Conclusions)
	client.AssertExpectations(t)
}

func TestExtractFieldsIsolation(t *testing.T) {
	// Metadata fails, findings still succeed.
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, promptContains("Extract the following metadata")).
		Return("", errors.New("metadata down")).Once()
	client.On("Complete", mock.Anything, promptContains("Extract the key findings")).
		Return(`["finding"]`, nil).Once()

	s := newSummarizer(client, 8, 2, 20)
	secs := map[sections.Name]sections.Section{
		sections.Abstract: {Name: sections.Abstract, Content: "abstract text"},
	}
	summaries := map[sections.Name]string{sections.Results: "results summary"}

	ext := s.ExtractFields(context.Background(), secs, summaries, "")

	assert.Empty(t, ext.Objective)
	assert.Equal(t, []string{"finding"}, ext.Findings)
}

func TestExtractFieldsMethodsDegradeToSummary(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, promptContains("Summarize the study methods")).
		Return("", errors.New("down")).Once()
	// The methods section also feeds the metadata prompt.
	client.On("Complete", mock.Anything, promptContains("Extract the following metadata")).
		Return(`{"objective": "O", "study_type": "S", "population": "P"}`, nil).Once()

	s := newSummarizer(client, 8, 2, 20)
	secs := map[sections.Name]sections.Section{
		sections.Methods: {Name: sections.Methods, Content: "raw methods text"},
	}
	summaries := map[sections.Name]string{sections.Methods: "methods summary fallback"}

	ext := s.ExtractFields(context.Background(), secs, summaries, "")

	assert.Equal(t, "methods summary fallback", ext.Methods)
}

func TestStripLeadingHeader(t *testing.T) {
	assert.Equal(t, "body text", stripLeadingHeader("## Methods\nbody text"))
	assert.Equal(t, "plain text", stripLeadingHeader("plain text"))
}
