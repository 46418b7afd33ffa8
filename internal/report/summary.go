package report

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Disclaimer is attached to every generated summary.
const Disclaimer = "This summary is for academic research purposes only and does not constitute medical advice."

// ErrNoFindings rejects summaries with no non-empty finding.
var ErrNoFindings = errors.New("key_findings must contain at least one non-empty finding")

// PaperSummary is the structured output record of the pipeline. It is
// built once from accumulated field values and immutable thereafter.
type PaperSummary struct {
	Title             string    `json:"title"`
	Objective         string    `json:"objective"`
	StudyType         string    `json:"study_type"`
	Population        string    `json:"population"`
	Methods           string    `json:"methods"`
	KeyFindings       []string  `json:"key_findings"`
	Limitations       []string  `json:"limitations"`
	AuthorConclusions string    `json:"author_conclusions"`
	Keywords          []string  `json:"keywords"`
	ModelUsed         string    `json:"model_used"`
	SafetyDisclaimer  string    `json:"safety_disclaimer"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// Fields carries the accumulated values the pipeline hands to New.
type Fields struct {
	Title             string
	Objective         string
	StudyType         string
	Population        string
	Methods           string
	KeyFindings       []string
	Limitations       []string
	AuthorConclusions string
	Keywords          []string
	ModelUsed         string
}

// New validates and assembles the final record. Findings are trimmed and
// must leave at least one non-empty entry; keywords are case-folded and
// deduplicated preserving first-seen order.
func New(f Fields) (PaperSummary, error) {
	findings := make([]string, 0, len(f.KeyFindings))
	for _, kf := range f.KeyFindings {
		if s := strings.TrimSpace(kf); s != "" {
			findings = append(findings, s)
		}
	}
	if len(findings) == 0 {
		return PaperSummary{}, ErrNoFindings
	}

	return PaperSummary{
		Title:             f.Title,
		Objective:         f.Objective,
		StudyType:         f.StudyType,
		Population:        f.Population,
		Methods:           f.Methods,
		KeyFindings:       findings,
		Limitations:       f.Limitations,
		AuthorConclusions: f.AuthorConclusions,
		Keywords:          normalizeKeywords(f.Keywords),
		ModelUsed:         f.ModelUsed,
		SafetyDisclaimer:  Disclaimer,
		GeneratedAt:       time.Now().UTC(),
	}, nil
}

func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// Markdown renders the summary as a formatted report.
func (s PaperSummary) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", s.Title)

	if s.Objective != "" {
		fmt.Fprintf(&b, "**Objective:** %s\n\n", s.Objective)
	}
	if s.StudyType != "" {
		fmt.Fprintf(&b, "**Study type:** %s\n\n", s.StudyType)
	}
	if s.Population != "" {
		fmt.Fprintf(&b, "**Population:** %s\n\n", s.Population)
	}
	if s.Methods != "" {
		fmt.Fprintf(&b, "## Methods\n%s\n\n", s.Methods)
	}

	b.WriteString("## Key Findings\n")
	for i, finding := range s.KeyFindings {
		fmt.Fprintf(&b, "%d. %s\n", i+1, finding)
	}

	if len(s.Limitations) > 0 {
		b.WriteString("\n## Limitations\n")
		for i, limitation := range s.Limitations {
			fmt.Fprintf(&b, "%d. %s\n", i+1, limitation)
		}
	}

	fmt.Fprintf(&b, "\n## Author Conclusions\n%s\n\n", s.AuthorConclusions)
	fmt.Fprintf(&b, "## Keywords\n%s\n\n", strings.Join(s.Keywords, ", "))
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "**Summary Generated:** %s\n", s.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Model:** %s\n\n", s.ModelUsed)
	fmt.Fprintf(&b, "**%s**\n", s.SafetyDisclaimer)

	return b.String()
}
