// Package ingest turns uploaded files into cleaned plain text ready for
// section parsing.
package ingest

import (
	"regexp"
	"strings"
)

// Document is the loader output: cleaned body text plus the best title
// candidate the format could offer.
type Document struct {
	Title string
	Text  string
}

var (
	referencesSection = regexp.MustCompile(`(?is)\n\s*(?:references|bibliography)\s*\n.*`)

	figureTableCaptions = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Figure\s+\d+[.:][^\n]+`),
		regexp.MustCompile(`(?i)Table\s+\d+[.:][^\n]+`),
		regexp.MustCompile(`(?i)\(Fig\.\s+\d+\)`),
		regexp.MustCompile(`(?i)\(Table\s+\d+\)`),
	}

	inlineCitations = []*regexp.Regexp{
		regexp.MustCompile(`\[\d+(?:,\s*\d+)*\]`),
		regexp.MustCompile(`\(\w+\s+et\s+al\.,?\s+\d{4}\)`),
	}

	runsOfSpaces   = regexp.MustCompile(` +`)
	runsOfBlanks   = regexp.MustCompile(`\n\s*\n\s*\n+`)
	metadataPrefix = regexp.MustCompile(`(?i)^(author|doi|published|volume|issue|pages?)[:|\s]`)
)

// Cleaner normalizes raw extracted text. The zero value strips the
// references section and figure/table captions; inline citations are kept
// unless RemoveCitations is set, since they rarely confuse summarization.
type Cleaner struct {
	RemoveCitations bool
}

// Clean drops trailing references, captions, and page artifacts, then
// normalizes whitespace.
func (c Cleaner) Clean(text string) string {
	cleaned := referencesSection.ReplaceAllString(text, "")

	for _, re := range figureTableCaptions {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	if c.RemoveCitations {
		for _, re := range inlineCitations {
			cleaned = re.ReplaceAllString(cleaned, "")
		}
	}

	cleaned = normalizeWhitespace(cleaned)
	cleaned = removePageArtifacts(cleaned)
	return strings.TrimSpace(cleaned)
}

func normalizeWhitespace(text string) string {
	text = runsOfSpaces.ReplaceAllString(text, " ")
	text = runsOfBlanks.ReplaceAllString(text, "\n\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// removePageArtifacts drops bare page numbers, plus short digit-bearing
// lines at paragraph boundaries, which in extracted PDFs are usually
// running headers or footers. Short all-text lines survive: they may be
// section headings.
func removePageArtifacts(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if isPageNumber(stripped) {
			continue
		}
		atBoundary := len(kept) == 0 || kept[len(kept)-1] == ""
		if len(stripped) < 10 && atBoundary && strings.ContainsAny(stripped, "0123456789") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isPageNumber(line string) bool {
	if line == "" || len(line) > 3 {
		return false
	}
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ExtractTitle guesses the paper title from the opening lines of cleaned
// text: the longest early line that does not look like citation metadata.
func ExtractTitle(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			lines = append(lines, s)
			if len(lines) == 5 {
				break
			}
		}
	}
	if len(lines) == 0 {
		return ""
	}

	var best string
	for _, line := range lines {
		if len(line) > 20 && !metadataPrefix.MatchString(line) && len(line) > len(best) {
			best = line
		}
	}
	if best != "" {
		return best
	}
	return lines[0]
}

// FromText wraps plain text uploads.
func FromText(content []byte) Document {
	text := Cleaner{}.Clean(string(content))
	return Document{Title: ExtractTitle(text), Text: text}
}
