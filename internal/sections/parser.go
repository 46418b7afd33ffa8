package sections

import (
	"regexp"
	"sort"
	"strings"
)

// Heuristic thresholds for recovering an unlabeled abstract from the text
// preceding the first detected heading. Best-effort values tuned on sample
// papers; tunable, not a contract.
const (
	implicitAbstractMinOffset = 200
	implicitAbstractMinChars  = 150
	implicitAbstractMinWords  = 30
	maxEmailOccurrences       = 1
	maxDepartmentMentions     = 2
	maxUniversityMentions     = 3
)

// headingRule pairs a section name with the heading patterns that open it.
type headingRule struct {
	name     Name
	patterns []*regexp.Regexp
}

// numPrefix allows numbered journal headings like "1. Introduction".
const numPrefix = `(?:\d+\.\s*)?`

func headingPattern(body string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[ \t]*` + numPrefix + body + `[ \t]*\r?$`)
}

// headingTable is the fixed, ordered table of recognized headings.
var headingTable = []headingRule{
	{Abstract, []*regexp.Regexp{
		headingPattern(`ABSTRACT`),
		headingPattern(`Summary`),
	}},
	{Introduction, []*regexp.Regexp{
		headingPattern(`INTRODUCTION`),
		headingPattern(`Background`),
	}},
	{Methods, []*regexp.Regexp{
		headingPattern(`METHODS?`),
		headingPattern(`METHODOLOGY`),
		headingPattern(`MATERIALS?\s+AND\s+METHODS?`),
		headingPattern(`PATIENTS?\s+AND\s+METHODS?`),
		headingPattern(`STUDY\s+DESIGN`),
	}},
	{Results, []*regexp.Regexp{
		headingPattern(`RESULTS?`),
		headingPattern(`FINDINGS?`),
	}},
	{Discussion, []*regexp.Regexp{
		headingPattern(`DISCUSSION`),
	}},
	{Limitations, []*regexp.Regexp{
		headingPattern(`LIMITATIONS?`),
		headingPattern(`STUDY\s+LIMITATIONS?`),
	}},
	{Conclusion, []*regexp.Regexp{
		headingPattern(`CONCLUSIONS?`),
		headingPattern(`CONCLUDING\s+REMARKS?`),
	}},
}

type boundary struct {
	name Name
	pos  int
}

// Parser slices raw paper text into named sections.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse scans text for recognized headings and returns the resulting
// sections. When no heading is found the whole input becomes a single
// FullText section; callers treat that as "nothing to map-reduce per
// section".
func (p *Parser) Parse(text string) map[Name]Section {
	boundaries := findBoundaries(text)

	if len(boundaries) == 0 {
		return map[Name]Section{
			FullText: {
				Name:    FullText,
				Content: text,
				Start:   0,
				End:     len(text),
			},
		}
	}

	// Substantial text before the first heading is often an unlabeled
	// abstract in numbered-format papers.
	first := boundaries[0]
	if first.name != Abstract && first.pos > implicitAbstractMinOffset && looksLikeAbstract(text[:first.pos]) {
		boundaries = append([]boundary{{Abstract, 0}}, boundaries...)
	}

	out := make(map[Name]Section, len(boundaries))
	for i, b := range boundaries {
		end := len(text)
		if i+1 < len(boundaries) {
			end = boundaries[i+1].pos
		}

		content := strings.TrimSpace(text[b.pos:end])
		content = stripHeading(content, b.name)
		if content == "" {
			continue
		}

		out[b.name] = Section{
			Name:    b.name,
			Content: content,
			Start:   b.pos,
			End:     end,
		}
	}
	return out
}

func findBoundaries(text string) []boundary {
	var all []boundary
	for _, rule := range headingTable {
		for _, re := range rule.patterns {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				all = append(all, boundary{rule.name, loc[0]})
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].pos < all[j].pos })

	// First occurrence of each name wins; later duplicates are ignored.
	seen := make(map[Name]bool, len(all))
	unique := all[:0]
	for _, b := range all {
		if seen[b.name] {
			continue
		}
		seen[b.name] = true
		unique = append(unique, b)
	}
	return unique
}

// looksLikeAbstract decides whether pre-heading text is an unlabeled
// abstract rather than an affiliation or correspondence block.
func looksLikeAbstract(text string) bool {
	if len(strings.TrimSpace(text)) < implicitAbstractMinChars {
		return false
	}
	lower := strings.ToLower(text)
	if strings.Count(lower, "@") > maxEmailOccurrences {
		return false // multiple emails, likely a correspondence block
	}
	if strings.Count(lower, "department") > maxDepartmentMentions ||
		strings.Count(lower, "university") > maxUniversityMentions {
		return false // heavy affiliation block
	}
	return len(strings.Fields(text)) >= implicitAbstractMinWords
}

var leadingNumber = regexp.MustCompile(`^\d+\.\s*`)

// stripHeading removes the heading line from section content when the
// first line re-matches one of the section's own patterns.
func stripHeading(content string, name Name) string {
	lines := strings.SplitN(content, "\n", 2)
	firstLine := strings.TrimSpace(lines[0])
	if firstLine == "" {
		return content
	}
	normalized := leadingNumber.ReplaceAllString(firstLine, "")

	for _, rule := range headingTable {
		if rule.name != name {
			continue
		}
		for _, re := range rule.patterns {
			if re.MatchString(normalized) {
				if len(lines) == 2 {
					return strings.TrimSpace(lines[1])
				}
				return ""
			}
		}
	}
	return content
}

// Order returns the section names in canonical reading order. Names
// outside the fixed vocabulary sort last, alphabetically.
func (p *Parser) Order(secs map[Name]Section) []Name {
	rank := make(map[Name]int, len(canonicalOrder))
	for i, n := range canonicalOrder {
		rank[n] = i
	}

	names := make([]Name, 0, len(secs))
	for n := range secs {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, iok := rank[names[i]]
		rj, jok := rank[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		default:
			return names[i] < names[j]
		}
	})
	return names
}

// Validate reports structural completeness: an abstract is present, or
// both a methods-like and a results-like section are. Used as a warning
// signal only; parsing never aborts on structure.
func (p *Parser) Validate(secs map[Name]Section) bool {
	_, hasAbstract := secs[Abstract]
	_, hasMethods := secs[Methods]
	_, hasResults := secs[Results]
	return hasAbstract || (hasMethods && hasResults)
}
