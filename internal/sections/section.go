package sections

// Name identifies a recognized paper section. The zero-value-free fixed
// vocabulary keeps ordering and field-selection logic exhaustive.
type Name string

const (
	Abstract     Name = "abstract"
	Introduction Name = "introduction"
	Methods      Name = "methods"
	Results      Name = "results"
	Discussion   Name = "discussion"
	Limitations  Name = "limitations"
	Conclusion   Name = "conclusion"

	// FullText is synthesized when no headings are recognized; the whole
	// document is treated as one unit.
	FullText Name = "full_text"
)

// canonicalOrder is the reading order imposed on summaries and reports.
// Unknown names sort after all known ones.
var canonicalOrder = []Name{
	Abstract,
	Introduction,
	Methods,
	Results,
	Discussion,
	Limitations,
	Conclusion,
	FullText,
}

// Section is a named contiguous slice of a paper's text. Content never
// includes its own heading line. Sections are immutable after parse.
type Section struct {
	Name    Name
	Content string
	Start   int
	End     int
}
