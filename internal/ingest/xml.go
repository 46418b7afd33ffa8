package ingest

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// FromXML extracts a PubMed Central JATS article: title from the article
// metadata, abstract and body sections flattened to uppercase-headed
// plain text the section parser understands.
func FromXML(content []byte) (Document, error) {
	var article jatsArticle
	if err := xml.Unmarshal(content, &article); err != nil {
		return Document{}, fmt.Errorf("parsing jats xml: %w", err)
	}

	var parts []string
	if abstract := article.Front.ArticleMeta.Abstract.inline(); abstract != "" {
		parts = append(parts, "ABSTRACT\n"+abstract)
	}
	for _, sec := range article.Body.Secs {
		if text := sec.text(); text != "" {
			parts = append(parts, text)
		}
	}

	text := Cleaner{}.Clean(strings.Join(parts, "\n\n"))
	if text == "" {
		return Document{}, ErrNoText
	}
	return Document{
		Title: strings.TrimSpace(article.Front.ArticleMeta.TitleGroup.ArticleTitle.Value),
		Text:  text,
	}, nil
}

type jatsArticle struct {
	Front struct {
		ArticleMeta struct {
			TitleGroup struct {
				ArticleTitle jatsText `xml:"article-title"`
			} `xml:"title-group"`
			Abstract jatsSec `xml:"abstract"`
		} `xml:"article-meta"`
	} `xml:"front"`
	Body struct {
		Secs []jatsSec `xml:"sec"`
	} `xml:"body"`
}

type jatsSec struct {
	Title jatsText   `xml:"title"`
	Paras []jatsText `xml:"p"`
	Secs  []jatsSec  `xml:"sec"`
}

// text flattens a section and its subsections, uppercasing titles so
// downstream heading detection treats them like PDF headings.
func (s jatsSec) text() string {
	var parts []string
	if title := strings.TrimSpace(s.Title.Value); title != "" {
		parts = append(parts, strings.ToUpper(title))
	}
	for _, p := range s.Paras {
		if text := strings.TrimSpace(p.Value); text != "" {
			parts = append(parts, text)
		}
	}
	for _, sub := range s.Secs {
		if text := sub.text(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// inline flattens a section to a single paragraph, keeping subsection
// titles as inline labels. Structured abstracts use Background/Methods
// style subsections whose titles must not look like document headings.
func (s jatsSec) inline() string {
	var parts []string
	for _, p := range s.Paras {
		if text := strings.TrimSpace(p.Value); text != "" {
			parts = append(parts, text)
		}
	}
	for _, sub := range s.Secs {
		label := strings.TrimSpace(sub.Title.Value)
		text := sub.inline()
		if text == "" {
			continue
		}
		if label != "" {
			text = label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

// jatsText collects the character data of an element including inline
// markup like <italic>, while dropping citation, figure, and table
// subtrees entirely.
type jatsText struct {
	Value string
}

var droppedElements = map[string]bool{
	"xref":       true,
	"fig":        true,
	"table-wrap": true,
}

func (t *jatsText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.CharData:
			b.Write(el)
		case xml.StartElement:
			if droppedElements[el.Name.Local] {
				if err := d.Skip(); err != nil {
					return err
				}
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	t.Value = b.String()
	return nil
}
