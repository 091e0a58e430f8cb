package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const strippedElements = "script, style, meta, link, svg, path, noscript"

var blockElements = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "ul": {}, "ol": {}, "tr": {}, "table": {},
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {}, "section": {}, "article": {},
	"header": {}, "footer": {}, "pre": {}, "blockquote": {}, "title": {},
}

// cleanHTML drops non-content elements and returns the visible text with one
// line per block and collapsed whitespace.
func cleanHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create document from reader: %w", err)
	}

	doc.Find(strippedElements).Remove()

	var b strings.Builder
	collectText(doc.Selection, &b)

	lines := strings.Split(b.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n"), nil
}

func collectText(s *goquery.Selection, b *strings.Builder) {
	s.Contents().Each(func(_ int, child *goquery.Selection) {
		name := goquery.NodeName(child)
		if name == "#text" {
			b.WriteString(strings.Join(strings.Fields(child.Text()), " "))
			b.WriteString(" ")
			return
		}

		collectText(child, b)

		if _, ok := blockElements[name]; ok {
			b.WriteString("\n")
		}
	})
}
