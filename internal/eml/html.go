package eml

import (
	"strings"

	"golang.org/x/net/html"
)

// skipped elements never contribute text.
var skipped = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"template": true,
	"noscript": true,
}

// paragraphs are separated from their surroundings by a blank line.
var paragraphs = map[string]bool{
	"blockquote": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "hr": true, "ol": true, "p": true, "pre": true,
	"table": true, "ul": true,
}

// lines start on a new line.
var lines = map[string]bool{
	"address": true, "article": true, "div": true, "footer": true,
	"header": true, "li": true, "section": true, "tr": true,
}

// HTMLToText reduces an HTML body to readable plain text. Invalid markup is
// returned unchanged.
func HTMLToText(src string) string {
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return src
	}

	var w textWriter
	w.walk(doc)
	return w.String()
}

type textWriter struct {
	out []string
	cur strings.Builder
}

func (w *textWriter) walk(n *html.Node) {
	if n.Type == html.TextNode {
		w.text(n.Data)
		return
	}
	if n.Type == html.ElementNode {
		if skipped[n.Data] {
			return
		}
		if n.Data == "br" {
			w.newline()
			return
		}
		w.boundary(n.Data)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}

	if n.Type == html.ElementNode {
		w.boundary(n.Data)
	}
}

func (w *textWriter) boundary(tag string) {
	switch {
	case paragraphs[tag]:
		w.paragraph()
	case lines[tag]:
		w.newline()
	}
}

// asciiSpace collapses HTML whitespace only. Non-breaking spaces are
// content.
func asciiSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\f', '\r':
		return true
	}
	return false
}

func (w *textWriter) text(s string) {
	for _, field := range strings.FieldsFunc(s, asciiSpace) {
		if w.cur.Len() > 0 {
			w.cur.WriteByte(' ')
		}
		w.cur.WriteString(field)
	}
}

// newline ends the current line if it has text.
func (w *textWriter) newline() {
	line := strings.TrimFunc(w.cur.String(), asciiSpace)
	w.cur.Reset()
	if line != "" {
		w.out = append(w.out, line)
	}
}

// paragraph ends the current line and leaves one blank line.
func (w *textWriter) paragraph() {
	w.newline()
	if len(w.out) > 0 && w.out[len(w.out)-1] != "" {
		w.out = append(w.out, "")
	}
}

func (w *textWriter) String() string {
	w.newline()
	return strings.TrimFunc(strings.Join(w.out, "\n"), asciiSpace)
}
