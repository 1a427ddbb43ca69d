package docx

import (
	"io"
	"strings"
)

// Build turns article text into a document: one paragraph per line, with
// every anchor occurrence converted into a hyperlink.
func Build(text string, links *LinkMap) *Document {
	doc := New()
	tok := NewTokenizer(links)
	for _, line := range strings.Split(text, "\n") {
		doc.AddParagraph(tok.Tokenize(strings.TrimSuffix(line, "\r")))
	}
	return doc
}

// Render writes the document for text to w.
func Render(text string, w io.Writer, links *LinkMap) error {
	return Build(text, links).Write(w)
}

// RenderFile writes the document for text to path.
func RenderFile(text, path string, links *LinkMap) error {
	return Build(text, links).Save(path)
}
