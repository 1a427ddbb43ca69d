package docx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	nsMain         = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsRel          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPkgRel       = "http://schemas.openxmlformats.org/package/2006/relationships"
	relDoc         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	relStyles      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	relLink        = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"
	xmlHeader      = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
	stylesID       = "rId1"
	paragraphProps = `<w:pPr><w:bidi/><w:spacing w:before="0" w:after="0" w:line="360" w:lineRule="auto"/><w:jc w:val="right"/></w:pPr>`
)

// Paragraph is one rendered line.
type Paragraph struct {
	Segments []Segment
}

type relationship struct {
	id  string
	url string
}

// Document is an in-memory right-to-left Word document.
type Document struct {
	paragraphs []Paragraph
	rels       []relationship
	relByURL   map[string]string
}

// New returns an empty document.
func New() *Document {
	return &Document{relByURL: make(map[string]string)}
}

// AddParagraph appends a paragraph built from segs. Each distinct link URL
// gets one external relationship.
func (d *Document) AddParagraph(segs []Segment) {
	for _, s := range segs {
		if l, ok := s.(LinkSegment); ok {
			d.relationshipFor(l.URL)
		}
	}
	d.paragraphs = append(d.paragraphs, Paragraph{Segments: segs})
}

func (d *Document) relationshipFor(url string) string {
	if id, ok := d.relByURL[url]; ok {
		return id
	}
	id := fmt.Sprintf("rId%d", len(d.rels)+2)
	d.rels = append(d.rels, relationship{id: id, url: url})
	d.relByURL[url] = id
	return id
}

// Save writes the document to path, creating parent directories.
func (d *Document) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := d.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write serialises the document package to w.
func (d *Document) Write(w io.Writer) error {
	zw := zip.NewWriter(w)

	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", rootRelsXML},
		{"word/document.xml", d.documentXML()},
		{"word/styles.xml", stylesXML},
		{"word/_rels/document.xml.rels", d.documentRelsXML()},
	}
	for _, p := range parts {
		fw, err := zw.Create(p.name)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", p.name, err)
		}
		if _, err := io.WriteString(fw, p.body); err != nil {
			return fmt.Errorf("failed to write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize docx: %w", err)
	}
	return nil
}

func (d *Document) documentXML() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<w:document xmlns:w="` + nsMain + `" xmlns:r="` + nsRel + `"><w:body>`)
	for _, p := range d.paragraphs {
		b.WriteString("<w:p>")
		b.WriteString(paragraphProps)
		for _, s := range p.Segments {
			switch seg := s.(type) {
			case LinkSegment:
				b.WriteString(`<w:hyperlink r:id="` + d.relByURL[seg.URL] + `" w:history="1">`)
				writeRun(&b, seg.Text, `<w:rPr><w:rStyle w:val="Hyperlink"/></w:rPr>`)
				b.WriteString("</w:hyperlink>")
			case PlainSegment:
				writeRun(&b, seg.Text, "")
			}
		}
		b.WriteString("</w:p>")
	}
	b.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>`)
	b.WriteString(`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/>`)
	b.WriteString(`<w:bidi/></w:sectPr></w:body></w:document>`)
	return b.String()
}

func writeRun(b *strings.Builder, text, props string) {
	b.WriteString("<w:r>")
	b.WriteString(props)
	b.WriteString(`<w:t xml:space="preserve">`)
	b.WriteString(escape(text))
	b.WriteString("</w:t></w:r>")
}

func (d *Document) documentRelsXML() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="` + nsPkgRel + `">`)
	b.WriteString(`<Relationship Id="` + stylesID + `" Type="` + relStyles + `" Target="styles.xml"/>`)
	for _, r := range d.rels {
		b.WriteString(`<Relationship Id="` + r.id + `" Type="` + relLink + `" Target="` + escape(r.url) + `" TargetMode="External"/>`)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

func escape(s string) string {
	var b strings.Builder
	// EscapeText only fails when the underlying writer does.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

const contentTypesXML = xmlHeader +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`</Types>`

const rootRelsXML = xmlHeader +
	`<Relationships xmlns="` + nsPkgRel + `">` +
	`<Relationship Id="rId1" Type="` + relDoc + `" Target="word/document.xml"/>` +
	`</Relationships>`

const stylesXML = xmlHeader +
	`<w:styles xmlns:w="` + nsMain + `">` +
	`<w:docDefaults><w:rPrDefault><w:rPr>` +
	`<w:rFonts w:ascii="Tahoma" w:hAnsi="Tahoma" w:cs="Tahoma"/><w:sz w:val="24"/><w:szCs w:val="24"/>` +
	`<w:lang w:val="en-US" w:bidi="fa-IR"/>` +
	`</w:rPr></w:rPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/>` +
	`<w:pPr><w:bidi/><w:jc w:val="right"/></w:pPr></w:style>` +
	`<w:style w:type="character" w:default="1" w:styleId="DefaultParagraphFont"><w:name w:val="Default Paragraph Font"/>` +
	`<w:uiPriority w:val="1"/><w:semiHidden/><w:unhideWhenUsed/></w:style>` +
	`<w:style w:type="character" w:styleId="Hyperlink"><w:name w:val="Hyperlink"/>` +
	`<w:basedOn w:val="DefaultParagraphFont"/><w:uiPriority w:val="99"/><w:unhideWhenUsed/>` +
	`<w:rPr><w:color w:val="0563C1"/><w:u w:val="single"/></w:rPr></w:style>` +
	`</w:styles>`
