package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func concat(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.segmentText())
	}
	return b.String()
}

func TestTokenize(t *testing.T) {
	links := NewLinkMap()
	links.Add("رزرو هتل", "https://x.test")

	tests := []struct {
		name string
		line string
		want []Segment
	}{
		{
			name: "anchor in the middle",
			line: "برای رزرو هتل اینجا",
			want: []Segment{
				PlainSegment{Text: "برای "},
				LinkSegment{Text: "رزرو هتل", URL: "https://x.test"},
				PlainSegment{Text: " اینجا"},
			},
		},
		{
			name: "anchor is the whole line",
			line: "رزرو هتل",
			want: []Segment{LinkSegment{Text: "رزرو هتل", URL: "https://x.test"}},
		},
		{
			name: "two occurrences",
			line: "رزرو هتل و رزرو هتل",
			want: []Segment{
				LinkSegment{Text: "رزرو هتل", URL: "https://x.test"},
				PlainSegment{Text: " و "},
				LinkSegment{Text: "رزرو هتل", URL: "https://x.test"},
			},
		},
		{
			name: "no anchor",
			line: "متن ساده",
			want: []Segment{PlainSegment{Text: "متن ساده"}},
		},
		{
			name: "empty line",
			line: "",
			want: []Segment{PlainSegment{Text: ""}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.line, links)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %#v, want %#v", tt.line, got, tt.want)
			}
			if concat(got) != tt.line {
				t.Errorf("segments do not reassemble the line: %q", concat(got))
			}
		})
	}
}

func TestTokenizeOverlappingAnchors(t *testing.T) {
	const (
		short = "https://short.test"
		long  = "https://long.test"
	)
	tests := []struct {
		name    string
		anchors []string
		line    string
		want    []Segment
	}{
		{
			name:    "shorter anchor added first wins",
			anchors: []string{"رزرو", "رزرواسیون"},
			line:    "برای رزرواسیون",
			want: []Segment{
				PlainSegment{Text: "برای "},
				LinkSegment{Text: "رزرو", URL: short},
				PlainSegment{Text: "اسیون"},
			},
		},
		{
			name:    "longer anchor added first wins",
			anchors: []string{"رزرواسیون", "رزرو"},
			line:    "برای رزرواسیون",
			want: []Segment{
				PlainSegment{Text: "برای "},
				LinkSegment{Text: "رزرواسیون", URL: long},
			},
		},
		{
			name:    "shorter anchor still matches alone",
			anchors: []string{"رزرواسیون", "رزرو"},
			line:    "رزرو کنید",
			want: []Segment{
				LinkSegment{Text: "رزرو", URL: short},
				PlainSegment{Text: " کنید"},
			},
		},
	}
	urls := map[string]string{"رزرو": short, "رزرواسیون": long}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := NewLinkMap()
			for _, a := range tt.anchors {
				links.Add(a, urls[a])
			}
			got := Tokenize(tt.line, links)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %#v, want %#v", tt.line, got, tt.want)
			}
			if concat(got) != tt.line {
				t.Errorf("segments do not reassemble the line: %q", concat(got))
			}
		})
	}
}

func TestTokenizeWithoutLinks(t *testing.T) {
	got := Tokenize("a (b) [c]", NewLinkMap())
	if len(got) != 1 || got[0] != (PlainSegment{Text: "a (b) [c]"}) {
		t.Errorf("expected a single plain segment, got %#v", got)
	}
}

func TestTokenizeEscapesAnchors(t *testing.T) {
	links := NewLinkMap()
	links.Add("C++ (guide)", "https://cpp.test")
	got := Tokenize("read C++ (guide) now", links)
	if len(got) != 3 {
		t.Fatalf("expected 3 segments, got %#v", got)
	}
	if l, ok := got[1].(LinkSegment); !ok || l.URL != "https://cpp.test" {
		t.Errorf("expected link segment, got %#v", got[1])
	}
}

func TestLinkMapOrderAndOverride(t *testing.T) {
	m := NewLinkMap()
	m.Add("a", "https://1.test")
	m.Add("b", "https://2.test")
	m.Add("a", "https://3.test")
	m.Add("", "https://ignored.test")
	m.Add("c", " ")

	if !reflect.DeepEqual(m.anchors, []string{"a", "b"}) {
		t.Errorf("unexpected anchors %v", m.anchors)
	}
	if u, _ := m.URL("a"); u != "https://3.test" {
		t.Errorf("expected later URL to win, got %q", u)
	}
}

type run struct {
	text string
	link string
}

// readDocument unzips a rendered docx and returns its paragraphs as runs
// along with the hyperlink relationships.
func readDocument(t *testing.T, data []byte) ([][]run, map[string]string, string) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		files[f.Name] = string(b)
	}
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml", "word/styles.xml", "word/_rels/document.xml.rels"} {
		if _, ok := files[name]; !ok {
			t.Fatalf("missing part %s", name)
		}
	}

	var rels struct {
		Items []struct {
			ID         string `xml:"Id,attr"`
			Target     string `xml:"Target,attr"`
			TargetMode string `xml:"TargetMode,attr"`
		} `xml:"Relationship"`
	}
	if err := xml.Unmarshal([]byte(files["word/_rels/document.xml.rels"]), &rels); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	targets := map[string]string{}
	for _, r := range rels.Items {
		if r.TargetMode == "External" {
			targets[r.ID] = r.Target
		}
	}

	var paras [][]run
	dec := xml.NewDecoder(strings.NewReader(files["word/document.xml"]))
	var cur []run
	var inText bool
	var link string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("document.xml is not well formed: %v", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				cur = []run{}
			case "hyperlink":
				for _, a := range el.Attr {
					if a.Name.Local == "id" {
						link = targets[a.Value]
					}
				}
			case "r":
				cur = append(cur, run{link: link})
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "p":
				paras = append(paras, cur)
			case "hyperlink":
				link = ""
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				cur[len(cur)-1].text += string(el)
			}
		}
	}
	return paras, targets, files["word/document.xml"]
}

func TestRenderHyperlinkRuns(t *testing.T) {
	links := NewLinkMap()
	links.Add("رزرو هتل", "https://x.test/?a=1&b=2")

	var buf bytes.Buffer
	if err := Render("برای رزرو هتل اینجا\nخط دوم", &buf, links); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paras, targets, raw := readDocument(t, buf.Bytes())
	if len(paras) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(paras))
	}
	want := []run{
		{text: "برای "},
		{text: "رزرو هتل", link: "https://x.test/?a=1&b=2"},
		{text: " اینجا"},
	}
	if !reflect.DeepEqual(paras[0], want) {
		t.Errorf("first paragraph = %#v, want %#v", paras[0], want)
	}
	if len(paras[1]) != 1 || paras[1][0].text != "خط دوم" {
		t.Errorf("second paragraph = %#v", paras[1])
	}
	if len(targets) != 1 {
		t.Errorf("expected one external relationship, got %v", targets)
	}
	if strings.Count(raw, `<w:bidi/><w:spacing w:before="0" w:after="0" w:line="360" w:lineRule="auto"/><w:jc w:val="right"/>`) != 2 {
		t.Errorf("expected right-to-left formatting on every paragraph")
	}
}

func TestRenderSingleAnchorThreeRuns(t *testing.T) {
	links := NewLinkMap()
	links.Add("رزرواسیون", "http://x.test")

	var buf bytes.Buffer
	if err := Render("برای رزرواسیون اقدام کنید", &buf, links); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paras, targets, _ := readDocument(t, buf.Bytes())
	want := []run{
		{text: "برای "},
		{text: "رزرواسیون", link: "http://x.test"},
		{text: " اقدام کنید"},
	}
	if len(paras) != 1 || !reflect.DeepEqual(paras[0], want) {
		t.Errorf("paragraphs = %#v, want one paragraph %#v", paras, want)
	}
	for id, target := range targets {
		if target != "http://x.test" {
			t.Errorf("unexpected relationship %s -> %s", id, target)
		}
	}
	if len(targets) != 1 {
		t.Errorf("expected one external relationship, got %v", targets)
	}
}

func TestRenderSharesRelationshipPerURL(t *testing.T) {
	links := NewLinkMap()
	links.Add("الف", "https://same.test")
	links.Add("ب", "https://same.test")

	var buf bytes.Buffer
	if err := Render("الف و ب\nالف", &buf, links); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	paras, targets, _ := readDocument(t, buf.Bytes())
	if len(targets) != 1 {
		t.Errorf("expected a single relationship for a repeated URL, got %v", targets)
	}
	if len(paras[0]) != 3 || paras[0][2].link != "https://same.test" {
		t.Errorf("unexpected runs %#v", paras[0])
	}
}

func TestRenderEmptyLinesAndEscaping(t *testing.T) {
	var buf bytes.Buffer
	if err := Render("a < b & c\n\n\"quoted\"", &buf, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	paras, _, _ := readDocument(t, buf.Bytes())
	if len(paras) != 3 {
		t.Fatalf("expected 3 paragraphs, got %d", len(paras))
	}
	if paras[0][0].text != "a < b & c" {
		t.Errorf("escaping round trip failed: %q", paras[0][0].text)
	}
	if len(paras[1]) != 1 || paras[1][0].text != "" {
		t.Errorf("expected an empty paragraph, got %#v", paras[1])
	}
}

func TestRenderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.docx")
	if err := RenderFile("سلام", path, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 5 {
		t.Errorf("expected 5 parts, got %d", len(zr.File))
	}
}

func TestBuildOneParagraphPerLine(t *testing.T) {
	links := NewLinkMap()
	links.Add("هتل", "https://hotel.test")

	d := Build("## عنوان\r\nرزرو هتل\n\nپایان", links)
	paras := d.paragraphs
	if len(paras) != 4 {
		t.Fatalf("expected 4 paragraphs, got %d", len(paras))
	}
	if got := concat(paras[0].Segments); got != "## عنوان" {
		t.Errorf("carriage return not trimmed: %q", got)
	}
	want := []Segment{PlainSegment{Text: "رزرو "}, LinkSegment{Text: "هتل", URL: "https://hotel.test"}}
	if !reflect.DeepEqual(paras[1].Segments, want) {
		t.Errorf("unexpected segments %#v", paras[1].Segments)
	}
}
