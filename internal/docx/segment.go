package docx

import "regexp"

// Segment is one piece of a paragraph: either PlainSegment or LinkSegment.
type Segment interface {
	segmentText() string
}

// PlainSegment is literal text.
type PlainSegment struct {
	Text string
}

// LinkSegment is anchor text that links to URL.
type LinkSegment struct {
	Text string
	URL  string
}

func (s PlainSegment) segmentText() string { return s.Text }
func (s LinkSegment) segmentText() string  { return s.Text }

// Tokenizer splits lines into plain and link segments.
type Tokenizer struct {
	links *LinkMap
	re    *regexp.Regexp
}

// NewTokenizer compiles the anchors of links once for reuse across lines.
func NewTokenizer(links *LinkMap) *Tokenizer {
	return &Tokenizer{links: links, re: links.pattern()}
}

// Tokenize splits line on every anchor occurrence. Concatenating the segment
// texts yields line unchanged. Empty plain fragments at match boundaries are
// dropped; a line with no anchors yields exactly one plain segment.
func (t *Tokenizer) Tokenize(line string) []Segment {
	if t.re == nil {
		return []Segment{PlainSegment{Text: line}}
	}
	matches := t.re.FindAllStringIndex(line, -1)
	if len(matches) == 0 {
		return []Segment{PlainSegment{Text: line}}
	}

	segs := make([]Segment, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			segs = append(segs, PlainSegment{Text: line[last:m[0]]})
		}
		text := line[m[0]:m[1]]
		if url, ok := t.links.URL(text); ok {
			segs = append(segs, LinkSegment{Text: text, URL: url})
		} else {
			segs = append(segs, PlainSegment{Text: text})
		}
		last = m[1]
	}
	if last < len(line) {
		segs = append(segs, PlainSegment{Text: line[last:]})
	}
	return segs
}

// Tokenize is a convenience for a single line.
func Tokenize(line string, links *LinkMap) []Segment {
	return NewTokenizer(links).Tokenize(line)
}
