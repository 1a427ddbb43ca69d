// Package docx renders article text into right-to-left Word documents with
// clickable hyperlinks.
package docx

import (
	"regexp"
	"strings"
)

// LinkMap maps anchor text onto a URL. Anchors keep their first insertion
// order; adding an existing anchor again replaces its URL.
type LinkMap struct {
	anchors []string
	urls    map[string]string
}

// NewLinkMap returns an empty link map.
func NewLinkMap() *LinkMap {
	return &LinkMap{urls: make(map[string]string)}
}

// Add registers anchor → url. Blank anchors or URLs are ignored.
func (m *LinkMap) Add(anchor, url string) {
	anchor = strings.TrimSpace(anchor)
	url = strings.TrimSpace(url)
	if anchor == "" || url == "" {
		return
	}
	if m.urls == nil {
		m.urls = make(map[string]string)
	}
	if _, ok := m.urls[anchor]; !ok {
		m.anchors = append(m.anchors, anchor)
	}
	m.urls[anchor] = url
}

// Len returns the number of anchors.
func (m *LinkMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.anchors)
}

// URL returns the target for anchor.
func (m *LinkMap) URL(anchor string) (string, bool) {
	if m == nil {
		return "", false
	}
	u, ok := m.urls[anchor]
	return u, ok
}

// pattern builds an alternation of the escaped anchors. When anchors overlap,
// the leftmost match wins and ties go to the earlier anchor.
func (m *LinkMap) pattern() *regexp.Regexp {
	if m.Len() == 0 {
		return nil
	}
	quoted := make([]string, len(m.anchors))
	for i, a := range m.anchors {
		quoted[i] = regexp.QuoteMeta(a)
	}
	return regexp.MustCompile("(" + strings.Join(quoted, "|") + ")")
}
