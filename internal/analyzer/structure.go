package analyzer

import "strings"

type cursor int

const (
	cursorNone cursor = iota
	cursorH2
	cursorH3
	cursorText
)

// ValidateStructure reports whether every "### " heading follows an H2, an
// H3 or body text. The result is advisory.
func ValidateStructure(text string) bool {
	_, ok := CheckStructure(text)
	return ok
}

// CheckStructure is ValidateStructure plus the 1-based line number of the
// first violation.
func CheckStructure(text string) (line int, ok bool) {
	cur := cursorNone
	for i, l := range strings.Split(text, "\n") {
		s := strings.TrimSpace(l)
		switch {
		case strings.HasPrefix(s, "## "):
			cur = cursorH2
		case strings.HasPrefix(s, "### "):
			if cur == cursorNone {
				return i + 1, false
			}
			cur = cursorH3
		case s != "" && !strings.HasPrefix(s, "#"):
			cur = cursorText
		}
	}
	return 0, true
}
