// Package analyzer measures generated articles: word counts, keyword
// coverage and heading structure.
package analyzer

import (
	"regexp"
	"strings"
)

// wordPattern matches a maximal run of letters, combining marks, digits or
// underscores in any script.
var wordPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]+`)

// joiners are removed before counting so that a half-space compound such as
// "می‌روم" counts as a single word.
var joiners = strings.NewReplacer("‌", "", "‍", "")

// WordCount returns the number of words in text.
func WordCount(text string) int {
	if text == "" {
		return 0
	}
	return len(wordPattern.FindAllStringIndex(joiners.Replace(text), -1))
}
