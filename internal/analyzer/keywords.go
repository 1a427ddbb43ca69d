package analyzer

import "strings"

// MissingKeywords returns the keywords that do not occur in text as an exact,
// case-sensitive substring. Input order is preserved; duplicates are reported
// once per occurrence in the input.
func MissingKeywords(keywords []string, text string) []string {
	var missing []string
	for _, kw := range keywords {
		if !strings.Contains(text, kw) {
			missing = append(missing, kw)
		}
	}
	return missing
}

// KeywordHit records how often a keyword occurs in a text.
type KeywordHit struct {
	Keyword string
	Count   int
}

// Coverage counts the non-overlapping occurrences of each keyword in text.
// Keywords that never occur are returned with a zero count.
func Coverage(keywords []string, text string) []KeywordHit {
	if len(keywords) == 0 {
		return nil
	}

	hits := make([]KeywordHit, 0, len(keywords))
	for _, kw := range keywords {
		hit := KeywordHit{Keyword: kw}
		if kw != "" {
			hit.Count = strings.Count(text, kw)
		}
		hits = append(hits, hit)
	}
	return hits
}
