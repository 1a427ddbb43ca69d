// Package article holds the per-row article request that drives generation.
package article

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Type selects the prompt template used for a request.
type Type string

const (
	Travelogue Type = "travelogue"
	Generic    Type = "generic"
)

const (
	// TravelogueLabel is the sheet value that selects the travelogue template.
	TravelogueLabel = "سفرنامه"
	// DefaultTitle is used when the main-title cell is empty.
	DefaultTitle = "عنوان خلاقانه مقاله"
	// DefaultWordCount is used when the word-count cell is empty.
	DefaultWordCount = 2000
	// MaxLinks is the number of link/anchor column pairs a row can carry.
	MaxLinks = 2
	// PrimaryRepetitions and SecondaryRepetitions are the minimum number of
	// times the prompt asks for each primary and secondary keyword.
	PrimaryRepetitions   = 3
	SecondaryRepetitions = 2
)

var (
	ErrMissingTopic       = errors.New("topic is required")
	ErrInvalidWordCount   = errors.New("target word count must be a positive integer")
	ErrTooManyLinks       = errors.New("a row carries at most 2 links")
	ErrAnchorWithoutLinks = errors.New("anchor texts outnumber links")
)

// keywordSeparators splits keyword cells on Persian/Latin comma-like separators.
var keywordSeparators = regexp.MustCompile(`[،;|؛]+`)

// ParseType maps a sheet label onto a template type.
func ParseType(label string) Type {
	if strings.TrimSpace(label) == TravelogueLabel {
		return Travelogue
	}
	return Generic
}

// SplitKeywords splits a keyword cell, trimming entries and dropping empties.
// Order is preserved and duplicates are kept.
func SplitKeywords(cell string) []string {
	var out []string
	for _, kw := range keywordSeparators.Split(cell, -1) {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// Link pairs a URL with the anchor text that should become clickable.
type Link struct {
	Anchor string
	URL    string
}

// Request is one spreadsheet row turned into generation input. It is built
// once and not modified afterwards.
type Request struct {
	RowIndex          int
	Topic             string
	Type              Type
	TypeLabel         string
	TargetWordCount   int
	PrimaryKeywords   []string
	SecondaryKeywords []string
	Links             []string
	AnchorTexts       []string
	MainTitle         string
	H2Hints           string
	H3Hints           string
}

// Validate checks the request invariants.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return ErrMissingTopic
	}
	if r.TargetWordCount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidWordCount, r.TargetWordCount)
	}
	if len(r.Links) > MaxLinks {
		return ErrTooManyLinks
	}
	if len(r.AnchorTexts) > len(r.Links) {
		return ErrAnchorWithoutLinks
	}
	return nil
}

// NonEmptyLinks returns the links that have a value, in column order.
func (r Request) NonEmptyLinks() []string {
	var out []string
	for _, l := range r.Links {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// LinkPairs returns the positional link/anchor pairs where both sides are set.
func (r Request) LinkPairs() []Link {
	var out []Link
	for i, u := range r.Links {
		if i >= len(r.AnchorTexts) {
			break
		}
		u = strings.TrimSpace(u)
		anchor := strings.TrimSpace(r.AnchorTexts[i])
		if u == "" || anchor == "" {
			continue
		}
		out = append(out, Link{Anchor: anchor, URL: u})
	}
	return out
}

// Title returns the main title, falling back to DefaultTitle.
func (r Request) Title() string {
	if t := strings.TrimSpace(r.MainTitle); t != "" {
		return t
	}
	return DefaultTitle
}
