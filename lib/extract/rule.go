// Package extract pulls numeric counts out of unstructured page text.
//
// Extraction follows a small grammar: a label anchors a bounded window of
// text, numeric tokens inside the window are matched by patterns in priority
// order, and a selection rule picks one of the resulting candidates.
// Everything here is pure, pages are handed in as strings.
package extract

import (
	"regexp"
	"slices"
	"strings"
)

type Direction int

const (
	After Direction = iota
	Before
)

// Candidate is a number found near a label.
type Candidate struct {
	Value int64
	Token string
	// distance in bytes between the label and the token
	Offset int
}

type Rule struct {
	// labels are tried in order, the first one found anchors the window.
	// matching is case-insensitive.
	Labels []string
	// tried after Labels, for labels that need more than a literal. the
	// whole match anchors the window.
	Anchors   []*regexp.Regexp
	Direction Direction
	// size of the window in bytes
	Window int
	// if set, the window is cut at the first Stop found walking away from the label
	Stop string
	// minimum length of a bare digit run, 0 means 1
	MinDigits int
}

type tokenKind int

const (
	tokenSuffix tokenKind = iota
	tokenGrouped
	tokenBare
)

type pattern struct {
	re   *regexp.Regexp
	kind tokenKind
}

// in priority order
var patterns = []pattern{
	{re: regexp.MustCompile(`(?i)(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?[ \x{00A0}]?[kmb]`), kind: tokenSuffix},
	{re: regexp.MustCompile(`\d{1,3}(?:,\d{3})+`), kind: tokenGrouped},
	{re: regexp.MustCompile(`\d{1,3}(?:[ \x{00A0}\x{202F}]\d{3})+`), kind: tokenGrouped},
	{re: regexp.MustCompile(`\d+`), kind: tokenBare},
}

type span struct {
	start int
	end   int
}

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isSeparator(b byte) bool {
	return b == '.' || b == ','
}

// isolated reports whether text[start:end] is a whole number rather than a
// fragment of a longer number or word.
func isolated(text string, start, end int) bool {
	if start > 0 {
		prev := text[start-1]
		if isDigit(prev) || isLetter(prev) {
			return false
		}
		if isSeparator(prev) && start > 1 && isDigit(text[start-2]) {
			return false
		}
	}
	if end < len(text) {
		next := text[end]
		if isDigit(next) || isLetter(next) {
			return false
		}
		if isSeparator(next) && end+1 < len(text) && isDigit(text[end+1]) {
			return false
		}
	}
	return true
}

func (r Rule) minDigits() int {
	if r.MinDigits <= 0 {
		return 1
	}
	return r.MinDigits
}

// indexFold is a case-insensitive strings.Index for ascii labels.
func indexFold(text, label string) int {
	if label == "" {
		return 0
	}
	first := label[0]
	for i := 0; i+len(label) <= len(text); i++ {
		if !asciiEqualFold(text[i], first) {
			continue
		}
		if strings.EqualFold(text[i:i+len(label)], label) {
			return i
		}
	}
	return -1
}

func asciiEqualFold(a, b byte) bool {
	if 'A' <= a && a <= 'Z' {
		a += 'a' - 'A'
	}
	if 'A' <= b && b <= 'Z' {
		b += 'a' - 'A'
	}
	return a == b
}

// anchor finds the first label, then the first anchor, present in text.
func (r Rule) anchor(text string) (int, int, bool) {
	for _, label := range r.Labels {
		idx := indexFold(text, label)
		if idx >= 0 {
			return idx, idx + len(label), true
		}
	}
	for _, re := range r.Anchors {
		loc := re.FindStringIndex(text)
		if loc != nil {
			return loc[0], loc[1], true
		}
	}
	return -1, -1, false
}

// window returns the absolute bounds of the text the rule may read, along
// with the position distances are measured from.
func (r Rule) window(text string) (start, end, origin int, ok bool) {
	labelStart, labelEnd, found := r.anchor(text)
	if !found {
		return 0, 0, 0, false
	}

	switch r.Direction {
	case Before:
		end = labelStart
		start = max(0, end-r.Window)
		if r.Stop != "" {
			if idx := strings.LastIndex(text[start:end], r.Stop); idx >= 0 {
				start += idx + len(r.Stop)
			}
		}
		return start, end, labelStart, true
	default:
		start = labelEnd
		end = min(len(text), start+r.Window)
		if r.Stop != "" {
			if idx := strings.Index(text[start:end], r.Stop); idx >= 0 {
				end = start + idx
			}
		}
		return start, end, labelEnd, true
	}
}

func (r Rule) distance(anchor int, s span) int {
	if r.Direction == Before {
		return anchor - s.end
	}
	return s.start - anchor
}

func (r Rule) matches(text string, start, end int, p pattern) []span {
	var out []span
	for _, loc := range p.re.FindAllStringIndex(text[start:end], -1) {
		s := span{start: start + loc[0], end: start + loc[1]}
		if !isolated(text, s.start, s.end) {
			continue
		}
		if p.kind == tokenBare && s.end-s.start < r.minDigits() {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (r Rule) candidate(text string, anchor int, s span) (Candidate, bool) {
	token := text[s.start:s.end]
	value, ok := ParseCount(token)
	if !ok {
		return Candidate{}, false
	}
	return Candidate{
		Value:  value,
		Token:  token,
		Offset: r.distance(anchor, s),
	}, true
}

// Candidates returns every number in the rule's window, nearest to the
// label first. Where patterns overlap, the higher priority pattern wins.
func (r Rule) Candidates(text string) []Candidate {
	start, end, anchor, ok := r.window(text)
	if !ok {
		return nil
	}

	var taken []span
	var out []Candidate
	for _, p := range patterns {
		for _, s := range r.matches(text, start, end, p) {
			overlapping := slices.ContainsFunc(taken, s.overlaps)
			if overlapping {
				continue
			}
			c, ok := r.candidate(text, anchor, s)
			if !ok {
				continue
			}
			taken = append(taken, s)
			out = append(out, c)
		}
	}

	slices.SortStableFunc(out, func(a, b Candidate) int {
		return a.Offset - b.Offset
	})
	return out
}

// First is strict extraction: the nearest match of the highest priority
// pattern that matches anything in the window.
func (r Rule) First(text string) (Candidate, bool) {
	start, end, anchor, ok := r.window(text)
	if !ok {
		return Candidate{}, false
	}
	for _, p := range patterns {
		spans := r.matches(text, start, end, p)
		slices.SortFunc(spans, func(a, b span) int {
			return r.distance(anchor, a) - r.distance(anchor, b)
		})
		for _, s := range spans {
			c, ok := r.candidate(text, anchor, s)
			if ok {
				return c, true
			}
		}
	}
	return Candidate{}, false
}

// FirstOf applies strict extraction with each rule in turn and returns the
// first success.
func FirstOf(text string, rules ...Rule) (Candidate, bool) {
	for _, r := range rules {
		c, ok := r.First(text)
		if ok {
			return c, true
		}
	}
	return Candidate{}, false
}
