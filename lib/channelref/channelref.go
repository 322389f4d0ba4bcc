package channelref

import (
	"net/url"
	"regexp"
	"strings"
)

type Kind int

const (
	// a bare name without the handle sigil, treated as a handle by the scrapers
	KindName Kind = iota
	KindID
	KindHandle
	// an absolute url whose path could not be reduced to an id or a handle
	KindURL
)

func (k Kind) String() string {
	switch k {
	case KindID:
		return "id"
	case KindHandle:
		return "handle"
	case KindURL:
		return "url"
	default:
		return "name"
	}
}

var (
	stableIdRegex  = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)
	absoluteUrl    = regexp.MustCompile(`(?i)^https?://`)
	channelSegment = regexp.MustCompile(`/channel/([A-Za-z0-9_-]{24})(?:/|$)`)
	handleSegment  = regexp.MustCompile(`/@([^/?#]+)`)
)

func IsStableID(s string) bool {
	return stableIdRegex.MatchString(s)
}

func IsHandle(s string) bool {
	return strings.HasPrefix(s, "@")
}

func IsURL(s string) bool {
	return absoluteUrl.MatchString(s)
}

func Classify(s string) Kind {
	switch {
	case IsStableID(s):
		return KindID
	case IsHandle(s):
		return KindHandle
	case IsURL(s):
		return KindURL
	}
	return KindName
}

// Normalize reduces a channel reference to its canonical form.
// Anything that isn't an absolute url is returned (trimmed) as is, urls are
// reduced to their /channel/<id> or /@<handle> segment. Urls of any other
// shape are returned unchanged and are expected to be fetched directly.
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !IsURL(trimmed) {
		return trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	path := parsed.EscapedPath()

	if groups := channelSegment.FindStringSubmatch(path); len(groups) >= 2 {
		return groups[1]
	}
	if groups := handleSegment.FindStringSubmatch(path); len(groups) >= 2 {
		return "@" + groups[1]
	}
	return trimmed
}

// Dedupe normalizes every reference, dropping empty ones and any reference
// whose canonical form was already seen. Order of first appearance is kept.
func Dedupe(raws []string) []string {
	seen := make(map[string]struct{}, len(raws))
	var out []string
	for _, raw := range raws {
		ref := Normalize(raw)
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

// Reference is a single input entry alongside its canonical form.
type Reference struct {
	Raw       string
	Canonical string
	Kind      Kind
}

func Parse(raw string) Reference {
	canonical := Normalize(raw)
	return Reference{
		Raw:       raw,
		Canonical: canonical,
		Kind:      Classify(canonical),
	}
}

// HandleName returns the handle without its sigil, for bare names and
// handles. It returns "" for ids and urls.
func HandleName(ref string) string {
	switch Classify(ref) {
	case KindHandle:
		return strings.TrimPrefix(ref, "@")
	case KindName:
		return ref
	}
	return ""
}

// EscapeSegment escapes s for use as a single url path segment. s may
// already be escaped, as handles reduced from a url are.
func EscapeSegment(s string) string {
	unescaped, err := url.PathUnescape(s)
	if err == nil {
		s = unescaped
	}
	return url.PathEscape(s)
}
