package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"chandir/lib/channelref"
	"chandir/lib/extract"
	"chandir/lib/htmlutil"
	"chandir/lib/retry"
	"chandir/lib/source"
	"chandir/lib/textutil"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("chandir.lib.scrapers.youtube")

const Name = "youtube"

const (
	baseUrl     = "https://www.youtube.com"
	localeQuery = "hl=en&gl=US&persist_hl=1&persist_gl=1"
)

type Options struct {
	Retry retry.Policy
	// size of the window read after each structured count key
	Window int
	// handles scoring below this against the requested handle are treated
	// as a different channel
	MismatchSimilarity float64
}

var DefaultOptions = Options{
	Retry: retry.Policy{
		Attempts:  3,
		BaseDelay: 800 * time.Millisecond,
	},
	Window:             120,
	MismatchSimilarity: 0.85,
}

func Descriptor(opts Options) source.Descriptor {
	if opts.Window <= 0 {
		opts.Window = DefaultOptions.Window
	}
	p := Parser{
		Rules:              countRules(opts.Window),
		MismatchSimilarity: opts.MismatchSimilarity,
	}
	return source.Descriptor{
		Name:     Name,
		URL:      AboutURL,
		Retry:    opts.Retry,
		Parse:    p.Parse,
		Fills:    extract.Metrics,
		Identity: true,
		Bust:     source.CacheBust,
	}
}

// AboutURL returns the english "about" page for a channel reference.
func AboutURL(ref string) (string, error) {
	if channelref.IsURL(ref) {
		parsed, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("about url for %s: %w", ref, err)
		}
		if !strings.HasSuffix(strings.TrimSuffix(parsed.Path, "/"), "/about") {
			parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/about"
			parsed.RawPath = ""
		}
		query := parsed.Query()
		query.Set("hl", "en")
		query.Set("gl", "US")
		query.Set("persist_hl", "1")
		query.Set("persist_gl", "1")
		parsed.RawQuery = query.Encode()
		return parsed.String(), nil
	}

	if channelref.IsStableID(ref) {
		return fmt.Sprintf("%s/channel/%s/about?%s", baseUrl, ref, localeQuery), nil
	}
	name := channelref.HandleName(ref)
	if name == "" {
		return "", fmt.Errorf("about url: empty reference")
	}
	return fmt.Sprintf("%s/@%s/about?%s", baseUrl, channelref.EscapeSegment(name), localeQuery), nil
}

// json string contents, escapes included
const jsonString = `((?:[^"\\]|\\.)*)`

// the members of a json object preceding a key, nested objects included up
// to two levels deep
const jsonMembers = `(?:[^{}]|\{(?:[^{}]|\{[^{}]*\})*\})*?`

var (
	embeddedTitle    = regexp.MustCompile(`"title"\s*:\s*\{\s*"simpleText"\s*:\s*"` + jsonString + `"\s*\}`)
	avatarThumbnail  = regexp.MustCompile(`"avatar"\s*:\s*\{[^}]*"thumbnails"\s*:\s*\[\s*\{[^}]*"url"\s*:\s*"` + jsonString + `"`)
	canonicalUrlKey  = regexp.MustCompile(`"canonicalChannelUrl"\s*:\s*"(?:https?://www\.youtube\.com)?/(@[^"/?]+)"`)
	externalIdKey    = regexp.MustCompile(`"externalId"\s*:\s*"(UC[A-Za-z0-9_-]{22})"`)
	verifiedBadge    = regexp.MustCompile(`(?i)"metadataBadgeRenderer"\s*:\s*\{[^}]*"style"\s*:\s*"BADGE_STYLE_TYPE_VERIFIED"`)
	verifiedTooltip  = regexp.MustCompile(`(?i)"tooltip"\s*:\s*"Verified"`)
	hiddenSubsMarker = regexp.MustCompile(`"(?:hiddenSubscriberCount|isSubscriberCountHidden)"\s*:\s*true`)
)

var countKeys = map[extract.Metric]string{
	extract.Subscribers: "subscriberCountText",
	extract.Views:       "viewCountText",
	extract.Videos:      "videoCountText",
}

// countRules reads each count out of the embedded page data. the value is
// either a plain string, a {"simpleText": ...} object or the first of
// {"runs": [...]}, with any whitespace or other keys in between.
func countRules(window int) map[extract.Metric][]extract.Rule {
	out := make(map[extract.Metric][]extract.Rule, len(countKeys))
	for metric, key := range countKeys {
		key = `"` + regexp.QuoteMeta(key) + `"\s*:\s*`
		anchors := []*regexp.Regexp{
			regexp.MustCompile(key + `\{` + jsonMembers + `"simpleText"\s*:\s*"`),
			regexp.MustCompile(key + `\{` + jsonMembers + `"runs"\s*:\s*\[\s*\{` + jsonMembers + `"text"\s*:\s*"`),
			regexp.MustCompile(key + `"`),
		}
		for _, anchor := range anchors {
			out[metric] = append(out[metric], extract.Rule{
				Anchors:   []*regexp.Regexp{anchor},
				Direction: extract.After,
				Window:    window,
				Stop:      `"`,
				MinDigits: 1,
			})
		}
	}
	return out
}

func unescape(s string) string {
	var out string
	err := json.Unmarshal([]byte(`"`+s+`"`), &out)
	if err != nil {
		return s
	}
	return out
}

func submatch(re *regexp.Regexp, page string) string {
	groups := re.FindStringSubmatch(page)
	if len(groups) < 2 {
		return ""
	}
	return unescape(groups[1])
}

type Parser struct {
	Rules              map[extract.Metric][]extract.Rule
	MismatchSimilarity float64
}

func (p Parser) Parse(ctx context.Context, page string, req source.Request) (source.Result, error) {
	_, span := tracer.Start(ctx, "Parse")
	defer span.End()

	doc, err := htmlutil.Parse(page)
	if err != nil {
		return source.Result{}, err
	}

	var res source.Result
	res.Identity = parseIdentity(doc, page)
	for _, metric := range extract.Metrics {
		c, ok := extract.FirstOf(page, p.Rules[metric]...)
		if ok {
			v := c.Value
			res.Counts.Set(metric, &v)
		}
	}
	res.HiddenSubs = hiddenSubsMarker.MatchString(page)

	span.SetAttributes(
		attribute.String("handle", res.Identity.Handle),
		attribute.String("id", res.Identity.ID),
		attribute.Bool("hidden_subs", res.HiddenSubs),
	)

	if p.mismatch(req.Query, res.Identity) {
		return res, fmt.Errorf(
			"%w: requested %s, page is %s",
			source.ErrShapeMismatch, req.Query, firstNonEmpty(res.Identity.Handle, res.Identity.ID),
		)
	}
	return res, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func unescapePath(s string) string {
	unescaped, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return unescaped
}

// mismatch reports whether the page clearly belongs to a different channel.
// pages without a handle or id can't be checked and never mismatch.
func (p Parser) mismatch(ref string, identity source.Identity) bool {
	switch channelref.Classify(ref) {
	case channelref.KindID:
		return identity.ID != "" && identity.ID != ref
	case channelref.KindHandle, channelref.KindName:
		if identity.Handle == "" || p.MismatchSimilarity <= 0 {
			return false
		}
		score := textutil.Similarity(unescapePath(ref), unescapePath(identity.Handle))
		return score < p.MismatchSimilarity
	}
	return false
}
