// Package socialblade reads channel counts off the realtime statistics page
// of socialblade.com. the page is only trusted for counts, never identity.
package socialblade

import (
	"context"
	"fmt"
	"time"

	"chandir/lib/channelref"
	"chandir/lib/extract"
	"chandir/lib/htmlutil"
	"chandir/lib/retry"
	"chandir/lib/source"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("chandir.lib.scrapers.socialblade")

const Name = "socialblade"

const (
	baseUrl = "https://socialblade.com/youtube"
	referer = "https://socialblade.com/"
)

type Options struct {
	Retry retry.Policy
	// size of the text window read after each label
	Window       int
	Plausibility source.Plausibility
}

var DefaultOptions = Options{
	Retry: retry.Policy{
		Attempts:  2,
		BaseDelay: 1200 * time.Millisecond,
	},
	Window:       800,
	Plausibility: source.DefaultPlausibility,
}

func Descriptor(opts Options) source.Descriptor {
	if opts.Window <= 0 {
		opts.Window = DefaultOptions.Window
	}
	p := Parser{Window: opts.Window, Plausibility: opts.Plausibility}
	return source.Descriptor{
		Name:    Name,
		URL:     RealtimeURL,
		Headers: map[string]string{"referer": referer},
		Retry:   opts.Retry,
		Parse:   p.Parse,
		Fills:   extract.Metrics,
	}
}

// RealtimeURL returns the realtime counter page for a handle, id or bare
// name. urls that couldn't be reduced to either have no such page.
func RealtimeURL(ref string) (string, error) {
	switch channelref.Classify(ref) {
	case channelref.KindID:
		return fmt.Sprintf("%s/channel/%s/realtime", baseUrl, ref), nil
	case channelref.KindHandle, channelref.KindName:
		name := channelref.HandleName(ref)
		if name == "" {
			return "", fmt.Errorf("realtime url: empty reference")
		}
		return fmt.Sprintf("%s/handle/%s/realtime", baseUrl, channelref.EscapeSegment(name)), nil
	}
	return "", retry.Permanent(fmt.Errorf("realtime url: unsupported reference %s", ref))
}

type Parser struct {
	Window       int
	Plausibility source.Plausibility
}

func (p Parser) rule(labels ...string) extract.Rule {
	return extract.Rule{
		Labels:    labels,
		Direction: extract.After,
		Window:    p.Window,
		MinDigits: 2,
	}
}

func (p Parser) selection(policy extract.Policy, metric extract.Metric, exclude *int64) extract.Selection {
	s := extract.Selection{
		Policy: policy,
		Bounds: p.Plausibility.Bounds(metric),
	}
	if exclude != nil {
		s.Exclude = []int64{*exclude}
	}
	return s
}

// Parse reads the rendered text of the page. counts sit close together on
// this page so every label window tends to contain its neighbours' numbers:
// the subscriber count is the first number after its label, the view count
// is the largest, the upload count the smallest, and a number equal to the
// subscriber count never counts as either of the other two.
func (p Parser) Parse(ctx context.Context, page string, req source.Request) (source.Result, error) {
	ctx, span := tracer.Start(ctx, "Parse")
	defer span.End()

	doc, err := htmlutil.Parse(page)
	if err != nil {
		return source.Result{}, err
	}
	text := htmlutil.VisibleText(ctx, doc)

	var res source.Result
	res.Counts.Subs = p.selection(extract.PolicyFirst, extract.Subscribers, nil).
		Value(p.rule("subscribers").Candidates(text))

	knownSubs := req.Known.Subs
	if knownSubs == nil {
		knownSubs = res.Counts.Subs
	}
	res.Counts.Views = p.selection(extract.PolicyMax, extract.Views, knownSubs).
		Value(p.rule("video views", "views").Candidates(text))
	res.Counts.Videos = p.selection(extract.PolicyMin, extract.Videos, knownSubs).
		Value(p.rule("uploads", "videos").Candidates(text))

	span.SetAttributes(
		attribute.Bool("subs", res.Counts.Subs != nil),
		attribute.Bool("views", res.Counts.Views != nil),
		attribute.Bool("videos", res.Counts.Videos != nil),
	)
	return res, nil
}
