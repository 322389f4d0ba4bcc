package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"chandir/lib/channelref"
	"chandir/lib/extract"
	"chandir/lib/fetch"
	"chandir/lib/retry"
	"chandir/lib/source"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("chandir.services.directory")

var (
	meter              = otel.Meter("chandir.services.directory")
	fetchAttempts, _   = meter.Int64Counter("source_fetch_attempts")
	sourceFailures, _  = meter.Int64Counter("source_failures")
	shapeMismatches, _ = meter.Int64Counter("source_shape_mismatches")
	fieldsFilled, _    = meter.Int64Counter("fields_filled")
)

// Reconciler resolves a single reference against an ordered list of
// sources. the first source is the primary, every later one is only asked
// for what is still missing and never overwrites a value already found.
type Reconciler struct {
	Sources      []source.Descriptor
	Fetcher      fetch.Fetcher
	Plausibility source.Plausibility
}

type resolution struct {
	identity source.Identity
	counts   source.Counts
	// whether an identity source has answered
	identified     bool
	declaredHidden bool
}

// query picks what to ask a source for: the resolved handle, else the
// resolved id, else the reference itself.
func (r resolution) query(ref channelref.Reference) string {
	return firstNonEmpty(r.identity.Handle, r.identity.ID, ref.Canonical)
}

// fillable returns the metrics d may still fill in.
func (r resolution) fillable(d source.Descriptor) []extract.Metric {
	var out []extract.Metric
	for _, m := range d.Fills {
		// a hidden count stays hidden, whatever other sites claim
		if m == extract.Subscribers && r.declaredHidden {
			continue
		}
		out = append(out, m)
	}
	return r.counts.Missing(out)
}

func (r *resolution) mergeIdentity(identity source.Identity) {
	r.identity.Title = firstNonEmpty(r.identity.Title, identity.Title)
	r.identity.Pfp = firstNonEmpty(r.identity.Pfp, identity.Pfp)
	r.identity.Handle = firstNonEmpty(r.identity.Handle, identity.Handle)
	r.identity.ID = firstNonEmpty(r.identity.ID, identity.ID)
	r.identity.Verified = r.identity.Verified || identity.Verified
}

// Resolve never fails, whatever couldn't be resolved is left out of the
// record.
func (r Reconciler) Resolve(ctx context.Context, raw string) Record {
	ref := channelref.Parse(raw)

	ctx, span := tracer.Start(ctx, "Resolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("input", ref.Canonical),
		attribute.String("kind", ref.Kind.String()),
	)

	var state resolution
	for i, d := range r.Sources {
		missing := state.fillable(d)
		wantsIdentity := d.Identity && !state.identified
		if i > 0 && len(missing) == 0 && !wantsIdentity {
			continue
		}

		req := source.Request{Query: state.query(ref), Known: state.counts}
		res, err := r.query(ctx, d, req)
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			sourceFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("source", d.Name)))
			slog.WarnContext(ctx, "source failed", "source", d.Name, "query", req.Query, "err", err)
			continue
		}

		dropped := r.Plausibility.Bound(&res.Counts)
		if len(dropped) > 0 {
			slog.DebugContext(ctx, "dropped implausible counts", "source", d.Name, "metrics", dropped)
		}

		if d.Identity {
			state.mergeIdentity(res.Identity)
			state.identified = true
			state.declaredHidden = state.declaredHidden || res.HiddenSubs
		}

		filled := state.counts.Fill(res.Counts, missing)
		if len(filled) > 0 {
			fieldsFilled.Add(ctx, int64(len(filled)), metric.WithAttributes(attribute.String("source", d.Name)))
			slog.DebugContext(ctx, "filled counts", "source", d.Name, "metrics", filled)
		}
	}

	record := NewRecord(ref, state.identity, state.counts, state.declaredHidden)
	span.SetAttributes(
		attribute.Bool("subs", record.Subs != nil),
		attribute.Bool("views", record.Views != nil),
		attribute.Bool("videos", record.Videos != nil),
		attribute.Bool("hidden_subs", record.HiddenSubs),
	)
	return record
}

func (r Reconciler) fetcher(d source.Descriptor) fetch.Fetcher {
	if d.Fetcher != nil {
		return d.Fetcher
	}
	return r.Fetcher
}

// query fetches and parses one source. a page for another channel is
// refetched once through a cache busting url.
func (r Reconciler) query(ctx context.Context, d source.Descriptor, req source.Request) (source.Result, error) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("query:%s", d.Name))
	defer span.End()
	span.SetAttributes(attribute.String("query", req.Query))

	url, err := d.URL(req.Query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build url")
		return source.Result{}, err
	}

	res, err := r.fetchAndParse(ctx, d, url, req)
	if errors.Is(err, source.ErrShapeMismatch) && d.Bust != nil {
		shapeMismatches.Add(ctx, 1, metric.WithAttributes(attribute.String("source", d.Name)))
		busted, bustErr := d.Bust(url)
		if bustErr != nil {
			return source.Result{}, errors.Join(err, bustErr)
		}
		slog.InfoContext(ctx, "page does not match, refetching", "source", d.Name, "err", err)
		res, err = r.fetchAndParse(ctx, d, busted, req)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "source failed")
		return source.Result{}, err
	}
	return res, nil
}

func (r Reconciler) fetchAndParse(ctx context.Context, d source.Descriptor, url string, req source.Request) (source.Result, error) {
	fetcher := r.fetcher(d)
	page, err := retry.Do(ctx, d.Retry, func(ctx context.Context, attempt int) (string, error) {
		fetchAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("source", d.Name)))
		page, err := fetcher.Fetch(ctx, url, d.Headers)
		if err != nil && !fetch.Retryable(err) {
			return "", retry.Permanent(err)
		}
		return page, err
	})
	if err != nil {
		return source.Result{}, err
	}
	return d.Parse(ctx, page, req)
}
