package directory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chandir/lib/channelref"
)

type Builder struct {
	Reconciler Reconciler
	Pacer      Pacer
	// defaults to time.Now
	Now func() time.Time
}

// Build resolves every distinct reference, one at a time in input order,
// and returns the sorted directory. it only fails when ctx is done, in which
// case nothing should be written.
func (b Builder) Build(ctx context.Context, raws []string) (Document, error) {
	ctx, span := tracer.Start(ctx, "Build")
	defer span.End()

	refs := channelref.Dedupe(raws)
	slog.InfoContext(ctx, "building directory", "references", len(refs), "duplicates", len(raws)-len(refs))

	records := make([]Record, 0, len(refs))
	for i, ref := range refs {
		err := b.Pacer.Wait(ctx, i)
		if err != nil {
			return Document{}, fmt.Errorf("build directory: %w", err)
		}

		record := b.Reconciler.Resolve(ctx, ref)
		if ctx.Err() != nil {
			return Document{}, fmt.Errorf("build directory: %w", ctx.Err())
		}
		records = append(records, record)

		slog.InfoContext(
			ctx, fmt.Sprintf("[%d/%d] %s", i+1, len(refs), record.Title),
			"subs", formatCount(record.Subs),
			"views", formatCount(record.Views),
			"videos", formatCount(record.Videos),
		)
	}

	Sort(records)

	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	return Document{
		GeneratedAt: now().UTC().Truncate(time.Millisecond),
		Channels:    records,
	}, nil
}
