package directory

import (
	"fmt"
	"time"

	"chandir/lib/channelref"
	"chandir/lib/source"
)

// Record is one channel of the directory. field names and null semantics
// are read by the static page and must not change.
type Record struct {
	Input    string  `json:"input"`
	ID       *string `json:"id"`
	Handle   *string `json:"handle"`
	Title    string  `json:"title"`
	Pfp      string  `json:"pfp"`
	Verified bool    `json:"verified"`
	Subs     *int64  `json:"subs"`
	Views    *int64  `json:"views"`
	Videos   *int64  `json:"videos"`
	// true when the count was declared hidden or could not be found at all
	HiddenSubs bool `json:"hiddenSubs"`
}

type Document struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Channels    []Record  `json:"channels"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// NewRecord assembles a record out of whatever was resolved, falling back
// to the reference itself for the id and handle.
func NewRecord(ref channelref.Reference, identity source.Identity, counts source.Counts, declaredHidden bool) Record {
	id := identity.ID
	if id == "" && ref.Kind == channelref.KindID {
		id = ref.Canonical
	}
	handle := identity.Handle
	if handle == "" && ref.Kind == channelref.KindHandle {
		handle = ref.Canonical
	}

	return Record{
		Input:      ref.Canonical,
		ID:         optional(id),
		Handle:     optional(handle),
		Title:      firstNonEmpty(identity.Title, handle, id, "Channel"),
		Pfp:        identity.Pfp,
		Verified:   identity.Verified,
		Subs:       counts.Subs,
		Views:      counts.Views,
		Videos:     counts.Videos,
		HiddenSubs: declaredHidden || counts.Subs == nil,
	}
}

// SortKey is what records are ordered by.
func (r Record) SortKey() string {
	return firstNonEmpty(r.Title, deref(r.Handle), deref(r.ID))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatCount(v *int64) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprint(*v)
}
