package source

import (
	"chandir/lib/extract"
)

// Counts holds the metrics of a channel, nil means unknown.
type Counts struct {
	Subs   *int64
	Views  *int64
	Videos *int64
}

func (c Counts) Get(m extract.Metric) *int64 {
	switch m {
	case extract.Subscribers:
		return c.Subs
	case extract.Views:
		return c.Views
	case extract.Videos:
		return c.Videos
	}
	return nil
}

func (c *Counts) Set(m extract.Metric, value *int64) {
	switch m {
	case extract.Subscribers:
		c.Subs = value
	case extract.Views:
		c.Views = value
	case extract.Videos:
		c.Videos = value
	}
}

// Missing returns the metrics out of `fields` that are still unknown.
func (c Counts) Missing(fields []extract.Metric) []extract.Metric {
	var out []extract.Metric
	for _, m := range fields {
		if c.Get(m) == nil {
			out = append(out, m)
		}
	}
	return out
}

// Fill copies every metric in `fields` that is unknown here but known in
// other. known values are never overwritten. the metrics that were filled
// are returned.
func (c *Counts) Fill(other Counts, fields []extract.Metric) []extract.Metric {
	var filled []extract.Metric
	for _, m := range fields {
		if c.Get(m) != nil {
			continue
		}
		value := other.Get(m)
		if value == nil {
			continue
		}
		v := *value
		c.Set(m, &v)
		filled = append(filled, m)
	}
	return filled
}

// Plausibility bounds the values a metric may take, values outside of them
// are treated as extraction mistakes.
type Plausibility struct {
	MaxVideos int64
	MinViews  int64
}

var DefaultPlausibility = Plausibility{
	MaxVideos: 1_000_000,
	MinViews:  1_000,
}

func (p Plausibility) Bounds(m extract.Metric) extract.Bounds {
	switch m {
	case extract.Videos:
		return extract.Bounds{Max: p.MaxVideos}
	case extract.Views:
		return extract.Bounds{Min: p.MinViews}
	}
	return extract.Bounds{}
}

// Bound drops every value that is out of bounds and returns the metrics
// that were dropped.
func (p Plausibility) Bound(c *Counts) []extract.Metric {
	var dropped []extract.Metric
	for _, m := range extract.Metrics {
		value := c.Get(m)
		if value == nil {
			continue
		}
		if !p.Bounds(m).Allows(*value) {
			c.Set(m, nil)
			dropped = append(dropped, m)
		}
	}
	return dropped
}
