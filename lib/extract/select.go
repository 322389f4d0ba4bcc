package extract

import "slices"

type Policy int

const (
	PolicyFirst Policy = iota
	PolicyMin
	PolicyMax
)

// Bounds of a plausible value, a zero bound is unbounded. counts are never
// negative.
type Bounds struct {
	Min int64
	Max int64
}

func (b Bounds) Allows(v int64) bool {
	if v < 0 {
		return false
	}
	if b.Min > 0 && v < b.Min {
		return false
	}
	if b.Max > 0 && v > b.Max {
		return false
	}
	return true
}

type Selection struct {
	Policy Policy
	Bounds Bounds
	// values that belong to another label, like an already known
	// subscriber count sitting next to the upload count.
	Exclude []int64
}

func (s Selection) Select(candidates []Candidate) (Candidate, bool) {
	var best Candidate
	found := false
	for _, c := range candidates {
		if !s.Bounds.Allows(c.Value) || slices.Contains(s.Exclude, c.Value) {
			continue
		}
		if !found {
			best = c
			found = true
			if s.Policy == PolicyFirst {
				break
			}
			continue
		}
		switch s.Policy {
		case PolicyMin:
			if c.Value < best.Value {
				best = c
			}
		case PolicyMax:
			if c.Value > best.Value {
				best = c
			}
		}
	}
	return best, found
}

// Value is Select returning the selected number or nil.
func (s Selection) Value(candidates []Candidate) *int64 {
	c, ok := s.Select(candidates)
	if !ok {
		return nil
	}
	v := c.Value
	return &v
}
