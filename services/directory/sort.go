package directory

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort orders records by title (else handle, else id), ignoring case and
// accents. records with equal keys keep their order.
func Sort(records []Record) {
	c := collate.New(language.Und, collate.IgnoreCase, collate.IgnoreDiacritics)
	slices.SortStableFunc(records, func(a, b Record) int {
		return c.CompareString(a.SortKey(), b.SortKey())
	})
}
