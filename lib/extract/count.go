package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var countRegex = regexp.MustCompile(`^(\d{1,15}(?:\.\d+)?)([KMB])?$`)

var magnitudes = map[string]float64{
	"":  1,
	"K": 1e3,
	"M": 1e6,
	"B": 1e9,
}

// ParseCount converts a count token such as "4.62M", "1,234,567", "12K" or
// "322" into an integer, rounding to the nearest whole number.
func ParseCount(token string) (int64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, token)

	groups := countRegex.FindStringSubmatch(cleaned)
	if len(groups) < 3 {
		return 0, false
	}
	n, err := strconv.ParseFloat(groups[1], 64)
	if err != nil {
		return 0, false
	}
	value := math.Round(n * magnitudes[groups[2]])
	// float64(math.MaxInt64) rounds up to 2^63, which int64 can't hold
	if math.IsInf(value, 0) || math.IsNaN(value) || value >= math.MaxInt64 {
		return 0, false
	}
	return int64(value), true
}
