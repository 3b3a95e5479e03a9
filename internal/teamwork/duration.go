package teamwork

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultDescriptionMax is the longest description sent without truncation.
const DefaultDescriptionMax = 2000

const truncationMarker = "…"

// parseHMS reads "H:MM:SS" (or "H:MM") into its parts.
func parseHMS(s string) (h, m, sec int, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, false
	}
	vals := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, 0, 0, false
		}
		vals[i] = n
	}
	return vals[0], vals[1], vals[2], true
}

// SplitDuration converts a total duration into whole hours and minutes,
// rounding seconds to the nearest minute (half to even). A result of
// zero is raised to one minute because zero-length entries are refused.
func SplitDuration(total string) (hours, minutes int) {
	h, m, s, ok := parseHMS(total)
	if ok {
		all := int(math.RoundToEven(float64(h*60+m) + float64(s)/60.0))
		hours, minutes = all/60, all%60
	}
	if hours == 0 && minutes == 0 {
		minutes = 1
	}
	return hours, minutes
}

// DecimalHours renders a duration as hours with two decimals ("1.50").
func DecimalHours(total string) string {
	h, m, s, ok := parseHMS(total)
	if !ok {
		return "0"
	}
	return fmt.Sprintf("%.2f", float64(h)+float64(m)/60.0+float64(s)/3600.0)
}

// TruncateDescription trims s and cuts it to max runes, appending a marker
// when anything was removed.
func TruncateDescription(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 {
		max = DefaultDescriptionMax
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + truncationMarker
}
