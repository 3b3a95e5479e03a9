package extract

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SplitLines splits raw text into lines. Blank lines are kept so that every
// line stays addressable by its original index.
func SplitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// NormalizeDate canonicalizes a day/month/year token to dd/mm/yyyy.
// Separators "/", "-" and "." are accepted and a two digit year is expanded
// with a "20" prefix. Anything that does not look like a date is returned
// unchanged.
func NormalizeDate(s string) string {
	out, ok := normalizeDate(s)
	if !ok {
		return s
	}
	return out
}

// ParseDate normalizes s and resolves it to a calendar date.
func ParseDate(s string) (time.Time, bool) {
	norm, ok := normalizeDate(s)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse("02/01/2006", norm)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func normalizeDate(s string) (string, bool) {
	clean := strings.TrimSpace(s)
	clean = strings.NewReplacer("-", "/", ".", "/").Replace(clean)
	parts := strings.Split(clean, "/")
	if len(parts) != 3 {
		return "", false
	}
	day, month, year := parts[0], parts[1], parts[2]
	if !isDigits(day) || !isDigits(month) || !isDigits(year) {
		return "", false
	}
	if len(day) > 2 || len(month) > 2 {
		return "", false
	}
	if len(year) == 2 {
		year = "20" + year
	}
	return zeroPad(day) + "/" + zeroPad(month) + "/" + year, true
}

// NormalizeClock zero-pads an H:MM:SS token to HH:MM:SS.
func NormalizeClock(s string) string {
	secs, ok := ClockSeconds(s)
	if !ok {
		return s
	}
	return FormatClock(secs)
}

// ClockSeconds converts an H:MM[:SS] token into seconds.
func ClockSeconds(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	total := 0
	mult := []int{3600, 60, 1}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		total += n * mult[i]
	}
	return total, true
}

// FormatClock renders seconds as HH:MM:SS. Hours are not wrapped at 24.
func FormatClock(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}

// ElapsedClock computes the duration between two clock tokens. When end is
// earlier than start the end is taken to fall on the following day.
func ElapsedClock(start, end string) string {
	s, ok1 := ClockSeconds(start)
	e, ok2 := ClockSeconds(end)
	if !ok1 || !ok2 {
		return "00:00:00"
	}
	if e < s {
		e += 24 * 3600
	}
	return FormatClock(e - s)
}

func zeroPad(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
