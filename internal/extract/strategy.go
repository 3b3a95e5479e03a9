package extract

import (
	"regexp"
	"strings"
)

// UnknownExecutor is used when no numeric-coded executor token is found.
const UnknownExecutor = "Executor não identificado"

// RawRecord is an activity row recovered from a single anchor line.
type RawRecord struct {
	Line     int    `json:"line"`
	Date     string `json:"date"`
	Executor string `json:"executor"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Total    string `json:"total"`
	Billable bool   `json:"billable"`
}

// Strategy turns a line sequence into raw records. Implementations are pure
// and must not reorder or deduplicate what they find.
type Strategy interface {
	Name() string
	Extract(lines []string) []RawRecord
}

const (
	datePattern  = `\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4}`
	clockPattern = `\d{1,2}:\d{2}:\d{2}`
)

var (
	strictRe = regexp.MustCompile(`(?i)(` + datePattern + `)\s+` +
		`(\d+\s*-\s*[^\d]+?)\s+` +
		`(` + clockPattern + `)\s+` +
		`(` + clockPattern + `)\s+` +
		`(` + clockPattern + `)\s+` +
		`(Sim|Não)`)

	flexibleRe = regexp.MustCompile(`(` + datePattern + `).*?(` + clockPattern + `).*?(` + clockPattern + `).*?(` + clockPattern + `)`)

	executorRe     = regexp.MustCompile(`(\d+\s*-\s*\p{L}[^0-9\n\r]+)`)
	billableRe     = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(Sim|Não)(?:$|[^\p{L}])`)
	executorCodeRe = regexp.MustCompile(`^\d+\s*-\s*`)

	dateRe      = regexp.MustCompile(datePattern)
	clockRe     = regexp.MustCompile(clockPattern)
	shortTimeRe = regexp.MustCompile(`\d{1,2}:\d{2}`)
)

// DefaultStrategies returns the strict, flexible and manual strategies in
// decreasing order of strictness.
func DefaultStrategies() []Strategy {
	return []Strategy{StrictStrategy{}, FlexibleStrategy{}, ManualStrategy{}}
}

// StrictStrategy requires date, coded executor, start, end, total and the
// Sim/Não marker on one line, in that order.
type StrictStrategy struct{}

func (StrictStrategy) Name() string { return "strict" }

func (StrictStrategy) Extract(lines []string) []RawRecord {
	var out []RawRecord
	for idx, line := range lines {
		m := strictRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, RawRecord{
			Line:     idx,
			Date:     NormalizeDate(m[1]),
			Executor: CleanExecutor(m[2]),
			Start:    NormalizeClock(m[3]),
			End:      NormalizeClock(m[4]),
			Total:    NormalizeClock(m[5]),
			Billable: strings.EqualFold(strings.TrimSpace(m[6]), "sim"),
		})
	}
	return out
}

// FlexibleStrategy accepts a date followed anywhere by three clock tokens and
// looks for the executor and billable marker separately.
type FlexibleStrategy struct{}

func (FlexibleStrategy) Name() string { return "flexible" }

func (FlexibleStrategy) Extract(lines []string) []RawRecord {
	var out []RawRecord
	for idx, line := range lines {
		m := flexibleRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		billable := false
		if bm := billableRe.FindStringSubmatch(line); bm != nil {
			billable = strings.EqualFold(bm[1], "sim")
		}
		out = append(out, RawRecord{
			Line:     idx,
			Date:     NormalizeDate(m[1]),
			Executor: findExecutor(line),
			Start:    NormalizeClock(m[2]),
			End:      NormalizeClock(m[3]),
			Total:    NormalizeClock(m[4]),
			Billable: billable,
		})
	}
	return out
}

// ManualStrategy is the last resort: any line with a date and at least two
// clock tokens. A missing total is computed from start and end.
type ManualStrategy struct{}

func (ManualStrategy) Name() string { return "manual" }

func (ManualStrategy) Extract(lines []string) []RawRecord {
	var out []RawRecord
	for idx, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !dateRe.MatchString(line) || !shortTimeRe.MatchString(line) {
			continue
		}
		dates := dateRe.FindAllString(line, -1)
		clocks := clockRe.FindAllString(line, -1)
		if len(dates) == 0 || len(clocks) < 2 {
			continue
		}
		start, end := NormalizeClock(clocks[0]), NormalizeClock(clocks[1])
		total := ElapsedClock(start, end)
		if len(clocks) > 2 {
			total = NormalizeClock(clocks[2])
		}
		out = append(out, RawRecord{
			Line:     idx,
			Date:     NormalizeDate(dates[0]),
			Executor: findExecutor(line),
			Start:    start,
			End:      end,
			Total:    total,
			Billable: strings.Contains(strings.ToLower(line), "sim"),
		})
	}
	return out
}

// CleanExecutor strips the leading numeric code ("1234 - John Doe" -> "John Doe").
func CleanExecutor(s string) string {
	return strings.TrimSpace(executorCodeRe.ReplaceAllString(strings.TrimSpace(s), ""))
}

func findExecutor(line string) string {
	m := executorRe.FindStringSubmatch(line)
	if m == nil {
		return UnknownExecutor
	}
	name := CleanExecutor(m[1])
	if name == "" {
		return UnknownExecutor
	}
	return name
}
