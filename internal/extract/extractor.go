// Package extract recovers activity records from the plain text of a ficha.
package extract

import "fmt"

// Record is a raw record enriched with its narrative description.
type Record struct {
	RawRecord
	Description      string `json:"description"`
	DescriptionFound bool   `json:"description_found"`
}

// Result is the outcome of extracting a whole document.
type Result struct {
	Header   Header   `json:"header"`
	Strategy string   `json:"strategy,omitempty"` // empty when nothing matched
	Records  []Record `json:"records"`
	Lines    int      `json:"lines"`
}

// Extractor runs its strategies in order and keeps the first non-empty result.
type Extractor struct {
	strategies []Strategy
}

// NewExtractor creates an extractor. With no strategies the defaults are used.
func NewExtractor(strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Extractor{strategies: strategies}
}

// Extract parses text into records. Finding nothing is a valid outcome and
// yields an empty record list.
func (e *Extractor) Extract(text string) Result {
	lines := SplitLines(text)
	res := Result{
		Header:  ParseHeader(text),
		Records: []Record{},
		Lines:   len(lines),
	}

	var raw []RawRecord
	for _, s := range e.strategies {
		raw = s.Extract(lines)
		if len(raw) > 0 {
			res.Strategy = s.Name()
			break
		}
	}

	prefix := ""
	if res.Header.FichaNumber != "" {
		prefix = fmt.Sprintf("FICHA %s - ", res.Header.FichaNumber)
	}

	for _, r := range raw {
		desc, found := HarvestDescription(lines, r.Line)
		if !found {
			desc = FallbackDescription(r.Date, r.Executor)
		}
		res.Records = append(res.Records, Record{
			RawRecord:        r,
			Description:      prefix + desc,
			DescriptionFound: found,
		})
	}
	return res
}

// FallbackDescription is the sentence used when no narrative block exists.
func FallbackDescription(date, executor string) string {
	return fmt.Sprintf("Atividade executada em %s por %s.", date, executor)
}
