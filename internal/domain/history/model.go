package history

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Extra keys with a meaning of their own in queries.
const (
	ExtraProjectName = "projeto_nome"
	ExtraSourceFile  = "arquivo"
	ExtraSheetID     = "ficha_id"
)

// BatchSummary is one submission batch as persisted in the log. Extras are
// written as additional top-level keys.
type BatchSummary struct {
	Timestamp      time.Time
	Client         string
	ProjectID      string
	Successes      int
	Failures       int
	TotalRecords   int
	ConsultantName string
	ConsultantID   string
	Errors         []string
	Extras         map[string]any
}

var knownKeys = map[string]bool{
	"timestamp": true, "cliente": true, "projeto_id": true, "sucessos": true,
	"falhas": true, "total_registros": true, "consultor_nome": true,
	"consultor_id": true, "erros": true,
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// MarshalJSON writes the flat log line layout.
func (b BatchSummary) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.Extras)+9)
	for k, v := range b.Extras {
		if !knownKeys[k] {
			out[k] = v
		}
	}
	out["timestamp"] = b.Timestamp.Format(time.RFC3339Nano)
	out["cliente"] = b.Client
	out["projeto_id"] = b.ProjectID
	out["sucessos"] = b.Successes
	out["falhas"] = b.Failures
	out["total_registros"] = b.TotalRecords
	out["consultor_nome"] = b.ConsultantName
	out["consultor_id"] = b.ConsultantID
	if len(b.Errors) > 0 {
		out["erros"] = b.Errors
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a log line. Values of the wrong type are ignored
// rather than failing the whole line.
func (b *BatchSummary) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = BatchSummary{
		Timestamp:      parseTimestamp(asString(raw["timestamp"])),
		Client:         asString(raw["cliente"]),
		ProjectID:      asString(raw["projeto_id"]),
		Successes:      asInt(raw["sucessos"]),
		Failures:       asInt(raw["falhas"]),
		TotalRecords:   asInt(raw["total_registros"]),
		ConsultantName: asString(raw["consultor_nome"]),
		ConsultantID:   asString(raw["consultor_id"]),
	}
	if list, ok := raw["erros"].([]any); ok {
		for _, e := range list {
			if s := asString(e); s != "" {
				b.Errors = append(b.Errors, s)
			}
		}
	}
	for k, v := range raw {
		if knownKeys[k] {
			continue
		}
		if b.Extras == nil {
			b.Extras = map[string]any{}
		}
		b.Extras[k] = v
	}
	return nil
}

// Extra returns a string extra or "".
func (b BatchSummary) Extra(key string) string {
	return asString(b.Extras[key])
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func asInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	}
	return 0
}
