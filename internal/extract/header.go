package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// UnknownClient is used when the document carries no recognizable client line.
const UnknownClient = "Cliente não identificado"

// Header holds document-level metadata read from a ficha.
type Header struct {
	Client      string  `json:"client"`
	ProjectID   string  `json:"project_id,omitempty"`
	ServiceType string  `json:"service_type,omitempty"`
	HourlyRate  float64 `json:"hourly_rate,omitempty"`
	FichaNumber string  `json:"ficha_number,omitempty"`
	Ticket      string  `json:"ticket,omitempty"`
}

var (
	clientPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)Cliente\s*\n?\s*(\d+\s*-\s*[^\n\r]+)`),
		regexp.MustCompile(`(\d{4,6}\s*-\s*\p{L}[^0-9\n\r]+)`),
		regexp.MustCompile(`(?i)Cliente[:\s]*([^\n\r]+)`),
	}
	projectIDRe = regexp.MustCompile(`(\d{4,6})`)

	serviceTypePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(Implantação|Personalização|Serviços|Deslocamento)\s*-\s*[A-Z]+`),
		regexp.MustCompile(`(?i)Ficha:\s*\d+\s*\n?\s*(Implantação|Personalização|Serviços|Deslocamento)`),
	}

	hourlyRatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Valor/Hr\s+Técnica\s+R\$\s*(\d+[.,]?\d*)`),
		regexp.MustCompile(`R\$\s*(\d+[.,]?\d*)`),
	}

	fichaPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bFicha\s*[:\-#]*\s*(\d{3,})`),
		regexp.MustCompile(`(?i)\bN[ºo]\s*[:\-#]*\s*(\d{3,})`),
	}
	ticketRe = regexp.MustCompile(`(?i)\bTicket\s*[:\-#]*\s*(\d{3,})`)
)

// ParseHeader reads client, project, service type, rate and the ficha and
// ticket numbers. Missing fields are left empty except Client, which falls
// back to UnknownClient.
func ParseHeader(text string) Header {
	h := Header{Client: UnknownClient}

	if m := firstMatch(clientPatterns, text); m != "" {
		h.Client = m
	}
	if m := projectIDRe.FindStringSubmatch(h.Client); m != nil {
		h.ProjectID = m[1]
	}
	h.ServiceType = firstMatch(serviceTypePatterns, text)

	for _, re := range hourlyRatePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			continue
		}
		h.HourlyRate = v
		break
	}

	h.FichaNumber = FichaNumber(text)
	if m := ticketRe.FindStringSubmatch(text); m != nil {
		h.Ticket = stripLeadingZeros(m[1])
	}
	return h
}

// FichaNumber returns the sheet number ("Ficha: 000987" -> "987") or "".
func FichaNumber(text string) string {
	m := firstMatch(fichaPatterns, text)
	if m == "" {
		return ""
	}
	return stripLeadingZeros(m)
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			if v := strings.TrimSpace(m[1]); v != "" {
				return v
			}
		}
	}
	return ""
}

func stripLeadingZeros(s string) string {
	if trimmed := strings.TrimLeft(s, "0"); trimmed != "" {
		return trimmed
	}
	return s
}
