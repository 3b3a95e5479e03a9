package extract

import (
	"regexp"
	"strings"
)

const (
	harvestBefore    = 2
	harvestAfter     = 25
	harvestLookahead = 30
)

var (
	serviceHeaderRe   = regexp.MustCompile(`(?i)Serv[ií]?[çc]o\s+Exec`)
	serviceTrailingRe = regexp.MustCompile(`(?i)Serv[ií]?[çc]o\s+Exec[^:]*[:\-–]\s*(.*)$`)
	newRecordRe       = regexp.MustCompile(`^\s*` + datePattern + `\s+\d+\s*-\s+`)
	delimiterRe       = regexp.MustCompile(`(?i)(Hr\(\s*\)\s*Tec|Total\s+Hr|Valor\s*R\$|Informações\s+de\s+Cobrança|Assinatura|Formulário|Ficha|Cliente\s*\d{3,})`)
	separatorLineRe   = regexp.MustCompile(`^[\-=_.\s]{3,}$`)
	spaceRunRe        = regexp.MustCompile(`\s+`)
	trailingJunkRe    = regexp.MustCompile(`[,\s\-_]+$`)
)

// HarvestDescription finds the "Serviço Exec." narrative associated with the
// record anchored at line anchor. It reports false when no header is found in
// the search window; the caller supplies the fallback text.
func HarvestDescription(lines []string, anchor int) (string, bool) {
	from := max(0, anchor-harvestBefore)
	to := min(len(lines), anchor+harvestAfter)

	var parts []string
	for i := from; i < to; i++ {
		line := strings.TrimSpace(lines[i])
		if !serviceHeaderRe.MatchString(line) {
			continue
		}
		if m := serviceTrailingRe.FindStringSubmatch(line); m != nil {
			if rest := strings.TrimSpace(m[1]); rest != "" {
				parts = append(parts, rest)
			}
		}
		for j := i + 1; j < min(i+harvestLookahead, len(lines)); j++ {
			next := strings.TrimSpace(lines[j])
			if next == "" {
				continue
			}
			if newRecordRe.MatchString(next) || delimiterRe.MatchString(next) {
				break
			}
			if separatorLineRe.MatchString(next) || isDigits(next) {
				continue
			}
			parts = append(parts, next)
		}
		break
	}

	if len(parts) == 0 {
		return "", false
	}
	text := finishSentence(strings.Join(parts, " "))
	if text == "" {
		return "", false
	}
	return text, true
}

func finishSentence(s string) string {
	text := strings.TrimSpace(spaceRunRe.ReplaceAllString(s, " "))
	text = trailingJunkRe.ReplaceAllString(text, ".")
	if text == "" || text == "." {
		return ""
	}
	if !strings.HasSuffix(text, ".") && !strings.HasSuffix(text, "!") &&
		!strings.HasSuffix(text, "?") && !strings.HasSuffix(text, ":") {
		text += "."
	}
	return text
}
