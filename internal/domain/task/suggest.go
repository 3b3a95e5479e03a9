package task

import (
	"strings"

	"github.com/rpggio/apontador/internal/textnorm"
)

// Suggest scores each candidate against the activity text, the phase label
// and the client name. One point per shared token, one more when any phase
// token matches, three when the ticket number appears in the task name and
// two for the ficha number. The first candidate with the strictly highest
// positive score wins.
func Suggest(activity, phase string, meta Meta, candidates []Descriptor) (Suggestion, bool) {
	phaseTokens := textnorm.TokenSet(phase)
	all := textnorm.TokenSet(activity)
	for tok := range phaseTokens {
		all[tok] = struct{}{}
	}
	for tok := range textnorm.TokenSet(meta.Client) {
		all[tok] = struct{}{}
	}

	var best Suggestion
	for _, c := range candidates {
		taskTokens := textnorm.TokenSet(c.Name + " " + strings.Join(c.Tags, " "))

		score := overlap(all, taskTokens)
		name := strings.ToLower(c.Name)
		if meta.Ticket != "" && strings.Contains(name, strings.ToLower(meta.Ticket)) {
			score += 3
		}
		if meta.Ficha != "" && strings.Contains(name, strings.ToLower(meta.Ficha)) {
			score += 2
		}
		if overlap(phaseTokens, taskTokens) > 0 {
			score++
		}

		if score > best.Score {
			best = Suggestion{Task: c, Score: score}
		}
	}
	return best, best.Score > 0
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			n++
		}
	}
	return n
}
