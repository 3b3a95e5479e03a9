package task

import (
	"strings"

	"github.com/rpggio/apontador/internal/textnorm"
)

// OtherServiceType is returned when no keyword matches.
const OtherServiceType = "Outros"

type keywordRule struct {
	serviceType string
	keywords    []string
}

var defaultRules = []keywordRule{
	{"Implantação", []string{
		"implantação", "implementação", "instalação", "setup", "configuração inicial",
		"primeiro acesso", "criação", "cadastro inicial", "parametrização inicial",
		"instalação do sistema", "primeira configuração", "setup inicial",
	}},
	{"Configuração", []string{
		"configuração", "parametrização", "ajuste", "personalização", "customização",
		"configurar", "ajustar", "personalizar", "layout", "relatório", "parâmetros",
		"configuração de", "ajuste de", "parametrização de",
	}},
	{"Treinamento", []string{
		"treinamento", "capacitação", "orientação", "explicação", "demonstração",
		"ensino", "tutorial", "apresentação", "instrução", "treinar", "capacitar",
		"orientar", "explicar", "demonstrar", "ensinar",
	}},
	{"Suporte", []string{
		"suporte", "auxílio", "ajuda", "resolução", "problema", "erro", "dúvida",
		"dificuldade", "falha", "correção", "resolver", "solucionar", "corrigir",
		"resolver problema", "solução de", "correção de",
	}},
	{"Personalização", []string{
		"personalização", "customização", "desenvolvimento", "criação de relatório",
		"layout personalizado", "funcionalidade específica", "adaptação", "customizar",
		"desenvolver", "criar relatório", "relatório específico", "desenvolvimento de",
	}},
}

// KeywordClassifier scores service types by keyword occurrences, weighting
// multi-word phrases by their word count.
type KeywordClassifier struct {
	rules []keywordRule
}

// NewKeywordClassifier returns a classifier with the built-in vocabulary.
func NewKeywordClassifier() *KeywordClassifier {
	rules := make([]keywordRule, len(defaultRules))
	for i, r := range defaultRules {
		folded := make([]string, len(r.keywords))
		for j, k := range r.keywords {
			folded[j] = textnorm.Fold(k)
		}
		rules[i] = keywordRule{serviceType: r.serviceType, keywords: folded}
	}
	return &KeywordClassifier{rules: rules}
}

// Classify returns the best scoring service type or OtherServiceType.
// Ties go to the earlier rule.
func (k *KeywordClassifier) Classify(text string) string {
	folded := textnorm.Fold(text)
	if folded == "" {
		return OtherServiceType
	}
	best, bestScore := OtherServiceType, 0
	for _, r := range k.rules {
		score := 0
		for _, kw := range r.keywords {
			score += strings.Count(folded, kw) * len(strings.Fields(kw))
		}
		if score > bestScore {
			best, bestScore = r.serviceType, score
		}
	}
	return best
}

// PhaseFor returns the first phase mapped to serviceType, or "".
func PhaseFor(serviceType string, byServiceType map[string][]string) string {
	if phases := byServiceType[serviceType]; len(phases) > 0 {
		return phases[0]
	}
	return ""
}
