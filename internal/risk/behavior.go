package risk

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultKeywords is the behavioural vocabulary matched against observation logs.
var DefaultKeywords = []string{
	"aislado",
	"aislada",
	"irritable",
	"agresivo",
	"agresiva",
	"duerme",
	"ansiedad",
	"llanto",
	"tristeza",
	"autolesión",
	"conflicto",
	"desmotivado",
}

// KeywordMatcher flags free-text observations that contain a behavioural keyword.
// Matching ignores case and diacritics.
type KeywordMatcher struct {
	keywords []string
	folded   []string
}

// NewKeywordMatcher builds a matcher; blank keywords are dropped.
func NewKeywordMatcher(keywords ...string) *KeywordMatcher {
	m := &KeywordMatcher{}
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		f := fold(kw)
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		m.keywords = append(m.keywords, kw)
		m.folded = append(m.folded, f)
	}
	return m
}

// Keywords returns the configured vocabulary.
func (m *KeywordMatcher) Keywords() []string {
	out := make([]string, len(m.keywords))
	copy(out, m.keywords)
	return out
}

// Match returns the keywords found in any observation, in vocabulary order.
func (m *KeywordMatcher) Match(observations []string) []string {
	if m == nil || len(m.folded) == 0 || len(observations) == 0 {
		return nil
	}
	texts := make([]string, 0, len(observations))
	for _, obs := range observations {
		if obs != "" {
			texts = append(texts, fold(obs))
		}
	}
	var hits []string
	for i, kw := range m.folded {
		for _, text := range texts {
			if strings.Contains(text, kw) {
				hits = append(hits, m.keywords[i])
				break
			}
		}
	}
	return hits
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
