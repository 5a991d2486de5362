// Package severity normalizes heterogeneous source signals into one
// comparable 0-100 urgency scale.
// keywords.go implements the urgency keyword booster over an Aho-Corasick
// matcher so a batch of items costs one pass per content string.
package severity

import (
	"strings"
	"unicode"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// keywordWeights maps urgency-indicating terms to additive boost weights.
// Matching is case-insensitive substring matching; only the single
// strongest match counts, which bounds keyword influence so multiple
// coincidental matches cannot push a score past one acute signal.
var keywordWeights = map[string]int{
	"crash":     40,
	"panic":     40,
	"fatal":     40,
	"data loss": 40,
	"data-loss": 40,
	"security":  40,
	"breach":    40,
	"emergency": 40,
	"critical":  30,
	"error":     20,
	"exception": 20,
	"fail":      20,
	"timeout":   20,
	"urgent":    20,
	"slow":      15,
	"stuck":     15,
	"broken":    15,
	"bug":       10,
	"issue":     5,
	"problem":   5,
	"weird":     5,
}

// Booster scans text for urgency keywords and returns the single highest
// matching weight.
type Booster struct {
	matcher  *ahocorasick.Matcher
	keywords []string
}

// NewBooster builds the matcher from the fixed keyword table.
func NewBooster() *Booster {
	keywords := make([]string, 0, len(keywordWeights))
	for kw := range keywordWeights {
		keywords = append(keywords, kw)
	}
	return &Booster{
		matcher:  ahocorasick.NewStringMatcher(keywords),
		keywords: keywords,
	}
}

// Boost returns the maximum weight among keywords present in text, or 0
// when none match.
func (b *Booster) Boost(text string) int {
	if text == "" {
		return 0
	}
	hits := b.matcher.Match([]byte(normalizeText(text)))

	best := 0
	for _, idx := range hits {
		if idx >= len(b.keywords) {
			continue
		}
		if w := keywordWeights[b.keywords[idx]]; w > best {
			best = w
		}
	}
	return best
}

// normalizeText lowercases and strips diacritics so "pánico"/"Crash!"
// style content still hits the keyword table.
func normalizeText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.ToLower(stripped)
}
