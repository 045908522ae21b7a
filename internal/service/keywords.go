package service

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/adr-causality-server/internal/domain"
)

// NormalizeText prepares free text for keyword matching: Unicode NFC composition
// followed by full case folding, so "Phát Ban" and "phát ban" (in either
// precomposed or combining-mark form) compare equal.
func NormalizeText(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// KeywordMatcher performs case-insensitive substring matching against one term set.
type KeywordMatcher struct {
	terms []string
}

// NewKeywordMatcher normalizes the terms once and drops blanks.
func NewKeywordMatcher(terms []string) *KeywordMatcher {
	normalized := make([]string, 0, len(terms))
	for _, term := range terms {
		t := strings.TrimSpace(NormalizeText(term))
		if t != "" {
			normalized = append(normalized, t)
		}
	}
	return &KeywordMatcher{terms: normalized}
}

// Match returns the first term contained in text. text must already be normalized.
func (m *KeywordMatcher) Match(normalizedText string) (string, bool) {
	for _, term := range m.terms {
		if strings.Contains(normalizedText, term) {
			return term, true
		}
	}
	return "", false
}

// Len returns the number of usable terms.
func (m *KeywordMatcher) Len() int {
	return len(m.terms)
}

// caseVocabulary bundles the compiled matchers used by both analyzers.
type caseVocabulary struct {
	shortLatency     *KeywordMatcher
	longLatency      *KeywordMatcher
	alternativeCause *KeywordMatcher
	knownReaction    *KeywordMatcher
	allergyHistory   *KeywordMatcher
}

func newCaseVocabulary(sets domain.KeywordSets) *caseVocabulary {
	return &caseVocabulary{
		shortLatency:     NewKeywordMatcher(sets.ShortLatency),
		longLatency:      NewKeywordMatcher(sets.LongLatency),
		alternativeCause: NewKeywordMatcher(sets.AlternativeCause),
		knownReaction:    NewKeywordMatcher(sets.KnownReaction),
		allergyHistory:   NewKeywordMatcher(sets.AllergyHistory),
	}
}

// KeywordsChecksum fingerprints the keyword sets so caches and audit records
// can tell which vocabulary produced a result.
func KeywordsChecksum(sets domain.KeywordSets) string {
	h := sha256.New()
	for _, group := range []struct {
		name  string
		terms []string
	}{
		{"short_latency", sets.ShortLatency},
		{"long_latency", sets.LongLatency},
		{"alternative_cause", sets.AlternativeCause},
		{"known_reaction", sets.KnownReaction},
		{"allergy_history", sets.AllergyHistory},
	} {
		terms := make([]string, 0, len(group.terms))
		for _, t := range group.terms {
			terms = append(terms, NormalizeText(strings.TrimSpace(t)))
		}
		sort.Strings(terms)
		h.Write([]byte(group.name))
		h.Write([]byte{0})
		h.Write([]byte(strings.Join(terms, "\x1f")))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
