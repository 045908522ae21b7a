package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/adr-causality-server/internal/domain"
)

// LoadKeywordSets reads keyword vocabularies from a YAML file. Sets omitted
// from the file keep their built-in defaults; an empty path returns the defaults.
//
//	short_latency: [phút, giờ, ngày]
//	known_reaction: [ngứa, phát ban, mày đay]
func LoadKeywordSets(path string) (domain.KeywordSets, error) {
	sets := domain.DefaultKeywordSets()
	if path == "" {
		return sets, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.KeywordSets{}, fmt.Errorf("failed to read keywords file %s: %w", path, err)
	}

	var fromFile domain.KeywordSets
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return domain.KeywordSets{}, fmt.Errorf("failed to parse keywords file %s: %w", path, err)
	}

	if fromFile.ShortLatency != nil {
		sets.ShortLatency = fromFile.ShortLatency
	}
	if fromFile.LongLatency != nil {
		sets.LongLatency = fromFile.LongLatency
	}
	if fromFile.AlternativeCause != nil {
		sets.AlternativeCause = fromFile.AlternativeCause
	}
	if fromFile.KnownReaction != nil {
		sets.KnownReaction = fromFile.KnownReaction
	}
	if fromFile.AllergyHistory != nil {
		sets.AllergyHistory = fromFile.AllergyHistory
	}

	if err := sets.Validate(); err != nil {
		return domain.KeywordSets{}, fmt.Errorf("keywords file %s: %w", path, err)
	}
	return sets, nil
}
