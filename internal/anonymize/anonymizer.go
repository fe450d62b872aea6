// Package anonymize rewrites text by applying resolved strategies to
// classified spans. Overlaps are resolved first (largest span wins),
// then replacements are spliced back-to-front so earlier offsets stay
// valid throughout the rewrite.
package anonymize

import (
	"sort"

	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/entity"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/strategy"
)

// keptReason is logged for entities left in place by the keep technique.
const keptReason = "Clinical data, not a direct identifier"

// Anonymizer applies strategies to classified entities. One instance is
// safe for concurrent documents; the pseudonym table is created fresh
// per run.
type Anonymizer struct {
	pseudonymPrefix string
	logger          *logger.Logger
}

// New creates an anonymizer.
func New(pseudonymPrefix string, log *logger.Logger) *Anonymizer {
	return &Anonymizer{pseudonymPrefix: pseudonymPrefix, logger: log}
}

// FilterOverlaps drops overlapping spans, preferring the largest. Spans
// are swept left to right sorted by start ascending then length
// descending; a later span displaces a kept one only when strictly
// longer.
func FilterOverlaps(entities []entity.Classified) []entity.Classified {
	if len(entities) == 0 {
		return nil
	}

	sorted := make([]entity.Classified, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].Span() > sorted[j].Span()
	})

	var filtered []entity.Classified
	lastEnd := -1

	for _, e := range sorted {
		switch {
		case e.Start >= lastEnd:
			filtered = append(filtered, e)
			lastEnd = e.End
		case e.End <= lastEnd:
			continue
		default:
			if len(filtered) > 0 && e.Span() > filtered[len(filtered)-1].Span() {
				filtered[len(filtered)-1] = e
				lastEnd = e.End
			}
		}
	}

	return filtered
}

// Run rewrites text according to the per-value strategy map and returns
// the anonymized text plus the transformation log. Entities without a
// resolved strategy default to pseudonymization.
func (a *Anonymizer) Run(
	text string,
	entities []entity.Classified,
	strategies map[string]entity.Strategy,
) (string, []entity.Transformation) {
	pseudo := NewPseudonymizer(a.pseudonymPrefix)

	filtered := FilterOverlaps(entities)

	// Rewriting back-to-front keeps every remaining entity's offsets
	// valid as replacements of different length are spliced in.
	sorted := make([]entity.Classified, len(filtered))
	copy(sorted, filtered)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start > sorted[j].Start
	})

	anonymized := text
	log := make([]entity.Transformation, 0, len(sorted))

	for _, e := range sorted {
		technique := strategy.TechniquePseudonymization
		if s, ok := strategies[e.Value]; ok {
			technique = s.Technique
		}

		if technique == strategy.TechniqueKeep {
			log = append(log, entity.Transformation{
				Original:   e.Value,
				Anonymized: e.Value,
				Technique:  technique,
				Type:       e.Type,
				Position:   e.Start,
				KeptReason: keptReason,
			})
			continue
		}

		replacement := Apply(e.Value, e.Type, technique, pseudo)
		anonymized = anonymized[:e.Start] + replacement + anonymized[e.End:]

		log = append(log, entity.Transformation{
			Original:   e.Value,
			Anonymized: replacement,
			Technique:  technique,
			Type:       e.Type,
			Position:   e.Start,
		})
	}

	a.logger.Debug("Anonymization pass complete",
		zap.Int("entities_in", len(entities)),
		zap.Int("entities_applied", len(log)),
		zap.Int("dropped_overlaps", len(entities)-len(filtered)))

	return anonymized, log
}
