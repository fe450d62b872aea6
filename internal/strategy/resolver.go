// Package strategy resolves (entity type, regulation) pairs to
// anonymization strategies and generates the per-entity justification
// records.
package strategy

import "github.com/veilhq/veil/internal/entity"

// Resolve returns the anonymization strategy for an entity type under a
// regulation. It is pure and total: unmapped types get the regulation's
// default, and an unknown regulation falls back to GDPR.
func Resolve(entityType string, regulation entity.Regulation) entity.Strategy {
	var table map[string]entity.Strategy
	switch regulation {
	case entity.GDPR:
		table = gdprStrategies
	case entity.HIPAA:
		table = hipaaStrategies
	case entity.PCIDSS:
		table = pciStrategies
	default:
		table = gdprStrategies
		regulation = entity.GDPR
	}

	if s, ok := table[entityType]; ok {
		return s
	}
	return defaultStrategies[regulation]
}

// TableFor returns the full strategy table for a regulation. Used by
// reporting and the audit bootstrap.
func TableFor(regulation entity.Regulation) map[string]entity.Strategy {
	switch regulation {
	case entity.HIPAA:
		return hipaaStrategies
	case entity.PCIDSS:
		return pciStrategies
	default:
		return gdprStrategies
	}
}
