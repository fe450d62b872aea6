package classify

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/entity"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/oracle"
)

// Classifier assigns sensitivity levels and regulation sets to detected
// entities. Known types resolve through the static table; unknown types
// go to the oracle with a conservative fallback.
type Classifier struct {
	oracle oracle.Client
	logger *logger.Logger
}

// Result is the output of one classification run.
type Result struct {
	Entities []entity.Classified
	Flags    map[entity.Regulation]bool
	Types    map[string]bool
	Primary  entity.Regulation
}

// New creates a classifier. A nil oracle makes every unknown type fall
// back to the conservative default.
func New(oc oracle.Client, log *logger.Logger) *Classifier {
	return &Classifier{oracle: oc, logger: log}
}

// Classify maps each detection to a classified entity and derives the
// document's primary regulation. Span offsets pass through unchanged.
func (c *Classifier) Classify(ctx context.Context, detected []entity.Detected) Result {
	result := Result{
		Flags: make(map[entity.Regulation]bool),
		Types: make(map[string]bool),
	}

	for _, d := range detected {
		result.Types[d.Type] = true

		var classified entity.Classified
		if quick, ok := quickClassification[d.Type]; ok {
			classified = entity.Classified{
				Value:       d.Value,
				Type:        d.Type,
				Sensitivity: quick.Sensitivity,
				Regulations: quick.Regulations,
				Citations:   []string{},
				Confidence:  d.Confidence,
				Start:       d.Start,
				End:         d.End,
			}
		} else {
			classified = c.classifyWithOracle(ctx, d)
		}

		result.Entities = append(result.Entities, classified)
		for _, reg := range classified.Regulations {
			result.Flags[reg] = true
		}
	}

	result.Primary = PrimaryRegulation(result.Flags, result.Types)
	return result
}

type oracleClassification struct {
	EntityTypeRefined     string   `json:"entity_type_refined"`
	SensitivityLevel      string   `json:"sensitivity_level"`
	ApplicableRegulations []string `json:"applicable_regulations"`
	Justification         string   `json:"justification"`
}

// classifyWithOracle handles entity types outside the static table. Any
// failure yields the conservative default: HIGH sensitivity under GDPR.
func (c *Classifier) classifyWithOracle(ctx context.Context, d entity.Detected) entity.Classified {
	fallback := entity.Classified{
		Value:       d.Value,
		Type:        d.Type,
		Sensitivity: entity.SensitivityHigh,
		Regulations: []entity.Regulation{entity.GDPR},
		Citations:   []string{},
		Confidence:  0.5,
		Start:       d.Start,
		End:         d.End,
	}

	if c.oracle == nil {
		return fallback
	}

	prompt := fmt.Sprintf(oracle.ClassificationPrompt,
		d.Value, d.Type, "GDPR, HIPAA, PCI DSS general context")

	content, err := c.oracle.Complete(ctx, oracle.Request{
		System:      oracle.ClassificationSystem,
		Prompt:      prompt,
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		c.logger.Warn("Oracle classification failed, using conservative default",
			zap.String("entity_type", d.Type),
			zap.Error(err))
		return fallback
	}

	var parsed oracleClassification
	if err := json.Unmarshal([]byte(oracle.StripCodeFence(content)), &parsed); err != nil {
		c.logger.Warn("Unparseable classification response, using conservative default",
			zap.String("entity_type", d.Type),
			zap.Error(err))
		return fallback
	}

	var regs []entity.Regulation
	for _, name := range parsed.ApplicableRegulations {
		if reg, ok := entity.ParseRegulation(name); ok {
			regs = append(regs, reg)
		}
	}
	if len(regs) == 0 {
		regs = []entity.Regulation{entity.GDPR}
	}

	entityType := parsed.EntityTypeRefined
	if entityType == "" {
		entityType = d.Type
	}

	var citations []string
	if parsed.Justification != "" {
		citations = append(citations, parsed.Justification)
	}

	return entity.Classified{
		Value:       d.Value,
		Type:        entityType,
		Sensitivity: entity.ParseSensitivity(parsed.SensitivityLevel),
		Regulations: regs,
		Citations:   citations,
		Confidence:  0.85,
		Start:       d.Start,
		End:         d.End,
	}
}

// PrimaryRegulation picks the single regime that governs strategy
// selection. A regulation flag alone is not enough: a characteristic
// entity type of that regime must actually have been observed.
func PrimaryRegulation(flags map[entity.Regulation]bool, types map[string]bool) entity.Regulation {
	if flags[entity.PCIDSS] && intersects(pciCoreTypes, types) {
		return entity.PCIDSS
	}

	if flags[entity.HIPAA] && intersects(hipaaSpecificTypes, types) {
		return entity.HIPAA
	}

	return entity.GDPR
}

func intersects(want map[string]bool, have map[string]bool) bool {
	for t := range have {
		if want[t] {
			return true
		}
	}
	return false
}
