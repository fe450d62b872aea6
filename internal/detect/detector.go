package detect

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/entity"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/oracle"
)

// Detector finds candidate sensitive spans by combining a deterministic
// pattern pass with a generative-model extraction pass. The model pass
// is best-effort: when the oracle is unavailable the detector degrades
// to pattern-only results.
type Detector struct {
	rules   []Rule
	enabled map[string]bool
	oracle  oracle.Client
	logger  *logger.Logger
}

// New creates a detector. A nil oracle disables the contextual pass.
// detectors selects enabled rules by name; "all" enables everything.
func New(detectors []string, oc oracle.Client, log *logger.Logger) (*Detector, error) {
	d := &Detector{
		rules:   DefaultRules(),
		enabled: make(map[string]bool),
		oracle:  oc,
		logger:  log,
	}

	if err := d.configureRules(detectors); err != nil {
		return nil, fmt.Errorf("failed to configure detectors: %w", err)
	}

	log.Info("Entity detector initialized",
		zap.Int("total_rules", len(d.rules)),
		zap.Int("enabled_rules", d.countEnabledRules()),
		zap.Bool("model_pass", oc != nil),
	)

	return d, nil
}

func (d *Detector) configureRules(detectors []string) error {
	for _, rule := range d.rules {
		d.enabled[rule.Name] = false
	}

	for _, name := range detectors {
		if name == "all" {
			for _, rule := range d.rules {
				d.enabled[rule.Name] = true
			}
			continue
		}

		found := false
		for _, rule := range d.rules {
			if rule.Name == name {
				d.enabled[rule.Name] = true
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("unknown detector: %s", name)
		}
	}

	return nil
}

// Detect runs both passes over text and merges the results. Pattern
// detections win over model detections on any offset overlap.
func (d *Detector) Detect(ctx context.Context, text string) []entity.Detected {
	patternHits := d.PatternScan(text)

	modelHits, err := d.modelExtraction(ctx, text)
	if err != nil {
		// Non-fatal: the pipeline continues with deterministic results.
		d.logger.Warn("Model extraction failed, using pattern results only",
			zap.Error(err))
		modelHits = nil
	}

	merged := Merge(patternHits, modelHits)

	d.logger.Debug("Detection complete",
		zap.Int("pattern_hits", len(patternHits)),
		zap.Int("model_hits", len(modelHits)),
		zap.Int("merged", len(merged)))

	return merged
}

// PatternScan runs only the deterministic rules plus the contextual CVV
// pass. The quality verifier reuses it to re-scan anonymized output.
func (d *Detector) PatternScan(text string) []entity.Detected {
	var found []entity.Detected

	for _, rule := range d.rules {
		if !d.enabled[rule.Name] {
			continue
		}
		for _, loc := range rule.Pattern.FindAllStringIndex(text, -1) {
			if rule.Validate != nil && !rule.Validate(text, loc[0], loc[1]) {
				continue
			}
			found = append(found, entity.Detected{
				Value:      text[loc[0]:loc[1]],
				Type:       rule.Name,
				Start:      loc[0],
				End:        loc[1],
				Method:     entity.MethodPattern,
				Confidence: rule.Confidence,
			})
		}
	}

	found = append(found, detectCVVInContext(text)...)
	return found
}

// detectCVVInContext flags 3-4 digit groups only inside a fixed window
// after a security-code keyword. Keeps arbitrary short numbers out.
func detectCVVInContext(text string) []entity.Detected {
	var found []entity.Detected
	lower := strings.ToLower(text)

	for _, keyword := range cvvKeywords {
		keywordPos := strings.Index(lower, keyword)
		if keywordPos < 0 {
			continue
		}

		windowEnd := keywordPos + cvvWindow
		if windowEnd > len(text) {
			windowEnd = len(text)
		}
		region := text[keywordPos:windowEnd]

		for _, loc := range cvvPattern.FindAllStringIndex(region, -1) {
			start := keywordPos + loc[0]
			end := keywordPos + loc[1]
			found = append(found, entity.Detected{
				Value:      text[start:end],
				Type:       "cvv",
				Start:      start,
				End:        end,
				Method:     entity.MethodPattern,
				Confidence: 0.95,
			})
		}
	}

	return found
}

func (d *Detector) countEnabledRules() int {
	count := 0
	for _, enabled := range d.enabled {
		if enabled {
			count++
		}
	}
	return count
}

// EnabledRules returns the names of all active deterministic rules.
func (d *Detector) EnabledRules() []string {
	var names []string
	for _, rule := range d.rules {
		if d.enabled[rule.Name] {
			names = append(names, rule.Name)
		}
	}
	return names
}

// Merge combines the deterministic and model passes. Pattern entities
// are kept unconditionally; a model entity is dropped when it overlaps
// any pattern entity.
func Merge(patternHits, modelHits []entity.Detected) []entity.Detected {
	merged := make([]entity.Detected, 0, len(patternHits)+len(modelHits))
	merged = append(merged, patternHits...)

	for _, m := range modelHits {
		overlaps := false
		for _, p := range patternHits {
			if m.Overlaps(p) {
				overlaps = true
				break
			}
		}
		if !overlaps {
			merged = append(merged, m)
		}
	}

	return merged
}
