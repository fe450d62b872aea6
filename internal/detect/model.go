package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/entity"
	"github.com/veilhq/veil/internal/oracle"
)

// modelConfidence is assigned to every oracle extraction; the model has
// no calibrated per-span score.
const modelConfidence = 0.85

// typePriority ranks model-extracted types for overlap consolidation.
// Lower is more specific and wins.
var typePriority = map[string]int{
	"physician_name": 1,
	"patient_name":   1,
	"person_name":    2,
	"organization":   3,
	"job_title":      3,
	"address":        4,
}

const defaultPriority = 10

type modelEntity struct {
	Value   string `json:"value"`
	Type    string `json:"type"`
	Context string `json:"context"`
}

// modelExtraction asks the oracle for contextual entities and re-locates
// each extracted value in the source text. Values the oracle paraphrased
// out of existence are dropped.
func (d *Detector) modelExtraction(ctx context.Context, text string) ([]entity.Detected, error) {
	if d.oracle == nil {
		return nil, nil
	}

	content, err := d.oracle.Complete(ctx, oracle.Request{
		System:      oracle.ExtractionSystem,
		Prompt:      fmt.Sprintf(oracle.ExtractionPrompt, text),
		Temperature: 0.1,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, err
	}

	var raw []modelEntity
	if err := json.Unmarshal([]byte(oracle.StripCodeFence(content)), &raw); err != nil {
		return nil, fmt.Errorf("parsing extraction response: %w", err)
	}

	var found []entity.Detected
	for _, m := range raw {
		if m.Value == "" {
			continue
		}
		start, end := locate(text, m.Value)
		if start < 0 {
			d.logger.Debug("Dropping unlocatable extraction",
				zap.String("value", m.Value),
				zap.String("type", m.Type))
			continue
		}
		entityType := m.Type
		if entityType == "" {
			entityType = "unknown"
		}
		found = append(found, entity.Detected{
			Value:      m.Value,
			Type:       entityType,
			Start:      start,
			End:        end,
			Method:     entity.MethodModel,
			Confidence: modelConfidence,
		})
	}

	return Consolidate(found), nil
}

// locate finds value in text, exact match first, then case-insensitive.
// Returns (-1, -1) when absent.
func locate(text, value string) (int, int) {
	if start := strings.Index(text, value); start >= 0 {
		return start, start + len(value)
	}

	start := strings.Index(strings.ToLower(text), strings.ToLower(value))
	if start >= 0 {
		return start, start + len(value)
	}

	return -1, -1
}

// Consolidate removes self-overlaps among model extractions, keeping the
// most specific type (ties broken by larger span).
func Consolidate(entities []entity.Detected) []entity.Detected {
	if len(entities) == 0 {
		return nil
	}

	sorted := make([]entity.Detected, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		pi, pj := priorityOf(sorted[i].Type), priorityOf(sorted[j].Type)
		if pi != pj {
			return pi < pj
		}
		return sorted[i].Span() > sorted[j].Span()
	})

	var consolidated []entity.Detected
	lastEnd := -1

	for _, e := range sorted {
		switch {
		case e.Start >= lastEnd:
			consolidated = append(consolidated, e)
			lastEnd = e.End
		case e.End <= lastEnd:
			// Fully contained in the last kept span.
			continue
		default:
			if len(consolidated) == 0 {
				continue
			}
			last := consolidated[len(consolidated)-1]
			currentPriority, lastPriority := priorityOf(e.Type), priorityOf(last.Type)
			if currentPriority < lastPriority ||
				(currentPriority == lastPriority && e.Span() > last.Span()) {
				consolidated[len(consolidated)-1] = e
				lastEnd = e.End
			}
		}
	}

	return consolidated
}

func priorityOf(entityType string) int {
	if p, ok := typePriority[entityType]; ok {
		return p
	}
	return defaultPriority
}
