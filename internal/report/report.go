// Package report renders completed processing runs as a machine-readable
// JSON document and a human-readable Markdown summary.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/veilhq/veil/internal/entity"
	"github.com/veilhq/veil/internal/workflow"
)

// EntityReport is one entity's line in the JSON report.
type EntityReport struct {
	ValueDetected          string   `json:"value_detected"`
	EntityType             string   `json:"entity_type"`
	SensitivityLevel       string   `json:"sensitivity_level"`
	ApplicableRegulations  []string `json:"applicable_regulations"`
	JustificationCitations []string `json:"justification_citations"`
	ActionTaken            string   `json:"action_taken"`
	AnonymizedValue        string   `json:"anonymized_value"`
	Justification          string   `json:"justification"`
}

// TextReport is the JSON report for one document.
type TextReport struct {
	TextID         string         `json:"text_id"`
	Regulation     string         `json:"regulation"`
	OriginalText   string         `json:"original_text"`
	AnonymizedText string         `json:"anonymized_text"`
	Entities       []EntityReport `json:"entities"`
	Metadata       Metadata       `json:"metadata"`
}

// Metadata summarizes one document's run.
type Metadata struct {
	ProcessingTimeMs  int64    `json:"processing_time_ms"`
	EntitiesDetected  int      `json:"entities_detected"`
	TechniquesApplied []string `json:"techniques_applied"`
	QualityPassed     bool     `json:"quality_check_passed"`
	RetryCount        int      `json:"retry_count"`
}

// Document is the top-level JSON report shape.
type Document struct {
	Results []TextReport `json:"results"`
}

// BuildJSON assembles the JSON report document from completed runs.
func BuildJSON(results []*workflow.Result) Document {
	doc := Document{Results: make([]TextReport, 0, len(results))}
	for _, r := range results {
		doc.Results = append(doc.Results, buildTextReport(r))
	}
	return doc
}

func buildTextReport(r *workflow.Result) TextReport {
	justificationByValue := indexJustifications(r.Justifications)
	transformByValue := make(map[string]entity.Transformation, len(r.Transformations))
	for _, t := range r.Transformations {
		if _, seen := transformByValue[t.Original]; !seen {
			transformByValue[t.Original] = t
		}
	}

	entities := make([]EntityReport, 0, len(r.Entities))
	for _, e := range r.Entities {
		j := justificationByValue[e.Value]
		action := "unknown"
		anonymizedValue := e.Value
		if t, ok := transformByValue[e.Value]; ok {
			action = t.Technique
			anonymizedValue = t.Anonymized
		}
		regulations := make([]string, 0, len(e.Regulations))
		for _, reg := range e.Regulations {
			regulations = append(regulations, string(reg))
		}
		entities = append(entities, EntityReport{
			ValueDetected:          e.Value,
			EntityType:             e.Type,
			SensitivityLevel:       string(e.Sensitivity),
			ApplicableRegulations:  regulations,
			JustificationCitations: []string{j.Citation},
			ActionTaken:            action,
			AnonymizedValue:        anonymizedValue,
			Justification:          j.Text,
		})
	}

	return TextReport{
		TextID:         r.TextID,
		Regulation:     string(r.PrimaryRegulation),
		OriginalText:   r.OriginalText,
		AnonymizedText: r.AnonymizedText,
		Entities:       entities,
		Metadata: Metadata{
			ProcessingTimeMs:  r.ProcessingTime.Milliseconds(),
			EntitiesDetected:  len(r.Entities),
			TechniquesApplied: r.TechniquesUsed,
			QualityPassed:     r.QualityPassed,
			RetryCount:        r.RetryCount,
		},
	}
}

// BuildMarkdown renders completed runs as a Markdown report with
// before/after text and a per-entity transformation table.
func BuildMarkdown(results []*workflow.Result) string {
	var b strings.Builder
	b.WriteString("# Sensitive Data Classification & Anonymization Results\n")

	for _, r := range results {
		justificationByValue := indexJustifications(r.Justifications)

		fmt.Fprintf(&b, "\n## %s - %s\n\n", strings.ToUpper(r.TextID), r.PrimaryRegulation)

		b.WriteString("### Original Text\n\n")
		fmt.Fprintf(&b, "```\n%s\n```\n\n", r.OriginalText)

		b.WriteString("### Anonymized Text\n\n")
		fmt.Fprintf(&b, "```\n%s\n```\n\n", r.AnonymizedText)

		b.WriteString("### Transformations Applied\n\n")
		b.WriteString("| Entity | Type | Technique | Anonymized | Citation |\n")
		b.WriteString("|--------|------|-----------|------------|----------|\n")
		for _, t := range r.Transformations {
			citation := justificationByValue[t.Original].Citation
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				truncate(t.Original, 20), t.Type, t.Technique,
				truncate(t.Anonymized, 15), citation)
		}

		fmt.Fprintf(&b, "\n**Processing Time**: %dms\n", r.ProcessingTime.Milliseconds())
		fmt.Fprintf(&b, "**Entities Detected**: %d\n", len(r.Entities))
		fmt.Fprintf(&b, "**Quality Check Passed**: %t\n", r.QualityPassed)

		if len(r.Issues) > 0 {
			fmt.Fprintf(&b, "\n**Issues Found**: %s\n", strings.Join(r.Issues, ", "))
		}

		b.WriteString("\n---\n")
	}

	return b.String()
}

// Save writes results.json and results.md into outputDir and returns
// their paths.
func Save(results []*workflow.Result, outputDir string) (string, string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}

	jsonPath := filepath.Join(outputDir, "results.json")
	data, err := json.MarshalIndent(BuildJSON(results), "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", jsonPath, err)
	}

	mdPath := filepath.Join(outputDir, "results.md")
	if err := os.WriteFile(mdPath, []byte(BuildMarkdown(results)), 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write %s: %w", mdPath, err)
	}

	return jsonPath, mdPath, nil
}

func indexJustifications(justifications []entity.Justification) map[string]entity.Justification {
	byValue := make(map[string]entity.Justification, len(justifications))
	for _, j := range justifications {
		if _, seen := byValue[j.Entity]; !seen {
			byValue[j.Entity] = j
		}
	}
	return byValue
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
