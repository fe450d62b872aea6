// Package verify re-checks anonymized output for residual sensitive
// data and drives the bounded anonymize/verify retry loop.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/entity"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/oracle"
)

// DefaultMaxRetries bounds the anonymize/verify loop; after this many
// retries the document is finalized regardless of outcome.
const DefaultMaxRetries = 2

// PatternScanner re-runs deterministic detection over the output text.
// Satisfied by *detect.Detector.
type PatternScanner interface {
	PatternScan(text string) []entity.Detected
}

// Outcome is the verifier's decision for one pass.
type Outcome struct {
	Passed     bool
	Issues     []string
	RetryCount int
}

// Verifier checks anonymized text for leaks.
type Verifier struct {
	scanner    PatternScanner
	oracle     oracle.Client
	rules      []FalsePositiveRule
	maxRetries int
	logger     *logger.Logger
}

// New creates a verifier with the default false-positive rule set. A
// nil oracle skips the holistic model review.
func New(scanner PatternScanner, oc oracle.Client, pseudonymPrefix string, maxRetries int, log *logger.Logger) *Verifier {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Verifier{
		scanner:    scanner,
		oracle:     oc,
		rules:      DefaultFalsePositiveRules(pseudonymPrefix),
		maxRetries: maxRetries,
		logger:     log,
	}
}

// WithRules replaces the false-positive rule set.
func (v *Verifier) WithRules(rules []FalsePositiveRule) *Verifier {
	v.rules = rules
	return v
}

// Verify runs the three leak checks. The oracle review only fires when
// the deterministic checks are clean, and its failure is silent: a
// missing advisory opinion is not a leak.
func (v *Verifier) Verify(
	ctx context.Context,
	anonymizedText string,
	originalEntities []entity.Classified,
	transformations []entity.Transformation,
	retryCount int,
) Outcome {
	var issues []string

	rc := RuleContext{AnonymizedText: anonymizedText}
	for _, hit := range v.scanner.PatternScan(anonymizedText) {
		if v.isFalsePositive(hit, rc) {
			continue
		}
		issues = append(issues, fmt.Sprintf("Leaked %s: %s", hit.Type, hit.Value))
	}

	kept := keptValues(transformations)
	for _, e := range originalEntities {
		if kept[e.Value] {
			continue
		}
		if strings.Contains(anonymizedText, e.Value) {
			issues = append(issues, fmt.Sprintf("Original value still present: %s", e.Value))
		}
	}

	if len(issues) == 0 {
		issues = append(issues, v.modelReview(ctx, anonymizedText)...)
	}

	passed := len(issues) == 0

	newRetryCount := retryCount
	if !passed && retryCount < v.maxRetries {
		newRetryCount = retryCount + 1
	}

	v.logger.Debug("Quality check complete",
		zap.Bool("passed", passed),
		zap.Int("issues", len(issues)),
		zap.Int("retry_count", newRetryCount))

	return Outcome{Passed: passed, Issues: issues, RetryCount: newRetryCount}
}

// ShouldRetry is the conditional edge of the state machine: retry while
// the check fails and retries remain.
func (v *Verifier) ShouldRetry(o Outcome, previousRetryCount int) bool {
	if o.Passed {
		return false
	}
	return previousRetryCount < v.maxRetries
}

func (v *Verifier) isFalsePositive(hit entity.Detected, rc RuleContext) bool {
	for _, rule := range v.rules {
		if rule.Match(hit, rc) {
			return true
		}
	}
	return false
}

func keptValues(transformations []entity.Transformation) map[string]bool {
	kept := make(map[string]bool)
	for _, t := range transformations {
		if t.Technique == "keep" {
			kept[t.Original] = true
		}
	}
	return kept
}

type reviewResponse struct {
	ContainsPII bool     `json:"contains_pii"`
	Issues      []string `json:"issues"`
	Confidence  float64  `json:"confidence"`
	Error       string   `json:"error"`
}

// modelReview asks the oracle for a holistic residual-PII opinion.
func (v *Verifier) modelReview(ctx context.Context, anonymizedText string) []string {
	if v.oracle == nil {
		return nil
	}

	content, err := v.oracle.Complete(ctx, oracle.Request{
		System:      oracle.ClassificationSystem,
		Prompt:      fmt.Sprintf(oracle.ReviewPrompt, anonymizedText),
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		v.logger.Warn("Model review unavailable", zap.Error(err))
		return nil
	}

	var parsed reviewResponse
	if err := json.Unmarshal([]byte(oracle.StripCodeFence(content)), &parsed); err != nil {
		v.logger.Warn("Unparseable model review response", zap.Error(err))
		return nil
	}
	if parsed.Error != "" {
		return nil
	}

	if parsed.ContainsPII {
		return parsed.Issues
	}
	return nil
}
