package verify

import (
	"regexp"
	"strings"

	"github.com/veilhq/veil/internal/entity"
)

// RuleContext gives false-positive rules access to the surrounding
// output text.
type RuleContext struct {
	AnonymizedText string
}

// FalsePositiveRule decides whether a re-scan hit is a known artifact of
// anonymization rather than a leak. The set is ordered and extensible;
// the built-ins are heuristics, not a complete classifier.
type FalsePositiveRule struct {
	Name  string
	Match func(hit entity.Detected, rc RuleContext) bool
}

var yearOnly = regexp.MustCompile(`^\d{4}$`)

// emailLookback is how far before an email hit the masking-marker rule
// searches for asterisks.
const emailLookback = 10

// DefaultFalsePositiveRules returns the built-in rule set.
// pseudonymPrefix is the label prefix the anonymizer was configured
// with ("Subject" by default).
func DefaultFalsePositiveRules(pseudonymPrefix string) []FalsePositiveRule {
	if pseudonymPrefix == "" {
		pseudonymPrefix = "Subject"
	}
	pseudonymMarker := pseudonymPrefix + "-"

	placeholders := map[string]bool{
		"[PATIENT]":       true,
		"[PHYSICIAN]":     true,
		"[REDACTED]":      true,
		"[EMAIL_REMOVED]": true,
	}

	return []FalsePositiveRule{
		{
			// A generalized date is reduced to a bare year; the date
			// patterns can still match it.
			Name: "generalized_date_year",
			Match: func(hit entity.Detected, _ RuleContext) bool {
				return (hit.Type == "date_dmy" || hit.Type == "date_ymd") &&
					yearOnly.MatchString(hit.Value)
			},
		},
		{
			Name: "token_or_pseudonym_marker",
			Match: func(hit entity.Detected, _ RuleContext) bool {
				return strings.HasPrefix(hit.Value, "TOKEN_") ||
					strings.HasPrefix(hit.Value, pseudonymMarker)
			},
		},
		{
			Name: "removal_placeholder",
			Match: func(hit entity.Detected, _ RuleContext) bool {
				return placeholders[hit.Value]
			},
		},
		{
			// A masked email like j***h@example.com re-matches the email
			// pattern starting after the asterisks.
			Name: "masked_email_remnant",
			Match: func(hit entity.Detected, rc RuleContext) bool {
				if hit.Type != "email" {
					return false
				}
				start := hit.Start - emailLookback
				if start < 0 {
					start = 0
				}
				return strings.Contains(rc.AnonymizedText[start:hit.Start], "*")
			},
		},
	}
}
