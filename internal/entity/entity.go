package entity

import "strings"

// DetectionMethod records how an entity was found.
type DetectionMethod string

const (
	MethodPattern DetectionMethod = "pattern"
	MethodModel   DetectionMethod = "model"
)

// SensitivityLevel classifies how damaging a leak of the entity would be.
type SensitivityLevel string

const (
	SensitivityLow      SensitivityLevel = "low"
	SensitivityMedium   SensitivityLevel = "medium"
	SensitivityHigh     SensitivityLevel = "high"
	SensitivityCritical SensitivityLevel = "critical"
)

// ParseSensitivity maps a free-form level string to a SensitivityLevel,
// defaulting to HIGH for anything unrecognized.
func ParseSensitivity(s string) SensitivityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SensitivityLow
	case "medium":
		return SensitivityMedium
	case "high":
		return SensitivityHigh
	case "critical":
		return SensitivityCritical
	default:
		return SensitivityHigh
	}
}

// Regulation is a closed enum of supported data protection regimes.
type Regulation string

const (
	GDPR   Regulation = "GDPR"
	HIPAA  Regulation = "HIPAA"
	PCIDSS Regulation = "PCI DSS"
)

// Regulations returns all supported regulations.
func Regulations() []Regulation {
	return []Regulation{GDPR, HIPAA, PCIDSS}
}

// ParseRegulation maps a free-form regulation name onto the enum. The
// oracle is loose with naming ("PCI-DSS", "PCI DSS Req 3"), so matching
// is by substring.
func ParseRegulation(s string) (Regulation, bool) {
	upper := strings.ToUpper(s)
	switch {
	case strings.Contains(upper, "GDPR"):
		return GDPR, true
	case strings.Contains(upper, "HIPAA"):
		return HIPAA, true
	case strings.Contains(upper, "PCI"):
		return PCIDSS, true
	}
	return "", false
}

// Detected is an entity found in the source text. Offsets are half-open
// rune-agnostic byte offsets: Text[Start:End] == Value.
type Detected struct {
	Value      string          `json:"value"`
	Type       string          `json:"entity_type"`
	Start      int             `json:"start"`
	End        int             `json:"end"`
	Method     DetectionMethod `json:"detection_method"`
	Confidence float64         `json:"confidence"`
}

// Span returns the length of the detected span.
func (d Detected) Span() int { return d.End - d.Start }

// Overlaps reports whether two detections occupy intersecting offset
// ranges.
func (d Detected) Overlaps(o Detected) bool {
	return d.Start < o.End && o.Start < d.End
}

// Classified is a detected entity with sensitivity and regulation
// assignments attached. Offsets are carried forward unchanged from the
// source detection.
type Classified struct {
	Value       string           `json:"value_detected"`
	Type        string           `json:"entity_type"`
	Sensitivity SensitivityLevel `json:"sensitivity_level"`
	Regulations []Regulation     `json:"applicable_regulations"`
	Citations   []string         `json:"justification_citations"`
	Confidence  float64          `json:"confidence"`
	Start       int              `json:"start"`
	End         int              `json:"end"`
}

// Span returns the length of the classified span.
func (c Classified) Span() int { return c.End - c.Start }

// Overlaps reports whether two classified spans intersect.
func (c Classified) Overlaps(o Classified) bool {
	return c.Start < o.End && o.Start < c.End
}

// HasRegulation reports whether reg is among the applicable regulations.
func (c Classified) HasRegulation(reg Regulation) bool {
	for _, r := range c.Regulations {
		if r == reg {
			return true
		}
	}
	return false
}

// Strategy describes how one entity value is anonymized and why.
type Strategy struct {
	Technique     string `json:"technique"`
	Article       string `json:"regulation_article"`
	Justification string `json:"justification"`
}

// Transformation is one entry in the anonymizer's audit trail.
type Transformation struct {
	Original   string `json:"original"`
	Anonymized string `json:"anonymized"`
	Technique  string `json:"technique"`
	Type       string `json:"entity_type"`
	Position   int    `json:"position"`
	KeptReason string `json:"kept_reason,omitempty"`
}

// Justification is the per-entity compliance record produced for the
// final report.
type Justification struct {
	Entity     string     `json:"entity"`
	Type       string     `json:"entity_type"`
	Technique  string     `json:"technique"`
	Regulation Regulation `json:"regulation"`
	Citation   string     `json:"citation"`
	Text       string     `json:"justification"`
}
