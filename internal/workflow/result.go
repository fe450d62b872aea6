package workflow

import (
	"sort"
	"time"

	"github.com/veilhq/veil/internal/entity"
	"github.com/veilhq/veil/internal/route"
)

// Stage names emitted as progress events while a document moves through
// the state machine.
const (
	StageDetect    = "detect"
	StageClassify  = "classify"
	StageRoute     = "route"
	StageJustify   = "justify"
	StageAnonymize = "anonymize"
	StageVerify    = "verify"
	StageComplete  = "complete"
)

// Event is one progress notification for a processing run.
type Event struct {
	SessionID string    `json:"session_id"`
	TextID    string    `json:"text_id"`
	Stage     string    `json:"stage"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier receives progress events. Implementations must not block.
type Notifier interface {
	Notify(event Event)
}

// Options controls a single processing run.
type Options struct {
	// TextID identifies the document in logs and audit records. A
	// fresh identifier is generated when empty.
	TextID string

	// ForcedRegulation overrides the derived primary regulation when
	// non-empty. Classification flags are still computed and reported.
	ForcedRegulation entity.Regulation
}

// Result is the artifact of one completed run.
type Result struct {
	SessionID         string                  `json:"session_id"`
	TextID            string                  `json:"text_id"`
	OriginalText      string                  `json:"-"`
	AnonymizedText    string                  `json:"anonymized_text"`
	Entities          []entity.Classified     `json:"entities"`
	Transformations   []entity.Transformation `json:"transformations"`
	Justifications    []entity.Justification  `json:"justifications"`
	Path              route.Path              `json:"routing_path"`
	PrimaryRegulation entity.Regulation       `json:"primary_regulation"`
	Regulations       []entity.Regulation     `json:"applicable_regulations"`
	QualityPassed     bool                    `json:"quality_check_passed"`
	Issues            []string                `json:"issues,omitempty"`
	RetryCount        int                     `json:"retry_count"`
	TechniquesUsed    []string                `json:"techniques_used"`
	ProcessingTime    time.Duration           `json:"processing_time_ns"`
}

// AnonymizedCount is the number of entities actually rewritten,
// excluding entries the keep technique left in place.
func (r *Result) AnonymizedCount() int {
	n := 0
	for _, t := range r.Transformations {
		if t.KeptReason == "" {
			n++
		}
	}
	return n
}

func uniqueTechniques(transformations []entity.Transformation) []string {
	seen := make(map[string]bool, len(transformations))
	for _, t := range transformations {
		seen[t.Technique] = true
	}
	techniques := make([]string, 0, len(seen))
	for technique := range seen {
		techniques = append(techniques, technique)
	}
	sort.Strings(techniques)
	return techniques
}

func flagList(flags map[entity.Regulation]bool) []entity.Regulation {
	regulations := make([]entity.Regulation, 0, len(flags))
	for _, reg := range entity.Regulations() {
		if flags[reg] {
			regulations = append(regulations, reg)
		}
	}
	return regulations
}
