package audit

import (
	"database/sql"
	"time"
)

// ProcessingLog is one append-only record of an entity transformation.
type ProcessingLog struct {
	ID            int64           `db:"id" json:"id"`
	Timestamp     time.Time       `db:"timestamp" json:"timestamp"`
	TextID        string          `db:"text_id" json:"text_id"`
	Entity        string          `db:"detected_entity" json:"detected_entity"`
	EntityType    string          `db:"entity_type" json:"entity_type"`
	Sensitivity   sql.NullString  `db:"sensitivity_level" json:"sensitivity_level"`
	Regulations   sql.NullString  `db:"applicable_regulations" json:"applicable_regulations"`
	Technique     string          `db:"applied_technique" json:"applied_technique"`
	Justification sql.NullString  `db:"justification" json:"justification"`
	Confidence    sql.NullFloat64 `db:"confidence_score" json:"confidence_score"`
	Anonymized    sql.NullString  `db:"anonymized_value" json:"anonymized_value"`
	PositionStart sql.NullInt64   `db:"position_start" json:"position_start"`
	PositionEnd   sql.NullInt64   `db:"position_end" json:"position_end"`
}

// Session tracks one document's processing run.
type Session struct {
	SessionID         string         `db:"session_id" json:"session_id"`
	TextID            string         `db:"text_id" json:"text_id"`
	StartedAt         time.Time      `db:"started_at" json:"started_at"`
	CompletedAt       sql.NullTime   `db:"completed_at" json:"completed_at"`
	Status            string         `db:"status" json:"status"`
	EntitiesDetected  int            `db:"total_entities_detected" json:"total_entities_detected"`
	EntitiesAnonymous int            `db:"total_entities_anonymized" json:"total_entities_anonymized"`
	PrimaryRegulation sql.NullString `db:"primary_regulation" json:"primary_regulation"`
	QualityPassed     sql.NullBool   `db:"quality_check_passed" json:"quality_check_passed"`
}

// RegulationRule is a static compliance rule row, looked up by
// (entity_type, regulation).
type RegulationRule struct {
	ID          int64          `db:"id" json:"id"`
	EntityType  string         `db:"entity_type" json:"entity_type"`
	Regulation  string         `db:"regulation" json:"regulation"`
	Citation    sql.NullString `db:"article_citation" json:"article_citation"`
	Technique   string         `db:"required_technique" json:"required_technique"`
	Sensitivity sql.NullString `db:"sensitivity_level" json:"sensitivity_level"`
	Description sql.NullString `db:"description" json:"description"`
	IsActive    bool           `db:"is_active" json:"is_active"`
}

// Statistics aggregates the processing log.
type Statistics struct {
	TotalLogs      int64            `json:"total_logs"`
	TotalSessions  int64            `json:"total_sessions"`
	PassedSessions int64            `json:"passed_sessions"`
	PerTechnique   map[string]int64 `json:"per_technique"`
	PerEntityType  map[string]int64 `json:"per_entity_type"`
}
