// Package audit persists processing logs, session records, and static
// regulation rules in PostgreSQL. The pipeline writes to it but never
// depends on it for an in-run decision; a nil *Store is a valid no-op
// collaborator.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/config"
)

// Store is the relational audit store.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewStore connects to PostgreSQL and ensures the audit schema.
func NewStore(cfg config.AuditConfig, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &Store{db: db, logger: logger}
	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audit store: %w", err)
	}

	logger.Info("Audit store initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)))

	return store, nil
}

func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("audit database ping failed: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS processing_logs (
		id BIGSERIAL PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
		text_id TEXT NOT NULL,
		detected_entity TEXT NOT NULL,
		entity_type TEXT NOT NULL,
		sensitivity_level TEXT,
		applicable_regulations TEXT,
		applied_technique TEXT NOT NULL,
		justification TEXT,
		confidence_score DOUBLE PRECISION,
		anonymized_value TEXT,
		position_start INTEGER,
		position_end INTEGER
	);
	CREATE INDEX IF NOT EXISTS processing_logs_text_id_idx ON processing_logs (text_id);
	CREATE INDEX IF NOT EXISTS processing_logs_entity_type_idx ON processing_logs (entity_type);

	CREATE TABLE IF NOT EXISTS processing_sessions (
		session_id TEXT PRIMARY KEY,
		text_id TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		completed_at TIMESTAMPTZ,
		status TEXT NOT NULL DEFAULT 'in_progress',
		total_entities_detected INTEGER NOT NULL DEFAULT 0,
		total_entities_anonymized INTEGER NOT NULL DEFAULT 0,
		primary_regulation TEXT,
		quality_check_passed BOOLEAN
	);

	CREATE TABLE IF NOT EXISTS regulation_rules (
		id BIGSERIAL PRIMARY KEY,
		entity_type TEXT NOT NULL,
		regulation TEXT NOT NULL,
		article_citation TEXT,
		required_technique TEXT NOT NULL,
		sensitivity_level TEXT,
		description TEXT,
		is_active BOOLEAN NOT NULL DEFAULT true,
		UNIQUE (entity_type, regulation)
	);`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	return nil
}

// LogEntity appends one processing-log record.
func (s *Store) LogEntity(ctx context.Context, log *ProcessingLog) (int64, error) {
	query := `
		INSERT INTO processing_logs
			(text_id, detected_entity, entity_type, sensitivity_level,
			 applicable_regulations, applied_technique, justification,
			 confidence_score, anonymized_value, position_start, position_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		log.TextID, log.Entity, log.EntityType, log.Sensitivity,
		log.Regulations, log.Technique, log.Justification,
		log.Confidence, log.Anonymized, log.PositionStart, log.PositionEnd,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert processing log: %w", err)
	}
	return id, nil
}

// CreateSession opens a session record for a document run.
func (s *Store) CreateSession(ctx context.Context, sessionID, textID, primaryRegulation string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processing_sessions (session_id, text_id, primary_regulation)
		VALUES ($1, $2, NULLIF($3, ''))`,
		sessionID, textID, primaryRegulation)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// CompleteSession finalizes a session record with run totals.
func (s *Store) CompleteSession(ctx context.Context, sessionID, status, primaryRegulation string, detected, anonymized int, qualityPassed bool) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE processing_sessions
		SET completed_at = now(),
		    status = $2,
		    primary_regulation = NULLIF($3, ''),
		    total_entities_detected = $4,
		    total_entities_anonymized = $5,
		    quality_check_passed = $6
		WHERE session_id = $1`,
		sessionID, status, primaryRegulation, detected, anonymized, qualityPassed)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	return nil
}

// GetRegulationRule looks up the active rule for an entity type under a
// regulation. Returns nil when no rule exists.
func (s *Store) GetRegulationRule(ctx context.Context, entityType, regulation string) (*RegulationRule, error) {
	var rule RegulationRule
	err := s.db.GetContext(ctx, &rule, `
		SELECT * FROM regulation_rules
		WHERE entity_type = $1 AND regulation = $2 AND is_active = true`,
		entityType, regulation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up regulation rule: %w", err)
	}
	return &rule, nil
}

// UpsertRegulationRule adds or replaces a rule.
func (s *Store) UpsertRegulationRule(ctx context.Context, rule *RegulationRule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO regulation_rules
			(entity_type, regulation, article_citation, required_technique,
			 sensitivity_level, description, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, true)
		ON CONFLICT (entity_type, regulation) DO UPDATE SET
			article_citation = EXCLUDED.article_citation,
			required_technique = EXCLUDED.required_technique,
			sensitivity_level = EXCLUDED.sensitivity_level,
			description = EXCLUDED.description,
			is_active = true`,
		rule.EntityType, rule.Regulation, rule.Citation, rule.Technique,
		rule.Sensitivity, rule.Description)
	if err != nil {
		return fmt.Errorf("failed to upsert regulation rule: %w", err)
	}
	return nil
}

// GetSessionLogs returns all log records for a session's document in
// insertion order.
func (s *Store) GetSessionLogs(ctx context.Context, sessionID string) ([]ProcessingLog, error) {
	var textID string
	err := s.db.GetContext(ctx, &textID,
		"SELECT text_id FROM processing_sessions WHERE session_id = $1", sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	var logs []ProcessingLog
	err = s.db.SelectContext(ctx, &logs, `
		SELECT * FROM processing_logs
		WHERE text_id = $1
		ORDER BY timestamp ASC, id ASC`, textID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session logs: %w", err)
	}
	return logs, nil
}

// GetStatistics aggregates the processing log and session outcomes.
func (s *Store) GetStatistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		PerTechnique:  make(map[string]int64),
		PerEntityType: make(map[string]int64),
	}

	if err := s.db.GetContext(ctx, &stats.TotalLogs,
		"SELECT COUNT(*) FROM processing_logs"); err != nil {
		return nil, fmt.Errorf("failed to count logs: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.TotalSessions,
		"SELECT COUNT(*) FROM processing_sessions"); err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	if err := s.db.GetContext(ctx, &stats.PassedSessions,
		"SELECT COUNT(*) FROM processing_sessions WHERE quality_check_passed = true"); err != nil {
		return nil, fmt.Errorf("failed to count passed sessions: %w", err)
	}

	type bucket struct {
		Key   string `db:"key"`
		Count int64  `db:"count"`
	}

	var techniques []bucket
	if err := s.db.SelectContext(ctx, &techniques, `
		SELECT applied_technique AS key, COUNT(*) AS count
		FROM processing_logs GROUP BY applied_technique`); err != nil {
		return nil, fmt.Errorf("failed to aggregate techniques: %w", err)
	}
	for _, b := range techniques {
		stats.PerTechnique[b.Key] = b.Count
	}

	var types []bucket
	if err := s.db.SelectContext(ctx, &types, `
		SELECT entity_type AS key, COUNT(*) AS count
		FROM processing_logs GROUP BY entity_type`); err != nil {
		return nil, fmt.Errorf("failed to aggregate entity types: %w", err)
	}
	for _, b := range types {
		stats.PerEntityType[b.Key] = b.Count
	}

	return stats, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func maskDatabaseURL(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "<invalid-url>"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	return u.String()
}
