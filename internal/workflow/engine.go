// Package workflow drives a document through the detection,
// classification, routing, anonymization, and verification stages as a
// bounded state machine.
package workflow

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/anonymize"
	"github.com/veilhq/veil/internal/audit"
	"github.com/veilhq/veil/internal/classify"
	"github.com/veilhq/veil/internal/detect"
	"github.com/veilhq/veil/internal/entity"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/route"
	"github.com/veilhq/veil/internal/strategy"
	"github.com/veilhq/veil/internal/verify"
)

// Engine wires the pipeline stages together. The audit store and
// notifier are optional; a nil value disables that side channel.
type Engine struct {
	detector   *detect.Detector
	classifier *classify.Classifier
	justifier  *strategy.Justifier
	anonymizer *anonymize.Anonymizer
	verifier   *verify.Verifier
	store      *audit.Store
	notifier   Notifier
	timeout    time.Duration
	logger     *logger.Logger
}

// New creates an engine over fully constructed stages.
func New(
	detector *detect.Detector,
	classifier *classify.Classifier,
	justifier *strategy.Justifier,
	anonymizer *anonymize.Anonymizer,
	verifier *verify.Verifier,
	timeout time.Duration,
	log *logger.Logger,
) *Engine {
	return &Engine{
		detector:   detector,
		classifier: classifier,
		justifier:  justifier,
		anonymizer: anonymizer,
		verifier:   verifier,
		timeout:    timeout,
		logger:     log.WithComponent("workflow"),
	}
}

// WithAuditStore attaches the relational audit store.
func (e *Engine) WithAuditStore(store *audit.Store) *Engine {
	e.store = store
	return e
}

// WithNotifier attaches a progress event sink.
func (e *Engine) WithNotifier(n Notifier) *Engine {
	e.notifier = n
	return e
}

// Process runs the full state machine over one document. It returns an
// error only on context expiry before completion; a document that fails
// the quality check after the retry budget still yields a Result with
// QualityPassed false.
func (e *Engine) Process(ctx context.Context, text string, opts Options) (*Result, error) {
	started := time.Now()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	textID := opts.TextID
	if textID == "" {
		textID = uuid.NewString()
	}
	sessionID := uuid.NewString()
	log := e.logger.WithTextID(textID).WithSessionID(sessionID)

	e.createSession(ctx, sessionID, textID)

	// Detection.
	e.notify(sessionID, textID, StageDetect, "scanning for sensitive entities")
	detected := e.detector.Detect(ctx, text)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("processing aborted during detection: %w", err)
	}
	log.Info("Detection complete", zap.Int("entities", len(detected)))

	if len(detected) == 0 {
		result := &Result{
			SessionID:         sessionID,
			TextID:            textID,
			OriginalText:      text,
			AnonymizedText:    text,
			Entities:          []entity.Classified{},
			Transformations:   []entity.Transformation{},
			Justifications:    []entity.Justification{},
			Path:              route.PathGDPR,
			PrimaryRegulation: entity.GDPR,
			Regulations:       []entity.Regulation{},
			QualityPassed:     true,
			TechniquesUsed:    []string{},
			ProcessingTime:    time.Since(started),
		}
		e.completeSession(ctx, sessionID, result)
		e.notify(sessionID, textID, StageComplete, "no sensitive entities found")
		return result, nil
	}

	// Classification.
	e.notify(sessionID, textID, StageClassify,
		fmt.Sprintf("classifying %d entities", len(detected)))
	classified := e.classifier.Classify(ctx, detected)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("processing aborted during classification: %w", err)
	}

	primary := classified.Primary
	if opts.ForcedRegulation != "" {
		primary = opts.ForcedRegulation
		log.Info("Primary regulation overridden",
			zap.String("regulation", string(primary)))
	}

	// Routing.
	path := route.Decide(classified.Flags)
	e.notify(sessionID, textID, StageRoute, string(path))
	log.Info("Routing decided",
		zap.String("path", string(path)),
		zap.String("primary_regulation", string(primary)))

	// Strategy selection and justification.
	e.notify(sessionID, textID, StageJustify, "selecting anonymization strategies")
	strategies, justifications := e.justifier.Justify(ctx, classified.Entities, primary)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("processing aborted during justification: %w", err)
	}

	// Anonymize/verify loop, bounded by the verifier's retry budget.
	retries := 0
	var anonymized string
	var transformations []entity.Transformation
	var outcome verify.Outcome
	for {
		e.notify(sessionID, textID, StageAnonymize,
			fmt.Sprintf("anonymization attempt %d", retries+1))
		anonymized, transformations = e.anonymizer.Run(text, classified.Entities, strategies)

		e.notify(sessionID, textID, StageVerify, "verifying anonymized output")
		outcome = e.verifier.Verify(ctx, anonymized, classified.Entities, transformations, retries)
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("processing aborted during verification: %w", err)
		}
		if !e.verifier.ShouldRetry(outcome, retries) {
			break
		}
		retries = outcome.RetryCount
		log.Warn("Quality check failed, retrying",
			zap.Int("retry", retries),
			zap.Strings("issues", outcome.Issues))
	}

	result := &Result{
		SessionID:         sessionID,
		TextID:            textID,
		OriginalText:      text,
		AnonymizedText:    anonymized,
		Entities:          classified.Entities,
		Transformations:   transformations,
		Justifications:    justifications,
		Path:              path,
		PrimaryRegulation: primary,
		Regulations:       flagList(classified.Flags),
		QualityPassed:     outcome.Passed,
		Issues:            outcome.Issues,
		RetryCount:        outcome.RetryCount,
		TechniquesUsed:    uniqueTechniques(transformations),
		ProcessingTime:    time.Since(started),
	}

	e.recordTransformations(ctx, textID, result)
	e.completeSession(ctx, sessionID, result)
	e.notify(sessionID, textID, StageComplete,
		fmt.Sprintf("processed %d entities, quality_passed=%t",
			len(result.Transformations), result.QualityPassed))

	log.Info("Processing complete",
		zap.Int("entities", len(result.Entities)),
		zap.Int("transformations", len(result.Transformations)),
		zap.Bool("quality_passed", result.QualityPassed),
		zap.Int("retry_count", result.RetryCount),
		zap.Duration("elapsed", result.ProcessingTime))

	return result, nil
}

func (e *Engine) notify(sessionID, textID, stage, message string) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(Event{
		SessionID: sessionID,
		TextID:    textID,
		Stage:     stage,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func (e *Engine) createSession(ctx context.Context, sessionID, textID string) {
	if e.store == nil {
		return
	}
	if err := e.store.CreateSession(ctx, sessionID, textID, ""); err != nil {
		e.logger.Warn("Failed to create audit session", zap.Error(err))
	}
}

func (e *Engine) completeSession(ctx context.Context, sessionID string, result *Result) {
	if e.store == nil {
		return
	}
	status := "completed"
	if !result.QualityPassed {
		status = "completed_with_issues"
	}
	err := e.store.CompleteSession(ctx, sessionID, status,
		string(result.PrimaryRegulation), len(result.Entities),
		result.AnonymizedCount(), result.QualityPassed)
	if err != nil {
		e.logger.Warn("Failed to complete audit session", zap.Error(err))
	}
}

func (e *Engine) recordTransformations(ctx context.Context, textID string, result *Result) {
	if e.store == nil {
		return
	}

	justificationByValue := make(map[string]entity.Justification, len(result.Justifications))
	for _, j := range result.Justifications {
		if _, seen := justificationByValue[j.Entity]; !seen {
			justificationByValue[j.Entity] = j
		}
	}
	classifiedByValue := make(map[string]entity.Classified, len(result.Entities))
	for _, c := range result.Entities {
		if _, seen := classifiedByValue[c.Value]; !seen {
			classifiedByValue[c.Value] = c
		}
	}

	for _, t := range result.Transformations {
		record := &audit.ProcessingLog{
			TextID:        textID,
			Entity:        t.Original,
			EntityType:    t.Type,
			Technique:     t.Technique,
			Anonymized:    sql.NullString{String: t.Anonymized, Valid: true},
			PositionStart: sql.NullInt64{Int64: int64(t.Position), Valid: true},
			PositionEnd:   sql.NullInt64{Int64: int64(t.Position + len(t.Original)), Valid: true},
		}
		if c, ok := classifiedByValue[t.Original]; ok {
			record.Sensitivity = sql.NullString{String: string(c.Sensitivity), Valid: true}
			record.Regulations = sql.NullString{String: joinRegulations(c.Regulations), Valid: true}
			record.Confidence = sql.NullFloat64{Float64: c.Confidence, Valid: true}
		}
		if j, ok := justificationByValue[t.Original]; ok {
			record.Justification = sql.NullString{String: j.Text, Valid: true}
		}
		if _, err := e.store.LogEntity(ctx, record); err != nil {
			e.logger.Warn("Failed to write processing log", zap.Error(err))
		}
	}
}

func joinRegulations(regulations []entity.Regulation) string {
	out := ""
	for i, reg := range regulations {
		if i > 0 {
			out += ", "
		}
		out += string(reg)
	}
	return out
}
