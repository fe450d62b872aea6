package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/audit"
	"github.com/veilhq/veil/internal/entity"
	"github.com/veilhq/veil/internal/workflow"
)

// AnonymizeRequest is the POST /v1/anonymize payload.
type AnonymizeRequest struct {
	Text       string `json:"text"`
	TextID     string `json:"text_id,omitempty"`
	Regulation string `json:"regulation,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":           "veil",
		"version":        "0.1.0",
		"detectors":      s.detector.EnabledRules(),
		"oracle_enabled": s.config.Oracle.Enabled,
		"audit_enabled":  s.config.Audit.Enabled,
		"max_retries":    s.config.Pipeline.MaxRetries,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"events": s.hub.GetStats(),
	}
	if s.store != nil {
		stats, err := s.store.GetStatistics(r.Context())
		if err != nil {
			s.logger.Error("Failed to load audit statistics", zap.Error(err))
			http.Error(w, "failed to load statistics", http.StatusInternalServerError)
			return
		}
		response["audit"] = stats
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleAnonymize(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithRequestID(getRequestID(r.Context()))

	r.Body = http.MaxBytesReader(w, r.Body, s.config.Server.MaxBodyBytes)
	var req AnonymizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text must not be empty", http.StatusBadRequest)
		return
	}

	opts := workflow.Options{TextID: req.TextID}
	if req.Regulation != "" {
		reg, ok := entity.ParseRegulation(req.Regulation)
		if !ok {
			http.Error(w, fmt.Sprintf("unknown regulation %q", req.Regulation), http.StatusBadRequest)
			return
		}
		opts.ForcedRegulation = reg
	}

	result, err := s.engine.Process(r.Context(), req.Text, opts)
	if err != nil {
		log.Error("Processing failed", zap.Error(err))
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

// RulePayload is the PUT /v1/rules payload.
type RulePayload struct {
	EntityType  string `json:"entity_type"`
	Regulation  string `json:"regulation"`
	Citation    string `json:"article_citation,omitempty"`
	Technique   string `json:"required_technique"`
	Sensitivity string `json:"sensitivity_level,omitempty"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleUpsertRule(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "audit store disabled", http.StatusServiceUnavailable)
		return
	}

	var payload RulePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if payload.EntityType == "" || payload.Technique == "" {
		http.Error(w, "entity_type and required_technique are required", http.StatusBadRequest)
		return
	}
	reg, ok := entity.ParseRegulation(payload.Regulation)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown regulation %q", payload.Regulation), http.StatusBadRequest)
		return
	}

	rule := &audit.RegulationRule{
		EntityType:  payload.EntityType,
		Regulation:  string(reg),
		Citation:    nullString(payload.Citation),
		Technique:   payload.Technique,
		Sensitivity: nullString(payload.Sensitivity),
		Description: nullString(payload.Description),
	}
	if err := s.store.UpsertRegulationRule(r.Context(), rule); err != nil {
		s.logger.Error("Failed to upsert regulation rule", zap.Error(err))
		http.Error(w, "failed to store rule", http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
}

func (s *Server) handleSessionLogs(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "audit store disabled", http.StatusServiceUnavailable)
		return
	}

	sessionID := mux.Vars(r)["id"]
	logs, err := s.store.GetSessionLogs(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("Failed to load session logs",
			zap.String("session_id", sessionID), zap.Error(err))
		http.Error(w, "failed to load session logs", http.StatusInternalServerError)
		return
	}
	if logs == nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"logs":       logs,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
