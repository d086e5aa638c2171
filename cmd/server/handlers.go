package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/liamcoop/ilrvalidation/catalogs"
	"github.com/liamcoop/ilrvalidation/external"
	"github.com/liamcoop/ilrvalidation/filecache"
	"github.com/liamcoop/ilrvalidation/internal/logger"
	"github.com/liamcoop/ilrvalidation/pipeline"
	"github.com/liamcoop/ilrvalidation/report"
	"github.com/liamcoop/ilrvalidation/rules"
	"github.com/liamcoop/ilrvalidation/ruleset"
	"github.com/liamcoop/ilrvalidation/worker"
)

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:     "healthy",
		Catalogs:   s.catalogs.Versions(),
		RuleFaults: logger.TotalRuleFaults.Load(),
		Server4xx:  logger.Total4xxErrors.Load(),
		Server5xx:  logger.Total5xxErrors.Load(),
	}
	if s.db != nil {
		resp.DatabaseCheck = true
		if err := s.db.PingContext(r.Context()); err != nil {
			resp.Status = "unhealthy"
			resp.Error = err.Error()
			respondJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// Submission validation handler. ?format=csv returns the report instead of JSON.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Message == nil {
		respondError(w, http.StatusBadRequest, "message is required", nil)
		return
	}
	if req.CatalogVersion == "" {
		req.CatalogVersion = s.cfg.Catalog.DefaultVersion
	}

	run := rules.NewRunContext(req.FileName, report.OutputPath(req.FileName))
	if id := r.Header.Get(worker.CorrelationHeader); id != "" {
		run.CorrelationID = id
	}

	startTime := time.Now()
	errs, err := s.pipeline.Validate(r.Context(), pipeline.Request{
		Run:            run,
		CatalogVersion: req.CatalogVersion,
		FileName:       req.FileName,
		Message:        req.Message,
	})
	if err != nil {
		respondError(w, statusFor(err), "validation failed", err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(run.OutputLocator)+`"`)
		w.Header().Set(worker.CorrelationHeader, run.CorrelationID)
		if err := report.Write(w, errs); err != nil {
			logger.Error(run.Attach(r.Context()), "failed to write report", "error", err)
		}
		return
	}

	resp := ValidateResponse{
		CorrelationID:  run.CorrelationID,
		CatalogVersion: req.CatalogVersion,
		Errors:         errs,
		ValidationTime: time.Since(startTime).String(),
	}
	if resp.Errors == nil {
		resp.Errors = []rules.ValidationError{}
	}
	for _, e := range errs {
		if e.Severity == rules.SeverityWarning {
			resp.WarningCount++
		} else {
			resp.ErrorCount++
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// Worker handler: validates one bundle sent by a coordinating instance
func (s *Server) handleWorkerValidate(w http.ResponseWriter, r *http.Request) {
	var bundle worker.Bundle
	if err := json.NewDecoder(r.Body).Decode(&bundle); err != nil {
		respondError(w, http.StatusBadRequest, "invalid bundle", err)
		return
	}

	ctx := r.Context()
	if id := r.Header.Get(worker.CorrelationHeader); id != "" {
		ctx = logger.WithCorrelationID(ctx, id)
	}

	errs, err := s.local.Validate(ctx, &bundle)
	if err != nil {
		respondError(w, statusFor(err), "validation failed", err)
		return
	}
	if errs == nil {
		errs = []rules.ValidationError{}
	}
	respondJSON(w, http.StatusOK, worker.Response{Errors: errs})
}

// List catalogs handler
func (s *Server) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	coded := len(ruleset.Names())
	list := []CatalogResponse{}
	for _, name := range s.catalogs.Versions() {
		v, err := s.catalogs.Version(name)
		if err != nil {
			continue
		}
		list = append(list, CatalogResponse{
			Version:         v.Name,
			CodedRules:      coded,
			ExpressionRules: len(v.Expressions),
			LoadedAt:        v.LoadedAt,
		})
	}
	respondJSON(w, http.StatusOK, CatalogsListResponse{Catalogs: list})
}

// Reload catalog handler
func (s *Server) handleReloadCatalog(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")

	if err := s.catalogs.Reload(version); err != nil {
		respondError(w, http.StatusBadRequest, "failed to reload catalog", err)
		return
	}

	v, err := s.catalogs.Version(version)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "catalog missing after reload", err)
		return
	}
	respondJSON(w, http.StatusOK, CatalogResponse{
		Version:         v.Name,
		CodedRules:      len(ruleset.Names()),
		ExpressionRules: len(v.Expressions),
		LoadedAt:        v.LoadedAt,
	})
}

// Create rule handler
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")
	if _, err := s.catalogs.Version(version); err != nil {
		respondError(w, http.StatusNotFound, "catalog not found", err)
		return
	}

	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Name == "" || req.Expression == "" {
		respondError(w, http.StatusBadRequest, "name and expression are required", nil)
		return
	}

	def := &rules.ExpressionDefinition{
		ID:             uuid.NewString(),
		CatalogVersion: version,
		Name:           req.Name,
		Scope:          req.Scope,
		Expression:     req.Expression,
		Parameters:     req.Parameters,
		Active:         req.Active == nil || *req.Active,
	}
	if status, err := s.checkDefinition(def); err != nil {
		respondError(w, status, "invalid rule", err)
		return
	}

	if err := s.store.Add(def); err != nil {
		if errors.Is(err, rules.ErrExpressionExists) {
			respondError(w, http.StatusConflict, "rule already exists", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to add rule", err)
		return
	}

	if err := s.catalogs.Reload(version); err != nil {
		if rbErr := s.store.Delete(def.ID); rbErr != nil {
			logger.Error(r.Context(), "failed to roll back rule creation",
				"rule_id", def.ID, "catalog_version", version, "error", rbErr)
		}
		respondError(w, http.StatusBadRequest, "failed to add rule", err)
		return
	}

	respondJSON(w, http.StatusCreated, toRuleResponse(def))
}

// List rules handler
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")

	v, err := s.catalogs.Version(version)
	if err != nil {
		respondError(w, http.StatusNotFound, "catalog not found", err)
		return
	}

	list := make([]RuleResponse, 0, len(v.Definitions))
	for _, def := range v.Definitions {
		list = append(list, toRuleResponse(def))
	}
	respondJSON(w, http.StatusOK, RulesListResponse{Rules: list})
}

// Get rule handler
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	def, ok := s.findRule(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toRuleResponse(def))
}

// Update rule handler
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	previous, ok := s.findRule(w, r)
	if !ok {
		return
	}

	var req UpdateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.Name != "" && req.Name != previous.Name {
		respondError(w, http.StatusBadRequest, "rule name cannot be changed", nil)
		return
	}

	updated := *previous
	if req.Scope != "" {
		updated.Scope = req.Scope
	}
	if req.Expression != "" {
		updated.Expression = req.Expression
	}
	if req.Parameters != nil {
		updated.Parameters = req.Parameters
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}
	if status, err := s.checkDefinition(&updated); err != nil {
		respondError(w, status, "invalid rule", err)
		return
	}

	if err := s.store.Update(&updated); err != nil {
		if errors.Is(err, rules.ErrExpressionExists) {
			respondError(w, http.StatusConflict, "rule already exists", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update rule", err)
		return
	}
	if err := s.catalogs.Reload(updated.CatalogVersion); err != nil {
		if rbErr := s.store.Update(previous); rbErr != nil {
			logger.Error(r.Context(), "failed to roll back rule update",
				"rule_id", previous.ID, "catalog_version", previous.CatalogVersion, "error", rbErr)
		}
		respondError(w, http.StatusBadRequest, "failed to update rule", err)
		return
	}

	respondJSON(w, http.StatusOK, toRuleResponse(&updated))
}

// Delete rule handler
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	def, ok := s.findRule(w, r)
	if !ok {
		return
	}

	if err := s.store.Delete(def.ID); err != nil {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}
	if err := s.catalogs.Reload(def.CatalogVersion); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to reload catalog", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// findRule loads the rule named in the path and checks it belongs to the path's version
func (s *Server) findRule(w http.ResponseWriter, r *http.Request) (*rules.ExpressionDefinition, bool) {
	version := chi.URLParam(r, "version")
	ruleID := chi.URLParam(r, "ruleId")

	def, err := s.store.Get(ruleID)
	if err != nil || def.CatalogVersion != version {
		if err == nil || errors.Is(err, rules.ErrExpressionNotFound) {
			respondError(w, http.StatusNotFound, "rule not found", err)
			return nil, false
		}
		respondError(w, http.StatusInternalServerError, "failed to get rule", err)
		return nil, false
	}
	return def, true
}

// checkDefinition rejects a definition that could never join its catalog
func (s *Server) checkDefinition(def *rules.ExpressionDefinition) (int, error) {
	if err := rules.ValidateRuleName(def.Name); err != nil {
		return http.StatusBadRequest, err
	}
	if slices.Contains(ruleset.Names(), def.Name) {
		return http.StatusConflict, errors.New("name " + def.Name + " belongs to a coded rule")
	}
	if _, err := s.compiler.Compile(def); err != nil {
		return http.StatusBadRequest, err
	}
	return 0, nil
}

// statusFor maps a validation failure to an HTTP status
func statusFor(err error) int {
	var retrieval *external.RetrievalError
	switch {
	case errors.Is(err, filecache.ErrNoMessage),
		errors.Is(err, filecache.ErrUKPRNMismatch),
		errors.Is(err, worker.ErrEmptyBundle),
		errors.Is(err, rules.ErrNilLearner):
		return http.StatusBadRequest
	case errors.Is(err, catalogs.ErrUnknownVersion):
		return http.StatusNotFound
	case errors.As(err, &retrieval):
		return http.StatusBadGateway
	case errors.Is(err, rules.ErrRunCancelled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	logger.HTTPStatus(status)
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.Logger.Error(message, "status", status, "error", err)
	}
	respondJSON(w, status, response)
}
