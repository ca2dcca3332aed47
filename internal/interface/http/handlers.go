// Package http implements the REST API for ClassLens.
package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/classlens/classlens/internal/application/command"
	"github.com/classlens/classlens/internal/application/query"
	"github.com/classlens/classlens/internal/domain/activity"
	"github.com/classlens/classlens/internal/domain/dimension"
	"github.com/classlens/classlens/internal/domain/shared"
	"github.com/classlens/classlens/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "ClassLens API",
		"version":     "v1",
		"description": "REST API for ClassLens - student clustering analytics",
		"endpoints": map[string]string{
			"health":         "/health",
			"clusters":       "/api/v1/clusters",
			"statistics":     "/api/v1/statistics",
			"dimensions":     "/api/v1/dimensions",
			"classification": "/api/v1/students/{id}/classification",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// handleMetrics handles the metrics endpoint.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics := map[string]interface{}{
		"uptime_seconds": s.Uptime().Seconds(),
		"running":        s.IsRunning(),
	}

	writeJSON(w, http.StatusOK, metrics)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLUSTER HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// clusterRequest is the request body for creating and updating clusters.
type clusterRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Ranges      []rangeRequest `json:"ranges"`
}

// rangeRequest is a single dimension constraint in a cluster request.
type rangeRequest struct {
	Dimension string   `json:"dimension"`
	Low       *float64 `json:"low,omitempty"`
	High      *float64 `json:"high,omitempty"`
}

// handleListClusters handles GET /api/v1/clusters
func (s *Server) handleListClusters(w http.ResponseWriter, r *http.Request) {
	if s.deps.ListClustersHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Cluster handler not configured")
		return
	}

	result, err := s.deps.ListClustersHandler.Handle(r.Context())
	if err != nil {
		s.logger.Error("failed to list clusters", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to list clusters")
		return
	}

	meta := &ResponseMeta{TotalCount: len(result)}
	writeJSONWithMeta(w, r, http.StatusOK, result, meta)
}

// handleGetCluster handles GET /api/v1/clusters/{id}
func (s *Server) handleGetCluster(w http.ResponseWriter, r *http.Request) {
	if s.deps.ListClustersHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Cluster handler not configured")
		return
	}

	result, err := s.deps.ListClustersHandler.GetCluster(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err, "failed to get cluster")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleCreateCluster handles POST /api/v1/clusters
func (s *Server) handleCreateCluster(w http.ResponseWriter, r *http.Request) {
	s.saveCluster(w, r, "")
}

// handleUpdateCluster handles PUT /api/v1/clusters/{id}
func (s *Server) handleUpdateCluster(w http.ResponseWriter, r *http.Request) {
	s.saveCluster(w, r, r.PathValue("id"))
}

// saveCluster is the shared implementation for create and update.
func (s *Server) saveCluster(w http.ResponseWriter, r *http.Request, clusterID string) {
	if s.deps.SaveClusterHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Cluster handler not configured")
		return
	}

	var req clusterRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	cmd := command.SaveClusterCommand{
		ID:            clusterID,
		Name:          req.Name,
		Description:   req.Description,
		CorrelationID: getRequestID(r.Context()),
	}
	for _, rr := range req.Ranges {
		key, err := dimension.ParseKey(rr.Dimension)
		if err != nil {
			writeJSONErrorWithDetails(w, http.StatusBadRequest, "invalid_request", "Invalid dimension key", rr.Dimension)
			return
		}
		cmd.Ranges = append(cmd.Ranges, command.RangeInput{Key: key, Low: rr.Low, High: rr.High})
	}

	result, err := s.deps.SaveClusterHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err, "failed to save cluster")
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, result)
}

// handleDeleteCluster handles DELETE /api/v1/clusters/{id}
func (s *Server) handleDeleteCluster(w http.ResponseWriter, r *http.Request) {
	if s.deps.DeleteClusterHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Cluster handler not configured")
		return
	}

	cmd := command.DeleteClusterCommand{
		ID:            r.PathValue("id"),
		CorrelationID: getRequestID(r.Context()),
	}

	if err := s.deps.DeleteClusterHandler.Handle(r.Context(), cmd); err != nil {
		s.writeDomainError(w, err, "failed to delete cluster")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "cluster_id": cmd.ID})
}

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// handleGetStatistics handles GET /api/v1/statistics
//
// The report comes from the cache when available; ?refresh=true forces a
// read from the primary store.
func (s *Server) handleGetStatistics(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetStatisticsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Statistics handler not configured")
		return
	}

	q := query.GetStatisticsQuery{
		BypassCache: getQueryParamBool(r, "refresh"),
	}

	report, err := s.deps.GetStatisticsHandler.Handle(r.Context(), q)
	if err != nil {
		s.logger.Error("failed to get statistics", logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to get statistics")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// ══════════════════════════════════════════════════════════════════════════════
// DIMENSION HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// handleListDimensions handles GET /api/v1/dimensions
func (s *Server) handleListDimensions(w http.ResponseWriter, r *http.Request) {
	if s.deps.ListDimensionsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Dimension handler not configured")
		return
	}

	q := query.ListDimensionsQuery{
		CourseID: getQueryParam(r, "course_id", s.config.DefaultCourseID),
	}

	result, err := s.deps.ListDimensionsHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err, "failed to list dimensions")
		return
	}

	meta := &ResponseMeta{TotalCount: len(result)}
	writeJSONWithMeta(w, r, http.StatusOK, result, meta)
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT CLASSIFICATION HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// handleGetStudentClassification handles GET /api/v1/students/{id}/classification
func (s *Server) handleGetStudentClassification(w http.ResponseWriter, r *http.Request) {
	if s.deps.GetStudentClassificationHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Classification handler not configured")
		return
	}

	q := query.GetStudentClassificationQuery{
		StudentID: r.PathValue("id"),
	}

	result, err := s.deps.GetStudentClassificationHandler.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, err, "failed to get classification")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// PIPELINE HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// runPipelineRequest is the request body for triggering a batch run.
type runPipelineRequest struct {
	CourseID string `json:"course_id,omitempty"`
}

// handleRunPipeline handles POST /api/v1/pipeline/run
//
// The batch runs synchronously; for large courses the caller should use
// the scheduled worker instead.
func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	if s.deps.RunPipelineHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Pipeline handler not configured")
		return
	}

	var req runPipelineRequest
	if r.ContentLength != 0 && !s.decodeBody(w, r, &req) {
		return
	}
	if req.CourseID == "" {
		req.CourseID = s.config.DefaultCourseID
	}

	cmd := command.RunPipelineCommand{
		CourseID:      req.CourseID,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.RunPipelineHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, err, "pipeline run failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// SHARED HANDLER HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// decodeBody decodes the JSON request body into dest. On failure it writes
// a 400 response and returns false.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		s.logger.Error("failed to read request body", logger.Err(err))
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return false
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, dest); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return false
	}
	return true
}

// writeDomainError maps domain errors to HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, shared.ErrPipelineRunning):
		writeJSONError(w, http.StatusConflict, "pipeline_running", err.Error())
	case errors.Is(err, shared.ErrInvalidID),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrEmptyValue),
		errors.Is(err, shared.ErrValueOutOfRange),
		errors.Is(err, shared.ErrInvalidState),
		errors.Is(err, activity.ErrInvalidStudentID):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		s.logger.Error(logMsg, logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "An internal error occurred")
	}
}
