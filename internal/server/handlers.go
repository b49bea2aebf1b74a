package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/torikomi/internal/ingest"
	"github.com/hyperjump/torikomi/internal/resolver"
)

type ingestRequest struct {
	Documents []string `json:"documents"`
}

type ingestFolderRequest struct {
	Path string `json:"path"`
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type askRequest struct {
	Question string `json:"question"`
}

type ingestResponse struct {
	Total     int      `json:"total"`
	Ingested  int      `json:"ingested"`
	Chunks    int      `json:"chunks"`
	Truncated int      `json:"truncated,omitempty"`
	Failures  []string `json:"failures,omitempty"`
}

func ingestResponseFrom(report *ingest.Report) ingestResponse {
	resp := ingestResponse{
		Total:     report.Total,
		Ingested:  report.Ingested,
		Chunks:    report.Chunks,
		Truncated: report.Truncated,
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, f.Error())
	}
	return resp
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Documents) == 0 {
		s.respondError(w, http.StatusBadRequest, "documents is required")
		return
	}
	s.logger.Debug("ingest request", zap.Int("documents", len(req.Documents)))
	report, err := s.orchestrator.IngestDocuments(r.Context(), req.Documents)
	if err != nil {
		if errors.Is(err, resolver.ErrNoResolver) {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("ingestion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, ingestResponseFrom(report))
}

func (s *Server) handleIngestFolder(w http.ResponseWriter, r *http.Request) {
	var req ingestFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	s.logger.Debug("ingest folder request", zap.String("path", req.Path))
	report, err := s.orchestrator.IngestFolder(r.Context(), req.Path)
	if err != nil {
		if errors.Is(err, ingest.ErrFolderNotFound) {
			s.respondError(w, http.StatusNotFound, err.Error())
			return
		}
		s.logger.Error("folder ingestion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, ingestResponseFrom(report))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.config.Search.DefaultLimit
	}
	if limit > s.config.Search.MaxLimit {
		limit = s.config.Search.MaxLimit
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("limit", limit))
	results, err := s.merger.Search(r.Context(), req.Query, limit)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   req.Query,
		"total":   len(results),
		"results": results,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.rag == nil {
		s.respondError(w, http.StatusServiceUnavailable, "completion model not configured")
		return
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		s.respondError(w, http.StatusBadRequest, "question is required")
		return
	}
	s.logger.Debug("ask request", zap.String("question", req.Question))
	answer, err := s.rag.Ask(r.Context(), req.Question)
	if err != nil {
		s.logger.Error("ask failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.orchestrator.GetProgress())
}

func (s *Server) handleFlush(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("flush request")
	if err := s.orchestrator.Flush(r.Context()); err != nil {
		s.logger.Error("flush failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
