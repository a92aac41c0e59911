// Package chi exposes query memory over HTTP: save, similar, suggest,
// history, popular, and click endpoints plus health and metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/querymem/internal/domain"
	domrec "github.com/kailas-cloud/querymem/internal/domain/record"
	"github.com/kailas-cloud/querymem/internal/logger"
	feedbackuc "github.com/kailas-cloud/querymem/internal/usecase/feedback"
	healthuc "github.com/kailas-cloud/querymem/internal/usecase/health"
	historyuc "github.com/kailas-cloud/querymem/internal/usecase/history"
	popularuc "github.com/kailas-cloud/querymem/internal/usecase/popular"
	recorduc "github.com/kailas-cloud/querymem/internal/usecase/record"
	similaruc "github.com/kailas-cloud/querymem/internal/usecase/similar"
)

// Error response codes.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeRecordNotFound   = "record_not_found"
	codeEmbeddingError   = "embedding_provider_error"
	codeStoreUnavailable = "store_unavailable"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server hand-wires the query memory services onto chi routes.
type Server struct {
	records       *recorduc.Service
	similar       *similaruc.Service
	history       *historyuc.Service
	popular       *popularuc.Service
	feedback      *feedbackuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	records *recorduc.Service,
	similar *similaruc.Service,
	history *historyuc.Service,
	popular *popularuc.Service,
	feedback *feedbackuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		records:  records,
		similar:  similar,
		history:  history,
		popular:  popular,
		feedback: feedback,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeRecordNotFound),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, codeEmbeddingError),
		sentinelHandler(domain.ErrStoreWrite, http.StatusServiceUnavailable, codeStoreUnavailable),
		sentinelHandler(domain.ErrStoreQuery, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// RegisterRoutes mounts all endpoints on the router.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Route("/api/v1/queries", func(r chi.Router) {
		r.Post("/", s.SaveQuery)
		r.Get("/similar", s.FindSimilar)
		r.Get("/suggest", s.Suggest)
		r.Get("/history", s.History)
		r.Get("/popular", s.Popular)
		r.Post("/click", s.RecordClick)
	})
}

// --- Request / response DTOs ---

type saveQueryRequest struct {
	Query           string         `json:"query"`
	TenantID        string         `json:"tenant_id"`
	UserID          string         `json:"user_id,omitempty"`
	ResultCount     int            `json:"result_count"`
	SourcesSearched []string       `json:"sources_searched,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

type saveQueryResponse struct {
	ID string `json:"id"`
}

type recordResponse struct {
	ID              string         `json:"id"`
	Query           string         `json:"query"`
	Timestamp       time.Time      `json:"timestamp"`
	ResultCount     int            `json:"result_count"`
	SourcesSearched []string       `json:"sources_searched,omitempty"`
	ClickCount      int64          `json:"click_count"`
	ClickedResults  []string       `json:"clicked_result_ids,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Score           *float64       `json:"score,omitempty"`
}

type recordListResponse struct {
	Items []recordResponse `json:"items"`
	Total int              `json:"total"`
}

type suggestResponse struct {
	Suggestions []string `json:"suggestions"`
}

type popularEntryResponse struct {
	Query    string    `json:"query"`
	Count    int       `json:"count"`
	Clicks   int64     `json:"clicks"`
	Score    int64     `json:"score"`
	Sources  []string  `json:"sources,omitempty"`
	LastSeen time.Time `json:"last_seen"`
}

type popularListResponse struct {
	Items []popularEntryResponse `json:"items"`
	Total int                    `json:"total"`
}

type clickRequest struct {
	Query    string `json:"query"`
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id,omitempty"`
	ResultID string `json:"result_id"`
}

type clickResponse struct {
	Recorded bool `json:"recorded"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --- Handlers ---

// SaveQuery handles POST /api/v1/queries.
func (s *Server) SaveQuery(w http.ResponseWriter, r *http.Request) {
	var req saveQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	// The record must land even if the caller disconnects mid-request.
	ctx := context.WithoutCancel(r.Context())

	id, err := s.records.Save(ctx, &recorduc.SaveRequest{
		Query:       req.Query,
		TenantID:    req.TenantID,
		UserID:      req.UserID,
		ResultCount: req.ResultCount,
		Sources:     req.SourcesSearched,
		Metadata:    req.Metadata,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, saveQueryResponse{ID: id})
}

// FindSimilar handles GET /api/v1/queries/similar.
func (s *Server) FindSimilar(w http.ResponseWriter, r *http.Request) {
	q, err := similarQueryFromParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	matches, err := s.similar.FindSimilar(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]recordResponse, len(matches))
	for i := range matches {
		items[i] = matchToResponse(&matches[i])
	}
	writeJSON(w, http.StatusOK, recordListResponse{Items: items, Total: len(items)})
}

// Suggest handles GET /api/v1/queries/suggest.
func (s *Server) Suggest(w http.ResponseWriter, r *http.Request) {
	q, err := similarQueryFromParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	suggestions, err := s.similar.Suggest(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, suggestResponse{Suggestions: suggestions})
}

// History handles GET /api/v1/queries/history.
func (s *Server) History(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	daysBack, err := intParam(r, "days_back")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	recs, err := s.history.Recent(r.Context(), &historyuc.Query{
		TenantID: r.URL.Query().Get("tenant_id"),
		UserID:   r.URL.Query().Get("user_id"),
		Limit:    limit,
		DaysBack: daysBack,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]recordResponse, len(recs))
	for i := range recs {
		items[i] = recordToResponse(&recs[i], nil)
	}
	writeJSON(w, http.StatusOK, recordListResponse{Items: items, Total: len(items)})
}

// Popular handles GET /api/v1/queries/popular.
func (s *Server) Popular(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	daysBack, err := intParam(r, "days_back")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	entries, err := s.popular.Trending(r.Context(), &popularuc.Query{
		TenantID: r.URL.Query().Get("tenant_id"),
		UserID:   r.URL.Query().Get("user_id"),
		Limit:    limit,
		DaysBack: daysBack,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]popularEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = popularEntryResponse{
			Query:    e.Query,
			Count:    e.Count,
			Clicks:   e.Clicks,
			Score:    e.Score,
			Sources:  e.Sources,
			LastSeen: e.LastSeen,
		}
	}
	writeJSON(w, http.StatusOK, popularListResponse{Items: items, Total: len(items)})
}

// RecordClick handles POST /api/v1/queries/click.
func (s *Server) RecordClick(w http.ResponseWriter, r *http.Request) {
	var req clickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	recorded, err := s.feedback.RecordClick(r.Context(), &feedbackuc.Click{
		Query:    req.Query,
		TenantID: req.TenantID,
		UserID:   req.UserID,
		ResultID: req.ResultID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			s.handleDomainError(w, err)
			return
		}
		// Clicks are fire-and-forget: a store failure must not surface
		// to the caller as an error.
		logger.FromContext(r.Context()).Warn("click not recorded", zap.Error(err))
		writeJSON(w, http.StatusOK, clickResponse{Recorded: false})
		return
	}

	writeJSON(w, http.StatusOK, clickResponse{Recorded: recorded})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- Param parsing / mapping ---

func similarQueryFromParams(r *http.Request) (*similaruc.Query, error) {
	limit, err := intParam(r, "limit")
	if err != nil {
		return nil, err
	}
	minScore, err := floatParamPtr(r, "min_score")
	if err != nil {
		return nil, err
	}
	return &similaruc.Query{
		Query:    r.URL.Query().Get("q"),
		TenantID: r.URL.Query().Get("tenant_id"),
		UserID:   r.URL.Query().Get("user_id"),
		Limit:    limit,
		MinScore: minScore,
	}, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return v, nil
}

// floatParamPtr distinguishes an absent parameter (nil) from an
// explicit zero.
func floatParamPtr(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, errors.New(name + " must be a non-negative number")
	}
	return &v, nil
}

func matchToResponse(m *domrec.Match) recordResponse {
	score := m.Score
	return recordToResponse(&m.Record, &score)
}

func recordToResponse(rec *domrec.Record, score *float64) recordResponse {
	return recordResponse{
		ID:              rec.ID(),
		Query:           rec.QueryText(),
		Timestamp:       rec.Timestamp(),
		ResultCount:     rec.ResultCount(),
		SourcesSearched: rec.Sources(),
		ClickCount:      rec.ClickCount(),
		ClickedResults:  rec.ClickedResultIDs(),
		Metadata:        rec.Metadata(),
		Score:           score,
	}
}

// --- Error mapping ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrEmbeddingProvider,
		domain.ErrStoreWrite,
		domain.ErrStoreQuery,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
