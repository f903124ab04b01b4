// Package chi is the HTTP surface: pattern queries, reindex control and the
// association event webhook.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nick-gallo-ethico/caseindex/internal/db"
	"github.com/nick-gallo-ethico/caseindex/internal/domain"
	"github.com/nick-gallo-ethico/caseindex/internal/events"
	"github.com/nick-gallo-ethico/caseindex/internal/metrics"
	"github.com/nick-gallo-ethico/caseindex/internal/repository/search"
	indexinguc "github.com/nick-gallo-ethico/caseindex/internal/usecase/indexing"
	patternuc "github.com/nick-gallo-ethico/caseindex/internal/usecase/pattern"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server carries the service dependencies behind the HTTP handlers.
type Server struct {
	patterns      *patternuc.Service
	indexing      *indexinguc.Service
	trigger       *events.Trigger
	pinger        db.Pinger
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the HTTP API server.
func NewServer(
	patterns *patternuc.Service,
	indexing *indexinguc.Service,
	trigger *events.Trigger,
	pinger db.Pinger,
	logger *zap.Logger,
) *Server {
	s := &Server{
		patterns: patterns,
		indexing: indexing,
		trigger:  trigger,
		pinger:   pinger,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidTenant, http.StatusBadRequest, "invalid_tenant"),
		sentinelHandler(domain.ErrUnknownLabel, http.StatusBadRequest, "unknown_label"),
		sentinelHandler(domain.ErrInvalidJob, http.StatusBadRequest, "invalid_request"),
		sentinelHandler(domain.ErrAggregateNotFound, http.StatusNotFound, "case_not_found"),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, "document_not_found"),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, "not_found"),
		sentinelHandler(domain.ErrQueueClosed, http.StatusServiceUnavailable, "queue_unavailable"),
	}
	return s
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(wideEvent(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/health", s.healthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/api/v1/tenants/{tenant}", func(r chi.Router) {
		r.Post("/patterns/joint", s.jointSearch)
		r.Get("/patterns/threshold", s.thresholdSearch)
		r.Get("/persons/{personId}/cases", s.personCases)
		r.Get("/persons/{personId}/rollup", s.personRollup)
		r.Get("/persons/{personId}/status-rollup", s.personStatusRollup)
		r.Get("/persons/{personId}/history-count", s.personHistoryCount)
		r.Get("/cases/{caseId}/related", s.relatedCases)
		r.Post("/cases/{caseId}/index", s.submitIndex)
		r.Post("/reindex", s.reindex)
	})
	r.Post("/api/v1/events", s.associationEvent)

	return r
}

type jointRequest struct {
	Conditions []struct {
		PersonID string `json:"personId"`
		Label    string `json:"label"`
	} `json:"conditions"`
	IncludeEnded bool `json:"includeEnded"`
	Offset       int  `json:"offset"`
	Limit        int  `json:"limit"`
}

type hitItem struct {
	CaseID          string `json:"caseId"`
	ReferenceNumber string `json:"referenceNumber,omitempty"`
	Status          string `json:"status,omitempty"`
	Severity        string `json:"severity,omitempty"`
}

type hitListResponse struct {
	Items []hitItem `json:"items"`
	Total int       `json:"total"`
}

func (s *Server) jointSearch(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")

	var req jointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	conds := make([]search.PersonCondition, 0, len(req.Conditions))
	for _, c := range req.Conditions {
		conds = append(conds, search.PersonCondition{
			PersonID: c.PersonID,
			Label:    domain.PersonLabel(c.Label),
		})
	}

	res, err := s.patterns.Joint(r.Context(), tenant, conds, req.IncludeEnded,
		search.Page{Offset: req.Offset, Limit: req.Limit})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, hitsToResponse(res))
}

func (s *Server) personCases(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	personID := chi.URLParam(r, "personId")
	page := pageFromQuery(r)

	var res *search.Result
	var err error
	if label := r.URL.Query().Get("label"); label != "" {
		res, err = s.patterns.ByLabel(r.Context(), tenant, personID, domain.PersonLabel(label), page)
	} else {
		res, err = s.patterns.Linked(r.Context(), tenant, personID, page)
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, hitsToResponse(res))
}

type rollupItem struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type statusRollupItem struct {
	Label  string `json:"label"`
	Status string `json:"status"`
	Count  int    `json:"count"`
}

func (s *Server) personRollup(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	personID := chi.URLParam(r, "personId")
	includeEnded := boolQuery(r, "include_ended")

	rows, err := s.patterns.Rollup(r.Context(), tenant, personID, includeEnded)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]rollupItem, len(rows))
	for i, row := range rows {
		items[i] = rollupItem{Label: string(row.Label), Count: row.Count}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) personStatusRollup(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	personID := chi.URLParam(r, "personId")

	rows, err := s.patterns.StatusRollup(r.Context(), tenant, personID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]statusRollupItem, len(rows))
	for i, row := range rows {
		items[i] = statusRollupItem{Label: string(row.Label), Status: row.Status, Count: row.Count}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) personHistoryCount(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	personID := chi.URLParam(r, "personId")

	n, err := s.patterns.HistoryCount(r.Context(), tenant, personID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

type thresholdItem struct {
	PersonID string `json:"personId"`
	Count    int    `json:"count"`
}

func (s *Server) thresholdSearch(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	label := r.URL.Query().Get("label")
	if label == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "label query parameter is required")
		return
	}
	minCount := intQuery(r, "min", 2)

	rows, err := s.patterns.Threshold(r.Context(), tenant, domain.PersonLabel(label), minCount, boolQuery(r, "include_ended"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]thresholdItem, len(rows))
	for i, row := range rows {
		items[i] = thresholdItem{PersonID: row.PersonID, Count: row.Count}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) relatedCases(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	caseID := chi.URLParam(r, "caseId")

	res, err := s.patterns.Related(r.Context(), tenant, caseID, pageFromQuery(r))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, hitsToResponse(res))
}

type submitRequest struct {
	Operation string `json:"operation"`
}

func (s *Server) submitIndex(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	caseID := chi.URLParam(r, "caseId")

	req := submitRequest{Operation: string(domain.OpUpdate)}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
			return
		}
	}

	if err := s.indexing.Submit(r.Context(), tenant, caseID, domain.Operation(req.Operation)); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) reindex(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")

	res, err := s.indexing.Reindex(r.Context(), tenant)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, res)
}

func (s *Server) associationEvent(w http.ResponseWriter, r *http.Request) {
	var ev domain.ChangeEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body: "+err.Error())
		return
	}

	if err := s.trigger.Handle(r.Context(), ev); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "ok"}
	status := http.StatusOK

	if err := s.pinger.Ping(r.Context()); err != nil {
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if depth, err := s.indexing.QueueDepth(r.Context()); err == nil {
		checks["queue_depth"] = strconv.FormatInt(depth, 10)
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	writeJSON(w, status, map[string]any{"status": overall, "checks": checks})
}

func hitsToResponse(res *search.Result) hitListResponse {
	items := make([]hitItem, len(res.Hits))
	for i, h := range res.Hits {
		items[i] = hitItem{
			CaseID:          h.CaseID,
			ReferenceNumber: h.ReferenceNumber,
			Status:          h.Status,
			Severity:        h.Severity,
		}
	}
	return hitListResponse{Items: items, Total: res.Total}
}

func pageFromQuery(r *http.Request) search.Page {
	return search.Page{
		Offset: intQuery(r, "offset", 0),
		Limit:  intQuery(r, "limit", 0),
	}
}

func intQuery(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func boolQuery(r *http.Request, key string) bool {
	return r.URL.Query().Get(key) == "true"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidTenant,
		domain.ErrUnknownLabel,
		domain.ErrInvalidJob,
		domain.ErrAggregateNotFound,
		domain.ErrDocumentNotFound,
		domain.ErrNotFound,
		domain.ErrQueueClosed,
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
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
