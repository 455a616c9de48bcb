// Package chi exposes the query build service over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecquery/internal/domain"
	"github.com/kailas-cloud/vecquery/internal/domain/dsl"
	"github.com/kailas-cloud/vecquery/internal/logger"
	healthuc "github.com/kailas-cloud/vecquery/internal/usecase/health"
	"github.com/kailas-cloud/vecquery/internal/usecase/querybuild"
)

// Error codes of the JSON error body.
const (
	CodeBadRequest    = "bad_request"
	CodeInvalidQuery  = "invalid_query"
	CodeProviderError = "embedding_provider_error"
	CodeDimMismatch   = "vector_dim_mismatch"
	CodeInternalError = "internal_error"
	CodeUnauthorized  = "unauthorized"
)

const (
	headerEmbedTokens  = "X-Embedding-Tokens"
	headerBuildID      = "X-Build-ID"
	maxRequestBodySize = 1 << 20
)

// QueryBuilder builds engine queries.
type QueryBuilder interface {
	Build(ctx context.Context, req querybuild.Request) (querybuild.Result, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, r *http.Request, err error) bool

// Server serves the query build API.
type Server struct {
	builder       QueryBuilder
	health        HealthChecker
	messages      *Messages
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(builder QueryBuilder, health HealthChecker, logger *zap.Logger) *Server {
	s := &Server{
		builder:  builder,
		health:   health,
		messages: NewMessages(),
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		s.invalidQueryHandler,
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadGateway, CodeDimMismatch),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeProviderError),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/v1/queries", s.BuildQuery)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type buildQueryRequest struct {
	Query        string   `json:"query"`
	Languages    []string `json:"languages,omitempty"`
	DefaultField string   `json:"default_field,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

type buildQueryResponse struct {
	BuildID    string              `json:"build_id"`
	Query      map[string]any      `json:"query"`
	Sort       []map[string]any    `json:"sort,omitempty"`
	Highlights []string            `json:"highlights,omitempty"`
	FieldLogs  map[string][]string `json:"field_logs,omitempty"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Engine string            `json:"engine,omitempty"`
	Checks map[string]string `json:"checks"`
}

// BuildQuery handles POST /v1/queries.
// Explicit languages take precedence over Accept-Language.
func (s *Server) BuildQuery(w http.ResponseWriter, r *http.Request) {
	var req buildQueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	langs := req.Languages
	if len(langs) == 0 {
		langs = languageCandidates(acceptLanguages(r))
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.builder.Build(ctx, querybuild.Request{
		Query:        req.Query,
		Languages:    langs,
		DefaultField: req.DefaultField,
		Roles:        req.Roles,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	w.Header().Set(headerBuildID, res.BuildID)
	writeJSON(w, http.StatusOK, buildQueryResponseFrom(res))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Engine: report.Engine,
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func buildQueryResponseFrom(res querybuild.Result) buildQueryResponse {
	q := res.Query
	if q == nil {
		q = dsl.MatchAll()
	}
	resp := buildQueryResponse{
		BuildID:    res.BuildID,
		Query:      q.Source(),
		Highlights: res.Highlights,
	}
	for _, sort := range res.Sorts {
		resp.Sort = append(resp.Sort, sort.Source())
	}
	if len(res.FieldLogs) > 0 {
		resp.FieldLogs = res.FieldLogs
	}
	return resp
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Used() {
		w.Header().Set(headerEmbedTokens, strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// invalidQueryHandler renders InvalidQueryError in the request's language.
func (s *Server) invalidQueryHandler(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, domain.ErrInvalidQuery) {
		return false
	}
	key, args := domain.MessageInvalidQueryUnknown, []string(nil)
	var iqe *domain.InvalidQueryError
	if errors.As(err, &iqe) {
		key, args = iqe.MessageKey, iqe.Args
	}
	writeError(w, http.StatusBadRequest, CodeInvalidQuery, s.messages.Localize(acceptLanguages(r), key, args...))
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, _ *http.Request, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, sentinel.Error())
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, r, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
