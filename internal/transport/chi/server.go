package chi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recordops"
	logpkg "github.com/kailas-cloud/recordops/internal/logger"
	collectionuc "github.com/kailas-cloud/recordops/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/recordops/internal/usecase/health"
	recordsuc "github.com/kailas-cloud/recordops/internal/usecase/records"
)

const maxBatchSize = 1000

// Server serves the record HTTP API.
type Server struct {
	collections   *collectionuc.Service
	records       *recordsuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	collections *collectionuc.Service,
	records *recordsuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{
		collections:   collections,
		records:       records,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/collections", s.ListCollections)
	r.Route("/collections/{name}", func(r chi.Router) {
		r.Use(s.collectionLogger)
		r.Post("/query", s.QueryRecords)
		r.Get("/records", s.ListRecords)
		r.Post("/records", s.SaveRecords)
		r.Delete("/records", s.RemoveRecords)
	})
}

// ListCollections handles GET /collections.
func (s *Server) ListCollections(w http.ResponseWriter, _ *http.Request) {
	cols := s.collections.List()
	items := make([]collectionResponse, len(cols))
	for i, c := range cols {
		items[i] = collectionToResponse(c)
	}
	writeJSON(w, http.StatusOK, listResponse[collectionResponse]{Items: items, Count: len(items)})
}

// QueryRecords handles POST /collections/{name}/query.
func (s *Server) QueryRecords(w http.ResponseWriter, r *http.Request) {
	var params recordops.QueryParams
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}
	s.query(w, r, params)
}

// ListRecords handles GET /collections/{name}/records.
func (s *Server) ListRecords(w http.ResponseWriter, r *http.Request) {
	params, err := queryParamsFromURL(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	s.query(w, r, params)
}

func (s *Server) query(w http.ResponseWriter, r *http.Request, params recordops.QueryParams) {
	page, err := s.records.Query(r.Context(), chi.URLParam(r, "name"), params)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToResponse(page))
}

// SaveRecords handles POST /collections/{name}/records.
func (s *Server) SaveRecords(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Records) > maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeBadRequest,
			fmt.Sprintf("batch size %d exceeds maximum %d", len(req.Records), maxBatchSize))
		return
	}

	res, err := s.records.Save(r.Context(), chi.URLParam(r, "name"), req.Records)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RemoveRecords handles DELETE /collections/{name}/records.
func (s *Server) RemoveRecords(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.IDs) > maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeBadRequest,
			fmt.Sprintf("batch size %d exceeds maximum %d", len(req.IDs), maxBatchSize))
		return
	}

	res, err := s.records.Remove(r.Context(), chi.URLParam(r, "name"), req.IDs)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if res == nil {
		res = &recordops.MutationResult{}
	}
	writeJSON(w, http.StatusOK, removeResponse{Total: res.Total})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: report.Checks})
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContextOr(r.Context(), s.logger)
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

// queryParamsFromURL binds ids, from, limit, fields and sort. Sort entries
// are "field" or "field:asc|desc".
func queryParamsFromURL(r *http.Request) (recordops.QueryParams, error) {
	q := r.URL.Query()
	var (
		ids, fields, sorts []string
		from, limit        *int
	)
	bind := []struct {
		name string
		dest any
	}{
		{"ids", &ids},
		{"fields", &fields},
		{"sort", &sorts},
		{"from", &from},
		{"limit", &limit},
	}
	for _, b := range bind {
		if err := runtime.BindQueryParameter("form", false, false, b.name, q, b.dest); err != nil {
			return recordops.QueryParams{}, fmt.Errorf("invalid %s parameter: %w", b.name, err)
		}
	}

	params := recordops.QueryParams{IDs: ids, Fields: fields}
	if from != nil || limit != nil {
		params.Pagination = &recordops.Pagination{From: derefInt(from), Limit: derefInt(limit)}
	}
	for _, raw := range sorts {
		field, order, _ := strings.Cut(raw, ":")
		o := recordops.Order(strings.ToLower(order))
		switch o {
		case "", recordops.Asc, recordops.Desc:
		default:
			return recordops.QueryParams{}, fmt.Errorf("invalid sort order %q", order)
		}
		if field == "" {
			return recordops.QueryParams{}, fmt.Errorf("sort field is required")
		}
		params.Sort = append(params.Sort, recordops.Sort{Field: field, Order: o})
	}
	return params, nil
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
