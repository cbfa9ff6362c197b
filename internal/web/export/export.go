// Package export serves metadata records over HTTP. The record route is the
// target of the URLs the store hands out from GetURL.
package export

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/conduit-lang/metastore/internal/orm/metadata"
	"github.com/conduit-lang/metastore/internal/web/middleware"
	"github.com/conduit-lang/metastore/internal/web/profiling"
	"github.com/conduit-lang/metastore/internal/web/response"
)

// RecordSource is the part of the metadata store the export routes read
type RecordSource interface {
	Get(ctx context.Context, id int64) (*metadata.Record, error)
	GetForEntity(ctx context.Context, guid int64) ([]*metadata.Record, error)
}

// Options configures the export router
type Options struct {
	// Logger receives request and panic logs
	Logger *zap.Logger
	// Gatherer backs /metrics when set
	Gatherer prometheus.Gatherer
	// Middleware runs after request id, logging and recovery
	Middleware []middleware.Middleware
	// Pprof mounts the runtime profiling endpoints
	Pprof bool
}

type handler struct {
	source RecordSource
	logger *zap.Logger
}

// NewRouter builds the export routes:
//
//	GET /export/metadata/{id}
//	GET /export/entity/{guid}/metadata
//	GET /metrics (when a gatherer is configured)
func NewRouter(source RecordSource, opts Options) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{source: source, logger: logger}

	chain := middleware.Chain{
		middleware.RequestID(),
		middleware.Logging(logger, "/metrics"),
		middleware.Recovery(logger),
	}
	chain = append(chain, opts.Middleware...)

	r := chi.NewRouter()
	r.Use(chain.Handlers()...)
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.RenderError(w, req, http.StatusNotFound, fmt.Errorf("no route for %s", req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.RenderError(w, req, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", req.Method))
	})

	r.Get("/export/metadata/{id}", h.showRecord)
	r.Get("/export/entity/{guid}/metadata", h.listEntity)

	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	if opts.Pprof {
		profiling.Mount(r)
	}
	return r
}

func (h *handler) showRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		response.RenderError(w, r, http.StatusBadRequest, err)
		return
	}

	record, err := h.source.Get(r.Context(), id)
	if err != nil {
		h.renderStoreError(w, r, err)
		return
	}
	response.RenderJSON(w, http.StatusOK, record)
}

func (h *handler) listEntity(w http.ResponseWriter, r *http.Request) {
	guid, err := pathInt64(r, "guid")
	if err != nil {
		response.RenderError(w, r, http.StatusBadRequest, err)
		return
	}

	records, err := h.source.GetForEntity(r.Context(), guid)
	if err != nil {
		h.renderStoreError(w, r, err)
		return
	}
	if records == nil {
		records = []*metadata.Record{}
	}
	response.RenderJSON(w, http.StatusOK, map[string]interface{}{
		"entity_guid": guid,
		"metadata":    records,
	})
}

func (h *handler) renderStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case metadata.IsNotFound(err):
		response.RenderError(w, r, http.StatusNotFound, err)
	case metadata.IsPermissionDenied(err):
		response.RenderError(w, r, http.StatusForbidden, err)
	case errors.Is(err, context.DeadlineExceeded):
		response.RenderError(w, r, http.StatusGatewayTimeout, err)
	default:
		h.logger.Error("export failed", zap.String("path", r.URL.Path), zap.Error(err))
		response.RenderError(w, r, http.StatusInternalServerError, errors.New("internal error"))
	}
}

// pathInt64 extracts a positive integer path parameter
func pathInt64(r *http.Request, name string) (int64, error) {
	value := chi.URLParam(r, name)
	if value == "" {
		return 0, fmt.Errorf("missing path parameter: %s", name)
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid integer for parameter %s: %q", name, value)
	}
	return n, nil
}
