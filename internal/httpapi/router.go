package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"mantaga/internal"
	"mantaga/internal/catalog"
	"mantaga/internal/config"
	"mantaga/internal/logger"
	"mantaga/internal/pipeline"
	"mantaga/internal/reconcile"
	"mantaga/internal/storage"
)

const maxBodyBytes = 20 << 20

// Router wraps the mux router and the services behind it.
type Router struct {
	*mux.Router
	db      *storage.DB
	ingest  *pipeline.IngestService
	recon   *reconcile.Service
	catalog *catalog.Service
	log     zerolog.Logger
}

// NewRouter wires every route. syncer may be nil when no brand projection is configured.
func NewRouter(db *storage.DB, cfg config.Config, syncer reconcile.BrandSyncer) *Router {
	r := &Router{
		Router:  mux.NewRouter(),
		db:      db,
		ingest:  pipeline.NewIngestService(db, cfg),
		recon:   reconcile.NewService(db, syncer),
		catalog: catalog.NewService(db),
		log:     logger.WithComponent("http"),
	}
	r.Use(r.logRequests)

	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	lpo := r.PathPrefix("/api/lpo").Subrouter()
	lpo.HandleFunc("", r.listOrders).Methods("GET")
	lpo.HandleFunc("", r.ingestOrder).Methods("POST")
	lpo.HandleFunc("/{poNumber}", r.getOrder).Methods("GET")
	lpo.HandleFunc("/{poNumber}/invoice", r.saveInvoice).Methods("PUT")
	lpo.HandleFunc("/{poNumber}/brand-sync", r.brandSync).Methods("POST")
	lpo.HandleFunc("/{poNumber}/brand-performance", r.brandPerformance).Methods("GET")

	skus := r.PathPrefix("/api/skus").Subrouter()
	skus.HandleFunc("", r.listSkus).Methods("GET")
	skus.HandleFunc("", r.addSku).Methods("POST")
	skus.HandleFunc("/batch", r.importSkus).Methods("POST")
	skus.HandleFunc("/report", r.skuReport).Methods("GET")

	return r
}

func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
		next.ServeHTTP(rec, req)
		r.log.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps domain errors onto status codes.
func (r *Router) respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		r.log.Error().Err(err).Msg("request failed")
	}
	respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case internal.IsValidation(err):
		return http.StatusBadRequest
	case internal.IsExtraction(err):
		return http.StatusUnprocessableEntity
	case internal.IsDuplicateKey(err):
		return http.StatusConflict
	case internal.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
