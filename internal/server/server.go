// Package server exposes the HTTP API for uploads, extraction runs,
// records, templates and exports.
package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinovia/medextract/internal/export"
	"github.com/clinovia/medextract/internal/queue"
	"github.com/clinovia/medextract/internal/repository"
	"github.com/clinovia/medextract/internal/storage"
	"github.com/clinovia/medextract/internal/templates"
)

// TaskEnqueuer is the part of the queue client the API needs.
type TaskEnqueuer interface {
	EnqueueDocumentExtract(ctx context.Context, payload queue.DocumentExtractPayload) error
}

// BlobStore is the part of the document store the API needs.
type BlobStore interface {
	Save(ctx context.Context, id uuid.UUID, r io.Reader) (storage.SavedFile, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

type Deps struct {
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Patients  repository.PatientRepository
	Documents repository.DocumentRepository
	Records   repository.RecordRepository
	Templates *templates.Service
	Exporter  *export.Service
	Store     BlobStore
	Tasks     TaskEnqueuer
	Logger    *slog.Logger
}

type Server struct {
	deps   Deps
	logger *slog.Logger
}

func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Server{deps: deps, logger: deps.Logger}
}

// Routes assembles the router. Handlers are grouped per resource the
// same way the tables are.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	health := &healthHandler{pool: s.deps.Pool, redis: s.deps.Redis}
	r.Get("/healthz", health.healthz)
	r.Get("/readyz", health.readyz)

	patientH := &patientHandler{
		patients:  s.deps.Patients,
		documents: s.deps.Documents,
		logger:    s.logger,
	}
	documentH := &documentHandler{
		documents: s.deps.Documents,
		records:   s.deps.Records,
		patients:  s.deps.Patients,
		store:     s.deps.Store,
		tasks:     s.deps.Tasks,
		logger:    s.logger,
	}
	recordH := &recordHandler{records: s.deps.Records, logger: s.logger}
	templateH := &templateHandler{svc: s.deps.Templates, logger: s.logger}
	exportH := &exportHandler{exporter: s.deps.Exporter, logger: s.logger}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/patients", func(r chi.Router) {
			r.Post("/", patientH.create)
			r.Get("/", patientH.list)
			r.Get("/{id}", patientH.get)
			r.Get("/{id}/documents", patientH.listDocuments)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", documentH.upload)
			r.Get("/{id}", documentH.get)
			r.Get("/{id}/status", documentH.status)
			r.Get("/{id}/text", documentH.text)
			r.Get("/{id}/records", documentH.recordsByDocument)
			r.Post("/{id}/extract", documentH.extract)
		})

		r.Route("/records", func(r chi.Router) {
			r.Get("/", recordH.list)
			r.Get("/{id}", recordH.get)
			r.Post("/{id}/verify", recordH.verify)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Post("/", templateH.importTemplate)
			r.Get("/", templateH.list)
			r.Get("/{id}", templateH.get)
			r.Put("/{id}", templateH.update)
			r.Delete("/{id}", templateH.delete)
		})

		r.Get("/export/records.xlsx", exportH.records)
	})

	return r
}
