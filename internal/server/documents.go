package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/clinovia/medextract/constants"
	"github.com/clinovia/medextract/internal/common"
	"github.com/clinovia/medextract/internal/entity"
	"github.com/clinovia/medextract/internal/queue"
	"github.com/clinovia/medextract/internal/repository"
)

// maxUploadBytes bounds the multipart form held in memory per upload.
const maxUploadBytes = 32 << 20

type documentHandler struct {
	documents repository.DocumentRepository
	records   repository.RecordRepository
	patients  repository.PatientRepository
	store     BlobStore
	tasks     TaskEnqueuer
	logger    *slog.Logger
}

type uploadResponse struct {
	Document     *entity.Document `json:"document"`
	Deduplicated bool             `json:"deduplicated"`
}

// upload accepts a multipart form with a "file" part and a "patient_id"
// value, stores the blob, deduplicates on content hash and queues one
// extraction run for new documents.
func (h *documentHandler) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, h.logger, common.NewInvalidArgumentError("invalid multipart form"))
		return
	}

	patientID, err := uuid.Parse(strings.TrimSpace(r.FormValue("patient_id")))
	if err != nil {
		writeError(w, h.logger, common.NewInvalidArgumentError("patient_id must be a UUID"))
		return
	}
	exists, err := h.patients.Exists(r.Context(), patientID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !exists {
		writeError(w, h.logger, common.NewNotFoundError(fmt.Sprintf("patient %s not found", patientID), nil))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, h.logger, common.NewInvalidArgumentError("file is required"))
		return
	}
	defer file.Close()

	ext := constants.NormalizeExt(filepath.Ext(header.Filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		writeError(w, h.logger, common.InvalidArgumentErrorf("unsupported file extension %q, only pdf is accepted", ext))
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/pdf"
	}
	if _, ok := constants.AllowedContentTypes[contentType]; !ok {
		writeError(w, h.logger, common.InvalidArgumentErrorf("unsupported content type %q", contentType))
		return
	}

	doc := &entity.Document{
		ID:          uuid.New(),
		PatientID:   patientID,
		Filename:    header.Filename,
		ContentType: contentType,
	}
	newID := doc.ID

	saved, err := h.store.Save(r.Context(), doc.ID, file)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	doc.StoragePath = saved.Path
	doc.SizeBytes = saved.SizeBytes
	doc.ContentHash = saved.SHA256

	deduplicated, err := h.documents.UpsertByHash(r.Context(), doc)
	if err != nil {
		_ = h.store.Remove(context.WithoutCancel(r.Context()), newID)
		writeError(w, h.logger, err)
		return
	}
	if deduplicated {
		// The earlier upload keeps its blob, this copy is dropped.
		_ = h.store.Remove(r.Context(), newID)
		h.logger.Info("document.upload.deduplicated",
			"document_id", doc.ID,
			"patient_id", patientID,
			"filename", header.Filename,
		)
		writeJSON(w, http.StatusOK, uploadResponse{Document: doc, Deduplicated: true})
		return
	}

	if err := h.tasks.EnqueueDocumentExtract(r.Context(), queue.DocumentExtractPayload{DocumentID: doc.ID.String()}); err != nil {
		// The row is persisted as pending, a later extract call can pick it up.
		h.logger.Error("document.upload.enqueue_failed", "document_id", doc.ID, "error", err)
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("document.uploaded",
		"document_id", doc.ID,
		"patient_id", patientID,
		"filename", header.Filename,
		"size_bytes", doc.SizeBytes,
	)
	writeJSON(w, http.StatusAccepted, uploadResponse{Document: doc, Deduplicated: false})
}

func (h *documentHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	doc, err := h.documents.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	// Full text is served by the text endpoint.
	doc.ExtractedText = nil
	writeJSON(w, http.StatusOK, doc)
}

func (h *documentHandler) status(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	doc, err := h.documents.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp := map[string]any{
		"id":     doc.ID.String(),
		"status": doc.Status,
	}
	if doc.ProcessedAt != nil {
		resp["processed_at"] = doc.ProcessedAt.UTC()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *documentHandler) text(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	doc, err := h.documents.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if doc.ExtractedText == nil {
		writeError(w, h.logger, common.NewNotFoundError(fmt.Sprintf("document %s has no extracted text", id), nil))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(*doc.ExtractedText))
}

func (h *documentHandler) recordsByDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if _, err := h.documents.GetByID(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	recs, err := h.records.ListByDocument(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs, "count": len(recs)})
}

// extract queues a new pipeline run for an existing document. Documents
// currently processing are rejected, the run lock is the authoritative
// guard at execution time.
func (h *documentHandler) extract(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	doc, err := h.documents.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if doc.Status == constants.StatusProcessing {
		writeError(w, h.logger, common.NewAlreadyRunningError(fmt.Sprintf("document %s is already processing", id)))
		return
	}

	if err := h.tasks.EnqueueDocumentExtract(r.Context(), queue.DocumentExtractPayload{DocumentID: id.String()}); err != nil {
		h.logger.Error("document.extract.enqueue_failed", "document_id", id, "error", err)
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("document.extract.queued", "document_id", id)
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id.String(), "status": "queued"})
}
