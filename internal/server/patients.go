package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/clinovia/medextract/internal/common"
	"github.com/clinovia/medextract/internal/entity"
	"github.com/clinovia/medextract/internal/repository"
)

type patientHandler struct {
	patients  repository.PatientRepository
	documents repository.DocumentRepository
	logger    *slog.Logger
}

type createPatientRequest struct {
	FullName   string  `json:"full_name"`
	ExternalID *string `json:"external_id"`
}

func (h *patientHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createPatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, common.NewInvalidArgumentError("invalid json body"))
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		writeError(w, h.logger, common.NewInvalidArgumentError("full_name is required"))
		return
	}

	p := &entity.Patient{FullName: req.FullName, ExternalID: req.ExternalID}
	if err := h.patients.Create(r.Context(), p); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("patient.created", "patient_id", p.ID, "full_name", p.FullName)
	writeJSON(w, http.StatusCreated, p)
}

func (h *patientHandler) list(w http.ResponseWriter, r *http.Request) {
	ps, err := h.patients.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": ps, "count": len(ps)})
}

func (h *patientHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	p, err := h.patients.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *patientHandler) listDocuments(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	exists, err := h.patients.Exists(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if !exists {
		writeError(w, h.logger, common.NewNotFoundError(fmt.Sprintf("patient %s not found", id), nil))
		return
	}

	docs, err := h.documents.ListByPatient(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	for _, d := range docs {
		d.ExtractedText = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}
