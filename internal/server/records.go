package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/clinovia/medextract/internal/common"
	"github.com/clinovia/medextract/internal/repository"
)

type recordHandler struct {
	records repository.RecordRepository
	logger  *slog.Logger
}

func (h *recordHandler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := recordFilterFromQuery(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	recs, err := h.records.List(r.Context(), filter)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs, "count": len(recs)})
}

func (h *recordHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	rec, err := h.records.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type verifyRequest struct {
	Verified bool `json:"verified"`
}

func (h *recordHandler) verify(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, common.NewInvalidArgumentError("invalid json body"))
		return
	}
	if err := h.records.SetVerified(r.Context(), id, req.Verified); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.logger.Info("record.verified", "record_id", id, "verified", req.Verified)
	writeJSON(w, http.StatusOK, map[string]any{"id": id.String(), "verified": req.Verified})
}

func recordFilterFromQuery(r *http.Request) (repository.ListRecordsFilter, error) {
	var filter repository.ListRecordsFilter
	q := r.URL.Query()

	patientID, err := parseUUIDParam(q.Get("patient_id"))
	if err != nil {
		return filter, err
	}
	templateID, err := parseUUIDParam(q.Get("template_id"))
	if err != nil {
		return filter, err
	}
	from, err := parseDateParam(q.Get("from"))
	if err != nil {
		return filter, err
	}
	to, err := parseDateParam(q.Get("to"))
	if err != nil {
		return filter, err
	}

	filter.PatientID = patientID
	filter.TemplateID = templateID
	filter.FromDate = from
	filter.ToDate = to
	return filter, nil
}
