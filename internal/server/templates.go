package server

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/clinovia/medextract/internal/common"
	"github.com/clinovia/medextract/internal/templates"
)

// maxTemplateBytes bounds a template definition body.
const maxTemplateBytes = 1 << 20

type templateHandler struct {
	svc    *templates.Service
	logger *slog.Logger
}

func (h *templateHandler) importTemplate(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxTemplateBytes))
	if err != nil {
		writeError(w, h.logger, common.NewInvalidArgumentError("unreadable request body"))
		return
	}
	t, err := h.svc.Import(r.Context(), raw)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *templateHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxTemplateBytes))
	if err != nil {
		writeError(w, h.logger, common.NewInvalidArgumentError("unreadable request body"))
		return
	}
	t, err := h.svc.Update(r.Context(), id, raw)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *templateHandler) list(w http.ResponseWriter, r *http.Request) {
	ts, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": ts, "count": len(ts)})
}

func (h *templateHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *templateHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
