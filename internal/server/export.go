package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clinovia/medextract/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type exportHandler struct {
	exporter *export.Service
	logger   *slog.Logger
}

// records streams the filtered records as an XLSX attachment.
func (h *exportHandler) records(w http.ResponseWriter, r *http.Request) {
	filter, err := recordFilterFromQuery(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	data, err := h.exporter.ExportRecordsXLSX(r.Context(), export.Request{
		PatientID:  filter.PatientID,
		TemplateID: filter.TemplateID,
		From:       filter.FromDate,
		To:         filter.ToDate,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	filename := fmt.Sprintf("medical_records_%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
