package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinovia/medextract/internal/common"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps application error codes onto HTTP statuses. Anything
// that is not an AppError is logged and reported as a plain 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, statusForCode(appErr.Code), map[string]string{
			"error": appErr.Message,
			"code":  appErr.Code,
		})
		return
	}
	logger.Error("http.internal_error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func statusForCode(code string) int {
	switch code {
	case common.CodeNotFound:
		return http.StatusNotFound
	case common.CodeInvalidArgument:
		return http.StatusBadRequest
	case common.CodeAlreadyRunning:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, common.NewInvalidArgumentError(name + " must be a UUID")
	}
	return id, nil
}

func parseDateParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, common.NewInvalidArgumentError(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s))
	}
	return &t, nil
}

func parseUUIDParam(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, common.NewInvalidArgumentError(fmt.Sprintf("invalid uuid %q", s))
	}
	return &id, nil
}
