package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/clinovia/medextract/internal/common"
	"github.com/clinovia/medextract/internal/pipeline"
)

// PipelineRunner is the part of the pipeline the worker needs.
type PipelineRunner interface {
	Run(ctx context.Context, documentID uuid.UUID) (*pipeline.RunResult, error)
}

type ExtractHandler struct {
	runner PipelineRunner
	logger *slog.Logger
}

func NewExtractHandler(runner PipelineRunner, logger *slog.Logger) *ExtractHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractHandler{runner: runner, logger: logger}
}

func (h *ExtractHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload DocumentExtractPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	docID, err := uuid.Parse(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("parse document id: %w", err)
	}

	res, err := h.runner.Run(ctx, docID)
	if err != nil {
		if common.HasCode(err, common.CodeAlreadyRunning) {
			// Another run holds the lock and owns the document.
			h.logger.Warn("queue.extract.duplicate", "document_id", docID)
			return nil
		}
		return fmt.Errorf("run pipeline for %s: %w", docID, err)
	}

	h.logger.Info("queue.extract.done",
		"document_id", docID,
		"success", res.Success,
		"disease", res.DiseaseName,
	)
	return nil
}

// NewMux wires task types to their handlers.
func NewMux(extract *ExtractHandler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeDocumentExtract, asynq.HandlerFunc(extract.ProcessTask))
	return mux
}
