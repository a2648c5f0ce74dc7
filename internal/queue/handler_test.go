package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinovia/medextract/internal/common"
	"github.com/clinovia/medextract/internal/pipeline"
)

type runnerMock struct {
	runFn func(ctx context.Context, documentID uuid.UUID) (*pipeline.RunResult, error)
}

func (m *runnerMock) Run(ctx context.Context, documentID uuid.UUID) (*pipeline.RunResult, error) {
	return m.runFn(ctx, documentID)
}

func extractTask(t *testing.T, documentID string) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(DocumentExtractPayload{DocumentID: documentID})
	require.NoError(t, err)
	return asynq.NewTask(TypeDocumentExtract, data)
}

func TestProcessTaskRunsPipeline(t *testing.T) {
	docID := uuid.New()
	var got uuid.UUID
	h := NewExtractHandler(&runnerMock{
		runFn: func(ctx context.Context, documentID uuid.UUID) (*pipeline.RunResult, error) {
			got = documentID
			return &pipeline.RunResult{DocumentID: documentID, Success: true}, nil
		},
	}, nil)

	err := h.ProcessTask(context.Background(), extractTask(t, docID.String()))
	require.NoError(t, err)
	assert.Equal(t, docID, got)
}

func TestProcessTaskRejectsBadPayload(t *testing.T) {
	h := NewExtractHandler(&runnerMock{
		runFn: func(ctx context.Context, documentID uuid.UUID) (*pipeline.RunResult, error) {
			t.Fatal("runner must not be called")
			return nil, nil
		},
	}, nil)

	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeDocumentExtract, []byte("{")))
	assert.Error(t, err)

	err = h.ProcessTask(context.Background(), extractTask(t, "not-a-uuid"))
	assert.Error(t, err)
}

func TestProcessTaskDropsDuplicateRun(t *testing.T) {
	h := NewExtractHandler(&runnerMock{
		runFn: func(ctx context.Context, documentID uuid.UUID) (*pipeline.RunResult, error) {
			return nil, common.NewAlreadyRunningError(documentID.String())
		},
	}, nil)

	err := h.ProcessTask(context.Background(), extractTask(t, uuid.NewString()))
	assert.NoError(t, err)
}

func TestProcessTaskPropagatesPipelineFailure(t *testing.T) {
	want := errors.New("boom")
	h := NewExtractHandler(&runnerMock{
		runFn: func(ctx context.Context, documentID uuid.UUID) (*pipeline.RunResult, error) {
			return nil, want
		},
	}, nil)

	err := h.ProcessTask(context.Background(), extractTask(t, uuid.NewString()))
	assert.ErrorIs(t, err, want)
}
