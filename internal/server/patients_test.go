package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinovia/medextract/constants"
	"github.com/clinovia/medextract/internal/entity"
	"github.com/clinovia/medextract/internal/repository"
)

type patientRepoMock struct {
	CreateFunc  func(ctx context.Context, p *entity.Patient) error
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*entity.Patient, error)
	ListFunc    func(ctx context.Context) ([]*entity.Patient, error)
	ExistsFunc  func(ctx context.Context, id uuid.UUID) (bool, error)
}

var _ repository.PatientRepository = (*patientRepoMock)(nil)

func (m *patientRepoMock) Create(ctx context.Context, p *entity.Patient) error {
	return m.CreateFunc(ctx, p)
}
func (m *patientRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*entity.Patient, error) {
	return m.GetByIDFunc(ctx, id)
}
func (m *patientRepoMock) List(ctx context.Context) ([]*entity.Patient, error) {
	return m.ListFunc(ctx)
}
func (m *patientRepoMock) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.ExistsFunc(ctx, id)
}

type documentRepoMock struct {
	CreateFunc              func(ctx context.Context, doc *entity.Document) error
	GetByIDFunc             func(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetByPatientAndHashFunc func(ctx context.Context, patientID uuid.UUID, hash []byte) (*entity.Document, error)
	UpsertByHashFunc        func(ctx context.Context, doc *entity.Document) (bool, error)
	ListByPatientFunc       func(ctx context.Context, patientID uuid.UUID) ([]*entity.Document, error)
	UpdateStatusFunc        func(ctx context.Context, id uuid.UUID, status constants.ProcessingStatus) error
	UpdateExtractedTextFunc func(ctx context.Context, id uuid.UUID, text string) error
}

var _ repository.DocumentRepository = (*documentRepoMock)(nil)

func (m *documentRepoMock) Create(ctx context.Context, doc *entity.Document) error {
	return m.CreateFunc(ctx, doc)
}
func (m *documentRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	return m.GetByIDFunc(ctx, id)
}
func (m *documentRepoMock) GetByPatientAndHash(ctx context.Context, patientID uuid.UUID, hash []byte) (*entity.Document, error) {
	return m.GetByPatientAndHashFunc(ctx, patientID, hash)
}
func (m *documentRepoMock) UpsertByHash(ctx context.Context, doc *entity.Document) (bool, error) {
	return m.UpsertByHashFunc(ctx, doc)
}
func (m *documentRepoMock) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*entity.Document, error) {
	return m.ListByPatientFunc(ctx, patientID)
}
func (m *documentRepoMock) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.ProcessingStatus) error {
	return m.UpdateStatusFunc(ctx, id, status)
}
func (m *documentRepoMock) UpdateExtractedText(ctx context.Context, id uuid.UUID, text string) error {
	return m.UpdateExtractedTextFunc(ctx, id, text)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// The patient documents route must reach the document repository, not
// get shadowed by anything on the handler itself.
func TestPatientDocumentsRoute(t *testing.T) {
	patientID := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000002")
	text := "normalized text"
	docs := []*entity.Document{
		{
			ID:            uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001"),
			PatientID:     patientID,
			Filename:      "lab-report.pdf",
			Status:        constants.StatusCompleted,
			ExtractedText: &text,
		},
	}

	var listedFor uuid.UUID
	srv := New(Deps{
		Patients: &patientRepoMock{
			ExistsFunc: func(ctx context.Context, id uuid.UUID) (bool, error) {
				return id == patientID, nil
			},
		},
		Documents: &documentRepoMock{
			ListByPatientFunc: func(ctx context.Context, id uuid.UUID) ([]*entity.Document, error) {
				listedFor = id
				return docs, nil
			},
		},
		Logger: quietLogger(),
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+patientID.String()+"/documents", nil)
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, patientID, listedFor)

	var body struct {
		Documents []*entity.Document `json:"documents"`
		Count     int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, docs[0].ID, body.Documents[0].ID)
	assert.Nil(t, body.Documents[0].ExtractedText, "full text is served by the text endpoint only")
}

func TestPatientDocumentsRouteUnknownPatient(t *testing.T) {
	srv := New(Deps{
		Patients: &patientRepoMock{
			ExistsFunc: func(ctx context.Context, id uuid.UUID) (bool, error) {
				return false, nil
			},
		},
		Documents: &documentRepoMock{
			ListByPatientFunc: func(ctx context.Context, id uuid.UUID) ([]*entity.Document, error) {
				t.Fatal("document repository must not be called for an unknown patient")
				return nil, nil
			},
		},
		Logger: quietLogger(),
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+uuid.NewString()+"/documents", nil)
	srv.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
