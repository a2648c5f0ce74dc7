package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/clinovia/medextract/internal/entity"
	"github.com/clinovia/medextract/internal/repository"
)

type recordRepoMock struct {
	listFn func(ctx context.Context, filter repository.ListRecordsFilter) ([]*entity.MedicalRecord, error)
}

func (m *recordRepoMock) Create(ctx context.Context, rec *entity.MedicalRecord) error { return nil }
func (m *recordRepoMock) GetByID(ctx context.Context, id uuid.UUID) (*entity.MedicalRecord, error) {
	return nil, nil
}
func (m *recordRepoMock) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.MedicalRecord, error) {
	return nil, nil
}
func (m *recordRepoMock) List(ctx context.Context, filter repository.ListRecordsFilter) ([]*entity.MedicalRecord, error) {
	return m.listFn(ctx, filter)
}
func (m *recordRepoMock) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	return nil
}

func sampleRecords(t *testing.T) []*entity.MedicalRecord {
	t.Helper()

	var diabetes entity.ExtractedData
	diabetes.Set("blood_sugar_level", entity.NumberValue(180))
	diabetes.Set("insulin_type", entity.TextValue("Humalog"))
	visit, err := time.Parse(entity.DateLayout, "2024-03-15")
	require.NoError(t, err)
	diabetes.Set("visit_date", entity.DateValue(visit))

	var cad entity.ExtractedData
	cad.Set("chest_pain", entity.BoolValue(true))
	cad.Set("ejection_fraction", entity.NumberValue(55))

	patientID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	return []*entity.MedicalRecord{
		{
			ID:          uuid.New(),
			DocumentID:  uuid.MustParse("22222222-2222-2222-2222-222222222222"),
			PatientID:   patientID,
			TemplateID:  uuid.New(),
			DiseaseName: "Diabetes Mellitus Type 2",
			Data:        diabetes,
			Confidence:  100,
			Verified:    true,
			CreatedAt:   time.Date(2024, 3, 16, 11, 30, 0, 0, time.UTC),
		},
		{
			ID:          uuid.New(),
			DocumentID:  uuid.MustParse("33333333-3333-3333-3333-333333333333"),
			PatientID:   patientID,
			TemplateID:  uuid.New(),
			DiseaseName: "Coronary Artery Disease",
			Data:        cad,
			Confidence:  62.5,
			Verified:    false,
			CreatedAt:   time.Date(2024, 4, 2, 9, 0, 0, 0, time.UTC),
		},
	}
}

func TestExportRecordsXLSX(t *testing.T) {
	recs := sampleRecords(t)
	repo := &recordRepoMock{
		listFn: func(ctx context.Context, filter repository.ListRecordsFilter) ([]*entity.MedicalRecord, error) {
			return recs, nil
		},
	}
	svc := NewService(repo, nil)

	data, err := svc.ExportRecordsXLSX(context.Background(), Request{})
	require.NoError(t, err)
	require.NotEmpty(t, data)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	const sheet = "Medical Records"

	// Fixed headers, then field columns in first-seen order across records.
	wantHeaders := []string{
		"Patient ID", "Document ID", "Disease", "Confidence", "Verified", "Created At",
		"blood_sugar_level", "insulin_type", "visit_date",
		"chest_pain", "ejection_fraction",
	}
	for i, want := range wantHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		require.NoError(t, err)
		got, err := f.GetCellValue(sheet, cell)
		require.NoError(t, err)
		assert.Equal(t, want, got, "header %d", i+1)
	}

	a2, err := f.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", a2)

	c2, err := f.GetCellValue(sheet, "C2")
	require.NoError(t, err)
	assert.Equal(t, "Diabetes Mellitus Type 2", c2)

	f2, err := f.GetCellValue(sheet, "F2")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-16", f2)

	g2, err := f.GetCellValue(sheet, "G2")
	require.NoError(t, err)
	assert.Equal(t, "180", g2)

	h2, err := f.GetCellValue(sheet, "H2")
	require.NoError(t, err)
	assert.Equal(t, "Humalog", h2)

	i2, err := f.GetCellValue(sheet, "I2")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", i2)

	// The diabetes row has no chest_pain column value.
	j2, err := f.GetCellValue(sheet, "J2")
	require.NoError(t, err)
	assert.Empty(t, j2)

	c3, err := f.GetCellValue(sheet, "C3")
	require.NoError(t, err)
	assert.Equal(t, "Coronary Artery Disease", c3)

	j3, err := f.GetCellValue(sheet, "J3")
	require.NoError(t, err)
	assert.Equal(t, "TRUE", j3)
}

func TestExportNormalizesDateWindow(t *testing.T) {
	var captured repository.ListRecordsFilter
	repo := &recordRepoMock{
		listFn: func(ctx context.Context, filter repository.ListRecordsFilter) ([]*entity.MedicalRecord, error) {
			captured = filter
			return nil, nil
		},
	}
	svc := NewService(repo, nil)

	from := time.Date(2024, 3, 1, 17, 45, 12, 0, time.FixedZone("CET", 3600))
	_, err := svc.ExportRecordsXLSX(context.Background(), Request{From: &from})
	require.NoError(t, err)

	require.NotNil(t, captured.FromDate)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *captured.FromDate)

	// From without To runs through today.
	require.NotNil(t, captured.ToDate)
	today := time.Now().UTC()
	assert.Equal(t, time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC), *captured.ToDate)
}

func TestExportEmptyResultStillProducesWorkbook(t *testing.T) {
	repo := &recordRepoMock{
		listFn: func(ctx context.Context, filter repository.ListRecordsFilter) ([]*entity.MedicalRecord, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, nil)

	data, err := svc.ExportRecordsXLSX(context.Background(), Request{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetCellValue("Medical Records", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Patient ID", got)
}
