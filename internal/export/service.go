// Package export renders medical records as XLSX workbooks.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/clinovia/medextract/internal/entity"
	"github.com/clinovia/medextract/internal/repository"
)

// fixedHeaders precede the dynamic per-field columns.
var fixedHeaders = []string{
	"Patient ID",
	"Document ID",
	"Disease",
	"Confidence",
	"Verified",
	"Created At",
}

// Service is a tiny façade over the record repository that produces
// XLSX bytes for exports.
type Service struct {
	records repository.RecordRepository
	logger  *slog.Logger
}

func NewService(records repository.RecordRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, logger: logger}
}

// Request narrows which records are exported. Nil fields are ignored.
type Request struct {
	PatientID  *uuid.UUID
	TemplateID *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// ExportRecordsXLSX returns an XLSX workbook for the matching records.
// If only From is provided the window runs to today. Field columns are
// the union of field names across records, in first-seen order, so
// records from different templates share one sheet.
func (s *Service) ExportRecordsXLSX(ctx context.Context, req Request) ([]byte, error) {
	start := time.Now()

	var fromDate, toDate *time.Time
	if req.From != nil {
		f := dateOnly(*req.From)
		fromDate = &f
	}
	if req.To != nil {
		t := dateOnly(*req.To)
		toDate = &t
	}
	if fromDate != nil && toDate == nil {
		t := dateOnly(time.Now().UTC())
		toDate = &t
	}

	recs, err := s.records.List(ctx, repository.ListRecordsFilter{
		PatientID:  req.PatientID,
		TemplateID: req.TemplateID,
		FromDate:   fromDate,
		ToDate:     toDate,
	})
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	fieldCols := fieldColumns(recs)

	f := excelize.NewFile()
	const sheet = "Medical Records"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := append(append([]string{}, fixedHeaders...), fieldCols...)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.PatientID.String())
		write(2, r.DocumentID.String())
		write(3, r.DiseaseName)
		write(4, r.Confidence)
		write(5, r.Verified)
		write(6, r.CreatedAt.UTC().Format("2006-01-02"))

		for j, name := range fieldCols {
			v, ok := r.Data.Get(name)
			if !ok {
				continue
			}
			write(len(fixedHeaders)+1+j, cellValue(v))
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "B", 38) // uuids
	_ = f.SetColWidth(sheet, "C", "C", 28) // disease
	_ = f.SetColWidth(sheet, "D", "E", 12)
	_ = f.SetColWidth(sheet, "F", "F", 14) // date

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"field_columns", len(fieldCols),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// fieldColumns unions field names across records in first-seen order.
func fieldColumns(recs []*entity.MedicalRecord) []string {
	var cols []string
	seen := map[string]struct{}{}
	for _, r := range recs {
		for _, name := range r.Data.Names() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			cols = append(cols, name)
		}
	}
	return cols
}

func cellValue(v entity.FieldValue) any {
	switch v.Kind {
	case entity.KindText:
		return truncate(v.Text, 140)
	case entity.KindNumber:
		return v.Number
	case entity.KindDate:
		return v.Date.Format(entity.DateLayout)
	case entity.KindBool:
		return v.Bool
	}
	return ""
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
