// Package pipeline orchestrates one extraction run: fetch bytes, detect
// the PDF class, pull text directly or through OCR, normalize, match a
// disease template, extract fields and persist the medical record.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clinovia/medextract/constants"
	"github.com/clinovia/medextract/internal/common"
	"github.com/clinovia/medextract/internal/entity"
	"github.com/clinovia/medextract/internal/fields"
	"github.com/clinovia/medextract/internal/match"
	"github.com/clinovia/medextract/internal/normalize"
	"github.com/clinovia/medextract/internal/ocr"
	"github.com/clinovia/medextract/internal/outcome"
	"github.com/clinovia/medextract/internal/pdftext"
	"github.com/clinovia/medextract/internal/runlock"
)

// minRunLength is the normalized-text floor below which a run fails with
// INSUFFICIENT_TEXT.
const minRunLength = 20

// previewLength bounds the text preview carried on run results.
const previewLength = 500

// DocumentStore is the slice of the document repository the pipeline
// needs.
type DocumentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.ProcessingStatus) error
	UpdateExtractedText(ctx context.Context, id uuid.UUID, text string) error
}

// TemplateSource lists the disease templates to match against.
type TemplateSource interface {
	List(ctx context.Context) ([]entity.DiseaseTemplate, error)
}

// RecordStore persists extracted medical records.
type RecordStore interface {
	Create(ctx context.Context, rec *entity.MedicalRecord) error
}

// BytesSource yields the stored bytes and on-disk path of a document.
type BytesSource interface {
	Fetch(ctx context.Context, id uuid.UUID) (data []byte, path string, err error)
}

// Detector classifies PDF bytes and pulls the embedded text layer.
type Detector interface {
	Detect(data []byte) (pdftext.Detection, error)
}

// OCRExtractor runs the OCR fallback for scanned documents.
type OCRExtractor interface {
	Extract(ctx context.Context, path string) (ocr.Result, error)
}

type pdfDetector struct{}

func (pdfDetector) Detect(data []byte) (pdftext.Detection, error) {
	return pdftext.Detect(data)
}

// RunResult is the outcome of one extraction run. Success means a
// record was created; a completed run without a template match carries
// Success=false and a text preview for operator triage.
type RunResult struct {
	DocumentID  uuid.UUID       `json:"document_id"`
	Success     bool            `json:"success"`
	RecordID    *uuid.UUID      `json:"record_id,omitempty"`
	DiseaseName string          `json:"disease_name,omitempty"`
	Confidence  float64         `json:"confidence,omitempty"`
	TextPreview string          `json:"text_preview,omitempty"`
	Summary     outcome.Summary `json:"summary"`
	Duration    time.Duration   `json:"duration"`
}

// Pipeline coordinates the extraction stages for one document at a time.
type Pipeline struct {
	logger    *slog.Logger
	documents DocumentStore
	templates TemplateSource
	records   RecordStore
	source    BytesSource
	detector  Detector
	ocr       OCRExtractor
	matcher   *match.Matcher
	fields    *fields.Extractor
	locker    runlock.Locker
}

func New(
	logger *slog.Logger,
	documents DocumentStore,
	templates TemplateSource,
	records RecordStore,
	source BytesSource,
	ocrExtractor OCRExtractor,
	matcher *match.Matcher,
	fieldExtractor *fields.Extractor,
	locker runlock.Locker,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if matcher == nil {
		matcher = match.NewMatcher(0, logger)
	}
	if fieldExtractor == nil {
		fieldExtractor = fields.NewExtractor(logger)
	}
	if locker == nil {
		locker = runlock.NewMemoryLocker()
	}
	return &Pipeline{
		logger:    logger,
		documents: documents,
		templates: templates,
		records:   records,
		source:    source,
		detector:  pdfDetector{},
		ocr:       ocrExtractor,
		matcher:   matcher,
		fields:    fieldExtractor,
		locker:    locker,
	}
}

// Run executes one extraction run for documentID. Exactly one run per
// document may be in flight; concurrent attempts fail with
// ALREADY_RUNNING and leave the document untouched.
func (p *Pipeline) Run(ctx context.Context, documentID uuid.UUID) (*RunResult, error) {
	start := time.Now()

	acquired, err := p.locker.Acquire(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !acquired {
		p.logger.Warn("pipeline.run.rejected", "document_id", documentID, "reason", "already running")
		return nil, common.NewAlreadyRunningError(fmt.Sprintf("document %s is already being processed", documentID))
	}
	releaseCtx := context.WithoutCancel(ctx)
	defer func() {
		if rerr := p.locker.Release(releaseCtx, documentID); rerr != nil {
			p.logger.Warn("pipeline.runlock.release_failed", "document_id", documentID, "error", rerr)
		}
	}()

	doc, err := p.documents.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if err := p.documents.UpdateStatus(ctx, doc.ID, constants.StatusProcessing); err != nil {
		return nil, err
	}
	p.logger.Info("pipeline.run.start", "document_id", doc.ID, "filename", doc.Filename)

	res, runErr := p.process(ctx, doc)
	if runErr != nil {
		if uerr := p.documents.UpdateStatus(ctx, doc.ID, constants.StatusFailed); uerr != nil {
			p.logger.Error("pipeline.status.failed_write", "document_id", doc.ID, "error", uerr)
		}
		p.logger.Error("pipeline.run.failed", "document_id", doc.ID, "duration", time.Since(start), "error", runErr)
		return nil, runErr
	}

	if err := p.documents.UpdateStatus(ctx, doc.ID, constants.StatusCompleted); err != nil {
		return nil, err
	}

	res.Duration = time.Since(start)
	p.logger.Info("pipeline.run.completed",
		"document_id", doc.ID,
		"success", res.Success,
		"disease", res.DiseaseName,
		"confidence", res.Confidence,
		"duration", res.Duration,
	)
	return res, nil
}

// process runs the stages between the processing and terminal states.
// Any error here fails the run.
func (p *Pipeline) process(ctx context.Context, doc *entity.Document) (*RunResult, error) {
	res := &RunResult{DocumentID: doc.ID}

	data, path, err := p.source.Fetch(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	det, err := p.detector.Detect(data)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("pipeline.detect.ok", "document_id", doc.ID, "class", det.Class, "pages", det.Pages)

	text := det.Text
	if det.Class == constants.PDFClassImage {
		ocrRes, err := p.ocr.Extract(ctx, path)
		if err != nil {
			return nil, err
		}
		text = ocrRes.Text
		res.Summary.Merge(ocrRes.Summary)
		p.logger.Info("pipeline.ocr.ok",
			"document_id", doc.ID,
			"pages", ocrRes.Pages,
			"confidence", ocrRes.Confidence,
			"duration", ocrRes.Duration,
		)
	}

	text = normalize.Text(text)
	if err := p.documents.UpdateExtractedText(ctx, doc.ID, text); err != nil {
		return nil, err
	}

	if len(text) < minRunLength {
		return nil, common.NewInsufficientTextError(
			fmt.Sprintf("document text is %d characters, need at least %d", len(text), minRunLength))
	}

	templates, err := p.templates.List(ctx)
	if err != nil {
		return nil, err
	}

	best := p.matcher.Best(text, templates)
	if best == nil {
		res.Success = false
		res.TextPreview = preview(text)
		p.logger.Info("pipeline.match.none", "document_id", doc.ID, "templates", len(templates))
		return res, nil
	}
	p.logger.Info("pipeline.match.ok",
		"document_id", doc.ID,
		"template_id", best.Template.ID,
		"disease", best.Template.Name,
		"confidence", best.Confidence,
	)

	extracted, fieldSummary := p.fields.Extract(text, best.Template.Fields)
	res.Summary.Merge(fieldSummary)

	record := &entity.MedicalRecord{
		DocumentID:  doc.ID,
		PatientID:   doc.PatientID,
		TemplateID:  best.Template.ID,
		DiseaseName: best.Template.Name,
		Data:        extracted,
		Confidence:  best.Confidence,
	}
	if err := p.records.Create(ctx, record); err != nil {
		return nil, err
	}
	p.logger.Info("pipeline.record.created", "document_id", doc.ID, "record_id", record.ID, "fields", extracted.Len())

	res.Success = true
	res.RecordID = &record.ID
	res.DiseaseName = best.Template.Name
	res.Confidence = best.Confidence
	res.TextPreview = preview(text)
	return res, nil
}

// preview truncates normalized text for run results. Normalized text is
// ASCII, so byte slicing is safe.
func preview(text string) string {
	if len(text) <= previewLength {
		return text
	}
	return text[:previewLength] + "..."
}
