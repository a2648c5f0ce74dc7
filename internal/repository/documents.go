package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinovia/medextract/constants"
	"github.com/clinovia/medextract/internal/common"
	"github.com/clinovia/medextract/internal/entity"
)

const documentColumns = `id, patient_id, filename, storage_path, content_type, size_bytes, content_hash, status, extracted_text, processed_at, uploaded_at`

type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	GetByPatientAndHash(ctx context.Context, patientID uuid.UUID, hash []byte) (*entity.Document, error)
	UpsertByHash(ctx context.Context, doc *entity.Document) (bool, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*entity.Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.ProcessingStatus) error
	UpdateExtractedText(ctx context.Context, id uuid.UUID, text string) error
}

type documentRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewDocumentRepository(pool *pgxpool.Pool, logger *slog.Logger) DocumentRepository {
	return &documentRepository{
		pool:   pool,
		logger: logger,
	}
}

func (r *documentRepository) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = constants.StatusPending
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO documents (id, patient_id, filename, storage_path, content_type, size_bytes, content_hash, status, uploaded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		doc.ID, doc.PatientID, doc.Filename, doc.StoragePath, doc.ContentType, doc.SizeBytes, doc.ContentHash, doc.Status, doc.UploadedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert document", "document_id", doc.ID, "error", err)
		return common.NewPersistenceError("insert document", err)
	}
	return nil
}

func (r *documentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	var d entity.Document
	err := r.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id,
	).Scan(&d.ID, &d.PatientID, &d.Filename, &d.StoragePath, &d.ContentType, &d.SizeBytes, &d.ContentHash, &d.Status, &d.ExtractedText, &d.ProcessedAt, &d.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError(fmt.Sprintf("document %s not found", id), err)
	}
	if err != nil {
		return nil, common.NewPersistenceError("get document", err)
	}
	return &d, nil
}

func (r *documentRepository) GetByPatientAndHash(ctx context.Context, patientID uuid.UUID, hash []byte) (*entity.Document, error) {
	var d entity.Document
	err := r.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE patient_id = $1 AND content_hash = $2`, patientID, hash,
	).Scan(&d.ID, &d.PatientID, &d.Filename, &d.StoragePath, &d.ContentType, &d.SizeBytes, &d.ContentHash, &d.Status, &d.ExtractedText, &d.ProcessedAt, &d.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError("document not found for hash", err)
	}
	if err != nil {
		return nil, common.NewPersistenceError("get document by hash", err)
	}
	return &d, nil
}

// UpsertByHash deduplicates uploads on (patient_id, content_hash). When a
// matching row exists it is copied into doc and true is returned.
func (r *documentRepository) UpsertByHash(ctx context.Context, doc *entity.Document) (bool, error) {
	existing, err := r.GetByPatientAndHash(ctx, doc.PatientID, doc.ContentHash)
	if err == nil {
		*doc = *existing
		return true, nil
	}
	if !common.HasCode(err, common.CodeNotFound) {
		return false, err
	}
	if err := r.Create(ctx, doc); err != nil {
		r.logger.Error("failed to upsert document by hash", "patient_id", doc.PatientID, "filename", doc.Filename, "error", err)
		return false, err
	}
	return false, nil
}

func (r *documentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*entity.Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE patient_id = $1 ORDER BY uploaded_at DESC`, patientID,
	)
	if err != nil {
		r.logger.Error("failed to list documents", "patient_id", patientID, "error", err)
		return nil, common.NewPersistenceError("list documents", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		var d entity.Document
		if err := rows.Scan(&d.ID, &d.PatientID, &d.Filename, &d.StoragePath, &d.ContentType, &d.SizeBytes, &d.ContentHash, &d.Status, &d.ExtractedText, &d.ProcessedAt, &d.UploadedAt); err != nil {
			return nil, common.NewPersistenceError("scan document", err)
		}
		docs = append(docs, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("list documents", err)
	}
	return docs, nil
}

// UpdateStatus moves a document through the processing state machine.
// Terminal states also stamp processed_at.
func (r *documentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.ProcessingStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE documents
		 SET status = $2,
		     processed_at = CASE WHEN $2 IN ('completed', 'failed') THEN now() ELSE processed_at END
		 WHERE id = $1`,
		id, status,
	)
	if err != nil {
		r.logger.Error("failed to update document status", "document_id", id, "status", status, "error", err)
		return common.NewPersistenceError("update document status", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError(fmt.Sprintf("document %s not found", id), nil)
	}
	return nil
}

func (r *documentRepository) UpdateExtractedText(ctx context.Context, id uuid.UUID, text string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE documents SET extracted_text = $2 WHERE id = $1`, id, text,
	)
	if err != nil {
		r.logger.Error("failed to update extracted text", "document_id", id, "error", err)
		return common.NewPersistenceError("update extracted text", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError(fmt.Sprintf("document %s not found", id), nil)
	}
	return nil
}
