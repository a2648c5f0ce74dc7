package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinovia/medextract/internal/common"
	"github.com/clinovia/medextract/internal/entity"
)

const recordColumns = `id, document_id, patient_id, template_id, disease_name, data, confidence, verified, created_at`

// ListRecordsFilter narrows List; nil fields are ignored.
type ListRecordsFilter struct {
	PatientID  *uuid.UUID
	TemplateID *uuid.UUID
	FromDate   *time.Time
	ToDate     *time.Time
}

type RecordRepository interface {
	Create(ctx context.Context, rec *entity.MedicalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.MedicalRecord, error)
	ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.MedicalRecord, error)
	List(ctx context.Context, filter ListRecordsFilter) ([]*entity.MedicalRecord, error)
	SetVerified(ctx context.Context, id uuid.UUID, verified bool) error
}

type recordRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewRecordRepository(pool *pgxpool.Pool, logger *slog.Logger) RecordRepository {
	return &recordRepository{
		pool:   pool,
		logger: logger,
	}
}

func (r *recordRepository) Create(ctx context.Context, rec *entity.MedicalRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(rec.Data)
	if err != nil {
		return common.NewPersistenceError("encode record data", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO medical_records (id, document_id, patient_id, template_id, disease_name, data, confidence, verified, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.DocumentID, rec.PatientID, rec.TemplateID, rec.DiseaseName, data, rec.Confidence, rec.Verified, rec.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert medical record", "record_id", rec.ID, "document_id", rec.DocumentID, "error", err)
		return common.NewPersistenceError("insert medical record", err)
	}
	return nil
}

func (r *recordRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.MedicalRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM medical_records WHERE id = $1`, id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError(fmt.Sprintf("medical record %s not found", id), err)
	}
	if err != nil {
		return nil, common.NewPersistenceError("get medical record", err)
	}
	return rec, nil
}

func (r *recordRepository) ListByDocument(ctx context.Context, documentID uuid.UUID) ([]*entity.MedicalRecord, error) {
	return r.list(ctx,
		`SELECT `+recordColumns+` FROM medical_records WHERE document_id = $1 ORDER BY created_at`,
		documentID,
	)
}

func (r *recordRepository) List(ctx context.Context, filter ListRecordsFilter) ([]*entity.MedicalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM medical_records`
	var (
		conds []string
		args  []any
	)
	if filter.PatientID != nil {
		args = append(args, *filter.PatientID)
		conds = append(conds, fmt.Sprintf("patient_id = $%d", len(args)))
	}
	if filter.TemplateID != nil {
		args = append(args, *filter.TemplateID)
		conds = append(conds, fmt.Sprintf("template_id = $%d", len(args)))
	}
	if filter.FromDate != nil {
		args = append(args, *filter.FromDate)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.ToDate != nil {
		args = append(args, *filter.ToDate)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at"

	return r.list(ctx, query, args...)
}

func (r *recordRepository) list(ctx context.Context, query string, args ...any) ([]*entity.MedicalRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list medical records", "error", err)
		return nil, common.NewPersistenceError("list medical records", err)
	}
	defer rows.Close()

	var recs []*entity.MedicalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, common.NewPersistenceError("scan medical record", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("list medical records", err)
	}
	return recs, nil
}

func (r *recordRepository) SetVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE medical_records SET verified = $2 WHERE id = $1`, id, verified,
	)
	if err != nil {
		r.logger.Error("failed to update record verification", "record_id", id, "error", err)
		return common.NewPersistenceError("update record verification", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError(fmt.Sprintf("medical record %s not found", id), nil)
	}
	return nil
}

func scanRecord(row pgx.Row) (*entity.MedicalRecord, error) {
	var (
		rec  entity.MedicalRecord
		data []byte
	)
	err := row.Scan(&rec.ID, &rec.DocumentID, &rec.PatientID, &rec.TemplateID, &rec.DiseaseName, &data, &rec.Confidence, &rec.Verified, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &rec.Data); err != nil {
		return nil, fmt.Errorf("decode record data: %w", err)
	}
	return &rec, nil
}
