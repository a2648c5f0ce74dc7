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

	"github.com/clinovia/medextract/internal/common"
	"github.com/clinovia/medextract/internal/entity"
)

type PatientRepository interface {
	Create(ctx context.Context, p *entity.Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Patient, error)
	List(ctx context.Context) ([]*entity.Patient, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type patientRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPatientRepository(pool *pgxpool.Pool, logger *slog.Logger) PatientRepository {
	return &patientRepository{
		pool:   pool,
		logger: logger,
	}
}

func (r *patientRepository) Create(ctx context.Context, p *entity.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := r.pool.Exec(ctx,
		`INSERT INTO patients (id, full_name, external_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.FullName, p.ExternalID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create patient", "name", p.FullName, "error", err)
		return common.NewPersistenceError("insert patient", err)
	}
	return nil
}

func (r *patientRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Patient, error) {
	var p entity.Patient
	err := r.pool.QueryRow(ctx,
		`SELECT id, full_name, external_id, created_at, updated_at FROM patients WHERE id = $1`, id,
	).Scan(&p.ID, &p.FullName, &p.ExternalID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError(fmt.Sprintf("patient %s not found", id), err)
	}
	if err != nil {
		return nil, common.NewPersistenceError("get patient", err)
	}
	return &p, nil
}

func (r *patientRepository) List(ctx context.Context) ([]*entity.Patient, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, full_name, external_id, created_at, updated_at FROM patients ORDER BY created_at`,
	)
	if err != nil {
		r.logger.Error("failed to list patients", "error", err)
		return nil, common.NewPersistenceError("list patients", err)
	}
	defer rows.Close()

	var patients []*entity.Patient
	for rows.Next() {
		var p entity.Patient
		if err := rows.Scan(&p.ID, &p.FullName, &p.ExternalID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, common.NewPersistenceError("scan patient", err)
		}
		patients = append(patients, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("list patients", err)
	}
	return patients, nil
}

func (r *patientRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM patients WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		r.logger.Error("failed to check patient existence", "patient_id", id, "error", err)
		return false, common.NewPersistenceError("check patient existence", err)
	}
	return exists, nil
}
