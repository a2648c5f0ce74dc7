package repository

import (
	"context"
	"encoding/json"
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

const templateColumns = `id, name, keywords, fields, created_at, updated_at`

type TemplateRepository interface {
	Create(ctx context.Context, t *entity.DiseaseTemplate) error
	Update(ctx context.Context, t *entity.DiseaseTemplate) error
	// UpsertByName inserts the template or, when the name is taken,
	// replaces that template's keywords and fields. Used by seeding.
	UpsertByName(ctx context.Context, t *entity.DiseaseTemplate) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.DiseaseTemplate, error)
	List(ctx context.Context) ([]entity.DiseaseTemplate, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type templateRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewTemplateRepository(pool *pgxpool.Pool, logger *slog.Logger) TemplateRepository {
	return &templateRepository{
		pool:   pool,
		logger: logger,
	}
}

func (r *templateRepository) Create(ctx context.Context, t *entity.DiseaseTemplate) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	fields, err := json.Marshal(t.Fields)
	if err != nil {
		return common.NewPersistenceError("encode template fields", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO disease_templates (id, name, keywords, fields, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Name, t.Keywords, fields, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert template", "template_id", t.ID, "name", t.Name, "error", err)
		return common.NewPersistenceError("insert template", err)
	}
	return nil
}

func (r *templateRepository) Update(ctx context.Context, t *entity.DiseaseTemplate) error {
	t.UpdatedAt = time.Now().UTC()
	fields, err := json.Marshal(t.Fields)
	if err != nil {
		return common.NewPersistenceError("encode template fields", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE disease_templates SET name = $2, keywords = $3, fields = $4, updated_at = $5 WHERE id = $1`,
		t.ID, t.Name, t.Keywords, fields, t.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to update template", "template_id", t.ID, "error", err)
		return common.NewPersistenceError("update template", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError(fmt.Sprintf("template %s not found", t.ID), nil)
	}
	return nil
}

func (r *templateRepository) UpsertByName(ctx context.Context, t *entity.DiseaseTemplate) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	fields, err := json.Marshal(t.Fields)
	if err != nil {
		return common.NewPersistenceError("encode template fields", err)
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO disease_templates (id, name, keywords, fields)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE
		 SET keywords = EXCLUDED.keywords, fields = EXCLUDED.fields, updated_at = now()
		 RETURNING id, created_at, updated_at`,
		t.ID, t.Name, t.Keywords, fields,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to upsert template", "name", t.Name, "error", err)
		return common.NewPersistenceError("upsert template", err)
	}
	return nil
}

func (r *templateRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.DiseaseTemplate, error) {
	var (
		t      entity.DiseaseTemplate
		fields []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT `+templateColumns+` FROM disease_templates WHERE id = $1`, id,
	).Scan(&t.ID, &t.Name, &t.Keywords, &fields, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.NewNotFoundError(fmt.Sprintf("template %s not found", id), err)
	}
	if err != nil {
		return nil, common.NewPersistenceError("get template", err)
	}
	if err := json.Unmarshal(fields, &t.Fields); err != nil {
		return nil, common.NewPersistenceError("decode template fields", err)
	}
	return &t, nil
}

func (r *templateRepository) List(ctx context.Context) ([]entity.DiseaseTemplate, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+templateColumns+` FROM disease_templates ORDER BY name`,
	)
	if err != nil {
		r.logger.Error("failed to list templates", "error", err)
		return nil, common.NewPersistenceError("list templates", err)
	}
	defer rows.Close()

	var templates []entity.DiseaseTemplate
	for rows.Next() {
		var (
			t      entity.DiseaseTemplate
			fields []byte
		)
		if err := rows.Scan(&t.ID, &t.Name, &t.Keywords, &fields, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, common.NewPersistenceError("scan template", err)
		}
		if err := json.Unmarshal(fields, &t.Fields); err != nil {
			return nil, common.NewPersistenceError("decode template fields", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewPersistenceError("list templates", err)
	}
	return templates, nil
}

func (r *templateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM disease_templates WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("failed to delete template", "template_id", id, "error", err)
		return common.NewPersistenceError("delete template", err)
	}
	if tag.RowsAffected() == 0 {
		return common.NewNotFoundError(fmt.Sprintf("template %s not found", id), nil)
	}
	return nil
}
