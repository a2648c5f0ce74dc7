// Package templates manages disease template definitions: JSON import,
// lookup and seeding.
package templates

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/clinovia/medextract/constants"
	"github.com/clinovia/medextract/internal/common"
	"github.com/clinovia/medextract/internal/entity"
	"github.com/clinovia/medextract/internal/repository"
)

//go:embed seed.json
var defaultSeed []byte

// TemplateInput is the wire shape of an imported template definition.
type TemplateInput struct {
	Name     string       `json:"name"`
	Keywords []string     `json:"keywords"`
	Fields   []FieldInput `json:"fields,omitempty"`
}

type FieldInput struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required,omitempty"`
	Pattern  string `json:"pattern,omitempty"`
}

type Service struct {
	repo   repository.TemplateRepository
	logger *slog.Logger
}

func NewService(repo repository.TemplateRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Import validates a template definition and stores it as a new template.
func (s *Service) Import(ctx context.Context, raw []byte) (*entity.DiseaseTemplate, error) {
	t, err := parseTemplate(raw)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("template imported", "template_id", t.ID, "name", t.Name, "keywords", len(t.Keywords), "fields", len(t.Fields))
	return t, nil
}

// Update replaces an existing template's definition.
func (s *Service) Update(ctx context.Context, id uuid.UUID, raw []byte) (*entity.DiseaseTemplate, error) {
	t, err := parseTemplate(raw)
	if err != nil {
		return nil, err
	}
	t.ID = id
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info("template updated", "template_id", t.ID, "name", t.Name)
	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*entity.DiseaseTemplate, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]entity.DiseaseTemplate, error) {
	return s.repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("template deleted", "template_id", id)
	return nil
}

// Seed upserts template definitions by name from a JSON array at path,
// or from the built-in set when path is empty. Returns the number of
// templates applied.
func (s *Service) Seed(ctx context.Context, path string) (int, error) {
	raw := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("read seed file: %w", err)
		}
		raw = b
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return 0, common.NewInvalidArgumentError(fmt.Sprintf("seed file must be a JSON array of templates: %v", err))
	}

	n := 0
	for i, item := range items {
		t, err := parseTemplate(item)
		if err != nil {
			return n, fmt.Errorf("seed template %d: %w", i, err)
		}
		if err := s.repo.UpsertByName(ctx, t); err != nil {
			return n, err
		}
		s.logger.Info("template seeded", "template_id", t.ID, "name", t.Name)
		n++
	}
	return n, nil
}

// parseTemplate validates raw against the import schema and converts it
// to an entity, rejecting unknown field types, duplicate field names and
// patterns that do not compile.
func parseTemplate(raw []byte) (*entity.DiseaseTemplate, error) {
	if err := ValidateJSONAgainstSchema(BuildTemplateJSONSchema(), raw); err != nil {
		return nil, common.NewInvalidArgumentError(err.Error())
	}
	var in TemplateInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, common.NewInvalidArgumentError(err.Error())
	}

	validator := common.NewValidator()
	validator.Field("name", in.Name, common.Required)
	for _, f := range in.Fields {
		validator.Field(fmt.Sprintf("fields.%s.pattern", f.Name), f.Pattern, common.Regexp)
	}
	if err := common.ValidateAndReturnError(validator); err != nil {
		return nil, err
	}

	t := &entity.DiseaseTemplate{Name: strings.TrimSpace(in.Name)}

	seenKeywords := map[string]struct{}{}
	for _, kw := range in.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if _, dup := seenKeywords[key]; dup {
			continue
		}
		seenKeywords[key] = struct{}{}
		t.Keywords = append(t.Keywords, kw)
	}
	if len(t.Keywords) == 0 {
		return nil, common.NewInvalidArgumentError("at least one keyword is required")
	}

	seenFields := map[string]struct{}{}
	for _, f := range in.Fields {
		name := strings.TrimSpace(f.Name)
		ft, ok := constants.ParseFieldType(f.Type)
		if !ok {
			return nil, common.InvalidArgumentErrorf("field %q: unknown type %q", name, f.Type)
		}
		if _, dup := seenFields[name]; dup {
			return nil, common.InvalidArgumentErrorf("field %q: duplicate name", name)
		}
		seenFields[name] = struct{}{}
		t.Fields = append(t.Fields, entity.FieldSpec{
			Name:     name,
			Type:     ft,
			Required: f.Required,
			Pattern:  f.Pattern,
		})
	}
	return t, nil
}
