package prompt

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "birdreel-server/internal/domain/prompt"
	"birdreel-server/internal/infrastructure/database/entities"
)

// Repository handles prompt persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Save stores a prompt, deduplicating by prompt text hash. On a duplicate
// the existing id is returned.
func (r *Repository) Save(ctx context.Context, p *domain.Prompt) (string, error) {
	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(p.Prompt)))

	var existing entities.Prompt
	err := r.db.WithContext(ctx).Where("prompt_hash = ?", hash).First(&existing).Error
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("find prompt by hash: %w", err)
	}

	entity, err := toEntity(p, hash)
	if err != nil {
		return "", err
	}
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return "", fmt.Errorf("create prompt: %w", err)
	}
	return entity.ID, nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Prompt, error) {
	var entity entities.Prompt
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get prompt: %w", err)
	}
	p, err := toDomain(entity)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Top returns the highest scoring prompts by cuteness.
func (r *Repository) Top(ctx context.Context, limit int) ([]*domain.Prompt, error) {
	var rows []entities.Prompt
	err := r.db.WithContext(ctx).
		Order("cuteness_score DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("top prompts: %w", err)
	}

	prompts := make([]*domain.Prompt, 0, len(rows))
	for _, row := range rows {
		p, err := toDomain(row)
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

func toEntity(p *domain.Prompt, hash string) (entities.Prompt, error) {
	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return entities.Prompt{}, fmt.Errorf("marshal tags: %w", err)
	}
	species, err := json.Marshal(p.Species)
	if err != nil {
		return entities.Prompt{}, fmt.Errorf("marshal species: %w", err)
	}
	return entities.Prompt{
		ID:              p.ID,
		Prompt:          p.Prompt,
		PromptHash:      hash,
		CutenessScore:   p.CutenessScore,
		AlignmentScore:  p.AlignmentScore,
		VisualScore:     p.VisualScore,
		UniquenessScore: p.UniquenessScore,
		UsageCount:      p.UsageCount,
		Style:           p.Style,
		Tags:            datatypes.JSON(tags),
		Species:         datatypes.JSON(species),
	}, nil
}

func toDomain(entity entities.Prompt) (*domain.Prompt, error) {
	var tags, species []string
	if len(entity.Tags) > 0 {
		if err := json.Unmarshal(entity.Tags, &tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if len(entity.Species) > 0 {
		if err := json.Unmarshal(entity.Species, &species); err != nil {
			return nil, fmt.Errorf("unmarshal species: %w", err)
		}
	}
	return &domain.Prompt{
		ID:              entity.ID,
		Prompt:          entity.Prompt,
		CutenessScore:   entity.CutenessScore,
		AlignmentScore:  entity.AlignmentScore,
		VisualScore:     entity.VisualScore,
		UniquenessScore: entity.UniquenessScore,
		UsageCount:      entity.UsageCount,
		Style:           entity.Style,
		Tags:            tags,
		Species:         species,
		CreatedAt:       entity.CreatedAt,
	}, nil
}
