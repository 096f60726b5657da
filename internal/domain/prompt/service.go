package prompt

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"birdreel-server/utils/idgen"
)

// Service refreshes the prompt pool from the upstream idea generator and
// serves the highest scoring prompts to the gallery.
type Service struct {
	repo  Repository
	ideas IdeaClient
	log   zerolog.Logger
}

func NewService(repo Repository, ideas IdeaClient, log zerolog.Logger) *Service {
	return &Service{
		repo:  repo,
		ideas: ideas,
		log:   log.With().Str("component", "prompt-service").Logger(),
	}
}

// Refresh generates a batch of new prompt ideas and persists them,
// deduplicating against existing prompts. Returns the number stored.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	ideas, err := s.ideas.GenerateIdeas(ctx)
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, idea := range ideas {
		p := &Prompt{
			ID:              idgen.NewPromptID(),
			Prompt:          idea.Prompt,
			CutenessScore:   idea.CutenessScore,
			AlignmentScore:  idea.AlignmentScore,
			VisualScore:     idea.VisualScore,
			UniquenessScore: idea.UniquenessScore,
			Style:           classifyStyle(idea.Prompt),
			Tags:            idea.Tags,
			Species:         idea.Species,
			CreatedAt:       time.Now().UnixMilli(),
		}
		if _, err := s.repo.Save(ctx, p); err != nil {
			s.log.Error().Err(err).Str("prompt", idea.Prompt).Msg("save prompt failed")
			continue
		}
		stored++
	}

	s.log.Info().Int("stored", stored).Int("generated", len(ideas)).Msg("prompt pool refreshed")
	return stored, nil
}

// Get returns one prompt by id, or nil when unknown.
func (s *Service) Get(ctx context.Context, id string) (*Prompt, error) {
	return s.repo.GetByID(ctx, id)
}

// Top returns the highest scoring prompts.
func (s *Service) Top(ctx context.Context, limit int) ([]*Prompt, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.Top(ctx, limit)
}

func classifyStyle(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "cartoon"):
		return "cartoon"
	case strings.Contains(lower, "realistic"):
		return "realistic"
	default:
		return "mixed"
	}
}
