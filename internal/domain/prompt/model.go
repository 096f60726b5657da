package prompt

import "context"

// Prompt is a stored video prompt idea with its quality scores.
type Prompt struct {
	ID              string   `json:"id"`
	Prompt          string   `json:"prompt"`
	CutenessScore   float64  `json:"cuteness_score"`
	AlignmentScore  float64  `json:"alignment_score"`
	VisualScore     float64  `json:"visual_appeal_score"`
	UniquenessScore float64  `json:"uniqueness_score"`
	UsageCount      int      `json:"usage_count"`
	Style           string   `json:"style"`
	Tags            []string `json:"tags"`
	Species         []string `json:"species"`
	CreatedAt       int64    `json:"created_at"`
}

// Idea is one generated prompt candidate before persistence.
type Idea struct {
	Prompt          string   `json:"prompt"`
	CutenessScore   float64  `json:"cutenessScore"`
	AlignmentScore  float64  `json:"alignmentScore"`
	VisualScore     float64  `json:"visualAppealScore"`
	UniquenessScore float64  `json:"uniquenessScore"`
	Reasoning       string   `json:"reasoning"`
	Tags            []string `json:"tags"`
	Species         []string `json:"species"`
}

// Repository defines prompt persistence. Save deduplicates by prompt text
// hash and returns the existing id on a duplicate.
type Repository interface {
	Save(ctx context.Context, p *Prompt) (string, error)
	GetByID(ctx context.Context, id string) (*Prompt, error)
	Top(ctx context.Context, limit int) ([]*Prompt, error)
}

// IdeaClient generates new prompt ideas from the upstream model.
type IdeaClient interface {
	GenerateIdeas(ctx context.Context) ([]Idea, error)
}
