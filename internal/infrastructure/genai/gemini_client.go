package genai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"birdreel-server/internal/config"
	"birdreel-server/internal/domain/prompt"
)

const ideaSystemPrompt = `You are a creative AI specialized in generating adorable bird video prompts featuring Northern German Baltic coastal species.

Generate exactly 10 unique video prompt ideas with these requirements:
1. Focus on Baltic coastal birds: Common Eider, Great Cormorant, Mute Swan, Common Tern, Eurasian Oystercatcher, Common Gull, Red-breasted Merganser, Barnacle Goose, White-tailed Eagle
2. Mix realistic and cartoon-like styles
3. Emphasize cuteness factors: baby birds, fluffy feathers, playful behavior, group activities
4. Include Baltic settings: beaches, coastal marshes, cliff colonies, harbor scenes

For each prompt, provide:
- The prompt text (10-20 words, vivid and specific)
- Cuteness score (1-10): How adorable the resulting video would be
- Alignment score (1-10): How well it fits Baltic coastal bird theme
- Visual appeal score (1-10): How visually interesting it would be
- Uniqueness score (1-10): How novel and creative the concept is
- Brief reasoning for scores
- Relevant tags
- Species featured

Return as JSON array of objects.`

// GeminiClient generates new prompt ideas with a text model.
type GeminiClient struct {
	httpClient *resty.Client
	apiKey     string
	model      string
	log        zerolog.Logger
}

func NewGeminiClient(cfg *config.Config, log zerolog.Logger) *GeminiClient {
	return &GeminiClient{
		httpClient: resty.New().
			SetBaseURL(cfg.GenAIAPIBase).
			SetHeader("Content-Type", "application/json").
			SetTimeout(cfg.GenAITimeout),
		apiKey: cfg.GenAIAPIKey,
		model:  cfg.PromptModel,
		log:    log.With().Str("component", "gemini-client").Logger(),
	}
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	ResponseMimeType string  `json:"responseMimeType"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// GenerateIdeas asks the model for a fresh batch of scored prompt ideas.
func (c *GeminiClient) GenerateIdeas(ctx context.Context) ([]prompt.Idea, error) {
	body := generateContentRequest{
		Contents: []content{{
			Parts: []part{{
				Text: ideaSystemPrompt + "\n\nGenerate 10 unique bird video prompts following the requirements above. Return as a JSON array.",
			}},
		}},
		GenerationConfig: generationConfig{
			Temperature:      0.9,
			MaxOutputTokens:  4000,
			ResponseMimeType: "application/json",
		},
	}

	var result generateContentResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", c.apiKey).
		SetBody(body).
		SetResult(&result).
		Post(fmt.Sprintf("/models/%s:generateContent", c.model))
	if err != nil {
		return nil, fmt.Errorf("generate ideas: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("idea api error: %d %s", resp.StatusCode(), resp.String())
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("idea api returned no candidates")
	}

	var ideas []prompt.Idea
	raw := result.Candidates[0].Content.Parts[0].Text
	if err := json.Unmarshal([]byte(raw), &ideas); err != nil {
		return nil, fmt.Errorf("parse idea payload: %w", err)
	}

	c.log.Info().Int("count", len(ideas)).Msg("prompt ideas generated")
	return ideas, nil
}

var _ prompt.IdeaClient = (*GeminiClient)(nil)
