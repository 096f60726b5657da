package genai

import (
	"context"
	"fmt"
	"io"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"birdreel-server/internal/config"
	"birdreel-server/internal/domain/video"
)

// VeoClient drives long-running video generation operations against the
// generative language API.
type VeoClient struct {
	httpClient  *resty.Client
	fetchClient *resty.Client
	apiKey      string
	model       string
	log         zerolog.Logger
}

func NewVeoClient(cfg *config.Config, log zerolog.Logger) *VeoClient {
	return &VeoClient{
		httpClient: resty.New().
			SetBaseURL(cfg.GenAIAPIBase).
			SetHeader("Content-Type", "application/json").
			SetTimeout(cfg.GenAITimeout),
		// Video payloads are large; the fetch client parses nothing and
		// carries a longer timeout.
		fetchClient: resty.New().
			SetDoNotParseResponse(true).
			SetTimeout(cfg.FetchTimeout),
		apiKey: cfg.GenAIAPIKey,
		model:  cfg.VideoModel,
		log:    log.With().Str("component", "veo-client").Logger(),
	}
}

type predictRequest struct {
	Instances []predictInstance `json:"instances"`
}

type predictInstance struct {
	Prompt string `json:"prompt"`
}

// StartGeneration begins a long-running generation operation and returns
// its handle. The prompt is framed for short nature-documentary clips.
func (c *VeoClient) StartGeneration(ctx context.Context, prompt string) (string, error) {
	body := predictRequest{
		Instances: []predictInstance{{
			Prompt: fmt.Sprintf("A cute video of %s. Nature documentary style, high quality, adorable moments.", prompt),
		}},
	}

	var op video.OperationStatus
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", c.apiKey).
		SetBody(body).
		SetResult(&op).
		Post(fmt.Sprintf("/models/%s:predictLongRunning", c.model))
	if err != nil {
		return "", fmt.Errorf("start generation: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("generation api error: %d %s", resp.StatusCode(), resp.String())
	}
	if op.Name == "" {
		return "", fmt.Errorf("generation api returned no operation name")
	}

	c.log.Info().Str("operation", op.Name).Msg("generation operation started")
	return op.Name, nil
}

// PollOperation reads the current state of a long-running operation.
func (c *VeoClient) PollOperation(ctx context.Context, operationName string) (*video.OperationStatus, error) {
	var status video.OperationStatus
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", c.apiKey).
		SetResult(&status).
		Get("/" + operationName)
	if err != nil {
		return nil, fmt.Errorf("poll operation: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to poll operation: %d", resp.StatusCode())
	}
	return &status, nil
}

// FetchVideo streams the bytes behind an upstream result URL. The result
// URLs require the same credential used to start the generation.
func (c *VeoClient) FetchVideo(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := c.fetchClient.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", c.apiKey).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch video: %w", err)
	}
	if resp.IsError() {
		resp.RawBody().Close()
		return nil, fmt.Errorf("fetch video: upstream status %d", resp.StatusCode())
	}
	return resp.RawBody(), nil
}

var _ video.OperationClient = (*VeoClient)(nil)
