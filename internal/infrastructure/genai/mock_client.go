package genai

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"birdreel-server/internal/domain/prompt"
	"birdreel-server/internal/domain/video"
)

// MockClient simulates the generative API for development and integration
// tests. Operations complete after a fixed number of polls.
type MockClient struct {
	mu        sync.Mutex
	polls     map[string]int
	pollsDone int
	log       zerolog.Logger
}

func NewMockClient(log zerolog.Logger) *MockClient {
	return &MockClient{
		polls:     make(map[string]int),
		pollsDone: 2,
		log:       log.With().Str("component", "mock-genai").Logger(),
	}
}

func (c *MockClient) StartGeneration(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := fmt.Sprintf("operations/mock-%d", len(c.polls)+1)
	c.polls[name] = 0
	c.log.Info().Str("operation", name).Str("prompt", prompt).Msg("mock generation started")
	return name, nil
}

func (c *MockClient) PollOperation(ctx context.Context, operationName string) (*video.OperationStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.polls[operationName]++
	if c.polls[operationName] < c.pollsDone {
		return &video.OperationStatus{Name: operationName, Done: false}, nil
	}
	return &video.OperationStatus{
		Name: operationName,
		Done: true,
		Response: &video.OperationResult{
			VideoURI: "mock://" + operationName + "/video.mp4",
		},
	}, nil
}

func (c *MockClient) FetchVideo(ctx context.Context, url string) (io.ReadCloser, error) {
	payload := strings.Repeat("mock video bytes ", 64)
	return io.NopCloser(strings.NewReader(payload)), nil
}

// GenerateIdeas returns a small fixed idea batch.
func (c *MockClient) GenerateIdeas(ctx context.Context) ([]prompt.Idea, error) {
	return []prompt.Idea{
		{
			Prompt:          "Fluffy eider ducklings tumbling down a Baltic beach dune at sunrise",
			CutenessScore:   9.5,
			AlignmentScore:  9.0,
			VisualScore:     8.5,
			UniquenessScore: 7.0,
			Tags:            []string{"baby-birds", "beach"},
			Species:         []string{"Common Eider"},
		},
		{
			Prompt:          "Cartoon oystercatcher chicks racing tiny crabs across wet harbor sand",
			CutenessScore:   8.5,
			AlignmentScore:  8.0,
			VisualScore:     9.0,
			UniquenessScore: 8.5,
			Tags:            []string{"cartoon", "harbor"},
			Species:         []string{"Eurasian Oystercatcher"},
		},
	}, nil
}

var (
	_ video.OperationClient = (*MockClient)(nil)
	_ prompt.IdeaClient     = (*MockClient)(nil)
)
