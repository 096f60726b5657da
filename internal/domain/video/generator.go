package video

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// GenerationResult is the outcome of a synchronous generation run.
type GenerationResult struct {
	VideoURL      string
	OperationName string
}

// Generator starts generation operations and optionally polls them to
// completion. The synchronous mode is bounded: pollInterval between
// attempts, maxAttempts total, then a timeout error. A non-positive
// pollInterval skips the delay entirely, which keeps mock-backed test
// configurations fast.
type Generator struct {
	ops          OperationClient
	pollInterval time.Duration
	maxAttempts  int
	log          zerolog.Logger
}

func NewGenerator(ops OperationClient, pollInterval time.Duration, maxAttempts int, log zerolog.Logger) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = 60
	}
	return &Generator{
		ops:          ops,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		log:          log.With().Str("component", "video-generator").Logger(),
	}
}

// Start kicks off a generation operation and returns its handle without
// waiting for completion. This is the primary request path.
func (g *Generator) Start(ctx context.Context, prompt string) (string, error) {
	operationName, err := g.ops.StartGeneration(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("start generation: %w", err)
	}
	g.log.Info().Str("operation", operationName).Msg("generation operation started")
	return operationName, nil
}

// Generate starts an operation and polls it to completion, returning the
// upstream result URL. It fails with a timeout error after maxAttempts.
func (g *Generator) Generate(ctx context.Context, prompt string) (*GenerationResult, error) {
	operationName, err := g.Start(ctx, prompt)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		if attempt > 0 && g.pollInterval > 0 {
			timer := time.NewTimer(g.pollInterval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		status, err := g.ops.PollOperation(ctx, operationName)
		if err != nil {
			// Poll transport failure is transient; keep waiting.
			g.log.Warn().Err(err).Str("operation", operationName).Int("attempt", attempt+1).Msg("poll failed")
			continue
		}

		if !status.Done {
			continue
		}
		if status.Error != nil {
			return nil, fmt.Errorf("video generation failed: %w", status.Error)
		}
		url, err := ExtractVideoURL(status.Response)
		if err != nil {
			return nil, err
		}
		g.log.Info().Str("operation", operationName).Msg("video generated")
		return &GenerationResult{VideoURL: url, OperationName: operationName}, nil
	}

	return nil, fmt.Errorf("video generation timed out after %d attempts", g.maxAttempts)
}
