package video

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type fakeOps struct {
	startFunc func(ctx context.Context, prompt string) (string, error)
	pollFunc  func(ctx context.Context, operationName string) (*OperationStatus, error)
	fetchFunc func(ctx context.Context, url string) (io.ReadCloser, error)

	startCalls int
	pollCalls  int
}

func (f *fakeOps) StartGeneration(ctx context.Context, prompt string) (string, error) {
	f.startCalls++
	if f.startFunc != nil {
		return f.startFunc(ctx, prompt)
	}
	return "operations/test-1", nil
}

func (f *fakeOps) PollOperation(ctx context.Context, operationName string) (*OperationStatus, error) {
	f.pollCalls++
	if f.pollFunc != nil {
		return f.pollFunc(ctx, operationName)
	}
	return &OperationStatus{Name: operationName, Done: false}, nil
}

func (f *fakeOps) FetchVideo(ctx context.Context, url string) (io.ReadCloser, error) {
	if f.fetchFunc != nil {
		return f.fetchFunc(ctx, url)
	}
	return io.NopCloser(strings.NewReader("video bytes")), nil
}

func doneStatus(url string) *OperationStatus {
	return &OperationStatus{
		Done:     true,
		Response: &OperationResult{VideoURI: url},
	}
}

func TestGenerateReturnsURLWhenDone(t *testing.T) {
	ops := &fakeOps{
		pollFunc: func(ctx context.Context, name string) (*OperationStatus, error) {
			return doneStatus("https://example.com/v.mp4"), nil
		},
	}
	g := NewGenerator(ops, 0, 5, zerolog.Nop())

	result, err := g.Generate(context.Background(), "a swan")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.VideoURL != "https://example.com/v.mp4" {
		t.Errorf("VideoURL = %q", result.VideoURL)
	}
	if result.OperationName != "operations/test-1" {
		t.Errorf("OperationName = %q", result.OperationName)
	}
}

func TestGenerateBoundedAttempts(t *testing.T) {
	ops := &fakeOps{} // never done
	g := NewGenerator(ops, 0, 7, zerolog.Nop())

	_, err := g.Generate(context.Background(), "a tern")
	if err == nil {
		t.Fatal("Generate() expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out after 7 attempts") {
		t.Errorf("error = %v", err)
	}
	if ops.pollCalls != 7 {
		t.Errorf("pollCalls = %d, want 7", ops.pollCalls)
	}
}

func TestGenerateTransientPollErrorsConsumeAttempts(t *testing.T) {
	ops := &fakeOps{
		pollFunc: func(ctx context.Context, name string) (*OperationStatus, error) {
			return nil, errors.New("upstream 503")
		},
	}
	g := NewGenerator(ops, 0, 3, zerolog.Nop())

	_, err := g.Generate(context.Background(), "a gull")
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("Generate() error = %v, want timeout", err)
	}
	if ops.pollCalls != 3 {
		t.Errorf("pollCalls = %d, want 3", ops.pollCalls)
	}
}

func TestGenerateTerminalOperationError(t *testing.T) {
	ops := &fakeOps{
		pollFunc: func(ctx context.Context, name string) (*OperationStatus, error) {
			return &OperationStatus{
				Done:  true,
				Error: &OperationError{Code: 3, Message: "prompt rejected", Status: "INVALID_ARGUMENT"},
			}, nil
		},
	}
	g := NewGenerator(ops, 0, 5, zerolog.Nop())

	_, err := g.Generate(context.Background(), "a goose")
	if err == nil {
		t.Fatal("Generate() expected terminal error")
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("error %v does not wrap OperationError", err)
	}
	if opErr.Code != 3 {
		t.Errorf("Code = %d", opErr.Code)
	}
	if ops.pollCalls != 1 {
		t.Errorf("pollCalls = %d, want 1", ops.pollCalls)
	}
}

func TestGenerateNoResultURL(t *testing.T) {
	ops := &fakeOps{
		pollFunc: func(ctx context.Context, name string) (*OperationStatus, error) {
			return &OperationStatus{Done: true, Response: &OperationResult{}}, nil
		},
	}
	g := NewGenerator(ops, 0, 5, zerolog.Nop())

	_, err := g.Generate(context.Background(), "a merganser")
	if !errors.Is(err, ErrNoResultURL) {
		t.Errorf("Generate() error = %v, want ErrNoResultURL", err)
	}
}

func TestStartDoesNotPoll(t *testing.T) {
	ops := &fakeOps{}
	g := NewGenerator(ops, 0, 5, zerolog.Nop())

	name, err := g.Start(context.Background(), "an eagle")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if name != "operations/test-1" {
		t.Errorf("operation name = %q", name)
	}
	if ops.pollCalls != 0 {
		t.Errorf("pollCalls = %d, want 0", ops.pollCalls)
	}
}
