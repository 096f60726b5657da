package genai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"birdreel-server/internal/config"
)

func testClient(t *testing.T, handler http.Handler) (*VeoClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		GenAIAPIBase: server.URL,
		GenAIAPIKey:  "test-api-key",
		VideoModel:   "veo-3.0-generate-001",
		GenAITimeout: 5 * time.Second,
		FetchTimeout: 5 * time.Second,
	}
	return NewVeoClient(cfg, zerolog.Nop()), server
}

func TestStartGeneration(t *testing.T) {
	var gotPath, gotKey string
	var gotBody predictRequest

	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"name": "operations/abc123", "done": false})
	}))

	name, err := client.StartGeneration(context.Background(), "a baby swan learning to paddle")
	if err != nil {
		t.Fatalf("StartGeneration() error = %v", err)
	}
	if name != "operations/abc123" {
		t.Errorf("operation name = %q", name)
	}
	if gotPath != "/models/veo-3.0-generate-001:predictLongRunning" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-api-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if len(gotBody.Instances) != 1 || !strings.Contains(gotBody.Instances[0].Prompt, "a baby swan learning to paddle") {
		t.Errorf("request body = %+v", gotBody)
	}
}

func TestStartGenerationUpstreamError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":429}}`, http.StatusTooManyRequests)
	}))

	if _, err := client.StartGeneration(context.Background(), "a gull"); err == nil {
		t.Fatal("StartGeneration() expected error on 429")
	}
}

func TestStartGenerationMissingOperationName(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	if _, err := client.StartGeneration(context.Background(), "a gull"); err == nil {
		t.Fatal("StartGeneration() expected error on empty operation name")
	}
}

func TestPollOperation(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/operations/abc123" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"name":"operations/abc123","done":true,"response":{"videoUri":"https://example.com/v.mp4"}}`))
	}))

	status, err := client.PollOperation(context.Background(), "operations/abc123")
	if err != nil {
		t.Fatalf("PollOperation() error = %v", err)
	}
	if !status.Done {
		t.Error("Done = false")
	}
	if status.Response == nil || status.Response.VideoURI != "https://example.com/v.mp4" {
		t.Errorf("Response = %+v", status.Response)
	}
}

func TestPollOperationTransportFailureIsError(t *testing.T) {
	client, server := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	if _, err := client.PollOperation(context.Background(), "operations/abc123"); err == nil {
		t.Fatal("PollOperation() expected error after server close")
	}
}

func TestPollOperationNon2xxIsError(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	if _, err := client.PollOperation(context.Background(), "operations/abc123"); err == nil {
		t.Fatal("PollOperation() expected error on 500")
	}
}

func TestFetchVideoStreamsBody(t *testing.T) {
	payload := strings.Repeat("x", 4096)
	client, server := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "test-api-key" {
			t.Errorf("api key header = %q", got)
		}
		w.Header().Set("Content-Type", "video/mp4")
		w.Write([]byte(payload))
	}))

	body, err := client.FetchVideo(context.Background(), server.URL+"/files/v.mp4")
	if err != nil {
		t.Fatalf("FetchVideo() error = %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if len(data) != len(payload) {
		t.Errorf("body length = %d, want %d", len(data), len(payload))
	}
}

func TestFetchVideoUpstreamError(t *testing.T) {
	client, server := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))

	if _, err := client.FetchVideo(context.Background(), server.URL+"/files/v.mp4"); err == nil {
		t.Fatal("FetchVideo() expected error on 410")
	}
}
