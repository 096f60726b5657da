package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"birdreel-server/internal/config"
	promptdomain "birdreel-server/internal/domain/prompt"
	"birdreel-server/internal/domain/video"
	"birdreel-server/utils/downloadtoken"
)

type stubRepo struct {
	records map[string]*video.Record
}

func (r *stubRepo) Create(ctx context.Context, rec *video.Record) error {
	r.records[rec.ID] = rec
	return nil
}

func (r *stubRepo) GetByID(ctx context.Context, id string) (*video.Record, error) {
	if rec, ok := r.records[id]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, video.ErrNotFound
}

func (r *stubRepo) List(ctx context.Context, limit int) ([]*video.Record, error) {
	out := make([]*video.Record, 0, len(r.records))
	for _, rec := range r.records {
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (r *stubRepo) FindInFlight(ctx context.Context, limit int) ([]*video.Record, error) {
	return nil, nil
}

func (r *stubRepo) FindAwaitingCopy(ctx context.Context, limit int) ([]*video.Record, error) {
	return nil, nil
}

func (r *stubRepo) MarkProcessing(ctx context.Context, id string) (bool, error) { return true, nil }
func (r *stubRepo) MarkCompleted(ctx context.Context, id, sourceURL string) (bool, error) {
	return true, nil
}
func (r *stubRepo) MarkDownloaded(ctx context.Context, id, key, url string, at int64) (bool, error) {
	return true, nil
}
func (r *stubRepo) MarkFailed(ctx context.Context, id, errMsg string) (bool, error) {
	return true, nil
}
func (r *stubRepo) StatusCounts(ctx context.Context) ([]video.StatusCount, error) {
	return []video.StatusCount{{Status: video.StatusDownloaded, Count: 1}}, nil
}

// stubStorage serves one in-memory object with byte-range support.
type stubStorage struct {
	key  string
	data []byte
}

func (s *stubStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error {
	return nil
}

func (s *stubStorage) Fetch(ctx context.Context, key string, byteRange *video.ByteRange) (*video.Object, error) {
	if key != s.key {
		return nil, errors.New("object not found")
	}
	total := int64(len(s.data))
	if byteRange == nil {
		return &video.Object{
			Body:        io.NopCloser(bytes.NewReader(s.data)),
			Size:        total,
			TotalSize:   total,
			ContentType: "video/mp4",
		}, nil
	}
	end := byteRange.End
	if end < 0 || end >= total {
		end = total - 1
	}
	slice := s.data[byteRange.Start : end+1]
	return &video.Object{
		Body:        io.NopCloser(bytes.NewReader(slice)),
		Size:        int64(len(slice)),
		TotalSize:   total,
		ContentType: "video/mp4",
		Partial:     true,
	}, nil
}

func (s *stubStorage) Health(ctx context.Context) error { return nil }

type stubOps struct{}

func (stubOps) StartGeneration(ctx context.Context, prompt string) (string, error) {
	return "operations/test", nil
}

func (stubOps) PollOperation(ctx context.Context, name string) (*video.OperationStatus, error) {
	return &video.OperationStatus{Name: name, Done: false}, nil
}

func (stubOps) FetchVideo(ctx context.Context, url string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("bytes")), nil
}

type stubPublisher struct{}

func (stubPublisher) Publish(ctx context.Context, msg *video.GenerationMessage) error { return nil }

type stubPromptRepo struct{}

func (stubPromptRepo) Save(ctx context.Context, p *promptdomain.Prompt) (string, error) {
	return p.ID, nil
}
func (stubPromptRepo) GetByID(ctx context.Context, id string) (*promptdomain.Prompt, error) {
	return nil, nil
}
func (stubPromptRepo) Top(ctx context.Context, limit int) ([]*promptdomain.Prompt, error) {
	return nil, nil
}

type stubIdeas struct{}

func (stubIdeas) GenerateIdeas(ctx context.Context) ([]promptdomain.Idea, error) { return nil, nil }

func newTestRouter(t *testing.T, repo video.Repository, storage video.Storage, secret string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		SweepBatchSize:      20,
		CopyBatchSize:       10,
		PollMaxAttempt:      5,
		DownloadTokenSecret: secret,
		DownloadTokenTTL:    time.Minute,
	}
	log := zerolog.Nop()
	videoService := video.NewService(cfg, repo, storage, stubOps{}, stubPublisher{}, log)
	promptService := promptdomain.NewService(stubPromptRepo{}, stubIdeas{}, log)
	signer := downloadtoken.NewSigner(secret, time.Minute)
	handler := NewVideoHandler(cfg, videoService, promptService, signer, log)

	engine := gin.New()
	engine.POST("/v1/videos", handler.Generate)
	engine.GET("/v1/videos", handler.List)
	engine.GET("/v1/videos/status", handler.Status)
	engine.GET("/v1/videos/:id", handler.Get)
	engine.GET("/v1/videos/:id/stream", handler.Stream)
	engine.GET("/v1/videos/:id/download", handler.Download)
	return engine
}

func downloadedRecord(id, key string) *video.Record {
	url := "/v1/videos/" + id + "/stream"
	at := time.Now().UnixMilli()
	return &video.Record{
		ID:           id,
		Status:       video.StatusDownloaded,
		StorageKey:   &key,
		VideoURL:     &url,
		CreatedAt:    at,
		DownloadedAt: &at,
	}
}

func TestGenerateReturnsAccepted(t *testing.T) {
	repo := &stubRepo{records: map[string]*video.Record{}}
	router := newTestRouter(t, repo, &stubStorage{}, "")

	body := strings.NewReader(`{"prompt":"a fluffy tern chick"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/videos", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool   `json:"success"`
		VideoID string `json:"videoId"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.VideoID == "" || resp.Status != "queued" {
		t.Errorf("response = %+v", resp)
	}
	if _, ok := repo.records[resp.VideoID]; !ok {
		t.Error("record not created")
	}
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	router := newTestRouter(t, &stubRepo{records: map[string]*video.Record{}}, &stubStorage{}, "")

	req := httptest.NewRequest(http.MethodPost, "/v1/videos", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestStreamRangeRequest(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i % 251)
	}
	storage := &stubStorage{key: "videos/v1/abc.mp4", data: data}
	repo := &stubRepo{records: map[string]*video.Record{
		"v1": downloadedRecord("v1", "videos/v1/abc.mp4"),
	}}
	router := newTestRouter(t, repo, storage, "")

	req := httptest.NewRequest(http.MethodGet, "/v1/videos/v1/stream", nil)
	req.Header.Set("Range", "bytes=100-199")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", w.Code)
	}
	if got := w.Header().Get("Content-Range"); got != "bytes 100-199/1000" {
		t.Errorf("Content-Range = %q", got)
	}
	if got := w.Body.Len(); got != 100 {
		t.Errorf("body length = %d, want 100", got)
	}
	if !bytes.Equal(w.Body.Bytes(), data[100:200]) {
		t.Error("body bytes do not match the requested range")
	}
}

func TestStreamFullRequest(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 512)
	storage := &stubStorage{key: "videos/v1/abc.mp4", data: data}
	repo := &stubRepo{records: map[string]*video.Record{
		"v1": downloadedRecord("v1", "videos/v1/abc.mp4"),
	}}
	router := newTestRouter(t, repo, storage, "")

	req := httptest.NewRequest(http.MethodGet, "/v1/videos/v1/stream", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q", got)
	}
	if w.Body.Len() != 512 {
		t.Errorf("body length = %d, want 512", w.Body.Len())
	}
}

func TestStreamNotAvailableBeforeCopy(t *testing.T) {
	repo := &stubRepo{records: map[string]*video.Record{
		"v1": {ID: "v1", Status: video.StatusCompleted, CreatedAt: time.Now().UnixMilli()},
	}}
	router := newTestRouter(t, repo, &stubStorage{}, "")

	req := httptest.NewRequest(http.MethodGet, "/v1/videos/v1/stream", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestStreamUnknownID(t *testing.T) {
	router := newTestRouter(t, &stubRepo{records: map[string]*video.Record{}}, &stubStorage{}, "")

	req := httptest.NewRequest(http.MethodGet, "/v1/videos/nope/stream", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetFailedVideoReturns424(t *testing.T) {
	msg := `{"code":13,"message":"synthesis failed","status":"INTERNAL"}`
	repo := &stubRepo{records: map[string]*video.Record{
		"v1": {ID: "v1", Status: video.StatusFailed, Error: &msg, CreatedAt: time.Now().UnixMilli()},
	}}
	router := newTestRouter(t, repo, &stubStorage{}, "")

	req := httptest.NewRequest(http.MethodGet, "/v1/videos/v1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusFailedDependency {
		t.Fatalf("status = %d, want 424", w.Code)
	}
	if !strings.Contains(w.Body.String(), "synthesis failed") {
		t.Errorf("body = %s, want stored error surfaced", w.Body.String())
	}
}

func TestDownloadRequiresValidToken(t *testing.T) {
	storage := &stubStorage{key: "videos/v1/abc.mp4", data: []byte("payload")}
	repo := &stubRepo{records: map[string]*video.Record{
		"v1": downloadedRecord("v1", "videos/v1/abc.mp4"),
	}}
	router := newTestRouter(t, repo, storage, "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/v1/videos/v1/download", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("without token: status = %d, want 401", w.Code)
	}

	signer := downloadtoken.NewSigner("test-secret", time.Minute)
	token, err := signer.Sign("v1")
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/videos/v1/download?token="+token, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("with token: status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "bird-v1.mp4") {
		t.Errorf("Content-Disposition = %q", got)
	}
}

func TestDownloadRedirectsToLegacyURL(t *testing.T) {
	legacy := "https://legacy.example.com/v1.mp4"
	repo := &stubRepo{records: map[string]*video.Record{
		"v1": {ID: "v1", Status: video.StatusCompleted, VideoURL: &legacy, CreatedAt: time.Now().UnixMilli()},
	}}
	router := newTestRouter(t, repo, &stubStorage{}, "")

	req := httptest.NewRequest(http.MethodGet, "/v1/videos/v1/download", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if got := w.Header().Get("Location"); got != legacy {
		t.Errorf("Location = %q", got)
	}
}

func TestListIncludesURLsForDownloaded(t *testing.T) {
	repo := &stubRepo{records: map[string]*video.Record{
		"v1": downloadedRecord("v1", "videos/v1/abc.mp4"),
	}}
	router := newTestRouter(t, repo, &stubStorage{key: "videos/v1/abc.mp4"}, "test-secret")

	req := httptest.NewRequest(http.MethodGet, "/v1/videos", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Videos []struct {
			ID          string `json:"id"`
			StreamURL   string `json:"stream_url"`
			DownloadURL string `json:"download_url"`
		} `json:"videos"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Videos) != 1 {
		t.Fatalf("videos = %d, want 1", len(resp.Videos))
	}
	if resp.Videos[0].StreamURL != "/v1/videos/v1/stream" {
		t.Errorf("stream_url = %q", resp.Videos[0].StreamURL)
	}
	if !strings.Contains(resp.Videos[0].DownloadURL, "?token=") {
		t.Errorf("download_url missing token: %q", resp.Videos[0].DownloadURL)
	}
}

func TestParseRangeHeader(t *testing.T) {
	tests := []struct {
		header  string
		want    *video.ByteRange
		wantErr bool
	}{
		{header: "", want: nil},
		{header: "bytes=0-499", want: &video.ByteRange{Start: 0, End: 499}},
		{header: "bytes=500-", want: &video.ByteRange{Start: 500, End: -1}},
		{header: "bytes=100-50", wantErr: true},
		{header: "bytes=a-b", wantErr: true},
		{header: "bytes=0-100,200-300", wantErr: true},
		{header: "items=0-100", wantErr: true},
	}

	for _, tt := range tests {
		got, err := parseRangeHeader(tt.header)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseRangeHeader(%q) expected error", tt.header)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseRangeHeader(%q) error = %v", tt.header, err)
			continue
		}
		if (got == nil) != (tt.want == nil) {
			t.Errorf("parseRangeHeader(%q) = %+v, want %+v", tt.header, got, tt.want)
			continue
		}
		if got != nil && (got.Start != tt.want.Start || got.End != tt.want.End) {
			t.Errorf("parseRangeHeader(%q) = %+v, want %+v", tt.header, got, tt.want)
		}
	}
}
