package video

import (
	"context"
	"errors"
	"io"
)

// Status is the workflow state of a video record.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusDownloaded Status = "downloaded"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusDownloaded || s == StatusFailed
}

// Record is one requested video and its generation lifecycle state.
// Timestamps are epoch milliseconds. SourceURL is the ephemeral upstream
// result URL; StorageKey is set once the bytes live in durable storage.
type Record struct {
	ID            string  `json:"id"`
	PromptID      *string `json:"prompt_id,omitempty"`
	OperationName *string `json:"operation_name,omitempty"`
	Status        Status  `json:"status"`
	SourceURL     *string `json:"source_url,omitempty"`
	StorageKey    *string `json:"storage_key,omitempty"`
	VideoURL      *string `json:"video_url,omitempty"`
	Error         *string `json:"error,omitempty"`
	Duration      int     `json:"duration"`
	CreatedAt     int64   `json:"created_at"`
	DownloadedAt  *int64  `json:"downloaded_at,omitempty"`
}

// Downloadable reports whether the record can be served from durable storage.
func (r *Record) Downloadable() bool {
	return r.StorageKey != nil && *r.StorageKey != ""
}

// GenerateRequest is the payload for requesting a new video.
type GenerateRequest struct {
	PromptID *string `json:"prompt_id,omitempty"`
	Prompt   string  `json:"prompt" binding:"required"`
	Duration int     `json:"duration"`
}

// StatusCount is one row of the per-status summary.
type StatusCount struct {
	Status Status `json:"status"`
	Count  int64  `json:"count"`
}

// ErrNotFound is returned for unknown video ids.
var ErrNotFound = errors.New("video not found")

// Repository defines persistence operations needed by the service.
// All Mark* writes are precondition-checked single-row updates; they return
// (false, nil) when the precondition no longer holds, which callers treat as
// "another invocation got there first" and not an error.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit int) ([]*Record, error)
	// FindInFlight returns up to limit pending/processing records that have
	// an operation handle.
	FindInFlight(ctx context.Context, limit int) ([]*Record, error)
	// FindAwaitingCopy returns up to limit completed records whose durable
	// copy has not happened yet.
	FindAwaitingCopy(ctx context.Context, limit int) ([]*Record, error)
	MarkProcessing(ctx context.Context, id string) (bool, error)
	MarkCompleted(ctx context.Context, id, sourceURL string) (bool, error)
	MarkDownloaded(ctx context.Context, id, storageKey, videoURL string, downloadedAt int64) (bool, error)
	MarkFailed(ctx context.Context, id, errMsg string) (bool, error)
	StatusCounts(ctx context.Context) ([]StatusCount, error)
}

// ByteRange selects a half-open byte window of a stored object.
// End < 0 means "to the end of the object".
type ByteRange struct {
	Start int64
	End   int64
}

// Object is the result of a durable storage fetch.
type Object struct {
	Body        io.ReadCloser
	Size        int64  // bytes in Body
	TotalSize   int64  // full object size
	ContentType string
	Partial     bool
}

// Storage defines durable object storage operations. Uploads must stream;
// keys are never overwritten.
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) error
	Fetch(ctx context.Context, key string, byteRange *ByteRange) (*Object, error)
	Health(ctx context.Context) error
}

// OperationClient talks to the external generation service.
type OperationClient interface {
	// StartGeneration kicks off a long-running generation operation and
	// returns its opaque handle.
	StartGeneration(ctx context.Context, prompt string) (string, error)
	// PollOperation reads the state of a long-running operation. A returned
	// error means the poll itself failed (transient); a terminal generation
	// failure is reported through OperationStatus.Error with Done true.
	PollOperation(ctx context.Context, operationName string) (*OperationStatus, error)
	// FetchVideo streams the bytes behind an upstream result URL,
	// authenticated with the generation credential.
	FetchVideo(ctx context.Context, url string) (io.ReadCloser, error)
}

// Publisher enqueues generation messages for the low-latency path.
type Publisher interface {
	Publish(ctx context.Context, msg *GenerationMessage) error
}

// GenerationMessage is the queue payload for one requested video.
type GenerationMessage struct {
	ID            string  `json:"id"`
	PromptID      *string `json:"prompt_id,omitempty"`
	Prompt        string  `json:"prompt"`
	OperationName string  `json:"operation_name"`
}
