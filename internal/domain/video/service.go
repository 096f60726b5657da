package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"birdreel-server/internal/config"
	"birdreel-server/internal/infrastructure/metrics"
	"birdreel-server/internal/infrastructure/observability"
	"birdreel-server/utils/idgen"
)

// ErrNotAvailable is returned when a video has no durable copy yet.
var ErrNotAvailable = errors.New("video not available for streaming")

const sniffLen = 3072

// Service owns the video generation lifecycle: creating records, advancing
// them through the reconciliation sweep, handling queue deliveries, and
// serving durable bytes. All state transitions go through precondition
// checked repository writes, so overlapping invocations converge instead of
// corrupting each other.
type Service struct {
	cfg       *config.Config
	repo      Repository
	storage   Storage
	ops       OperationClient
	publisher Publisher
	generator *Generator
	log       zerolog.Logger
}

func NewService(cfg *config.Config, repo Repository, storage Storage, ops OperationClient, publisher Publisher, log zerolog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		repo:      repo,
		storage:   storage,
		ops:       ops,
		publisher: publisher,
		generator: NewGenerator(ops, cfg.PollInterval, cfg.PollMaxAttempt, log),
		log:       log.With().Str("component", "video-service").Logger(),
	}
}

// Generator exposes the bounded synchronous generation mode.
func (s *Service) Generator() *Generator {
	return s.generator
}

// Generate starts a new generation operation, persists the pending record
// and enqueues it for low-latency completion. The HTTP response does not
// wait for the operation to finish.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*Record, error) {
	operationName, err := s.generator.Start(ctx, req.Prompt)
	if err != nil {
		return nil, err
	}

	duration := req.Duration
	if duration <= 0 {
		duration = 15
	}

	rec := &Record{
		ID:            idgen.NewVideoID(),
		PromptID:      req.PromptID,
		OperationName: &operationName,
		Status:        StatusPending,
		Duration:      duration,
		CreatedAt:     time.Now().UnixMilli(),
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	msg := &GenerationMessage{
		ID:            rec.ID,
		PromptID:      rec.PromptID,
		Prompt:        req.Prompt,
		OperationName: operationName,
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		// The scheduled sweep picks the record up regardless.
		s.log.Warn().Err(err).Str("video_id", rec.ID).Msg("enqueue failed, record left for sweep")
	}

	return rec, nil
}

// SweepOnce runs one reconciliation pass: advance a bounded batch of
// in-flight records, then retry durable copies for records that completed
// without one (crash recovery). It returns the number of terminal polls
// observed and never fails the caller; per-record errors are logged and
// contained.
func (s *Service) SweepOnce(ctx context.Context) int {
	ctx, span := observability.StartSweepSpan(ctx)
	defer span.End()

	processed := 0

	records, err := s.repo.FindInFlight(ctx, s.cfg.SweepBatchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep: in-flight scan failed")
	} else {
		s.log.Debug().Int("count", len(records)).Msg("polling in-flight videos")
		for _, rec := range records {
			if s.advance(ctx, rec) {
				processed++
			}
		}
	}

	s.recoverPendingCopies(ctx)

	metrics.RecordSweep(processed)
	return processed
}

// advance polls one record's operation and applies the resulting
// transition. It reports whether a terminal poll (done=true) was observed.
func (s *Service) advance(ctx context.Context, rec *Record) bool {
	if rec.OperationName == nil {
		return false
	}
	log := s.log.With().Str("video_id", rec.ID).Logger()

	status, err := s.ops.PollOperation(ctx, *rec.OperationName)
	if err != nil {
		// Transient: leave state untouched, retry next sweep.
		log.Warn().Err(err).Msg("operation poll failed")
		metrics.RecordPoll("error")
		return false
	}

	if !status.Done {
		metrics.RecordPoll("in_progress")
		if _, err := s.repo.MarkProcessing(ctx, rec.ID); err != nil {
			log.Error().Err(err).Msg("mark processing failed")
		}
		return false
	}

	if status.Error != nil {
		metrics.RecordPoll("failed")
		if _, err := s.repo.MarkFailed(ctx, rec.ID, status.Error.Error()); err != nil {
			log.Error().Err(err).Msg("mark failed failed")
		}
		return true
	}

	sourceURL, err := ExtractVideoURL(status.Response)
	if err != nil {
		// Known anomaly: finished operation with no recognizable result
		// shape. Leave the record in place for manual inspection rather
		// than guessing a URL.
		log.Error().Err(err).Msg("no result URL in finished operation")
		metrics.RecordExtractionFailure()
		return false
	}

	metrics.RecordPoll("completed")
	if _, err := s.repo.MarkCompleted(ctx, rec.ID, sourceURL); err != nil {
		log.Error().Err(err).Msg("mark completed failed")
		return true
	}

	if err := s.copyToDurable(ctx, rec.ID, sourceURL); err != nil {
		// Record stays at completed; the crash-recovery pass retries.
		log.Error().Err(err).Msg("durable copy failed")
	}
	return true
}

// recoverPendingCopies retries the durable-copy step for records that
// reached completed but whose copy failed or was interrupted.
func (s *Service) recoverPendingCopies(ctx context.Context) {
	records, err := s.repo.FindAwaitingCopy(ctx, s.cfg.CopyBatchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep: awaiting-copy scan failed")
		return
	}
	for _, rec := range records {
		if rec.SourceURL == nil {
			continue
		}
		if err := s.copyToDurable(ctx, rec.ID, *rec.SourceURL); err != nil {
			s.log.Error().Err(err).Str("video_id", rec.ID).Msg("copy retry failed")
		}
	}
}

// copyToDurable streams the upstream result into durable storage and marks
// the record downloaded. Keys are never reused; a lost race at write time
// leaves at worst one orphaned unreferenced object.
func (s *Service) copyToDurable(ctx context.Context, id, sourceURL string) error {
	ctx, span := observability.StartCopySpan(ctx, id)
	defer span.End()

	body, err := s.ops.FetchVideo(ctx, sourceURL)
	if err != nil {
		metrics.RecordCopy("fetch_error")
		observability.RecordError(span, err)
		return fmt.Errorf("fetch source: %w", err)
	}
	defer body.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		metrics.RecordCopy("fetch_error")
		observability.RecordError(span, err)
		return fmt.Errorf("read source: %w", err)
	}
	head = head[:n]

	contentType := "video/mp4"
	if detected := mimetype.Detect(head); strings.HasPrefix(detected.String(), "video/") {
		contentType = detected.String()
	}

	key := fmt.Sprintf("videos/%s/%s.mp4", id, idgen.NewObjectSuffix())
	metadata := map[string]string{
		"video-id":   id,
		"source-url": sourceURL,
		"copied-at":  time.Now().UTC().Format(time.RFC3339),
	}

	stream := io.MultiReader(bytes.NewReader(head), body)
	if err := s.storage.Upload(ctx, key, stream, contentType, metadata); err != nil {
		metrics.RecordCopy("storage_error")
		observability.RecordError(span, err)
		return fmt.Errorf("store video: %w", err)
	}

	videoURL := fmt.Sprintf("/v1/videos/%s/stream", id)
	ok, err := s.repo.MarkDownloaded(ctx, id, key, videoURL, time.Now().UnixMilli())
	if err != nil {
		metrics.RecordCopy("db_error")
		observability.RecordError(span, err)
		return fmt.Errorf("mark downloaded: %w", err)
	}
	if !ok {
		// A concurrent invocation finished first; its key won.
		s.log.Debug().Str("video_id", id).Str("key", key).Msg("downloaded elsewhere, orphaning copy")
		return nil
	}

	metrics.RecordCopy("success")
	s.log.Info().Str("video_id", id).Str("key", key).Msg("video copied to durable storage")
	return nil
}

// HandleGenerationMessage processes one queue delivery and reports whether
// the message is finished (ack) or should be redelivered (retry). It is
// idempotent under duplicate delivery: records already in a terminal state
// are acked without further work.
func (s *Service) HandleGenerationMessage(ctx context.Context, msg *GenerationMessage) (bool, error) {
	log := s.log.With().Str("video_id", msg.ID).Logger()

	rec, err := s.repo.GetByID(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The record write may not be visible yet; let redelivery retry.
			return false, nil
		}
		return false, err
	}
	if rec.Status.Terminal() {
		log.Debug().Str("status", string(rec.Status)).Msg("duplicate delivery for terminal record")
		return true, nil
	}

	operationName := msg.OperationName
	if operationName == "" && rec.OperationName != nil {
		operationName = *rec.OperationName
	}
	if operationName == "" {
		return false, fmt.Errorf("video %s has no operation handle", msg.ID)
	}

	status, err := s.ops.PollOperation(ctx, operationName)
	if err != nil {
		if _, markErr := s.repo.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
			log.Error().Err(markErr).Msg("mark failed failed")
		}
		return false, err
	}
	if !status.Done {
		if _, err := s.repo.MarkProcessing(ctx, msg.ID); err != nil {
			log.Error().Err(err).Msg("mark processing failed")
		}
		return false, nil
	}

	if status.Error != nil {
		if _, err := s.repo.MarkFailed(ctx, msg.ID, status.Error.Error()); err != nil {
			return false, err
		}
		return true, nil
	}

	// Re-extraction after duplicate delivery finds the same URL; the copy
	// below is skipped when the storage key is already set.
	sourceURL, err := ExtractVideoURL(status.Response)
	if err != nil {
		log.Error().Err(err).Msg("no result URL in finished operation")
		metrics.RecordExtractionFailure()
		return false, err
	}
	if _, err := s.repo.MarkCompleted(ctx, msg.ID, sourceURL); err != nil {
		return false, err
	}

	if rec.Downloadable() {
		return true, nil
	}
	if err := s.copyToDurable(ctx, msg.ID, sourceURL); err != nil {
		// The upstream result is still valid; the record stays at
		// completed and the crash-recovery pass retries the copy.
		return false, err
	}
	return true, nil
}

// GetRecord returns one video record by id.
func (s *Service) GetRecord(ctx context.Context, id string) (*Record, error) {
	return s.repo.GetByID(ctx, id)
}

// ListRecords returns the newest records up to limit.
func (s *Service) ListRecords(ctx context.Context, limit int) ([]*Record, error) {
	return s.repo.List(ctx, limit)
}

// StatusCounts returns the per-status record counts.
func (s *Service) StatusCounts(ctx context.Context) ([]StatusCount, error) {
	return s.repo.StatusCounts(ctx)
}

// OpenObject fetches the durable bytes for a record, optionally restricted
// to a byte range. It never falls back to the ephemeral upstream URL.
func (s *Service) OpenObject(ctx context.Context, id string, byteRange *ByteRange) (*Object, *Record, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !rec.Downloadable() {
		return nil, rec, ErrNotAvailable
	}
	obj, err := s.storage.Fetch(ctx, *rec.StorageKey, byteRange)
	if err != nil {
		return nil, rec, err
	}
	return obj, rec, nil
}
