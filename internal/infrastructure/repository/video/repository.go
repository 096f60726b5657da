package video

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "birdreel-server/internal/domain/video"
	"birdreel-server/internal/infrastructure/database/entities"
)

// Repository handles video record persistence. Every status transition is a
// single-row UPDATE guarded by a WHERE clause on the expected prior state,
// so concurrent sweep and queue invocations converge instead of reverting
// each other's progress.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, rec *domain.Record) error {
	entity := toEntity(rec)
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return fmt.Errorf("create video record: %w", err)
	}
	rec.CreatedAt = entity.CreatedAt
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	var entity entities.Video
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get video record: %w", err)
	}
	rec := toDomain(entity)
	return &rec, nil
}

func (r *Repository) List(ctx context.Context, limit int) ([]*domain.Record, error) {
	var rows []entities.Video
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list video records: %w", err)
	}
	return toDomainSlice(rows), nil
}

func (r *Repository) FindInFlight(ctx context.Context, limit int) ([]*domain.Record, error) {
	var rows []entities.Video
	err := r.db.WithContext(ctx).
		Where("status IN ? AND operation_name IS NOT NULL",
			[]string{string(domain.StatusPending), string(domain.StatusProcessing)}).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find in-flight videos: %w", err)
	}
	return toDomainSlice(rows), nil
}

func (r *Repository) FindAwaitingCopy(ctx context.Context, limit int) ([]*domain.Record, error) {
	var rows []entities.Video
	err := r.db.WithContext(ctx).
		Where("status = ? AND source_url IS NOT NULL AND storage_key IS NULL",
			string(domain.StatusCompleted)).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find videos awaiting copy: %w", err)
	}
	return toDomainSlice(rows), nil
}

func (r *Repository) MarkProcessing(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.Video{}).
		Where("id = ? AND status = ?", id, string(domain.StatusPending)).
		Update("status", string(domain.StatusProcessing))
	if result.Error != nil {
		return false, fmt.Errorf("mark processing: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) MarkCompleted(ctx context.Context, id, sourceURL string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.Video{}).
		Where("id = ? AND status IN ?", id,
			[]string{string(domain.StatusPending), string(domain.StatusProcessing)}).
		Updates(map[string]interface{}{
			"status":     string(domain.StatusCompleted),
			"source_url": sourceURL,
		})
	if result.Error != nil {
		return false, fmt.Errorf("mark completed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) MarkDownloaded(ctx context.Context, id, storageKey, videoURL string, downloadedAt int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.Video{}).
		Where("id = ? AND status = ? AND storage_key IS NULL", id, string(domain.StatusCompleted)).
		Updates(map[string]interface{}{
			"status":        string(domain.StatusDownloaded),
			"storage_key":   storageKey,
			"video_url":     videoURL,
			"downloaded_at": downloadedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("mark downloaded: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) MarkFailed(ctx context.Context, id, errMsg string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entities.Video{}).
		Where("id = ? AND status NOT IN ?", id,
			[]string{string(domain.StatusDownloaded), string(domain.StatusFailed)}).
		Updates(map[string]interface{}{
			"status": string(domain.StatusFailed),
			"error":  errMsg,
		})
	if result.Error != nil {
		return false, fmt.Errorf("mark failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) StatusCounts(ctx context.Context) ([]domain.StatusCount, error) {
	var counts []domain.StatusCount
	err := r.db.WithContext(ctx).
		Model(&entities.Video{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	return counts, nil
}

func toEntity(rec *domain.Record) entities.Video {
	return entities.Video{
		ID:            rec.ID,
		PromptID:      rec.PromptID,
		OperationName: rec.OperationName,
		Status:        string(rec.Status),
		SourceURL:     rec.SourceURL,
		StorageKey:    rec.StorageKey,
		VideoURL:      rec.VideoURL,
		Error:         rec.Error,
		Duration:      rec.Duration,
		CreatedAt:     rec.CreatedAt,
		DownloadedAt:  rec.DownloadedAt,
	}
}

func toDomain(entity entities.Video) domain.Record {
	return domain.Record{
		ID:            entity.ID,
		PromptID:      entity.PromptID,
		OperationName: entity.OperationName,
		Status:        domain.Status(entity.Status),
		SourceURL:     entity.SourceURL,
		StorageKey:    entity.StorageKey,
		VideoURL:      entity.VideoURL,
		Error:         entity.Error,
		Duration:      entity.Duration,
		CreatedAt:     entity.CreatedAt,
		DownloadedAt:  entity.DownloadedAt,
	}
}

func toDomainSlice(rows []entities.Video) []*domain.Record {
	records := make([]*domain.Record, 0, len(rows))
	for _, row := range rows {
		rec := toDomain(row)
		records = append(records, &rec)
	}
	return records
}
