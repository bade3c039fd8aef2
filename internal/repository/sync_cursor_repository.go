package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/kotsworld/mailsync/interfaces"
	"github.com/kotsworld/mailsync/internal/models"
	"github.com/kotsworld/mailsync/internal/tracing"
)

type syncCursorRepository struct {
	db *gorm.DB
}

func NewSyncCursorRepository(db *gorm.DB) interfaces.SyncCursorRepository {
	return &syncCursorRepository{db: db}
}

// Get returns nil when the pipeline has never completed a run
func (r *syncCursorRepository) Get(ctx context.Context, pipeline string) (*models.SyncCursor, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncCursorRepository.Get")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var cursor models.SyncCursor
	result := r.db.WithContext(ctx).
		Where("pipeline = ?", pipeline).
		First(&cursor)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get sync cursor: %w", result.Error)
	}

	return &cursor, nil
}

func (r *syncCursorRepository) Save(ctx context.Context, cursor *models.SyncCursor) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "syncCursorRepository.Save")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	// Try to update first
	result := r.db.WithContext(ctx).
		Model(&models.SyncCursor{}).
		Where("pipeline = ?", cursor.Pipeline).
		Updates(map[string]interface{}{
			"last_sync_date": cursor.LastSyncDate,
			"folders":        cursor.Folders,
			"updated_at":     cursor.UpdatedAt,
		})

	// If no record was updated, create a new one
	if result.Error == nil && result.RowsAffected == 0 {
		result = r.db.WithContext(ctx).Create(cursor)
	}

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to save sync cursor: %w", result.Error)
	}

	return nil
}
