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

type contractDocumentRepository struct {
	db *gorm.DB
}

func NewContractDocumentRepository(db *gorm.DB) interfaces.ContractDocumentRepository {
	return &contractDocumentRepository{db: db}
}

// ListDedupKeys returns message id, booking and title of every stored document
func (r *contractDocumentRepository) ListDedupKeys(ctx context.Context) ([]models.DocumentDedupKey, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "contractDocumentRepository.ListDedupKeys")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var keys []models.DocumentDedupKey
	err := r.db.WithContext(ctx).
		Model(&models.ContractDocument{}).
		Select("email_message_id, booking_id, document_title").
		Scan(&keys).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list document dedup keys: %w", err)
	}

	span.LogKV("result.count", len(keys))
	return keys, nil
}

func (r *contractDocumentRepository) CommitBatch(ctx context.Context, documents []*models.ContractDocument, notifications []*models.Notification) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "contractDocumentRepository.CommitBatch")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.LogKV("documents", len(documents), "notifications", len(notifications))

	if len(documents) == 0 && len(notifications) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(documents) > 0 {
			if err := tx.Create(documents).Error; err != nil {
				return fmt.Errorf("failed to insert contract documents: %w", err)
			}
		}
		return insertNotifications(tx, notifications)
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	return nil
}
