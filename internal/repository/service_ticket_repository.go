package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/kotsworld/mailsync/interfaces"
	"github.com/kotsworld/mailsync/internal/enum"
	"github.com/kotsworld/mailsync/internal/models"
	"github.com/kotsworld/mailsync/internal/tracing"
	"github.com/kotsworld/mailsync/internal/utils"
)

type serviceTicketRepository struct {
	db *gorm.DB
}

func NewServiceTicketRepository(db *gorm.DB) interfaces.ServiceTicketRepository {
	return &serviceTicketRepository{db: db}
}

func (r *serviceTicketRepository) ListTicketNumbers(ctx context.Context) ([]string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "serviceTicketRepository.ListTicketNumbers")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)

	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&models.ServiceTicket{}).
		Where("ticket_number <> ''").
		Pluck("ticket_number", &numbers).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to list ticket numbers: %w", err)
	}

	return numbers, nil
}

func (r *serviceTicketRepository) GetByTicketNumber(ctx context.Context, ticketNumber string) (*models.ServiceTicket, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "serviceTicketRepository.GetByTicketNumber")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	tracing.TagEntity(span, ticketNumber)

	var ticket models.ServiceTicket
	err := r.db.WithContext(ctx).
		Where("ticket_number = ?", ticketNumber).
		First(&ticket).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, fmt.Errorf("failed to get ticket %s: %w", ticketNumber, err)
	}

	return &ticket, nil
}

func (r *serviceTicketRepository) CommitBatch(ctx context.Context, created []*models.ServiceTicket, closures []models.TicketClosure, notifications []*models.Notification) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "serviceTicketRepository.CommitBatch")
	defer span.Finish()
	tracing.SetDefaultPostgresRepositorySpanTags(ctx, span)
	span.LogKV("created", len(created), "closures", len(closures), "notifications", len(notifications))

	if len(created) == 0 && len(closures) == 0 && len(notifications) == 0 {
		return nil
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(created) > 0 {
			if err := tx.Create(created).Error; err != nil {
				return fmt.Errorf("failed to insert service tickets: %w", err)
			}
		}

		for _, closure := range closures {
			// Only Open tickets move; a ticket closed by a concurrent run stays untouched.
			result := tx.Model(&models.ServiceTicket{}).
				Where("id = ? AND status = ?", closure.TicketID, string(enum.TicketOpen)).
				Updates(map[string]interface{}{
					"status":                   string(enum.TicketClosed),
					"final_resolution_message": closure.ResolutionMessage,
					"final_resolution_at":      closure.ResolvedAt,
					"updated_at":               utils.Now(),
				})
			if result.Error != nil {
				return fmt.Errorf("failed to close ticket %s: %w", closure.TicketNumber, result.Error)
			}
			if result.RowsAffected == 0 {
				span.LogKV("closure.skipped", closure.TicketNumber)
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
