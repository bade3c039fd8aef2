package interfaces

import (
	"context"

	"github.com/kotsworld/mailsync/internal/models"
)

type ContractDocumentRepository interface {
	ListDedupKeys(ctx context.Context) ([]models.DocumentDedupKey, error)
	// CommitBatch inserts documents and their notifications in one transaction.
	CommitBatch(ctx context.Context, documents []*models.ContractDocument, notifications []*models.Notification) error
}

type ServiceTicketRepository interface {
	ListTicketNumbers(ctx context.Context) ([]string, error)
	GetByTicketNumber(ctx context.Context, ticketNumber string) (*models.ServiceTicket, error)
	// CommitBatch inserts created tickets, applies closures to Open tickets and stores notifications in one transaction.
	CommitBatch(ctx context.Context, created []*models.ServiceTicket, closures []models.TicketClosure, notifications []*models.Notification) error
}

type SyncCursorRepository interface {
	Get(ctx context.Context, pipeline string) (*models.SyncCursor, error)
	Save(ctx context.Context, cursor *models.SyncCursor) error
}
