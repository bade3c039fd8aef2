package interfaces

import (
	"context"

	"github.com/kotsworld/mailsync/dto"
)

// SyncService runs one pass of each pipeline.
type SyncService interface {
	SyncDocuments(ctx context.Context) *dto.DocumentSyncResult
	SyncTickets(ctx context.Context) *dto.TicketSyncResult
}
