package ingestion

import (
	"context"
	"sync"

	"github.com/kotsworld/mailsync/dto"
	"github.com/kotsworld/mailsync/interfaces"
	"github.com/kotsworld/mailsync/internal/enum"
	"github.com/kotsworld/mailsync/internal/utils"
)

// Status is the last known outcome of each pipeline.
type Status struct {
	Documents *dto.DocumentSyncResult `json:"documents,omitempty"`
	Tickets   *dto.TicketSyncResult   `json:"tickets,omitempty"`
}

// IngestionService guards pipeline runs with the run lock and remembers their results.
type IngestionService struct {
	documents *DocumentPipeline
	tickets   *TicketPipeline
	backfill  *Backfill
	lock      interfaces.RunLock
	deps      *Dependencies

	mu            sync.RWMutex
	lastDocuments *dto.DocumentSyncResult
	lastTickets   *dto.TicketSyncResult
}

func NewIngestionService(deps *Dependencies, lock interfaces.RunLock) *IngestionService {
	return &IngestionService{
		documents: NewDocumentPipeline(deps),
		tickets:   NewTicketPipeline(deps),
		backfill:  NewBackfill(deps),
		lock:      lock,
		deps:      deps,
	}
}

func (s *IngestionService) SyncDocuments(ctx context.Context) *dto.DocumentSyncResult {
	pipeline := enum.PipelineDocuments
	ctx = utils.NewRunContext(ctx, AppSource, pipeline.String())

	release, err := s.lock.Acquire(ctx, pipeline.String())
	if err != nil {
		s.deps.Log.Warnf("[%s] Run skipped: %v", pipeline, err)
		now := s.deps.now()
		return &dto.DocumentSyncResult{Pipeline: pipeline.String(), StartedAt: now, FinishedAt: now, Error: err.Error()}
	}
	defer release()

	result := s.documents.Run(ctx)

	s.mu.Lock()
	s.lastDocuments = result
	s.mu.Unlock()
	return result
}

func (s *IngestionService) SyncTickets(ctx context.Context) *dto.TicketSyncResult {
	pipeline := enum.PipelineTickets
	ctx = utils.NewRunContext(ctx, AppSource, pipeline.String())

	release, err := s.lock.Acquire(ctx, pipeline.String())
	if err != nil {
		s.deps.Log.Warnf("[%s] Run skipped: %v", pipeline, err)
		now := s.deps.now()
		return &dto.TicketSyncResult{Pipeline: pipeline.String(), StartedAt: now, FinishedAt: now, Error: err.Error()}
	}
	defer release()

	result := s.tickets.Run(ctx)

	s.mu.Lock()
	s.lastTickets = result
	s.mu.Unlock()
	return result
}

// Backfill shares the documents lock, both write contract documents.
func (s *IngestionService) Backfill(ctx context.Context, bookingIDs []string, folders []string) *dto.BackfillResult {
	ctx = utils.NewRunContext(ctx, AppSource, enum.PipelineBackfill.String())

	release, err := s.lock.Acquire(ctx, enum.PipelineDocuments.String())
	if err != nil {
		now := s.deps.now()
		return &dto.BackfillResult{StartedAt: now, FinishedAt: now, Bookings: map[string]dto.SyncCounters{}, Error: err.Error()}
	}
	defer release()

	return s.backfill.Run(ctx, bookingIDs, folders)
}

func (s *IngestionService) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{Documents: s.lastDocuments, Tickets: s.lastTickets}
}
