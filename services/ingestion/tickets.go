package ingestion

import (
	"context"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/kotsworld/mailsync/dto"
	"github.com/kotsworld/mailsync/internal/enum"
	"github.com/kotsworld/mailsync/internal/models"
	"github.com/kotsworld/mailsync/internal/tracing"
	"github.com/kotsworld/mailsync/internal/utils"
	"github.com/kotsworld/mailsync/services/classifier"
	"github.com/kotsworld/mailsync/services/dedup"
	"github.com/kotsworld/mailsync/services/events"
)

// TicketPipeline creates tickets from ticket mails, then closes them from closure mails.
type TicketPipeline struct {
	deps *Dependencies
}

func NewTicketPipeline(deps *Dependencies) *TicketPipeline {
	return &TicketPipeline{deps: deps}
}

type ticketRun struct {
	deps  *Dependencies
	label string
	index *dedup.Index

	created       []*models.ServiceTicket
	closures      []models.TicketClosure
	notifications []*models.Notification

	// closedInRun holds tickets closed by this run, committed or not.
	closedInRun map[string]bool
}

func (p *TicketPipeline) Run(ctx context.Context) *dto.TicketSyncResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "TicketPipeline.Run")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	pipeline := enum.PipelineTickets
	result := &dto.TicketSyncResult{Pipeline: pipeline.String(), StartedAt: p.deps.now()}
	fail := func(err error) *dto.TicketSyncResult {
		tracing.TraceErr(span, err)
		result.Error = err.Error()
		result.FinishedAt = p.deps.now()
		p.deps.Log.Errorf("[%s] Run failed: %v", pipeline, err)
		return result
	}

	mailbox, err := connect(ctx, p.deps, pipeline)
	if err != nil {
		return fail(err)
	}
	defer mailbox.Disconnect(ctx)

	index := dedup.New()
	if err := index.HydrateTickets(ctx, p.deps.Tickets); err != nil {
		return fail(err)
	}

	run := &ticketRun{
		deps:        p.deps,
		label:       pipeline.String(),
		index:       index,
		closedInRun: make(map[string]bool),
	}
	criteria := p.deps.Cursor.SearchCriteria(ctx, pipeline)
	folderScanner := newScanner(mailbox, p.deps.Folders, p.deps.Log, pipeline.String())

	// phase 1: creation
	folders, err := folderScanner.scan(ctx, criteria, &result.SyncCounters, func(ctx context.Context, folder string, msg *dto.RawMessage) {
		run.handleCreation(folder, msg, &result.SyncCounters)
	}, run.commit)
	if err != nil {
		return fail(err)
	}

	// phase 2: closure, same session and window
	var closureCounters dto.SyncCounters
	_, err = folderScanner.scan(ctx, criteria, &closureCounters, func(ctx context.Context, folder string, msg *dto.RawMessage) {
		run.handleClosure(ctx, folder, msg, result)
	}, run.commit)
	result.ClosureFetched = closureCounters.Fetched
	result.ClosureErrors += closureCounters.Errors
	result.FolderErrors += closureCounters.FolderErrors
	if err != nil {
		return fail(err)
	}

	if result.FolderErrors > 0 {
		p.deps.Log.Warnf("[%s] %d folder searches failed, sync cursor not advanced", pipeline, result.FolderErrors)
	} else if err := p.deps.Cursor.Advance(ctx, pipeline, folders); err != nil {
		tracing.TraceErr(span, err)
		p.deps.Log.Errorf("[%s] %v", pipeline, err)
	}

	result.FinishedAt = p.deps.now()
	span.LogKV("fetched", result.Fetched, "new", result.New, "closed", result.Closed, "alreadyClosed", result.AlreadyClosed)
	p.deps.Log.Infof("[%s] Run finished - fetched: %d, new: %d, skipped: %d, errors: %d, closed: %d, already closed: %d",
		pipeline, result.Fetched, result.New, result.Skipped, result.Errors, result.Closed, result.AlreadyClosed)
	return result
}

func (r *ticketRun) handleCreation(folder string, msg *dto.RawMessage, counters *dto.SyncCounters) {
	log := r.deps.Log

	parsed, ok := classifier.ParseTicketSubject(msg.Subject)
	if !ok {
		return
	}
	if r.index.HasTicket(parsed.TicketNumber) {
		counters.Skipped++
		log.Debugf("[%s][%s] Ticket #%s already exists, skipping", r.label, folder, parsed.TicketNumber)
		return
	}

	bookingID := classifier.ExtractBookingID(msg.Subject)
	if bookingID == "" {
		log.Warnf("[%s][%s] Ticket #%s has no booking id, skipping", r.label, folder, parsed.TicketNumber)
		return
	}

	now := r.deps.now()
	ticket := &models.ServiceTicket{
		TicketNumber:     parsed.TicketNumber,
		BookingID:        bookingID,
		Classification:   utils.StringPtrOrNil(parsed.Classification),
		Category:         parsed.Category,
		IssueDescription: msg.Subject,
		Status:           enum.TicketOpen,
	}

	r.index.AddTicket(parsed.TicketNumber)
	r.created = append(r.created, ticket)
	r.notifications = append(r.notifications, events.TicketCreatedNotification(bookingID, parsed.TicketNumber, now))
	counters.New++
	log.Infof("[%s][%s] New ticket #%s for %s: %s", r.label, folder, parsed.TicketNumber, bookingID, parsed.Classification)
}

func (r *ticketRun) handleClosure(ctx context.Context, folder string, msg *dto.RawMessage, result *dto.TicketSyncResult) {
	log := r.deps.Log

	number, ok := classifier.ParseClosureSubject(msg.Subject)
	if !ok {
		return
	}
	if r.closedInRun[number] {
		result.AlreadyClosed++
		return
	}

	ticket, err := r.deps.Tickets.GetByTicketNumber(ctx, number)
	if err != nil {
		result.ClosureErrors++
		log.Warnf("[%s][%s] Failed to load ticket #%s: %v", r.label, folder, number, err)
		return
	}
	if ticket == nil {
		log.Infof("[%s][%s] Closure for unknown ticket #%s, skipping", r.label, folder, number)
		return
	}
	if ticket.IsClosed() {
		result.AlreadyClosed++
		log.Debugf("[%s][%s] Ticket #%s already closed", r.label, folder, number)
		return
	}

	resolution := strings.TrimSpace(msg.Body)
	if resolution == "" {
		resolution = msg.Subject
	}
	resolvedAt := r.deps.now()
	if msg.SentAt != nil {
		resolvedAt = *msg.SentAt
	}

	r.closures = append(r.closures, models.TicketClosure{
		TicketID:          ticket.ID,
		TicketNumber:      number,
		ResolutionMessage: resolution,
		ResolvedAt:        resolvedAt,
	})
	r.notifications = append(r.notifications, events.TicketClosedNotification(ticket.BookingID, number, resolvedAt))
	r.closedInRun[number] = true
	result.Closed++
	log.Infof("[%s][%s] Ticket #%s closed", r.label, folder, number)
}

func (r *ticketRun) commit(ctx context.Context) error {
	if len(r.created) == 0 && len(r.closures) == 0 {
		return nil
	}
	if err := r.deps.Tickets.CommitBatch(ctx, r.created, r.closures, r.notifications); err != nil {
		return errors.Wrapf(err, "%d tickets, %d closures", len(r.created), len(r.closures))
	}

	r.deps.Log.Infof("[%s] Committed %d new tickets and %d closures", r.label, len(r.created), len(r.closures))
	notifyAll(ctx, r.deps.Notifier, r.notifications)
	r.created = nil
	r.closures = nil
	r.notifications = nil
	return nil
}
