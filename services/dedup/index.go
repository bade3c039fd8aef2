package dedup

import (
	"context"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/kotsworld/mailsync/interfaces"
	"github.com/kotsworld/mailsync/internal/tracing"
)

const compositeSeparator = "||"

// Index holds the identities already persisted, plus whatever the current run accepted.
// It is not safe for concurrent use; a run is sequential.
type Index struct {
	messageIDs    map[string]struct{}
	composites    map[string]struct{}
	ticketNumbers map[string]struct{}
}

func New() *Index {
	return &Index{
		messageIDs:    make(map[string]struct{}),
		composites:    make(map[string]struct{}),
		ticketNumbers: make(map[string]struct{}),
	}
}

func CompositeKey(bookingID, subject string) string {
	return bookingID + compositeSeparator + strings.TrimSpace(subject)
}

// HasDocument reports whether either the message id or the booking/subject pair is known.
func (i *Index) HasDocument(messageID, bookingID, subject string) bool {
	if messageID != "" {
		if _, ok := i.messageIDs[messageID]; ok {
			return true
		}
	}
	if bookingID == "" || strings.TrimSpace(subject) == "" {
		return false
	}
	_, ok := i.composites[CompositeKey(bookingID, subject)]
	return ok
}

func (i *Index) AddDocument(messageID, bookingID, subject string) {
	if messageID != "" {
		i.messageIDs[messageID] = struct{}{}
	}
	if bookingID != "" && strings.TrimSpace(subject) != "" {
		i.composites[CompositeKey(bookingID, subject)] = struct{}{}
	}
}

func (i *Index) HasTicket(ticketNumber string) bool {
	_, ok := i.ticketNumbers[ticketNumber]
	return ok
}

func (i *Index) AddTicket(ticketNumber string) {
	if ticketNumber != "" {
		i.ticketNumbers[ticketNumber] = struct{}{}
	}
}

func (i *Index) Size() (messageIDs, composites, ticketNumbers int) {
	return len(i.messageIDs), len(i.composites), len(i.ticketNumbers)
}

// HydrateDocuments loads message ids and booking/subject pairs of every stored document.
func (i *Index) HydrateDocuments(ctx context.Context, repo interfaces.ContractDocumentRepository) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Index.HydrateDocuments")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	keys, err := repo.ListDedupKeys(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to load document dedup keys")
	}

	for _, key := range keys {
		messageID := ""
		if key.EmailMessageID != nil {
			messageID = *key.EmailMessageID
		}
		i.AddDocument(messageID, key.BookingID, key.DocumentTitle)
	}
	span.SetTag("result.count", len(keys))
	return nil
}

func (i *Index) HydrateTickets(ctx context.Context, repo interfaces.ServiceTicketRepository) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Index.HydrateTickets")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	numbers, err := repo.ListTicketNumbers(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to load ticket numbers")
	}

	for _, number := range numbers {
		i.AddTicket(number)
	}
	span.SetTag("result.count", len(numbers))
	return nil
}
