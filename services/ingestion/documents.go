package ingestion

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/kotsworld/mailsync/dto"
	"github.com/kotsworld/mailsync/internal/enum"
	"github.com/kotsworld/mailsync/internal/models"
	"github.com/kotsworld/mailsync/internal/tracing"
	"github.com/kotsworld/mailsync/internal/utils"
	"github.com/kotsworld/mailsync/services/classifier"
	"github.com/kotsworld/mailsync/services/dedup"
	"github.com/kotsworld/mailsync/services/events"
)

// documentBatch accumulates documents between commits.
type documentBatch struct {
	deps          *Dependencies
	index         *dedup.Index
	label         string
	documents     []*models.ContractDocument
	notifications []*models.Notification
}

func newDocumentBatch(deps *Dependencies, index *dedup.Index, label string) *documentBatch {
	return &documentBatch{deps: deps, index: index, label: label}
}

// handle runs booking extraction, classification, dedup and attachment handling for one
// message. onlyBooking, when set, drops messages about any other booking.
func (b *documentBatch) handle(ctx context.Context, folder string, msg *dto.RawMessage, counters *dto.SyncCounters, onlyBooking string) {
	log := b.deps.Log

	bookingID := classifier.BookingFrom(msg.Subject, msg.Body)
	if bookingID == "" {
		log.Debugf("[%s][%s] No booking id in message %d, skipping", b.label, folder, msg.UID)
		return
	}
	if onlyBooking != "" && bookingID != onlyBooking {
		log.Debugf("[%s][%s] Message %d is about %s, skipping", b.label, folder, msg.UID, bookingID)
		return
	}

	category, ok := classifier.ClassifyDocument(msg.Subject, msg.Body)
	if !ok {
		return
	}

	if b.index.HasDocument(msg.MessageID, bookingID, msg.Subject) {
		counters.Skipped++
		log.Debugf("[%s][%s] Duplicate %s for %s, skipping", b.label, folder, category, bookingID)
		return
	}

	doc := b.build(ctx, msg, bookingID, category)

	b.index.AddDocument(msg.MessageID, bookingID, msg.Subject)
	b.documents = append(b.documents, doc)
	b.notifications = append(b.notifications, events.DocumentNotification(bookingID, category, b.deps.now()))
	counters.New++
	log.Infof("[%s][%s] New %s document for %s: %s", b.label, folder, category, bookingID, msg.Subject)
}

func (b *documentBatch) build(ctx context.Context, msg *dto.RawMessage, bookingID string, category enum.DocumentCategory) *models.ContractDocument {
	span, ctx := opentracing.StartSpanFromContext(ctx, "documentBatch.build")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, bookingID)
	span.SetTag("document.category", category.String())

	receivedAt := msg.SentAt
	if receivedAt == nil {
		now := b.deps.now()
		receivedAt = &now
	}

	doc := &models.ContractDocument{
		BookingID:        bookingID,
		TenantEmail:      msg.ToAddress,
		DocumentCategory: category,
		DocumentTitle:    msg.Subject,
		EmailMessageID:   utils.StringPtrOrNil(msg.MessageID),
		EmailReceivedAt:  receivedAt,
		EmailFrom:        msg.FromAddress,
		EmailTo:          msg.ToAddress,
		EmailSubject:     msg.Subject,
	}

	switch category {
	case enum.DocumentSignRequest:
		doc.SignURL = classifier.ExtractSignURL(msg.Body)
		if doc.SignURL == nil {
			b.deps.Log.Warnf("[%s][%s] No signing link found in sign request", b.label, bookingID)
		}
	case enum.DocumentSigned, enum.DocumentCIR:
		if b.deps.Uploader != nil {
			doc.PdfURL = b.deps.Uploader.UploadFirstPDF(ctx, bookingID, category, msg.Attachments)
		}
	}

	return doc
}

func (b *documentBatch) commit(ctx context.Context) error {
	if len(b.documents) == 0 {
		return nil
	}
	if err := b.deps.Documents.CommitBatch(ctx, b.documents, b.notifications); err != nil {
		return err
	}

	b.deps.Log.Infof("[%s] Committed %d documents", b.label, len(b.documents))
	notifyAll(ctx, b.deps.Notifier, b.notifications)
	b.documents = nil
	b.notifications = nil
	return nil
}

// DocumentPipeline ingests sign requests, signed contracts and condition reports.
type DocumentPipeline struct {
	deps *Dependencies
}

func NewDocumentPipeline(deps *Dependencies) *DocumentPipeline {
	return &DocumentPipeline{deps: deps}
}

func (p *DocumentPipeline) Run(ctx context.Context) *dto.DocumentSyncResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "DocumentPipeline.Run")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	pipeline := enum.PipelineDocuments
	result := &dto.DocumentSyncResult{Pipeline: pipeline.String(), StartedAt: p.deps.now()}
	fail := func(err error) *dto.DocumentSyncResult {
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
	if err := index.HydrateDocuments(ctx, p.deps.Documents); err != nil {
		return fail(err)
	}

	criteria := p.deps.Cursor.SearchCriteria(ctx, pipeline)
	batch := newDocumentBatch(p.deps, index, pipeline.String())
	handle := func(ctx context.Context, folder string, msg *dto.RawMessage) {
		batch.handle(ctx, folder, msg, &result.SyncCounters, "")
	}

	folders, err := newScanner(mailbox, p.deps.Folders, p.deps.Log, pipeline.String()).
		scan(ctx, criteria, &result.SyncCounters, handle, batch.commit)
	if err != nil {
		return fail(err)
	}

	if result.FolderErrors > 0 {
		p.deps.Log.Warnf("[%s] %d folders could not be searched, sync cursor not advanced", pipeline, result.FolderErrors)
	} else if err := p.deps.Cursor.Advance(ctx, pipeline, folders); err != nil {
		tracing.TraceErr(span, err)
		p.deps.Log.Errorf("[%s] %v", pipeline, err)
	}

	result.FinishedAt = p.deps.now()
	span.LogKV("fetched", result.Fetched, "new", result.New, "skipped", result.Skipped, "errors", result.Errors)
	p.deps.Log.Infof("[%s] Run finished - fetched: %d, new: %d, skipped: %d, errors: %d",
		pipeline, result.Fetched, result.New, result.Skipped, result.Errors)
	return result
}
