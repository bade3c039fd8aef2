package ingestion

import (
	"context"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/kotsworld/mailsync/interfaces"
	"github.com/kotsworld/mailsync/internal/enum"
	"github.com/kotsworld/mailsync/internal/logger"
	"github.com/kotsworld/mailsync/internal/models"
	"github.com/kotsworld/mailsync/internal/tracing"
	"github.com/kotsworld/mailsync/internal/utils"
	"github.com/kotsworld/mailsync/services/attachments"
	"github.com/kotsworld/mailsync/services/cursor"
	"github.com/kotsworld/mailsync/services/events"
)

const AppSource = "mailsync"

// MailboxFactory opens a fresh, unconnected client for one run.
type MailboxFactory func() interfaces.MailboxClient

type Dependencies struct {
	NewMailbox MailboxFactory
	Folders    []string
	Documents  interfaces.ContractDocumentRepository
	Tickets    interfaces.ServiceTicketRepository
	Cursor     *cursor.SyncCursor
	Uploader   *attachments.Uploader
	Notifier   interfaces.Notifier
	Log        logger.Logger
	Now        func() time.Time
}

func (d *Dependencies) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return utils.Now()
}

// connect opens the run's mailbox session; the caller must Disconnect it.
func connect(ctx context.Context, deps *Dependencies, pipeline enum.Pipeline) (interfaces.MailboxClient, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ingestion.connect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	mailbox := deps.NewMailbox()
	if err := mailbox.Connect(ctx); err != nil {
		tracing.TraceErr(span, err)
		deps.Log.Errorf("[%s] Failed to connect to mailbox: %v", pipeline, err)
		return nil, err
	}
	return mailbox, nil
}

// notifyAll hands committed notifications to the bus.
func notifyAll(ctx context.Context, notifier interfaces.Notifier, notifications []*models.Notification) {
	if notifier == nil {
		return
	}
	for _, n := range notifications {
		notifier.Submit(ctx, events.ToEvent(n))
	}
}
