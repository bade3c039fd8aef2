package events

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/kotsworld/mailsync/dto"
	"github.com/kotsworld/mailsync/interfaces"
	"github.com/kotsworld/mailsync/internal/logger"
	"github.com/kotsworld/mailsync/internal/utils"
)

const (
	DefaultQueueSize    = 100
	DefaultDrainTimeout = 10 * time.Second
)

type NotifierConfig struct {
	QueueSize      int
	PublishTimeout time.Duration
	DrainTimeout   time.Duration
}

type pendingNotification struct {
	span  opentracing.SpanContext
	run   *utils.CustomContext
	event dto.NotificationEvent
}

// BackgroundNotifier publishes notifications off the ingestion path. A full queue drops
// the notification; the persisted row remains the source of truth.
type BackgroundNotifier struct {
	publisher interfaces.NotificationPublisher
	log       logger.Logger
	config    NotifierConfig

	queue  chan pendingNotification
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

var _ interfaces.Notifier = (*BackgroundNotifier)(nil)

func NewBackgroundNotifier(publisher interfaces.NotificationPublisher, log logger.Logger, config NotifierConfig) *BackgroundNotifier {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = DefaultPublishTimeout
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = DefaultDrainTimeout
	}

	n := &BackgroundNotifier{
		publisher: publisher,
		log:       log,
		config:    config,
		queue:     make(chan pendingNotification, config.QueueSize),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

func (n *BackgroundNotifier) Submit(ctx context.Context, event dto.NotificationEvent) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	bookingID := event.Notification.BookingID
	if n.closed {
		n.log.Warnf("[%s] Notifier closed, dropping notification", bookingID)
		return
	}

	pending := pendingNotification{run: utils.GetContext(ctx), event: event}
	if span := opentracing.SpanFromContext(ctx); span != nil {
		pending.span = span.Context()
	}

	select {
	case n.queue <- pending:
	default:
		n.log.Warnf("[%s] Notification queue full, dropping: %s", bookingID, event.Notification.Message)
	}
}

func (n *BackgroundNotifier) run() {
	defer n.wg.Done()
	for pending := range n.queue {
		n.publish(pending)
	}
}

func (n *BackgroundNotifier) publish(pending pendingNotification) {
	ctx, cancel := context.WithTimeout(utils.WithCustomContext(context.Background(), pending.run), n.config.PublishTimeout)
	defer cancel()

	var opts []opentracing.StartSpanOption
	if pending.span != nil {
		opts = append(opts, opentracing.FollowsFrom(pending.span))
	}
	span := opentracing.StartSpan("BackgroundNotifier.publish", opts...)
	defer span.Finish()
	ctx = opentracing.ContextWithSpan(ctx, span)

	bookingID := pending.event.Notification.BookingID
	if err := n.publisher.PublishNotification(ctx, bookingID, pending.event); err != nil {
		n.log.Warnf("[%s] Failed to publish notification: %v", bookingID, err)
	}
}

// Close stops accepting notifications and waits up to the drain timeout for the queue to empty.
func (n *BackgroundNotifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(n.config.DrainTimeout):
		n.log.Warnf("Notification queue not drained within %v, %d pending", n.config.DrainTimeout, len(n.queue))
	}
}
