package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kotsworld/mailsync/dto"
	"github.com/kotsworld/mailsync/internal/enum"
	"github.com/kotsworld/mailsync/internal/logger"
	"github.com/kotsworld/mailsync/internal/utils"
)

type mockPublisher struct {
	mock.Mock
	mu        sync.Mutex
	published []string
}

func (m *mockPublisher) PublishNotification(ctx context.Context, bookingID string, event dto.NotificationEvent) error {
	args := m.Called(bookingID, event.Type)
	m.mu.Lock()
	m.published = append(m.published, bookingID+":"+utils.GetRunIDFromContext(ctx))
	m.mu.Unlock()
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return nil
}

type blockingPublisher struct {
	release chan struct{}
}

func (b *blockingPublisher) PublishNotification(ctx context.Context, bookingID string, event dto.NotificationEvent) error {
	<-b.release
	return nil
}

func (b *blockingPublisher) Close() error {
	return nil
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{DevMode: true})
	appLogger.InitLogger()
	return appLogger
}

func TestBackgroundNotifier_PublishesAndDrains(t *testing.T) {
	// Arrange
	publisher := &mockPublisher{}
	publisher.On("PublishNotification", "K15A4032411202", dto.NotificationReceived).Return(nil).Once()
	publisher.On("PublishNotification", "K01A99924012026", dto.NotificationReceived).Return(errors.New("broker down")).Once()
	notifier := NewBackgroundNotifier(publisher, getLogger(), NotifierConfig{QueueSize: 4})
	ctx := utils.WithCustomContext(context.Background(), &utils.CustomContext{RunID: "run_1"})
	at := time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)

	// Act
	notifier.Submit(ctx, ToEvent(TicketCreatedNotification("K15A4032411202", "275482", at)))
	notifier.Submit(ctx, ToEvent(TicketClosedNotification("K01A99924012026", "474699", at)))
	notifier.Close()

	// Assert
	publisher.AssertExpectations(t)
	assert.Equal(t, []string{"K15A4032411202:run_1", "K01A99924012026:run_1"}, publisher.published)
}

func TestBackgroundNotifier_SubmitNeverBlocks(t *testing.T) {
	// Arrange
	publisher := &blockingPublisher{release: make(chan struct{})}
	notifier := NewBackgroundNotifier(publisher, getLogger(), NotifierConfig{QueueSize: 1, DrainTimeout: time.Second})
	event := ToEvent(DocumentNotification("K15A4032411202", enum.DocumentSigned, time.Now()))

	// Act
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			notifier.Submit(context.Background(), event)
		}
		close(done)
	}()

	// Assert
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked on a full queue")
	}
	close(publisher.release)
	notifier.Close()
	notifier.Submit(context.Background(), event)
}

func TestNotificationPayload(t *testing.T) {
	at := time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)

	body, err := json.Marshal(ToEvent(TicketClosedNotification("K01A99924012026", "474699", at)))

	require.NoError(t, err)
	assert.JSONEq(t, `{
		"type": "NOTIFICATION_RECEIVED",
		"notification": {
			"booking_id": "K01A99924012026",
			"notification_type": "System Message",
			"message": "Great news! Your ticket #474699 has been marked as resolved. Please let us know if you're satisfied.",
			"icon": "ticket_resolved_icon",
			"notification_date": "2025-01-09T12:00:00Z"
		}
	}`, string(body))
}

func TestDocumentNotification_Icons(t *testing.T) {
	now := time.Now()

	assert.Equal(t, IconSignRequest, DocumentNotification("K1", enum.DocumentSignRequest, now).Icon)
	assert.Equal(t, IconContractSigned, DocumentNotification("K1", enum.DocumentSigned, now).Icon)
	cir := DocumentNotification("K1", enum.DocumentCIR, now)
	assert.Equal(t, IconCIR, cir.Icon)
	assert.Equal(t, enum.NotificationContractDocument, cir.NotificationType)

	created := TicketCreatedNotification("K1", "275482", now)
	assert.Equal(t, "Your ticket #275482 has been received. Our team will look into it shortly.", created.Message)
	assert.Equal(t, IconTicket, created.Icon)
}

func TestRouting(t *testing.T) {
	assert.Equal(t, "booking.K15A4032411202", RoutingKeyForBooking("K15A4032411202"))

	args := queueArgs(DefaultMessageTTL)
	assert.Equal(t, ExchangeDeadLetter, args["x-dead-letter-exchange"])
	assert.Equal(t, int64(240*time.Hour/time.Millisecond), args["x-message-ttl"])
}

func TestLogPublisher(t *testing.T) {
	publisher := NewLogPublisher(getLogger())

	err := publisher.PublishNotification(context.Background(), "K1", ToEvent(TicketCreatedNotification("K1", "1", time.Now())))

	assert.NoError(t, err)
	assert.NoError(t, publisher.Close())
}
