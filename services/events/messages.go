package events

import (
	"fmt"
	"time"

	"github.com/kotsworld/mailsync/dto"
	"github.com/kotsworld/mailsync/internal/enum"
	"github.com/kotsworld/mailsync/internal/models"
)

const (
	IconTicket         = "ticket_icon"
	IconTicketResolved = "ticket_resolved_icon"
	IconSignRequest    = "sign_request_icon"
	IconContractSigned = "contract_signed_icon"
	IconCIR            = "cir_icon"
)

var documentMessages = map[enum.DocumentCategory]struct {
	icon    string
	message string
}{
	enum.DocumentSignRequest: {IconSignRequest, "A new document is waiting for your signature."},
	enum.DocumentSigned:      {IconContractSigned, "Your signed contract is now available."},
	enum.DocumentCIR:         {IconCIR, "A new flat condition report has been shared with you."},
}

func TicketCreatedNotification(bookingID, ticketNumber string, at time.Time) *models.Notification {
	return &models.Notification{
		BookingID:        bookingID,
		NotificationDate: at,
		NotificationType: enum.NotificationSystemMessage,
		Message:          fmt.Sprintf("Your ticket #%s has been received. Our team will look into it shortly.", ticketNumber),
		Icon:             IconTicket,
	}
}

func TicketClosedNotification(bookingID, ticketNumber string, at time.Time) *models.Notification {
	return &models.Notification{
		BookingID:        bookingID,
		NotificationDate: at,
		NotificationType: enum.NotificationSystemMessage,
		Message:          fmt.Sprintf("Great news! Your ticket #%s has been marked as resolved. Please let us know if you're satisfied.", ticketNumber),
		Icon:             IconTicketResolved,
	}
}

func DocumentNotification(bookingID string, category enum.DocumentCategory, at time.Time) *models.Notification {
	content := documentMessages[category]
	return &models.Notification{
		BookingID:        bookingID,
		NotificationDate: at,
		NotificationType: enum.NotificationContractDocument,
		Message:          content.message,
		Icon:             content.icon,
	}
}

// ToEvent converts a stored notification into the bus payload.
func ToEvent(notification *models.Notification) dto.NotificationEvent {
	return dto.NewNotificationEvent(
		notification.BookingID,
		notification.NotificationType,
		notification.Message,
		notification.Icon,
		notification.NotificationDate.UTC().Format(time.RFC3339),
	)
}
