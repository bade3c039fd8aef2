package dto

import "github.com/kotsworld/mailsync/internal/enum"

const NotificationReceived = "NOTIFICATION_RECEIVED"

type NotificationEvent struct {
	Type         string              `json:"type"`
	Notification NotificationPayload `json:"notification"`
}

type NotificationPayload struct {
	BookingID        string `json:"booking_id"`
	NotificationType string `json:"notification_type"`
	Message          string `json:"message"`
	Icon             string `json:"icon"`
	NotificationDate string `json:"notification_date"`
}

func NewNotificationEvent(bookingID string, notificationType enum.NotificationType, message, icon, date string) NotificationEvent {
	return NotificationEvent{
		Type: NotificationReceived,
		Notification: NotificationPayload{
			BookingID:        bookingID,
			NotificationType: notificationType.String(),
			Message:          message,
			Icon:             icon,
			NotificationDate: date,
		},
	}
}
