package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kotsworld/mailsync/internal/enum"
	"github.com/kotsworld/mailsync/internal/utils"
)

// Notification is the tenant-facing record shown in the portal feed
type Notification struct {
	ID               string                `gorm:"column:id;type:varchar(36);primaryKey"`
	BookingID        string                `gorm:"column:booking_id;type:varchar(50);index;not null"`
	NotificationDate time.Time             `gorm:"column:notification_date;type:timestamp;not null"`
	NotificationType enum.NotificationType `gorm:"column:notification_type;type:varchar(50);not null"`
	Message          string                `gorm:"column:message;type:text;not null"`
	Icon             string                `gorm:"column:icon;type:varchar(100)"`
	CreatedAt        time.Time             `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = utils.Now()
	return nil
}
