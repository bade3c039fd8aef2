package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/kotsworld/mailsync/internal/models"
)

// insertNotifications must be called with the transaction of the records the notifications describe.
func insertNotifications(tx *gorm.DB, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := tx.Create(notifications).Error; err != nil {
		return fmt.Errorf("failed to insert notifications: %w", err)
	}
	return nil
}
