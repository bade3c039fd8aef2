package models

import (
	"time"

	"github.com/lib/pq"
)

// SyncCursor records the last day a pipeline completed successfully
type SyncCursor struct {
	Pipeline     string         `gorm:"column:pipeline;type:varchar(50);primaryKey"`
	LastSyncDate time.Time      `gorm:"column:last_sync_date;type:date;not null"`
	Folders      pq.StringArray `gorm:"column:folders;type:text[]"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;type:timestamp;not null"`
}

func (SyncCursor) TableName() string {
	return "sync_cursors"
}
