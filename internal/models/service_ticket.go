package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/kotsworld/mailsync/internal/enum"
	"github.com/kotsworld/mailsync/internal/utils"
)

type ServiceTicket struct {
	ID                     uint64            `gorm:"column:id;primaryKey;autoIncrement"`
	TicketNumber           string            `gorm:"column:ticket_number;type:varchar(50);uniqueIndex;not null"`
	BookingID              string            `gorm:"column:booking_id;type:varchar(50);index;not null"`
	Classification         *string           `gorm:"column:classification;type:varchar(255)"`
	Category               *string           `gorm:"column:category;type:varchar(255)"`
	IssueDescription       string            `gorm:"column:issue_description;type:text"`
	Status                 enum.TicketStatus `gorm:"column:status;type:varchar(20);index;not null;default:Open"`
	FinalResolutionMessage *string           `gorm:"column:final_resolution_message;type:text"`
	FinalResolutionAt      *time.Time        `gorm:"column:final_resolution_at;type:timestamp"`
	ChargesAmount          *float64          `gorm:"column:charges_amount;type:numeric(10,2)"`
	ChargesDescription     *string           `gorm:"column:charges_description;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (ServiceTicket) TableName() string {
	return "tenant_service_tickets"
}

func (t *ServiceTicket) BeforeCreate(tx *gorm.DB) error {
	if t.Status == "" {
		t.Status = enum.TicketOpen
	}
	now := utils.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

func (t *ServiceTicket) IsClosed() bool {
	return t.Status == enum.TicketClosed
}

// TicketClosure is a pending Open -> Closed transition.
type TicketClosure struct {
	TicketID          uint64
	TicketNumber      string
	ResolutionMessage string
	ResolvedAt        time.Time
}
