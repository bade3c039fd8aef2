package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/kotsworld/mailsync/internal/enum"
	"github.com/kotsworld/mailsync/internal/utils"
)

// ContractDocument is a tenancy document detected in the sent mailbox
type ContractDocument struct {
	ID               uint64                `gorm:"column:id;primaryKey;autoIncrement"`
	BookingID        string                `gorm:"column:booking_id;type:varchar(50);index;not null"`
	TenantEmail      string                `gorm:"column:tenant_email;type:varchar(255);index"`
	DocumentCategory enum.DocumentCategory `gorm:"column:document_category;type:varchar(20);index;not null"`
	DocumentTitle    string                `gorm:"column:document_title;type:varchar(1000)"`
	RequiredDate     *time.Time            `gorm:"column:required_date;type:date"`
	SignURL          *string               `gorm:"column:sign_url;type:text"`
	PdfURL           *string               `gorm:"column:pdf_url;type:text"`

	// Source email
	EmailMessageID  *string    `gorm:"column:email_message_id;type:varchar(500);uniqueIndex"`
	EmailReceivedAt *time.Time `gorm:"column:email_received_at;type:timestamp"`
	EmailFrom       string     `gorm:"column:email_from;type:varchar(255)"`
	EmailTo         string     `gorm:"column:email_to;type:varchar(255)"`
	EmailSubject    string     `gorm:"column:email_subject;type:varchar(1000)"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (ContractDocument) TableName() string {
	return "contract_documents"
}

func (d *ContractDocument) BeforeCreate(tx *gorm.DB) error {
	now := utils.Now()
	d.CreatedAt = now
	d.UpdatedAt = now
	return nil
}

// DocumentDedupKey is the projection loaded to hydrate the dedup index.
type DocumentDedupKey struct {
	EmailMessageID *string
	BookingID      string
	DocumentTitle  string
}
