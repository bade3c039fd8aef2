package dto

import "time"

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// RawMessage is a decoded mailbox message.
type RawMessage struct {
	UID         uint32
	Folder      string
	MessageID   string
	Subject     string
	FromHeader  string
	FromAddress string
	ToHeader    string
	ToAddress   string
	SentAt      *time.Time
	Body        string
	Attachments []Attachment
}

type FolderInfo struct {
	Name        string
	Messages    uint32
	UidValidity uint32
}

// SearchCriteria with no fields set matches all messages.
type SearchCriteria struct {
	Since *time.Time
	Text  string
}

func (c SearchCriteria) IsAll() bool {
	return c.Since == nil && c.Text == ""
}
