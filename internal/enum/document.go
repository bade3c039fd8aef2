package enum

import "strings"

type DocumentCategory string

const (
	DocumentSignRequest DocumentCategory = "SIGN_REQUEST"
	DocumentSigned      DocumentCategory = "SIGNED"
	DocumentCIR         DocumentCategory = "CIR"
)

func (c DocumentCategory) String() string {
	return string(c)
}

// Lower is the form used in storage keys and fallback attachment names.
func (c DocumentCategory) Lower() string {
	return strings.ToLower(string(c))
}

type TicketStatus string

const (
	TicketOpen   TicketStatus = "Open"
	TicketClosed TicketStatus = "Closed"
)

func (s TicketStatus) String() string {
	return string(s)
}
