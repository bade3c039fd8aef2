package dto

type TicketSubject struct {
	TicketNumber   string
	Classification string
	Category       *string
}
