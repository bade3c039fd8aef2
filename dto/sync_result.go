package dto

import "time"

type SyncCounters struct {
	Fetched int `json:"fetched"`
	New     int `json:"new"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
	// FolderErrors counts folders skipped because the server rejected the search.
	FolderErrors int `json:"folder_errors,omitempty"`
}

type DocumentSyncResult struct {
	Pipeline   string    `json:"pipeline"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	SyncCounters
	Error string `json:"error,omitempty"`
}

func (r *DocumentSyncResult) Failed() bool {
	return r.Error != ""
}

type TicketSyncResult struct {
	Pipeline   string    `json:"pipeline"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	SyncCounters
	ClosureFetched int    `json:"closure_fetched"`
	Closed         int    `json:"closed"`
	AlreadyClosed  int    `json:"already_closed"`
	ClosureErrors  int    `json:"closure_errors"`
	Error          string `json:"error,omitempty"`
}

func (r *TicketSyncResult) Failed() bool {
	return r.Error != ""
}

// BackfillResult reports what was found per booking.
type BackfillResult struct {
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Bookings   map[string]SyncCounters `json:"bookings"`
	Total      SyncCounters            `json:"total"`
	Error      string                  `json:"error,omitempty"`
}
