package errors

import "github.com/pkg/errors"

var (
	// mailbox errors
	ErrMailboxAuth       = errors.New("mailbox authentication failed")
	ErrMailboxConnection = errors.New("mailbox connection failed")
	ErrFolderNotFound    = errors.New("folder not found")
	ErrMessageFetch      = errors.New("message fetch failed")
	ErrConnectionLost    = errors.New("mailbox connection lost")
	ErrNotConnected      = errors.New("mailbox not connected")

	// processing errors
	ErrMessageParse = errors.New("message could not be parsed")
	ErrBatchCommit  = errors.New("batch commit failed")

	// run errors
	ErrRunInProgress = errors.New("sync run already in progress")

	// storage errors
	ErrStorageNotConfigured = errors.New("blob storage is not configured")
)
