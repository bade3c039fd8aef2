package interfaces

import (
	"context"

	"github.com/kotsworld/mailsync/dto"
)

// MailboxClient owns a single mail session. Reconnect replaces the session in place,
// so callers never hold a stale handle.
type MailboxClient interface {
	Connect(ctx context.Context) error
	SelectFolder(ctx context.Context, name string) (*dto.FolderInfo, error)
	Search(ctx context.Context, criteria dto.SearchCriteria) ([]uint32, error)
	Fetch(ctx context.Context, uid uint32) ([]byte, error)
	Reconnect(ctx context.Context) error
	Disconnect(ctx context.Context)
}
