package ingestion

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/kotsworld/mailsync/dto"
	"github.com/kotsworld/mailsync/interfaces"
	mailsync_errors "github.com/kotsworld/mailsync/internal/errors"
	"github.com/kotsworld/mailsync/internal/logger"
	"github.com/kotsworld/mailsync/internal/tracing"
	"github.com/kotsworld/mailsync/services/parser"
)

// messageHandler sees every message that was fetched and decoded.
type messageHandler func(ctx context.Context, folder string, msg *dto.RawMessage)

// commitFunc persists everything accumulated since the previous commit.
type commitFunc func(ctx context.Context) error

// scanner walks the candidate folders of one mailbox session.
type scanner struct {
	mailbox interfaces.MailboxClient
	folders []string
	log     logger.Logger
	label   string
}

func newScanner(mailbox interfaces.MailboxClient, folders []string, log logger.Logger, label string) *scanner {
	return &scanner{mailbox: mailbox, folders: folders, log: log, label: label}
}

// NormalizeFolder maps aliases such as `"Sent"` and `sent` to one name.
func NormalizeFolder(name string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(name), `"`))
}

// scan searches each folder once and feeds messages newest first to handle, committing after
// every folder. Fetched, Errors and FolderErrors are counted into counters. The returned error
// is fatal for the run; work accumulated up to that point has already been committed when possible.
func (s *scanner) scan(ctx context.Context, criteria dto.SearchCriteria, counters *dto.SyncCounters, handle messageHandler, commit commitFunc) ([]string, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "scanner.scan")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	seen := make(map[string]bool)
	var scanned []string

	for _, folder := range s.folders {
		key := NormalizeFolder(folder)
		if key == "" || seen[key] {
			s.log.Debugf("[%s][%s] Folder already processed in this run, skipping", s.label, folder)
			continue
		}

		found, err := s.scanFolder(ctx, folder, criteria, counters, handle)
		if found {
			seen[key] = true
		}
		if err != nil {
			if commitErr := s.commit(context.WithoutCancel(ctx), folder, commit); commitErr != nil {
				err = fmt.Errorf("%w; %w", err, commitErr)
			}
			tracing.TraceErr(span, err)
			return scanned, err
		}
		if !found {
			continue
		}

		scanned = append(scanned, folder)
		if err := s.commit(ctx, folder, commit); err != nil {
			tracing.TraceErr(span, err)
			return scanned, err
		}
	}

	span.LogKV("folders.scanned", len(scanned), "fetched", counters.Fetched, "errors", counters.Errors)
	return scanned, nil
}

func (s *scanner) commit(ctx context.Context, folder string, commit commitFunc) error {
	if err := commit(ctx); err != nil {
		s.log.Errorf("[%s][%s] Failed to commit batch: %v", s.label, folder, err)
		return errors.Wrap(mailsync_errors.ErrBatchCommit, err.Error())
	}
	return nil
}

// scanFolder returns found=false when the folder does not exist on the server or its search
// was rejected. Only a lost connection or a cancelled run is returned as an error.
func (s *scanner) scanFolder(ctx context.Context, folder string, criteria dto.SearchCriteria, counters *dto.SyncCounters, handle messageHandler) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "scanner.scanFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder.name", folder)

	var uids []uint32
	err := s.withReconnect(ctx, folder, func() error {
		if _, err := s.mailbox.SelectFolder(ctx, folder); err != nil {
			return err
		}
		var err error
		uids, err = s.mailbox.Search(ctx, criteria)
		return err
	})
	if err != nil {
		if errors.Is(err, mailsync_errors.ErrFolderNotFound) {
			s.log.Debugf("[%s][%s] Folder not found, skipping", s.label, folder)
			return false, nil
		}
		tracing.TraceErr(span, err)
		if errors.Is(err, mailsync_errors.ErrConnectionLost) || ctx.Err() != nil {
			s.log.Errorf("[%s][%s] Failed to search folder: %v", s.label, folder, err)
			return true, err
		}
		counters.FolderErrors++
		s.log.Errorf("[%s][%s] Failed to search folder, skipping: %v", s.label, folder, err)
		return false, nil
	}

	// UIDs grow with arrival, so descending is newest first.
	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	s.log.Infof("[%s][%s] %d messages to examine", s.label, folder, len(uids))
	span.SetTag("messages.count", len(uids))

	for _, uid := range uids {
		if err := ctx.Err(); err != nil {
			return true, err
		}

		raw, err := s.fetch(ctx, folder, uid)
		if err != nil {
			if errors.Is(err, mailsync_errors.ErrConnectionLost) {
				return true, err
			}
			counters.Errors++
			s.log.Warnf("[%s][%s] Failed to fetch message %d: %v", s.label, folder, uid, err)
			continue
		}
		counters.Fetched++

		msg, err := parser.Parse(raw)
		if err != nil {
			counters.Errors++
			s.log.Warnf("[%s][%s] Failed to parse message %d: %v", s.label, folder, uid, err)
			continue
		}
		msg.UID = uid
		msg.Folder = folder

		handle(ctx, folder, msg)
	}

	return true, nil
}

// fetch retries a message once after a reconnect when the session dropped.
func (s *scanner) fetch(ctx context.Context, folder string, uid uint32) ([]byte, error) {
	raw, err := s.mailbox.Fetch(ctx, uid)
	if err == nil || !errors.Is(err, mailsync_errors.ErrMailboxConnection) {
		return raw, err
	}

	s.log.Warnf("[%s][%s] Connection failure fetching %d, reconnecting: %v", s.label, folder, uid, err)
	if reconnectErr := s.mailbox.Reconnect(ctx); reconnectErr != nil {
		s.log.Errorf("[%s][%s] Reconnect failed: %v", s.label, folder, reconnectErr)
		return nil, errors.Wrap(mailsync_errors.ErrConnectionLost, reconnectErr.Error())
	}
	return s.mailbox.Fetch(ctx, uid)
}

// withReconnect runs op and, after a connection failure, reconnects and runs it once more.
func (s *scanner) withReconnect(ctx context.Context, folder string, op func() error) error {
	err := op()
	if err == nil || !errors.Is(err, mailsync_errors.ErrMailboxConnection) {
		return err
	}

	s.log.Warnf("[%s][%s] Connection failure, reconnecting: %v", s.label, folder, err)
	if reconnectErr := s.mailbox.Reconnect(ctx); reconnectErr != nil {
		return errors.Wrap(mailsync_errors.ErrConnectionLost, reconnectErr.Error())
	}
	return op()
}
