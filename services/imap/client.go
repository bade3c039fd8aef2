package imap

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/emersion/go-imap"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/kotsworld/mailsync/dto"
	"github.com/kotsworld/mailsync/interfaces"
	mailsync_errors "github.com/kotsworld/mailsync/internal/errors"
	"github.com/kotsworld/mailsync/internal/logger"
	"github.com/kotsworld/mailsync/internal/tracing"
)

type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	TLS         bool
	DialTimeout time.Duration
}

// Client is a single-session mailbox client. It remembers the selected folder so a
// reconnect can restore it.
type Client struct {
	cfg  Config
	log  logger.Logger
	dial connFactory

	mu     sync.Mutex
	conn   imapConn
	folder string
}

type Option func(*Client)

func withConnFactory(factory connFactory) Option {
	return func(c *Client) {
		c.dial = factory
	}
}

func NewClient(cfg Config, log logger.Logger, opts ...Option) *Client {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = DEFAULT_COMMAND_TIMEOUT
	}
	c := &Client{
		cfg:  cfg,
		log:  log,
		dial: dialSession,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ interfaces.MailboxClient = (*Client)(nil)

func (c *Client) Connect(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Client.Connect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("server", c.cfg.Host)
	span.SetTag("port", c.cfg.Port)
	span.SetTag("tls", c.cfg.TLS)

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	conn, err := c.dial(ctx, c.cfg)
	if err != nil {
		err = errors.Wrap(mailsync_errors.ErrMailboxConnection, err.Error())
		tracing.TraceErr(opentracing.SpanFromContext(ctx), err)
		return err
	}

	if err := conn.Login(c.cfg.Username, c.cfg.Password); err != nil {
		_ = conn.Logout()
		if isTransient(err) {
			err = errors.Wrapf(mailsync_errors.ErrMailboxConnection, "login as %s: %v", c.cfg.Username, err)
		} else {
			err = errors.Wrapf(mailsync_errors.ErrMailboxAuth, "login as %s: %v", c.cfg.Username, err)
		}
		tracing.TraceErr(opentracing.SpanFromContext(ctx), err)
		return err
	}

	c.conn = conn
	c.log.Infof("[%s] Connected and logged in to %s:%d", c.cfg.Username, c.cfg.Host, c.cfg.Port)
	return nil
}

// SelectFolder opens name read-only. A server refusal is reported as ErrFolderNotFound.
func (c *Client) SelectFolder(ctx context.Context, name string) (*dto.FolderInfo, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Client.SelectFolder")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder.name", name)

	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := c.selectLocked(name)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.SetTag("messages.total", info.Messages)
	return info, nil
}

func (c *Client) selectLocked(name string) (*dto.FolderInfo, error) {
	if c.conn == nil {
		return nil, mailsync_errors.ErrNotConnected
	}

	status, err := c.conn.Select(name, true)
	if err != nil {
		if isTransient(err) {
			return nil, errors.Wrapf(mailsync_errors.ErrMailboxConnection, "select %s: %v", name, err)
		}
		return nil, errors.Wrapf(mailsync_errors.ErrFolderNotFound, "select %s: %v", name, err)
	}

	c.folder = name
	info := &dto.FolderInfo{Name: name}
	if status != nil {
		info.Messages = status.Messages
		info.UidValidity = status.UidValidity
	}
	c.log.Debugf("[%s][%s] Selected folder - Messages: %d", c.cfg.Username, name, info.Messages)
	return info, nil
}

func (c *Client) Search(ctx context.Context, criteria dto.SearchCriteria) ([]uint32, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Client.Search")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, mailsync_errors.ErrNotConnected
	}

	uids, err := c.conn.UidSearch(toSearchCriteria(criteria))
	if err != nil {
		if isTransient(err) {
			err = errors.Wrapf(mailsync_errors.ErrMailboxConnection, "search %s: %v", c.folder, err)
		} else {
			err = errors.Wrapf(err, "search %s", c.folder)
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.SetTag("result.count", len(uids))
	return uids, nil
}

func toSearchCriteria(criteria dto.SearchCriteria) *imap.SearchCriteria {
	sc := imap.NewSearchCriteria()
	if criteria.Since != nil {
		sc.Since = *criteria.Since
	}
	if criteria.Text != "" {
		sc.Text = []string{criteria.Text}
	}
	return sc
}

// Fetch returns the raw RFC822 bytes of the message without setting \Seen.
func (c *Client) Fetch(ctx context.Context, uid uint32) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Client.Fetch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("uid", uid)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, errors.Wrap(mailsync_errors.ErrMailboxConnection, "no session")
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.conn.UidFetch(seqSet, items, messages)
	}()

	var raw []byte
	var readErr error
	for msg := range messages {
		if msg == nil || raw != nil {
			continue
		}
		if body := msg.GetBody(section); body != nil {
			raw, readErr = io.ReadAll(body)
		}
	}

	err := <-done
	switch {
	case err != nil && isTransient(err):
		err = errors.Wrapf(mailsync_errors.ErrMailboxConnection, "fetch %d: %v", uid, err)
	case err != nil:
		err = errors.Wrapf(mailsync_errors.ErrMessageFetch, "fetch %d: %v", uid, err)
	case readErr != nil:
		err = errors.Wrapf(mailsync_errors.ErrMailboxConnection, "read %d: %v", uid, readErr)
	case len(raw) == 0:
		err = errors.Wrapf(mailsync_errors.ErrMessageFetch, "message %d has no body", uid)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	span.SetTag("size", len(raw))
	return raw, nil
}

// Reconnect drops the current session, logs in again and restores the selected folder.
func (c *Client) Reconnect(ctx context.Context) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Client.Reconnect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("folder.name", c.folder)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Warnf("[%s][%s] Reconnecting to mailbox", c.cfg.Username, c.folder)
	c.logoutLocked()

	if err := c.connectLocked(ctx); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	if c.folder != "" {
		if _, err := c.selectLocked(c.folder); err != nil {
			tracing.TraceErr(span, err)
			return fmt.Errorf("reselect after reconnect: %w", err)
		}
	}

	return nil
}

func (c *Client) Disconnect(ctx context.Context) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Client.Disconnect")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.logoutLocked()
	c.folder = ""
}

// logoutLocked logs out with a bounded wait; a dead session must not hang the run.
func (c *Client) logoutLocked() {
	conn := c.conn
	c.conn = nil
	if conn == nil {
		return
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Logout()
	}()

	select {
	case err := <-done:
		if err != nil {
			c.log.Debugf("[%s] Error during logout: %v", c.cfg.Username, err)
		}
	case <-time.After(DEFAULT_LOGOUT_TIMEOUT):
		c.log.Warnf("[%s] Logout timed out", c.cfg.Username)
	}
}
