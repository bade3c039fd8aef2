package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

const (
	DEFAULT_COMMAND_TIMEOUT = 30 * time.Second
	DEFAULT_LOGOUT_TIMEOUT  = 5 * time.Second
)

// imapConn is the subset of the go-imap client used by the mailbox client.
type imapConn interface {
	Login(username, password string) error
	Logout() error
	Select(name string, readOnly bool) (*imap.MailboxStatus, error)
	UidSearch(criteria *imap.SearchCriteria) ([]uint32, error)
	UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error
}

type connFactory func(ctx context.Context, cfg Config) (imapConn, error)

// session wraps a live go-imap client and bounds the short commands with a timeout.
type session struct {
	c       *client.Client
	timeout time.Duration
}

func dialSession(ctx context.Context, cfg Config) (imapConn, error) {
	serverAddr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	var c *client.Client
	var err error
	if cfg.TLS {
		c, err = client.DialWithDialerTLS(dialer, serverAddr, &tls.Config{ServerName: cfg.Host})
	} else {
		c, err = client.DialWithDialer(dialer, serverAddr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", serverAddr, err)
	}

	return &session{c: c, timeout: DEFAULT_COMMAND_TIMEOUT}, nil
}

func (s *session) Login(username, password string) error {
	s.c.Timeout = s.timeout
	defer func() { s.c.Timeout = 0 }()
	return s.c.Login(username, password)
}

func (s *session) Logout() error {
	s.c.Timeout = DEFAULT_LOGOUT_TIMEOUT
	return s.c.Logout()
}

func (s *session) Select(name string, readOnly bool) (*imap.MailboxStatus, error) {
	s.c.Timeout = s.timeout
	defer func() { s.c.Timeout = 0 }()
	return s.c.Select(name, readOnly)
}

func (s *session) UidSearch(criteria *imap.SearchCriteria) ([]uint32, error) {
	s.c.Timeout = s.timeout
	defer func() { s.c.Timeout = 0 }()
	return s.c.UidSearch(criteria)
}

// UidFetch runs without a command timeout; message bodies with attachments can be large.
func (s *session) UidFetch(seqset *imap.SeqSet, items []imap.FetchItem, ch chan *imap.Message) error {
	return s.c.UidFetch(seqset, items, ch)
}
