package imap

import (
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// isTransient reports whether err means the session itself is gone, as opposed to
// the server rejecting a single command.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, client.ErrAlreadyLoggedOut) ||
		errors.Is(err, client.ErrNotLoggedIn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var statusErr *imap.ErrStatusResp
	if errors.As(err, &statusErr) {
		return statusErr.Resp != nil && statusErr.Resp.Type == imap.StatusRespBye
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "use of closed network connection")
}
