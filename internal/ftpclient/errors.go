package ftpclient

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/textproto"
	"strings"
	"syscall"
)

// FTP reply codes the retry and skip policies care about.
const (
	codeServiceNotAvailable = 421
	codeCannotOpenData      = 425
	codeTransferAborted     = 426
	codeFileUnavailable     = 550
)

// TransportError is returned once an operation gives up, either because the
// error was not transient or because every attempt failed.
type TransportError struct {
	Op        string
	Attempts  int
	Transient bool
	Err       error
}

func (e *TransportError) Error() string {
	if e.Transient {
		return fmt.Sprintf("ftp %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("ftp %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func replyCode(err error) int {
	var te *textproto.Error
	if errors.As(err, &te) {
		return te.Code
	}
	return 0
}

// IsTransient reports whether err is worth another attempt: timeouts,
// resets, broken pipes, dropped control connections and passive data
// channel failures.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	switch replyCode(err) {
	case codeServiceNotAvailable, codeCannotOpenData, codeTransferAborted:
		return true
	}
	if IsPassiveFailure(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"timeout", "timed out", "connection reset", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// IsPassiveFailure reports a failure to open the passive data channel.
func IsPassiveFailure(err error) bool {
	if err == nil {
		return false
	}
	if replyCode(err) == codeCannotOpenData {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "pasv") || strings.Contains(msg, "epsv") ||
		strings.Contains(msg, "data connection")
}

// IsPermissionDenied reports 550-class refusals. Storefront accounts often
// lack access to parts of the tree, so these are skipped per item.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	if replyCode(err) == codeFileUnavailable {
		return true
	}
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "permission denied")
}
