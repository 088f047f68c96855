package ftpclient

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"
)

const (
	DefaultMaxAttempts   = 3
	DefaultBackoff       = 1500 * time.Millisecond
	DefaultTimeout       = 180 * time.Second
	DefaultProgressEvery = 25
)

// Progress describes how far a transfer loop has come. Total is zero when
// the amount of work is not known up front (tree downloads).
type Progress struct {
	Op    string
	Done  int
	Total int
	Path  string
}

type ProgressFunc func(Progress)

// UploadItem pairs a local file with its path relative to the remote root.
type UploadItem struct {
	LocalPath string
	RelPath   string
}

// Report lists the outcome of one operation. Done holds relative paths that
// were transferred or deleted, Skipped the ones refused with a permission
// error, Failed the ones that could not be processed for a local reason or a
// missing remote directory.
type Report struct {
	Done     []string
	Skipped  []string
	Failed   []string
	Attempts int
}

// Count is the number of items transferred or deleted.
func (r *Report) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Done)
}

// Client runs FTP operations with a fresh connection per attempt.
type Client struct {
	dial          Dialer
	maxAttempts   int
	backoff       time.Duration
	timeout       time.Duration
	forcePASV     bool
	progressEvery int
	logger        *slog.Logger
	sleep         func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithDialer(d Dialer) Option { return func(c *Client) { c.dial = d } }

func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithBackoff(d time.Duration) Option { return func(c *Client) { c.backoff = d } }

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithForcePASV skips EPSV from the first attempt.
func WithForcePASV(v bool) Option { return func(c *Client) { c.forcePASV = v } }

func WithProgressEvery(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.progressEvery = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Client using DialFTP unless another dialer is given.
func New(opts ...Option) *Client {
	c := &Client{
		dial:          DialFTP,
		maxAttempts:   DefaultMaxAttempts,
		backoff:       DefaultBackoff,
		timeout:       DefaultTimeout,
		progressEvery: DefaultProgressEvery,
		logger:        slog.Default(),
		sleep:         sleepCtx,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// withRetry runs fn on a fresh connection up to maxAttempts times. fn must
// remember completed work itself so a retry resumes instead of repeating.
func (c *Client) withRetry(ctx context.Context, op string, cred Credential, fn func(conn Conn) error) (int, error) {
	disableEPSV := c.forcePASV
	var last error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}
		err := c.attempt(ctx, cred, disableEPSV, fn)
		if err == nil {
			return attempt, nil
		}
		last = err
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		if !IsTransient(err) {
			return attempt, &TransportError{Op: op, Attempts: attempt, Err: err}
		}
		if IsPassiveFailure(err) && !disableEPSV {
			c.logger.Warn("ftp passive data channel failed, falling back to PASV", "op", op, "error", err)
			disableEPSV = true
		}
		if attempt < c.maxAttempts {
			wait := time.Duration(attempt) * c.backoff
			c.logger.Warn("ftp transient error, retrying", "op", op, "attempt", attempt, "wait", wait, "error", err)
			if serr := c.sleep(ctx, wait); serr != nil {
				return attempt, serr
			}
		}
	}
	return c.maxAttempts, &TransportError{Op: op, Attempts: c.maxAttempts, Transient: true, Err: last}
}

func (c *Client) attempt(ctx context.Context, cred Credential, disableEPSV bool, fn func(conn Conn) error) error {
	conn, err := c.dial(ctx, cred, DialOptions{Timeout: c.timeout, DisableEPSV: disableEPSV})
	if err != nil {
		return err
	}
	// A cancelled context tears the connection down so blocked I/O returns.
	stop := context.AfterFunc(ctx, func() { _ = conn.Quit() })
	defer func() {
		if stop() {
			_ = conn.Quit()
		}
	}()
	return fn(conn)
}

func (c *Client) report(progress ProgressFunc, op string, done, total int, rel string) {
	if progress == nil {
		return
	}
	if done == 1 || done == total || done%c.progressEvery == 0 {
		progress(Progress{Op: op, Done: done, Total: total, Path: rel})
	}
}

// NormalizeRemote returns an absolute, cleaned remote path; empty means "/".
func NormalizeRemote(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
