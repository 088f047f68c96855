package ftpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

const DefaultPort = 21

// Credential identifies an FTP account.
type Credential struct {
	Host     string `yaml:"host" json:"host"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"-"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`
}

// Complete reports whether host, user and password are all present.
func (c Credential) Complete() bool {
	return strings.TrimSpace(c.Host) != "" &&
		strings.TrimSpace(c.User) != "" &&
		c.Password != ""
}

// Addr returns host:port, tolerating an ftp:// scheme in Host.
func (c Credential) Addr() string {
	host := strings.TrimSpace(c.Host)
	host = strings.TrimPrefix(host, "ftp://")
	host = strings.TrimSuffix(host, "/")
	if h, p, err := net.SplitHostPort(host); err == nil {
		return net.JoinHostPort(h, p)
	}
	port := c.Port
	if port <= 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Conn is the subset of an FTP control connection used by the client.
type Conn interface {
	List(path string) ([]*ftp.Entry, error)
	Retr(path string) (io.ReadCloser, error)
	Stor(path string, r io.Reader) error
	MakeDir(path string) error
	Delete(path string) error
	Quit() error
}

// DialOptions tune a single connection attempt.
type DialOptions struct {
	Timeout     time.Duration
	DisableEPSV bool
}

// Dialer opens and authenticates a connection.
type Dialer func(ctx context.Context, cred Credential, opts DialOptions) (Conn, error)

type serverConn struct {
	*ftp.ServerConn
}

func (s serverConn) Retr(path string) (io.ReadCloser, error) {
	return s.ServerConn.Retr(path)
}

// DialFTP is the production Dialer backed by github.com/jlaffaye/ftp.
func DialFTP(ctx context.Context, cred Credential, opts DialOptions) (Conn, error) {
	addr := cred.Addr()
	sc, err := ftp.Dial(addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(opts.Timeout),
		ftp.DialWithDisabledEPSV(opts.DisableEPSV),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if err := sc.Login(cred.User, cred.Password); err != nil {
		_ = sc.Quit()
		return nil, fmt.Errorf("login %s@%s: %w", cred.User, addr, err)
	}
	return serverConn{sc}, nil
}
