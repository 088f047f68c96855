package ftpclient

import (
	"bytes"
	"context"
	"io"
	"net/textproto"
	"path"
	"sync"

	"github.com/jlaffaye/ftp"
)

// fakeServer is an in-memory FTP tree shared by every fakeConn it dials.
type fakeServer struct {
	mu      sync.Mutex
	files   map[string][]byte
	dirs    map[string]bool
	denied  map[string]bool
	dials   int
	quits   int
	stors   int
	epsvOff []bool

	dialErr func(n int) error
	storErr func(n int, p string) error
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		files:  map[string][]byte{},
		dirs:   map[string]bool{"/": true},
		denied: map[string]bool{},
	}
}

func (s *fakeServer) put(p, body string) {
	p = path.Clean(p)
	for d := path.Dir(p); ; d = path.Dir(d) {
		s.dirs[d] = true
		if d == "/" {
			break
		}
	}
	s.files[p] = []byte(body)
}

func (s *fakeServer) dialer() Dialer {
	return func(ctx context.Context, cred Credential, opts DialOptions) (Conn, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.dials++
		s.epsvOff = append(s.epsvOff, opts.DisableEPSV)
		if s.dialErr != nil {
			if err := s.dialErr(s.dials); err != nil {
				return nil, err
			}
		}
		return &fakeConn{s: s}, nil
	}
}

func reply(code int, msg string) error {
	return &textproto.Error{Code: code, Msg: msg}
}

type fakeConn struct {
	s *fakeServer
}

func (c *fakeConn) List(p string) ([]*ftp.Entry, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	p = path.Clean(p)
	if c.s.denied[p] {
		return nil, reply(550, "Permission denied")
	}
	if !c.s.dirs[p] {
		return nil, reply(550, "No such file or directory")
	}
	var out []*ftp.Entry
	for d := range c.s.dirs {
		if d != p && path.Dir(d) == p {
			out = append(out, &ftp.Entry{Name: path.Base(d), Type: ftp.EntryTypeFolder})
		}
	}
	for f, b := range c.s.files {
		if path.Dir(f) == p {
			out = append(out, &ftp.Entry{Name: path.Base(f), Type: ftp.EntryTypeFile, Size: uint64(len(b))})
		}
	}
	return out, nil
}

func (c *fakeConn) Retr(p string) (io.ReadCloser, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	p = path.Clean(p)
	if c.s.denied[p] {
		return nil, reply(550, "Permission denied")
	}
	b, ok := c.s.files[p]
	if !ok {
		return nil, reply(550, "No such file")
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), b...))), nil
}

func (c *fakeConn) Stor(p string, r io.Reader) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.stors++
	p = path.Clean(p)
	if c.s.storErr != nil {
		if err := c.s.storErr(c.s.stors, p); err != nil {
			return err
		}
	}
	if !c.s.dirs[path.Dir(p)] {
		return reply(553, "Could not create file")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	c.s.files[p] = b
	return nil
}

func (c *fakeConn) MakeDir(p string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	p = path.Clean(p)
	if c.s.dirs[p] {
		return reply(550, "File exists")
	}
	if !c.s.dirs[path.Dir(p)] || c.s.denied[path.Dir(p)] {
		return reply(550, "Permission denied")
	}
	c.s.dirs[p] = true
	return nil
}

func (c *fakeConn) Delete(p string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	p = path.Clean(p)
	if c.s.denied[p] {
		return reply(550, "Permission denied")
	}
	if _, ok := c.s.files[p]; !ok {
		return reply(550, "No such file")
	}
	delete(c.s.files, p)
	return nil
}

func (c *fakeConn) Quit() error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.quits++
	return nil
}
