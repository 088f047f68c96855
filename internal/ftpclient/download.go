package ftpclient

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"skin-sync/internal/snapshot"

	"github.com/jlaffaye/ftp"
)

// DownloadTree mirrors remotePath into localDir. The remote path is listed
// first so a wrong path fails before anything local is touched; localDir is
// then cleared (reserved .sync_ entries survive) and filled depth-first.
// Folders and files refused with a permission error are skipped.
func (c *Client) DownloadTree(ctx context.Context, cred Credential, remotePath, localDir string, progress ProgressFunc) (*Report, error) {
	remotePath = NormalizeRemote(remotePath)
	rep := &Report{}
	done := map[string]bool{}
	skipped := map[string]bool{}
	cleared := false

	attempts, err := c.withRetry(ctx, "download", cred, func(conn Conn) error {
		entries, err := conn.List(remotePath)
		if err != nil {
			return fmt.Errorf("list remote path %s: %w", remotePath, err)
		}
		if !cleared {
			if err := clearLocalDir(localDir); err != nil {
				return err
			}
			cleared = true
		}
		w := &treeWalker{c: c, ctx: ctx, conn: conn, localDir: localDir, rep: rep, done: done, skipped: skipped, progress: progress}
		return w.walk(remotePath, "", entries)
	})
	rep.Attempts = attempts
	if err != nil {
		return rep, err
	}
	sort.Strings(rep.Done)
	sort.Strings(rep.Skipped)
	if progress != nil && len(rep.Done) > 0 {
		progress(Progress{Op: "download", Done: len(rep.Done), Total: len(rep.Done)})
	}
	c.logger.Info("ftp download finished", "remote", remotePath, "files", len(rep.Done), "skipped", len(rep.Skipped), "attempts", attempts)
	return rep, nil
}

type treeWalker struct {
	c        *Client
	ctx      context.Context
	conn     Conn
	localDir string
	rep      *Report
	done     map[string]bool
	skipped  map[string]bool
	progress ProgressFunc
}

func (w *treeWalker) skip(rel string, err error) {
	if w.skipped[rel] {
		return
	}
	w.skipped[rel] = true
	w.rep.Skipped = append(w.rep.Skipped, rel)
	w.c.logger.Warn("ftp permission denied, skipping", "path", rel, "error", err)
}

func (w *treeWalker) walk(remoteDir, relDir string, entries []*ftp.Entry) error {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for _, e := range entries {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		name := path.Base(e.Name)
		if name == "." || name == ".." || name == "/" || name == "" {
			continue
		}
		rel := path.Join(relDir, name)
		if snapshot.IsReserved(rel) || w.skipped[rel] {
			continue
		}
		remote := path.Join(remoteDir, name)

		switch e.Type {
		case ftp.EntryTypeFolder:
			if err := os.MkdirAll(filepath.Join(w.localDir, filepath.FromSlash(rel)), 0755); err != nil {
				return fmt.Errorf("create local dir %s: %w", rel, err)
			}
			children, err := w.conn.List(remote)
			if err != nil {
				if IsPermissionDenied(err) {
					w.skip(rel, err)
					continue
				}
				return fmt.Errorf("list %s: %w", remote, err)
			}
			if err := w.walk(remote, rel, children); err != nil {
				return err
			}
		case ftp.EntryTypeFile:
			if w.done[rel] {
				continue
			}
			if err := w.fetch(remote, filepath.Join(w.localDir, filepath.FromSlash(rel))); err != nil {
				if IsPermissionDenied(err) {
					w.skip(rel, err)
					continue
				}
				return fmt.Errorf("download %s: %w", remote, err)
			}
			w.done[rel] = true
			w.rep.Done = append(w.rep.Done, rel)
			w.c.report(w.progress, "download", len(w.rep.Done), 0, rel)
		}
	}
	return nil
}

// fetch writes into a temp file next to dest and renames it into place so an
// interrupted transfer never leaves a truncated file behind.
func (w *treeWalker) fetch(remote, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	resp, err := w.conn.Retr(remote)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".sync_part-*")
	if err != nil {
		_ = resp.Close()
		return err
	}
	_, cerr := io.Copy(tmp, resp)
	rerr := resp.Close()
	ferr := tmp.Close()
	if cerr == nil {
		cerr = rerr
	}
	if cerr == nil {
		cerr = ferr
	}
	if cerr != nil {
		_ = os.Remove(tmp.Name())
		return cerr
	}
	return os.Rename(tmp.Name(), dest)
}

func clearLocalDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create local dir %s: %w", dir, err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read local dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if snapshot.IsReserved(e.Name()) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("clear %s: %w", e.Name(), err)
		}
	}
	return nil
}
