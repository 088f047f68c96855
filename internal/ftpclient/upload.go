package ftpclient

import (
	"context"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
)

// UploadFiles stores each item under remotePath, creating missing remote
// directories first. Files are sent one at a time in RelPath order.
func (c *Client) UploadFiles(ctx context.Context, cred Credential, remotePath string, items []UploadItem, progress ProgressFunc) (*Report, error) {
	remotePath = NormalizeRemote(remotePath)
	items = uniqueItems(items)
	rep := &Report{}
	if len(items) == 0 {
		return rep, nil
	}
	done := map[string]bool{}
	failed := map[string]bool{}

	attempts, err := c.withRetry(ctx, "upload", cred, func(conn Conn) error {
		ready := map[string]bool{}
		broken := map[string]bool{}
		for _, it := range items {
			if err := ctx.Err(); err != nil {
				return err
			}
			if done[it.RelPath] || failed[it.RelPath] {
				continue
			}
			remote := path.Join(remotePath, it.RelPath)
			dir := path.Dir(remote)
			if !ready[dir] && !broken[dir] {
				if err := ensureRemoteDir(conn, dir); err != nil {
					if IsTransient(err) {
						return err
					}
					c.logger.Warn("ftp remote directory unavailable", "dir", dir, "error", err)
					broken[dir] = true
				} else {
					ready[dir] = true
				}
			}
			if broken[dir] {
				failed[it.RelPath] = true
				rep.Failed = append(rep.Failed, it.RelPath)
				c.report(progress, "upload", len(rep.Done)+len(rep.Failed), len(items), it.RelPath)
				continue
			}

			f, err := os.Open(it.LocalPath)
			if err != nil {
				c.logger.Warn("local file unreadable, not uploaded", "path", it.RelPath, "error", err)
				failed[it.RelPath] = true
				rep.Failed = append(rep.Failed, it.RelPath)
				c.report(progress, "upload", len(rep.Done)+len(rep.Failed), len(items), it.RelPath)
				continue
			}
			err = conn.Stor(remote, f)
			_ = f.Close()
			if err != nil {
				return fmt.Errorf("upload %s: %w", it.RelPath, err)
			}
			done[it.RelPath] = true
			rep.Done = append(rep.Done, it.RelPath)
			c.report(progress, "upload", len(rep.Done)+len(rep.Failed), len(items), it.RelPath)
		}
		return nil
	})
	rep.Attempts = attempts
	sort.Strings(rep.Done)
	sort.Strings(rep.Failed)
	if err != nil {
		return rep, err
	}
	c.logger.Info("ftp upload finished", "remote", remotePath, "files", len(rep.Done), "failed", len(rep.Failed), "attempts", attempts)
	return rep, nil
}

// ensureRemoteDir creates dir and its parents. MakeDir errors are expected
// for directories that already exist, so only a final listing decides.
func ensureRemoteDir(conn Conn, dir string) error {
	if dir == "/" || dir == "." || dir == "" {
		return nil
	}
	var mkErr error
	cur := ""
	for _, seg := range strings.Split(strings.Trim(dir, "/"), "/") {
		cur += "/" + seg
		mkErr = conn.MakeDir(cur)
		if mkErr != nil && IsTransient(mkErr) {
			return mkErr
		}
	}
	if mkErr == nil {
		return nil
	}
	if _, err := conn.List(dir); err != nil {
		return fmt.Errorf("remote dir %s: %w", dir, mkErr)
	}
	return nil
}

func uniqueItems(items []UploadItem) []UploadItem {
	seen := map[string]bool{}
	out := make([]UploadItem, 0, len(items))
	for _, it := range items {
		if it.RelPath == "" || seen[it.RelPath] {
			continue
		}
		seen[it.RelPath] = true
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out
}
