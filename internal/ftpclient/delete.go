package ftpclient

import (
	"context"
	"fmt"
	"path"
	"sort"
)

// DeleteFiles removes each relative path under remotePath. Files the account
// may not delete, or that are already gone, are reported as skipped.
func (c *Client) DeleteFiles(ctx context.Context, cred Credential, remotePath string, rels []string, progress ProgressFunc) (*Report, error) {
	remotePath = NormalizeRemote(remotePath)
	rels = uniqueStrings(rels)
	rep := &Report{}
	if len(rels) == 0 {
		return rep, nil
	}
	handled := map[string]bool{}

	attempts, err := c.withRetry(ctx, "delete", cred, func(conn Conn) error {
		for _, rel := range rels {
			if err := ctx.Err(); err != nil {
				return err
			}
			if handled[rel] {
				continue
			}
			remote := path.Join(remotePath, rel)
			if err := conn.Delete(remote); err != nil {
				if !IsPermissionDenied(err) {
					return fmt.Errorf("delete %s: %w", remote, err)
				}
				c.logger.Warn("ftp delete refused, skipping", "path", rel, "error", err)
				rep.Skipped = append(rep.Skipped, rel)
			} else {
				rep.Done = append(rep.Done, rel)
			}
			handled[rel] = true
			c.report(progress, "delete", len(handled), len(rels), rel)
		}
		return nil
	})
	rep.Attempts = attempts
	sort.Strings(rep.Done)
	sort.Strings(rep.Skipped)
	if err != nil {
		return rep, err
	}
	c.logger.Info("ftp delete finished", "remote", remotePath, "files", len(rep.Done), "skipped", len(rep.Skipped), "attempts", attempts)
	return rep, nil
}

func uniqueStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
