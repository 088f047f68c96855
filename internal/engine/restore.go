package engine

import (
	"context"
	"fmt"

	"skin-sync/internal/ftpclient"
)

// RestoreInitial puts the working copy and the server back to the baseline:
// the local tree is replaced by the mirror, every mirrored baseline file is
// uploaded again and tracked-new files are deleted remotely.
func (e *Engine) RestoreInitial(ctx context.Context, p Project, progress ftpclient.ProgressFunc) (*RestoreResult, error) {
	op, err := e.begin(p, "restore")
	if err != nil {
		return nil, err
	}
	p = op.project
	if !p.Solution.IsFTP() {
		return nil, ErrUnsupportedSolution
	}
	if op.baseline == nil {
		return nil, ErrNoBaseline
	}
	if !p.Credential.Complete() {
		return nil, ErrMissingCredential
	}
	b := op.baseline

	local, err := op.base.ReplaceLocalWithBaseline(b.Files)
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}

	var items []ftpclient.UploadItem
	for _, rel := range b.Files {
		if src, ok := op.base.MirrorPath(rel); ok {
			items = append(items, ftpclient.UploadItem{LocalPath: src, RelPath: rel})
		}
	}
	remote := b.RemotePath
	if remote == "" {
		remote = p.RemotePath
	}
	remote = ftpclient.NormalizeRemote(remote)
	if configured := ftpclient.NormalizeRemote(p.RemotePath); configured != remote {
		op.logger.Warn("remote path changed since the initial sync, restoring the original", "baseline", remote, "configured", configured)
	}

	up, err := e.transport.UploadFiles(ctx, p.Credential, remote, items, e.progress(progress))
	if err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}

	st, err := op.rules.Read()
	if err != nil {
		return nil, err
	}
	var deletable []string
	for _, rel := range st.TrackedNewServerFiles {
		if !b.Has(rel) {
			deletable = append(deletable, rel)
		}
	}
	del, err := e.transport.DeleteFiles(ctx, p.Credential, remote, deletable, e.progress(progress))
	if err != nil {
		if del != nil {
			e.keepTracking(op, st, nil, del.Done)
		}
		return nil, fmt.Errorf("restore: %w", err)
	}
	if err := op.rules.Reset(); err != nil {
		return nil, err
	}

	res := &RestoreResult{
		Summary:       op.summary(),
		RestoredLocal: local.Restored,
		RemovedLocal:  local.Removed,
		MissingMirror: local.Missing,
		UploadedPaths: up.Done,
		FailedUploads: up.Failed,
		DeletedRemote: del.Done,
		SkippedRemote: del.Skipped,
	}
	res.Summary.Restored = len(local.Restored)
	res.Uploaded = len(up.Done)
	res.Deleted = len(del.Done)
	res.Failed = len(up.Failed)

	var extra []string
	if n := len(local.Missing); n > 0 {
		extra = append(extra, fmt.Sprintf("%d baseline file(s) missing from the mirror", n))
	}
	if n := len(up.Failed); n > 0 {
		extra = append(extra, fmt.Sprintf("%d upload(s) failed", n))
	}
	if n := len(del.Skipped); n > 0 {
		extra = append(extra, fmt.Sprintf("%d remote deletion(s) refused", n))
	}
	res.Message = message(append([]string{
		fmt.Sprintf("restored %d local file(s), removed %d", len(local.Restored), len(local.Removed)),
		fmt.Sprintf("re-uploaded %d file(s), deleted %d tracked new file(s) remotely", res.Uploaded, res.Deleted),
	}, extra...)...)
	op.logger.Info("restore finished", "restored", len(local.Restored), "removed", len(local.Removed),
		"uploaded", res.Uploaded, "deleted", res.Deleted)
	e.finish(&res.Summary, res)
	return res, nil
}
