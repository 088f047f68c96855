package engine

import (
	"context"
	"fmt"

	"skin-sync/internal/ftpclient"
)

// InitialSync downloads the remote tree into the working copy and records it
// as the baseline. A failed download leaves the project as it was, so the
// call can simply be retried.
func (e *Engine) InitialSync(ctx context.Context, p Project, progress ftpclient.ProgressFunc) (*InitialSyncResult, error) {
	op, err := e.begin(p, "initial-sync")
	if err != nil {
		return nil, err
	}
	p = op.project
	res := &InitialSyncResult{Summary: op.summary()}

	if !p.Solution.IsFTP() {
		res.Status = StatusInformational
		res.Message = fmt.Sprintf("%s projects are not pulled over FTP, copy the skin into %s manually", p.Solution, p.LocalRoot)
		e.finish(&res.Summary, res)
		return res, nil
	}
	if !p.Credential.Complete() {
		return nil, ErrMissingCredential
	}

	remote := ftpclient.NormalizeRemote(p.RemotePath)
	if op.state == Synced {
		op.logger.Info("replacing existing baseline", "created", op.baseline.CreatedAt)
	}
	rep, err := e.transport.DownloadTree(ctx, p.Credential, remote, p.LocalRoot, e.progress(progress))
	if err != nil {
		return nil, fmt.Errorf("initial sync: %w", err)
	}
	b, err := op.base.Capture(remote)
	if err != nil {
		return nil, fmt.Errorf("initial sync: %w", err)
	}

	res.RemotePath = remote
	res.Downloaded = rep.Done
	res.SkippedRemote = rep.Skipped
	res.Baseline = b
	res.Lifecycle = Synced
	skipped := ""
	if n := len(rep.Skipped); n > 0 {
		skipped = fmt.Sprintf("%d remote file(s) skipped (permission denied)", n)
	}
	res.Message = message(
		fmt.Sprintf("downloaded %d file(s) from %s", len(rep.Done), remote),
		fmt.Sprintf("baseline recorded with %d file(s)", len(b.Files)),
		skipped,
	)
	op.logger.Info("initial sync finished", "downloaded", len(rep.Done), "baseline", len(b.Files))
	e.finish(&res.Summary, res)
	return res, nil
}
