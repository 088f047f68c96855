package engine

import (
	"context"
	"fmt"

	"skin-sync/internal/ftpclient"
	"skin-sync/internal/snapshot"
	"skin-sync/internal/syncstate"
)

// Deploy uploads every file whose fingerprint changed since the last deploy
// of the project's solution type, then records the new manifest. Nothing is
// ever deleted remotely. Failed uploads keep their previous manifest entry so
// the next deploy picks them up again.
func (e *Engine) Deploy(ctx context.Context, p Project, progress ftpclient.ProgressFunc) (*DeployResult, error) {
	op, err := e.begin(p, "deploy")
	if err != nil {
		return nil, err
	}
	p = op.project
	if !p.Solution.IsFTP() {
		return nil, ErrUnsupportedSolution
	}
	if !p.Credential.Complete() {
		return nil, ErrMissingCredential
	}

	current, err := snapshot.Collect(p.LocalRoot)
	if err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}
	current = current.Filter(op.skip)
	prev, err := op.manifests.Read(string(p.Solution))
	if err != nil {
		return nil, err
	}
	var before snapshot.Map
	if prev != nil {
		before = prev.Files
	}
	delta := snapshot.Diff(before, current)

	items := make([]ftpclient.UploadItem, 0, len(delta.Upserted))
	for _, rel := range delta.Upserted {
		abs, _ := localFile(p.LocalRoot, rel)
		items = append(items, ftpclient.UploadItem{LocalPath: abs, RelPath: rel})
	}
	remote := ftpclient.NormalizeRemote(p.RemotePath)
	rep, err := e.transport.UploadFiles(ctx, p.Credential, remote, items, e.progress(progress))
	if err != nil {
		return nil, fmt.Errorf("deploy: %w", err)
	}

	files := make(snapshot.Map, len(current))
	for rel, fp := range current {
		files[rel] = fp
	}
	for _, rel := range rep.Failed {
		if old, ok := before[rel]; ok {
			files[rel] = old
		} else {
			delete(files, rel)
		}
	}
	if err := op.manifests.Write(string(p.Solution), syncstate.Manifest{UpdatedAt: e.now(), Files: files}); err != nil {
		return nil, err
	}

	if op.baseline != nil && len(rep.Done) > 0 {
		st, err := op.rules.Read()
		if err != nil {
			return nil, err
		}
		if err := op.rules.Write(track(st, op.baseline, rep.Done, nil)); err != nil {
			return nil, err
		}
	}

	res := &DeployResult{
		Summary:       op.summary(),
		FirstDeploy:   prev == nil,
		Changed:       delta.Upserted,
		UploadedPaths: rep.Done,
		FailedUploads: rep.Failed,
	}
	res.Uploaded = len(rep.Done)
	res.Failed = len(rep.Failed)
	failed := ""
	if res.Failed > 0 {
		failed = fmt.Sprintf("%d upload(s) failed and will be retried on the next deploy", res.Failed)
	}
	switch {
	case len(delta.Upserted) == 0:
		res.Message = fmt.Sprintf("nothing changed since the last %s deploy", p.Solution)
	case res.FirstDeploy:
		res.Message = message(fmt.Sprintf("first %s deploy, uploaded %d file(s)", p.Solution, res.Uploaded), failed)
	default:
		res.Message = message(fmt.Sprintf("uploaded %d changed file(s) to %s", res.Uploaded, p.Solution), failed)
	}
	op.logger.Info("deploy finished", "solution", p.Solution, "changed", len(delta.Upserted), "uploaded", res.Uploaded)
	e.finish(&res.Summary, res)
	return res, nil
}
