package engine

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"skin-sync/internal/baseline"
	"skin-sync/internal/ftpclient"
	"skin-sync/internal/snapshot"
	"skin-sync/internal/syncstate"
)

// AutoUploadChangedFiles pushes a batch of local edits to the server.
//
// Deleted baseline files are restored from the mirror and uploaded again;
// only tracked-new files are deleted remotely, and deletions of any other
// file stay local. A path listed as deleted that still exists locally is
// treated as changed. Incomplete credentials end the call with a skipped
// result instead of an error, after protected files have been restored.
func (e *Engine) AutoUploadChangedFiles(ctx context.Context, p Project, upserted, deleted []string, progress ftpclient.ProgressFunc) (*AutoUploadResult, error) {
	op, err := e.begin(p, "auto-upload")
	if err != nil {
		return nil, err
	}
	return e.autoUpload(ctx, op, upserted, deleted, progress)
}

// Reconcile runs AutoUploadChangedFiles with every difference between the
// working copy and the raw mirror, plus tracked-new files that are gone
// locally.
func (e *Engine) Reconcile(ctx context.Context, p Project, progress ftpclient.ProgressFunc) (*AutoUploadResult, error) {
	op, err := e.begin(p, "reconcile")
	if err != nil {
		return nil, err
	}
	if !op.project.Solution.IsFTP() {
		return nil, ErrUnsupportedSolution
	}
	if op.baseline == nil {
		return nil, ErrNoBaseline
	}
	mirror, err := op.base.MirrorSnapshot()
	if err != nil {
		return nil, err
	}
	all, err := snapshot.Collect(op.project.LocalRoot)
	if err != nil {
		return nil, err
	}
	delta := snapshot.Diff(mirror.Filter(op.skip), all.Filter(op.skip))

	st, err := op.rules.Read()
	if err != nil {
		return nil, err
	}
	deleted := delta.Deleted
	for _, rel := range st.TrackedNewServerFiles {
		if _, ok := all[rel]; !ok {
			deleted = append(deleted, rel)
		}
	}
	op.logger.Debug("reconcile change set", "upserted", len(delta.Upserted), "deleted", len(deleted))
	return e.autoUpload(ctx, op, delta.Upserted, deleted, progress)
}

func (e *Engine) autoUpload(ctx context.Context, op *operation, upserted, deleted []string, progress ftpclient.ProgressFunc) (*AutoUploadResult, error) {
	p := op.project
	res := &AutoUploadResult{Summary: op.summary()}
	if !p.Solution.IsFTP() {
		res.Status = StatusSkipped
		res.Reason = ReasonNotFTP
		res.Message = fmt.Sprintf("%s projects are not uploaded over FTP", p.Solution)
		e.finish(&res.Summary, res)
		return res, nil
	}

	ups, badUps := normalizePaths(p.LocalRoot, upserted)
	dels, badDels := normalizePaths(p.LocalRoot, deleted)
	res.SkippedMissing = append(badUps, badDels...)

	st, err := op.rules.Read()
	if err != nil {
		return nil, err
	}
	dels = expandDeletedDirs(p.LocalRoot, dels, op.baseline, st)

	upSet := make(map[string]struct{}, len(ups))
	for _, rel := range ups {
		upSet[rel] = struct{}{}
	}
	var protect, deletable []string
	for _, rel := range dels {
		if _, ok := localFile(p.LocalRoot, rel); ok {
			upSet[rel] = struct{}{}
			continue
		}
		delete(upSet, rel)
		switch {
		case op.baseline.Has(rel):
			protect = append(protect, rel)
		case st.Has(rel):
			deletable = append(deletable, rel)
		default:
			res.SkippedUntracked = append(res.SkippedUntracked, rel)
		}
	}

	if len(protect) > 0 {
		rep, err := op.base.RestoreFilesToLocal(protect)
		if err != nil {
			return nil, fmt.Errorf("restore protected files: %w", err)
		}
		for _, rel := range rep.Restored {
			op.logger.Warn("baseline file deleted locally, restored from mirror", "path", rel)
			upSet[rel] = struct{}{}
		}
		res.Restored = rep.Restored
		res.Unrecoverable = append(rep.Missing, rep.Outside...)
		sort.Strings(res.Unrecoverable)
		for _, rel := range res.Unrecoverable {
			op.logger.Error("baseline file deleted locally and missing from mirror", "path", rel)
		}
	}

	var items []ftpclient.UploadItem
	for _, rel := range sortedKeys(upSet) {
		abs, ok := localFile(p.LocalRoot, rel)
		if !ok {
			res.SkippedMissing = append(res.SkippedMissing, rel)
			continue
		}
		items = append(items, ftpclient.UploadItem{LocalPath: abs, RelPath: rel})
	}
	sort.Strings(res.SkippedMissing)
	res.Summary.Restored = len(res.Restored)

	if !p.Credential.Complete() {
		res.Status = StatusSkipped
		res.Reason = ReasonIncompleteCredentials
		res.TrackedNew = st.TrackedNewServerFiles
		res.Message = message("ftp credentials are incomplete, upload skipped", restoredNote(res.Restored))
		e.finish(&res.Summary, res)
		return res, nil
	}

	remote := ftpclient.NormalizeRemote(p.RemotePath)
	up, err := e.transport.UploadFiles(ctx, p.Credential, remote, items, e.progress(progress))
	if err != nil {
		if up != nil {
			e.keepTracking(op, st, up.Done, nil)
		}
		return nil, fmt.Errorf("%s: %w", op.name, err)
	}
	del, err := e.transport.DeleteFiles(ctx, p.Credential, remote, deletable, e.progress(progress))
	if err != nil {
		var gone []string
		if del != nil {
			gone = del.Done
		}
		e.keepTracking(op, st, up.Done, gone)
		return nil, fmt.Errorf("%s: %w", op.name, err)
	}

	next := track(st, op.baseline, up.Done, del.Done)
	if err := op.rules.Write(next); err != nil {
		return nil, err
	}

	res.UploadedPaths = up.Done
	res.FailedUploads = up.Failed
	res.DeletedRemote = del.Done
	res.SkippedRemote = del.Skipped
	res.TrackedNew = syncstate.Normalize(next.TrackedNewServerFiles)
	res.Uploaded = len(up.Done)
	res.Deleted = len(del.Done)
	res.Failed = len(up.Failed)
	res.Message = autoUploadMessage(res)
	op.logger.Info("auto upload finished", "uploaded", res.Uploaded, "deleted", res.Deleted,
		"restored", len(res.Restored), "untracked", len(res.SkippedUntracked))
	e.finish(&res.Summary, res)
	return res, nil
}

// keepTracking records what a failed batch already changed on the server.
func (e *Engine) keepTracking(op *operation, st syncstate.State, uploaded, deleted []string) {
	if err := op.rules.Write(track(st, op.baseline, uploaded, deleted)); err != nil {
		op.logger.Error("could not record partial transfer", "error", err)
	}
}

// track adds uploaded non-baseline paths and drops deleted ones. Baseline
// paths never end up tracked.
func track(st syncstate.State, b *baseline.Baseline, uploaded, deleted []string) syncstate.State {
	set := make(map[string]struct{}, len(st.TrackedNewServerFiles)+len(uploaded))
	for _, rel := range st.TrackedNewServerFiles {
		set[rel] = struct{}{}
	}
	for _, rel := range uploaded {
		set[rel] = struct{}{}
	}
	for _, rel := range deleted {
		delete(set, rel)
	}
	for rel := range set {
		if b.Has(rel) {
			delete(set, rel)
		}
	}
	return syncstate.State{TrackedNewServerFiles: sortedKeys(set)}
}

func autoUploadMessage(res *AutoUploadResult) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("uploaded %d file(s)", res.Uploaded))
	if res.Deleted > 0 {
		parts = append(parts, fmt.Sprintf("deleted %d remote file(s)", res.Deleted))
	}
	parts = append(parts, restoredNote(res.Restored))
	if n := len(res.Unrecoverable); n > 0 {
		parts = append(parts, fmt.Sprintf("%d protected file(s) could not be restored: %s", n, strings.Join(res.Unrecoverable, ", ")))
	}
	if n := len(res.SkippedUntracked); n > 0 {
		parts = append(parts, fmt.Sprintf("%d deletion(s) not sent, not tracked new files", n))
	}
	if n := len(res.FailedUploads); n > 0 {
		parts = append(parts, fmt.Sprintf("%d upload(s) failed", n))
	}
	if n := len(res.SkippedRemote); n > 0 {
		parts = append(parts, fmt.Sprintf("%d remote deletion(s) refused", n))
	}
	return message(parts...)
}

func restoredNote(restored []string) string {
	if len(restored) == 0 {
		return ""
	}
	return fmt.Sprintf("restored %d protected file(s): %s", len(restored), strings.Join(restored, ", "))
}

// expandDeletedDirs replaces a deleted path that is gone locally and names
// no known file by the baseline and tracked-new files that lived under it.
// Watchers report a directory moved out of the tree only by its own path.
func expandDeletedDirs(root string, dels []string, b *baseline.Baseline, st syncstate.State) []string {
	var known []string
	if b != nil {
		known = append(known, b.Files...)
	}
	known = append(known, st.TrackedNewServerFiles...)

	seen := map[string]struct{}{}
	for _, rel := range dels {
		if b.Has(rel) || st.Has(rel) {
			seen[rel] = struct{}{}
			continue
		}
		if _, err := os.Lstat(filepath.Join(root, filepath.FromSlash(rel))); err == nil {
			seen[rel] = struct{}{}
			continue
		}
		prefix := rel + "/"
		matched := false
		for _, k := range known {
			if strings.HasPrefix(k, prefix) {
				seen[k] = struct{}{}
				matched = true
			}
		}
		if !matched {
			seen[rel] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// normalizePaths turns caller paths (relative, or absolute under root) into
// clean slash-separated relative paths. Reserved paths are dropped silently;
// paths outside root come back as rejected.
func normalizePaths(root string, in []string) (ok, rejected []string) {
	seen := map[string]bool{}
	for _, raw := range in {
		p := strings.TrimSpace(raw)
		if p == "" {
			continue
		}
		if filepath.IsAbs(p) {
			r, err := filepath.Rel(root, p)
			if err != nil {
				rejected = append(rejected, raw)
				continue
			}
			p = r
		}
		p = path.Clean(filepath.ToSlash(p))
		p = strings.TrimPrefix(p, "/")
		if seen[p] {
			continue
		}
		seen[p] = true
		switch {
		case p == "" || p == "." || p == ".." || strings.HasPrefix(p, "../"):
			rejected = append(rejected, raw)
		case snapshot.IsReserved(p):
		default:
			ok = append(ok, p)
		}
	}
	sort.Strings(ok)
	return ok, rejected
}

// localFile resolves rel under root and reports whether it is a regular file
// strictly inside root.
func localFile(root, rel string) (string, bool) {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	r, err := filepath.Rel(root, abs)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	fi, err := os.Lstat(abs)
	if err != nil || !fi.Mode().IsRegular() {
		return "", false
	}
	return abs, true
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
