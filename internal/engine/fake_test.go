package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"

	"skin-sync/internal/ftpclient"
	"skin-sync/internal/snapshot"
)

// fakeRemote is a Transport whose server tree is a plain directory.
type fakeRemote struct {
	root       string
	downloads  int
	uploaded   []string
	deleted    []string
	denyDelete map[string]bool
	failUpload map[string]bool
	uploadErr  error
}

func newFakeRemote(root string) *fakeRemote {
	return &fakeRemote{root: root, denyDelete: map[string]bool{}, failUpload: map[string]bool{}}
}

func (f *fakeRemote) DownloadTree(ctx context.Context, cred ftpclient.Credential, remotePath, localDir string, progress ftpclient.ProgressFunc) (*ftpclient.Report, error) {
	f.downloads++
	if err := os.MkdirAll(localDir, 0755); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(localDir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if !snapshot.IsReserved(e.Name()) {
			if err := os.RemoveAll(filepath.Join(localDir, e.Name())); err != nil {
				return nil, err
			}
		}
	}
	remote, err := snapshot.Collect(f.root)
	if err != nil {
		return nil, err
	}
	rep := &ftpclient.Report{Attempts: 1}
	for _, rel := range remote.Paths() {
		if err := copyTo(filepath.Join(f.root, rel), filepath.Join(localDir, rel)); err != nil {
			return rep, err
		}
		rep.Done = append(rep.Done, rel)
	}
	return rep, nil
}

func (f *fakeRemote) UploadFiles(ctx context.Context, cred ftpclient.Credential, remotePath string, items []ftpclient.UploadItem, progress ftpclient.ProgressFunc) (*ftpclient.Report, error) {
	rep := &ftpclient.Report{Attempts: 1}
	if f.uploadErr != nil {
		return rep, f.uploadErr
	}
	for _, it := range items {
		if f.failUpload[it.RelPath] {
			rep.Failed = append(rep.Failed, it.RelPath)
			continue
		}
		if err := copyTo(it.LocalPath, filepath.Join(f.root, it.RelPath)); err != nil {
			return rep, err
		}
		f.uploaded = append(f.uploaded, it.RelPath)
		rep.Done = append(rep.Done, it.RelPath)
	}
	sort.Strings(rep.Done)
	return rep, nil
}

func (f *fakeRemote) DeleteFiles(ctx context.Context, cred ftpclient.Credential, remotePath string, rels []string, progress ftpclient.ProgressFunc) (*ftpclient.Report, error) {
	rep := &ftpclient.Report{Attempts: 1}
	for _, rel := range rels {
		if f.denyDelete[rel] {
			rep.Skipped = append(rep.Skipped, rel)
			continue
		}
		err := os.Remove(filepath.Join(f.root, rel))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return rep, err
		}
		f.deleted = append(f.deleted, rel)
		rep.Done = append(rep.Done, rel)
	}
	return rep, nil
}

func copyTo(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
