// Package baseline records the file set of a project right after its first
// download and keeps a byte-for-byte mirror of it to restore from.
package baseline

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"skin-sync/internal/metastore"
	"skin-sync/internal/snapshot"
	"skin-sync/internal/syncstate"
)

const (
	baselineDoc = "baseline"
	// RawDirName is the mirror directory inside the metadata directory.
	RawDirName = "raw"
)

// Baseline is the file set that existed right after the last initial sync.
type Baseline struct {
	CreatedAt  time.Time `json:"createdAt"`
	RemotePath string    `json:"remotePath"`
	Files      []string  `json:"files"`
}

// Has reports whether rel is one of the protected original files.
func (b *Baseline) Has(rel string) bool {
	if b == nil {
		return false
	}
	i := sort.SearchStrings(b.Files, rel)
	return i < len(b.Files) && b.Files[i] == rel
}

// RestoreReport lists what a restore did. Missing paths had no mirror copy
// and Outside paths resolved outside the local root; neither is an error.
type RestoreReport struct {
	Restored []string
	Removed  []string
	Missing  []string
	Outside  []string
}

// Store owns the baseline document and the raw mirror of one project.
type Store struct {
	meta      metastore.Store
	project   string
	localRoot string
	rawDir    string
	rules     *syncstate.RuleStore
	logger    *slog.Logger
	now       func() time.Time
}

// New returns a Store for the project whose working copy is localRoot and
// whose private state lives in metaDir.
func New(meta metastore.Store, project, localRoot, metaDir string, rules *syncstate.RuleStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		meta:      meta,
		project:   project,
		localRoot: filepath.Clean(localRoot),
		rawDir:    filepath.Join(metaDir, RawDirName),
		rules:     rules,
		logger:    logger,
		now:       time.Now,
	}
}

// RawDir returns the mirror directory.
func (s *Store) RawDir() string { return s.rawDir }

// Capture mirrors the working copy into the raw directory, replacing any
// earlier mirror, persists the baseline and resets the sync rules. It is
// meant to run right after a successful initial download.
func (s *Store) Capture(remotePath string) (*Baseline, error) {
	snap, err := snapshot.Collect(s.localRoot)
	if err != nil {
		return nil, fmt.Errorf("capture baseline: %w", err)
	}
	snap = snap.Filter(snapshot.IsReserved)

	if err := s.replaceMirror(snap); err != nil {
		return nil, fmt.Errorf("capture baseline: %w", err)
	}

	b := &Baseline{
		CreatedAt:  s.now().UTC(),
		RemotePath: remotePath,
		Files:      snap.Paths(),
	}
	if err := s.meta.Save(s.project, baselineDoc, b); err != nil {
		return nil, fmt.Errorf("persist baseline: %w", err)
	}
	if err := s.rules.Reset(); err != nil {
		return nil, err
	}
	s.logger.Info("baseline captured", "files", len(b.Files), "remote", remotePath)
	return b, nil
}

// Read returns nil, nil when no initial sync has run yet.
func (s *Store) Read() (*Baseline, error) {
	var b Baseline
	ok, err := s.meta.Load(s.project, baselineDoc, &b)
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}
	if !ok {
		return nil, nil
	}
	b.Files = syncstate.Normalize(b.Files)
	return &b, nil
}

// replaceMirror copies into a sibling temp dir first so a failed copy leaves
// the previous mirror intact.
func (s *Store) replaceMirror(snap snapshot.Map) error {
	if err := os.MkdirAll(filepath.Dir(s.rawDir), 0755); err != nil {
		return err
	}
	tmp, err := os.MkdirTemp(filepath.Dir(s.rawDir), RawDirName+".tmp-")
	if err != nil {
		return err
	}
	for _, rel := range snap.Paths() {
		src := filepath.Join(s.localRoot, filepath.FromSlash(rel))
		dst := filepath.Join(tmp, filepath.FromSlash(rel))
		if err := copyFile(src, dst); err != nil {
			os.RemoveAll(tmp)
			return fmt.Errorf("mirror %s: %w", rel, err)
		}
	}
	if err := os.RemoveAll(s.rawDir); err != nil {
		os.RemoveAll(tmp)
		return err
	}
	return os.Rename(tmp, s.rawDir)
}

// MirrorPath returns the mirror copy of rel if it exists as a regular file.
func (s *Store) MirrorPath(rel string) (string, bool) {
	p, ok := within(s.rawDir, rel)
	if !ok {
		return "", false
	}
	fi, err := os.Lstat(p)
	if err != nil || !fi.Mode().IsRegular() {
		return "", false
	}
	return p, true
}

// MirrorSnapshot fingerprints the raw mirror. An absent mirror is empty.
func (s *Store) MirrorSnapshot() (snapshot.Map, error) {
	if _, err := os.Stat(s.rawDir); os.IsNotExist(err) {
		return snapshot.Map{}, nil
	}
	return snapshot.Collect(s.rawDir)
}
