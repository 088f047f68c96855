package baseline

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"skin-sync/internal/snapshot"
	"skin-sync/internal/syncstate"
)

// RestoreFilesToLocal copies each requested path from the mirror over the
// working copy, recreating missing directories.
func (s *Store) RestoreFilesToLocal(paths []string) (*RestoreReport, error) {
	rep := &RestoreReport{}
	for _, rel := range syncstate.Normalize(paths) {
		dest, ok := within(s.localRoot, rel)
		if !ok {
			rep.Outside = append(rep.Outside, rel)
			continue
		}
		src, ok := s.MirrorPath(rel)
		if !ok {
			rep.Missing = append(rep.Missing, rel)
			continue
		}
		if fi, err := os.Lstat(dest); err == nil && !fi.Mode().IsRegular() {
			if err := os.RemoveAll(dest); err != nil {
				return rep, fmt.Errorf("restore %s: %w", rel, err)
			}
		}
		if err := copyFile(src, dest); err != nil {
			return rep, fmt.Errorf("restore %s: %w", rel, err)
		}
		rep.Restored = append(rep.Restored, rel)
	}
	if len(rep.Missing) > 0 {
		s.logger.Warn("baseline files missing from mirror", "paths", rep.Missing)
	}
	return rep, nil
}

// ReplaceLocalWithBaseline deletes every working-copy file not listed in
// paths, prunes emptied directories and restores the listed files.
func (s *Store) ReplaceLocalWithBaseline(paths []string) (*RestoreReport, error) {
	keep := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		keep[p] = struct{}{}
	}

	if err := os.MkdirAll(s.localRoot, 0755); err != nil {
		return nil, fmt.Errorf("create local root: %w", err)
	}
	local, err := snapshot.Collect(s.localRoot)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, rel := range local.Filter(snapshot.IsReserved).Paths() {
		if _, ok := keep[rel]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.localRoot, filepath.FromSlash(rel))); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("remove %s: %w", rel, err)
		}
		removed = append(removed, rel)
	}
	s.pruneEmptyDirs()

	rep, err := s.RestoreFilesToLocal(paths)
	if rep != nil {
		rep.Removed = removed
	}
	return rep, err
}

// pruneEmptyDirs removes empty directories below the local root, deepest
// first. Reserved top-level entries are left alone.
func (s *Store) pruneEmptyDirs() {
	var dirs []string
	_ = filepath.WalkDir(s.localRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || p == s.localRoot {
			return nil
		}
		rel, _ := filepath.Rel(s.localRoot, p)
		if snapshot.IsReserved(rel) {
			return fs.SkipDir
		}
		dirs = append(dirs, p)
		return nil
	})
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, d := range dirs {
		_ = os.Remove(d) // fails unless empty
	}
}

// within joins rel onto root and reports false when the result escapes root
// or is root itself.
func within(root, rel string) (string, bool) {
	rel = filepath.FromSlash(rel)
	if rel == "" || filepath.IsAbs(rel) {
		return "", false
	}
	p := filepath.Join(root, rel)
	r, err := filepath.Rel(root, p)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return p, true
}

// copyFile copies src to dst keeping the file mode and modification time so
// the copy fingerprints the same as the source.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
