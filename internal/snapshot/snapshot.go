package snapshot

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReservedPrefix marks entries that hold internal state (.sync_temp,
// .sync_ignore). Callers exclude them from snapshots, mirrors and transfers.
const ReservedPrefix = ".sync_"

// Fingerprint is the (mtime, size) pair used as a cheap stand-in for file
// content identity. Same-size rewrites within the same millisecond are not
// detected.
type Fingerprint struct {
	MTime int64 `json:"mtime"`
	Size  int64 `json:"size"`
}

// Map maps POSIX relative paths to fingerprints. Only regular files appear.
type Map map[string]Fingerprint

// Collect walks root and fingerprints every regular file beneath it.
// Symlinks and other non-regular entries are ignored and unreadable entries
// are skipped; only an unusable root is reported as an error.
func Collect(root string) (Map, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("snapshot root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("snapshot root %s is not a directory", root)
	}

	out := Map{}
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && p != root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, ierr := d.Info()
		if ierr != nil {
			return nil
		}
		rel, rerr := filepath.Rel(root, p)
		if rerr != nil {
			return nil
		}
		out[filepath.ToSlash(rel)] = Fingerprint{
			MTime: fi.ModTime().UnixMilli(),
			Size:  fi.Size(),
		}
		return nil
	})
	return out, nil
}

// Filter returns a copy of m without the paths for which skip returns true.
func (m Map) Filter(skip func(rel string) bool) Map {
	out := make(Map, len(m))
	for rel, fp := range m {
		if skip != nil && skip(rel) {
			continue
		}
		out[rel] = fp
	}
	return out
}

// Paths returns the keys of m in lexicographic order.
func (m Map) Paths() []string {
	out := make([]string, 0, len(m))
	for rel := range m {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

// IsReserved reports whether the first segment of rel starts with ReservedPrefix.
func IsReserved(rel string) bool {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "/")
	first, _, _ := strings.Cut(rel, "/")
	return strings.HasPrefix(first, ReservedPrefix)
}
