// Package metastore persists the small JSON documents that describe a
// project's sync state (baseline, sync rules, deploy manifests).
package metastore

import (
	"fmt"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// Store reads and writes named documents per project key. Load reports
// false when the document does not exist.
type Store interface {
	Load(project, name string, v any) (bool, error)
	Save(project, name string, v any) error
	Delete(project, name string) error
}

// ProjectKey derives a stable key from the project's local root.
func ProjectKey(localRoot string) string {
	abs, err := filepath.Abs(localRoot)
	if err != nil {
		abs = localRoot
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(filepath.ToSlash(abs)))
}
