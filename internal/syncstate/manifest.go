package syncstate

import (
	"fmt"
	"time"

	"skin-sync/internal/metastore"
	"skin-sync/internal/snapshot"
)

// Manifest records the fingerprints pushed by the last Deploy of one
// solution type. It only drives change detection.
type Manifest struct {
	UpdatedAt time.Time    `json:"updatedAt"`
	Files     snapshot.Map `json:"files"`
}

// ManifestStore persists one Manifest per solution type.
type ManifestStore struct {
	store   metastore.Store
	project string
}

func NewManifestStore(store metastore.Store, project string) *ManifestStore {
	return &ManifestStore{store: store, project: project}
}

func manifestDoc(solution string) string {
	return "deploy-manifest-" + solution
}

// Read returns nil when no deploy has been recorded for solution.
func (m *ManifestStore) Read(solution string) (*Manifest, error) {
	var man Manifest
	ok, err := m.store.Load(m.project, manifestDoc(solution), &man)
	if err != nil {
		return nil, fmt.Errorf("read deploy manifest: %w", err)
	}
	if !ok {
		return nil, nil
	}
	if man.Files == nil {
		man.Files = snapshot.Map{}
	}
	return &man, nil
}

func (m *ManifestStore) Write(solution string, man Manifest) error {
	if man.Files == nil {
		man.Files = snapshot.Map{}
	}
	if err := m.store.Save(m.project, manifestDoc(solution), man); err != nil {
		return fmt.Errorf("write deploy manifest: %w", err)
	}
	return nil
}
