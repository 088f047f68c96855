package metastore

import (
	"encoding/json"
	"sync"
)

// MemoryStore keeps documents as JSON in memory. It round-trips through
// encoding/json so callers observe the same behaviour as the file store.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string][]byte{}}
}

func (m *MemoryStore) Load(project, name string, v any) (bool, error) {
	m.mu.Lock()
	data, ok := m.docs[project+"/"+name]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, v)
}

func (m *MemoryStore) Save(project, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.docs[project+"/"+name] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(project, name string) error {
	m.mu.Lock()
	delete(m.docs, project+"/"+name)
	m.mu.Unlock()
	return nil
}
