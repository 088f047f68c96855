package metastore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps every document as <dir>/<name>.json where dir is chosen
// per project by the resolver.
type FileStore struct {
	resolve func(project string) (string, error)
}

// NewFileStore returns a FileStore that asks resolve for each project's
// metadata directory.
func NewFileStore(resolve func(project string) (string, error)) *FileStore {
	return &FileStore{resolve: resolve}
}

// SingleDir stores every project's documents in dir. Suitable when one store
// serves exactly one project.
func SingleDir(dir string) func(string) (string, error) {
	return func(string) (string, error) { return dir, nil }
}

// DirPerProject stores each project's documents in base/<project>.
func DirPerProject(base string) func(string) (string, error) {
	return func(project string) (string, error) {
		if project == "" || strings.ContainsAny(project, `/\`) || project == "." || project == ".." {
			return "", fmt.Errorf("invalid project key %q", project)
		}
		return filepath.Join(base, project), nil
	}
}

func (s *FileStore) path(project, name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid document name %q", name)
	}
	dir, err := s.resolve(project)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".json"), nil
}

func (s *FileStore) Load(project, name string, v any) (bool, error) {
	p, err := s.path(project, name)
	if err != nil {
		return false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", p, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", p, err)
	}
	return true, nil
}

// Save writes through a temp file and rename so readers never see a
// partially written document.
func (s *FileStore) Save(project, name string, v any) error {
	p, err := s.path(project, name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	data = append(data, '\n')
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("create metadata dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", p, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

func (s *FileStore) Delete(project, name string) error {
	p, err := s.path(project, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return nil
}
