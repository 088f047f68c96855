package syncstate

import (
	"fmt"
	"sort"

	"skin-sync/internal/metastore"
)

const rulesDoc = "sync-rules"

// State holds paths uploaded to the server after the baseline was taken.
// Only these may be deleted remotely.
type State struct {
	TrackedNewServerFiles []string `json:"trackedNewServerFiles"`
}

// Has reports whether rel is tracked.
func (s State) Has(rel string) bool {
	i := sort.SearchStrings(s.TrackedNewServerFiles, rel)
	return i < len(s.TrackedNewServerFiles) && s.TrackedNewServerFiles[i] == rel
}

// RuleStore persists State for one project.
type RuleStore struct {
	store   metastore.Store
	project string
}

func NewRuleStore(store metastore.Store, project string) *RuleStore {
	return &RuleStore{store: store, project: project}
}

// Read returns the stored state, or an empty one if nothing was written yet.
func (r *RuleStore) Read() (State, error) {
	var st State
	if _, err := r.store.Load(r.project, rulesDoc, &st); err != nil {
		return State{}, fmt.Errorf("read sync rules: %w", err)
	}
	st.TrackedNewServerFiles = Normalize(st.TrackedNewServerFiles)
	return st, nil
}

// Write de-duplicates and sorts before persisting.
func (r *RuleStore) Write(st State) error {
	st.TrackedNewServerFiles = Normalize(st.TrackedNewServerFiles)
	if err := r.store.Save(r.project, rulesDoc, st); err != nil {
		return fmt.Errorf("write sync rules: %w", err)
	}
	return nil
}

// Reset clears the tracked set.
func (r *RuleStore) Reset() error {
	return r.Write(State{})
}

// Normalize returns a sorted copy of paths without empties or duplicates.
// The result is never nil so it encodes as [].
func Normalize(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
