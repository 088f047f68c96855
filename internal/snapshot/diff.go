package snapshot

import "sort"

// Delta is the result of comparing two snapshots.
type Delta struct {
	Upserted []string `json:"upserted"`
	Deleted  []string `json:"deleted"`
}

// Empty reports whether the delta carries no change.
func (d Delta) Empty() bool {
	return len(d.Upserted) == 0 && len(d.Deleted) == 0
}

// Diff compares before and after without touching the filesystem.
// Upserted holds every path of after whose fingerprint differs from before
// (new paths included); Deleted holds paths of before missing from after.
// Both lists are sorted.
func Diff(before, after Map) Delta {
	d := Delta{Upserted: []string{}, Deleted: []string{}}
	for rel, fp := range after {
		if prev, ok := before[rel]; !ok || prev != fp {
			d.Upserted = append(d.Upserted, rel)
		}
	}
	for rel := range before {
		if _, ok := after[rel]; !ok {
			d.Deleted = append(d.Deleted, rel)
		}
	}
	sort.Strings(d.Upserted)
	sort.Strings(d.Deleted)
	return d
}
