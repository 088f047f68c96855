package engine

import (
	"strings"
	"time"

	"skin-sync/internal/baseline"
	"skin-sync/internal/snapshot"
)

// Status tags how an operation ended when it did not return an error.
type Status string

const (
	StatusCompleted     Status = "completed"
	StatusSkipped       Status = "skipped"
	StatusInformational Status = "informational"
)

// SkipReason names why an operation ended with StatusSkipped.
type SkipReason string

const (
	ReasonIncompleteCredentials SkipReason = "incomplete-credentials"
	ReasonNotFTP                SkipReason = "not-ftp-solution"
)

// Summary is the part every result shares.
type Summary struct {
	Operation  string       `json:"operation"`
	Project    string       `json:"project"`
	Solution   SolutionType `json:"solution"`
	Lifecycle  Lifecycle    `json:"lifecycle"`
	Status     Status       `json:"status"`
	Reason     SkipReason   `json:"reason,omitempty"`
	Message    string       `json:"message"`
	Uploaded   int          `json:"uploaded"`
	Deleted    int          `json:"deleted"`
	Restored   int          `json:"restored"`
	Failed     int          `json:"failed"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
}

// Head returns the shared summary; it lets callers handle any result alike.
func (s Summary) Head() Summary { return s }

// Outcome is implemented by every result type.
type Outcome interface {
	Head() Summary
}

type InitialSyncResult struct {
	Summary
	RemotePath    string
	Downloaded    []string
	SkippedRemote []string
	Baseline      *baseline.Baseline
}

// AutoUploadResult is returned by AutoUploadChangedFiles and Reconcile.
type AutoUploadResult struct {
	Summary
	UploadedPaths []string
	DeletedRemote []string
	// Restored lists baseline files deleted locally and put back from the mirror.
	Restored []string
	// Unrecoverable lists baseline files that could not be put back.
	Unrecoverable []string
	// SkippedUntracked lists deletions never propagated to the server.
	SkippedUntracked []string
	// SkippedMissing lists upserts that are not regular files inside the root.
	SkippedMissing []string
	SkippedRemote  []string
	FailedUploads  []string
	TrackedNew     []string
}

type DeployResult struct {
	Summary
	FirstDeploy   bool
	Changed       []string
	UploadedPaths []string
	FailedUploads []string
}

type RestoreResult struct {
	Summary
	RestoredLocal []string
	RemovedLocal  []string
	MissingMirror []string
	UploadedPaths []string
	DeletedRemote []string
	SkippedRemote []string
	FailedUploads []string
}

// ManifestInfo describes the last deploy for one solution type.
type ManifestInfo struct {
	Solution  SolutionType
	UpdatedAt time.Time
	Files     int
}

type StatusResult struct {
	Summary
	Baseline   *baseline.Baseline
	TrackedNew []string
	// Pending is the working copy against the raw mirror; empty when
	// the project is uninitialized.
	Pending   snapshot.Delta
	Manifests []ManifestInfo
}

// message joins non-empty sentence fragments.
func message(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return "nothing to do"
	}
	return strings.Join(out, "; ")
}
