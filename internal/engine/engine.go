// Package engine composes transport, snapshots, baseline and sync rules into
// the project operations: initial sync, auto upload, deploy and restore.
//
// Callers must not run two operations on the same project concurrently; the
// read-then-write sequences on the project metadata are not atomic.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"skin-sync/internal/baseline"
	"skin-sync/internal/events"
	"skin-sync/internal/ftpclient"
	"skin-sync/internal/metastore"
	"skin-sync/internal/snapshot"
	"skin-sync/internal/syncstate"

	"github.com/asaskevich/EventBus"
)

var (
	// ErrConfig marks configuration errors, raised before anything is mutated.
	ErrConfig              = errors.New("configuration error")
	ErrMissingCredential   = fmt.Errorf("%w: ftp host, user and password are required", ErrConfig)
	ErrMissingLocalRoot    = fmt.Errorf("%w: local root is required", ErrConfig)
	ErrUnsupportedSolution = fmt.Errorf("%w: operation is only available for ftp solution types", ErrConfig)
	ErrNoBaseline          = fmt.Errorf("%w: no baseline recorded, run the initial sync first", ErrConfig)
)

// Transport is the remote side of the engine. *ftpclient.Client implements it.
type Transport interface {
	DownloadTree(ctx context.Context, cred ftpclient.Credential, remotePath, localDir string, progress ftpclient.ProgressFunc) (*ftpclient.Report, error)
	UploadFiles(ctx context.Context, cred ftpclient.Credential, remotePath string, items []ftpclient.UploadItem, progress ftpclient.ProgressFunc) (*ftpclient.Report, error)
	DeleteFiles(ctx context.Context, cred ftpclient.Credential, remotePath string, rels []string, progress ftpclient.ProgressFunc) (*ftpclient.Report, error)
}

// SolutionType selects the deploy channel of a project.
type SolutionType string

const (
	SolutionSkinFTP       SolutionType = "skin-ftp"
	SolutionMobileFTP     SolutionType = "mobile-ftp"
	SolutionBrowserUpload SolutionType = "browser-upload"
)

// FTPSolutions lists the solution types served over FTP.
var FTPSolutions = []SolutionType{SolutionSkinFTP, SolutionMobileFTP}

// IsFTP reports whether the solution type is backed by an FTP server.
func (s SolutionType) IsFTP() bool {
	return s == SolutionSkinFTP || s == SolutionMobileFTP
}

// Valid reports whether s is a known solution type.
func (s SolutionType) Valid() bool {
	return s.IsFTP() || s == SolutionBrowserUpload
}

// Lifecycle is derived from whether a baseline exists; it is never stored.
type Lifecycle int

const (
	Uninitialized Lifecycle = iota
	Synced
)

func (l Lifecycle) String() string {
	if l == Synced {
		return "synced"
	}
	return "uninitialized"
}

func (l Lifecycle) MarshalText() ([]byte, error) { return []byte(l.String()), nil }

// Project is everything the engine needs to know about one project.
type Project struct {
	Name       string
	Solution   SolutionType
	LocalRoot  string
	MetaDir    string
	RemotePath string
	Credential ftpclient.Credential
	// Skip excludes paths (ignore rules) from Deploy and Reconcile scans.
	Skip func(rel string) bool
}

// Key identifies the project in the metadata store.
func (p Project) Key() string {
	return metastore.ProjectKey(p.LocalRoot)
}

// Engine runs project operations. It holds no per-project state.
type Engine struct {
	transport Transport
	meta      metastore.Store
	logger    *slog.Logger
	bus       EventBus.Bus
	now       func() time.Time
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithBus publishes progress and completed operations on bus.
func WithBus(bus EventBus.Bus) Option { return func(e *Engine) { e.bus = bus } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func New(transport Transport, meta metastore.Store, opts ...Option) *Engine {
	e := &Engine{
		transport: transport,
		meta:      meta,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// operation carries what every operation derives once at its start.
type operation struct {
	name      string
	project   Project
	state     Lifecycle
	baseline  *baseline.Baseline
	base      *baseline.Store
	rules     *syncstate.RuleStore
	manifests *syncstate.ManifestStore
	logger    *slog.Logger
	started   time.Time
}

func (e *Engine) begin(p Project, name string) (*operation, error) {
	if p.LocalRoot == "" {
		return nil, ErrMissingLocalRoot
	}
	abs, err := filepath.Abs(p.LocalRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: local root %s: %v", ErrConfig, p.LocalRoot, err)
	}
	p.LocalRoot = abs
	if p.MetaDir == "" {
		p.MetaDir = filepath.Join(abs, ".sync_temp")
	}
	if p.Solution == "" {
		p.Solution = SolutionSkinFTP
	}
	if !p.Solution.Valid() {
		return nil, fmt.Errorf("%w: unknown solution type %q", ErrConfig, p.Solution)
	}

	key := p.Key()
	logger := e.logger.With("op", name, "project", p.Name)
	rules := syncstate.NewRuleStore(e.meta, key)
	base := baseline.New(e.meta, key, p.LocalRoot, p.MetaDir, rules, logger)
	b, err := base.Read()
	if err != nil {
		return nil, err
	}
	state := Uninitialized
	if b != nil {
		state = Synced
	}
	return &operation{
		name:      name,
		project:   p,
		state:     state,
		baseline:  b,
		base:      base,
		rules:     rules,
		manifests: syncstate.NewManifestStore(e.meta, key),
		logger:    logger,
		started:   e.now(),
	}, nil
}

func (op *operation) summary() Summary {
	return Summary{
		Operation: op.name,
		Project:   op.project.Name,
		Solution:  op.project.Solution,
		Lifecycle: op.state,
		Status:    StatusCompleted,
		StartedAt: op.started,
	}
}

// skip combines the reserved-prefix rule with the project's ignore rules.
func (op *operation) skip(rel string) bool {
	if snapshot.IsReserved(rel) {
		return true
	}
	return op.project.Skip != nil && op.project.Skip(rel)
}

func (e *Engine) progress(cb ftpclient.ProgressFunc) ftpclient.ProgressFunc {
	if cb == nil && e.bus == nil {
		return nil
	}
	return func(p ftpclient.Progress) {
		if cb != nil {
			cb(p)
		}
		if e.bus != nil {
			e.bus.Publish(events.EventTransferProgress, p)
		}
	}
}

func (e *Engine) finish(s *Summary, out Outcome) {
	s.FinishedAt = e.now()
	if e.bus != nil {
		e.bus.Publish(events.EventOperationCompleted, out)
	}
}
