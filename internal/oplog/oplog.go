// Package oplog keeps a per-project history of engine operations in SQLite.
package oplog

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"skin-sync/internal/engine"
	"skin-sync/internal/events"

	"github.com/asaskevich/EventBus"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// FileName is the log database inside the metadata directory.
const FileName = "oplog.db"

// Entry is one finished (or failed) operation.
type Entry struct {
	ID         uint   `gorm:"primarykey"`
	Project    string `gorm:"index;not null"`
	Operation  string `gorm:"not null"`
	Solution   string
	Status     string `gorm:"not null"`
	Message    string
	Error      string
	Uploaded   int
	Deleted    int
	Restored   int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time `gorm:"index"`
	CreatedAt  time.Time
}

// StatusFailed marks entries recorded from a returned error.
const StatusFailed = "failed"

// Log appends entries to the operation log database.
type Log struct {
	db *gorm.DB
}

// Open opens (or creates) the log at dbPath.
func Open(dbPath string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open operation log: %w", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate operation log: %w", err)
	}
	return &Log{db: db}, nil
}

// Record stores the summary of a finished operation.
func (l *Log) Record(project string, s engine.Summary) error {
	e := Entry{
		Project:    project,
		Operation:  s.Operation,
		Solution:   string(s.Solution),
		Status:     string(s.Status),
		Message:    s.Message,
		Uploaded:   s.Uploaded,
		Deleted:    s.Deleted,
		Restored:   s.Restored,
		Failed:     s.Failed,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
	if err := l.db.Create(&e).Error; err != nil {
		return fmt.Errorf("failed to record operation: %w", err)
	}
	return nil
}

// RecordFailure stores an operation that ended with an error.
func (l *Log) RecordFailure(project, operation string, started time.Time, opErr error) error {
	e := Entry{
		Project:    project,
		Operation:  operation,
		Status:     StatusFailed,
		Error:      opErr.Error(),
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err := l.db.Create(&e).Error; err != nil {
		return fmt.Errorf("failed to record operation: %w", err)
	}
	return nil
}

// Recent returns up to limit entries of project, newest first.
func (l *Log) Recent(project string, limit int) ([]Entry, error) {
	var out []Entry
	q := l.db.Where("project = ?", project).Order("finished_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to read operation log: %w", err)
	}
	return out, nil
}

// Prune keeps the newest keep entries of project.
func (l *Log) Prune(project string, keep int) (int64, error) {
	var ids []uint
	err := l.db.Model(&Entry{}).Where("project = ?", project).
		Order("finished_at DESC, id DESC").Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to prune operation log: %w", err)
	}
	if keep < 0 {
		keep = 0
	}
	if len(ids) <= keep {
		return 0, nil
	}
	res := l.db.Unscoped().Delete(&Entry{}, ids[keep:])
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune operation log: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Attach records every operation published on bus under project until the
// returned function is called.
func (l *Log) Attach(bus EventBus.Bus, project string, onErr func(error)) (func(), error) {
	handler := func(out engine.Outcome) {
		if err := l.Record(project, out.Head()); err != nil && onErr != nil {
			onErr(err)
		}
	}
	if err := bus.Subscribe(events.EventOperationCompleted, handler); err != nil {
		return nil, err
	}
	return func() { _ = bus.Unsubscribe(events.EventOperationCompleted, handler) }, nil
}

func (l *Log) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
