package metastore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Document is one stored JSON document.
type Document struct {
	ID        uint   `gorm:"primarykey"`
	Project   string `gorm:"uniqueIndex:idx_project_name;not null"`
	Name      string `gorm:"uniqueIndex:idx_project_name;not null"`
	Body      string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SQLStore keeps documents in a SQLite database through gorm. One database
// can hold many projects.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLStore opens (or creates) the database at dbPath.
func OpenSQLStore(dbPath string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create metadata dir: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata database: %w", err)
	}
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("failed to migrate metadata database: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Load(project, name string, v any) (bool, error) {
	var doc Document
	err := s.db.Where("project = ? AND name = ?", project, name).Take(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(doc.Body), v); err != nil {
		return false, fmt.Errorf("parse %s: %w", name, err)
	}
	return true, nil
}

func (s *SQLStore) Save(project, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	doc := Document{Project: project, Name: name, Body: string(data)}
	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "updated_at"}),
	}).Create(&doc).Error
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

func (s *SQLStore) Delete(project, name string) error {
	err := s.db.Unscoped().Where("project = ? AND name = ?", project, name).Delete(&Document{}).Error
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
