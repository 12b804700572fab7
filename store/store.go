// Package store keeps the history of gate decisions in SQLite.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/nvr-ai/go-ppe/compliance"
)

// Limits for List.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// FileType is the kind of upload a decision was made on.
type FileType string

const (
	FileTypeImage FileType = "image"
	FileTypeVideo FileType = "video"
)

// Record is one persisted decision.
//
// Item lists are stored as JSON arrays in text columns.
type Record struct {
	ID            int64       `gorm:"primaryKey" json:"id"`
	RequestID     string      `json:"request_id"`
	FilePath      string      `json:"file_path"`
	FileType      FileType    `json:"file_type"`
	IsSafe        bool        `json:"is_safe"`
	Confidence    int         `json:"confidence"`
	DetectedItems string      `json:"detected_items"`
	MissingItems  string      `json:"missing_items"`
	Violations    string      `json:"violations"`
	Reason        string      `json:"reason"`
	CreatedAt     dbh.IntTime `json:"created_at"`
}

// TableName maps Record onto the detection table.
func (Record) TableName() string {
	return "detection"
}

// Verdict decodes the record back into the verdict it was saved from.
func (r *Record) Verdict() (compliance.Verdict, error) {
	v := compliance.Verdict{
		IsSafe:     r.IsSafe,
		Confidence: r.Confidence,
		Reason:     r.Reason,
	}
	if err := decodeItems(r.DetectedItems, &v.DetectedItems); err != nil {
		return v, errors.Wrapf(err, "record %d: detected items", r.ID)
	}
	if err := decodeItems(r.MissingItems, &v.MissingItems); err != nil {
		return v, errors.Wrapf(err, "record %d: missing items", r.ID)
	}
	if err := decodeItems(r.Violations, &v.Violations); err != nil {
		return v, errors.Wrapf(err, "record %d: violations", r.ID)
	}
	if len(v.Violations) == 0 {
		v.Violations = nil
	}
	return v, nil
}

func encodeItems(items []string) string {
	if items == nil {
		items = []string{}
	}
	b, _ := json.Marshal(items)
	return string(b)
}

func decodeItems(s string, dst *[]string) error {
	*dst = []string{}
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), dst)
}

// DashboardStats summarizes the decision history.
type DashboardStats struct {
	TotalDetections int64    `json:"total_detections"`
	Accepted        int64    `json:"accepted"`
	Denied          int64    `json:"denied"`
	Recent          []Record `json:"recent"`
}

// Store is the decision history database.
type Store struct {
	log logs.Log
	db  *gorm.DB
}

// Open opens or creates the database at path and migrates it.
func Open(log logs.Log, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o770); err != nil {
			return nil, errors.Wrapf(err, "failed to create database directory %v", dir)
		}
	}
	log.Infof("Opening detection history at '%v'", path)
	db, err := dbh.OpenDB(log, dbh.MakeSqliteConfig(path), Migrations(log), 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database %v", path)
	}
	return &Store{log: log, db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save persists a verdict for an uploaded file.
func (s *Store) Save(fileType FileType, filePath string, v compliance.Verdict) (*Record, error) {
	rec := &Record{
		RequestID:     uuid.NewString(),
		FilePath:      filePath,
		FileType:      fileType,
		IsSafe:        v.IsSafe,
		Confidence:    v.Confidence,
		DetectedItems: encodeItems(v.DetectedItems),
		MissingItems:  encodeItems(v.MissingItems),
		Violations:    encodeItems(v.Violations),
		Reason:        v.Reason,
		CreatedAt:     dbh.MakeIntTime(time.Now()),
	}
	if err := s.db.Create(rec).Error; err != nil {
		return nil, errors.Wrap(err, "failed to save detection")
	}
	return rec, nil
}

// Get returns a single record.
func (s *Store) Get(id int64) (*Record, error) {
	rec := &Record{}
	if err := s.db.First(rec, id).Error; err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns records newest first. A non-positive limit selects
// DefaultListLimit; limits above MaxListLimit are capped.
func (s *Store) List(skip, limit int) ([]Record, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	records := []Record{}
	if err := s.db.Order("id DESC").Offset(skip).Limit(limit).Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "failed to list detections")
	}
	return records, nil
}

// Dashboard counts decisions and returns the most recent ones.
func (s *Store) Dashboard(recent int) (*DashboardStats, error) {
	stats := &DashboardStats{}
	if err := s.db.Model(&Record{}).Count(&stats.TotalDetections).Error; err != nil {
		return nil, errors.Wrap(err, "failed to count detections")
	}
	if err := s.db.Model(&Record{}).Where("is_safe = ?", true).Count(&stats.Accepted).Error; err != nil {
		return nil, errors.Wrap(err, "failed to count accepted detections")
	}
	stats.Denied = stats.TotalDetections - stats.Accepted

	var err error
	if stats.Recent, err = s.List(0, recent); err != nil {
		return nil, err
	}
	return stats, nil
}
