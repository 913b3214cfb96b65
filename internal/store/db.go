package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&CueSequence{}, &DisplaySession{}, &PromptEntry{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveCueSequence inserts or refreshes a cue sequence row.
func (d *Database) SaveCueSequence(text string) (*CueSequence, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("cue text is empty")
	}
	cue := &CueSequence{Text: text, Normalized: normalizeCueKey(text)}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.gorm.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "normalized"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "updated_at"}),
	}).Create(cue).Error; err != nil {
		return nil, err
	}
	return cue, nil
}

// ListCueSequences returns stored cues, oldest first.
func (d *Database) ListCueSequences(limit int) ([]CueSequence, error) {
	q := d.gorm.Model(&CueSequence{}).Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []CueSequence
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountCueSequences returns the number of stored cues.
func (d *Database) CountCueSequences() (int64, error) {
	var count int64
	if err := d.gorm.Model(&CueSequence{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CreateDisplaySession records a freshly started display run.
func (d *Database) CreateDisplaySession(id string, columns int, startedAt time.Time) (*DisplaySession, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("session id is empty")
	}
	session := &DisplaySession{ID: id, Columns: columns, StartedAt: startedAt}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.gorm.Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// CloseDisplaySession stamps the stop time on a session.
func (d *Database) CloseDisplaySession(id string, stoppedAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	res := d.gorm.Model(&DisplaySession{}).Where("id = ?", id).Update("stopped_at", stoppedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// UpdateDisplaySessionColumns persists a layout change for a running session.
func (d *Database) UpdateDisplaySessionColumns(id string, columns int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Model(&DisplaySession{}).Where("id = ?", id).Update("columns", columns).Error
}

// GetDisplaySession fetches one session by id.
func (d *Database) GetDisplaySession(id string) (*DisplaySession, error) {
	var session DisplaySession
	if err := d.gorm.First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// ListDisplaySessions returns sessions, newest first.
func (d *Database) ListDisplaySessions(limit int) ([]DisplaySession, error) {
	q := d.gorm.Model(&DisplaySession{}).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []DisplaySession
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// AppendPromptEntry stores one consumed cue for a session.
func (d *Database) AppendPromptEntry(sessionID, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New("prompt value is empty")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(&PromptEntry{SessionID: sessionID, Value: value}).Error
}

// ListPromptEntries returns a session's prompt history in insertion order.
func (d *Database) ListPromptEntries(sessionID string) ([]PromptEntry, error) {
	var rows []PromptEntry
	if err := d.gorm.Where("session_id = ?", sessionID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
