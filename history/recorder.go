// Package history persists an audit trail of routed actions: which route
// each action took and how its bridge attempt ended. The store is an
// embedded sqlite database; recording is best-effort and never blocks or
// fails an action.
package history

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Entry is one routed action.
type Entry struct {
	ID         uint   `gorm:"primaryKey"`
	Action     string `gorm:"index"`
	Route      string `gorm:"index"`
	Status     string
	DurationMS int64
	CreatedAt  time.Time `gorm:"index"`
}

// Open opens (or creates) the history database. Use ":memory:" or
// "file::memory:?cache=shared" for an ephemeral store.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", dsn, err)
	}
	return db, nil
}

// Recorder writes action records. Satisfies routing.Recorder.
type Recorder struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewRecorder migrates the schema and returns a recorder.
func NewRecorder(db *gorm.DB, logger *zap.Logger) (*Recorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("history: auto migrate: %w", err)
	}
	return &Recorder{
		db:     db,
		logger: logger.With(zap.String("component", "history")),
	}, nil
}

// Record persists one routed action. Failures are logged, not surfaced: a
// broken audit trail must not break browser control.
func (r *Recorder) Record(action, route, status string, duration time.Duration) {
	entry := Entry{
		Action:     action,
		Route:      route,
		Status:     status,
		DurationMS: duration.Milliseconds(),
	}
	if err := r.db.Create(&entry).Error; err != nil {
		r.logger.Warn("failed to record action",
			zap.String("action", action),
			zap.Error(err))
	}
}

// Recent returns up to limit entries, newest first.
func (r *Recorder) Recent(limit int) ([]Entry, error) {
	var entries []Entry
	err := r.db.Order("id DESC").Limit(limit).Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	return entries, nil
}

// CountByRoute returns how many recorded actions took each route.
func (r *Recorder) CountByRoute() (map[string]int64, error) {
	type row struct {
		Route string
		N     int64
	}
	var rows []row
	err := r.db.Model(&Entry{}).
		Select("route, count(*) as n").
		Group("route").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("history: count by route: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Route] = rw.N
	}
	return counts, nil
}
