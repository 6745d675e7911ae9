package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jkaninda/clai/internal/session"
)

// record is the audit table row. Command and Plan are stored as JSON
// text (SQLite stores JSON natively as text).
type record struct {
	ID         string    `gorm:"primaryKey;type:text"`
	CreatedAt  time.Time `gorm:"index"`
	SessionID  string    `gorm:"index;type:text"`
	Command    string    `gorm:"type:text"`
	Cwd        string    `gorm:"type:text"`
	Intent     string    `gorm:"type:text"`
	Status     string    `gorm:"type:text"`
	ExitCode   int
	Stdout     string `gorm:"type:text"`
	Stderr     string `gorm:"type:text"`
	DurationMS int64
	GitBefore  string `gorm:"type:text"`
	GitAfter   string `gorm:"type:text"`
	Plan       string `gorm:"type:text"`
}

func (record) TableName() string { return "audit_records" }

// SQLiteSink persists audit records in a SQLite database. Uses the pure
// Go driver (no CGO); WAL mode is enabled for concurrent readers.
type SQLiteSink struct {
	db     *gorm.DB
	logger *slog.Logger
}

// OpenSQLite opens (or creates) the audit database and migrates the
// schema.
func OpenSQLite(path string, slogger *slog.Logger) (*SQLiteSink, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite audit path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating audit database directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening audit database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrating audit schema: %w", err)
	}

	return &SQLiteSink{db: db, logger: slogger}, nil
}

// Record inserts one audit row.
func (s *SQLiteSink) Record(ctx context.Context, entry session.AuditEntry) error {
	command, err := json.Marshal(entry.Result.Command)
	if err != nil {
		return fmt.Errorf("marshaling command: %w", err)
	}

	row := record{
		ID:         uuid.NewString(),
		CreatedAt:  entry.Time,
		SessionID:  entry.SessionID,
		Command:    string(command),
		Cwd:        entry.Result.Cwd,
		Status:     string(entry.Result.Status),
		ExitCode:   entry.Result.ExitCode,
		Stdout:     entry.Result.Stdout,
		Stderr:     entry.Result.Stderr,
		DurationMS: entry.Result.Duration.Milliseconds(),
		GitBefore:  entry.GitBefore,
		GitAfter:   entry.GitAfter,
	}
	if entry.Plan != nil {
		row.Intent = entry.Plan.Intent
		plan, err := json.Marshal(entry.Plan)
		if err != nil {
			return fmt.Errorf("marshaling plan: %w", err)
		}
		row.Plan = string(plan)
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}

	s.logger.InfoContext(ctx, "audit record stored",
		slog.String("session_id", entry.SessionID),
		slog.String("id", row.ID),
	)
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
