// Package gormstore implements the session catalog on Gorm + SQLite.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"chromalyzer/internal/session"
	"chromalyzer/internal/store"
)

type sessionModel struct {
	ID            string         `gorm:"column:id;primaryKey"`
	Name          string         `gorm:"column:name;index"`
	Source        string         `gorm:"column:source"`
	TraceCount    int            `gorm:"column:trace_count"`
	Payload       datatypes.JSON `gorm:"column:payload"`
	CreatedAtUnix int64          `gorm:"column:created_at"`
	UpdatedAtUnix int64          `gorm:"column:updated_at;index"`
}

func (sessionModel) TableName() string { return "sessions" }

// GormCatalog stores session documents in a single SQLite file.
type GormCatalog struct {
	db *gorm.DB
}

var _ store.Catalog = (*GormCatalog)(nil)

// New opens (and migrates) the catalog at path.
func New(path string) (*GormCatalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("session catalog: path required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&sessionModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP
	// reads while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormCatalog{db: db}, nil
}

func (c *GormCatalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Save upserts the full document. The payload is the schema-checked JSON
// form so a catalog row can be exported as a standalone session file.
func (c *GormCatalog) Save(ctx context.Context, s *session.Session) error {
	if c == nil || c.db == nil {
		return fmt.Errorf("session catalog not initialized")
	}
	payload, err := session.Encode(s)
	if err != nil {
		return err
	}
	model := sessionModel{
		ID:            s.ID,
		Name:          s.Name,
		Source:        s.Source,
		TraceCount:    len(s.Traces),
		Payload:       datatypes.JSON(payload),
		CreatedAtUnix: s.CreatedAt.UnixMilli(),
		UpdatedAtUnix: s.UpdatedAt.UnixMilli(),
	}
	return c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "source", "trace_count", "payload", "updated_at",
			}),
		}).
		Create(&model).Error
}

func (c *GormCatalog) Get(ctx context.Context, id string) (*session.Session, error) {
	if c == nil || c.db == nil {
		return nil, fmt.Errorf("session catalog not initialized")
	}
	var model sessionModel
	if err := c.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}
	return session.Decode(model.Payload)
}

func (c *GormCatalog) List(ctx context.Context) ([]store.SessionSummary, error) {
	if c == nil || c.db == nil {
		return nil, fmt.Errorf("session catalog not initialized")
	}
	var models []sessionModel
	if err := c.db.WithContext(ctx).
		Select("id", "name", "source", "trace_count", "created_at", "updated_at").
		Order("updated_at DESC, id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]store.SessionSummary, 0, len(models))
	for _, m := range models {
		out = append(out, store.SessionSummary{
			ID:         m.ID,
			Name:       m.Name,
			Source:     m.Source,
			TraceCount: m.TraceCount,
			CreatedAt:  time.UnixMilli(m.CreatedAtUnix),
			UpdatedAt:  time.UnixMilli(m.UpdatedAtUnix),
		})
	}
	return out, nil
}

func (c *GormCatalog) Delete(ctx context.Context, id string) error {
	if c == nil || c.db == nil {
		return fmt.Errorf("session catalog not initialized")
	}
	res := c.db.WithContext(ctx).Where("id = ?", strings.TrimSpace(id)).Delete(&sessionModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return session.ErrNotFound
	}
	return nil
}
