package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/misicnenad/fith-on/internal/sections"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const fileName = "snapshot.db"

var errClosed = errors.New("snapshot: store closed")

// sectionSnapshot is one cached section of one user.
type sectionSnapshot struct {
	UserKey   string `gorm:"column:user_key;primaryKey;size:190"`
	SectionID string `gorm:"column:section_id;primaryKey;size:190"`
	Position  int    `gorm:"column:position;not null"`
	Payload   string `gorm:"column:payload;type:text;not null"`
	SavedAtMs int64  `gorm:"column:saved_at_ms;not null"`
}

func (sectionSnapshot) TableName() string {
	return "section_snapshots"
}

// Store keeps the last known section collection per user in a local SQLite file so
// the client can render before its first successful load.
type Store struct {
	db    *gorm.DB
	clock func() time.Time
}

// Open opens (or creates) the snapshot database at dir/snapshot.db.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir %s: %w", dir, err)
	}
	return OpenPath(filepath.Join(dir, fileName))
}

// OpenPath opens the snapshot database at an explicit path or DSN.
func OpenPath(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("opening snapshot db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&sectionSnapshot{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating snapshot table: %w", err)
	}

	return &Store{db: db, clock: time.Now}, nil
}

// Load returns the cached sections for the user in their saved order.
func (s *Store) Load(ctx context.Context, userKey string) ([]sections.Section, error) {
	if s == nil || s.db == nil {
		return nil, errClosed
	}
	var rows []sectionSnapshot
	if err := s.db.WithContext(ctx).
		Where("user_key = ?", strings.TrimSpace(userKey)).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}

	var items []sections.Section
	for _, row := range rows {
		section, err := sections.DecodePayload(row.Payload)
		if err != nil {
			return nil, fmt.Errorf("decoding snapshot: %w", err)
		}
		items = append(items, section)
	}
	return items, nil
}

// Save replaces the user's cached sections with items.
func (s *Store) Save(ctx context.Context, userKey string, items []sections.Section) error {
	if s == nil || s.db == nil {
		return errClosed
	}
	key := strings.TrimSpace(userKey)
	savedAt := s.clock().UnixMilli()

	rows := make([]sectionSnapshot, 0, len(items))
	for position, item := range items {
		payload, err := sections.EncodePayload(item)
		if err != nil {
			return fmt.Errorf("encoding section %s: %w", item.ID, err)
		}
		rows = append(rows, sectionSnapshot{
			UserKey:   key,
			SectionID: item.ID.String(),
			Position:  position,
			Payload:   payload,
			SavedAtMs: savedAt,
		})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_key = ?", key).Delete(&sectionSnapshot{}).Error; err != nil {
			return fmt.Errorf("clearing snapshot: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Save(&rows).Error; err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		return nil
	})
}

// Clear drops the user's cached sections, used on sign out.
func (s *Store) Clear(ctx context.Context, userKey string) error {
	if s == nil || s.db == nil {
		return errClosed
	}
	return s.db.WithContext(ctx).
		Where("user_key = ?", strings.TrimSpace(userKey)).
		Delete(&sectionSnapshot{}).Error
}

// Close closes the snapshot database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
