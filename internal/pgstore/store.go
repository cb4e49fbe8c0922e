package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/misicnenad/fith-on/internal/sections"
	"github.com/misicnenad/fith-on/internal/store"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS sections (
	user_key        VARCHAR(190) NOT NULL,
	section_id      VARCHAR(190) NOT NULL,
	type            VARCHAR(16)  NOT NULL,
	date_created_ms BIGINT       NOT NULL,
	payload_json    TEXT         NOT NULL,
	updated_at_ms   BIGINT       NOT NULL,
	PRIMARY KEY (user_key, section_id)
);
CREATE INDEX IF NOT EXISTS idx_sections_user_created ON sections (user_key, date_created_ms DESC);
CREATE TABLE IF NOT EXISTS failure_logs (
	id           BIGSERIAL PRIMARY KEY,
	user_key     VARCHAR(190) NOT NULL,
	operation    VARCHAR(64)  NOT NULL,
	message      TEXT         NOT NULL,
	logged_at_ms BIGINT       NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_failure_logs_user_key ON failure_logs (user_key);
`

// Store persists sections in PostgreSQL through a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	clock  func() time.Time
	logger *zap.Logger
}

// Open connects to PostgreSQL and ensures the schema exists.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("database initialized", zap.String("driver", "postgres"))
	return &Store{pool: pool, clock: time.Now, logger: logger}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// GetSections returns the user's sections, newest first.
func (s *Store) GetSections(ctx context.Context, userKey string) ([]sections.Section, error) {
	key, err := sections.NewUserKey(userKey)
	if err != nil {
		return nil, store.NewServiceError(store.OpGetSections, "invalid_user_key", err)
	}
	rows, err := s.pool.Query(ctx,
		`SELECT payload_json FROM sections WHERE user_key = $1 ORDER BY date_created_ms DESC, section_id DESC`,
		key.String())
	if err != nil {
		s.logError(store.OpGetSections, "query_failed", err, key)
		return nil, store.NewServiceError(store.OpGetSections, "query_failed", err)
	}
	defer rows.Close()

	var items []sections.Section
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, store.NewServiceError(store.OpGetSections, "scan_failed", err)
		}
		section, err := sections.DecodePayload(payload)
		if err != nil {
			s.logError(store.OpGetSections, "decode_failed", err, key)
			return nil, store.NewServiceError(store.OpGetSections, "decode_failed", err)
		}
		items = append(items, section)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewServiceError(store.OpGetSections, "query_failed", err)
	}
	return items, nil
}

// AddSection inserts a new section; an existing id fails with store.ErrDuplicateSection.
func (s *Store) AddSection(ctx context.Context, userKey string, section sections.Section) error {
	key, payload, err := prepare(store.OpAddSection, userKey, section)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO sections (user_key, section_id, type, date_created_ms, payload_json, updated_at_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_key, section_id) DO NOTHING`,
		key.String(), section.ID.String(), string(section.Type), section.DateCreated, payload, s.clock().UTC().UnixMilli())
	if err != nil {
		s.logError(store.OpAddSection, "section_insert_failed", err, key)
		return store.NewServiceError(store.OpAddSection, "section_insert_failed", err)
	}
	if tag.RowsAffected() == 0 {
		return store.NewServiceError(store.OpAddSection, "duplicate", store.ErrDuplicateSection)
	}
	return nil
}

// UpdateSection replaces the section with the same id, creating it when absent. An
// existing section keeps its creation date; changing its type fails with
// store.ErrSectionTypeChanged.
func (s *Store) UpdateSection(ctx context.Context, userKey string, section sections.Section) error {
	key, payload, err := prepare(store.OpUpdateSection, userKey, section)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		s.logError(store.OpUpdateSection, "begin_failed", err, key)
		return store.NewServiceError(store.OpUpdateSection, "begin_failed", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var existingType string
	var existingCreated int64
	err = tx.QueryRow(ctx,
		`SELECT type, date_created_ms FROM sections WHERE user_key = $1 AND section_id = $2 FOR UPDATE`,
		key.String(), section.ID.String()).Scan(&existingType, &existingCreated)
	switch {
	case err == nil:
		if existingType != string(section.Type) {
			return store.NewServiceError(store.OpUpdateSection, "type_changed", store.ErrSectionTypeChanged)
		}
		if existingCreated != section.DateCreated {
			pinned := section.Clone()
			pinned.DateCreated = existingCreated
			if payload, err = sections.EncodePayload(pinned); err != nil {
				return store.NewServiceError(store.OpUpdateSection, "encode_failed", err)
			}
			section.DateCreated = existingCreated
		}
	case !errors.Is(err, pgx.ErrNoRows):
		s.logError(store.OpUpdateSection, "section_select_failed", err, key)
		return store.NewServiceError(store.OpUpdateSection, "section_select_failed", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO sections (user_key, section_id, type, date_created_ms, payload_json, updated_at_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_key, section_id) DO UPDATE SET
		 payload_json = EXCLUDED.payload_json, updated_at_ms = EXCLUDED.updated_at_ms`,
		key.String(), section.ID.String(), string(section.Type), section.DateCreated, payload, s.clock().UTC().UnixMilli())
	if err != nil {
		s.logError(store.OpUpdateSection, "section_save_failed", err, key)
		return store.NewServiceError(store.OpUpdateSection, "section_save_failed", err)
	}
	if err := tx.Commit(ctx); err != nil {
		s.logError(store.OpUpdateSection, "commit_failed", err, key)
		return store.NewServiceError(store.OpUpdateSection, "commit_failed", err)
	}
	return nil
}

// RemoveSection deletes the section; an absent id is not an error.
func (s *Store) RemoveSection(ctx context.Context, userKey string, sectionID sections.SectionID) error {
	key, err := sections.NewUserKey(userKey)
	if err != nil {
		return store.NewServiceError(store.OpRemoveSection, "invalid_user_key", err)
	}
	id, err := sections.NewSectionID(sectionID.String())
	if err != nil {
		return store.NewServiceError(store.OpRemoveSection, "invalid_section_id", err)
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM sections WHERE user_key = $1 AND section_id = $2`,
		key.String(), id.String()); err != nil {
		s.logError(store.OpRemoveSection, "section_delete_failed", err, key)
		return store.NewServiceError(store.OpRemoveSection, "section_delete_failed", err)
	}
	return nil
}

// LogFailure records a client-reported failure.
func (s *Store) LogFailure(ctx context.Context, userKey, operation, message string) error {
	key, err := sections.NewUserKey(userKey)
	if err != nil {
		return store.NewServiceError(store.OpLogFailure, "invalid_user_key", err)
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		return store.NewServiceError(store.OpLogFailure, "missing_operation", store.ErrInvalidFailureLog)
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO failure_logs (user_key, operation, message, logged_at_ms) VALUES ($1, $2, $3, $4)`,
		key.String(), operation, message, s.clock().UTC().UnixMilli()); err != nil {
		s.logError(store.OpLogFailure, "insert_failed", err, key)
		return store.NewServiceError(store.OpLogFailure, "insert_failed", err)
	}
	return nil
}

func prepare(operation, userKey string, section sections.Section) (sections.UserKey, string, error) {
	key, err := sections.NewUserKey(userKey)
	if err != nil {
		return "", "", store.NewServiceError(operation, "invalid_user_key", err)
	}
	if err := section.Validate(); err != nil {
		return "", "", store.NewServiceError(operation, "invalid_section", err)
	}
	payload, err := sections.EncodePayload(section)
	if err != nil {
		return "", "", store.NewServiceError(operation, "encode_failed", err)
	}
	return key, payload, nil
}

func (s *Store) logError(operation, reason string, err error, key sections.UserKey) {
	s.logger.Error("postgres sections store error",
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.String("user_key", key.String()),
		zap.Error(err))
}
