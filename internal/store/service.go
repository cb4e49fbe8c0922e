package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/misicnenad/fith-on/internal/sections"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var noOpLogger = zap.NewNop()

// ServiceConfig wires the dependencies of Service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider sections.IDProvider
	Logger     *zap.Logger
}

// Service persists sections and failure reports through GORM.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider sections.IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, NewServiceError(OpServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, NewServiceError(OpServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// GetSections returns the user's sections, newest first.
func (s *Service) GetSections(ctx context.Context, userKey string) ([]sections.Section, error) {
	key, err := sections.NewUserKey(userKey)
	if err != nil {
		return nil, NewServiceError(OpGetSections, "invalid_user_key", err)
	}

	var records []SectionRecord
	if err := s.db.WithContext(ctx).
		Where("user_key = ?", key.String()).
		Order("date_created_ms DESC").
		Order("section_id DESC").
		Find(&records).Error; err != nil {
		s.logError(OpGetSections, "query_failed", err, zap.String("user_key", key.String()))
		return nil, NewServiceError(OpGetSections, "query_failed", err)
	}

	items := make([]sections.Section, 0, len(records))
	for _, record := range records {
		section, err := sections.DecodePayload(record.PayloadJSON)
		if err != nil {
			s.logError(OpGetSections, "decode_failed", err,
				zap.String("user_key", key.String()),
				zap.String("section_id", record.SectionID))
			return nil, NewServiceError(OpGetSections, "decode_failed", err)
		}
		items = append(items, section)
	}
	return items, nil
}

// AddSection stores a new section. Adding an id the user already owns fails with
// ErrDuplicateSection.
func (s *Service) AddSection(ctx context.Context, userKey string, section sections.Section) error {
	key, record, err := s.prepare(OpAddSection, userKey, section)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing SectionRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_key = ? AND section_id = ?", key.String(), record.SectionID).
			Take(&existing).Error
		if err == nil {
			return NewServiceError(OpAddSection, "duplicate", ErrDuplicateSection)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logError(OpAddSection, "section_select_failed", err, sectionFields(key, record.SectionID)...)
			return NewServiceError(OpAddSection, "section_select_failed", err)
		}

		if err := tx.Create(&record).Error; err != nil {
			s.logError(OpAddSection, "section_insert_failed", err, sectionFields(key, record.SectionID)...)
			return NewServiceError(OpAddSection, "section_insert_failed", err)
		}
		return s.recordChange(tx, OpAddSection, key, record.SectionID, ChangeOperationAdd, record.PayloadJSON)
	})
}

// UpdateSection replaces the section with the same id, creating it when absent. An
// existing section keeps its creation date; changing its type fails with
// ErrSectionTypeChanged.
func (s *Service) UpdateSection(ctx context.Context, userKey string, section sections.Section) error {
	key, record, err := s.prepare(OpUpdateSection, userKey, section)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing SectionRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_key = ? AND section_id = ?", key.String(), record.SectionID).
			Take(&existing).Error
		switch {
		case err == nil:
			if existing.Type != record.Type {
				return NewServiceError(OpUpdateSection, "type_changed", ErrSectionTypeChanged)
			}
			if existing.DateCreatedMs != record.DateCreatedMs {
				pinned := section.Clone()
				pinned.DateCreated = existing.DateCreatedMs
				payload, err := sections.EncodePayload(pinned)
				if err != nil {
					s.logError(OpUpdateSection, "encode_failed", err, sectionFields(key, record.SectionID)...)
					return NewServiceError(OpUpdateSection, "encode_failed", err)
				}
				record.DateCreatedMs = existing.DateCreatedMs
				record.PayloadJSON = payload
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			s.logError(OpUpdateSection, "section_select_failed", err, sectionFields(key, record.SectionID)...)
			return NewServiceError(OpUpdateSection, "section_select_failed", err)
		}

		if err := tx.Save(&record).Error; err != nil {
			s.logError(OpUpdateSection, "section_save_failed", err, sectionFields(key, record.SectionID)...)
			return NewServiceError(OpUpdateSection, "section_save_failed", err)
		}
		return s.recordChange(tx, OpUpdateSection, key, record.SectionID, ChangeOperationUpdate, record.PayloadJSON)
	})
}

// RemoveSection deletes the section. Removing an absent id succeeds without effect.
func (s *Service) RemoveSection(ctx context.Context, userKey string, sectionID sections.SectionID) error {
	key, err := sections.NewUserKey(userKey)
	if err != nil {
		return NewServiceError(OpRemoveSection, "invalid_user_key", err)
	}
	id, err := sections.NewSectionID(sectionID.String())
	if err != nil {
		return NewServiceError(OpRemoveSection, "invalid_section_id", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("user_key = ? AND section_id = ?", key.String(), id.String()).Delete(&SectionRecord{})
		if result.Error != nil {
			s.logError(OpRemoveSection, "section_delete_failed", result.Error, sectionFields(key, id.String())...)
			return NewServiceError(OpRemoveSection, "section_delete_failed", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}
		return s.recordChange(tx, OpRemoveSection, key, id.String(), ChangeOperationRemove, "")
	})
}

// ListChanges returns the user's audit trail, oldest first.
func (s *Service) ListChanges(ctx context.Context, userKey string) ([]SectionChange, error) {
	key, err := sections.NewUserKey(userKey)
	if err != nil {
		return nil, NewServiceError(OpListChanges, "invalid_user_key", err)
	}
	var changes []SectionChange
	if err := s.db.WithContext(ctx).
		Where("user_key = ?", key.String()).
		Order("applied_at_ms ASC").
		Order("change_id ASC").
		Find(&changes).Error; err != nil {
		s.logError(OpListChanges, "query_failed", err, zap.String("user_key", key.String()))
		return nil, NewServiceError(OpListChanges, "query_failed", err)
	}
	return changes, nil
}

// LogFailure records a client-reported failure.
func (s *Service) LogFailure(ctx context.Context, userKey, operation, message string) error {
	key, err := sections.NewUserKey(userKey)
	if err != nil {
		return NewServiceError(OpLogFailure, "invalid_user_key", err)
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		return NewServiceError(OpLogFailure, "missing_operation", ErrInvalidFailureLog)
	}

	record := FailureLogRecord{
		UserKey:        key.String(),
		Operation:      operation,
		Message:        message,
		LoggedAtMillis: s.clock().UTC().UnixMilli(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		s.logError(OpLogFailure, "insert_failed", err, zap.String("user_key", key.String()))
		return NewServiceError(OpLogFailure, "insert_failed", err)
	}
	return nil
}

// ListFailures returns the user's failure reports, newest first.
func (s *Service) ListFailures(ctx context.Context, userKey string) ([]FailureLogRecord, error) {
	key, err := sections.NewUserKey(userKey)
	if err != nil {
		return nil, NewServiceError(OpListFailureLog, "invalid_user_key", err)
	}
	var records []FailureLogRecord
	if err := s.db.WithContext(ctx).
		Where("user_key = ?", key.String()).
		Order("logged_at_ms DESC").
		Order("id DESC").
		Find(&records).Error; err != nil {
		s.logError(OpListFailureLog, "query_failed", err, zap.String("user_key", key.String()))
		return nil, NewServiceError(OpListFailureLog, "query_failed", err)
	}
	return records, nil
}

func (s *Service) prepare(operation, userKey string, section sections.Section) (sections.UserKey, SectionRecord, error) {
	key, err := sections.NewUserKey(userKey)
	if err != nil {
		return "", SectionRecord{}, NewServiceError(operation, "invalid_user_key", err)
	}
	if err := section.Validate(); err != nil {
		return "", SectionRecord{}, NewServiceError(operation, "invalid_section", err)
	}
	payload, err := sections.EncodePayload(section)
	if err != nil {
		s.logError(operation, "encode_failed", err, sectionFields(key, section.ID.String())...)
		return "", SectionRecord{}, NewServiceError(operation, "encode_failed", err)
	}
	return key, SectionRecord{
		UserKey:         key.String(),
		SectionID:       section.ID.String(),
		Type:            string(section.Type),
		DateCreatedMs:   section.DateCreated,
		PayloadJSON:     payload,
		UpdatedAtMillis: s.clock().UTC().UnixMilli(),
	}, nil
}

func (s *Service) recordChange(tx *gorm.DB, operation string, key sections.UserKey, sectionID string, op ChangeOperation, payload string) error {
	changeID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(operation, "id_generation_failed", err, sectionFields(key, sectionID)...)
		return NewServiceError(operation, "id_generation_failed", err)
	}
	change := SectionChange{
		ChangeID:        changeID,
		UserKey:         key.String(),
		SectionID:       sectionID,
		AppliedAtMillis: s.clock().UTC().UnixMilli(),
		Operation:       op,
		PayloadJSON:     payload,
	}
	if err := tx.Create(&change).Error; err != nil {
		s.logError(operation, "audit_insert_failed", err, sectionFields(key, sectionID)...)
		return NewServiceError(operation, "audit_insert_failed", err)
	}
	return nil
}

func sectionFields(key sections.UserKey, sectionID string) []zap.Field {
	return []zap.Field{
		zap.String("user_key", key.String()),
		zap.String("section_id", sectionID),
	}
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("sections service error", attrs...)
}
