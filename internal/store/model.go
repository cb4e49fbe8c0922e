package store

// ChangeOperation enumerates the mutations recorded in the audit trail.
type ChangeOperation string

const (
	// ChangeOperationAdd records a section creation.
	ChangeOperationAdd ChangeOperation = "add"
	// ChangeOperationUpdate records a full section replacement.
	ChangeOperationUpdate ChangeOperation = "update"
	// ChangeOperationRemove records a section deletion.
	ChangeOperationRemove ChangeOperation = "remove"
)

// SectionRecord is the persisted form of a section.
type SectionRecord struct {
	UserKey         string `gorm:"column:user_key;primaryKey;size:190;not null;index:idx_sections_user_created,priority:1"`
	SectionID       string `gorm:"column:section_id;primaryKey;size:190;not null"`
	Type            string `gorm:"column:type;size:16;not null"`
	DateCreatedMs   int64  `gorm:"column:date_created_ms;not null;index:idx_sections_user_created,priority:2"`
	PayloadJSON     string `gorm:"column:payload_json;type:text;not null"`
	UpdatedAtMillis int64  `gorm:"column:updated_at_ms;not null"`
}

// TableName provides the explicit table binding for GORM.
func (SectionRecord) TableName() string {
	return "sections"
}

// SectionChange captures an append-only audit trail for section mutations.
type SectionChange struct {
	ChangeID        string          `gorm:"column:change_id;primaryKey;size:190;not null"`
	UserKey         string          `gorm:"column:user_key;size:190;not null;index:idx_section_changes_user_time,priority:1"`
	SectionID       string          `gorm:"column:section_id;size:190;not null"`
	AppliedAtMillis int64           `gorm:"column:applied_at_ms;not null;index:idx_section_changes_user_time,priority:2"`
	Operation       ChangeOperation `gorm:"column:op;size:16;not null"`
	PayloadJSON     string          `gorm:"column:payload_json;type:text;not null;default:''"`
}

// TableName provides the explicit table binding for GORM.
func (SectionChange) TableName() string {
	return "section_changes"
}

// FailureLogRecord is a client-reported operation failure.
type FailureLogRecord struct {
	ID             uint   `gorm:"column:id;primaryKey;autoIncrement"`
	UserKey        string `gorm:"column:user_key;size:190;not null;index"`
	Operation      string `gorm:"column:operation;size:64;not null"`
	Message        string `gorm:"column:message;type:text;not null"`
	LoggedAtMillis int64  `gorm:"column:logged_at_ms;not null"`
}

// TableName provides the explicit table binding for GORM.
func (FailureLogRecord) TableName() string {
	return "failure_logs"
}

// Models lists every table owned by the store, for schema migration.
func Models() []any {
	return []any{&SectionRecord{}, &SectionChange{}, &FailureLogRecord{}}
}
