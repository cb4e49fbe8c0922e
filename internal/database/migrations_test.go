package database

import (
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/misicnenad/fith-on/internal/store"
	"github.com/misicnenad/fith-on/internal/users"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestApplyMigrationsLowercasesUserKeys(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}
	models := append(store.Models(), &users.Identity{}, &migrationRecord{})
	if err := database.AutoMigrate(models...); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	record := store.SectionRecord{
		UserKey:       "Lifter@Example.com",
		SectionID:     "s-1",
		Type:          "note",
		DateCreatedMs: 1,
		PayloadJSON:   `{"id":"s-1","dateCreated":1,"type":"note","title":"x"}`,
	}
	if err := database.Create(&record).Error; err != nil {
		testContext.Fatalf("failed to insert section: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var stored store.SectionRecord
	if err := database.Where("section_id = ?", "s-1").Take(&stored).Error; err != nil {
		testContext.Fatalf("failed to reload section: %v", err)
	}
	if stored.UserKey != "lifter@example.com" {
		testContext.Fatalf("expected lowercased user key, got %q", stored.UserKey)
	}

	var applied migrationRecord
	if err := database.Where("name = ?", migrationLowercaseUserKeys).Take(&applied).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if applied.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}

	if err := applyMigrations(database, nil); err != nil {
		testContext.Fatalf("re-running migrations should be a no-op: %v", err)
	}
}

func TestOpenSQLiteCreatesSchema(testContext *testing.T) {
	databasePath := filepath.Join(testContext.TempDir(), "fithon.db")
	database, err := OpenSQLite(databasePath, zap.NewNop())
	if err != nil {
		testContext.Fatalf("open: %v", err)
	}
	for _, table := range []string{"sections", "section_changes", "failure_logs", "user_identities", "db_migrations"} {
		if !database.Migrator().HasTable(table) {
			testContext.Fatalf("expected table %s", table)
		}
	}
	if _, err := OpenSQLite("", nil); err == nil {
		testContext.Fatalf("expected error for empty path")
	}
}
