package pgstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/misicnenad/fith-on/internal/program"
	"github.com/misicnenad/fith-on/internal/sections"
	"github.com/misicnenad/fith-on/internal/store"
)

const dsnEnv = "FITHON_TEST_POSTGRES_DSN"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set; skipping PostgreSQL tests", dsnEnv)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pgStore, err := Open(ctx, dsn, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(pgStore.Close)
	return pgStore
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), " ", nil); err == nil {
		t.Fatalf("expected error for blank dsn")
	}
}

func TestSectionsLifecycle(t *testing.T) {
	pgStore := openTestStore(t)
	ctx := context.Background()
	userKey := fmt.Sprintf("pg-%d@example.com", time.Now().UnixNano())

	note := sections.NewNoteSection("first", "")
	note.ID = "n-1"
	note.DateCreated = 10
	later := sections.NewNoteSection("second", "")
	later.ID = "n-2"
	later.DateCreated = 20

	if err := pgStore.AddSection(ctx, userKey, note); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := pgStore.AddSection(ctx, userKey, later); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := pgStore.AddSection(ctx, userKey, note); !errors.Is(err, store.ErrDuplicateSection) {
		t.Fatalf("expected ErrDuplicateSection, got %v", err)
	}

	note.Note.Title = "renamed"
	note.DateCreated = 999999
	if err := pgStore.UpdateSection(ctx, userKey, note); err != nil {
		t.Fatalf("update: %v", err)
	}
	retyped := sections.NewBlockSection(program.GenerateBlock(program.FormValues{"squatMax": 100}, 1))
	retyped.ID = "n-2"
	retyped.DateCreated = 20
	if err := pgStore.UpdateSection(ctx, userKey, retyped); !errors.Is(err, store.ErrSectionTypeChanged) {
		t.Fatalf("expected ErrSectionTypeChanged, got %v", err)
	}

	items, err := pgStore.GetSections(ctx, userKey)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(items) != 2 || items[0].ID != "n-2" || items[1].Note.Title != "renamed" || items[1].DateCreated != 10 {
		t.Fatalf("unexpected sections %#v", items)
	}

	if err := pgStore.RemoveSection(ctx, userKey, "n-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := pgStore.RemoveSection(ctx, userKey, "n-1"); err != nil {
		t.Fatalf("remove absent: %v", err)
	}
	if err := pgStore.LogFailure(ctx, userKey, "add", "timeout"); err != nil {
		t.Fatalf("log failure: %v", err)
	}
}
