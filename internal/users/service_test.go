package users

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/misicnenad/fith-on/internal/auth"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Identity{}); err != nil {
		t.Fatalf("failed to migrate identity schema: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database: db,
		Clock: func() time.Time {
			return time.Unix(1, 0)
		},
	})
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return service, db
}

func TestResolveUserKeyBindsFirstEmail(t *testing.T) {
	service, db := newTestService(t)
	ctx := context.Background()

	userKey, err := service.ResolveUserKey(ctx, auth.GoogleClaims{
		Subject: "12345",
		Email:   "Lifter@Example.com",
		Name:    "Lifter",
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if userKey != "lifter@example.com" {
		t.Fatalf("expected lowercased email key, got %q", userKey)
	}

	userKey, err = service.ResolveUserKey(ctx, auth.GoogleClaims{
		Subject: "12345",
		Email:   "renamed@example.com",
	})
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if userKey != "lifter@example.com" {
		t.Fatalf("expected key to stay bound to the first email, got %q", userKey)
	}

	var count int64
	if err := db.Model(&Identity{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single identity row, got %d", count)
	}
}

func TestResolveUserKeyRejectsIncompleteClaims(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	if _, err := service.ResolveUserKey(ctx, auth.GoogleClaims{Email: "a@example.com"}); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity without subject, got %v", err)
	}
	if _, err := service.ResolveUserKey(ctx, auth.GoogleClaims{Subject: "999"}); !errors.Is(err, ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity without email, got %v", err)
	}
}
