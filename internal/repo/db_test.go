package repo

import (
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/flashslides/go-credits-backend/internal/domain"
)

func TestOpenSQLite_CreatesAndMigrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	for _, model := range []any{&domain.User{}, &domain.Transaction{}} {
		if !db.Migrator().HasTable(model) {
			t.Fatalf("expected table for %T", model)
		}
	}

	// TranslateError must be active so constraint failures become typed.
	u1 := &domain.User{ID: "u1", Email: "a@example.com", PasswordHash: domain.PasswordManagedExternally}
	if err := db.Create(u1).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	u2 := &domain.User{ID: "u2", Email: "a@example.com", PasswordHash: domain.PasswordManagedExternally}
	if err := db.Create(u2).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected gorm.ErrDuplicatedKey, got %v", err)
	}
}

func TestOpenSQLite_MissingParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "app.db")
	if _, err := OpenSQLite(path); err == nil {
		t.Fatalf("expected error for missing parent directory")
	}
}
