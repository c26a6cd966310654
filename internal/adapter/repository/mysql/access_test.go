package mysql

import (
	"context"
	"testing"

	"loanledger-backend/internal/domain/access"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openAccessTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&access.Grant{}, &access.Settings{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func TestAccess_GrantRevoke(t *testing.T) {
	db := openAccessTestDB(t)
	repo := NewAccessRepository(db)
	ctx := context.Background()

	ok, err := repo.HasCapability(ctx, access.CapabilityOriginator, "alice")
	if err != nil || ok {
		t.Fatalf("ungranted capability = %v, err %v", ok, err)
	}

	if err := repo.Grant(ctx, access.CapabilityOriginator, "alice"); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	// Granting twice is a no-op, not a unique-key violation.
	if err := repo.Grant(ctx, access.CapabilityOriginator, "alice"); err != nil {
		t.Fatalf("duplicate Grant: %v", err)
	}

	ok, err = repo.HasCapability(ctx, access.CapabilityOriginator, "alice")
	if err != nil || !ok {
		t.Fatalf("granted capability = %v, err %v", ok, err)
	}
	// A grant is scoped to one capability.
	ok, _ = repo.HasCapability(ctx, access.CapabilityAdmin, "alice")
	if ok {
		t.Fatal("grant leaked across capabilities")
	}

	if err := repo.Revoke(ctx, access.CapabilityOriginator, "alice"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	ok, _ = repo.HasCapability(ctx, access.CapabilityOriginator, "alice")
	if ok {
		t.Fatal("capability survived revoke")
	}

	// Revoking something never granted is fine.
	if err := repo.Revoke(ctx, access.CapabilityAdmin, "nobody"); err != nil {
		t.Fatalf("Revoke of absent grant: %v", err)
	}
}

func TestAccess_SettingsSingleRow(t *testing.T) {
	db := openAccessTestDB(t)
	repo := NewAccessRepository(db)
	ctx := context.Background()

	// First read creates the default row.
	s, err := repo.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if s.Paused || s.OriginationFeeBps != 0 {
		t.Fatalf("default settings = %+v", s)
	}

	s.Paused = true
	s.OriginationFeeBps = 250
	if err := repo.SaveSettings(ctx, s); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	again, err := repo.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if again.ID != s.ID {
		t.Fatalf("settings grew a second row: %d vs %d", again.ID, s.ID)
	}
	if !again.Paused || again.OriginationFeeBps != 250 {
		t.Fatalf("settings not persisted: %+v", again)
	}
}
