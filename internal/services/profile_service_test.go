package services

import (
	"context"
	"errors"
	"testing"

	"github.com/flashslides/go-credits-backend/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestProfileUpdate_EmptyUpdate(t *testing.T) {
	db := newServicesDB(t)
	seedBillingUser(t, db, 0)
	svc := &ProfileService{DB: db}

	if err := svc.Update(context.Background(), testUserID, ProfileUpdate{}); !errors.Is(err, ErrEmptyUpdate) {
		t.Fatalf("expected ErrEmptyUpdate, got %v", err)
	}
}

func TestProfileUpdate_ColumnsAndAvatar(t *testing.T) {
	db := newServicesDB(t)
	seedBillingUser(t, db, 0)
	svc := &ProfileService{DB: db}

	err := svc.Update(context.Background(), testUserID, ProfileUpdate{
		FirstName: strPtr("Grace"),
		LastName:  strPtr("Hopper"),
		AvatarURL: strPtr("https://cdn.example.com/a.png"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	u := loadUser(t, db, testUserID)
	if u.FirstName != "Grace" || u.LastName != "Hopper" {
		t.Fatalf("unexpected name: %q %q", u.FirstName, u.LastName)
	}
	if u.ProfileImageURL == nil || *u.ProfileImageURL != "https://cdn.example.com/a.png" {
		t.Fatalf("unexpected avatar: %v", u.ProfileImageURL)
	}
}

func TestProfileUpdate_CompanyMergesIntoPreferences(t *testing.T) {
	db := newServicesDB(t)
	u := seedBillingUser(t, db, 0)
	u.Preferences = map[string]any{"marketing_consent": true}
	if err := db.Save(u).Error; err != nil {
		t.Fatalf("seed preferences: %v", err)
	}
	svc := &ProfileService{DB: db}

	if err := svc.Update(context.Background(), testUserID, ProfileUpdate{Company: strPtr("Initech")}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got := loadUser(t, db, testUserID)
	if got.Preferences["company"] != "Initech" {
		t.Fatalf("expected company merged, got %v", got.Preferences)
	}
	if consent, ok := got.Preferences["marketing_consent"].(bool); !ok || !consent {
		t.Fatalf("existing preference keys must survive, got %v", got.Preferences)
	}

	// Company combined with plain columns in one call.
	err := svc.Update(context.Background(), testUserID, ProfileUpdate{
		FirstName: strPtr("Peter"),
		Company:   strPtr("Initrode"),
	})
	if err != nil {
		t.Fatalf("mixed update: %v", err)
	}
	got = loadUser(t, db, testUserID)
	if got.FirstName != "Peter" || got.Preferences["company"] != "Initrode" {
		t.Fatalf("mixed update not applied: %q %v", got.FirstName, got.Preferences)
	}
}

func TestProfileUpdate_UserNotFound(t *testing.T) {
	db := newServicesDB(t)
	svc := &ProfileService{DB: db}

	err := svc.Update(context.Background(), "3f1e9c1a-5be0-4a3e-9f1d-00000000dead", ProfileUpdate{FirstName: strPtr("X")})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	err = svc.Update(context.Background(), "3f1e9c1a-5be0-4a3e-9f1d-00000000dead", ProfileUpdate{Company: strPtr("X")})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound for company path, got %v", err)
	}
}

func TestProfileGet(t *testing.T) {
	db := newServicesDB(t)
	seedBillingUser(t, db, 250)
	svc := &ProfileService{DB: db}

	u, err := svc.Get(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if u.CreditsBalance != 250 || u.Email != "buyer@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCheckEmailAvailability(t *testing.T) {
	db := newServicesDB(t)
	seedBillingUser(t, db, 0)
	other := &domain.User{
		ID:           "3f1e9c1a-5be0-4a3e-9f1d-000000000099",
		Email:        "taken@example.com",
		PasswordHash: domain.PasswordManagedExternally,
	}
	if err := db.Create(other).Error; err != nil {
		t.Fatalf("seed other: %v", err)
	}
	svc := &ProfileService{DB: db}

	ok, err := svc.CheckEmailAvailability(context.Background(), testUserID, "free@example.com")
	if err != nil || !ok {
		t.Fatalf("free email: ok=%v err=%v", ok, err)
	}

	// Own address counts as available.
	ok, err = svc.CheckEmailAvailability(context.Background(), testUserID, "buyer@example.com")
	if err != nil || !ok {
		t.Fatalf("own email: ok=%v err=%v", ok, err)
	}

	ok, err = svc.CheckEmailAvailability(context.Background(), testUserID, "taken@example.com")
	if err != nil || ok {
		t.Fatalf("taken email: ok=%v err=%v", ok, err)
	}
}
