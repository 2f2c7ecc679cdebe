// Package services – ProfileService
//
// This file implements the ProfileService, which handles partial profile
// updates and email-availability checks for authenticated users. Company is
// not a column of its own: it is merged into the user's preferences JSON so
// the schema stays stable as profile attributes accrete.
package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/flashslides/go-credits-backend/internal/domain"
	"github.com/flashslides/go-credits-backend/internal/repo"
)

// ErrEmptyUpdate is returned when a profile update carries no fields.
var ErrEmptyUpdate = errors.New("no data provided for update")

// ProfileUpdate is a partial profile change. Nil pointers mean "leave as is";
// non-nil empty strings clear the field.
type ProfileUpdate struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	AvatarURL *string `json:"avatar_url"`
	Company   *string `json:"company"`
}

// ProfileService implements the user profile use-cases.
type ProfileService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// Get returns the user's full profile record.
func (s *ProfileService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := repo.GetUser(ctx, s.DB, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// Update applies a partial profile update for userID.
//
// Name and avatar fields map straight to columns. Company is merged into the
// existing preferences JSON, which requires reading the row first; the read
// and write run in one transaction so a concurrent update cannot drop keys.
//
// Errors: ErrEmptyUpdate when no fields are set, ErrUserNotFound when the
// user does not exist, otherwise the underlying DB error.
func (s *ProfileService) Update(ctx context.Context, userID string, upd ProfileUpdate) error {
	fields := map[string]any{}
	if upd.FirstName != nil {
		fields["first_name"] = *upd.FirstName
	}
	if upd.LastName != nil {
		fields["last_name"] = *upd.LastName
	}
	if upd.AvatarURL != nil {
		fields["profile_image_url"] = *upd.AvatarURL
	}
	if upd.Company == nil && len(fields) == 0 {
		return ErrEmptyUpdate
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if upd.Company != nil {
			user, err := repo.GetUser(ctx, tx, userID)
			if err != nil {
				return err
			}
			prefs := user.Preferences
			if prefs == nil {
				prefs = map[string]any{}
			}
			prefs["company"] = *upd.Company
			// Map-based Updates bypasses the model's JSON serializer, so
			// the column value is marshaled here.
			b, err := json.Marshal(prefs)
			if err != nil {
				return err
			}
			fields["preferences"] = string(b)
		}
		return repo.UpdateUserFields(ctx, tx, userID, fields)
	})
	if errors.Is(err, repo.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	log.Info().Str("user_id", userID).Msg("user profile updated successfully")
	return nil
}

// CheckEmailAvailability reports whether email can be claimed by userID.
// An email is available when no one owns it, or when the caller already does.
func (s *ProfileService) CheckEmailAvailability(ctx context.Context, userID, email string) (bool, error) {
	owner, err := repo.GetUserByEmail(ctx, s.DB, email)
	if errors.Is(err, repo.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return owner.ID == userID, nil
}
