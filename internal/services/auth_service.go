// Package services – AuthService
//
// This file implements the AuthService, which turns a verified identity
// token into a local user record. Users authenticate against an external
// identity provider; the first time a token subject shows up here, a local
// row is provisioned lazily from the token claims (and an optional request
// body), keyed by the provider's user ID.
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/flashslides/go-credits-backend/internal/auth"
	"github.com/flashslides/go-credits-backend/internal/domain"
	"github.com/flashslides/go-credits-backend/internal/repo"
)

// AuthRequest is the optional request body accompanying authentication.
// Its fields take priority over the token claims when both are present.
type AuthRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// AuthResult reports the outcome of an authentication attempt.
type AuthResult struct {
	InternalID string `json:"internal_id"`
	Status     string `json:"status"`
	IsNewUser  bool   `json:"is_new_user"`
}

// AuthService provisions and resolves local users from identity tokens.
type AuthService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// Authenticate resolves the token subject to a local user, creating one on
// first sight. The subject must be a UUID (it doubles as the local primary
// key). New users need an email, taken from the body, the token's email
// claim, or user_metadata.email, in that order; without one the call fails
// with ErrEmailRequired.
//
// A concurrent first authentication for the same subject can race on the
// insert; the loser re-reads the row and reports the user as existing.
func (s *AuthService) Authenticate(ctx context.Context, claims *auth.Claims, body AuthRequest) (*AuthResult, error) {
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return nil, ErrInvalidUserID
	}

	existing, err := repo.GetUser(ctx, s.DB, claims.Subject)
	if err == nil {
		return &AuthResult{InternalID: existing.ID, Status: "authenticated", IsNewUser: false}, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	email := resolveEmail(body, claims)
	if email == "" {
		return nil, ErrEmailRequired
	}
	first, last := splitName(resolveFullName(body, claims))

	user := &domain.User{
		ID:           claims.Subject,
		Email:        email,
		FirstName:    first,
		LastName:     last,
		PasswordHash: domain.PasswordManagedExternally,
		IsActive:     true,
		Preferences: map[string]any{
			"marketing_consent": claims.UserMetadata["marketing_consent"],
		},
	}
	if err := repo.CreateUser(ctx, s.DB, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a provisioning race; the row exists now.
			existing, gerr := repo.GetUser(ctx, s.DB, claims.Subject)
			if gerr != nil {
				return nil, err
			}
			return &AuthResult{InternalID: existing.ID, Status: "authenticated", IsNewUser: false}, nil
		}
		return nil, err
	}

	log.Info().Str("user_id", user.ID).Msg("new user created")
	return &AuthResult{InternalID: user.ID, Status: "created", IsNewUser: true}, nil
}

// resolveEmail picks an email with body > email claim > metadata precedence.
func resolveEmail(body AuthRequest, claims *auth.Claims) string {
	if body.Email != "" {
		return body.Email
	}
	if claims.Email != "" {
		return claims.Email
	}
	if v, ok := claims.UserMetadata["email"].(string); ok {
		return v
	}
	return ""
}

// resolveFullName picks a display name from the body or the metadata keys
// the identity provider is known to populate.
func resolveFullName(body AuthRequest, claims *auth.Claims) string {
	if body.FullName != "" {
		return body.FullName
	}
	for _, key := range []string{"full_name", "name", "display_name"} {
		if v, ok := claims.UserMetadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

var nameCaser = cases.Title(language.Und, cases.NoLower)

// splitName splits a free-form full name into first and last parts and
// title-cases the leading letters without lowering the rest (so "McGregor"
// survives).
func splitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.SplitN(full, " ", 2)
	first = nameCaser.String(parts[0])
	if len(parts) > 1 {
		last = nameCaser.String(strings.TrimSpace(parts[1]))
	}
	return first, last
}
