// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a user is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - CreateUser(ctx, db, u) -> error
//     Inserts a new User row; ID and timestamps must be preset by the caller.
//
//   - GetUser(ctx, db, id) -> *domain.User, error
//     Fetches a single user by ID, or ErrNotFound if missing.
//
//   - GetUserForUpdate(ctx, db, id) -> *domain.User, error
//     Fetches a user with a row-level write lock (SELECT ... FOR UPDATE on
//     engines that support it). Intended for use inside a transaction.
//
//   - GetUserByEmail(ctx, db, email) -> *domain.User, error
//     Fetches a single user by email, or ErrNotFound if missing.
//
//   - EmailExists(ctx, db, email) -> (bool, error)
//     Reports whether any user already owns the given email address.
//
//   - UpdateUserFields(ctx, db, id, fields) -> error
//     Applies a partial column update, returning ErrNotFound when the
//     user does not exist.
//
//   - AddCredits(ctx, db, id, credits) -> error
//     Atomically increments the user's credit balance.
//
// This repository is designed to be wrapped by higher-level services
// (see services.AuthService, services.ProfileService, services.BillingService)
// which enforce business rules and transactional boundaries.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flashslides/go-credits-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateUser inserts a new User row. The caller is responsible for setting
// the ID (UUID string) and any defaults beyond the schema-level ones.
// On failure, it returns a DB error (gorm.ErrDuplicatedKey when the email
// is already taken, courtesy of TranslateError).
func CreateUser(ctx context.Context, db *gorm.DB, u *domain.User) error {
	return db.WithContext(ctx).Create(u).Error
}

// GetUser fetches a single user by ID. If the record does not exist, it
// returns ErrNotFound. On other DB errors, the raw error is returned.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserForUpdate fetches a user by ID while acquiring a row-level write
// lock. On PostgreSQL this issues SELECT ... FOR UPDATE; the pure-Go SQLite
// driver drops the locking clause, where the single-writer model already
// serializes concurrent mutations.
//
// Callers must invoke this inside a db transaction, otherwise the lock is
// released immediately.
func GetUserForUpdate(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByEmail fetches a single user by email. If the record does not
// exist, it returns ErrNotFound. On other DB errors, the raw error is returned.
func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("email = ?", email).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EmailExists reports whether any user row already owns the given email.
// On DB error, it returns the error.
func EmailExists(ctx context.Context, db *gorm.DB, email string) (bool, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("email = ?", email).
		Count(&total).Error
	return total > 0, err
}

// UpdateUserFields applies a partial column update to the user identified by
// id. The fields map keys are column names. UpdatedAt is always refreshed.
// If no rows are affected (user missing), it returns ErrNotFound. On DB
// error, the raw error is returned.
func UpdateUserFields(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddCredits atomically increments the credit balance of the user identified
// by id. If no rows are affected (user missing), it returns ErrNotFound.
// On DB error, the raw error is returned.
func AddCredits(ctx context.Context, db *gorm.DB, id string, credits int64) error {
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"credits_balance": gorm.Expr("credits_balance + ?", credits),
			"updated_at":      time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
