// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Transaction model, which records each completed credit purchase.
//
// Error semantics:
//   - CreateTransaction maps gorm.ErrDuplicatedKey to ErrDuplicateReference,
//     which the billing service treats as an already-processed payment.
//   - Other constraint violations are propagated untouched; use
//     IsConstraintViolation to classify them.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/flashslides/go-credits-backend/internal/domain"
)

// ErrDuplicateReference is returned when a transaction with the same
// external payment reference (Stripe session ID) already exists. It signals
// an idempotent replay of a webhook event rather than a failure.
var ErrDuplicateReference = errors.New("repo: duplicate payment reference")

// CreateTransaction inserts a new Transaction row. When the unique index on
// the Stripe session ID rejects the insert, it returns ErrDuplicateReference;
// TranslateError must be enabled on the db handle for this mapping to work.
// Other DB errors are propagated as-is.
func CreateTransaction(ctx context.Context, db *gorm.DB, t *domain.Transaction) error {
	err := db.WithContext(ctx).Create(t).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateReference
	}
	return err
}

// GetTransactionBySession fetches a transaction by its Stripe session ID.
// If the record does not exist, it returns ErrNotFound.
func GetTransactionBySession(ctx context.Context, db *gorm.DB, sessionID string) (*domain.Transaction, error) {
	var t domain.Transaction
	err := db.WithContext(ctx).
		Where("stripe_session_id = ?", sessionID).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CountTransactions returns the total number of transactions owned by userID.
// On DB error, it returns the error.
func CountTransactions(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// ListTransactionsPage returns a paginated slice of transactions for userID,
// ordered by creation time descending. Use CountTransactions to obtain the
// total for pagination metadata. On DB error, it returns the error.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListTransactionsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Transaction, error) {
	var out []domain.Transaction
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// IsConstraintViolation reports whether err is any of GORM's translated
// integrity errors (duplicate key, check, foreign key). The billing service
// uses it to distinguish data-integrity failures from transient ones.
func IsConstraintViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) ||
		errors.Is(err, gorm.ErrForeignKeyViolated)
}
