// Package domain defines the persistence models for users and credit
// transactions. These types are mapped with GORM and form the core data
// layer of the credits backend.
package domain

import (
	"time"
)

// PasswordManagedExternally is the PasswordHash placeholder for accounts whose
// credentials live entirely with the external identity provider.
const PasswordManagedExternally = "managed_externally"

// User represents an account holder. Identity is established by an external
// signing authority; rows are provisioned lazily the first time a valid token
// is seen, which is why PasswordHash carries a fixed placeholder.
//
// CreditsBalance is only ever incremented together with a Transaction insert
// inside the same database transaction; see services.BillingService.
//
// Fields:
//   - ID: stable UUID primary key (char(36)), equal to the identity
//     provider's subject claim.
//   - Email: unique address used for gateway customer creation; indexed.
//   - StripeCustomerID: optional payment-gateway customer reference. Set at
//     most once, never overwritten once present.
//   - CreditsBalance: current purchasable-usage balance; never negative.
//   - Preferences: free-form settings map, stored as JSON.
type User struct {
	ID               string         `json:"id"                 gorm:"type:char(36);primaryKey"`
	Email            string         `json:"email"              gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone            *string        `json:"phone,omitempty"    gorm:"type:varchar(32)"`
	FirstName        string         `json:"first_name"         gorm:"type:varchar(128)"`
	LastName         string         `json:"last_name"          gorm:"type:varchar(128)"`
	ProfileImageURL  *string        `json:"profile_image_url,omitempty" gorm:"type:varchar(512)"`
	PasswordHash     string         `json:"-"                  gorm:"type:varchar(128);not null"`
	StripeCustomerID *string        `json:"-"                  gorm:"type:varchar(64);index"`
	CreditsBalance   int64          `json:"credits_balance"    gorm:"not null;default:0;check:credits_balance >= 0"`
	Preferences      map[string]any `json:"preferences,omitempty" gorm:"serializer:json"`
	IsActive         bool           `json:"is_active"          gorm:"not null;default:true"`
	LastLoginAt      *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Transaction records a single completed credit purchase. Rows are created
// exclusively by the payment reconciliation flow, are immutable afterwards,
// and are never deleted.
//
// StripeSessionID is the idempotency key: the unique index rejects a second
// insert for the same gateway session, which is how duplicate webhook
// deliveries are detected atomically even when they arrive concurrently.
type Transaction struct {
	ID              string    `json:"id"                gorm:"type:char(36);primaryKey"`
	UserID          string    `json:"user_id"           gorm:"type:char(36);not null;index:idx_user_txns"`
	StripeSessionID string    `json:"stripe_session_id" gorm:"type:varchar(255);not null;uniqueIndex:ux_txn_session"`
	AmountPaidCents int64     `json:"amount_paid_cents" gorm:"not null"`
	CreditsAdded    int64     `json:"credits_added"     gorm:"not null;check:credits_added > 0"`
	CreatedAt       time.Time `json:"created_at"`

	// User is the credited account. The FK is a reference, not ownership;
	// transactions stay behind for audit even if an account is deactivated,
	// so no cascade here.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID"`
}

// TableName returns the database table name for Transaction.
func (Transaction) TableName() string { return "transactions" }
