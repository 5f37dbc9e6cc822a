package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// AccountStatus is the lifecycle status of an account.
type AccountStatus = string

const (
	// AccountStatusPending means the account exists but the owner has not yet
	// proven control of the registered mailbox.
	AccountStatusPending AccountStatus = "pending"
	// AccountStatusActive means the account can authenticate.
	AccountStatusActive AccountStatus = "active"
	// AccountStatusSuspended means authentication is blocked by an admin.
	AccountStatusSuspended AccountStatus = "suspended"
	// AccountStatusArchived is terminal.
	AccountStatusArchived AccountStatus = "archived"
)

// Account is the account model. Email is unique per role, so the same mailbox
// can own a user account and an admin account.
type Account struct {
	bun.BaseModel       `bun:"table:accounts,alias:acc"`
	ID                  uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role                AccountRole   `bun:"role,notnull,unique:accounts_email_role" json:"role,omitempty"`
	Email               string        `bun:"email,notnull,unique:accounts_email_role" json:"email,omitempty"`
	Username            string        `bun:"username,notnull" json:"username,omitempty"`
	Phone               string        `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash        string        `bun:"password_hash,notnull" json:"-"`
	Status              AccountStatus `bun:"status,notnull" json:"status,omitempty"`
	ActivationToken     *string       `bun:"activation_token,nullzero" json:"-"`
	ActivationExpiresAt *time.Time    `bun:"activation_expires_at,nullzero" json:"-"`
	ResetToken          *string       `bun:"reset_token,nullzero" json:"-"`
	ResetExpiresAt      *time.Time    `bun:"reset_expires_at,nullzero" json:"-"`
	LoginAttempts       int           `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt      *time.Time    `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt          *time.Time    `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	SuspendedAt         *time.Time    `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	CreatedAt           *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt           *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt           *time.Time    `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus defaults a blank status to active, matching deployments that
// run with activation disabled.
func (a *Account) EnsureStatus() {
	if a.Status == "" {
		a.Status = AccountStatusActive
	}
}

// IsActive reports whether the account completed activation and is not
// blocked.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// IsPending reports whether activation has not completed yet.
func (a *Account) IsPending() bool {
	return a.Status == AccountStatusPending
}

// IsSuspended reports whether an admin blocked the account.
func (a *Account) IsSuspended() bool {
	return a.Status == AccountStatusSuspended
}

// HasPendingActivation reports whether a non-expired activation token is
// outstanding.
func (a *Account) HasPendingActivation(now time.Time) bool {
	return a.ActivationToken != nil &&
		a.ActivationExpiresAt != nil &&
		now.Before(*a.ActivationExpiresAt)
}

// HasPendingReset reports whether a non-expired reset token is outstanding.
func (a *Account) HasPendingReset(now time.Time) bool {
	return a.ResetToken != nil &&
		a.ResetExpiresAt != nil &&
		now.Before(*a.ResetExpiresAt)
}

// SetActivationToken attaches a pending activation token to the record.
func (a *Account) SetActivationToken(token IssuedToken) {
	value := token.Value
	expires := token.ExpiresAt
	a.ActivationToken = &value
	a.ActivationExpiresAt = &expires
}

// statusAuthError maps a status to the authentication failure it implies, or
// nil when the status permits login.
func statusAuthError(status AccountStatus) error {
	switch status {
	case AccountStatusPending:
		return ErrAccountNotActive
	case AccountStatusSuspended, AccountStatusArchived:
		return ErrAccountSuspended
	default:
		return nil
	}
}
