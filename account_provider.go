package accounts

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// AccountTracker is the store surface the provider needs to verify identities
type AccountTracker interface {
	GetByEmailAndRole(ctx context.Context, email string, role AccountRole) (*Account, error)
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error)
	TrackAttemptedLogin(ctx context.Context, account *Account) error
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
}

// MaxLoginAttempts is the maximum number of attempts an account gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// AccountProvider resolves and verifies identities against the account store
type AccountProvider struct {
	store     AccountTracker
	Validator func(*Account) error
	logger    Logger
}

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(store AccountTracker) *AccountProvider {
	return &AccountProvider{
		store:     store,
		logger:    defLogger{},
		Validator: defaultAccountValidator,
	}
}

func (p *AccountProvider) WithLogger(l Logger) *AccountProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

func (p *AccountProvider) validate(account *Account) error {
	if p.Validator != nil {
		return p.Validator(account)
	}
	return defaultAccountValidator(account)
}

// VerifyIdentity will find the account, compare the password, and return the
// identity. The status gate runs after the password check so only a caller
// that already holds the valid password can learn the account is not active.
func (p AccountProvider) VerifyIdentity(ctx context.Context, email, password string, role AccountRole) (Identity, error) {
	account, err := p.store.GetByEmailAndRole(ctx, email, role)
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
			// same failure as a wrong password: no account-existence oracle
			return nil, ErrInvalidCredentials
		}
		p.logger.Error("account lookup failed during verification: %v", err)
		return nil, ErrStoreUnavailable
	}

	if account == nil {
		return nil, ErrInvalidCredentials
	}

	if account.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*account.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			account.LoginAttempts = 0
		}
	}

	//if we have too many attempts in the given window, cool off!
	if account.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		// We have to increment the login_attempts counter and login_attempt_at
		if err2 := p.store.TrackAttemptedLogin(ctx, account); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}

		return nil, ErrInvalidCredentials
	}

	account.EnsureStatus()
	if err := statusAuthError(account.Status); err != nil {
		return nil, err
	}

	// reset the login_attempts counter and login_attempt_at
	if err := p.store.TrackSuccessfulLogin(ctx, account); err != nil {
		p.logger.Error("failed to track successful login: %v", err)
	}

	if err := p.validate(account); err != nil {
		return nil, err
	}

	return identityFromAccount(account), nil
}

func (p AccountProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	account, err := p.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		p.logger.Error("account lookup failed for identifier %s: %v", identifier, err)
		return nil, ErrStoreUnavailable
	}

	if account == nil {
		return nil, ErrInvalidCredentials
	}

	account.EnsureStatus()
	if err := statusAuthError(account.Status); err != nil {
		return nil, err
	}

	if err := p.validate(account); err != nil {
		return nil, err
	}

	return identityFromAccount(account), nil
}

type accountIdentity struct {
	id       string
	username string
	email    string
	role     AccountRole
	status   AccountStatus
}

func identityFromAccount(account *Account) accountIdentity {
	return accountIdentity{
		id:       account.ID.String(),
		email:    account.Email,
		username: account.Username,
		role:     account.Role,
		status:   account.Status,
	}
}

func (a accountIdentity) ID() string {
	return a.id
}

func (a accountIdentity) Username() string {
	return a.username
}

func (a accountIdentity) Email() string {
	return a.email
}

func (a accountIdentity) Role() AccountRole {
	return a.role
}

func (a accountIdentity) Status() AccountStatus {
	if a.status == "" {
		return AccountStatusActive
	}
	return a.status
}

var _ Identity = accountIdentity{}

var (
	_ IdentityProvider = (*AccountProvider)(nil)
	_ AccountTracker   = (*accounts)(nil)
)

func defaultAccountValidator(a *Account) error {
	switch a.Role {
	case RoleUser, RoleAdmin:
		return nil
	default:
		return errors.New("account has an unknown or invalid role", errors.CategoryAuth).
			WithTextCode("INVALID_ROLE").
			WithMetadata(map[string]any{"role": a.Role, "account_id": a.ID.String()})
	}
}
