package accounts_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-accounts"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockAccountTracker implements accounts.AccountTracker
type MockAccountTracker struct {
	mock.Mock
}

func (m *MockAccountTracker) GetByEmailAndRole(ctx context.Context, email string, role accounts.AccountRole) (*accounts.Account, error) {
	args := m.Called(ctx, email, role)
	var account *accounts.Account
	if v := args.Get(0); v != nil {
		account = v.(*accounts.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccountTracker) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*accounts.Account, error) {
	args := m.Called(ctx, identifier)
	var account *accounts.Account
	if v := args.Get(0); v != nil {
		account = v.(*accounts.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccountTracker) TrackAttemptedLogin(ctx context.Context, account *accounts.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountTracker) TrackSuccessfulLogin(ctx context.Context, account *accounts.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockStatusStore implements accounts.AccountStatusStore
type MockStatusStore struct {
	mock.Mock
}

func (m *MockStatusStore) UpdateStatus(ctx context.Context, id uuid.UUID, status accounts.AccountStatus, opts ...accounts.StatusUpdateOption) (*accounts.Account, error) {
	args := m.Called(ctx, id, status, opts)
	var account *accounts.Account
	if v := args.Get(0); v != nil {
		account = v.(*accounts.Account)
	}
	return account, args.Error(1)
}

// MockAccounts covers the store surface the command handlers exercise. The
// embedded interface satisfies the rest of the contract; calling an
// unexpected method panics, which is what a test should do anyway.
type MockAccounts struct {
	accounts.Accounts
	mock.Mock
}

// RegisterTx echoes the submitted record when the stub does not supply one,
// matching the store contract of returning the persisted row.
func (m *MockAccounts) RegisterTx(ctx context.Context, tx bun.IDB, account *accounts.Account) (*accounts.Account, error) {
	args := m.Called(ctx, tx, account)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if v := args.Get(0); v != nil {
		return v.(*accounts.Account), nil
	}
	return account, nil
}

func (m *MockAccounts) GetByEmailAndRoleTx(ctx context.Context, tx bun.IDB, email string, role accounts.AccountRole) (*accounts.Account, error) {
	args := m.Called(ctx, tx, email, role)
	var account *accounts.Account
	if v := args.Get(0); v != nil {
		account = v.(*accounts.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccounts) FindByResetTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*accounts.Account, error) {
	args := m.Called(ctx, tx, token, now)
	var account *accounts.Account
	if v := args.Get(0); v != nil {
		account = v.(*accounts.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccounts) StoreResetTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token accounts.IssuedToken) (*accounts.Account, error) {
	args := m.Called(ctx, tx, id, token)
	var account *accounts.Account
	if v := args.Get(0); v != nil {
		account = v.(*accounts.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccounts) ConsumeActivationTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*accounts.Account, error) {
	args := m.Called(ctx, tx, token, now)
	var account *accounts.Account
	if v := args.Get(0); v != nil {
		account = v.(*accounts.Account)
	}
	return account, args.Error(1)
}

func (m *MockAccounts) ConsumeResetTokenTx(ctx context.Context, tx bun.IDB, token, passwordHash string, now time.Time) (*accounts.Account, error) {
	args := m.Called(ctx, tx, token, passwordHash, now)
	var account *accounts.Account
	if v := args.Get(0); v != nil {
		account = v.(*accounts.Account)
	}
	return account, args.Error(1)
}

// MockRepositoryManager executes transaction closures in place so handler
// logic can run against MockAccounts without a database.
type MockRepositoryManager struct {
	accounts accounts.Accounts
}

func NewMockRepositoryManager(store accounts.Accounts) *MockRepositoryManager {
	return &MockRepositoryManager{accounts: store}
}

func (m *MockRepositoryManager) Validate() error { return nil }

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Accounts() accounts.Accounts {
	return m.accounts
}

// MockIdentityProvider implements accounts.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, email, password string, role accounts.AccountRole) (accounts.Identity, error) {
	args := m.Called(ctx, email, password, role)
	var identity accounts.Identity
	if v := args.Get(0); v != nil {
		identity = v.(accounts.Identity)
	}
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (accounts.Identity, error) {
	args := m.Called(ctx, identifier)
	var identity accounts.Identity
	if v := args.Get(0); v != nil {
		identity = v.(accounts.Identity)
	}
	return identity, args.Error(1)
}

// MockSessionBinder implements accounts.SessionBinder
type MockSessionBinder struct {
	mock.Mock
}

func (m *MockSessionBinder) Establish(ctx context.Context, accountID string, role accounts.AccountRole) (accounts.Session, error) {
	args := m.Called(ctx, accountID, role)
	var session accounts.Session
	if v := args.Get(0); v != nil {
		session = v.(accounts.Session)
	}
	return session, args.Error(1)
}

func (m *MockSessionBinder) Resolve(ctx context.Context, handle string) (accounts.Session, error) {
	args := m.Called(ctx, handle)
	var session accounts.Session
	if v := args.Get(0); v != nil {
		session = v.(accounts.Session)
	}
	return session, args.Error(1)
}

func (m *MockSessionBinder) Destroy(ctx context.Context, handle string) error {
	args := m.Called(ctx, handle)
	return args.Error(0)
}

// MockNotifier implements accounts.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

// TestIdentity is a plain Identity value for wiring into mocks.
type TestIdentity struct {
	id       string
	username string
	email    string
	role     accounts.AccountRole
}

func (t TestIdentity) ID() string                 { return t.id }
func (t TestIdentity) Username() string           { return t.username }
func (t TestIdentity) Email() string              { return t.email }
func (t TestIdentity) Role() accounts.AccountRole { return t.role }
