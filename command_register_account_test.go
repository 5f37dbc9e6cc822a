package accounts_test

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func registrationConfig() *accounts.LifecycleConfig {
	cfg := accounts.DefaultConfig()
	cfg.EmailAllowList = []string{"example.com", "gmail.com"}
	return cfg
}

func TestRegisterAccountHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("Registers a pending account with an activation token", func(t *testing.T) {
		store := &MockAccounts{}
		notifier := new(MockNotifier)
		sink := &capturingSink{}

		var stored *accounts.Account
		store.On("RegisterTx", mock.Anything, mock.Anything, mock.AnythingOfType("*accounts.Account")).
			Run(func(args mock.Arguments) {
				stored = args.Get(2).(*accounts.Account)
			}).
			Return(nil, nil).Once()

		handler := accounts.NewRegisterAccountHandler(NewMockRepositoryManager(store), registrationConfig()).
			WithNotifier(notifier).
			WithActivitySink(sink)

		notifier.On("Send", mock.Anything, "pepe@example.com", mock.Anything, mock.Anything).
			Return(nil).Once()

		var resp *accounts.RegisterAccountResponse
		err := handler.Execute(ctx, accounts.RegisterAccountMessage{
			Email:    "Pepe@Example.com",
			Password: "Str0ng!pass",
			Role:     accounts.RoleUser,
			OnResponse: func(r *accounts.RegisterAccountResponse) {
				resp = r
			},
		})
		require.NoError(t, err)

		require.NotNil(t, stored)
		assert.Equal(t, "pepe@example.com", stored.Email)
		assert.Equal(t, "pepe", stored.Username)
		assert.Equal(t, accounts.AccountStatusPending, stored.Status)
		require.NotNil(t, stored.ActivationToken)
		assert.Len(t, *stored.ActivationToken, 64)
		require.NotNil(t, stored.ActivationExpiresAt)
		assert.NotEmpty(t, stored.PasswordHash)
		assert.NotEqual(t, "Str0ng!pass", stored.PasswordHash)

		require.NotNil(t, resp)
		assert.True(t, resp.Success)
		assert.Same(t, stored, resp.Account)

		require.Len(t, sink.events, 1)
		assert.Equal(t, accounts.ActivityEventAccountRegistered, sink.events[0].EventType)

		store.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("Activation disabled creates an active account and sends no mail", func(t *testing.T) {
		store := &MockAccounts{}
		notifier := new(MockNotifier)

		cfg := registrationConfig()
		cfg.ActivationEnabled = false

		var stored *accounts.Account
		store.On("RegisterTx", mock.Anything, mock.Anything, mock.AnythingOfType("*accounts.Account")).
			Run(func(args mock.Arguments) {
				stored = args.Get(2).(*accounts.Account)
			}).
			Return(nil, nil).Once()

		handler := accounts.NewRegisterAccountHandler(NewMockRepositoryManager(store), cfg).
			WithNotifier(notifier)

		err := handler.Execute(ctx, accounts.RegisterAccountMessage{
			Email:    "pepe@example.com",
			Password: "Str0ng!pass",
		})
		require.NoError(t, err)

		require.NotNil(t, stored)
		assert.Equal(t, accounts.AccountStatusActive, stored.Status)
		assert.Nil(t, stored.ActivationToken)

		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("Duplicate email for the role", func(t *testing.T) {
		store := &MockAccounts{}

		store.On("RegisterTx", mock.Anything, mock.Anything, mock.AnythingOfType("*accounts.Account")).
			Return(nil, accounts.ErrDuplicateAccount).Once()

		handler := accounts.NewRegisterAccountHandler(NewMockRepositoryManager(store), registrationConfig())

		err := handler.Execute(ctx, accounts.RegisterAccountMessage{
			Email:    "pepe@example.com",
			Password: "Str0ng!pass",
		})
		assert.ErrorIs(t, err, accounts.ErrDuplicateAccount)

		store.AssertExpectations(t)
	})

	t.Run("Disallowed email domain never reaches the store", func(t *testing.T) {
		store := &MockAccounts{}

		handler := accounts.NewRegisterAccountHandler(NewMockRepositoryManager(store), registrationConfig())

		err := handler.Execute(ctx, accounts.RegisterAccountMessage{
			Email:    "pepe@forbidden.org",
			Password: "Str0ng!pass",
		})
		require.Error(t, err)
		assert.True(t, accounts.IsValidationError(err))

		store.AssertNotCalled(t, "RegisterTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown role never reaches the store", func(t *testing.T) {
		store := &MockAccounts{}

		handler := accounts.NewRegisterAccountHandler(NewMockRepositoryManager(store), registrationConfig())

		err := handler.Execute(ctx, accounts.RegisterAccountMessage{
			Email:    "pepe@example.com",
			Password: "Str0ng!pass",
			Role:     "superadmin",
		})
		require.Error(t, err)
		assert.True(t, accounts.IsValidationError(err))

		store.AssertNotCalled(t, "RegisterTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Empty role defaults to user", func(t *testing.T) {
		store := &MockAccounts{}

		var stored *accounts.Account
		store.On("RegisterTx", mock.Anything, mock.Anything, mock.AnythingOfType("*accounts.Account")).
			Run(func(args mock.Arguments) {
				stored = args.Get(2).(*accounts.Account)
			}).
			Return(nil, nil).Once()

		cfg := registrationConfig()
		cfg.ActivationEnabled = false

		handler := accounts.NewRegisterAccountHandler(NewMockRepositoryManager(store), cfg)

		err := handler.Execute(ctx, accounts.RegisterAccountMessage{
			Email:    "pepe@example.com",
			Password: "Str0ng!pass",
		})
		require.NoError(t, err)

		require.NotNil(t, stored)
		assert.Equal(t, accounts.RoleUser, stored.Role)

		store.AssertExpectations(t)
	})

	t.Run("Password failing policy never reaches the store", func(t *testing.T) {
		store := &MockAccounts{}

		handler := accounts.NewRegisterAccountHandler(NewMockRepositoryManager(store), registrationConfig())

		err := handler.Execute(ctx, accounts.RegisterAccountMessage{
			Email:    "pepe@example.com",
			Password: "weak",
		})
		require.Error(t, err)
		assert.True(t, accounts.IsValidationError(err))

		store.AssertNotCalled(t, "RegisterTx", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Password containing the defaulted username is rejected", func(t *testing.T) {
		store := &MockAccounts{}

		handler := accounts.NewRegisterAccountHandler(NewMockRepositoryManager(store), registrationConfig())

		// username defaults to "pepe", the email local part
		err := handler.Execute(ctx, accounts.RegisterAccountMessage{
			Email:    "pepe@example.com",
			Password: "Str0ng!pepe",
		})
		require.Error(t, err)
		assert.True(t, accounts.IsValidationError(err))
	})

	t.Run("Delivery failure keeps the account pending", func(t *testing.T) {
		store := &MockAccounts{}
		notifier := new(MockNotifier)
		sink := &capturingSink{}

		store.On("RegisterTx", mock.Anything, mock.Anything, mock.AnythingOfType("*accounts.Account")).
			Return(&accounts.Account{Status: accounts.AccountStatusPending}, nil).Once()
		notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(assert.AnError).Once()

		handler := accounts.NewRegisterAccountHandler(NewMockRepositoryManager(store), registrationConfig()).
			WithNotifier(notifier).
			WithActivitySink(sink)

		err := handler.Execute(ctx, accounts.RegisterAccountMessage{
			Email:    "pepe@example.com",
			Password: "Str0ng!pass",
		})
		require.NoError(t, err)

		var types []accounts.ActivityEventType
		for _, evt := range sink.events {
			types = append(types, evt.EventType)
		}
		assert.Contains(t, types, accounts.ActivityEventDeliveryFailure)
		assert.Contains(t, types, accounts.ActivityEventAccountRegistered)

		store.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("Activation mail carries the token", func(t *testing.T) {
		store := &MockAccounts{}
		notifier := new(MockNotifier)

		var stored *accounts.Account
		store.On("RegisterTx", mock.Anything, mock.Anything, mock.AnythingOfType("*accounts.Account")).
			Run(func(args mock.Arguments) {
				stored = args.Get(2).(*accounts.Account)
			}).
			Return(nil, nil).Once()

		var body string
		notifier.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) {
				body = args.String(3)
			}).
			Return(nil).Once()

		handler := accounts.NewRegisterAccountHandler(NewMockRepositoryManager(store), registrationConfig()).
			WithNotifier(notifier)

		err := handler.Execute(ctx, accounts.RegisterAccountMessage{
			Email:    "pepe@example.com",
			Password: "Str0ng!pass",
		})
		require.NoError(t, err)

		require.NotNil(t, stored.ActivationToken)
		assert.True(t, strings.Contains(body, *stored.ActivationToken))
	})
}
