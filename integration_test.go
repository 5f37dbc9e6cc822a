package accounts_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingSink struct {
	events []accounts.ActivityEvent
}

func (c *capturingSink) Record(ctx context.Context, evt accounts.ActivityEvent) error {
	c.events = append(c.events, evt)
	return nil
}

// TestLifecycleIntegration walks one account through the whole lifecycle over
// a real sqlite-backed repository: registration, activation, login, password
// reset, suspension, reinstatement, and logout, asserting the activity trail
// in order.
func TestLifecycleIntegration(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	manager := accounts.NewRepositoryManager(db)
	sink := &capturingSink{}

	config := &accounts.LifecycleConfig{
		ActivationEnabled: true,
		EmailAllowList:    []string{"example.com"},
		PasswordPolicy:    accounts.DefaultPasswordPolicy(),
		ActivationURL:     "https://app.example.com/activate",
		ResetURL:          "https://app.example.com/password-reset",
		SessionSigningKey: "integration-signing-key",
	}

	var mails []string
	capture := accounts.NotifierFunc(func(ctx context.Context, to, subject, body string) error {
		mails = append(mails, body)
		return nil
	})

	register := accounts.NewRegisterAccountHandler(manager, config).
		WithActivitySink(sink).
		WithNotifier(capture)

	var registered *accounts.RegisterAccountResponse
	err := register.Execute(ctx, accounts.RegisterAccountMessage{
		Email:    "Pepe@Example.com",
		Password: "Sup3r!secret",
		OnResponse: func(resp *accounts.RegisterAccountResponse) {
			registered = resp
		},
	})
	require.NoError(t, err)
	require.NotNil(t, registered)
	require.Equal(t, accounts.AccountStatusPending, registered.Account.Status)

	stored, err := manager.Accounts().GetByEmailAndRole(ctx, "pepe@example.com", accounts.RoleUser)
	require.NoError(t, err)
	require.NotNil(t, stored.ActivationToken)
	require.Len(t, mails, 1)
	assert.Contains(t, mails[0], *stored.ActivationToken)

	provider := accounts.NewAccountProvider(manager.Accounts())
	binder := accounts.NewJWTSessionBinder(config)
	auther := accounts.NewAuthenticator(provider, binder).WithActivitySink(sink)

	// the pending account authenticates the password but cannot log in
	_, err = auther.Login(ctx, "pepe@example.com", "Sup3r!secret", accounts.RoleUser)
	require.ErrorIs(t, err, accounts.ErrAccountNotActive)

	activate := accounts.NewActivateAccountHandler(manager).WithActivitySink(sink)
	err = activate.Execute(ctx, accounts.ActivateAccountMessage{Token: *stored.ActivationToken})
	require.NoError(t, err)

	session, err := auther.Login(ctx, "pepe@example.com", "Sup3r!secret", accounts.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, stored.ID.String(), session.GetAccountID())

	identity, err := auther.IdentityFromSession(ctx, session)
	require.NoError(t, err)
	assert.Equal(t, "pepe@example.com", identity.Email())

	resetInit := accounts.NewInitializePasswordResetHandler(manager, config).
		WithActivitySink(sink).
		WithNotifier(capture)

	err = resetInit.Execute(ctx, accounts.InitializePasswordResetMessage{Email: "pepe@example.com"})
	require.NoError(t, err)

	stored, err = manager.Accounts().GetByEmailAndRole(ctx, "pepe@example.com", accounts.RoleUser)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetToken)
	require.Len(t, mails, 2)
	assert.Contains(t, mails[1], *stored.ResetToken)

	resetFinalize := accounts.NewFinalizePasswordResetHandler(manager, config).
		WithActivitySink(sink)

	err = resetFinalize.Execute(ctx, accounts.FinalizePasswordResetMessage{
		Token:    *stored.ResetToken,
		Password: "R3set!secret",
	})
	require.NoError(t, err)

	_, err = auther.Login(ctx, "pepe@example.com", "Sup3r!secret", accounts.RoleUser)
	require.ErrorIs(t, err, accounts.ErrInvalidCredentials)

	session, err = auther.Login(ctx, "pepe@example.com", "R3set!secret", accounts.RoleUser)
	require.NoError(t, err)

	stateMachine := accounts.NewAccountStateMachine(
		manager.Accounts(),
		accounts.WithStateMachineActivitySink(sink),
	)

	stored, err = manager.Accounts().GetByEmailAndRole(ctx, "pepe@example.com", accounts.RoleUser)
	require.NoError(t, err)

	suspended, err := stateMachine.Transition(ctx, accounts.ActorRef{ID: "system"}, stored, accounts.AccountStatusSuspended)
	require.NoError(t, err)
	require.Equal(t, accounts.AccountStatusSuspended, suspended.Status)

	_, err = auther.Login(ctx, "pepe@example.com", "R3set!secret", accounts.RoleUser)
	require.ErrorIs(t, err, accounts.ErrAccountSuspended)

	_, err = stateMachine.Transition(ctx, accounts.ActorRef{ID: "system"}, suspended, accounts.AccountStatusActive)
	require.NoError(t, err)

	session, err = auther.Login(ctx, "pepe@example.com", "R3set!secret", accounts.RoleUser)
	require.NoError(t, err)

	require.NoError(t, auther.Logout(ctx, session.GetHandle()))
	_, err = auther.SessionFromHandle(ctx, session.GetHandle())
	require.Error(t, err)

	types := make([]accounts.ActivityEventType, 0, len(sink.events))
	for _, evt := range sink.events {
		types = append(types, evt.EventType)
	}

	assert.Equal(t, []accounts.ActivityEventType{
		accounts.ActivityEventAccountRegistered,
		accounts.ActivityEventLoginFailure,
		accounts.ActivityEventAccountActivated,
		accounts.ActivityEventLoginSuccess,
		accounts.ActivityEventPasswordResetRequested,
		accounts.ActivityEventPasswordResetSuccess,
		accounts.ActivityEventLoginFailure,
		accounts.ActivityEventLoginSuccess,
		accounts.ActivityEventAccountStatusChanged,
		accounts.ActivityEventLoginFailure,
		accounts.ActivityEventAccountStatusChanged,
		accounts.ActivityEventLoginSuccess,
		accounts.ActivityEventLogout,
	}, types)
}

// TestResetRequestIntegrationForUnknownEmail pins the no-oracle behavior end
/// to end: a reset request for an address that was never registered reports
// success, sends nothing, and records nothing.
func TestResetRequestIntegrationForUnknownEmail(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	manager := accounts.NewRepositoryManager(db)
	sink := &capturingSink{}

	cfg := accounts.DefaultConfig()
	cfg.EmailAllowList = []string{"example.com"}

	var mails []string
	capture := accounts.NotifierFunc(func(ctx context.Context, to, subject, body string) error {
		mails = append(mails, body)
		return nil
	})

	handler := accounts.NewInitializePasswordResetHandler(manager, cfg).
		WithActivitySink(sink).
		WithNotifier(capture)

	var resp *accounts.InitializePasswordResetResponse
	err := handler.Execute(ctx, accounts.InitializePasswordResetMessage{
		Email: "nobody@example.com",
		OnResponse: func(r *accounts.InitializePasswordResetResponse) {
			resp = r
		},
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Success)
	assert.Empty(t, mails)
	assert.Empty(t, sink.events)
}
