package accounts

import (
	"context"
	"reflect"
	"time"
)

// Auther composes an IdentityProvider and a SessionBinder into the
// Authenticator contract. Login verifies credentials and establishes a
// session; Logout destroys it. Outcomes are reported to the ActivitySink.
type Auther struct {
	provider     IdentityProvider
	sessions     SessionBinder
	logger       Logger
	activitySink ActivitySink
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, sessions SessionBinder) *Auther {
	return &Auther{
		provider:     provider,
		sessions:     sessions,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

func (s *Auther) Login(ctx context.Context, email, password string, role AccountRole) (Session, error) {
	var err error
	var identity Identity

	email = NormalizeEmail(email)

	if identity, err = s.provider.VerifyIdentity(ctx, email, password, role); err != nil {
		s.logger.Error("Login verify identity error: %v", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"email": email,
			"role":  role,
			"error": err.Error(),
		})
		return nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"email": email,
			"role":  role,
			"error": ErrInvalidCredentials.Error(),
		})
		return nil, ErrInvalidCredentials
	}

	session, err := s.sessions.Establish(ctx, identity.ID(), identity.Role())
	if err != nil {
		s.logger.Error("Login failed to establish session: %v", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"email": email,
			"role":  role,
			"error": err.Error(),
		})
		return nil, err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"email": email,
		"role":  role,
	})

	return session, nil
}

func (s *Auther) Logout(ctx context.Context, handle string) error {
	session, err := s.sessions.Resolve(ctx, handle)
	if err != nil {
		s.logger.Debug("Logout resolve session: %v", err)
		return err
	}

	if err := s.sessions.Destroy(ctx, handle); err != nil {
		s.logger.Error("Logout destroy session: %v", err)
		return err
	}

	s.emitAuthEvent(ctx, ActivityEventLogout, ActorRef{ID: session.GetAccountID(), Type: "account"}, session.GetAccountID(), nil)

	return nil
}

func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	identity, err := s.provider.FindIdentityByIdentifier(ctx, session.GetAccountID())
	if err != nil {
		s.logger.Error("IdentityFromSession find identity: %v", err)
		return nil, err
	}

	return identity, nil
}

// SessionFromHandle resolves the raw session handle into a Session.
func (s *Auther) SessionFromHandle(ctx context.Context, handle string) (Session, error) {
	session, err := s.sessions.Resolve(ctx, handle)
	if err != nil {
		s.logger.Error("SessionFromHandle resolution failed: %v", err)
		return nil, err
	}
	return session, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, accountID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		AccountID: accountID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "account",
	}
}
