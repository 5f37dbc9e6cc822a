package accounts

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Session holds attributes that are part of an auth session
type Session interface {
	GetAccountID() string
	GetAccountUUID() (uuid.UUID, error)
	GetRole() AccountRole
	GetHandle() string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetExpiresAt() *time.Time
}

// SessionBinder establishes and destroys sessions for verified identities.
// The core never touches request-scoped state; it only holds this contract.
type SessionBinder interface {
	Establish(ctx context.Context, accountID string, role AccountRole) (Session, error)
	Resolve(ctx context.Context, handle string) (Session, error)
	Destroy(ctx context.Context, handle string) error
}

var _ Session = (*SessionObject)(nil)

type SessionObject struct {
	AccountID string      `json:"account_id,omitempty"`
	Role      AccountRole `json:"role,omitempty"`
	Handle    string      `json:"handle,omitempty"`
	Issuer    string      `json:"issuer,omitempty"`
	IssuedAt  *time.Time  `json:"issued_at,omitempty"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

func (s *SessionObject) GetAccountID() string {
	return s.AccountID
}

func (s *SessionObject) GetAccountUUID() (uuid.UUID, error) {
	return uuid.Parse(s.AccountID)
}

func (s *SessionObject) GetRole() AccountRole {
	return s.Role
}

func (s *SessionObject) GetHandle() string {
	return s.Handle
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetExpiresAt() *time.Time {
	return s.ExpiresAt
}

// HasAccountUUID reports whether Session.GetAccountUUID will succeed.
func HasAccountUUID(session Session) bool {
	if session == nil {
		return false
	}
	_, err := session.GetAccountUUID()
	return err == nil
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Role AccountRole `json:"role,omitempty"`
}

// JWTSessionBinder is the default SessionBinder: handles are signed HS256
// tokens and destroy is backed by an in-process revocation list keyed by jti.
// Deployments with multiple processes should implement SessionBinder over a
// shared store instead.
type JWTSessionBinder struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	now        func() time.Time
	logger     Logger

	mu      sync.Mutex
	revoked map[string]time.Time
}

var _ SessionBinder = (*JWTSessionBinder)(nil)

// NewJWTSessionBinder builds a binder from the shared Config.
func NewJWTSessionBinder(opts Config) *JWTSessionBinder {
	return &JWTSessionBinder{
		signingKey: []byte(opts.GetSessionSigningKey()),
		ttl:        opts.GetSessionTTL(),
		issuer:     opts.GetSessionIssuer(),
		now:        time.Now,
		logger:     defLogger{},
		revoked:    map[string]time.Time{},
	}
}

func (b *JWTSessionBinder) WithLogger(logger Logger) *JWTSessionBinder {
	if logger != nil {
		b.logger = logger
	}
	return b
}

// WithClock injects a custom clock (useful for tests).
func (b *JWTSessionBinder) WithClock(clock func() time.Time) *JWTSessionBinder {
	if clock != nil {
		b.now = clock
	}
	return b
}

func (b *JWTSessionBinder) Establish(ctx context.Context, accountID string, role AccountRole) (Session, error) {
	now := b.now()
	expiresAt := now.Add(b.ttl)

	claims := &sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    b.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	handle, err := token.SignedString(b.signingKey)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	return &SessionObject{
		AccountID: accountID,
		Role:      role,
		Handle:    handle,
		Issuer:    b.issuer,
		IssuedAt:  &now,
		ExpiresAt: &expiresAt,
	}, nil
}

func (b *JWTSessionBinder) Resolve(ctx context.Context, handle string) (Session, error) {
	claims, err := b.parse(handle)
	if err != nil {
		b.logger.Debug("session resolve failed: %v", err)
		return nil, ErrUnableToResolveSession
	}

	if b.isRevoked(claims.ID) {
		return nil, ErrUnableToResolveSession
	}

	session := &SessionObject{
		AccountID: claims.Subject,
		Role:      claims.Role,
		Handle:    handle,
		Issuer:    claims.Issuer,
	}

	if claims.IssuedAt != nil {
		issuedAt := claims.IssuedAt.Time
		session.IssuedAt = &issuedAt
	}

	if claims.ExpiresAt != nil {
		expiresAt := claims.ExpiresAt.Time
		session.ExpiresAt = &expiresAt
	}

	return session, nil
}

func (b *JWTSessionBinder) Destroy(ctx context.Context, handle string) error {
	claims, err := b.parse(handle)
	if err != nil {
		return ErrUnableToResolveSession
	}

	until := b.now().Add(b.ttl)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.purgeLocked()
	b.revoked[claims.ID] = until

	return nil
}

func (b *JWTSessionBinder) parse(handle string) (*sessionClaims, error) {
	claims := &sessionClaims{}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(b.now),
	}
	if b.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(b.issuer))
	}

	token, err := jwt.ParseWithClaims(handle, claims, func(t *jwt.Token) (any, error) {
		return b.signingKey, nil
	}, parserOptions...)

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, ErrUnableToResolveSession
	}

	return claims, nil
}

func (b *JWTSessionBinder) isRevoked(jti string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.purgeLocked()
	_, revoked := b.revoked[jti]
	return revoked
}

// purgeLocked drops revocation entries for tokens that expired anyway.
// Callers must hold b.mu.
func (b *JWTSessionBinder) purgeLocked() {
	now := b.now()
	for jti, until := range b.revoked {
		if now.After(until) {
			delete(b.revoked, jti)
		}
	}
}
