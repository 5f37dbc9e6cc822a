package accounts

import "context"

// Identity holds the attributes of a verified identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() AccountRole
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, email, password string, role AccountRole) (Session, error)
	Logout(ctx context.Context, handle string) error
	IdentityFromSession(ctx context.Context, session Session) (Identity, error)
}

// IdentityProvider ensures we have a store to retrieve and verify identities.
// VerifyIdentity must fail identically for unknown emails and wrong passwords.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string, role AccountRole) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}
