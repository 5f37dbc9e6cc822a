package accounts

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// TokenPurpose scopes a token to the flow that issued it. A token stored in
// the activation column can never satisfy a reset lookup and vice versa.
type TokenPurpose = string

const (
	// TokenPurposeActivation marks tokens proving mailbox control at signup.
	TokenPurposeActivation TokenPurpose = "activation"
	// TokenPurposeReset marks password reset tokens.
	TokenPurposeReset TokenPurpose = "password_reset"
)

// tokenEntropyBytes yields 256 bits of entropy per token, hex encoded to 64
// characters.
const tokenEntropyBytes = 32

// IssuedToken is a freshly minted single-use token.
type IssuedToken struct {
	Value     string
	Purpose   TokenPurpose
	ExpiresAt time.Time
}

// TokenIssuer mints unguessable, time-limited tokens from a cryptographically
// secure source. It has no global counter and no sequential component.
type TokenIssuer struct {
	ttl    time.Duration
	now    func() time.Time
	source io.Reader
}

// NewTokenIssuer returns an issuer whose tokens expire ttl after issuance.
func NewTokenIssuer(ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TokenIssuer{
		ttl:    ttl,
		now:    time.Now,
		source: rand.Reader,
	}
}

// WithClock injects a custom clock (useful for tests).
func (t *TokenIssuer) WithClock(clock func() time.Time) *TokenIssuer {
	if clock != nil {
		t.now = clock
	}
	return t
}

// WithRandomSource overrides the entropy source (useful for tests only).
func (t *TokenIssuer) WithRandomSource(source io.Reader) *TokenIssuer {
	if source != nil {
		t.source = source
	}
	return t
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration {
	return t.ttl
}

// Issue mints a token for the given purpose.
func (t *TokenIssuer) Issue(purpose TokenPurpose) (IssuedToken, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := io.ReadFull(t.source, buf); err != nil {
		return IssuedToken{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read token entropy")
	}

	return IssuedToken{
		Value:     hex.EncodeToString(buf),
		Purpose:   purpose,
		ExpiresAt: t.now().Add(t.ttl),
	}, nil
}
