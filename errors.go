package accounts

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// TextCodeInvalidCreds identifies credential failures. Unknown email and
	// wrong password share this code on purpose: callers must not be able to
	// tell them apart.
	TextCodeInvalidCreds = "INVALID_CREDENTIALS"
	// TextCodeAccountNotActive identifies logins blocked on a pending account.
	TextCodeAccountNotActive = "ACCOUNT_NOT_ACTIVE"
	// TextCodeAccountSuspended identifies logins blocked on a suspended account.
	TextCodeAccountSuspended = "ACCOUNT_SUSPENDED"
	// TextCodeInvalidToken identifies activation/reset token failures. Missing
	// and expired tokens share this code so the API is not a token oracle.
	TextCodeInvalidToken = "INVALID_OR_EXPIRED_TOKEN"
	// TextCodeDuplicateAccount identifies unique (email, role) conflicts.
	TextCodeDuplicateAccount = "DUPLICATE_ACCOUNT"
	// TextCodeTooManyAttempts identifies throttled logins.
	TextCodeTooManyAttempts = "TOO_MANY_LOGIN_ATTEMPTS"
	// TextCodeInvalidInput identifies validation failures on caller input.
	TextCodeInvalidInput = "INVALID_INPUT"
	// TextCodeEmptyPassword identifies empty plaintext passed to the hasher.
	TextCodeEmptyPassword = "EMPTY_PASSWORD"
	// TextCodePasswordTooLong identifies plaintext beyond the bcrypt bound.
	TextCodePasswordTooLong = "PASSWORD_TOO_LONG"
	// TextCodeStoreUnavailable identifies store collaborator failures.
	TextCodeStoreUnavailable = "STORE_UNAVAILABLE"
	// TextCodeSessionNotFound identifies unresolvable session handles.
	TextCodeSessionNotFound = "SESSION_NOT_FOUND"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords
// alike.
var ErrInvalidCredentials = goerrors.New("the credentials provided are invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountNotActive is returned when the password verified but the account
// has not completed activation.
var ErrAccountNotActive = goerrors.New("account is pending activation", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountNotActive).
	WithCode(goerrors.CodeForbidden)

// ErrAccountSuspended is returned when the password verified but the account
// is suspended.
var ErrAccountSuspended = goerrors.New("account is suspended", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountSuspended).
	WithCode(goerrors.CodeForbidden)

// ErrInvalidOrExpiredToken conflates "token not found" and "token expired".
var ErrInvalidOrExpiredToken = goerrors.New("invalid or expired token", goerrors.CategoryNotFound).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeNotFound)

// ErrDuplicateAccount is returned when an email is already registered for the
// requested role.
var ErrDuplicateAccount = goerrors.New("an account with that email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateAccount).
	WithCode(goerrors.CodeConflict)

// ErrTooManyLoginAttempts is returned when the attempt throttle kicks in.
var ErrTooManyLoginAttempts = goerrors.New("too many login attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrNoEmptyPassword rejects empty plaintext before it reaches bcrypt.
var ErrNoEmptyPassword = goerrors.New("password must not be empty", goerrors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword)

// ErrPasswordTooLong rejects plaintext beyond the bcrypt input bound.
var ErrPasswordTooLong = goerrors.New("password exceeds maximum length", goerrors.CategoryValidation).
	WithTextCode(TextCodePasswordTooLong)

// ErrStoreUnavailable is the generic failure surfaced when the account store
// misbehaves; storage internals never leak to callers.
var ErrStoreUnavailable = goerrors.New("account store unavailable", goerrors.CategoryInternal).
	WithTextCode(TextCodeStoreUnavailable)

// ErrUnableToResolveSession is returned for handles that do not map to a live
// session.
var ErrUnableToResolveSession = goerrors.New("unable to resolve session", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeUnauthorized)

// NewValidationError builds a CategoryValidation error carrying per-field
// details so the web layer can re-prompt.
func NewValidationError(msg string, fields map[string]any) *goerrors.Error {
	err := goerrors.New(msg, goerrors.CategoryValidation).
		WithTextCode(TextCodeInvalidInput)
	if len(fields) > 0 {
		err = err.WithMetadata(fields)
	}
	return err
}

// IsValidationError reports whether err is a caller-input failure.
func IsValidationError(err error) bool {
	return hasCategory(err, goerrors.CategoryValidation)
}

// IsAuthError reports whether err belongs to the authentication domain.
func IsAuthError(err error) bool {
	return hasCategory(err, goerrors.CategoryAuth)
}

func hasCategory(err error, category goerrors.Category) bool {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == category
	}
	return false
}

// IsDuplicateKeyError matches the unique-constraint failures the supported
// drivers produce. The store relies on the constraint, not a read-then-write
// check, so this is the single translation point for registration conflicts.
// The driver error often arrives wrapped, so every error in the chain is
// inspected, not just the outermost message.
func IsDuplicateKeyError(err error) bool {
	for err != nil {
		msg := err.Error()
		if strings.Contains(msg, "UNIQUE constraint failed") ||
			strings.Contains(msg, "duplicate key value") {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
