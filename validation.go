package accounts

import (
	"net/mail"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/nyaruka/phonenumbers"
)

// PasswordPolicy describes the password rules a deployment enforces. The zero
// value enforces nothing beyond non-empty; DefaultPasswordPolicy matches the
// strictest observed deployment.
type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireDigit     bool
	RequireSymbol    bool
	// ForbidUsername rejects passwords containing the username as a
	// substring.
	ForbidUsername bool
}

// DefaultPasswordPolicy requires 8+ chars with an uppercase letter, a digit,
// and a symbol, and bans the username as a substring.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        8,
		RequireUppercase: true,
		RequireDigit:     true,
		RequireSymbol:    true,
		ForbidUsername:   true,
	}
}

// Validate checks password against the policy. username may be empty when the
// policy does not forbid it.
func (p PasswordPolicy) Validate(password, username string) error {
	minLength := p.MinLength
	if minLength < 1 {
		minLength = 1
	}

	if err := validation.Validate(password,
		validation.Required,
		validation.Length(minLength, maxPasswordBytes),
	); err != nil {
		return NewValidationError("password does not meet the policy", map[string]any{
			"password": err.Error(),
		})
	}

	var missing []string

	if p.RequireUppercase && !containsClass(password, unicode.IsUpper) {
		missing = append(missing, "an uppercase letter")
	}

	if p.RequireDigit && !containsClass(password, unicode.IsDigit) {
		missing = append(missing, "a digit")
	}

	if p.RequireSymbol && !containsClass(password, isSymbol) {
		missing = append(missing, "a symbol")
	}

	if len(missing) > 0 {
		return NewValidationError("password does not meet the policy", map[string]any{
			"password": "must contain " + strings.Join(missing, ", "),
		})
	}

	if p.ForbidUsername && username != "" &&
		strings.Contains(strings.ToLower(password), strings.ToLower(username)) {
		return NewValidationError("password does not meet the policy", map[string]any{
			"password": "must not contain the username",
		})
	}

	return nil
}

// ValidateEmail checks grammar and, when an allow-list is configured, that
// the address belongs to one of the allowed domains.
func ValidateEmail(email string, allowList []string) error {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return NewValidationError("invalid email address", map[string]any{
			"email": err.Error(),
		})
	}

	addr, err := mail.ParseAddress(email)
	if err != nil {
		return NewValidationError("invalid email address", map[string]any{
			"email": "does not parse as an address",
		})
	}

	if len(allowList) == 0 {
		return nil
	}

	domain := emailDomain(addr.Address)
	for _, allowed := range allowList {
		if strings.EqualFold(domain, allowed) {
			return nil
		}
	}

	return NewValidationError("email domain is not allowed", map[string]any{
		"email": "domain " + domain + " is not in the allow list",
	})
}

// ValidatePhone checks an optional, E.164-formatted phone number.
func ValidatePhone(phone string) error {
	num, err := phonenumbers.Parse(phone, "")
	if err != nil {
		return NewValidationError("invalid phone number", map[string]any{
			"phone": err.Error(),
		})
	}

	if !phonenumbers.IsValidNumber(num) {
		return NewValidationError("invalid phone number", map[string]any{
			"phone": "number is not valid",
		})
	}

	return nil
}

// NormalizeEmail lowercases and trims an address so lookups and uniqueness
// behave the same regardless of how the caller typed it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsernameOrEmailLocalPart defaults a missing username to the email local
// part, the signup behavior every observed deployment had.
func UsernameOrEmailLocalPart(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}

func emailDomain(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return ""
	}
	return address[at+1:]
}

func containsClass(s string, class func(rune) bool) bool {
	for _, r := range s {
		if class(r) {
			return true
		}
	}
	return false
}

func isSymbol(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}
