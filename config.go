package accounts

import "time"

// Config holds the knobs that collapse every observed deployment variant into
// one lifecycle: activation on/off, password policy, email allow-list, token
// TTL, hash cost, and session settings.
type Config interface {
	GetActivationEnabled() bool
	GetTokenTTL() time.Duration
	GetHashCost() int
	GetEmailAllowList() []string
	GetPasswordPolicy() PasswordPolicy
	GetActivationURL() string
	GetResetURL() string
	GetSessionSigningKey() string
	GetSessionTTL() time.Duration
	GetSessionIssuer() string
}

// LifecycleConfig is the concrete Config most deployments use.
type LifecycleConfig struct {
	ActivationEnabled bool
	TokenTTL          time.Duration
	HashCost          int
	// EmailAllowList restricts registrations to the listed domains. Empty
	// means any domain that parses as a valid address.
	EmailAllowList    []string
	PasswordPolicy    PasswordPolicy
	ActivationURL     string
	ResetURL          string
	SessionSigningKey string
	SessionTTL        time.Duration
	SessionIssuer     string
}

var _ Config = (*LifecycleConfig)(nil)

// DefaultConfig mirrors the strictest observed deployment: activation on,
// 10 minute tokens, bcrypt cost 10, the common mailbox providers, and an
// 8+ char upper/digit/symbol password policy that bans the username.
func DefaultConfig() *LifecycleConfig {
	return &LifecycleConfig{
		ActivationEnabled: true,
		TokenTTL:          10 * time.Minute,
		HashCost:          10,
		EmailAllowList:    []string{"gmail.com", "yahoo.com", "outlook.com"},
		PasswordPolicy:    DefaultPasswordPolicy(),
		ActivationURL:     "/activate",
		ResetURL:          "/password-reset",
		SessionTTL:        72 * time.Hour,
		SessionIssuer:     "go-accounts",
	}
}

func (c *LifecycleConfig) GetActivationEnabled() bool { return c.ActivationEnabled }

func (c *LifecycleConfig) GetTokenTTL() time.Duration {
	if c.TokenTTL <= 0 {
		return 10 * time.Minute
	}
	return c.TokenTTL
}

func (c *LifecycleConfig) GetHashCost() int {
	if c.HashCost <= 0 {
		return defaultHashCost
	}
	return c.HashCost
}

func (c *LifecycleConfig) GetEmailAllowList() []string { return c.EmailAllowList }

func (c *LifecycleConfig) GetPasswordPolicy() PasswordPolicy { return c.PasswordPolicy }

func (c *LifecycleConfig) GetActivationURL() string { return c.ActivationURL }

func (c *LifecycleConfig) GetResetURL() string { return c.ResetURL }

func (c *LifecycleConfig) GetSessionSigningKey() string { return c.SessionSigningKey }

func (c *LifecycleConfig) GetSessionTTL() time.Duration {
	if c.SessionTTL <= 0 {
		return 72 * time.Hour
	}
	return c.SessionTTL
}

func (c *LifecycleConfig) GetSessionIssuer() string { return c.SessionIssuer }
