package accounts

import (
	"context"
	"fmt"
	"net/url"
)

// Notifier delivers lifecycle mail to account holders. Delivery failures
// never abort the operation that triggered them; callers log and emit an
// activity event instead.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

type NotifierFunc func(ctx context.Context, to, subject, body string) error

func (f NotifierFunc) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}

type noopNotifier struct{}

func (noopNotifier) Send(ctx context.Context, to, subject, body string) error {
	return nil
}

func normalizeNotifier(notifier Notifier) Notifier {
	if notifier == nil {
		return noopNotifier{}
	}
	return notifier
}

// ActivationMessage builds the subject and body for an activation mail.
// The token travels as a query parameter on the configured base URL.
func ActivationMessage(baseURL string, token IssuedToken) (subject, body string) {
	link := tokenLink(baseURL, token.Value)
	subject = "Activate your account"
	body = fmt.Sprintf(
		"Welcome!\r\n\r\nConfirm your email address to activate your account:\r\n\r\n%s\r\n\r\nThe link expires at %s. If you did not sign up you can ignore this message.\r\n",
		link,
		token.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"),
	)
	return subject, body
}

// ResetMessage builds the subject and body for a password reset mail.
func ResetMessage(baseURL string, token IssuedToken) (subject, body string) {
	link := tokenLink(baseURL, token.Value)
	subject = "Reset your password"
	body = fmt.Sprintf(
		"We received a request to reset your password.\r\n\r\nUse this link to choose a new one:\r\n\r\n%s\r\n\r\nThe link expires at %s. If you did not request a reset no action is needed, your password is unchanged.\r\n",
		link,
		token.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"),
	)
	return subject, body
}

func tokenLink(baseURL, token string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Sprintf("%s?token=%s", baseURL, url.QueryEscape(token))
	}
	query := parsed.Query()
	query.Set("token", token)
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
