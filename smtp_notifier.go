package accounts

import (
	"context"
	"fmt"
	"net/smtp"

	goerrors "github.com/goliatone/go-errors"
)

// SMTPNotifier sends lifecycle mail over plain SMTP. It is the stock
// Notifier; wire your own implementation for providers with richer APIs.
type SMTPNotifier struct {
	host     string
	port     int
	username string
	password string
	from     string
	logger   Logger
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

var _ Notifier = (*SMTPNotifier)(nil)

func NewSMTPNotifier(host string, port int, username, password, from string) *SMTPNotifier {
	return &SMTPNotifier{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		logger:   defLogger{},
		send:     smtp.SendMail,
	}
}

func (n *SMTPNotifier) WithLogger(logger Logger) *SMTPNotifier {
	if logger != nil {
		n.logger = logger
	}
	return n
}

func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s",
		n.from, to, subject, body,
	)

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	auth := smtp.PlainAuth("", n.username, n.password, n.host)

	if err := n.send(addr, auth, n.from, []string{to}, []byte(msg)); err != nil {
		n.logger.Error("smtp delivery to %s failed: %v", to, err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "smtp delivery failed")
	}

	n.logger.Debug("smtp delivery to %s ok", to)

	return nil
}
