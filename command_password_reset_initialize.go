package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email      string `json:"email"`
	Role       string `json:"role"`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "account.password_reset" }

// InitializePasswordResetResponse is identical for known and unknown emails.
// Token and delivery details never travel back to the caller.
type InitializePasswordResetResponse struct {
	Success bool
}

type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	config   Config
	tokens   *TokenIssuer
	notifier Notifier
	activity ActivitySink
	logger   Logger
}

// NewInitializePasswordResetHandler creates a handler with sane defaults.
func NewInitializePasswordResetHandler(repo RepositoryManager, config Config) *InitializePasswordResetHandler {
	if config == nil {
		config = DefaultConfig()
	}

	return &InitializePasswordResetHandler{
		repo:     repo,
		config:   config,
		tokens:   NewTokenIssuer(config.GetTokenTTL()),
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (h *InitializePasswordResetHandler) WithNotifier(notifier Notifier) *InitializePasswordResetHandler {
	h.notifier = normalizeNotifier(notifier)
	return h
}

// WithActivitySink sets the sink used to emit reset request events.
func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *InitializePasswordResetHandler) WithTokenIssuer(issuer *TokenIssuer) *InitializePasswordResetHandler {
	if issuer != nil {
		h.tokens = issuer
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	account := &Account{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	role := AccountRole(event.Role)
	if role == "" {
		role = RoleUser
	}

	email := NormalizeEmail(event.Email)
	if err := ValidateEmail(email, h.config.GetEmailAllowList()); err != nil {
		return err
	}

	var reset IssuedToken
	known := false

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error

		account, err = h.repo.Accounts().GetByEmailAndRoleTx(ctx, tx, email, role)
		if err != nil {
			if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
				// unknown email: report success without issuing anything,
				// so the response is no account-existence oracle
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
		}

		reset, err = h.tokens.Issue(TokenPurposeReset)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue password reset token")
		}

		// a fresh request replaces any outstanding token
		if account, err = h.repo.Accounts().StoreResetTokenTx(ctx, tx, account.ID, reset); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store password reset token")
		}

		known = true
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	if known {
		h.deliverReset(ctx, account, reset)
		h.recordActivity(ctx, account)
	}

	if event.OnResponse != nil {
		event.OnResponse(&InitializePasswordResetResponse{Success: true})
	}

	return nil
}

func (h *InitializePasswordResetHandler) deliverReset(ctx context.Context, account *Account, token IssuedToken) {
	subject, body := ResetMessage(h.config.GetResetURL(), token)

	if err := h.notifier.Send(ctx, account.Email, subject, body); err != nil {
		h.logger.Error("reset mail to %s failed: %v", account.Email, err)

		event := ActivityEvent{
			EventType: ActivityEventDeliveryFailure,
			Actor:     ActorRef{Type: "system"},
			AccountID: account.ID.String(),
			Metadata: map[string]any{
				"purpose": TokenPurposeReset,
				"error":   err.Error(),
			},
			OccurredAt: time.Now(),
		}

		if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
			h.logger.Warn("activity sink error during password reset: %v", err)
		}
	}
}

func (h *InitializePasswordResetHandler) recordActivity(ctx context.Context, account *Account) {
	if account == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventPasswordResetRequested,
		Actor: ActorRef{
			ID:   account.ID.String(),
			Type: "account",
		},
		AccountID:  account.ID.String(),
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset: %v", err)
	}
}
