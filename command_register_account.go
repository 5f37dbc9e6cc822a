package accounts

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type RegisterAccountMessage struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	Password   string `json:"password"`
	UseHashid  bool
	OnResponse func(resp *RegisterAccountResponse)
}

func (e RegisterAccountMessage) Type() string { return "account.register" }

type RegisterAccountResponse struct {
	Account *Account
	Success bool
}

type RegisterAccountHandler struct {
	repo     RepositoryManager
	config   Config
	tokens   *TokenIssuer
	notifier Notifier
	activity ActivitySink
	logger   Logger
}

// NewRegisterAccountHandler creates a handler with sane defaults.
func NewRegisterAccountHandler(repo RepositoryManager, config Config) *RegisterAccountHandler {
	if config == nil {
		config = DefaultConfig()
	}

	return &RegisterAccountHandler{
		repo:     repo,
		config:   config,
		tokens:   NewTokenIssuer(config.GetTokenTTL()),
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (h *RegisterAccountHandler) WithNotifier(notifier Notifier) *RegisterAccountHandler {
	h.notifier = normalizeNotifier(notifier)
	return h
}

// WithActivitySink sets the sink used to emit registration events.
func (h *RegisterAccountHandler) WithActivitySink(sink ActivitySink) *RegisterAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *RegisterAccountHandler) WithTokenIssuer(issuer *TokenIssuer) *RegisterAccountHandler {
	if issuer != nil {
		h.tokens = issuer
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RegisterAccountHandler) WithLogger(logger Logger) *RegisterAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	account := &Account{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	email := NormalizeEmail(event.Email)
	username := event.Username
	if username == "" {
		username = UsernameOrEmailLocalPart(username, email)
	}

	if err := ValidateEmail(email, h.config.GetEmailAllowList()); err != nil {
		return err
	}

	role := AccountRole(event.Role)
	if role == "" {
		role = RoleUser
	}
	if !IsValidRole(role) {
		return NewValidationError("unknown account role", map[string]any{"role": event.Role})
	}

	if err := h.config.GetPasswordPolicy().Validate(event.Password, username); err != nil {
		return err
	}

	if event.Phone != "" {
		if err := ValidatePhone(event.Phone); err != nil {
			return err
		}
	}

	var activation IssuedToken

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		hash, err := HashPasswordWithCost(event.Password, h.config.GetHashCost())
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.PasswordHash = hash
		account.Email = email
		account.Phone = event.Phone
		account.Username = username
		account.Role = role

		if event.UseHashid {
			if id, err := hashid.NewUUID(email); err == nil {
				account.ID = id
			}
		}

		if h.config.GetActivationEnabled() {
			activation, err = h.tokens.Issue(TokenPurposeActivation)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue activation token")
			}
			account.Status = AccountStatusPending
			account.SetActivationToken(activation)
		} else {
			account.Status = AccountStatusActive
		}

		if account, err = h.repo.Accounts().RegisterTx(ctx, tx, account); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration transaction failed")
	}

	if h.config.GetActivationEnabled() {
		h.deliverActivation(ctx, account, email, activation)
	}

	h.recordActivity(ctx, account)

	if event.OnResponse != nil {
		event.OnResponse(&RegisterAccountResponse{
			Account: account,
			Success: true,
		})
	}

	return nil
}

// deliverActivation sends the activation mail to the address the caller
// registered with. Delivery failure does not undo the registration; the
// account stays pending and the failure is reported to the activity sink so
// operators can resend.
func (h *RegisterAccountHandler) deliverActivation(ctx context.Context, account *Account, email string, token IssuedToken) {
	subject, body := ActivationMessage(h.config.GetActivationURL(), token)

	if err := h.notifier.Send(ctx, email, subject, body); err != nil {
		h.logger.Error("activation mail to %s failed: %v", email, err)

		event := ActivityEvent{
			EventType: ActivityEventDeliveryFailure,
			Actor:     ActorRef{Type: "system"},
			AccountID: account.ID.String(),
			Metadata: map[string]any{
				"purpose": TokenPurposeActivation,
				"error":   err.Error(),
			},
			OccurredAt: time.Now(),
		}

		if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
			h.logger.Warn("activity sink error during registration: %v", err)
		}
	}
}

func (h *RegisterAccountHandler) recordActivity(ctx context.Context, account *Account) {
	if account == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventAccountRegistered,
		Actor: ActorRef{
			ID:   account.ID.String(),
			Type: "account",
		},
		AccountID: account.ID.String(),
		Metadata: map[string]any{
			"email":  account.Email,
			"role":   account.Role,
			"status": account.Status,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during registration: %v", err)
	}
}
