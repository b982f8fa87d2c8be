// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/travy/admin-hub/internal/domain/notice"
	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOGIN COMMAND
// Exchanges credentials for a backend token and stores the session.
// ══════════════════════════════════════════════════════════════════════════════

// LoginCommand contains the credentials of an admin or influencer.
type LoginCommand struct {
	// SessionID reuses an existing session id (optional, generated when empty).
	SessionID string

	Email    string
	Password string

	// Role is the portal the user signs in to: admin or influencer.
	Role session.Role
}

// Validate validates the command.
func (c *LoginCommand) Validate() error {
	c.Email = strings.TrimSpace(c.Email)
	if c.Email == "" {
		return shared.NewDomainError("command", "Login", shared.ErrValidation, "email is required")
	}
	if c.Password == "" {
		return shared.NewDomainError("command", "Login", shared.ErrValidation, "password is required")
	}
	if !c.Role.IsValid() {
		return shared.ErrInvalidRole
	}
	return nil
}

// LoginResult describes the stored session. The token itself is never returned.
type LoginResult struct {
	SessionID   string       `json:"sessionId"`
	Role        session.Role `json:"role"`
	Email       string       `json:"email"`
	ExpiresAt   *time.Time   `json:"expiresAt,omitempty"`
	Fingerprint string       `json:"fingerprint"`
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Authenticator exchanges credentials for a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password, role string) (string, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// LoginHandler handles the LoginCommand.
type LoginHandler struct {
	auth     Authenticator
	sessions *session.Owner
	logger   *zap.Logger
	newID    func() string
}

// NewLoginHandler creates a new LoginHandler.
func NewLoginHandler(auth Authenticator, sessions *session.Owner, log *zap.Logger) *LoginHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoginHandler{
		auth:     auth,
		sessions: sessions,
		logger:   log.With(logger.Component("login")),
		newID:    uuid.NewString,
	}
}

// Handle executes the login. A rejected login returns an error whose display
// text is the server message or "Login failed".
func (h *LoginHandler) Handle(ctx context.Context, cmd LoginCommand) (*LoginResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	token, err := h.auth.Authenticate(ctx, cmd.Email, cmd.Password, cmd.Role.String())
	if err != nil {
		h.logger.Info("login rejected", logger.Role(cmd.Role.String()), zap.Error(err))
		return nil, &LoginError{Message: shared.DisplayMessage(err, notice.MsgLoginFailed), Err: err}
	}

	id := cmd.SessionID
	if id == "" {
		id = h.newID()
	}

	s, err := h.sessions.Set(ctx, id, token, cmd.Role, cmd.Email)
	if err != nil {
		return nil, &LoginError{Message: notice.MsgLoginFailed, Err: err}
	}

	h.logger.Info("signed in",
		logger.SessionID(s.ID),
		logger.Role(s.Role().String()),
		logger.Fingerprint(s.Fingerprint()),
	)

	res := &LoginResult{
		SessionID:   s.ID,
		Role:        s.Role(),
		Email:       s.Email,
		Fingerprint: s.Fingerprint(),
	}
	if s.HasExpiry() {
		exp := s.ExpiresAt
		res.ExpiresAt = &exp
	}
	return res, nil
}

// LoginError carries the message shown on the login form.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string {
	return "login: " + e.Err.Error()
}

// Display returns the login form message.
func (e *LoginError) Display() string { return e.Message }

func (e *LoginError) Unwrap() error { return e.Err }
