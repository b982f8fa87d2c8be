package command

import (
	"context"

	"go.uber.org/zap"

	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/pkg/logger"
)

// LogoutCommand ends a session.
type LogoutCommand struct {
	SessionID string
}

// LogoutHandler handles the LogoutCommand.
type LogoutHandler struct {
	sessions *session.Owner
	logger   *zap.Logger
}

// NewLogoutHandler creates a new LogoutHandler.
func NewLogoutHandler(sessions *session.Owner, log *zap.Logger) *LogoutHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogoutHandler{sessions: sessions, logger: log.With(logger.Component("logout"))}
}

// Handle clears the session. Logging out twice is not an error.
func (h *LogoutHandler) Handle(ctx context.Context, cmd LogoutCommand) error {
	if err := h.sessions.Clear(ctx, cmd.SessionID); err != nil {
		return err
	}
	h.logger.Info("signed out", logger.SessionID(cmd.SessionID))
	return nil
}
