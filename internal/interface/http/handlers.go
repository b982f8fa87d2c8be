package http

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/travy/admin-hub/internal/application/command"
	"github.com/travy/admin-hub/internal/application/page"
	"github.com/travy/admin-hub/internal/application/query"
	"github.com/travy/admin-hub/internal/domain/directory"
	"github.com/travy/admin-hub/internal/domain/listing"
	"github.com/travy/admin-hub/internal/domain/notice"
	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	status.Version = s.config.Version
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": status.Message,
		})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// handleLogin handles POST /api/v1/auth/login. A new session id is issued on
// every login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err, "Malformed request")
		return
	}
	role, err := session.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, err, "Unknown role")
		return
	}

	res, err := s.deps.Login.Handle(r.Context(), command.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	})
	if err != nil {
		writeError(w, r, err, notice.MsgLoginFailed)
		return
	}

	expires := s.deps.Now().Add(s.deps.Sessions.Policy().DefaultTTL)
	if res.ExpiresAt != nil {
		expires = *res.ExpiresAt
	}
	s.setCookie(w, res.SessionID, expires)
	writeJSON(w, r, http.StatusOK, res)
}

// handleLogout handles POST /api/v1/auth/logout.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if err := s.deps.Logout.Handle(r.Context(), command.LogoutCommand{SessionID: id}); err != nil {
		writeError(w, r, err, "Logout failed")
		return
	}
	s.deps.Workspaces.Drop(id)
	s.clearCookie(w)
	writeJSON(w, r, http.StatusOK, map[string]bool{"signedOut": true})
}

type meResponse struct {
	SessionID   string       `json:"sessionId"`
	Role        session.Role `json:"role"`
	Email       string       `json:"email,omitempty"`
	ExpiresAt   *time.Time   `json:"expiresAt,omitempty"`
	Fingerprint string       `json:"fingerprint"`
}

// handleMe handles GET /api/v1/auth/me.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	resp := meResponse{
		SessionID:   sess.ID,
		Role:        sess.Role(),
		Email:       sess.Email,
		Fingerprint: sess.Fingerprint(),
	}
	if sess.HasExpiry() {
		exp := sess.ExpiresAt
		resp.ExpiresAt = &exp
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// ══════════════════════════════════════════════════════════════════════════════
// DASHBOARD HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleAdminDashboard handles GET /api/v1/admin/dashboard.
func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ws := s.deps.Workspaces.For(sess)
	h := query.NewAdminDashboardHandler(ws.Gateway, s.deps.Now, logger.FromContext(r.Context(), s.logger))

	res, err := h.Handle(r.Context())
	if err != nil {
		writeError(w, r, err, notice.MsgLoadDashboardFailed)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// handleInfluencerDashboard handles GET /api/v1/influencer/dashboard?page=N.
func (s *Server) handleInfluencerDashboard(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	pageNum, err := getQueryParamInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err, "page must be an integer")
		return
	}

	ws := s.deps.Workspaces.For(sess)
	h := query.NewInfluencerDashboardHandler(ws.Gateway, logger.FromContext(r.Context(), s.logger))

	res, err := h.Handle(r.Context(), query.InfluencerDashboardQuery{Page: pageNum})
	if err != nil {
		writeError(w, r, err, notice.MsgLoadDashboardFailed)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST PAGE HANDLERS
// Shared by the users and influencers pages.
// ══════════════════════════════════════════════════════════════════════════════

// renderView loads the list on first access and writes its view. A failed
// first load is reported through the view's banner.
func renderView[T directory.Record](w http.ResponseWriter, r *http.Request, l *page.List[T]) {
	if !l.Loaded() || getQueryParamBool(r, "refresh") {
		_ = l.Load(r.Context())
	}
	writeJSON(w, r, http.StatusOK, l.View())
}

// refreshView reloads the list. A failed load answers with the banner text.
func refreshView[T directory.Record](w http.ResponseWriter, r *http.Request, l *page.List[T]) {
	if err := l.Load(r.Context()); err != nil {
		msg := ""
		if b, ok := l.Board().Banner(); ok {
			msg = b.Message
		}
		writeError(w, r, err, msg)
		return
	}
	writeJSON(w, r, http.StatusOK, l.View())
}

func updateQuery[T directory.Record](w http.ResponseWriter, r *http.Request, l *page.List[T]) {
	var patch listing.Patch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, r, err, "Malformed query")
		return
	}
	if _, err := l.UpdateQuery(patch); err != nil {
		writeError(w, r, err, err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, l.View())
}

func clearFilters[T directory.Record](w http.ResponseWriter, r *http.Request, l *page.List[T]) {
	l.ClearFilters()
	writeJSON(w, r, http.StatusOK, l.View())
}

type pageRequest struct {
	Page int `json:"page"`
}

func setPage[T directory.Record](w http.ResponseWriter, r *http.Request, l *page.List[T]) {
	var req pageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err, "Malformed page request")
		return
	}
	if err := l.SetPage(req.Page); err != nil {
		writeError(w, r, err, "page must be positive")
		return
	}
	writeJSON(w, r, http.StatusOK, l.View())
}

func dismissBanner[T directory.Record](w http.ResponseWriter, r *http.Request, l *page.List[T]) {
	l.DismissBanner()
	writeJSON(w, r, http.StatusOK, l.View())
}

// writeMutationError answers a failed mutation with the page's banner text.
func writeMutationError(w http.ResponseWriter, r *http.Request, err error, banner string) {
	status, code := errorStatus(err)
	writeJSONError(w, r, status, code, banner)
}

// ══════════════════════════════════════════════════════════════════════════════
// USERS PAGE
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) users(sess *session.Session) *page.Users {
	return s.deps.Workspaces.For(sess).Users
}

func (s *Server) handleUsersView(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	renderView(w, r, s.users(sess).List)
}

func (s *Server) handleUsersRefresh(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	refreshView(w, r, s.users(sess).List)
}

func (s *Server) handleUsersQuery(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	updateQuery(w, r, s.users(sess).List)
}

func (s *Server) handleUsersClearFilters(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	clearFilters(w, r, s.users(sess).List)
}

func (s *Server) handleUsersPage(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	setPage(w, r, s.users(sess).List)
}

func (s *Server) handleUsersDismiss(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	dismissBanner(w, r, s.users(sess).List)
}

type userMutationResponse struct {
	User *directory.User            `json:"user,omitempty"`
	View page.View[*directory.User] `json:"view"`
}

func (s *Server) mutateUser(
	w http.ResponseWriter,
	r *http.Request,
	sess *session.Session,
	op func(p *page.Users, id string) (*directory.User, error),
) {
	p := s.users(sess)
	u, err := op(p, r.PathValue("id"))
	if err != nil {
		logger.FromContext(r.Context(), s.logger).Warn("user mutation failed",
			logger.RecordID(r.PathValue("id")), zap.Error(err))
		writeMutationError(w, r, err, notice.MsgUpdateStatusFailed)
		return
	}
	writeJSON(w, r, http.StatusOK, userMutationResponse{User: u, View: p.View()})
}

func (s *Server) handleUserBlock(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.mutateUser(w, r, sess, func(p *page.Users, id string) (*directory.User, error) {
		return p.Block(r.Context(), id)
	})
}

func (s *Server) handleUserUnblock(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.mutateUser(w, r, sess, func(p *page.Users, id string) (*directory.User, error) {
		return p.Unblock(r.Context(), id)
	})
}

func (s *Server) handleUserToggle(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.mutateUser(w, r, sess, func(p *page.Users, id string) (*directory.User, error) {
		return p.Toggle(r.Context(), id)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// INFLUENCERS PAGE
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) influencers(sess *session.Session) *page.Influencers {
	return s.deps.Workspaces.For(sess).Influencers
}

func (s *Server) handleInfluencersView(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	renderView(w, r, s.influencers(sess).List)
}

func (s *Server) handleInfluencersRefresh(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	refreshView(w, r, s.influencers(sess).List)
}

func (s *Server) handleInfluencersQuery(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	updateQuery(w, r, s.influencers(sess).List)
}

func (s *Server) handleInfluencersClearFilters(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	clearFilters(w, r, s.influencers(sess).List)
}

func (s *Server) handleInfluencersPage(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	setPage(w, r, s.influencers(sess).List)
}

func (s *Server) handleInfluencersDismiss(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	dismissBanner(w, r, s.influencers(sess).List)
}

// handleInfluencerLink handles GET /api/v1/admin/influencers/{id}/link. The
// browser does the copying; the console only resolves the link.
func (s *Server) handleInfluencerLink(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	inf, ok := s.influencers(sess).Find(r.PathValue("id"))
	if !ok {
		writeError(w, r, shared.ErrRecordNotFound, "Influencer not found")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"referralLink": inf.ReferralLink()})
}

// handleInfluencerDelete handles DELETE /api/v1/admin/influencers/{id}?confirm=true.
func (s *Server) handleInfluencerDelete(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	p := s.influencers(sess)
	id := r.PathValue("id")

	err := p.Delete(r.Context(), id, getQueryParamBool(r, "confirm"))
	switch {
	case errors.Is(err, shared.ErrConfirmationRequired):
		writeJSONError(w, r, http.StatusPreconditionRequired, "confirmation_required", notice.MsgConfirmDelete)
		return
	case err != nil:
		logger.FromContext(r.Context(), s.logger).Warn("influencer delete failed",
			logger.RecordID(id), zap.Error(err))
		writeMutationError(w, r, err, notice.MsgDeleteFailed)
		return
	}
	writeJSON(w, r, http.StatusOK, p.View())
}
