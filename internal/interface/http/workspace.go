package http

import (
	"sync"
	"time"

	"github.com/travy/admin-hub/internal/application/page"
	"github.com/travy/admin-hub/internal/application/query"
	"github.com/travy/admin-hub/internal/domain/session"
	"github.com/travy/admin-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GATEWAYS
// ══════════════════════════════════════════════════════════════════════════════

// Gateway is everything the console asks of the backend on behalf of a
// signed-in user.
type Gateway interface {
	page.UserGateway
	page.InfluencerGateway
	query.AdminDirectory
	query.InfluencerAccount
}

// GatewayFactory binds a gateway to a bearer token.
type GatewayFactory func(token string) Gateway

// ══════════════════════════════════════════════════════════════════════════════
// WORKSPACES
// ══════════════════════════════════════════════════════════════════════════════

// DefaultWorkspaceIdle is how long an untouched workspace is kept.
const DefaultWorkspaceIdle = 30 * time.Minute

// Workspace holds the page owners of one session.
type Workspace struct {
	Users       *page.Users
	Influencers *page.Influencers
	Gateway     Gateway

	fingerprint string
	lastSeen    time.Time
}

// Workspaces keeps one workspace per session id. A workspace is rebuilt when
// the session's token changes and evicted after idle without a request.
type Workspaces struct {
	mu      sync.Mutex
	items   map[string]*Workspace
	gateway GatewayFactory
	opts    page.Options
	now     func() time.Time
	idle    time.Duration
	swept   time.Time
}

// NewWorkspaces creates the registry. opts.Actor is set per session. A
// non-positive idle means DefaultWorkspaceIdle.
func NewWorkspaces(gateway GatewayFactory, opts page.Options, idle time.Duration) *Workspaces {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if idle <= 0 {
		idle = DefaultWorkspaceIdle
	}
	return &Workspaces{
		items:   make(map[string]*Workspace),
		gateway: gateway,
		opts:    opts,
		now:     now,
		idle:    idle,
	}
}

// For returns the workspace of s, creating it on first use.
func (ws *Workspaces) For(s *session.Session) *Workspace {
	fp := s.Fingerprint()

	ws.mu.Lock()
	defer ws.mu.Unlock()

	now := ws.now()
	if now.Sub(ws.swept) >= ws.idle/4 {
		ws.evictLocked(now)
	}

	if w, ok := ws.items[s.ID]; ok && w.fingerprint == fp {
		w.lastSeen = now
		return w
	}

	gw := ws.gateway(s.Token)
	opts := ws.opts
	opts.Actor = fp
	w := &Workspace{
		Users:       page.NewUsers(gw, opts),
		Influencers: page.NewInfluencers(gw, opts),
		Gateway:     gw,
		fingerprint: fp,
		lastSeen:    now,
	}
	ws.items[s.ID] = w
	return w
}

func (ws *Workspaces) evictLocked(now time.Time) {
	for id, w := range ws.items {
		if now.Sub(w.lastSeen) > ws.idle {
			delete(ws.items, id)
		}
	}
	ws.swept = now
}

// Drop forgets the workspace of a session.
func (ws *Workspaces) Drop(sessionID string) {
	ws.mu.Lock()
	delete(ws.items, sessionID)
	ws.mu.Unlock()
}

// Len returns the number of live workspaces.
func (ws *Workspaces) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.items)
}

// Subscribe drops workspaces when their session ends.
func (ws *Workspaces) Subscribe(bus shared.EventSubscriber) error {
	drop := func(e shared.Event) error {
		ws.Drop(e.AggregateID())
		return nil
	}
	for _, t := range []shared.EventType{
		shared.EventSignedOut,
		shared.EventSessionExpired,
		shared.EventSessionGone,
	} {
		if err := bus.Subscribe(t, drop); err != nil {
			return err
		}
	}
	return nil
}
