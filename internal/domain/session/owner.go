package session

import (
	"context"
	"errors"
	"time"

	"github.com/travy/admin-hub/internal/domain/shared"
)

// expiryGrace - сколько истёкшая сессия остаётся в хранилище после exp.
const expiryGrace = time.Minute

// AnonymousSessionID - id единственной анонимной сессии при отключённой защите.
const AnonymousSessionID = "anonymous"

// Policy - политика защиты маршрутов, задаётся конфигурацией при старте.
type Policy struct {
	// Disabled отключает проверку входа и роли. Только для разработки.
	Disabled bool
	// DefaultTTL - срок хранения сессии, если в токене нет exp.
	DefaultTTL time.Duration
}

// Owner - единственный владелец состояния сессий: Get/Set/Clear и проверка
// доступа. Больше никто не обращается к Store напрямую.
type Owner struct {
	store   Store
	decoder *TokenDecoder
	policy  Policy
	now     func() time.Time
	events  shared.EventPublisher
}

// NewOwner создаёт владельца сессий. events может быть nil.
func NewOwner(store Store, decoder *TokenDecoder, policy Policy, now func() time.Time, events shared.EventPublisher) *Owner {
	if now == nil {
		now = time.Now
	}
	if policy.DefaultTTL <= 0 {
		policy.DefaultTTL = 24 * time.Hour
	}
	return &Owner{
		store:   store,
		decoder: decoder,
		policy:  policy,
		now:     now,
		events:  events,
	}
}

// Policy возвращает действующую политику.
func (o *Owner) Policy() Policy {
	return o.policy
}

// Set создаёт сессию из токена и сохраняет её.
func (o *Owner) Set(ctx context.Context, id, token string, role Role, email string) (*Session, error) {
	s, err := New(NewParams{ID: id, Token: token, Role: role, Email: email, Now: o.now()}, o.decoder)
	if err != nil {
		return nil, err
	}
	if s.IsExpired(o.now()) {
		return nil, shared.ErrSessionExpired
	}

	if err := o.store.Set(ctx, s, s.TTL(o.now(), o.policy.DefaultTTL)+expiryGrace); err != nil {
		return nil, err
	}
	o.publish(shared.EventSignedIn, s)
	return s, nil
}

// Get возвращает сессию. Истёкшая сессия удаляется и возвращается ErrSessionExpired.
// Если id в хранилище уже нет (вытеснен по TTL), публикуется EventSessionGone.
func (o *Owner) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, shared.ErrSessionNotFound
	}

	s, err := o.store.Get(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) {
			o.publishGone(id)
		}
		return nil, err
	}

	if s.IsExpired(o.now()) {
		if err := o.store.Clear(ctx, id); err != nil {
			return nil, err
		}
		o.publish(shared.EventSessionExpired, s)
		return nil, shared.ErrSessionExpired
	}
	return s, nil
}

// Clear удаляет сессию (выход).
func (o *Owner) Clear(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	s, err := o.store.Get(ctx, id)
	if err != nil && !shared.IsNotFound(err) {
		return err
	}
	if err := o.store.Clear(ctx, id); err != nil {
		return err
	}
	if s != nil {
		o.publish(shared.EventSignedOut, s)
	}
	return nil
}

// Authorize проверяет доступ к защищённому маршруту: нужна действующая сессия
// и, если required задана, совпадающая роль. При отключённой защите
// возвращает найденную сессию или анонимную с требуемой ролью.
func (o *Owner) Authorize(ctx context.Context, id string, required Role) (*Session, error) {
	if o.policy.Disabled {
		if id != "" && id != AnonymousSessionID {
			if s, err := o.Get(ctx, id); err == nil {
				return s, nil
			}
		}
		// Все анонимные запросы делят одну сессию и одно рабочее пространство
		return &Session{ID: AnonymousSessionID, StoredRole: required, CreatedAt: o.now()}, nil
	}

	s, err := o.Get(ctx, id)
	if err != nil {
		if shared.IsNotFound(err) || errors.Is(err, shared.ErrExpired) {
			return nil, shared.WrapError("session", "Guard", shared.ErrUnauthorized, "sign in required", err)
		}
		return nil, err
	}

	if required != RoleNone && s.Role() != required {
		return nil, shared.ErrRoleMismatch
	}
	return s, nil
}

func (o *Owner) publish(eventType shared.EventType, s *Session) {
	if o.events == nil {
		return
	}
	_ = o.events.Publish(shared.NewSessionEvent(eventType, s.ID, s.Role().String(), s.Fingerprint()))
}

func (o *Owner) publishGone(id string) {
	if o.events == nil {
		return
	}
	_ = o.events.Publish(shared.NewSessionEvent(shared.EventSessionGone, id, "", ""))
}
