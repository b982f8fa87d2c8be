// Package session содержит модель сессии администратора или инфлюенсера
// и единственного владельца состояния сессии (Owner).
package session

import (
	"context"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/travy/admin-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROLE
// ══════════════════════════════════════════════════════════════════════════════

// Role - роль, с которой выполнен вход.
type Role string

const (
	// RoleNone - роль не требуется или неизвестна.
	RoleNone Role = ""
	// RoleAdmin - администратор платформы.
	RoleAdmin Role = "admin"
	// RoleInfluencer - инфлюенсер, смотрит только свой кабинет.
	RoleInfluencer Role = "influencer"
)

// IsValid проверяет, что роль известна.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleInfluencer
}

// String возвращает строковое представление роли.
func (r Role) String() string {
	return string(r)
}

// ParseRole разбирает роль без учёта регистра.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return RoleNone, shared.ErrInvalidRole
	}
	return r, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION
// ══════════════════════════════════════════════════════════════════════════════

// Session - состояние входа: токен бэкенда, роль и срок действия.
type Session struct {
	ID         string    `json:"id" yaml:"id"`
	Token      string    `json:"token" yaml:"token"`
	StoredRole Role      `json:"role,omitempty" yaml:"role,omitempty"`
	ClaimRole  Role      `json:"claim_role,omitempty" yaml:"claim_role,omitempty"`
	Email      string    `json:"email,omitempty" yaml:"email,omitempty"`
	ExpiresAt  time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// Role возвращает роль из токена, а если её нет - сохранённую при входе.
func (s *Session) Role() Role {
	if s.ClaimRole != RoleNone {
		return s.ClaimRole
	}
	return s.StoredRole
}

// HasExpiry возвращает true, если в токене был срок действия.
func (s *Session) HasExpiry() bool {
	return !s.ExpiresAt.IsZero()
}

// IsExpired проверяет срок действия. Токен без exp не истекает.
func (s *Session) IsExpired(now time.Time) bool {
	return s.HasExpiry() && s.ExpiresAt.Before(now)
}

// TTL возвращает оставшееся время жизни или fallback, если срока нет.
func (s *Session) TTL(now time.Time, fallback time.Duration) time.Duration {
	if !s.HasExpiry() {
		return fallback
	}
	return s.ExpiresAt.Sub(now)
}

// Fingerprint возвращает короткий отпечаток токена для логов и аудита.
func (s *Session) Fingerprint() string {
	return Fingerprint(s.Token)
}

// Fingerprint хэширует токен blake2b-256 и возвращает первые 12 hex-символов.
// Сам токен никогда не пишется в логи.
func Fingerprint(token string) string {
	if token == "" {
		return "anonymous"
	}
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}

// NewParams - параметры создания сессии.
type NewParams struct {
	ID    string
	Token string
	Role  Role
	Email string
	Now   time.Time
}

// New создаёт сессию, извлекая роль и срок действия из токена.
func New(p NewParams, decoder *TokenDecoder) (*Session, error) {
	if strings.TrimSpace(p.Token) == "" {
		return nil, shared.ErrEmptyToken
	}
	if p.ID == "" {
		return nil, shared.NewDomainError("session", "New", shared.ErrInvalidID, "session id is required")
	}

	claims, err := decoder.Decode(p.Token)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:         p.ID,
		Token:      p.Token,
		StoredRole: p.Role,
		Email:      p.Email,
		CreatedAt:  p.Now,
	}
	if r, err := ParseRole(claims.Role); err == nil {
		s.ClaimRole = r
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store - хранилище сессий. Реализации: Redis (консоль), YAML-файл (adminctl),
// память (тесты).
type Store interface {
	// Get возвращает сессию или ошибку с ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Set сохраняет сессию. ttl <= 0 означает без ограничения.
	Set(ctx context.Context, s *Session, ttl time.Duration) error

	// Clear удаляет сессию. Удаление отсутствующей сессии не ошибка.
	Clear(ctx context.Context, id string) error
}
