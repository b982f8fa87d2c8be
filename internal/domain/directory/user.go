package directory

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/travy/admin-hub/internal/domain/shared"
)

// UserStatus - статус пользователя.
type UserStatus string

const (
	// StatusActive - пользователь активен. Отсутствующий статус трактуется так же.
	StatusActive UserStatus = "active"
	// StatusBlocked - пользователь заблокирован администратором.
	StatusBlocked UserStatus = "blocked"
	// StatusPending - регистрация не завершена.
	StatusPending UserStatus = "pending"
)

// IsKnown сообщает, известен ли статус. Пустой статус известен (active).
// Неизвестный статус бэкенда хранится как есть и попадает только в фильтр all.
func (s UserStatus) IsKnown() bool {
	switch s {
	case "", StatusActive, StatusBlocked, StatusPending:
		return true
	default:
		return false
	}
}

// Bucket возвращает статус для фильтрации: пустой статус становится active.
func (s UserStatus) Bucket() UserStatus {
	if s == "" {
		return StatusActive
	}
	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: USER
// ══════════════════════════════════════════════════════════════════════════════

// User - пользователь платформы.
type User struct {
	id         string
	name       string
	email      string
	status     UserStatus
	createdAt  *time.Time
	signUpDate *time.Time
	reward     decimal.Decimal
}

// UserParams - параметры создания пользователя.
type UserParams struct {
	ID         string
	Name       string
	Email      string
	Status     UserStatus
	CreatedAt  *time.Time
	SignUpDate *time.Time
	// Reward - вознаграждение инфлюенсера за этого пользователя (только в списке рефералов).
	Reward decimal.Decimal
}

// NewUser создаёт пользователя с валидацией id. Статус приводится к нижнему
// регистру и не отвергается.
func NewUser(p UserParams) (*User, error) {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return nil, shared.ErrInvalidRecordID
	}
	status := UserStatus(strings.ToLower(strings.TrimSpace(string(p.Status))))
	return &User{
		id:         id,
		name:       p.Name,
		email:      p.Email,
		status:     status,
		createdAt:  p.CreatedAt,
		signUpDate: p.SignUpDate,
		reward:     p.Reward,
	}, nil
}

// ID реализует Record.
func (u *User) ID() string { return u.id }

// Name реализует Record.
func (u *User) Name() string { return u.name }

// Email реализует Record.
func (u *User) Email() string { return u.email }

// Kind реализует Record.
func (u *User) Kind() Kind { return KindUser }

// Status возвращает статус как есть (может быть пустым).
func (u *User) Status() UserStatus { return u.status }

// Reward возвращает вознаграждение за реферала.
func (u *User) Reward() decimal.Decimal { return u.reward }

// IsBlocked возвращает true для заблокированного пользователя.
func (u *User) IsBlocked() bool { return u.status == StatusBlocked }

// Timestamp реализует Record: createdAt, иначе signUpDate.
func (u *User) Timestamp() (time.Time, bool) {
	if u.createdAt != nil {
		return *u.createdAt, true
	}
	if u.signUpDate != nil {
		return *u.signUpDate, true
	}
	return time.Time{}, false
}

// Matches реализует Record.
func (u *User) Matches(dim Dimension, value string, now time.Time) bool {
	switch dim {
	case DimensionStatus:
		return value == All || u.status.Bucket() == UserStatus(value)
	case DimensionDateRange:
		return matchesDate(u, value, now)
	default:
		return false
	}
}

// SortKey реализует Record.
func (u *User) SortKey(field SortField, now time.Time) (SortKey, bool) {
	if field == SortByStatus {
		return TextKey(string(u.status)), true
	}
	return commonSortKey(u, field, now)
}

// WithStatus возвращает копию пользователя с новым статусом.
func (u *User) WithStatus(status UserStatus) *User {
	cp := *u
	cp.status = status
	return &cp
}

// MarshalJSON выводит пользователя в форме ответа бэкенда.
func (u *User) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID         string          `json:"id"`
		Name       string          `json:"name"`
		Email      string          `json:"email"`
		Status     UserStatus      `json:"status,omitempty"`
		CreatedAt  *time.Time      `json:"createdAt,omitempty"`
		SignUpDate *time.Time      `json:"signUpDate,omitempty"`
		Reward     decimal.Decimal `json:"reward"`
	}{u.id, u.name, u.email, u.status, u.createdAt, u.signUpDate, u.reward})
}
