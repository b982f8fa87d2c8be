package directory

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/travy/admin-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: INFLUENCER
// ══════════════════════════════════════════════════════════════════════════════

// Influencer - партнёр, приводящий пользователей по реферальной ссылке.
type Influencer struct {
	id            string
	name          string
	email         string
	referralCount int
	totalEarnings decimal.Decimal
	referralLink  string
	createdAt     *time.Time
	joinDate      *time.Time
}

// InfluencerParams - параметры создания инфлюенсера.
type InfluencerParams struct {
	ID            string
	Name          string
	Email         string
	ReferralCount int
	TotalEarnings decimal.Decimal
	ReferralLink  string
	CreatedAt     *time.Time
	JoinDate      *time.Time
}

// NewInfluencer создаёт инфлюенсера с валидацией.
// Счётчик рефералов и заработок не могут быть отрицательными.
func NewInfluencer(p InfluencerParams) (*Influencer, error) {
	id := strings.TrimSpace(p.ID)
	if id == "" {
		return nil, shared.ErrInvalidRecordID
	}
	if p.ReferralCount < 0 {
		return nil, shared.ErrNegativeReferral
	}
	if p.TotalEarnings.IsNegative() {
		return nil, shared.ErrNegativeEarnings
	}
	return &Influencer{
		id:            id,
		name:          p.Name,
		email:         p.Email,
		referralCount: p.ReferralCount,
		totalEarnings: p.TotalEarnings,
		referralLink:  p.ReferralLink,
		createdAt:     p.CreatedAt,
		joinDate:      p.JoinDate,
	}, nil
}

// ID реализует Record.
func (i *Influencer) ID() string { return i.id }

// Name реализует Record.
func (i *Influencer) Name() string { return i.name }

// Email реализует Record.
func (i *Influencer) Email() string { return i.email }

// Kind реализует Record.
func (i *Influencer) Kind() Kind { return KindInfluencer }

// ReferralCount возвращает число приведённых пользователей.
func (i *Influencer) ReferralCount() int { return i.referralCount }

// TotalEarnings возвращает суммарный заработок.
func (i *Influencer) TotalEarnings() decimal.Decimal { return i.totalEarnings }

// ReferralLink возвращает реферальную ссылку (может быть пустой).
func (i *Influencer) ReferralLink() string { return i.referralLink }

// Performance возвращает уровень эффективности.
func (i *Influencer) Performance() Performance {
	return PerformanceOf(i.referralCount)
}

// Timestamp реализует Record: createdAt, иначе joinDate.
func (i *Influencer) Timestamp() (time.Time, bool) {
	if i.createdAt != nil {
		return *i.createdAt, true
	}
	if i.joinDate != nil {
		return *i.joinDate, true
	}
	return time.Time{}, false
}

// Matches реализует Record.
func (i *Influencer) Matches(dim Dimension, value string, now time.Time) bool {
	switch dim {
	case DimensionPerformance:
		return value == All || i.Performance() == Performance(value)
	case DimensionDateRange:
		return matchesDate(i, value, now)
	default:
		return false
	}
}

// SortKey реализует Record.
func (i *Influencer) SortKey(field SortField, now time.Time) (SortKey, bool) {
	switch field {
	case SortByReferrals:
		return IntKey(i.referralCount), true
	case SortByEarnings:
		return NumberKey(i.totalEarnings), true
	default:
		return commonSortKey(i, field, now)
	}
}

// MarshalJSON выводит инфлюенсера в форме ответа бэкенда.
func (i *Influencer) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID            string          `json:"id"`
		Name          string          `json:"name"`
		Email         string          `json:"email"`
		ReferralCount int             `json:"referralCount"`
		TotalEarnings decimal.Decimal `json:"totalEarnings"`
		ReferralLink  string          `json:"referralLink,omitempty"`
		Performance   Performance     `json:"performance"`
		CreatedAt     *time.Time      `json:"createdAt,omitempty"`
		JoinDate      *time.Time      `json:"joinDate,omitempty"`
	}{i.id, i.name, i.email, i.referralCount, i.totalEarnings, i.referralLink, i.Performance(), i.createdAt, i.joinDate})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// Profile - собственный профиль инфлюенсера в его кабинете. В отличие от
// Influencer не требует идентификатора: пустой ответ даёт пустой профиль.
type Profile struct {
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name"`
	Email         string          `json:"email,omitempty"`
	ReferralLink  string          `json:"referralLink"`
	ReferralCount int             `json:"referralCount"`
	TotalEarnings decimal.Decimal `json:"totalEarnings"`
}
