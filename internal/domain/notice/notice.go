// Package notice содержит сообщения, которые консоль показывает оператору:
// закрываемый баннер ошибки и временные уведомления.
package notice

import (
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ТИПЫ
// ══════════════════════════════════════════════════════════════════════════════

// Level - уровень уведомления.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Время показа временных уведомлений.
const (
	SuccessTTL = 3 * time.Second
	ErrorTTL   = 5 * time.Second
)

// Тексты уведомлений о копировании ссылки.
const (
	MsgLinkCopied = "Referral link copied to clipboard!"
	MsgCopyFailed = "Failed to copy link. Please try again."
)

// Тексты баннеров по умолчанию.
const (
	MsgLoadUsersFailed       = "Failed to load users"
	MsgLoadInfluencersFailed = "Failed to load influencers"
	MsgLoadDashboardFailed   = "Failed to load dashboard data"
	MsgUpdateStatusFailed    = "Failed to update user status"
	MsgDeleteFailed          = "Failed to delete influencer"
	MsgLoginFailed           = "Login failed"
	MsgConfirmDelete         = "Are you sure you want to delete this influencer?"
)

// Banner - баннер ошибки. Висит, пока его не закроют или не начнётся перезагрузка.
type Banner struct {
	Message  string    `json:"message"`
	RaisedAt time.Time `json:"raisedAt"`
}

// Notice - временное уведомление.
type Notice struct {
	Level   Level         `json:"level"`
	Message string        `json:"message"`
	ShownAt time.Time     `json:"shownAt"`
	TTL     time.Duration `json:"-"`
}

// Success создаёт уведомление об успехе.
func Success(message string, now time.Time) Notice {
	return Notice{Level: LevelSuccess, Message: message, ShownAt: now, TTL: SuccessTTL}
}

// Failure создаёт уведомление об ошибке.
func Failure(message string, now time.Time) Notice {
	return Notice{Level: LevelError, Message: message, ShownAt: now, TTL: ErrorTTL}
}

// ExpiresAt возвращает момент автоскрытия.
func (n Notice) ExpiresAt() time.Time {
	return n.ShownAt.Add(n.TTL)
}

// Visible сообщает, показывается ли уведомление в момент now.
func (n Notice) Visible(now time.Time) bool {
	return now.Before(n.ExpiresAt())
}

// CopyOutcome превращает результат копирования в уведомление.
// Ошибка буфера обмена никогда не фатальна.
func CopyOutcome(err error, now time.Time) Notice {
	if err != nil {
		return Failure(MsgCopyFailed, now)
	}
	return Success(MsgLinkCopied, now)
}

// ══════════════════════════════════════════════════════════════════════════════
// BOARD
// ══════════════════════════════════════════════════════════════════════════════

// Board хранит баннер и временные уведомления одной страницы.
type Board struct {
	mu      sync.Mutex
	banner  *Banner
	notices []Notice
	now     func() time.Time
}

// NewBoard создаёт пустую доску.
func NewBoard(now func() time.Time) *Board {
	if now == nil {
		now = time.Now
	}
	return &Board{now: now}
}

// Raise показывает баннер, заменяя предыдущий.
func (b *Board) Raise(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.banner = &Banner{Message: message, RaisedAt: b.now()}
}

// Dismiss закрывает баннер.
func (b *Board) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.banner = nil
}

// Banner возвращает текущий баннер.
func (b *Board) Banner() (Banner, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.banner == nil {
		return Banner{}, false
	}
	return *b.banner, true
}

// Push добавляет временное уведомление.
func (b *Board) Push(n Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.pruneLocked(), n)
}

// Active возвращает видимые уведомления, попутно удаляя истёкшие.
func (b *Board) Active() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = b.pruneLocked()
	out := make([]Notice, len(b.notices))
	copy(out, b.notices)
	return out
}

func (b *Board) pruneLocked() []Notice {
	now := b.now()
	kept := b.notices[:0]
	for _, n := range b.notices {
		if n.Visible(now) {
			kept = append(kept, n)
		}
	}
	return kept
}
