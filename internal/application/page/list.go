// Package page содержит владельцев страниц списков: каждый владеет хранилищем
// записей, состоянием запроса и текущей страницей одного представления и
// сериализует доступ к ним.
package page

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/travy/admin-hub/internal/domain/directory"
	"github.com/travy/admin-hub/internal/domain/listing"
	"github.com/travy/admin-hub/internal/domain/notice"
	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ЗАВИСИМОСТИ
// ══════════════════════════════════════════════════════════════════════════════

// Options - общие зависимости владельцев страниц.
type Options struct {
	// Now - часы; по умолчанию time.Now.
	Now func() time.Time

	// Logger - логгер; по умолчанию no-op.
	Logger *zap.Logger

	// Events - шина событий; может быть nil.
	Events shared.EventPublisher

	// Actor - отпечаток токена оператора для событий аудита.
	Actor string

	// HideTopPerformers отключает блок лучших инфлюенсеров в представлении.
	HideTopPerformers bool
}

func (o Options) withDefaults() Options {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// ══════════════════════════════════════════════════════════════════════════════
// VIEW
// ══════════════════════════════════════════════════════════════════════════════

// View - снимок страницы для отрисовки.
type View[T directory.Record] struct {
	Kind          directory.Kind                         `json:"kind"`
	Query         listing.Query                          `json:"query"`
	Filtered      bool                                   `json:"filtered"`
	Items         []T                                    `json:"items"`
	Page          int                                    `json:"page"`
	TotalPages    int                                    `json:"totalPages"`
	DisplayPages  int                                    `json:"displayPages"`
	TotalItems    int                                    `json:"totalItems"`
	StoreSize     int                                    `json:"storeSize"`
	HasNext       bool                                   `json:"hasNext"`
	HasPrev       bool                                   `json:"hasPrev"`
	Counts        map[directory.Dimension]map[string]int `json:"counts"`
	TopPerformers []T                                    `json:"topPerformers,omitempty"`
	Banner        *notice.Banner                         `json:"banner,omitempty"`
	Notices       []notice.Notice                        `json:"notices,omitempty"`
	Loading       bool                                   `json:"loading"`
	Loaded        bool                                   `json:"loaded"`
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST
// ══════════════════════════════════════════════════════════════════════════════

// List - владелец одной страницы списка.
type List[T directory.Record] struct {
	kind    directory.Kind
	fetch   func(ctx context.Context) ([]T, error)
	failMsg string
	opts    Options
	logger  *zap.Logger
	board   *notice.Board

	mu      sync.Mutex
	store   []T
	query   listing.Query
	page    int
	loading bool
	loaded  bool
}

func newList[T directory.Record](kind directory.Kind, fetch func(context.Context) ([]T, error), failMsg string, opts Options) *List[T] {
	opts = opts.withDefaults()
	return &List[T]{
		kind:    kind,
		fetch:   fetch,
		failMsg: failMsg,
		opts:    opts,
		logger:  opts.Logger.With(logger.Component("page"), logger.RecordKind(string(kind))),
		board:   notice.NewBoard(opts.Now),
		query:   listing.DefaultQuery(kind),
		page:    1,
	}
}

// Kind возвращает вид записей страницы.
func (l *List[T]) Kind() directory.Kind { return l.kind }

// Board возвращает доску уведомлений страницы.
func (l *List[T]) Board() *notice.Board { return l.board }

// Load загружает хранилище заново. Баннер закрывается в начале загрузки.
// При ошибке хранилище не меняется, поднимается баннер.
func (l *List[T]) Load(ctx context.Context) error {
	l.board.Dismiss()
	l.mu.Lock()
	l.loading = true
	l.mu.Unlock()

	start := l.opts.Now()
	items, err := l.fetch(ctx)
	elapsed := l.opts.Now().Sub(start)

	l.mu.Lock()
	l.loading = false
	if err == nil {
		l.store = items
		l.loaded = true
	}
	l.mu.Unlock()

	l.publish(shared.NewListLoadedEvent(string(l.kind), len(items), elapsed, err))

	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		l.board.Raise(shared.DisplayMessage(err, l.failMsg))
		l.logger.Warn("load failed", logger.Latency(elapsed), zap.Error(err))
		return err
	}
	l.logger.Debug("loaded", logger.Count(len(items)), logger.Latency(elapsed))
	return nil
}

// Loaded сообщает, была ли хоть одна успешная загрузка.
func (l *List[T]) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

// Query возвращает текущий запрос.
func (l *List[T]) Query() listing.Query {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

// UpdateQuery применяет изменения запроса и сбрасывает страницу на первую.
// Неизвестные значения отклоняются, состояние при этом не меняется.
func (l *List[T]) UpdateQuery(p listing.Patch) (listing.Query, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p.IsEmpty() {
		return l.query, nil
	}
	next, err := p.Apply(l.query)
	if err != nil {
		return l.query, err
	}
	l.query = next
	l.page = 1
	return l.query, nil
}

// ClearFilters возвращает запрос к значениям по умолчанию и первую страницу.
func (l *List[T]) ClearFilters() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query = listing.DefaultQuery(l.kind)
	l.page = 1
}

// SetPage устанавливает текущую страницу. Выход за пределы исправляется при отрисовке.
func (l *List[T]) SetPage(n int) error {
	if n < 1 {
		return shared.ErrInvalidPage
	}
	l.mu.Lock()
	l.page = n
	l.mu.Unlock()
	return nil
}

// DismissBanner закрывает баннер ошибки.
func (l *List[T]) DismissBanner() {
	l.board.Dismiss()
}

// Find возвращает запись хранилища по идентификатору.
func (l *List[T]) Find(id string) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var zero T
	if i := directory.IndexOf(l.store, id); i >= 0 {
		return l.store[i], true
	}
	return zero, false
}

// View строит снимок страницы. Текущая страница ограничивается числом страниц.
func (l *List[T]) View() View[T] {
	now := l.opts.Now()

	l.mu.Lock()
	res := listing.Run(l.store, l.query, l.page, now)
	if clamped := listing.ClampPage(l.page, res.Page.TotalPages); clamped != l.page {
		l.page = clamped
		res.Page = listing.Paginate(res.Sorted, clamped)
	}
	v := View[T]{
		Kind:         l.kind,
		Query:        l.query,
		Filtered:     !l.query.IsDefault(),
		Items:        res.Page.Items,
		Page:         res.Page.Number,
		TotalPages:   res.Page.TotalPages,
		DisplayPages: res.Page.DisplayPages(),
		TotalItems:   res.Page.TotalItems,
		StoreSize:    len(l.store),
		HasNext:      res.Page.HasNext(),
		HasPrev:      res.Page.HasPrev(),
		Counts:       listing.OptionCounts(l.kind, l.store, now),
		Loading:      l.loading,
		Loaded:       l.loaded,
	}
	filtered := res.Filtered
	l.mu.Unlock()

	if v.Items == nil {
		v.Items = []T{}
	}
	if b, ok := l.board.Banner(); ok {
		v.Banner = &b
	}
	v.Notices = l.board.Active()
	if !l.opts.HideTopPerformers {
		v.TopPerformers = topPerformers(filtered)
	}
	return v
}

// topPerformers заполняется только для записей со счётчиком рефералов.
func topPerformers[T directory.Record](filtered []T) []T {
	referrers := make([]listing.Referrer, 0, len(filtered))
	for _, r := range filtered {
		ref, ok := any(r).(listing.Referrer)
		if !ok {
			return nil
		}
		referrers = append(referrers, ref)
	}
	top := listing.TopPerformers(referrers, listing.TopPerformersShown)
	out := make([]T, 0, len(top))
	for _, r := range top {
		out = append(out, r.(T))
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// ЛОКАЛЬНЫЕ ИЗМЕНЕНИЯ
// ══════════════════════════════════════════════════════════════════════════════

// replace заменяет запись с идентификатором id. Отсутствующая запись - no-op.
func (l *List[T]) replace(id string, fn func(T) T) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero T
	i := directory.IndexOf(l.store, id)
	if i < 0 {
		return zero, false
	}
	next := slices.Clone(l.store)
	next[i] = fn(next[i])
	l.store = next
	return next[i], true
}

// remove удаляет запись с идентификатором id. Отсутствующая запись - no-op.
func (l *List[T]) remove(id string) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var zero T
	i := directory.IndexOf(l.store, id)
	if i < 0 {
		return zero, false
	}
	removed := l.store[i]
	l.store = slices.Concat(l.store[:i], l.store[i+1:])
	return removed, true
}

// mutationFailed поднимает баннер и публикует событие отказа.
// Отмена контекста баннер не поднимает.
func (l *List[T]) mutationFailed(id, action, banner string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	l.board.Raise(banner)
	l.logger.Warn("mutation failed",
		logger.RecordID(id),
		logger.Operation(action),
		zap.Error(err),
	)
	l.publish(shared.NewMutationFailedEvent(id, action, err.Error(), l.opts.Actor))
	return err
}

func (l *List[T]) publish(e shared.Event) {
	if l.opts.Events == nil {
		return
	}
	if err := l.opts.Events.Publish(e); err != nil {
		l.logger.Debug("event not published", zap.String("event_type", string(e.EventType())), zap.Error(err))
	}
}
