package query

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/travy/admin-hub/internal/domain/directory"
	"github.com/travy/admin-hub/internal/domain/listing"
	"github.com/travy/admin-hub/internal/domain/notice"
	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// INFLUENCER DASHBOARD QUERY
// Кабинет инфлюенсера: собственный профиль и приведённые им пользователи
// постранично.
// ══════════════════════════════════════════════════════════════════════════════

// InfluencerDashboardQuery содержит параметры запроса кабинета.
type InfluencerDashboardQuery struct {
	// Page - номер страницы рефералов (по умолчанию 1).
	Page int
}

// Validate проверяет корректность параметров запроса.
func (q *InfluencerDashboardQuery) Validate() error {
	if q.Page < 0 {
		return shared.ErrInvalidPage
	}
	if q.Page == 0 {
		q.Page = 1
	}
	return nil
}

// InfluencerDashboardResult содержит кабинет инфлюенсера.
type InfluencerDashboardResult struct {
	// Profile - профиль; пустой, если бэкенд вернул null.
	Profile directory.Profile `json:"profile"`

	// Referrals - текущая страница приведённых пользователей.
	Referrals []*directory.User `json:"referrals"`

	// Page - текущая страница после ограничения числом страниц.
	Page int `json:"page"`

	// TotalPages - число страниц.
	TotalPages int `json:"totalPages"`

	// TotalReferrals - всего приведённых пользователей.
	TotalReferrals int `json:"totalReferrals"`
}

// InfluencerAccount - источники данных кабинета.
type InfluencerAccount interface {
	InfluencerProfile(ctx context.Context) (directory.Profile, error)
	ReferredUsers(ctx context.Context) ([]*directory.User, error)
}

// InfluencerDashboardHandler строит кабинет инфлюенсера.
type InfluencerDashboardHandler struct {
	source InfluencerAccount
	logger *zap.Logger
}

// NewInfluencerDashboardHandler создаёт обработчик кабинета.
func NewInfluencerDashboardHandler(source InfluencerAccount, log *zap.Logger) *InfluencerDashboardHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &InfluencerDashboardHandler{
		source: source,
		logger: log.With(logger.Component("influencer_dashboard")),
	}
}

// Handle выполняет запрос. Профиль и рефералы загружаются параллельно.
func (h *InfluencerDashboardHandler) Handle(ctx context.Context, q InfluencerDashboardQuery) (*InfluencerDashboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	var (
		profile  directory.Profile
		referred []*directory.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profile, err = h.source.InfluencerProfile(gctx)
		return err
	})
	g.Go(func() (err error) {
		referred, err = h.source.ReferredUsers(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		h.logger.Warn("dashboard load failed", zap.Error(err))
		return nil, shared.WrapError("query", "InfluencerDashboard", shared.ErrExternalService,
			notice.MsgLoadDashboardFailed, err)
	}

	page := listing.Paginate(referred, listing.ClampPage(q.Page, listing.TotalPages(len(referred))))
	items := page.Items
	if items == nil {
		items = []*directory.User{}
	}
	return &InfluencerDashboardResult{
		Profile:        profile,
		Referrals:      items,
		Page:           page.Number,
		TotalPages:     page.DisplayPages(),
		TotalReferrals: page.TotalItems,
	}, nil
}
