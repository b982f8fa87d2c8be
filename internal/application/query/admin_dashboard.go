// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/travy/admin-hub/internal/domain/directory"
	"github.com/travy/admin-hub/internal/domain/notice"
	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN DASHBOARD QUERY
// Сводка для главной страницы администратора: число пользователей и
// инфлюенсеров и список лучших инфлюенсеров. Три запроса идут параллельно.
// ══════════════════════════════════════════════════════════════════════════════

// AdminDashboardResult содержит сводку администратора.
type AdminDashboardResult struct {
	// TotalUsers - число пользователей платформы.
	TotalUsers int `json:"totalUsers"`

	// TotalInfluencers - число инфлюенсеров.
	TotalInfluencers int `json:"totalInfluencers"`

	// TopInfluencers - лучшие инфлюенсеры в порядке бэкенда.
	TopInfluencers []*directory.Influencer `json:"topInfluencers"`

	// GeneratedAt - время построения сводки.
	GeneratedAt time.Time `json:"generatedAt"`
}

// AdminDirectory - источники данных сводки.
type AdminDirectory interface {
	ListUsers(ctx context.Context) ([]*directory.User, error)
	ListInfluencers(ctx context.Context) ([]*directory.Influencer, error)
	TopInfluencers(ctx context.Context) ([]*directory.Influencer, error)
}

// AdminDashboardHandler строит сводку администратора.
type AdminDashboardHandler struct {
	source AdminDirectory
	now    func() time.Time
	logger *zap.Logger
}

// NewAdminDashboardHandler создаёт обработчик сводки.
func NewAdminDashboardHandler(source AdminDirectory, now func() time.Time, log *zap.Logger) *AdminDashboardHandler {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminDashboardHandler{
		source: source,
		now:    now,
		logger: log.With(logger.Component("admin_dashboard")),
	}
}

// Handle выполняет запрос. Ошибка любого из трёх запросов отменяет остальные;
// отображаемый текст - сообщение сервера или "Failed to load dashboard data".
func (h *AdminDashboardHandler) Handle(ctx context.Context) (*AdminDashboardResult, error) {
	var (
		users       []*directory.User
		influencers []*directory.Influencer
		top         []*directory.Influencer
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = h.source.ListUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		influencers, err = h.source.ListInfluencers(gctx)
		return err
	})
	g.Go(func() (err error) {
		top, err = h.source.TopInfluencers(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		h.logger.Warn("dashboard load failed", zap.Error(err))
		return nil, shared.WrapError("query", "AdminDashboard", shared.ErrExternalService,
			notice.MsgLoadDashboardFailed, err)
	}

	if top == nil {
		top = []*directory.Influencer{}
	}
	return &AdminDashboardResult{
		TotalUsers:       len(users),
		TotalInfluencers: len(influencers),
		TopInfluencers:   top,
		GeneratedAt:      h.now(),
	}, nil
}
