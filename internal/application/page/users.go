package page

import (
	"context"

	"go.uber.org/zap"

	"github.com/travy/admin-hub/internal/domain/directory"
	"github.com/travy/admin-hub/internal/domain/notice"
	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/pkg/logger"
)

// UserGateway - удалённые операции над пользователями.
type UserGateway interface {
	ListUsers(ctx context.Context) ([]*directory.User, error)
	BlockUser(ctx context.Context, id string) error
	UnblockUser(ctx context.Context, id string) error
}

// Users - страница управления пользователями.
type Users struct {
	*List[*directory.User]
	gateway UserGateway
}

// NewUsers создаёт страницу пользователей.
func NewUsers(gateway UserGateway, opts Options) *Users {
	return &Users{
		List:    newList(directory.KindUser, gateway.ListUsers, notice.MsgLoadUsersFailed, opts),
		gateway: gateway,
	}
}

// Block блокирует пользователя. Локальная запись меняется только после
// подтверждения бэкендом.
func (p *Users) Block(ctx context.Context, id string) (*directory.User, error) {
	return p.setStatus(ctx, id, directory.StatusBlocked, "block", p.gateway.BlockUser)
}

// Unblock разблокирует пользователя.
func (p *Users) Unblock(ctx context.Context, id string) (*directory.User, error) {
	return p.setStatus(ctx, id, directory.StatusActive, "unblock", p.gateway.UnblockUser)
}

// Toggle блокирует активного пользователя или разблокирует заблокированного.
func (p *Users) Toggle(ctx context.Context, id string) (*directory.User, error) {
	u, ok := p.Find(id)
	if !ok {
		return nil, shared.ErrRecordNotFound
	}
	if u.IsBlocked() {
		return p.Unblock(ctx, id)
	}
	return p.Block(ctx, id)
}

func (p *Users) setStatus(
	ctx context.Context,
	id string,
	status directory.UserStatus,
	action string,
	call func(context.Context, string) error,
) (*directory.User, error) {
	if id == "" {
		return nil, shared.ErrInvalidRecordID
	}

	if err := call(ctx, id); err != nil {
		return nil, p.mutationFailed(id, action, notice.MsgUpdateStatusFailed, err)
	}

	updated, ok := p.replace(id, func(u *directory.User) *directory.User {
		return u.WithStatus(status)
	})
	if !ok {
		// Запись исчезла после перезагрузки списка: бэкенд изменения принял.
		p.logger.Debug("status changed for record not in store", logger.RecordID(id))
	}

	p.logger.Info("user status changed",
		logger.RecordID(id),
		zap.String("status", string(status)),
	)
	p.publish(shared.NewUserStatusChangedEvent(id, string(status), p.opts.Actor))
	return updated, nil
}
