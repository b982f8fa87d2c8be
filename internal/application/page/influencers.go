package page

import (
	"context"

	"github.com/travy/admin-hub/internal/domain/directory"
	"github.com/travy/admin-hub/internal/domain/notice"
	"github.com/travy/admin-hub/internal/domain/shared"
	"github.com/travy/admin-hub/pkg/logger"
)

// InfluencerGateway - удалённые операции над инфлюенсерами.
type InfluencerGateway interface {
	ListInfluencers(ctx context.Context) ([]*directory.Influencer, error)
	DeleteInfluencer(ctx context.Context, id string) error
}

// Clipboard копирует текст в буфер обмена.
type Clipboard interface {
	WriteAll(text string) error
}

// Influencers - страница управления инфлюенсерами.
type Influencers struct {
	*List[*directory.Influencer]
	gateway InfluencerGateway
}

// NewInfluencers создаёт страницу инфлюенсеров.
func NewInfluencers(gateway InfluencerGateway, opts Options) *Influencers {
	return &Influencers{
		List:    newList(directory.KindInfluencer, gateway.ListInfluencers, notice.MsgLoadInfluencersFailed, opts),
		gateway: gateway,
	}
}

// Delete удаляет инфлюенсера. Без подтверждения ничего не делает.
// Запись убирается из хранилища только после подтверждения бэкендом.
func (p *Influencers) Delete(ctx context.Context, id string, confirmed bool) error {
	if id == "" {
		return shared.ErrInvalidRecordID
	}
	if !confirmed {
		return shared.ErrDeleteNotConfirmed
	}

	if err := p.gateway.DeleteInfluencer(ctx, id); err != nil {
		return p.mutationFailed(id, "delete", notice.MsgDeleteFailed, err)
	}

	name := ""
	if removed, ok := p.remove(id); ok {
		name = removed.Name()
	}
	p.logger.Info("influencer deleted", logger.RecordID(id))
	p.publish(shared.NewInfluencerDeletedEvent(id, name, p.opts.Actor))
	return nil
}

// CopyLink копирует реферальную ссылку инфлюенсера и показывает уведомление.
func (p *Influencers) CopyLink(id string, cb Clipboard) (notice.Notice, error) {
	inf, ok := p.Find(id)
	if !ok {
		return notice.Notice{}, shared.ErrRecordNotFound
	}
	return p.Copy(inf.ReferralLink(), cb), nil
}

// Copy копирует произвольный текст и показывает уведомление об исходе.
func (p *Influencers) Copy(text string, cb Clipboard) notice.Notice {
	var err error
	if text == "" {
		err = shared.ErrEmptyValue
	} else {
		err = cb.WriteAll(text)
	}
	n := notice.CopyOutcome(err, p.opts.Now())
	p.board.Push(n)
	return n
}
