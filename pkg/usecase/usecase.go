package usecase

import (
	"context"

	"github.com/oncall-lab/rota/pkg/domain/interfaces"
	"github.com/oncall-lab/rota/pkg/domain/model/webhook"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"github.com/oncall-lab/rota/pkg/repository/memory"
	"github.com/oncall-lab/rota/pkg/service/dispatcher"
	"github.com/oncall-lab/rota/pkg/service/escalation"
	"github.com/oncall-lab/rota/pkg/service/rotation"
)

// NotifyDispatcher is the outbound notification surface the use cases need:
// fan-out dispatch plus operator-requested redelivery.
type NotifyDispatcher interface {
	Dispatch(ctx context.Context, owner string, ev *webhook.Event) (*dispatcher.Result, error)
	RetryDelivery(ctx context.Context, attemptID types.AttemptID) (*dispatcher.TargetResult, error)
}

type UseCases struct {
	repo       interfaces.Repository
	rotation   *rotation.Service
	dispatcher NotifyDispatcher
	engine     *escalation.Engine
}

type Option func(*UseCases)

func WithRepository(repo interfaces.Repository) Option {
	return func(u *UseCases) {
		u.repo = repo
	}
}

func WithDispatcher(d NotifyDispatcher) Option {
	return func(u *UseCases) {
		u.dispatcher = d
	}
}

func New(opts ...Option) *UseCases {
	u := &UseCases{}
	for _, opt := range opts {
		opt(u)
	}
	if u.repo == nil {
		u.repo = memory.New()
	}
	if u.dispatcher == nil {
		u.dispatcher = dispatcher.New(u.repo)
	}
	u.rotation = rotation.New(u.repo)
	u.engine = escalation.New(u.repo, u.dispatcher, u.rotation)
	return u
}
