package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/webhook"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"github.com/oncall-lab/rota/pkg/utils/clock"
)

func (u *UseCases) CreateTarget(ctx context.Context, t webhook.Target) (*webhook.Target, error) {
	now := clock.Now(ctx)
	t.ID = types.NewTargetID()
	t.CreatedAt = now
	t.UpdatedAt = now
	if len(t.Events) == 0 {
		t.Events = []types.EventType{types.EventTypeEscalation}
	}

	if err := t.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid notification target", goerr.T(errs.TagValidation))
	}
	if err := u.repo.PutTarget(ctx, t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTarget replaces a target's configuration. An empty Secret keeps the
// stored one; secrets are write-only through the API and never echoed back.
func (u *UseCases) UpdateTarget(ctx context.Context, t webhook.Target) (*webhook.Target, error) {
	current, err := u.repo.GetTarget(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = current.CreatedAt
	t.UpdatedAt = clock.Now(ctx)
	if t.Secret == "" {
		t.Secret = current.Secret
	}

	if err := t.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid notification target", goerr.T(errs.TagValidation))
	}
	if err := u.repo.PutTarget(ctx, t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (u *UseCases) GetTarget(ctx context.Context, id types.TargetID) (*webhook.Target, error) {
	return u.repo.GetTarget(ctx, id)
}

func (u *UseCases) ListTargets(ctx context.Context, owner string) ([]*webhook.Target, error) {
	return u.repo.ListTargetsByOwner(ctx, owner)
}

func (u *UseCases) DeleteTarget(ctx context.Context, id types.TargetID) error {
	return u.repo.DeleteTarget(ctx, id)
}
