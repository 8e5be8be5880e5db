package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/policy"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"github.com/oncall-lab/rota/pkg/utils/clock"
)

// CreatePolicy registers an escalation policy. Every schedule-backed level
// must reference an existing schedule; dangling references are rejected at
// write time rather than discovered mid-escalation.
func (u *UseCases) CreatePolicy(ctx context.Context, p policy.Policy) (*policy.Policy, error) {
	now := clock.Now(ctx)
	p.ID = types.NewPolicyID()
	p.CreatedAt = now
	p.UpdatedAt = now
	for i := range p.Levels {
		if p.Levels[i].ID == types.EmptyLevelID {
			p.Levels[i].ID = types.NewLevelID()
		}
	}

	if err := u.validatePolicy(ctx, &p); err != nil {
		return nil, err
	}
	if err := u.repo.PutPolicy(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (u *UseCases) UpdatePolicy(ctx context.Context, p policy.Policy) (*policy.Policy, error) {
	current, err := u.repo.GetPolicy(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = clock.Now(ctx)
	for i := range p.Levels {
		if p.Levels[i].ID == types.EmptyLevelID {
			p.Levels[i].ID = types.NewLevelID()
		}
	}

	if err := u.validatePolicy(ctx, &p); err != nil {
		return nil, err
	}
	if err := u.repo.PutPolicy(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (u *UseCases) validatePolicy(ctx context.Context, p *policy.Policy) error {
	if err := p.Validate(); err != nil {
		return goerr.Wrap(err, "invalid policy", goerr.T(errs.TagValidation))
	}
	for _, lvl := range p.Levels {
		if lvl.ScheduleID == types.EmptyScheduleID {
			continue
		}
		if _, err := u.repo.GetSchedule(ctx, lvl.ScheduleID); err != nil {
			return goerr.Wrap(err, "level references an unknown schedule",
				goerr.V("level_order", lvl.Order),
				goerr.V("schedule_id", lvl.ScheduleID),
				goerr.T(errs.TagValidation))
		}
	}
	return nil
}

func (u *UseCases) GetPolicy(ctx context.Context, id types.PolicyID) (*policy.Policy, error) {
	return u.repo.GetPolicy(ctx, id)
}

func (u *UseCases) ListPolicies(ctx context.Context, owner string) ([]*policy.Policy, error) {
	return u.repo.ListPolicies(ctx, owner)
}

func (u *UseCases) DeletePolicy(ctx context.Context, id types.PolicyID) error {
	return u.repo.DeletePolicy(ctx, id)
}
