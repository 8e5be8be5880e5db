package usecase

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/schedule"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"github.com/oncall-lab/rota/pkg/utils/clock"
)

// CreateSchedule registers a new rotation schedule. Member IDs are assigned
// here; callers provide names, contacts and rotation order.
func (u *UseCases) CreateSchedule(ctx context.Context, s schedule.Schedule) (*schedule.Schedule, error) {
	now := clock.Now(ctx)
	s.ID = types.NewScheduleID()
	s.CreatedAt = now
	s.UpdatedAt = now
	for i := range s.Members {
		if s.Members[i].ID == types.EmptyMemberID {
			s.Members[i].ID = types.NewMemberID()
		}
	}
	if s.AnchorDate.IsZero() {
		s.AnchorDate = now
	}

	if err := s.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid schedule", goerr.T(errs.TagValidation))
	}
	if err := u.repo.PutSchedule(ctx, s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (u *UseCases) UpdateSchedule(ctx context.Context, s schedule.Schedule) (*schedule.Schedule, error) {
	current, err := u.repo.GetSchedule(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = current.CreatedAt
	s.UpdatedAt = clock.Now(ctx)
	for i := range s.Members {
		if s.Members[i].ID == types.EmptyMemberID {
			s.Members[i].ID = types.NewMemberID()
		}
	}

	if err := s.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid schedule", goerr.T(errs.TagValidation))
	}
	if err := u.repo.PutSchedule(ctx, s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (u *UseCases) GetSchedule(ctx context.Context, id types.ScheduleID) (*schedule.Schedule, error) {
	return u.repo.GetSchedule(ctx, id)
}

func (u *UseCases) ListSchedules(ctx context.Context, owner string) ([]*schedule.Schedule, error) {
	return u.repo.ListSchedules(ctx, owner)
}

func (u *UseCases) DeleteSchedule(ctx context.Context, id types.ScheduleID) error {
	return u.repo.DeleteSchedule(ctx, id)
}

// WhoIsOnCall resolves the effective on-call member for the given moment.
func (u *UseCases) WhoIsOnCall(ctx context.Context, scheduleID types.ScheduleID, at time.Time) (*schedule.Assignment, error) {
	return u.rotation.ResolveAssignment(ctx, scheduleID, at)
}

// Calendar expands the effective day-by-day assignments for [from, to].
func (u *UseCases) Calendar(ctx context.Context, scheduleID types.ScheduleID, from, to time.Time) ([]*schedule.Assignment, error) {
	return u.rotation.Calendar(ctx, scheduleID, from, to)
}
