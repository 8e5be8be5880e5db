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

// OverrideInput is one requested override day.
type OverrideInput struct {
	ScheduleID types.ScheduleID
	Date       time.Time
	MemberID   types.MemberID
	Reason     string
	CreatedBy  string
}

// BulkOverrideInput requests one member covering every day of an inclusive
// date range, written atomically.
type BulkOverrideInput struct {
	ScheduleID types.ScheduleID
	DateFrom   time.Time
	DateTo     time.Time
	MemberID   types.MemberID
	Reason     string
	CreatedBy  string
}

// SetOverride upserts the override for one (schedule, date). The member must
// belong to the schedule's roster; the member name is denormalized into the
// override so the audit log survives roster edits.
func (u *UseCases) SetOverride(ctx context.Context, in OverrideInput) (*schedule.Override, error) {
	s, err := u.repo.GetSchedule(ctx, in.ScheduleID)
	if err != nil {
		return nil, err
	}

	ov, err := buildOverride(ctx, s, in)
	if err != nil {
		return nil, err
	}
	if err := u.repo.PutOverride(ctx, *ov); err != nil {
		return nil, err
	}
	return ov, nil
}

// SetBulkOverride writes one override per day of [DateFrom, DateTo]. The
// whole range is validated up front and committed atomically; a bad day
// anywhere leaves the store untouched.
func (u *UseCases) SetBulkOverride(ctx context.Context, in BulkOverrideInput) ([]*schedule.Override, error) {
	s, err := u.repo.GetSchedule(ctx, in.ScheduleID)
	if err != nil {
		return nil, err
	}

	from := s.Day(in.DateFrom)
	to := s.Day(in.DateTo)
	if to.Before(from) {
		return nil, goerr.New("override range end is before start",
			goerr.V("from", from), goerr.V("to", to), goerr.T(errs.TagValidation))
	}

	var rows []schedule.Override
	var result []*schedule.Override
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		ov, err := buildOverride(ctx, s, OverrideInput{
			ScheduleID: in.ScheduleID,
			Date:       day,
			MemberID:   in.MemberID,
			Reason:     in.Reason,
			CreatedBy:  in.CreatedBy,
		})
		if err != nil {
			return nil, err
		}
		rows = append(rows, *ov)
		result = append(result, ov)
	}

	if err := u.repo.PutOverrides(ctx, rows); err != nil {
		return nil, err
	}
	return result, nil
}

func buildOverride(ctx context.Context, s *schedule.Schedule, in OverrideInput) (*schedule.Override, error) {
	member, ok := s.MemberByID(in.MemberID)
	if !ok {
		return nil, goerr.New("member is not on the schedule roster",
			goerr.V("schedule_id", s.ID), goerr.V("member_id", in.MemberID),
			goerr.T(errs.TagValidation))
	}
	if in.Date.IsZero() {
		return nil, goerr.New("override date is required", goerr.T(errs.TagValidation))
	}

	ov := schedule.Override{
		ID:         types.NewOverrideID(),
		ScheduleID: s.ID,
		Date:       s.Day(in.Date),
		MemberID:   member.ID,
		MemberName: member.Name,
		Reason:     in.Reason,
		CreatedAt:  clock.Now(ctx),
		CreatedBy:  in.CreatedBy,
	}
	if err := ov.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid override", goerr.T(errs.TagValidation))
	}
	return &ov, nil
}

func (u *UseCases) RemoveOverride(ctx context.Context, id types.OverrideID) error {
	return u.repo.DeleteOverride(ctx, id)
}

// QueryOverrides reads the override audit log with filtering, sorting and
// pagination, returning the page plus the filtered total.
func (u *UseCases) QueryOverrides(ctx context.Context, q schedule.OverrideQuery) ([]*schedule.Override, int, error) {
	if err := q.Validate(); err != nil {
		return nil, 0, goerr.Wrap(err, "invalid override query", goerr.T(errs.TagInvalidRequest))
	}

	rows, err := u.repo.ListOverrides(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	total, err := u.repo.CountOverrides(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
