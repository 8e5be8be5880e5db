package rotation

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/interfaces"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/schedule"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

// Service resolves who is on call: the pure rotation math from the schedule
// model combined with override lookups from the repository.
type Service struct {
	repo interfaces.Repository
}

func New(repo interfaces.Repository) *Service {
	return &Service{repo: repo}
}

// ResolveAssignment determines the effective on-call member for one day. An
// override for that day wins over the rotation; the rotation's own member is
// still reported as NominalMember so callers can show what was displaced.
func (x *Service) ResolveAssignment(ctx context.Context, scheduleID types.ScheduleID, date time.Time) (*schedule.Assignment, error) {
	s, err := x.repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	return x.resolve(ctx, s, date)
}

func (x *Service) resolve(ctx context.Context, s *schedule.Schedule, date time.Time) (*schedule.Assignment, error) {
	day := s.Day(date)

	nominal, _ := s.OnCallFor(day)
	assignment := &schedule.Assignment{
		Date:          day,
		Member:        nominal,
		NominalMember: nominal,
	}

	ov, err := x.repo.GetOverrideByDate(ctx, s.ID, day)
	if err != nil {
		return nil, err
	}
	if ov == nil {
		return assignment, nil
	}

	member, ok := s.MemberByID(ov.MemberID)
	if !ok {
		// The override points at a member since removed from the roster.
		// Keep the recorded name so the audit trail stays readable.
		member = &schedule.Member{
			ID:   ov.MemberID,
			Name: ov.MemberName,
		}
	}

	assignment.Member = member
	assignment.IsOverride = true
	assignment.Reason = ov.Reason
	return assignment, nil
}

// Calendar expands the effective assignments for every day in [from, to],
// inclusive on both ends. Overrides for the range are fetched in one query
// rather than per day.
func (x *Service) Calendar(ctx context.Context, scheduleID types.ScheduleID, from, to time.Time) ([]*schedule.Assignment, error) {
	s, err := x.repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	start := s.Day(from)
	end := s.Day(to)
	if end.Before(start) {
		return nil, goerr.New("calendar range end is before start",
			goerr.V("from", start), goerr.V("to", end),
			goerr.T(errs.TagValidation))
	}

	overrides, err := x.repo.ListOverrides(ctx, schedule.OverrideQuery{
		ScheduleID: s.ID,
		DateFrom:   start,
		DateTo:     end,
	})
	if err != nil {
		return nil, err
	}
	byDay := make(map[time.Time]*schedule.Override, len(overrides))
	for _, ov := range overrides {
		byDay[ov.Date] = ov
	}

	var result []*schedule.Assignment
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		nominal, _ := s.OnCallFor(day)
		a := &schedule.Assignment{
			Date:          day,
			Member:        nominal,
			NominalMember: nominal,
		}
		if ov, ok := byDay[day]; ok {
			member, found := s.MemberByID(ov.MemberID)
			if !found {
				member = &schedule.Member{ID: ov.MemberID, Name: ov.MemberName}
			}
			a.Member = member
			a.IsOverride = true
			a.Reason = ov.Reason
		}
		result = append(result, a)
	}
	return result, nil
}
