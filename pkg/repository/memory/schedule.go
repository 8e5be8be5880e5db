package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/schedule"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

func (r *Memory) PutSchedule(ctx context.Context, s schedule.Schedule) error {
	r.scheduleMu.Lock()
	defer r.scheduleMu.Unlock()

	if s.ID == types.EmptyScheduleID {
		return r.eb.New("schedule ID is empty", goerr.T(errs.TagValidation))
	}

	copied := s
	copied.Members = append([]schedule.Member(nil), s.Members...)
	r.schedules[s.ID] = &copied
	return nil
}

func (r *Memory) GetSchedule(ctx context.Context, id types.ScheduleID) (*schedule.Schedule, error) {
	r.scheduleMu.RLock()
	defer r.scheduleMu.RUnlock()

	s, ok := r.schedules[id]
	if !ok {
		return nil, r.eb.New("schedule not found",
			goerr.V("schedule_id", id), goerr.T(errs.TagNotFound))
	}

	copied := *s
	copied.Members = append([]schedule.Member(nil), s.Members...)
	return &copied, nil
}

func (r *Memory) ListSchedules(ctx context.Context, owner string) ([]*schedule.Schedule, error) {
	r.scheduleMu.RLock()
	defer r.scheduleMu.RUnlock()

	var result []*schedule.Schedule
	for _, s := range r.schedules {
		if owner != "" && s.Owner != owner {
			continue
		}
		copied := *s
		copied.Members = append([]schedule.Member(nil), s.Members...)
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *Memory) DeleteSchedule(ctx context.Context, id types.ScheduleID) error {
	r.scheduleMu.Lock()
	defer r.scheduleMu.Unlock()

	if _, ok := r.schedules[id]; !ok {
		return r.eb.New("schedule not found",
			goerr.V("schedule_id", id), goerr.T(errs.TagNotFound))
	}
	delete(r.schedules, id)
	return nil
}
