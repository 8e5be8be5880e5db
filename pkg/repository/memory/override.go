package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/schedule"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

func (r *Memory) PutOverride(ctx context.Context, ov schedule.Override) error {
	r.overrideMu.Lock()
	defer r.overrideMu.Unlock()

	if err := ov.Validate(); err != nil {
		return r.eb.Wrap(err, "invalid override", goerr.T(errs.TagValidation))
	}

	// Upsert by (schedule, date): a second write for the same key replaces
	// the prior row, it never duplicates it.
	copied := ov
	r.overrides[ov.Key()] = &copied
	return nil
}

func (r *Memory) PutOverrides(ctx context.Context, ovs []schedule.Override) error {
	r.overrideMu.Lock()
	defer r.overrideMu.Unlock()

	// Validate the entire batch before touching the map so a bad row cannot
	// leave a half-applied range.
	for i := range ovs {
		if err := ovs[i].Validate(); err != nil {
			return r.eb.Wrap(err, "invalid override in batch",
				goerr.V("index", i), goerr.T(errs.TagValidation))
		}
	}
	for i := range ovs {
		copied := ovs[i]
		r.overrides[copied.Key()] = &copied
	}
	return nil
}

func (r *Memory) GetOverride(ctx context.Context, id types.OverrideID) (*schedule.Override, error) {
	r.overrideMu.RLock()
	defer r.overrideMu.RUnlock()

	for _, ov := range r.overrides {
		if ov.ID == id {
			copied := *ov
			return &copied, nil
		}
	}
	return nil, r.eb.New("override not found",
		goerr.V("override_id", id), goerr.T(errs.TagNotFound))
}

func (r *Memory) GetOverrideByDate(ctx context.Context, scheduleID types.ScheduleID, date time.Time) (*schedule.Override, error) {
	r.overrideMu.RLock()
	defer r.overrideMu.RUnlock()

	ov, ok := r.overrides[schedule.OverrideKey(scheduleID, date)]
	if !ok {
		return nil, nil
	}
	copied := *ov
	return &copied, nil
}

func (r *Memory) DeleteOverride(ctx context.Context, id types.OverrideID) error {
	r.overrideMu.Lock()
	defer r.overrideMu.Unlock()

	for key, ov := range r.overrides {
		if ov.ID == id {
			delete(r.overrides, key)
			return nil
		}
	}
	return r.eb.New("override not found",
		goerr.V("override_id", id), goerr.T(errs.TagNotFound))
}

func (r *Memory) ListOverrides(ctx context.Context, q schedule.OverrideQuery) ([]*schedule.Override, error) {
	matched, err := r.matchOverrides(q)
	if err != nil {
		return nil, err
	}

	sortOverrides(matched, q.SortBy, q.Descending)

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

func (r *Memory) CountOverrides(ctx context.Context, q schedule.OverrideQuery) (int, error) {
	matched, err := r.matchOverrides(q)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

func (r *Memory) matchOverrides(q schedule.OverrideQuery) ([]*schedule.Override, error) {
	if err := q.Validate(); err != nil {
		return nil, r.eb.Wrap(err, "invalid override query", goerr.T(errs.TagValidation))
	}

	r.overrideMu.RLock()
	defer r.overrideMu.RUnlock()

	var matched []*schedule.Override
	for _, ov := range r.overrides {
		if q.ScheduleID != types.EmptyScheduleID && ov.ScheduleID != q.ScheduleID {
			continue
		}
		if !q.DateFrom.IsZero() && ov.Date.Before(q.DateFrom) {
			continue
		}
		if !q.DateTo.IsZero() && ov.Date.After(q.DateTo) {
			continue
		}
		if q.MemberID != types.EmptyMemberID && ov.MemberID != q.MemberID {
			continue
		}
		if q.Reason != "" && !strings.Contains(strings.ToLower(ov.Reason), strings.ToLower(q.Reason)) {
			continue
		}
		copied := *ov
		matched = append(matched, &copied)
	}
	return matched, nil
}

func sortOverrides(ovs []*schedule.Override, key schedule.OverrideSortKey, descending bool) {
	less := func(i, j int) bool {
		switch key {
		case schedule.OverrideSortOverrideDate:
			if !ovs[i].Date.Equal(ovs[j].Date) {
				return ovs[i].Date.Before(ovs[j].Date)
			}
		case schedule.OverrideSortMemberName:
			if ovs[i].MemberName != ovs[j].MemberName {
				return ovs[i].MemberName < ovs[j].MemberName
			}
		default: // created_at
			if !ovs[i].CreatedAt.Equal(ovs[j].CreatedAt) {
				return ovs[i].CreatedAt.Before(ovs[j].CreatedAt)
			}
		}
		return ovs[i].ID < ovs[j].ID
	}

	if descending {
		sort.Slice(ovs, func(i, j int) bool { return less(j, i) })
	} else {
		sort.Slice(ovs, less)
	}
}
