package firestore

import (
	"context"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/schedule"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// PutOverride upserts by (schedule, date): the override key doubles as the
// document ID, so concurrent writers for the same day resolve to
// last-write-wins without a delete/insert window.
func (r *Firestore) PutOverride(ctx context.Context, ov schedule.Override) error {
	if err := ov.Validate(); err != nil {
		return r.eb.Wrap(err, "invalid override", goerr.T(errs.TagValidation))
	}

	_, err := r.db.Collection(collectionOverrides).Doc(ov.Key()).Set(ctx, ov)
	if err != nil {
		return r.eb.Wrap(err, "failed to put override",
			goerr.V("override_key", ov.Key()), goerr.T(errs.TagDatabase))
	}
	return nil
}

// PutOverrides writes the whole batch in one transaction so a mid-range
// failure never leaves a half-applied bulk override.
func (r *Firestore) PutOverrides(ctx context.Context, ovs []schedule.Override) error {
	for i := range ovs {
		if err := ovs[i].Validate(); err != nil {
			return r.eb.Wrap(err, "invalid override in batch",
				goerr.V("index", i), goerr.T(errs.TagValidation))
		}
	}

	err := r.db.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for i := range ovs {
			ref := r.db.Collection(collectionOverrides).Doc(ovs[i].Key())
			if err := tx.Set(ref, ovs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return r.eb.Wrap(err, "failed to put override batch",
			goerr.V("count", len(ovs)), goerr.T(errs.TagDatabase))
	}
	return nil
}

func (r *Firestore) GetOverride(ctx context.Context, id types.OverrideID) (*schedule.Override, error) {
	iter := r.db.Collection(collectionOverrides).Where("ID", "==", id.String()).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, r.eb.New("override not found",
			goerr.V("override_id", id), goerr.T(errs.TagNotFound))
	}
	if err != nil {
		return nil, r.eb.Wrap(err, "failed to query override",
			goerr.V("override_id", id), goerr.T(errs.TagDatabase))
	}

	var ov schedule.Override
	if err := doc.DataTo(&ov); err != nil {
		return nil, r.eb.Wrap(err, "failed to decode override", goerr.T(errs.TagDatabase))
	}
	return &ov, nil
}

func (r *Firestore) GetOverrideByDate(ctx context.Context, scheduleID types.ScheduleID, date time.Time) (*schedule.Override, error) {
	doc, err := r.db.Collection(collectionOverrides).Doc(schedule.OverrideKey(scheduleID, date)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, r.eb.Wrap(err, "failed to get override by date",
			goerr.V("schedule_id", scheduleID), goerr.V("date", date),
			goerr.T(errs.TagDatabase))
	}

	var ov schedule.Override
	if err := doc.DataTo(&ov); err != nil {
		return nil, r.eb.Wrap(err, "failed to decode override", goerr.T(errs.TagDatabase))
	}
	return &ov, nil
}

func (r *Firestore) DeleteOverride(ctx context.Context, id types.OverrideID) error {
	ov, err := r.GetOverride(ctx, id)
	if err != nil {
		return err
	}

	if _, err := r.db.Collection(collectionOverrides).Doc(ov.Key()).Delete(ctx); err != nil {
		return r.eb.Wrap(err, "failed to delete override",
			goerr.V("override_id", id), goerr.T(errs.TagDatabase))
	}
	return nil
}

func (r *Firestore) ListOverrides(ctx context.Context, q schedule.OverrideQuery) ([]*schedule.Override, error) {
	matched, err := r.queryOverrides(ctx, q)
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

func (r *Firestore) CountOverrides(ctx context.Context, q schedule.OverrideQuery) (int, error) {
	matched, err := r.queryOverrides(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

// queryOverrides pushes the equality and range filters to Firestore and
// applies the substring filter in memory; reason substring match has no
// native query operator.
func (r *Firestore) queryOverrides(ctx context.Context, q schedule.OverrideQuery) ([]*schedule.Override, error) {
	if err := q.Validate(); err != nil {
		return nil, r.eb.Wrap(err, "invalid override query", goerr.T(errs.TagValidation))
	}

	query := r.db.Collection(collectionOverrides).Query
	if q.ScheduleID != types.EmptyScheduleID {
		query = query.Where("ScheduleID", "==", q.ScheduleID.String())
	}
	if !q.DateFrom.IsZero() {
		query = query.Where("Date", ">=", q.DateFrom)
	}
	if !q.DateTo.IsZero() {
		query = query.Where("Date", "<=", q.DateTo)
	}
	if q.MemberID != types.EmptyMemberID {
		query = query.Where("MemberID", "==", q.MemberID.String())
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var matched []*schedule.Override
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, r.eb.Wrap(err, "failed to iterate overrides", goerr.T(errs.TagDatabase))
		}

		var ov schedule.Override
		if err := doc.DataTo(&ov); err != nil {
			return nil, r.eb.Wrap(err, "failed to decode override", goerr.T(errs.TagDatabase))
		}
		if q.Reason != "" && !strings.Contains(strings.ToLower(ov.Reason), strings.ToLower(q.Reason)) {
			continue
		}
		matched = append(matched, &ov)
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
