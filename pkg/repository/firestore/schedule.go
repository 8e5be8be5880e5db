package firestore

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/schedule"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (r *Firestore) PutSchedule(ctx context.Context, s schedule.Schedule) error {
	if s.ID == types.EmptyScheduleID {
		return r.eb.New("schedule ID is empty", goerr.T(errs.TagValidation))
	}

	_, err := r.db.Collection(collectionSchedules).Doc(s.ID.String()).Set(ctx, s)
	if err != nil {
		return r.eb.Wrap(err, "failed to put schedule",
			goerr.V("schedule_id", s.ID), goerr.T(errs.TagDatabase))
	}
	return nil
}

func (r *Firestore) GetSchedule(ctx context.Context, id types.ScheduleID) (*schedule.Schedule, error) {
	doc, err := r.db.Collection(collectionSchedules).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, r.eb.New("schedule not found",
				goerr.V("schedule_id", id), goerr.T(errs.TagNotFound))
		}
		return nil, r.eb.Wrap(err, "failed to get schedule",
			goerr.V("schedule_id", id), goerr.T(errs.TagDatabase))
	}

	var s schedule.Schedule
	if err := doc.DataTo(&s); err != nil {
		return nil, r.eb.Wrap(err, "failed to decode schedule",
			goerr.V("schedule_id", id), goerr.T(errs.TagDatabase))
	}
	return &s, nil
}

func (r *Firestore) ListSchedules(ctx context.Context, owner string) ([]*schedule.Schedule, error) {
	query := r.db.Collection(collectionSchedules).Query
	if owner != "" {
		query = query.Where("Owner", "==", owner)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var result []*schedule.Schedule
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, r.eb.Wrap(err, "failed to iterate schedules", goerr.T(errs.TagDatabase))
		}
		var s schedule.Schedule
		if err := doc.DataTo(&s); err != nil {
			return nil, r.eb.Wrap(err, "failed to decode schedule", goerr.T(errs.TagDatabase))
		}
		result = append(result, &s)
	}
	return result, nil
}

func (r *Firestore) DeleteSchedule(ctx context.Context, id types.ScheduleID) error {
	docRef := r.db.Collection(collectionSchedules).Doc(id.String())
	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return r.eb.New("schedule not found",
				goerr.V("schedule_id", id), goerr.T(errs.TagNotFound))
		}
		return r.eb.Wrap(err, "failed to check schedule existence",
			goerr.V("schedule_id", id), goerr.T(errs.TagDatabase))
	}
	if _, err := docRef.Delete(ctx); err != nil {
		return r.eb.Wrap(err, "failed to delete schedule",
			goerr.V("schedule_id", id), goerr.T(errs.TagDatabase))
	}
	return nil
}
