package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/webhook"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (r *Firestore) PutTarget(ctx context.Context, t webhook.Target) error {
	if t.ID == types.EmptyTargetID {
		return r.eb.New("target ID is empty", goerr.T(errs.TagValidation))
	}

	_, err := r.db.Collection(collectionTargets).Doc(t.ID.String()).Set(ctx, t)
	if err != nil {
		return r.eb.Wrap(err, "failed to put target",
			goerr.V("target_id", t.ID), goerr.T(errs.TagDatabase))
	}
	return nil
}

func (r *Firestore) GetTarget(ctx context.Context, id types.TargetID) (*webhook.Target, error) {
	doc, err := r.db.Collection(collectionTargets).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, r.eb.New("target not found",
				goerr.V("target_id", id), goerr.T(errs.TagNotFound))
		}
		return nil, r.eb.Wrap(err, "failed to get target",
			goerr.V("target_id", id), goerr.T(errs.TagDatabase))
	}

	var t webhook.Target
	if err := doc.DataTo(&t); err != nil {
		return nil, r.eb.Wrap(err, "failed to decode target",
			goerr.V("target_id", id), goerr.T(errs.TagDatabase))
	}
	return &t, nil
}

func (r *Firestore) ListTargetsByOwner(ctx context.Context, owner string) ([]*webhook.Target, error) {
	iter := r.db.Collection(collectionTargets).
		Where("Owner", "==", owner).
		Documents(ctx)
	defer iter.Stop()

	var result []*webhook.Target
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, r.eb.Wrap(err, "failed to iterate targets", goerr.T(errs.TagDatabase))
		}
		var t webhook.Target
		if err := doc.DataTo(&t); err != nil {
			return nil, r.eb.Wrap(err, "failed to decode target", goerr.T(errs.TagDatabase))
		}
		result = append(result, &t)
	}
	return result, nil
}

func (r *Firestore) DeleteTarget(ctx context.Context, id types.TargetID) error {
	docRef := r.db.Collection(collectionTargets).Doc(id.String())
	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return r.eb.New("target not found",
				goerr.V("target_id", id), goerr.T(errs.TagNotFound))
		}
		return r.eb.Wrap(err, "failed to check target existence",
			goerr.V("target_id", id), goerr.T(errs.TagDatabase))
	}
	if _, err := docRef.Delete(ctx); err != nil {
		return r.eb.Wrap(err, "failed to delete target",
			goerr.V("target_id", id), goerr.T(errs.TagDatabase))
	}
	return nil
}

// PutAttempt appends one immutable ledger row; Create fails on an existing
// document instead of silently overwriting history.
func (r *Firestore) PutAttempt(ctx context.Context, a webhook.Attempt) error {
	if err := a.Validate(); err != nil {
		return r.eb.Wrap(err, "invalid delivery attempt", goerr.T(errs.TagValidation))
	}

	_, err := r.db.Collection(collectionAttempts).Doc(a.ID.String()).Create(ctx, a)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return r.eb.New("delivery attempt already recorded",
				goerr.V("attempt_id", a.ID), goerr.T(errs.TagConflict))
		}
		return r.eb.Wrap(err, "failed to record delivery attempt",
			goerr.V("attempt_id", a.ID), goerr.T(errs.TagDatabase))
	}
	return nil
}

func (r *Firestore) GetAttempt(ctx context.Context, id types.AttemptID) (*webhook.Attempt, error) {
	doc, err := r.db.Collection(collectionAttempts).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, r.eb.New("delivery attempt not found",
				goerr.V("attempt_id", id), goerr.T(errs.TagNotFound))
		}
		return nil, r.eb.Wrap(err, "failed to get delivery attempt",
			goerr.V("attempt_id", id), goerr.T(errs.TagDatabase))
	}

	var a webhook.Attempt
	if err := doc.DataTo(&a); err != nil {
		return nil, r.eb.Wrap(err, "failed to decode delivery attempt",
			goerr.V("attempt_id", id), goerr.T(errs.TagDatabase))
	}
	return &a, nil
}

func (r *Firestore) ListAttemptsByDelivery(ctx context.Context, deliveryID types.DeliveryID) ([]*webhook.Attempt, error) {
	iter := r.db.Collection(collectionAttempts).
		Where("DeliveryID", "==", deliveryID.String()).
		OrderBy("AttemptNumber", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var result []*webhook.Attempt
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, r.eb.Wrap(err, "failed to iterate delivery attempts",
				goerr.V("delivery_id", deliveryID), goerr.T(errs.TagDatabase))
		}
		var a webhook.Attempt
		if err := doc.DataTo(&a); err != nil {
			return nil, r.eb.Wrap(err, "failed to decode delivery attempt", goerr.T(errs.TagDatabase))
		}
		result = append(result, &a)
	}
	return result, nil
}

func (r *Firestore) ListAttemptsByOwner(ctx context.Context, owner string, offset, limit int) ([]*webhook.Attempt, error) {
	query := r.db.Collection(collectionAttempts).
		Where("Owner", "==", owner).
		OrderBy("CreatedAt", firestore.Desc)
	if offset > 0 {
		query = query.Offset(offset)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var result []*webhook.Attempt
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, r.eb.Wrap(err, "failed to iterate delivery attempts",
				goerr.V("owner", owner), goerr.T(errs.TagDatabase))
		}
		var a webhook.Attempt
		if err := doc.DataTo(&a); err != nil {
			return nil, r.eb.Wrap(err, "failed to decode delivery attempt", goerr.T(errs.TagDatabase))
		}
		result = append(result, &a)
	}
	return result, nil
}

func (r *Firestore) CountAttemptsByOwner(ctx context.Context, owner string) (int, error) {
	query := r.db.Collection(collectionAttempts).Where("Owner", "==", owner)
	aggr := query.NewAggregationQuery().WithCount("total")
	result, err := aggr.Get(ctx)
	if err != nil {
		return 0, r.eb.Wrap(err, "failed to count delivery attempts",
			goerr.V("owner", owner), goerr.T(errs.TagDatabase))
	}

	return extractCount(result, "total")
}
