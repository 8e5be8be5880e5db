package firestore

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/policy"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (r *Firestore) PutPolicy(ctx context.Context, p policy.Policy) error {
	if p.ID == types.EmptyPolicyID {
		return r.eb.New("policy ID is empty", goerr.T(errs.TagValidation))
	}

	_, err := r.db.Collection(collectionPolicies).Doc(p.ID.String()).Set(ctx, p)
	if err != nil {
		return r.eb.Wrap(err, "failed to put policy",
			goerr.V("policy_id", p.ID), goerr.T(errs.TagDatabase))
	}
	return nil
}

func (r *Firestore) GetPolicy(ctx context.Context, id types.PolicyID) (*policy.Policy, error) {
	doc, err := r.db.Collection(collectionPolicies).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, r.eb.New("policy not found",
				goerr.V("policy_id", id), goerr.T(errs.TagNotFound))
		}
		return nil, r.eb.Wrap(err, "failed to get policy",
			goerr.V("policy_id", id), goerr.T(errs.TagDatabase))
	}

	var p policy.Policy
	if err := doc.DataTo(&p); err != nil {
		return nil, r.eb.Wrap(err, "failed to decode policy",
			goerr.V("policy_id", id), goerr.T(errs.TagDatabase))
	}
	return &p, nil
}

func (r *Firestore) ListPolicies(ctx context.Context, owner string) ([]*policy.Policy, error) {
	query := r.db.Collection(collectionPolicies).Query
	if owner != "" {
		query = query.Where("Owner", "==", owner)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var result []*policy.Policy
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, r.eb.Wrap(err, "failed to iterate policies", goerr.T(errs.TagDatabase))
		}
		var p policy.Policy
		if err := doc.DataTo(&p); err != nil {
			return nil, r.eb.Wrap(err, "failed to decode policy", goerr.T(errs.TagDatabase))
		}
		result = append(result, &p)
	}
	return result, nil
}

func (r *Firestore) DeletePolicy(ctx context.Context, id types.PolicyID) error {
	docRef := r.db.Collection(collectionPolicies).Doc(id.String())
	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return r.eb.New("policy not found",
				goerr.V("policy_id", id), goerr.T(errs.TagNotFound))
		}
		return r.eb.Wrap(err, "failed to check policy existence",
			goerr.V("policy_id", id), goerr.T(errs.TagDatabase))
	}
	if _, err := docRef.Delete(ctx); err != nil {
		return r.eb.Wrap(err, "failed to delete policy",
			goerr.V("policy_id", id), goerr.T(errs.TagDatabase))
	}
	return nil
}
