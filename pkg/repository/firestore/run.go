package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/policy"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func (r *Firestore) PutRun(ctx context.Context, run policy.Run) error {
	if run.ID == types.EmptyRunID {
		return r.eb.New("run ID is empty", goerr.T(errs.TagValidation))
	}

	_, err := r.db.Collection(collectionRuns).Doc(run.ID.String()).Set(ctx, run)
	if err != nil {
		return r.eb.Wrap(err, "failed to put run",
			goerr.V("run_id", run.ID), goerr.T(errs.TagDatabase))
	}
	return nil
}

func (r *Firestore) GetRun(ctx context.Context, id types.RunID) (*policy.Run, error) {
	doc, err := r.db.Collection(collectionRuns).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, r.eb.New("run not found",
				goerr.V("run_id", id), goerr.T(errs.TagNotFound))
		}
		return nil, r.eb.Wrap(err, "failed to get run",
			goerr.V("run_id", id), goerr.T(errs.TagDatabase))
	}

	var run policy.Run
	if err := doc.DataTo(&run); err != nil {
		return nil, r.eb.Wrap(err, "failed to decode run",
			goerr.V("run_id", id), goerr.T(errs.TagDatabase))
	}
	return &run, nil
}

func (r *Firestore) ListRunsByStatus(ctx context.Context, status types.RunStatus) ([]*policy.Run, error) {
	iter := r.db.Collection(collectionRuns).
		Where("State.Status", "==", status.String()).
		Documents(ctx)
	defer iter.Stop()

	var result []*policy.Run
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, r.eb.Wrap(err, "failed to iterate runs", goerr.T(errs.TagDatabase))
		}
		var run policy.Run
		if err := doc.DataTo(&run); err != nil {
			return nil, r.eb.Wrap(err, "failed to decode run", goerr.T(errs.TagDatabase))
		}
		result = append(result, &run)
	}
	return result, nil
}

// TransitionRun re-reads the run inside a transaction and writes only if the
// stored state still equals expect. Stateless workers evaluating the same
// tick concurrently collide here and all but one back off with a conflict.
func (r *Firestore) TransitionRun(ctx context.Context, id types.RunID, expect policy.State, apply func(*policy.Run)) (*policy.Run, error) {
	docRef := r.db.Collection(collectionRuns).Doc(id.String())

	var updated policy.Run
	err := r.db.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.New("run not found",
					goerr.V("run_id", id), goerr.T(errs.TagNotFound))
			}
			return goerr.Wrap(err, "failed to get run in transaction",
				goerr.V("run_id", id), goerr.T(errs.TagDatabase))
		}

		var current policy.Run
		if err := doc.DataTo(&current); err != nil {
			return goerr.Wrap(err, "failed to decode run",
				goerr.V("run_id", id), goerr.T(errs.TagDatabase))
		}

		if !current.State.Equal(expect) {
			return goerr.New("run state changed concurrently",
				goerr.V("run_id", id),
				goerr.V("expect_level", expect.LevelIndex),
				goerr.V("actual_level", current.State.LevelIndex),
				goerr.T(errs.TagConflict))
		}

		apply(&current)
		updated = current
		return tx.Set(docRef, current)
	})
	if err != nil {
		return nil, r.eb.Wrap(err, "run transition failed", goerr.V("run_id", id))
	}
	return &updated, nil
}
