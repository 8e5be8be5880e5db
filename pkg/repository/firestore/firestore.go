package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/interfaces"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
)

type Firestore struct {
	db *firestore.Client
	eb *goerr.Builder
}

var _ interfaces.Repository = &Firestore{}

func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	db, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	return &Firestore{
		db: db,
		eb: goerr.NewBuilder(
			goerr.TV(errs.RepositoryKey, "firestore"),
			goerr.V("project_id", projectID),
			goerr.V("database_id", databaseID),
		),
	}, nil
}

func (r *Firestore) Close() error {
	return r.db.Close()
}

const (
	collectionSchedules = "schedules"
	collectionOverrides = "overrides"
	collectionPolicies  = "policies"
	collectionRuns      = "runs"
	collectionTargets   = "targets"
	collectionAttempts  = "attempts"
)

// extractCount unwraps a Firestore aggregation result, which the client
// returns either as an int64 or a *firestorepb.Value depending on version.
func extractCount(result firestore.AggregationResult, alias string) (int, error) {
	countVal, ok := result[alias]
	if !ok {
		return 0, goerr.New("count alias not found in aggregation result",
			goerr.V("alias", alias), goerr.T(errs.TagInternal))
	}

	switch v := countVal.(type) {
	case int64:
		return int(v), nil
	case *firestorepb.Value:
		if v != nil && v.ValueType != nil {
			if _, okType := v.ValueType.(*firestorepb.Value_IntegerValue); okType {
				return int(v.GetIntegerValue()), nil
			}
		}
		return 0, goerr.New("count value is not an integer",
			goerr.V("alias", alias), goerr.T(errs.TagInternal))
	default:
		return 0, goerr.New("unexpected count value type from Firestore aggregation",
			goerr.V("type", fmt.Sprintf("%T", v)), goerr.V("alias", alias),
			goerr.T(errs.TagInternal))
	}
}
