package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/policy"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

// TriggerEscalation starts a run for the policy and notifies its first level.
func (u *UseCases) TriggerEscalation(ctx context.Context, policyID types.PolicyID, refID string, severity types.Severity) (*policy.Run, error) {
	if refID == "" {
		return nil, goerr.New("trigger reference is required", goerr.T(errs.TagInvalidRequest))
	}
	if severity == "" {
		severity = types.SeverityUnknown
	}
	if err := severity.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid severity", goerr.T(errs.TagInvalidRequest))
	}
	return u.engine.Trigger(ctx, policyID, refID, severity)
}

// AcknowledgeEscalation terminates a run. Repeat acknowledgements are no-ops.
func (u *UseCases) AcknowledgeEscalation(ctx context.Context, runID types.RunID, by string) (*policy.Run, error) {
	return u.engine.Acknowledge(ctx, runID, by)
}

// TickEscalations advances every active run whose level timed out.
func (u *UseCases) TickEscalations(ctx context.Context) error {
	return u.engine.Tick(ctx)
}

func (u *UseCases) GetRun(ctx context.Context, id types.RunID) (*policy.Run, error) {
	return u.repo.GetRun(ctx, id)
}

func (u *UseCases) ListRunsByStatus(ctx context.Context, status types.RunStatus) ([]*policy.Run, error) {
	if err := status.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid run status", goerr.T(errs.TagInvalidRequest))
	}
	return u.repo.ListRunsByStatus(ctx, status)
}
