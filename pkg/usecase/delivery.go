package usecase

import (
	"context"

	"github.com/oncall-lab/rota/pkg/domain/model/webhook"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"github.com/oncall-lab/rota/pkg/service/dispatcher"
	"github.com/oncall-lab/rota/pkg/utils/clock"
)

// ListDeliveries pages through an owner's delivery ledger, newest first,
// returning the page and the owner's total attempt count.
func (u *UseCases) ListDeliveries(ctx context.Context, owner string, offset, limit int) ([]*webhook.Attempt, int, error) {
	rows, err := u.repo.ListAttemptsByOwner(ctx, owner, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := u.repo.CountAttemptsByOwner(ctx, owner)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (u *UseCases) GetDelivery(ctx context.Context, id types.AttemptID) (*webhook.Attempt, error) {
	return u.repo.GetAttempt(ctx, id)
}

func (u *UseCases) ListDeliveryAttempts(ctx context.Context, deliveryID types.DeliveryID) ([]*webhook.Attempt, error) {
	return u.repo.ListAttemptsByDelivery(ctx, deliveryID)
}

// RetryDelivery re-runs the delivery behind a ledger row with the full retry
// budget, continuing its attempt numbering.
func (u *UseCases) RetryDelivery(ctx context.Context, attemptID types.AttemptID) (*dispatcher.TargetResult, error) {
	return u.dispatcher.RetryDelivery(ctx, attemptID)
}

// SendTestEvent pushes a synthetic test notification through the owner's
// targets so operators can verify endpoint wiring without a live escalation.
func (u *UseCases) SendTestEvent(ctx context.Context, owner string) (*dispatcher.Result, error) {
	ev := &webhook.Event{
		Type:      types.EventTypeTest,
		Title:     "Test notification",
		Message:   "This is a test event. If you can read this, delivery works.",
		Severity:  types.SeverityLow,
		Timestamp: clock.Now(ctx),
	}
	return u.dispatcher.Dispatch(ctx, owner, ev)
}
