package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/webhook"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

func (r *Memory) PutTarget(ctx context.Context, t webhook.Target) error {
	r.webhookMu.Lock()
	defer r.webhookMu.Unlock()

	if t.ID == types.EmptyTargetID {
		return r.eb.New("target ID is empty", goerr.T(errs.TagValidation))
	}

	copied := t
	copied.Events = append([]types.EventType(nil), t.Events...)
	r.targets[t.ID] = &copied
	return nil
}

func (r *Memory) GetTarget(ctx context.Context, id types.TargetID) (*webhook.Target, error) {
	r.webhookMu.RLock()
	defer r.webhookMu.RUnlock()

	t, ok := r.targets[id]
	if !ok {
		return nil, r.eb.New("target not found",
			goerr.V("target_id", id), goerr.T(errs.TagNotFound))
	}
	copied := *t
	copied.Events = append([]types.EventType(nil), t.Events...)
	return &copied, nil
}

func (r *Memory) ListTargetsByOwner(ctx context.Context, owner string) ([]*webhook.Target, error) {
	r.webhookMu.RLock()
	defer r.webhookMu.RUnlock()

	var result []*webhook.Target
	for _, t := range r.targets {
		if t.Owner != owner {
			continue
		}
		copied := *t
		copied.Events = append([]types.EventType(nil), t.Events...)
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *Memory) DeleteTarget(ctx context.Context, id types.TargetID) error {
	r.webhookMu.Lock()
	defer r.webhookMu.Unlock()

	if _, ok := r.targets[id]; !ok {
		return r.eb.New("target not found",
			goerr.V("target_id", id), goerr.T(errs.TagNotFound))
	}
	delete(r.targets, id)
	return nil
}

// PutAttempt appends one ledger row. Rows are immutable: writing an attempt
// ID that already exists is a conflict, never an update.
func (r *Memory) PutAttempt(ctx context.Context, a webhook.Attempt) error {
	r.webhookMu.Lock()
	defer r.webhookMu.Unlock()

	if err := a.Validate(); err != nil {
		return r.eb.Wrap(err, "invalid delivery attempt", goerr.T(errs.TagValidation))
	}
	if _, exists := r.attempts[a.ID]; exists {
		return r.eb.New("delivery attempt already recorded",
			goerr.V("attempt_id", a.ID), goerr.T(errs.TagConflict))
	}

	copied := a
	copied.Payload = append([]byte(nil), a.Payload...)
	r.attempts[a.ID] = &copied
	return nil
}

func (r *Memory) GetAttempt(ctx context.Context, id types.AttemptID) (*webhook.Attempt, error) {
	r.webhookMu.RLock()
	defer r.webhookMu.RUnlock()

	a, ok := r.attempts[id]
	if !ok {
		return nil, r.eb.New("delivery attempt not found",
			goerr.V("attempt_id", id), goerr.T(errs.TagNotFound))
	}
	copied := *a
	copied.Payload = append([]byte(nil), a.Payload...)
	return &copied, nil
}

func (r *Memory) ListAttemptsByDelivery(ctx context.Context, deliveryID types.DeliveryID) ([]*webhook.Attempt, error) {
	r.webhookMu.RLock()
	defer r.webhookMu.RUnlock()

	var result []*webhook.Attempt
	for _, a := range r.attempts {
		if a.DeliveryID != deliveryID {
			continue
		}
		copied := *a
		copied.Payload = append([]byte(nil), a.Payload...)
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].AttemptNumber < result[j].AttemptNumber
	})
	return result, nil
}

func (r *Memory) ListAttemptsByOwner(ctx context.Context, owner string, offset, limit int) ([]*webhook.Attempt, error) {
	r.webhookMu.RLock()
	defer r.webhookMu.RUnlock()

	var result []*webhook.Attempt
	for _, a := range r.attempts {
		if a.Owner != owner {
			continue
		}
		copied := *a
		copied.Payload = append([]byte(nil), a.Payload...)
		result = append(result, &copied)
	}

	// newest first for the delivery log view
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	if offset > 0 {
		if offset >= len(result) {
			return nil, nil
		}
		result = result[offset:]
	}
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (r *Memory) CountAttemptsByOwner(ctx context.Context, owner string) (int, error) {
	r.webhookMu.RLock()
	defer r.webhookMu.RUnlock()

	count := 0
	for _, a := range r.attempts {
		if a.Owner == owner {
			count++
		}
	}
	return count, nil
}
