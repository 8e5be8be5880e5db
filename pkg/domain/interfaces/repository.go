package interfaces

import (
	"context"
	"time"

	"github.com/oncall-lab/rota/pkg/domain/model/policy"
	"github.com/oncall-lab/rota/pkg/domain/model/schedule"
	"github.com/oncall-lab/rota/pkg/domain/model/webhook"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

// Repository is the single authoritative data store. The system runs as
// multiple stateless workers, so all conflict resolution happens here:
// unique-key upsert for overrides, append-only insert for the delivery
// ledger, and compare-and-swap for escalation run transitions.
type Repository interface {
	// Rotation schedules (members embedded)
	PutSchedule(ctx context.Context, s schedule.Schedule) error
	GetSchedule(ctx context.Context, id types.ScheduleID) (*schedule.Schedule, error)
	ListSchedules(ctx context.Context, owner string) ([]*schedule.Schedule, error)
	DeleteSchedule(ctx context.Context, id types.ScheduleID) error

	// Overrides: PutOverride upserts by (schedule, date); PutOverrides is
	// atomic over the whole batch: either all rows are written or none.
	PutOverride(ctx context.Context, ov schedule.Override) error
	PutOverrides(ctx context.Context, ovs []schedule.Override) error
	GetOverride(ctx context.Context, id types.OverrideID) (*schedule.Override, error)
	GetOverrideByDate(ctx context.Context, scheduleID types.ScheduleID, date time.Time) (*schedule.Override, error)
	DeleteOverride(ctx context.Context, id types.OverrideID) error
	ListOverrides(ctx context.Context, q schedule.OverrideQuery) ([]*schedule.Override, error)
	CountOverrides(ctx context.Context, q schedule.OverrideQuery) (int, error)

	// Escalation policies (levels embedded)
	PutPolicy(ctx context.Context, p policy.Policy) error
	GetPolicy(ctx context.Context, id types.PolicyID) (*policy.Policy, error)
	ListPolicies(ctx context.Context, owner string) ([]*policy.Policy, error)
	DeletePolicy(ctx context.Context, id types.PolicyID) error

	// Escalation runs. TransitionRun writes next only if the stored state
	// still equals expect; a concurrent tick that already advanced the run
	// surfaces as a TagConflict error.
	PutRun(ctx context.Context, r policy.Run) error
	GetRun(ctx context.Context, id types.RunID) (*policy.Run, error)
	ListRunsByStatus(ctx context.Context, status types.RunStatus) ([]*policy.Run, error)
	TransitionRun(ctx context.Context, id types.RunID, expect policy.State, apply func(*policy.Run)) (*policy.Run, error)

	// Notification targets
	PutTarget(ctx context.Context, t webhook.Target) error
	GetTarget(ctx context.Context, id types.TargetID) (*webhook.Target, error)
	ListTargetsByOwner(ctx context.Context, owner string) ([]*webhook.Target, error)
	DeleteTarget(ctx context.Context, id types.TargetID) error

	// Delivery ledger (append-only)
	PutAttempt(ctx context.Context, a webhook.Attempt) error
	GetAttempt(ctx context.Context, id types.AttemptID) (*webhook.Attempt, error)
	ListAttemptsByDelivery(ctx context.Context, deliveryID types.DeliveryID) ([]*webhook.Attempt, error)
	ListAttemptsByOwner(ctx context.Context, owner string, offset, limit int) ([]*webhook.Attempt, error)
	CountAttemptsByOwner(ctx context.Context, owner string) (int, error)
}
