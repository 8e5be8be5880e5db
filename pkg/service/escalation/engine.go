package escalation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/interfaces"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/policy"
	"github.com/oncall-lab/rota/pkg/domain/model/schedule"
	"github.com/oncall-lab/rota/pkg/domain/model/webhook"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"github.com/oncall-lab/rota/pkg/service/dispatcher"
	"github.com/oncall-lab/rota/pkg/utils/clock"
	"github.com/oncall-lab/rota/pkg/utils/logging"
)

// Notifier delivers one event to an owner's notification targets.
type Notifier interface {
	Dispatch(ctx context.Context, owner string, ev *webhook.Event) (*dispatcher.Result, error)
}

// AssignmentResolver resolves the effective on-call member of a schedule for
// a given day.
type AssignmentResolver interface {
	ResolveAssignment(ctx context.Context, scheduleID types.ScheduleID, date time.Time) (*schedule.Assignment, error)
}

// Engine drives escalation runs: starting them, acknowledging them, and
// advancing them on timeout. All state lives in the repository; any number of
// engine instances can tick concurrently and the run CAS keeps them from
// double-firing a level.
type Engine struct {
	repo     interfaces.Repository
	notifier Notifier
	rotation AssignmentResolver
}

func New(repo interfaces.Repository, notifier Notifier, rotation AssignmentResolver) *Engine {
	return &Engine{
		repo:     repo,
		notifier: notifier,
		rotation: rotation,
	}
}

// Trigger starts an escalation run for the policy and notifies its first
// level. A policy with no levels produces an already-exhausted run, recorded
// for audit but never notified.
func (x *Engine) Trigger(ctx context.Context, policyID types.PolicyID, refID string, severity types.Severity) (*policy.Run, error) {
	p, err := x.repo.GetPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}

	now := clock.Now(ctx)
	run := policy.Run{
		ID:        types.NewRunID(),
		PolicyID:  p.ID,
		Owner:     p.Owner,
		RefID:     refID,
		Severity:  severity,
		State:     policy.Start(p, now),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := run.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid escalation run", goerr.T(errs.TagValidation))
	}
	if err := x.repo.PutRun(ctx, run); err != nil {
		return nil, err
	}

	logging.From(ctx).Info("escalation started",
		slog.Any("run_id", run.ID),
		slog.Any("policy_id", p.ID),
		slog.String("ref_id", refID))

	if run.State.Status == types.RunStatusActive {
		x.notifyLevel(ctx, p, &run)
	}
	return &run, nil
}

// Acknowledge terminates an active run. Acknowledging an already-terminal
// run is a no-op returning the run unchanged, so duplicate acknowledgements
// from racing responders never fail.
func (x *Engine) Acknowledge(ctx context.Context, runID types.RunID, by string) (*policy.Run, error) {
	for attempt := 0; attempt < 3; attempt++ {
		run, err := x.repo.GetRun(ctx, runID)
		if err != nil {
			return nil, err
		}
		if run.State.Status.Terminal() {
			return run, nil
		}

		now := clock.Now(ctx)
		updated, err := x.repo.TransitionRun(ctx, runID, run.State, func(r *policy.Run) {
			r.State = policy.Acknowledge(r.State)
			r.AcknowledgedBy = by
			r.AcknowledgedAt = now
			r.UpdatedAt = now
		})
		if err == nil {
			logging.From(ctx).Info("escalation acknowledged",
				slog.Any("run_id", runID), slog.String("by", by))
			return updated, nil
		}
		if !goerr.HasTag(err, errs.TagConflict) {
			return nil, err
		}
		// A tick advanced the run between read and write; re-read and retry.
	}
	return nil, goerr.New("acknowledge lost the state race repeatedly",
		goerr.V("run_id", runID), goerr.T(errs.TagConflict))
}

// Tick evaluates every active run against the current time and advances the
// ones whose level timed out. Runs are processed concurrently; a per-run
// failure or CAS conflict never stops the sweep.
func (x *Engine) Tick(ctx context.Context) error {
	runs, err := x.repo.ListRunsByStatus(ctx, types.RunStatusActive)
	if err != nil {
		return goerr.Wrap(err, "failed to list active runs")
	}

	var wg sync.WaitGroup
	for _, run := range runs {
		wg.Add(1)
		go func(run *policy.Run) {
			defer wg.Done()
			if err := x.tickRun(ctx, run); err != nil {
				errs.Handle(ctx, goerr.Wrap(err, "tick failed for run",
					goerr.V("run_id", run.ID)))
			}
		}(run)
	}
	wg.Wait()
	return nil
}

func (x *Engine) tickRun(ctx context.Context, run *policy.Run) error {
	p, err := x.repo.GetPolicy(ctx, run.PolicyID)
	if err != nil {
		return goerr.Wrap(err, "run references a missing policy",
			goerr.V("policy_id", run.PolicyID))
	}

	now := clock.Now(ctx)
	next, due := policy.Next(p, run.State, now)
	if !due {
		return nil
	}

	updated, err := x.repo.TransitionRun(ctx, run.ID, run.State, func(r *policy.Run) {
		r.State = next
		r.UpdatedAt = now
	})
	if err != nil {
		if goerr.HasTag(err, errs.TagConflict) {
			// Another engine instance got there first. Its transition stands.
			logging.From(ctx).Debug("run already advanced elsewhere",
				slog.Any("run_id", run.ID))
			return nil
		}
		return err
	}

	logging.From(ctx).Info("escalation advanced",
		slog.Any("run_id", run.ID),
		slog.String("status", updated.State.Status.String()),
		slog.Int("level_index", updated.State.LevelIndex),
		slog.Int("cycles_remaining", updated.State.CyclesRemaining))

	if updated.State.Status == types.RunStatusActive {
		x.notifyLevel(ctx, p, updated)
	}
	return nil
}

// notifyLevel resolves the current level's recipient and dispatches the
// escalation event. An unresolvable recipient (empty rotation roster) skips
// the dispatch but leaves the run state as transitioned; the next level will
// fire on schedule.
func (x *Engine) notifyLevel(ctx context.Context, p *policy.Policy, run *policy.Run) {
	lvl, ok := p.LevelAt(run.State.LevelIndex)
	if !ok {
		errs.Handle(ctx, goerr.New("active run points past the level chain",
			goerr.V("run_id", run.ID), goerr.V("level_index", run.State.LevelIndex)))
		return
	}

	name, address, ok := x.resolveRecipient(ctx, lvl, run)
	if !ok {
		logging.From(ctx).Warn("no recipient for escalation level, skipping notification",
			slog.Any("run_id", run.ID),
			slog.Int("level_index", run.State.LevelIndex))
		return
	}

	ev := &webhook.Event{
		Type:     types.EventTypeEscalation,
		Title:    "Escalation: " + run.RefID,
		Message:  "Notifying " + name + " via " + lvl.NotifyMethod.String(),
		Severity: run.Severity,
		Metadata: map[string]any{
			"run_id":        run.ID.String(),
			"policy_id":     p.ID.String(),
			"ref_id":        run.RefID,
			"level_index":   run.State.LevelIndex,
			"notify_method": lvl.NotifyMethod.String(),
			"recipient":     name,
			"contact":       address,
		},
		Timestamp: clock.Now(ctx),
	}

	res, err := x.notifier.Dispatch(ctx, run.Owner, ev)
	if err != nil {
		errs.Handle(ctx, goerr.Wrap(err, "failed to dispatch escalation notification",
			goerr.V("run_id", run.ID)))
		return
	}
	logging.From(ctx).Debug("escalation notification dispatched",
		slog.Any("run_id", run.ID),
		slog.Int("delivered", res.Delivered),
		slog.Int("total", res.Total))
}

func (x *Engine) resolveRecipient(ctx context.Context, lvl *policy.Level, run *policy.Run) (name, address string, ok bool) {
	if lvl.ScheduleID == types.EmptyScheduleID {
		return lvl.Contact.Name, lvl.Contact.Address, true
	}

	assignment, err := x.rotation.ResolveAssignment(ctx, lvl.ScheduleID, clock.Now(ctx))
	if err != nil {
		errs.Handle(ctx, goerr.Wrap(err, "failed to resolve on-call member",
			goerr.V("run_id", run.ID), goerr.V("schedule_id", lvl.ScheduleID)))
		return "", "", false
	}
	if assignment.Member == nil {
		return "", "", false
	}
	return assignment.Member.Name, assignment.Member.Contact, true
}
