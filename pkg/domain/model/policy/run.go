package policy

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

// State is the escalation run's tagged state. While Status is Active,
// LevelIndex, CyclesRemaining and LevelStartedAt describe the current level;
// once terminal they are frozen at their last values.
type State struct {
	Status          types.RunStatus `json:"status"`
	LevelIndex      int             `json:"level_index"`
	CyclesRemaining int             `json:"cycles_remaining"`
	LevelStartedAt  time.Time       `json:"level_started_at"`
}

// Equal reports whether two states describe the same point of progression.
// The escalation tick uses it as the optimistic guard before mutating a run.
func (x State) Equal(other State) bool {
	return x.Status == other.Status &&
		x.LevelIndex == other.LevelIndex &&
		x.CyclesRemaining == other.CyclesRemaining &&
		x.LevelStartedAt.Equal(other.LevelStartedAt)
}

// Run is one escalation in flight (or finished) for a trigger reference.
type Run struct {
	ID       types.RunID    `json:"id"`
	PolicyID types.PolicyID `json:"policy_id"`
	Owner    string         `json:"owner"`
	RefID    string         `json:"ref_id"`
	Severity types.Severity `json:"severity"`

	State State `json:"state"`

	AcknowledgedBy string    `json:"acknowledged_by,omitempty"`
	AcknowledgedAt time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (x *Run) Validate() error {
	if err := x.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid run ID")
	}
	if err := x.PolicyID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid policy ID")
	}
	if x.RefID == "" {
		return goerr.New("run trigger reference is required")
	}
	return x.State.Status.Validate()
}

// Start computes the initial state for a policy. A policy without levels has
// nothing to escalate through and is exhausted immediately.
func Start(p *Policy, now time.Time) State {
	if len(p.Levels) == 0 {
		return State{Status: types.RunStatusExhausted, LevelStartedAt: now}
	}
	return State{
		Status:          types.RunStatusActive,
		LevelIndex:      0,
		CyclesRemaining: p.RepeatCount,
		LevelStartedAt:  now,
	}
}

// Acknowledge transitions an active state to the terminal Acknowledged state.
// Terminal states are returned unchanged so redundant acknowledgements are
// no-ops.
func Acknowledge(s State) State {
	if s.Status.Terminal() {
		return s
	}
	s.Status = types.RunStatusAcknowledged
	return s
}

// Next evaluates the current level's timeout against now and returns the
// follow-up state. The second return value reports whether a transition is
// due; callers must not write anything back when it is false. Per-level
// timing is wall-clock comparison at tick time, so actual escalation latency
// carries tick-granularity jitter.
func Next(p *Policy, s State, now time.Time) (State, bool) {
	if s.Status != types.RunStatusActive {
		return s, false
	}

	lvl, ok := p.LevelAt(s.LevelIndex)
	if !ok {
		// Level chain shrank under an active run. Nothing left to escalate to.
		return State{
			Status:          types.RunStatusExhausted,
			LevelIndex:      s.LevelIndex,
			CyclesRemaining: s.CyclesRemaining,
			LevelStartedAt:  now,
		}, true
	}

	if now.Sub(s.LevelStartedAt) < lvl.Timeout() {
		return s, false
	}

	switch {
	case s.LevelIndex+1 < len(p.Levels):
		return State{
			Status:          types.RunStatusActive,
			LevelIndex:      s.LevelIndex + 1,
			CyclesRemaining: s.CyclesRemaining,
			LevelStartedAt:  now,
		}, true

	case s.CyclesRemaining > 0:
		return State{
			Status:          types.RunStatusActive,
			LevelIndex:      0,
			CyclesRemaining: s.CyclesRemaining - 1,
			LevelStartedAt:  now,
		}, true

	default:
		return State{
			Status:          types.RunStatusExhausted,
			LevelIndex:      s.LevelIndex,
			CyclesRemaining: 0,
			LevelStartedAt:  now,
		}, true
	}
}
