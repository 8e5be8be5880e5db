package policy_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/oncall-lab/rota/pkg/domain/model/policy"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

func twoLevelPolicy(repeat int) *policy.Policy {
	return &policy.Policy{
		ID:          types.NewPolicyID(),
		Owner:       "ops",
		Name:        "default",
		RepeatCount: repeat,
		Levels: []policy.Level{
			{
				ID:             types.NewLevelID(),
				Order:          0,
				NotifyMethod:   types.NotifyMethodChat,
				TimeoutMinutes: 5,
				ScheduleID:     types.NewScheduleID(),
			},
			{
				ID:             types.NewLevelID(),
				Order:          1,
				NotifyMethod:   types.NotifyMethodEmail,
				TimeoutMinutes: 10,
				Contact:        policy.Contact{Name: "Y", Address: "y@example.com"},
			},
		},
	}
}

func TestStart(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("policy with levels starts active at level zero", func(t *testing.T) {
		p := twoLevelPolicy(1)
		s := policy.Start(p, now)
		gt.Equal(t, s.Status, types.RunStatusActive)
		gt.Equal(t, s.LevelIndex, 0)
		gt.Equal(t, s.CyclesRemaining, 1)
		gt.Equal(t, s.LevelStartedAt, now)
	})

	t.Run("policy without levels is exhausted immediately", func(t *testing.T) {
		p := &policy.Policy{ID: types.NewPolicyID(), Name: "empty"}
		s := policy.Start(p, now)
		gt.Equal(t, s.Status, types.RunStatusExhausted)
	})
}

func TestAcknowledge(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p := twoLevelPolicy(0)

	s := policy.Start(p, now)
	acked := policy.Acknowledge(s)
	gt.Equal(t, acked.Status, types.RunStatusAcknowledged)

	// terminal states are frozen
	gt.Equal(t, policy.Acknowledge(acked), acked)

	exhausted := policy.State{Status: types.RunStatusExhausted}
	gt.Equal(t, policy.Acknowledge(exhausted), exhausted)
}

func TestNext(t *testing.T) {
	t0 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no transition before the level timeout", func(t *testing.T) {
		p := twoLevelPolicy(0)
		s := policy.Start(p, t0)

		next, due := policy.Next(p, s, t0.Add(4*time.Minute+59*time.Second))
		gt.False(t, due)
		gt.Equal(t, next, s)
	})

	t.Run("terminal states never transition", func(t *testing.T) {
		p := twoLevelPolicy(0)
		s := policy.Acknowledge(policy.Start(p, t0))
		_, due := policy.Next(p, s, t0.Add(time.Hour))
		gt.False(t, due)
	})

	t.Run("full unacknowledged timeline with one repeat", func(t *testing.T) {
		// levels: L0 timeout=5m, L1 timeout=10m, repeat_count=1.
		// Expected: Active(0)@0 -> Active(1)@5m -> Active(0,cycles=0)@15m
		// -> Active(1)@20m -> Exhausted@30m.
		p := twoLevelPolicy(1)
		s := policy.Start(p, t0)

		s, due := policy.Next(p, s, t0.Add(5*time.Minute))
		gt.True(t, due)
		gt.Equal(t, s.Status, types.RunStatusActive)
		gt.Equal(t, s.LevelIndex, 1)
		gt.Equal(t, s.CyclesRemaining, 1)
		gt.Equal(t, s.LevelStartedAt, t0.Add(5*time.Minute))

		s, due = policy.Next(p, s, t0.Add(15*time.Minute))
		gt.True(t, due)
		gt.Equal(t, s.LevelIndex, 0)
		gt.Equal(t, s.CyclesRemaining, 0)

		s, due = policy.Next(p, s, t0.Add(20*time.Minute))
		gt.True(t, due)
		gt.Equal(t, s.LevelIndex, 1)
		gt.Equal(t, s.CyclesRemaining, 0)

		s, due = policy.Next(p, s, t0.Add(30*time.Minute))
		gt.True(t, due)
		gt.Equal(t, s.Status, types.RunStatusExhausted)
	})

	t.Run("no repeat exhausts after the last level", func(t *testing.T) {
		p := twoLevelPolicy(0)
		s := policy.Start(p, t0)

		s, _ = policy.Next(p, s, t0.Add(5*time.Minute))
		gt.Equal(t, s.LevelIndex, 1)

		s, due := policy.Next(p, s, t0.Add(15*time.Minute))
		gt.True(t, due)
		gt.Equal(t, s.Status, types.RunStatusExhausted)
	})

	t.Run("late tick still advances exactly one step", func(t *testing.T) {
		// Tick granularity jitter: a tick long after the timeout advances a
		// single level, it does not fast-forward through the chain.
		p := twoLevelPolicy(0)
		s := policy.Start(p, t0)

		s, due := policy.Next(p, s, t0.Add(3*time.Hour))
		gt.True(t, due)
		gt.Equal(t, s.Status, types.RunStatusActive)
		gt.Equal(t, s.LevelIndex, 1)
		gt.Equal(t, s.LevelStartedAt, t0.Add(3*time.Hour))
	})

	t.Run("level removed under an active run exhausts", func(t *testing.T) {
		p := twoLevelPolicy(0)
		s := policy.Start(p, t0)
		s, _ = policy.Next(p, s, t0.Add(5*time.Minute))

		p.Levels = p.Levels[:1]
		s, due := policy.Next(p, s, t0.Add(6*time.Minute))
		gt.True(t, due)
		gt.Equal(t, s.Status, types.RunStatusExhausted)
	})
}

func TestPolicyValidate(t *testing.T) {
	t.Run("valid policy", func(t *testing.T) {
		gt.NoError(t, twoLevelPolicy(2).Validate())
	})

	t.Run("negative repeat count rejected", func(t *testing.T) {
		gt.Error(t, twoLevelPolicy(-1).Validate())
	})

	t.Run("duplicate level order rejected", func(t *testing.T) {
		p := twoLevelPolicy(0)
		p.Levels[1].Order = 0
		gt.Error(t, p.Validate())
	})

	t.Run("level with both schedule and contact rejected", func(t *testing.T) {
		p := twoLevelPolicy(0)
		p.Levels[0].Contact = policy.Contact{Name: "X", Address: "x@example.com"}
		gt.Error(t, p.Validate())
	})

	t.Run("level with neither schedule nor contact rejected", func(t *testing.T) {
		p := twoLevelPolicy(0)
		p.Levels[1].Contact = policy.Contact{}
		gt.Error(t, p.Validate())
	})

	t.Run("zero timeout rejected", func(t *testing.T) {
		p := twoLevelPolicy(0)
		p.Levels[0].TimeoutMinutes = 0
		gt.Error(t, p.Validate())
	})
}

func TestLevelAt(t *testing.T) {
	p := twoLevelPolicy(0)
	// non-contiguous order values still traverse in sorted order
	p.Levels[0].Order = 10
	p.Levels[1].Order = 20

	lvl, ok := p.LevelAt(0)
	gt.True(t, ok)
	gt.Equal(t, lvl.Order, 10)

	lvl, ok = p.LevelAt(1)
	gt.True(t, ok)
	gt.Equal(t, lvl.Order, 20)

	_, ok = p.LevelAt(2)
	gt.False(t, ok)
}
