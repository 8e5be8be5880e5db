package rotation_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/oncall-lab/rota/pkg/domain/model/schedule"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"github.com/oncall-lab/rota/pkg/repository/memory"
	"github.com/oncall-lab/rota/pkg/service/rotation"
)

func newSchedule(names ...string) schedule.Schedule {
	members := make([]schedule.Member, len(names))
	for i, name := range names {
		members[i] = schedule.Member{
			ID:       types.NewMemberID(),
			Name:     name,
			Contact:  name + "@example.com",
			Position: i,
		}
	}
	return schedule.Schedule{
		ID:                   types.NewScheduleID(),
		Owner:                "ops",
		Name:                 "primary",
		Members:              members,
		RotationIntervalDays: 1,
		AnchorDate:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestResolveAssignment(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	svc := rotation.New(repo)

	s := newSchedule("alice", "bob", "carol")
	gt.NoError(t, repo.PutSchedule(ctx, s))

	day3 := time.Date(2024, 1, 3, 15, 30, 0, 0, time.UTC)

	t.Run("falls through to the rotation without an override", func(t *testing.T) {
		a := gt.R1(svc.ResolveAssignment(ctx, s.ID, day3)).NoError(t)
		gt.Equal(t, a.Member.Name, "carol")
		gt.False(t, a.IsOverride)
		gt.Equal(t, a.NominalMember.Name, "carol")
	})

	t.Run("override wins and keeps the nominal member visible", func(t *testing.T) {
		gt.NoError(t, repo.PutOverride(ctx, schedule.Override{
			ID:         types.NewOverrideID(),
			ScheduleID: s.ID,
			Date:       time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
			MemberID:   s.Members[0].ID,
			MemberName: "alice",
			Reason:     "carol PTO",
			CreatedAt:  time.Now(),
			CreatedBy:  "admin",
		}))

		a := gt.R1(svc.ResolveAssignment(ctx, s.ID, day3)).NoError(t)
		gt.True(t, a.IsOverride)
		gt.Equal(t, a.Member.Name, "alice")
		gt.Equal(t, a.NominalMember.Name, "carol")
		gt.Equal(t, a.Reason, "carol PTO")
	})

	t.Run("override for a removed member keeps the recorded name", func(t *testing.T) {
		ghost := types.NewMemberID()
		gt.NoError(t, repo.PutOverride(ctx, schedule.Override{
			ID:         types.NewOverrideID(),
			ScheduleID: s.ID,
			Date:       time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			MemberID:   ghost,
			MemberName: "dave",
			CreatedAt:  time.Now(),
			CreatedBy:  "admin",
		}))

		a := gt.R1(svc.ResolveAssignment(ctx, s.ID, time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC))).NoError(t)
		gt.True(t, a.IsOverride)
		gt.Equal(t, a.Member.ID, ghost)
		gt.Equal(t, a.Member.Name, "dave")
	})

	t.Run("unknown schedule is an error", func(t *testing.T) {
		_, err := svc.ResolveAssignment(ctx, types.NewScheduleID(), day3)
		gt.Error(t, err)
	})
}

func TestCalendar(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	svc := rotation.New(repo)

	s := newSchedule("alice", "bob")
	gt.NoError(t, repo.PutSchedule(ctx, s))

	gt.NoError(t, repo.PutOverride(ctx, schedule.Override{
		ID:         types.NewOverrideID(),
		ScheduleID: s.ID,
		Date:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		MemberID:   s.Members[0].ID,
		MemberName: "alice",
		Reason:     "swap",
		CreatedAt:  time.Now(),
		CreatedBy:  "admin",
	}))

	t.Run("inclusive range with overrides applied", func(t *testing.T) {
		days := gt.R1(svc.Calendar(ctx, s.ID,
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		)).NoError(t)

		gt.A(t, days).Length(4)
		gt.Equal(t, days[0].Member.Name, "alice")
		gt.Equal(t, days[1].Member.Name, "alice") // override, nominal bob
		gt.True(t, days[1].IsOverride)
		gt.Equal(t, days[1].NominalMember.Name, "bob")
		gt.Equal(t, days[2].Member.Name, "alice")
		gt.Equal(t, days[3].Member.Name, "bob")
	})

	t.Run("single day range", func(t *testing.T) {
		d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		days := gt.R1(svc.Calendar(ctx, s.ID, d, d)).NoError(t)
		gt.A(t, days).Length(1)
	})

	t.Run("inverted range is rejected", func(t *testing.T) {
		_, err := svc.Calendar(ctx, s.ID,
			time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		)
		gt.Error(t, err)
	})
}
