package schedule

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

// Schedule is an on-call rotation: an ordered member list rotated every
// RotationIntervalDays, anchored at AnchorDate. CurrentIndex is the position
// treated as on-call at the anchor date.
type Schedule struct {
	ID                   types.ScheduleID `json:"id"`
	Owner                string           `json:"owner"`
	Name                 string           `json:"name"`
	Members              []Member         `json:"members"`
	RotationIntervalDays int              `json:"rotation_interval_days"`
	CurrentIndex         int              `json:"current_index"`
	AnchorDate           time.Time        `json:"anchor_date"`
	Timezone             string           `json:"timezone"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

type Member struct {
	ID       types.MemberID `json:"id"`
	Name     string         `json:"name"`
	Contact  string         `json:"contact"`
	Position int            `json:"position"`
}

func (x *Schedule) Validate() error {
	if err := x.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid schedule ID")
	}
	if x.Name == "" {
		return goerr.New("schedule name is required")
	}
	if x.RotationIntervalDays < 1 {
		return goerr.New("rotation interval must be at least 1 day",
			goerr.V("interval_days", x.RotationIntervalDays))
	}
	if x.Timezone != "" {
		if _, err := time.LoadLocation(x.Timezone); err != nil {
			return goerr.Wrap(err, "invalid timezone", goerr.V("timezone", x.Timezone))
		}
	}

	// Positions define rotation order and must be contiguous from 0.
	seen := make(map[int]bool, len(x.Members))
	for _, m := range x.Members {
		if err := m.ID.Validate(); err != nil {
			return goerr.Wrap(err, "invalid member ID", goerr.V("member", m.Name))
		}
		if m.Position < 0 || m.Position >= len(x.Members) {
			return goerr.New("member position out of range",
				goerr.V("member", m.Name), goerr.V("position", m.Position))
		}
		if seen[m.Position] {
			return goerr.New("duplicate member position",
				goerr.V("member", m.Name), goerr.V("position", m.Position))
		}
		seen[m.Position] = true
	}
	return nil
}

// Location resolves the schedule's timezone, falling back to UTC.
func (x *Schedule) Location() *time.Location {
	if x.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(x.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MemberByPosition returns the member at the given rotation position.
func (x *Schedule) MemberByPosition(pos int) (*Member, bool) {
	for i := range x.Members {
		if x.Members[i].Position == pos {
			return &x.Members[i], true
		}
	}
	return nil, false
}

// MemberByID looks up a member of this schedule.
func (x *Schedule) MemberByID(id types.MemberID) (*Member, bool) {
	for i := range x.Members {
		if x.Members[i].ID == id {
			return &x.Members[i], true
		}
	}
	return nil, false
}

// Day truncates t to its calendar day in the schedule's timezone. The result
// is a timezone-independent civil date represented as midnight UTC, which is
// what override keys and rotation math operate on.
func (x *Schedule) Day(t time.Time) time.Time {
	return Day(t, x.Location())
}

func Day(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// OnCallFor computes the rotation member on call for the given date without
// consulting overrides. It is a pure function of the schedule configuration:
// identical inputs yield the identical member for any date, past or future,
// with no day-by-day iteration. A schedule with no members yields (nil,
// false), which is a valid state, not an error.
func (x *Schedule) OnCallFor(date time.Time) (*Member, bool) {
	n := len(x.Members)
	if n == 0 {
		return nil, false
	}

	day := x.Day(date)
	anchor := x.Day(x.AnchorDate)

	daysSinceAnchor := floorDiv(int64(day.Sub(anchor)/time.Hour), 24)
	cyclesSinceAnchor := floorDiv(daysSinceAnchor, int64(x.RotationIntervalDays))

	// Double modulo normalizes negative cycle counts for dates before the
	// anchor.
	idx := ((int64(x.CurrentIndex)+cyclesSinceAnchor)%int64(n) + int64(n)) % int64(n)

	return x.MemberByPosition(int(idx))
}

// floorDiv is integer division rounding toward negative infinity, so that
// dates before the anchor land in the correct rotation cycle.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
