package policy

import (
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

// Policy is an ordered chain of escalation levels. RepeatCount is the number
// of additional full cycles through the chain after the first.
type Policy struct {
	ID          types.PolicyID `json:"id"`
	Owner       string         `json:"owner"`
	Name        string         `json:"name"`
	RepeatCount int            `json:"repeat_count"`
	Levels      []Level        `json:"levels"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Level is one step of a policy. The recipient is either dynamic (ScheduleID
// set, resolved against the rotation at activation time) or static (Contact
// set). Exactly one of the two must be configured.
type Level struct {
	ID             types.LevelID      `json:"id"`
	Order          int                `json:"level_order"`
	NotifyMethod   types.NotifyMethod `json:"notify_method"`
	TimeoutMinutes int                `json:"timeout_minutes"`
	ScheduleID     types.ScheduleID   `json:"schedule_id,omitempty"`
	Contact        Contact            `json:"contact,omitempty"`
}

type Contact struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func (x Contact) Empty() bool {
	return x.Name == "" && x.Address == ""
}

func (x *Policy) Validate() error {
	if err := x.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid policy ID")
	}
	if x.Name == "" {
		return goerr.New("policy name is required")
	}
	if x.RepeatCount < 0 {
		return goerr.New("repeat count must not be negative",
			goerr.V("repeat_count", x.RepeatCount))
	}

	seen := make(map[int]bool, len(x.Levels))
	for _, lvl := range x.Levels {
		if err := lvl.Validate(); err != nil {
			return goerr.Wrap(err, "invalid level", goerr.V("level_order", lvl.Order))
		}
		if seen[lvl.Order] {
			return goerr.New("duplicate level order", goerr.V("level_order", lvl.Order))
		}
		seen[lvl.Order] = true
	}
	return nil
}

func (x *Level) Validate() error {
	if err := x.NotifyMethod.Validate(); err != nil {
		return err
	}
	if x.TimeoutMinutes <= 0 {
		return goerr.New("level timeout must be positive",
			goerr.V("timeout_minutes", x.TimeoutMinutes))
	}
	if x.ScheduleID == types.EmptyScheduleID && x.Contact.Empty() {
		return goerr.New("level needs either a schedule or a static contact")
	}
	if x.ScheduleID != types.EmptyScheduleID && !x.Contact.Empty() {
		return goerr.New("level cannot have both a schedule and a static contact")
	}
	return nil
}

func (x *Level) Timeout() time.Duration {
	return time.Duration(x.TimeoutMinutes) * time.Minute
}

// Ordered returns the level chain in traversal order. Order values only need
// to be unique, not contiguous.
func (x *Policy) Ordered() []Level {
	levels := make([]Level, len(x.Levels))
	copy(levels, x.Levels)
	sort.Slice(levels, func(i, j int) bool { return levels[i].Order < levels[j].Order })
	return levels
}

// LevelAt returns the level at the given traversal index.
func (x *Policy) LevelAt(idx int) (*Level, bool) {
	if idx < 0 || idx >= len(x.Levels) {
		return nil, false
	}
	levels := x.Ordered()
	return &levels[idx], true
}
