package schedule

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

// Override is a manual, date-scoped assignment that supersedes the computed
// rotation for one calendar day. At most one override exists per
// (schedule, date); writing another for the same key replaces it.
type Override struct {
	ID         types.OverrideID `json:"id"`
	ScheduleID types.ScheduleID `json:"schedule_id"`
	Date       time.Time        `json:"date"`
	MemberID   types.MemberID   `json:"member_id"`
	MemberName string           `json:"member_name"`
	Reason     string           `json:"reason"`
	CreatedAt  time.Time        `json:"created_at"`
	CreatedBy  string           `json:"created_by"`
}

func (x *Override) Validate() error {
	if x.ID == types.EmptyOverrideID {
		return goerr.New("empty override ID")
	}
	if err := x.ScheduleID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid schedule ID")
	}
	if err := x.MemberID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid member ID")
	}
	if x.Date.IsZero() {
		return goerr.New("override date is required")
	}
	return nil
}

// Key is the upsert key of an override document. Using it as the storage
// document ID makes concurrent writes for the same (schedule, date)
// last-write-wins instead of duplicating rows.
func (x *Override) Key() string {
	return OverrideKey(x.ScheduleID, x.Date)
}

func OverrideKey(scheduleID types.ScheduleID, date time.Time) string {
	return scheduleID.String() + ":" + date.Format("2006-01-02")
}

type OverrideSortKey string

const (
	OverrideSortCreatedAt    OverrideSortKey = "created_at"
	OverrideSortOverrideDate OverrideSortKey = "override_date"
	OverrideSortMemberName   OverrideSortKey = "member_name"
)

func (x OverrideSortKey) Validate() error {
	switch x {
	case OverrideSortCreatedAt, OverrideSortOverrideDate, OverrideSortMemberName:
		return nil
	}
	return goerr.New("invalid override sort key", goerr.V("key", x))
}

// OverrideQuery is the read path of the override audit log.
type OverrideQuery struct {
	ScheduleID types.ScheduleID
	DateFrom   time.Time // zero = unbounded
	DateTo     time.Time // inclusive; zero = unbounded
	MemberID   types.MemberID
	Reason     string // substring match, case-insensitive

	SortBy     OverrideSortKey
	Descending bool
	Offset     int
	Limit      int
}

func (x *OverrideQuery) Validate() error {
	if x.SortBy != "" {
		if err := x.SortBy.Validate(); err != nil {
			return err
		}
	}
	if x.Offset < 0 || x.Limit < 0 {
		return goerr.New("negative pagination bounds",
			goerr.V("offset", x.Offset), goerr.V("limit", x.Limit))
	}
	return nil
}
