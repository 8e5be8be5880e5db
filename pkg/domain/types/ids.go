package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

func newUUIDv7() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic(err)
	}
	return id.String()
}

type ScheduleID string

func (x ScheduleID) String() string { return string(x) }

func NewScheduleID() ScheduleID {
	return ScheduleID(newUUIDv7())
}

func (x ScheduleID) Validate() error {
	if x == EmptyScheduleID {
		return goerr.New("empty schedule ID")
	}
	if _, err := uuid.Parse(string(x)); err != nil {
		return goerr.Wrap(err, "invalid schedule ID format", goerr.V("id", x))
	}
	return nil
}

const (
	EmptyScheduleID ScheduleID = ""
)

type MemberID string

func (x MemberID) String() string { return string(x) }

func NewMemberID() MemberID {
	return MemberID(newUUIDv7())
}

func (x MemberID) Validate() error {
	if x == EmptyMemberID {
		return goerr.New("empty member ID")
	}
	return nil
}

const (
	EmptyMemberID MemberID = ""
)

type OverrideID string

func (x OverrideID) String() string { return string(x) }

func NewOverrideID() OverrideID {
	return OverrideID(newUUIDv7())
}

const (
	EmptyOverrideID OverrideID = ""
)

type PolicyID string

func (x PolicyID) String() string { return string(x) }

func NewPolicyID() PolicyID {
	return PolicyID(newUUIDv7())
}

func (x PolicyID) Validate() error {
	if x == EmptyPolicyID {
		return goerr.New("empty policy ID")
	}
	if _, err := uuid.Parse(string(x)); err != nil {
		return goerr.Wrap(err, "invalid policy ID format", goerr.V("id", x))
	}
	return nil
}

const (
	EmptyPolicyID PolicyID = ""
)

type LevelID string

func (x LevelID) String() string { return string(x) }

func NewLevelID() LevelID {
	return LevelID(newUUIDv7())
}

func (x LevelID) Validate() error {
	if x == EmptyLevelID {
		return goerr.New("empty level ID")
	}
	return nil
}

const (
	EmptyLevelID LevelID = ""
)

type RunID string

func (x RunID) String() string { return string(x) }

func NewRunID() RunID {
	return RunID(newUUIDv7())
}

func (x RunID) Validate() error {
	if x == EmptyRunID {
		return goerr.New("empty run ID")
	}
	if _, err := uuid.Parse(string(x)); err != nil {
		return goerr.Wrap(err, "invalid run ID format", goerr.V("id", x))
	}
	return nil
}

const (
	EmptyRunID RunID = ""
)

type TargetID string

func (x TargetID) String() string { return string(x) }

func NewTargetID() TargetID {
	return TargetID(newUUIDv7())
}

func (x TargetID) Validate() error {
	if x == EmptyTargetID {
		return goerr.New("empty target ID")
	}
	return nil
}

const (
	EmptyTargetID TargetID = ""
)

// DeliveryID groups all attempts of one logical delivery to one target.
// Attempt numbers within a delivery are strictly increasing, including
// attempts added later by operator-requested retries.
type DeliveryID string

func (x DeliveryID) String() string { return string(x) }

func NewDeliveryID() DeliveryID {
	return DeliveryID(newUUIDv7())
}

const (
	EmptyDeliveryID DeliveryID = ""
)

type AttemptID string

func (x AttemptID) String() string { return string(x) }

func NewAttemptID() AttemptID {
	return AttemptID(newUUIDv7())
}

func (x AttemptID) Validate() error {
	if x == EmptyAttemptID {
		return goerr.New("empty attempt ID")
	}
	if _, err := uuid.Parse(string(x)); err != nil {
		return goerr.Wrap(err, "invalid attempt ID format", goerr.V("id", x))
	}
	return nil
}

const (
	EmptyAttemptID AttemptID = ""
)
