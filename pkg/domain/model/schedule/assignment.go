package schedule

import "time"

// Assignment is the effective on-call resolution for one day. When an
// override is in effect, NominalMember still carries the rotation's computed
// member for audit and tooltip display.
type Assignment struct {
	Date          time.Time `json:"date"`
	Member        *Member   `json:"member"`
	IsOverride    bool      `json:"is_override"`
	NominalMember *Member   `json:"nominal_member"`
	Reason        string    `json:"reason,omitempty"`
}
