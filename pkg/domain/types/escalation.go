package types

import "github.com/m-mizutani/goerr/v2"

// RunStatus is the state of one escalation run. Acknowledged and Exhausted
// are terminal; a terminal run is never mutated again.
type RunStatus string

const (
	RunStatusActive       RunStatus = "active"
	RunStatusAcknowledged RunStatus = "acknowledged"
	RunStatusExhausted    RunStatus = "exhausted"
)

var runStatusLabels = map[RunStatus]string{
	RunStatusActive:       "🔥 Active",
	RunStatusAcknowledged: "✅ Acknowledged",
	RunStatusExhausted:    "💤 Exhausted",
}

func (s RunStatus) String() string {
	return string(s)
}

func (s RunStatus) Label() string {
	return runStatusLabels[s]
}

func (s RunStatus) Terminal() bool {
	return s == RunStatusAcknowledged || s == RunStatusExhausted
}

func (s RunStatus) Validate() error {
	switch s {
	case RunStatusActive, RunStatusAcknowledged, RunStatusExhausted:
		return nil
	}
	return goerr.New("invalid run status", goerr.V("status", s))
}

// NotifyMethod selects how an escalation level's recipient is addressed.
// It is carried into the notification metadata; the actual transport is
// always the owner's configured notification targets.
type NotifyMethod string

const (
	NotifyMethodEmail NotifyMethod = "email"
	NotifyMethodPhone NotifyMethod = "phone"
	NotifyMethodChat  NotifyMethod = "chat"
)

func (x NotifyMethod) String() string {
	return string(x)
}

func (x NotifyMethod) Validate() error {
	switch x {
	case NotifyMethodEmail, NotifyMethodPhone, NotifyMethodChat:
		return nil
	}
	return goerr.New("invalid notify method", goerr.V("method", x))
}
