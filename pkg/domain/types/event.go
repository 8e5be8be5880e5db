package types

import "github.com/m-mizutani/goerr/v2"

// EventType classifies an outbound notification. Notification targets
// subscribe to a set of event types and only receive matching events.
type EventType string

const (
	EventTypeEscalation EventType = "escalation"
	EventTypeIncident   EventType = "incident"
	EventTypeRecovery   EventType = "recovery"
	EventTypeTest       EventType = "test"
)

func (x EventType) String() string {
	return string(x)
}

func (x EventType) Validate() error {
	switch x {
	case EventTypeEscalation, EventTypeIncident, EventTypeRecovery, EventTypeTest:
		return nil
	}
	return goerr.New("invalid event type", goerr.V("type", x))
}
