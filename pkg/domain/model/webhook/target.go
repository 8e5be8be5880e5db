package webhook

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

// Target is an operator-configured notification endpoint. Secret, when set,
// is used for HMAC-SHA256 payload signing; it is tagged for log masking and
// must never be serialized into API responses.
type Target struct {
	ID        types.TargetID    `json:"id"`
	Owner     string            `json:"owner"`
	Name      string            `json:"name"`
	URL       string            `json:"url"`
	Enabled   bool              `json:"enabled"`
	Events    []types.EventType `json:"events"`
	Secret    string            `json:"-" masq:"secret"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (x *Target) Validate() error {
	if err := x.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid target ID")
	}
	if x.Owner == "" {
		return goerr.New("target owner is required")
	}
	if x.URL == "" {
		return goerr.New("target URL is required")
	}
	for _, ev := range x.Events {
		if err := ev.Validate(); err != nil {
			return goerr.Wrap(err, "invalid subscribed event type")
		}
	}
	return nil
}

// Subscribed reports whether the target wants events of the given type.
func (x *Target) Subscribed(eventType types.EventType) bool {
	for _, ev := range x.Events {
		if ev == eventType {
			return true
		}
	}
	return false
}
