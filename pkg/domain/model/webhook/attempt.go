package webhook

import (
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

// Attempt is one row of the delivery ledger. Rows are immutable once written
// and are appended for every attempt, successful or not. DeliveryID groups
// the attempts of one logical delivery; AttemptNumber is strictly increasing
// within a delivery, including operator-requested retries added later.
type Attempt struct {
	ID            types.AttemptID  `json:"id"`
	DeliveryID    types.DeliveryID `json:"delivery_id"`
	TargetID      types.TargetID   `json:"target_id"`
	Owner         string           `json:"owner"`
	EventType     types.EventType  `json:"event_type"`
	Payload       json.RawMessage  `json:"payload"`
	AttemptNumber int              `json:"attempt_number"`
	StatusCode    *int             `json:"status_code,omitempty"`
	Success       bool             `json:"success"`
	Error         string           `json:"error,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

func (x *Attempt) Validate() error {
	if err := x.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid attempt ID")
	}
	if x.DeliveryID == types.EmptyDeliveryID {
		return goerr.New("empty delivery ID")
	}
	if err := x.TargetID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid target ID")
	}
	if x.AttemptNumber < 1 {
		return goerr.New("attempt number must start at 1",
			goerr.V("attempt_number", x.AttemptNumber))
	}
	return nil
}
