package webhook

import (
	"time"

	"github.com/oncall-lab/rota/pkg/domain/types"
)

// Event is one outbound notification before formatting. The dispatcher
// renders it per target: generic JSON for arbitrary endpoints, or a rich
// chat-ops message for recognized providers.
type Event struct {
	Type      types.EventType `json:"event"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Severity  types.Severity  `json:"severity"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
