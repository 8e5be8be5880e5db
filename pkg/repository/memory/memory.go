package memory

import (
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/interfaces"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/policy"
	"github.com/oncall-lab/rota/pkg/domain/model/schedule"
	"github.com/oncall-lab/rota/pkg/domain/model/webhook"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

// Memory is the in-memory Repository used by tests and dev serving. It
// mirrors the Firestore backend's semantics: override upsert is keyed by
// (schedule, date), the ledger is append-only, and run transitions are
// guarded by a compare-and-swap under the run mutex.
type Memory struct {
	scheduleMu sync.RWMutex
	overrideMu sync.RWMutex
	policyMu   sync.RWMutex
	runMu      sync.RWMutex
	webhookMu  sync.RWMutex

	schedules map[types.ScheduleID]*schedule.Schedule
	overrides map[string]*schedule.Override // keyed by Override.Key()
	policies  map[types.PolicyID]*policy.Policy
	runs      map[types.RunID]*policy.Run
	targets   map[types.TargetID]*webhook.Target
	attempts  map[types.AttemptID]*webhook.Attempt

	eb *goerr.Builder
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		schedules: make(map[types.ScheduleID]*schedule.Schedule),
		overrides: make(map[string]*schedule.Override),
		policies:  make(map[types.PolicyID]*policy.Policy),
		runs:      make(map[types.RunID]*policy.Run),
		targets:   make(map[types.TargetID]*webhook.Target),
		attempts:  make(map[types.AttemptID]*webhook.Attempt),
		eb:        goerr.NewBuilder(goerr.TV(errs.RepositoryKey, "memory")),
	}
}
