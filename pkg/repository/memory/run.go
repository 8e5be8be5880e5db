package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/policy"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

func (r *Memory) PutRun(ctx context.Context, run policy.Run) error {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if run.ID == types.EmptyRunID {
		return r.eb.New("run ID is empty", goerr.T(errs.TagValidation))
	}

	copied := run
	r.runs[run.ID] = &copied
	return nil
}

func (r *Memory) GetRun(ctx context.Context, id types.RunID) (*policy.Run, error) {
	r.runMu.RLock()
	defer r.runMu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, r.eb.New("run not found",
			goerr.V("run_id", id), goerr.T(errs.TagNotFound))
	}
	copied := *run
	return &copied, nil
}

func (r *Memory) ListRunsByStatus(ctx context.Context, status types.RunStatus) ([]*policy.Run, error) {
	r.runMu.RLock()
	defer r.runMu.RUnlock()

	var result []*policy.Run
	for _, run := range r.runs {
		if run.State.Status != status {
			continue
		}
		copied := *run
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// TransitionRun applies the mutation only when the stored state still equals
// expect. Overlapping tick executions observing the same stale state get a
// conflict instead of double-advancing the run.
func (r *Memory) TransitionRun(ctx context.Context, id types.RunID, expect policy.State, apply func(*policy.Run)) (*policy.Run, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, r.eb.New("run not found",
			goerr.V("run_id", id), goerr.T(errs.TagNotFound))
	}

	if !run.State.Equal(expect) {
		return nil, r.eb.New("run state changed concurrently",
			goerr.V("run_id", id),
			goerr.V("expect_level", expect.LevelIndex),
			goerr.V("actual_level", run.State.LevelIndex),
			goerr.T(errs.TagConflict))
	}

	copied := *run
	apply(&copied)
	r.runs[id] = &copied

	result := copied
	return &result, nil
}
