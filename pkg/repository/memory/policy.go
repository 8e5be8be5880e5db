package memory

import (
	"context"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/policy"
	"github.com/oncall-lab/rota/pkg/domain/types"
)

func (r *Memory) PutPolicy(ctx context.Context, p policy.Policy) error {
	r.policyMu.Lock()
	defer r.policyMu.Unlock()

	if p.ID == types.EmptyPolicyID {
		return r.eb.New("policy ID is empty", goerr.T(errs.TagValidation))
	}

	copied := p
	copied.Levels = append([]policy.Level(nil), p.Levels...)
	r.policies[p.ID] = &copied
	return nil
}

func (r *Memory) GetPolicy(ctx context.Context, id types.PolicyID) (*policy.Policy, error) {
	r.policyMu.RLock()
	defer r.policyMu.RUnlock()

	p, ok := r.policies[id]
	if !ok {
		return nil, r.eb.New("policy not found",
			goerr.V("policy_id", id), goerr.T(errs.TagNotFound))
	}

	copied := *p
	copied.Levels = append([]policy.Level(nil), p.Levels...)
	return &copied, nil
}

func (r *Memory) ListPolicies(ctx context.Context, owner string) ([]*policy.Policy, error) {
	r.policyMu.RLock()
	defer r.policyMu.RUnlock()

	var result []*policy.Policy
	for _, p := range r.policies {
		if owner != "" && p.Owner != owner {
			continue
		}
		copied := *p
		copied.Levels = append([]policy.Level(nil), p.Levels...)
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *Memory) DeletePolicy(ctx context.Context, id types.PolicyID) error {
	r.policyMu.Lock()
	defer r.policyMu.Unlock()

	if _, ok := r.policies[id]; !ok {
		return r.eb.New("policy not found",
			goerr.V("policy_id", id), goerr.T(errs.TagNotFound))
	}
	delete(r.policies, id)
	return nil
}
