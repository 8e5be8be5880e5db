package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oncall-lab/rota/pkg/domain/model/policy"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"github.com/oncall-lab/rota/pkg/usecase"
)

type triggerRequest struct {
	PolicyID types.PolicyID `json:"policy_id"`
	RefID    string         `json:"ref_id"`
	Severity types.Severity `json:"severity"`
}

type ackRequest struct {
	RunID types.RunID `json:"run_id"`
	By    string      `json:"by"`
}

func triggerHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req triggerRequest
		if err := decodeBody(r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		run, err := uc.TriggerEscalation(r.Context(), req.PolicyID, req.RefID, req.Severity)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, run)
	}
}

func ackHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ackRequest
		if err := decodeBody(r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		run, err := uc.AcknowledgeEscalation(r.Context(), req.RunID, req.By)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, run)
	}
}

func createPolicyHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p policy.Policy
		if err := decodeBody(r, &p); err != nil {
			handleError(w, r, err)
			return
		}
		created, err := uc.CreatePolicy(r.Context(), p)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, created)
	}
}

func listPoliciesHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		policies, err := uc.ListPolicies(r.Context(), r.URL.Query().Get("owner"))
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"policies": policies})
	}
}

func getPolicyHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := uc.GetPolicy(r.Context(), types.PolicyID(chi.URLParam(r, "policyID")))
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, p)
	}
}

func updatePolicyHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p policy.Policy
		if err := decodeBody(r, &p); err != nil {
			handleError(w, r, err)
			return
		}
		p.ID = types.PolicyID(chi.URLParam(r, "policyID"))
		updated, err := uc.UpdatePolicy(r.Context(), p)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}
}

func deletePolicyHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := uc.DeletePolicy(r.Context(), types.PolicyID(chi.URLParam(r, "policyID"))); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listRunsHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := types.RunStatus(r.URL.Query().Get("status"))
		if status == "" {
			status = types.RunStatusActive
		}

		runs, err := uc.ListRunsByStatus(r.Context(), status)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
	}
}

func getRunHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := uc.GetRun(r.Context(), types.RunID(chi.URLParam(r, "runID")))
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, run)
	}
}
