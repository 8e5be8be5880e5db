package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oncall-lab/rota/pkg/domain/model/webhook"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"github.com/oncall-lab/rota/pkg/usecase"
)

func createTargetHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var t targetRequest
		if err := decodeBody(r, &t); err != nil {
			handleError(w, r, err)
			return
		}
		created, err := uc.CreateTarget(r.Context(), t.toModel())
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, created)
	}
}

// targetRequest carries the write-only Secret field, which the Target model
// itself never serializes.
type targetRequest struct {
	Owner   string            `json:"owner"`
	Name    string            `json:"name"`
	URL     string            `json:"url"`
	Enabled *bool             `json:"enabled"`
	Events  []types.EventType `json:"events"`
	Secret  string            `json:"secret"`
}

func (x targetRequest) toModel() webhook.Target {
	enabled := true
	if x.Enabled != nil {
		enabled = *x.Enabled
	}
	return webhook.Target{
		Owner:   x.Owner,
		Name:    x.Name,
		URL:     x.URL,
		Enabled: enabled,
		Events:  x.Events,
		Secret:  x.Secret,
	}
}

func listTargetsHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targets, err := uc.ListTargets(r.Context(), r.URL.Query().Get("owner"))
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"targets": targets})
	}
}

func getTargetHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := uc.GetTarget(r.Context(), types.TargetID(chi.URLParam(r, "targetID")))
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, t)
	}
}

func updateTargetHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var t targetRequest
		if err := decodeBody(r, &t); err != nil {
			handleError(w, r, err)
			return
		}
		m := t.toModel()
		m.ID = types.TargetID(chi.URLParam(r, "targetID"))
		updated, err := uc.UpdateTarget(r.Context(), m)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}
}

func deleteTargetHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := uc.DeleteTarget(r.Context(), types.TargetID(chi.URLParam(r, "targetID"))); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func testTargetHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := uc.SendTestEvent(r.Context(), r.URL.Query().Get("owner"))
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusAccepted, result)
	}
}

func listDeliveriesHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, err := queryInt(r, "offset")
		if err != nil {
			handleError(w, r, err)
			return
		}
		limit, err := queryInt(r, "limit")
		if err != nil {
			handleError(w, r, err)
			return
		}

		rows, total, err := uc.ListDeliveries(r.Context(), r.URL.Query().Get("owner"), offset, limit)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"deliveries": rows,
			"total":      total,
		})
	}
}

func getDeliveryHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		row, err := uc.GetDelivery(r.Context(), types.AttemptID(chi.URLParam(r, "attemptID")))
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, row)
	}
}

func retryDeliveryHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := uc.RetryDelivery(r.Context(), types.AttemptID(chi.URLParam(r, "attemptID")))
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, result)
	}
}
