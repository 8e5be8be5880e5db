package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oncall-lab/rota/pkg/domain/model/schedule"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"github.com/oncall-lab/rota/pkg/usecase"
)

type overrideRequest struct {
	Date      string         `json:"date"`
	MemberID  types.MemberID `json:"member_id"`
	Reason    string         `json:"reason"`
	CreatedBy string         `json:"created_by"`
}

type bulkOverrideRequest struct {
	DateFrom  string         `json:"date_from"`
	DateTo    string         `json:"date_to"`
	MemberID  types.MemberID `json:"member_id"`
	Reason    string         `json:"reason"`
	CreatedBy string         `json:"created_by"`
}

func setOverrideHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req overrideRequest
		if err := decodeBody(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
		date, err := parseDate(req.Date)
		if err != nil {
			handleError(w, r, err)
			return
		}

		ov, err := uc.SetOverride(r.Context(), usecase.OverrideInput{
			ScheduleID: types.ScheduleID(chi.URLParam(r, "scheduleID")),
			Date:       date,
			MemberID:   req.MemberID,
			Reason:     req.Reason,
			CreatedBy:  req.CreatedBy,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, ov)
	}
}

func setBulkOverrideHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkOverrideRequest
		if err := decodeBody(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
		from, err := parseDate(req.DateFrom)
		if err != nil {
			handleError(w, r, err)
			return
		}
		to, err := parseDate(req.DateTo)
		if err != nil {
			handleError(w, r, err)
			return
		}

		rows, err := uc.SetBulkOverride(r.Context(), usecase.BulkOverrideInput{
			ScheduleID: types.ScheduleID(chi.URLParam(r, "scheduleID")),
			DateFrom:   from,
			DateTo:     to,
			MemberID:   req.MemberID,
			Reason:     req.Reason,
			CreatedBy:  req.CreatedBy,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, map[string]any{"overrides": rows})
	}
}

func removeOverrideHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := uc.RemoveOverride(r.Context(), types.OverrideID(chi.URLParam(r, "overrideID"))); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func queryOverridesHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := schedule.OverrideQuery{
			ScheduleID: types.ScheduleID(r.URL.Query().Get("schedule_id")),
			MemberID:   types.MemberID(r.URL.Query().Get("member_id")),
			Reason:     r.URL.Query().Get("reason"),
			SortBy:     schedule.OverrideSortKey(r.URL.Query().Get("sort")),
			Descending: r.URL.Query().Get("desc") == "true",
		}

		var err error
		if s := r.URL.Query().Get("from"); s != "" {
			var from time.Time
			if from, err = parseDate(s); err != nil {
				handleError(w, r, err)
				return
			}
			q.DateFrom = from
		}
		if s := r.URL.Query().Get("to"); s != "" {
			var to time.Time
			if to, err = parseDate(s); err != nil {
				handleError(w, r, err)
				return
			}
			q.DateTo = to
		}
		if q.Offset, err = queryInt(r, "offset"); err != nil {
			handleError(w, r, err)
			return
		}
		if q.Limit, err = queryInt(r, "limit"); err != nil {
			handleError(w, r, err)
			return
		}

		rows, total, err := uc.QueryOverrides(r.Context(), q)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"overrides": rows,
			"total":     total,
		})
	}
}
