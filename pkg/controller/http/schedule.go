package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/schedule"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"github.com/oncall-lab/rota/pkg/usecase"
	"github.com/oncall-lab/rota/pkg/utils/clock"
)

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(err, "failed to decode request body", goerr.T(errs.TagInvalidRequest))
	}
	return nil
}

// parseDate accepts a plain calendar day or a full RFC3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, goerr.Wrap(err, "invalid date",
			goerr.V("value", s), goerr.T(errs.TagInvalidRequest))
	}
	return t, nil
}

func queryInt(r *http.Request, key string) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, goerr.Wrap(err, "invalid integer parameter",
			goerr.V("key", key), goerr.V("value", s), goerr.T(errs.TagInvalidRequest))
	}
	return n, nil
}

func createScheduleHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var s schedule.Schedule
		if err := decodeBody(r, &s); err != nil {
			handleError(w, r, err)
			return
		}
		created, err := uc.CreateSchedule(r.Context(), s)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, created)
	}
}

func listSchedulesHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		schedules, err := uc.ListSchedules(r.Context(), r.URL.Query().Get("owner"))
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"schedules": schedules})
	}
}

func getScheduleHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := uc.GetSchedule(r.Context(), types.ScheduleID(chi.URLParam(r, "scheduleID")))
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, s)
	}
}

func updateScheduleHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var s schedule.Schedule
		if err := decodeBody(r, &s); err != nil {
			handleError(w, r, err)
			return
		}
		s.ID = types.ScheduleID(chi.URLParam(r, "scheduleID"))
		updated, err := uc.UpdateSchedule(r.Context(), s)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, updated)
	}
}

func deleteScheduleHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := uc.DeleteSchedule(r.Context(), types.ScheduleID(chi.URLParam(r, "scheduleID"))); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func onCallHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		at := clock.Now(r.Context())
		if s := r.URL.Query().Get("at"); s != "" {
			parsed, err := parseDate(s)
			if err != nil {
				handleError(w, r, err)
				return
			}
			at = parsed
		}

		a, err := uc.WhoIsOnCall(r.Context(), types.ScheduleID(chi.URLParam(r, "scheduleID")), at)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, a)
	}
}

func calendarHandler(uc *usecase.UseCases) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		from, err := parseDate(r.URL.Query().Get("from"))
		if err != nil {
			handleError(w, r, err)
			return
		}
		to, err := parseDate(r.URL.Query().Get("to"))
		if err != nil {
			handleError(w, r, err)
			return
		}

		days, err := uc.Calendar(r.Context(), types.ScheduleID(chi.URLParam(r, "scheduleID")), from, to)
		if err != nil {
			handleError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"days": days})
	}
}
