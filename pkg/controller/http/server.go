package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oncall-lab/rota/pkg/usecase"
)

type Server struct {
	router *chi.Mux
	uc     *usecase.UseCases
}

func New(uc *usecase.UseCases) *Server {
	r := chi.NewRouter()
	s := &Server{
		router: r,
		uc:     uc,
	}

	r.Use(loggingMiddleware)
	r.Use(panicRecoveryMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Machine-facing trigger surface: monitoring systems post here.
	r.Route("/hooks", func(r chi.Router) {
		r.Route("/escalation", func(r chi.Router) {
			r.Post("/trigger", triggerHandler(uc))
			r.Post("/ack", ackHandler(uc))
		})
	})

	// Operator-facing management API.
	r.Route("/api", func(r chi.Router) {
		r.Route("/schedules", func(r chi.Router) {
			r.Post("/", createScheduleHandler(uc))
			r.Get("/", listSchedulesHandler(uc))
			r.Route("/{scheduleID}", func(r chi.Router) {
				r.Get("/", getScheduleHandler(uc))
				r.Put("/", updateScheduleHandler(uc))
				r.Delete("/", deleteScheduleHandler(uc))
				r.Get("/oncall", onCallHandler(uc))
				r.Get("/calendar", calendarHandler(uc))
				r.Post("/overrides", setOverrideHandler(uc))
				r.Post("/overrides/bulk", setBulkOverrideHandler(uc))
			})
		})

		r.Route("/overrides", func(r chi.Router) {
			r.Get("/", queryOverridesHandler(uc))
			r.Delete("/{overrideID}", removeOverrideHandler(uc))
		})

		r.Route("/policies", func(r chi.Router) {
			r.Post("/", createPolicyHandler(uc))
			r.Get("/", listPoliciesHandler(uc))
			r.Route("/{policyID}", func(r chi.Router) {
				r.Get("/", getPolicyHandler(uc))
				r.Put("/", updatePolicyHandler(uc))
				r.Delete("/", deletePolicyHandler(uc))
			})
		})

		r.Route("/runs", func(r chi.Router) {
			r.Get("/", listRunsHandler(uc))
			r.Get("/{runID}", getRunHandler(uc))
		})

		r.Route("/targets", func(r chi.Router) {
			r.Post("/", createTargetHandler(uc))
			r.Get("/", listTargetsHandler(uc))
			r.Post("/test", testTargetHandler(uc))
			r.Route("/{targetID}", func(r chi.Router) {
				r.Get("/", getTargetHandler(uc))
				r.Put("/", updateTargetHandler(uc))
				r.Delete("/", deleteTargetHandler(uc))
			})
		})

		r.Route("/deliveries", func(r chi.Router) {
			r.Get("/", listDeliveriesHandler(uc))
			r.Route("/{attemptID}", func(r chi.Router) {
				r.Get("/", getDeliveryHandler(uc))
				r.Post("/retry", retryDeliveryHandler(uc))
			})
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
