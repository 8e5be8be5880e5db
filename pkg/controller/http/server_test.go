package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	server "github.com/oncall-lab/rota/pkg/controller/http"
	"github.com/oncall-lab/rota/pkg/domain/model/policy"
	"github.com/oncall-lab/rota/pkg/domain/model/schedule"
	"github.com/oncall-lab/rota/pkg/domain/model/webhook"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"github.com/oncall-lab/rota/pkg/repository/memory"
	"github.com/oncall-lab/rota/pkg/service/dispatcher"
	"github.com/oncall-lab/rota/pkg/usecase"
)

type stubDispatcher struct {
	events []*webhook.Event
}

func (x *stubDispatcher) Dispatch(_ context.Context, _ string, ev *webhook.Event) (*dispatcher.Result, error) {
	x.events = append(x.events, ev)
	return &dispatcher.Result{Delivered: 1, Total: 1}, nil
}

func (x *stubDispatcher) RetryDelivery(_ context.Context, _ types.AttemptID) (*dispatcher.TargetResult, error) {
	return &dispatcher.TargetResult{Attempts: 1, Success: true}, nil
}

func newTestServer() (*server.Server, *memory.Memory, *stubDispatcher) {
	repo := memory.New()
	stub := &stubDispatcher{}
	uc := usecase.New(usecase.WithRepository(repo), usecase.WithDispatcher(stub))
	return server.New(uc), repo, stub
}

func doJSON(t *testing.T, srv *server.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		raw := gt.R1(json.Marshal(body)).NoError(t)
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer()
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	gt.Equal(t, rec.Code, http.StatusOK)
}

func TestScheduleAPI(t *testing.T) {
	srv, _, _ := newTestServer()

	created := func() schedule.Schedule {
		rec := doJSON(t, srv, http.MethodPost, "/api/schedules", map[string]any{
			"owner": "ops",
			"name":  "primary",
			"members": []map[string]any{
				{"name": "alice", "contact": "alice@example.com", "position": 0},
				{"name": "bob", "contact": "bob@example.com", "position": 1},
			},
			"rotation_interval_days": 1,
			"anchor_date":            "2024-01-01T00:00:00Z",
		})
		gt.Equal(t, rec.Code, http.StatusCreated)
		return decode[schedule.Schedule](t, rec)
	}()

	t.Run("get round trip", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/schedules/"+created.ID.String(), nil)
		gt.Equal(t, rec.Code, http.StatusOK)
		got := decode[schedule.Schedule](t, rec)
		gt.Equal(t, got.Name, "primary")
		gt.A(t, got.Members).Length(2)
	})

	t.Run("oncall resolves the rotation", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet,
			"/api/schedules/"+created.ID.String()+"/oncall?at=2024-01-02", nil)
		gt.Equal(t, rec.Code, http.StatusOK)
		got := decode[schedule.Assignment](t, rec)
		gt.Equal(t, got.Member.Name, "bob")
	})

	t.Run("calendar expands the range", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet,
			"/api/schedules/"+created.ID.String()+"/calendar?from=2024-01-01&to=2024-01-03", nil)
		gt.Equal(t, rec.Code, http.StatusOK)
		got := decode[map[string][]schedule.Assignment](t, rec)
		gt.A(t, got["days"]).Length(3)
	})

	t.Run("unknown schedule is 404", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/api/schedules/"+types.NewScheduleID().String(), nil)
		gt.Equal(t, rec.Code, http.StatusNotFound)
	})

	t.Run("invalid schedule is 400", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/schedules", map[string]any{
			"owner":                  "ops",
			"name":                   "broken",
			"rotation_interval_days": 0,
		})
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})
}

func TestOverrideAPI(t *testing.T) {
	srv, _, _ := newTestServer()

	rec := doJSON(t, srv, http.MethodPost, "/api/schedules", map[string]any{
		"owner": "ops",
		"name":  "primary",
		"members": []map[string]any{
			{"name": "alice", "contact": "alice@example.com", "position": 0},
			{"name": "bob", "contact": "bob@example.com", "position": 1},
		},
		"rotation_interval_days": 1,
		"anchor_date":            "2024-01-01T00:00:00Z",
	})
	s := decode[schedule.Schedule](t, rec)

	t.Run("set and query", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/schedules/"+s.ID.String()+"/overrides", map[string]any{
			"date":       "2024-01-02",
			"member_id":  s.Members[0].ID.String(),
			"reason":     "swap",
			"created_by": "admin",
		})
		gt.Equal(t, rec.Code, http.StatusCreated)

		rec = doJSON(t, srv, http.MethodGet,
			"/api/overrides/?schedule_id="+s.ID.String()+"&sort=override_date", nil)
		gt.Equal(t, rec.Code, http.StatusOK)
		body := decode[map[string]json.RawMessage](t, rec)
		var rows []schedule.Override
		gt.NoError(t, json.Unmarshal(body["overrides"], &rows))
		gt.A(t, rows).Length(1)
		gt.Equal(t, rows[0].MemberName, "alice")
	})

	t.Run("bulk range", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/schedules/"+s.ID.String()+"/overrides/bulk", map[string]any{
			"date_from":  "2024-02-01",
			"date_to":    "2024-02-03",
			"member_id":  s.Members[1].ID.String(),
			"reason":     "conference",
			"created_by": "admin",
		})
		gt.Equal(t, rec.Code, http.StatusCreated)
	})

	t.Run("bad date is 400", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/schedules/"+s.ID.String()+"/overrides", map[string]any{
			"date":       "yesterday",
			"member_id":  s.Members[0].ID.String(),
			"created_by": "admin",
		})
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("foreign member is 400", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/schedules/"+s.ID.String()+"/overrides", map[string]any{
			"date":       "2024-01-05",
			"member_id":  types.NewMemberID().String(),
			"created_by": "admin",
		})
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})
}

func TestEscalationAPI(t *testing.T) {
	srv, _, stub := newTestServer()

	rec := doJSON(t, srv, http.MethodPost, "/api/policies", map[string]any{
		"owner":        "ops",
		"name":         "standard",
		"repeat_count": 0,
		"levels": []map[string]any{
			{
				"level_order":     0,
				"notify_method":   "chat",
				"timeout_minutes": 5,
				"contact":         map[string]string{"name": "primary", "address": "primary@example.com"},
			},
		},
	})
	gt.Equal(t, rec.Code, http.StatusCreated)
	p := decode[policy.Policy](t, rec)

	t.Run("trigger starts a run and notifies", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/hooks/escalation/trigger", map[string]any{
			"policy_id": p.ID.String(),
			"ref_id":    "incident-42",
			"severity":  "high",
		})
		gt.Equal(t, rec.Code, http.StatusCreated)
		run := decode[policy.Run](t, rec)
		gt.Equal(t, run.State.Status, types.RunStatusActive)
		gt.A(t, stub.events).Length(1)

		t.Run("acknowledge", func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodPost, "/hooks/escalation/ack", map[string]any{
				"run_id": run.ID.String(),
				"by":     "alice",
			})
			gt.Equal(t, rec.Code, http.StatusOK)
			got := decode[policy.Run](t, rec)
			gt.Equal(t, got.State.Status, types.RunStatusAcknowledged)
			gt.Equal(t, got.AcknowledgedBy, "alice")
		})

		t.Run("runs listing by status", func(t *testing.T) {
			rec := doJSON(t, srv, http.MethodGet, "/api/runs/?status=acknowledged", nil)
			gt.Equal(t, rec.Code, http.StatusOK)
		})
	})

	t.Run("missing ref is 400", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/hooks/escalation/trigger", map[string]any{
			"policy_id": p.ID.String(),
			"severity":  "low",
		})
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("unknown policy is 404", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/hooks/escalation/trigger", map[string]any{
			"policy_id": types.NewPolicyID().String(),
			"ref_id":    "incident-43",
			"severity":  "low",
		})
		gt.Equal(t, rec.Code, http.StatusNotFound)
	})
}

func TestTargetAndDeliveryAPI(t *testing.T) {
	srv, repo, _ := newTestServer()

	rec := doJSON(t, srv, http.MethodPost, "/api/targets", map[string]any{
		"owner":  "ops",
		"name":   "primary hook",
		"url":    "https://example.com/hook",
		"events": []string{"escalation", "test"},
		"secret": "s3cret",
	})
	gt.Equal(t, rec.Code, http.StatusCreated)
	target := decode[webhook.Target](t, rec)

	t.Run("secret never appears in responses", func(t *testing.T) {
		gt.False(t, bytes.Contains(rec.Body.Bytes(), []byte("s3cret")))

		rec := doJSON(t, srv, http.MethodGet, "/api/targets/"+target.ID.String(), nil)
		gt.Equal(t, rec.Code, http.StatusOK)
		gt.False(t, bytes.Contains(rec.Body.Bytes(), []byte("s3cret")))
	})

	t.Run("test event is accepted", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/api/targets/test?owner=ops", nil)
		gt.Equal(t, rec.Code, http.StatusAccepted)
	})

	t.Run("deliveries listing", func(t *testing.T) {
		code := 200
		gt.NoError(t, repo.PutAttempt(context.Background(), webhook.Attempt{
			ID:            types.NewAttemptID(),
			DeliveryID:    types.NewDeliveryID(),
			TargetID:      target.ID,
			Owner:         "ops",
			EventType:     types.EventTypeEscalation,
			Payload:       []byte(`{}`),
			AttemptNumber: 1,
			StatusCode:    &code,
			Success:       true,
			CreatedAt:     time.Now(),
		}))

		rec := doJSON(t, srv, http.MethodGet, "/api/deliveries/?owner=ops", nil)
		gt.Equal(t, rec.Code, http.StatusOK)
		body := decode[map[string]json.RawMessage](t, rec)
		var total int
		gt.NoError(t, json.Unmarshal(body["total"], &total))
		gt.Equal(t, total, 1)
	})
}
