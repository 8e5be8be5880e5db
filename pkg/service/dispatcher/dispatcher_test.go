package dispatcher_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/oncall-lab/rota/pkg/domain/model/webhook"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"github.com/oncall-lab/rota/pkg/repository/memory"
	"github.com/oncall-lab/rota/pkg/service/dispatcher"
)

func testEvent() *webhook.Event {
	return &webhook.Event{
		Type:     types.EventTypeEscalation,
		Title:    "escalation: checkout latency",
		Message:  "level 0 notified",
		Severity: types.SeverityHigh,
		Metadata: map[string]any{
			"run_id": "run-1",
		},
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func testTarget(owner, url, secret string) webhook.Target {
	return webhook.Target{
		ID:      types.NewTargetID(),
		Owner:   owner,
		Name:    "hook",
		URL:     url,
		Enabled: true,
		Events:  []types.EventType{types.EventTypeEscalation},
		Secret:  secret,
	}
}

func TestDispatchSuccess(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	var gotSignature string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Webhook-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	target := testTarget("ops", srv.URL, "s3cret")
	gt.NoError(t, repo.PutTarget(ctx, target))

	d := dispatcher.New(repo, dispatcher.WithBaseDelay(time.Millisecond))
	result := gt.R1(d.Dispatch(ctx, "ops", testEvent())).NoError(t)
	gt.Equal(t, result.Delivered, 1)
	gt.Equal(t, result.Total, 1)
	gt.A(t, result.PerTarget).Length(1)
	gt.Equal(t, result.PerTarget[0].TargetID, target.ID)
	gt.Equal(t, result.PerTarget[0].Attempts, 1)

	rows := gt.R1(repo.ListAttemptsByOwner(ctx, "ops", 0, 0)).NoError(t)
	gt.A(t, rows).Length(1)
	gt.True(t, rows[0].Success)
	gt.Equal(t, rows[0].AttemptNumber, 1)
	gt.Equal(t, *rows[0].StatusCode, http.StatusOK)

	// The signature covers the exact bytes that went over the wire.
	mac := hmac.New(sha256.New, []byte("s3cret"))
	mac.Write(gotBody)
	gt.Equal(t, gotSignature, "sha256="+hex.EncodeToString(mac.Sum(nil)))
	gt.Equal(t, string(rows[0].Payload), string(gotBody))

	var decoded map[string]any
	gt.NoError(t, json.Unmarshal(gotBody, &decoded))
	gt.Equal(t, decoded["event"], "escalation")
}

func TestDispatchRetriesServerErrors(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	target := testTarget("ops", srv.URL, "")
	gt.NoError(t, repo.PutTarget(ctx, target))

	d := dispatcher.New(repo, dispatcher.WithBaseDelay(time.Millisecond))
	gt.R1(d.Dispatch(ctx, "ops", testEvent())).NoError(t)

	gt.Equal(t, calls.Load(), 3)

	rows := gt.R1(repo.ListAttemptsByOwner(ctx, "ops", 0, 0)).NoError(t)
	gt.A(t, rows).Length(3)

	deliveryID := rows[0].DeliveryID
	ordered := gt.R1(repo.ListAttemptsByDelivery(ctx, deliveryID)).NoError(t)
	gt.Equal(t, ordered[0].AttemptNumber, 1)
	gt.False(t, ordered[0].Success)
	gt.Equal(t, ordered[2].AttemptNumber, 3)
	gt.True(t, ordered[2].Success)
}

func TestDispatchClientErrorIsTerminal(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	gt.NoError(t, repo.PutTarget(ctx, testTarget("ops", srv.URL, "")))

	d := dispatcher.New(repo, dispatcher.WithBaseDelay(time.Millisecond))
	result := gt.R1(d.Dispatch(ctx, "ops", testEvent())).NoError(t)
	gt.Equal(t, result.Delivered, 0)
	gt.Equal(t, result.Total, 1)
	gt.False(t, result.PerTarget[0].Success)

	gt.Equal(t, calls.Load(), 1)
	rows := gt.R1(repo.ListAttemptsByOwner(ctx, "ops", 0, 0)).NoError(t)
	gt.A(t, rows).Length(1)
	gt.False(t, rows[0].Success)
	gt.Equal(t, *rows[0].StatusCode, http.StatusNotFound)
}

func TestDispatchRateLimitIsRetried(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gt.NoError(t, repo.PutTarget(ctx, testTarget("ops", srv.URL, "")))

	d := dispatcher.New(repo, dispatcher.WithBaseDelay(time.Millisecond))
	gt.R1(d.Dispatch(ctx, "ops", testEvent())).NoError(t)

	gt.Equal(t, calls.Load(), 2)
}

func TestDispatchChatOpsPathIsUnsigned(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	var gotSignature string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get("X-Webhook-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Secret is configured, but the chat-ops formatter opts out of signing.
	gt.NoError(t, repo.PutTarget(ctx, testTarget("ops", srv.URL, "s3cret")))

	d := dispatcher.New(repo,
		dispatcher.WithBaseDelay(time.Millisecond),
		dispatcher.WithRules([]dispatcher.Rule{
			{
				Match:     func(string) bool { return true },
				Formatter: &dispatcher.ChatOpsFormatter{},
			},
		}),
	)
	gt.R1(d.Dispatch(ctx, "ops", testEvent())).NoError(t)

	gt.Equal(t, gotSignature, "")

	var msg map[string]any
	gt.NoError(t, json.Unmarshal(gotBody, &msg))
	gt.Equal(t, msg["text"], "escalation: checkout latency")
	attachments := gt.Cast[[]any](t, msg["attachments"])
	gt.A(t, attachments).Length(1)
	first := gt.Cast[map[string]any](t, attachments[0])
	gt.Equal(t, gt.Cast[string](t, first["color"]), types.SeverityHigh.Color())
}

func TestDispatchSkipsUnmatchedTargets(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	disabled := testTarget("ops", srv.URL, "")
	disabled.Enabled = false
	gt.NoError(t, repo.PutTarget(ctx, disabled))

	recoveryOnly := testTarget("ops", srv.URL, "")
	recoveryOnly.Events = []types.EventType{types.EventTypeRecovery}
	gt.NoError(t, repo.PutTarget(ctx, recoveryOnly))

	otherOwner := testTarget("payments", srv.URL, "")
	gt.NoError(t, repo.PutTarget(ctx, otherOwner))

	d := dispatcher.New(repo, dispatcher.WithBaseDelay(time.Millisecond))
	result := gt.R1(d.Dispatch(ctx, "ops", testEvent())).NoError(t)
	gt.Equal(t, result.Total, 0)

	gt.Equal(t, calls.Load(), 0)
	rows := gt.R1(repo.ListAttemptsByOwner(ctx, "ops", 0, 0)).NoError(t)
	gt.A(t, rows).Length(0)
}

func TestRetryDelivery(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	var fail atomic.Bool
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	target := testTarget("ops", srv.URL, "")
	gt.NoError(t, repo.PutTarget(ctx, target))

	d := dispatcher.New(repo,
		dispatcher.WithBaseDelay(time.Millisecond),
		dispatcher.WithMaxRetry(2),
	)
	gt.R1(d.Dispatch(ctx, "ops", testEvent())).NoError(t)

	rows := gt.R1(repo.ListAttemptsByOwner(ctx, "ops", 0, 0)).NoError(t)
	gt.A(t, rows).Length(2)

	t.Run("continues the attempt numbering of the delivery", func(t *testing.T) {
		fail.Store(false)
		res := gt.R1(d.RetryDelivery(ctx, rows[0].ID)).NoError(t)
		gt.True(t, res.Success)
		gt.Equal(t, res.Attempts, 1)
		gt.Equal(t, res.DeliveryID, rows[0].DeliveryID)

		history := gt.R1(repo.ListAttemptsByDelivery(ctx, rows[0].DeliveryID)).NoError(t)
		gt.A(t, history).Length(3)
		gt.Equal(t, history[2].AttemptNumber, 3)
		gt.True(t, history[2].Success)
	})

	t.Run("runs the full retry budget like a fresh dispatch", func(t *testing.T) {
		fail.Store(true)
		res := gt.R1(d.RetryDelivery(ctx, rows[0].ID)).NoError(t)
		gt.False(t, res.Success)
		gt.Equal(t, res.Attempts, 2)

		// 2 original attempts, 1 successful retry, 2 failed retries.
		history := gt.R1(repo.ListAttemptsByDelivery(ctx, rows[0].DeliveryID)).NoError(t)
		gt.A(t, history).Length(5)
		gt.Equal(t, history[3].AttemptNumber, 4)
		gt.Equal(t, history[4].AttemptNumber, 5)
		gt.False(t, history[4].Success)
	})

	t.Run("refuses a disabled target", func(t *testing.T) {
		target.Enabled = false
		gt.NoError(t, repo.PutTarget(ctx, target))
		_, err := d.RetryDelivery(ctx, rows[0].ID)
		gt.Error(t, err)
	})

	t.Run("unknown attempt is an error", func(t *testing.T) {
		_, err := d.RetryDelivery(ctx, types.NewAttemptID())
		gt.Error(t, err)
	})
}

func TestBackoffDoublesBetweenAttempts(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	var mu sync.Mutex
	var arrivals []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		arrivals = append(arrivals, time.Now())
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gt.NoError(t, repo.PutTarget(ctx, testTarget("ops", srv.URL, "")))

	base := 100 * time.Millisecond
	d := dispatcher.New(repo,
		dispatcher.WithBaseDelay(base),
		dispatcher.WithMaxRetry(3),
	)
	gt.R1(d.Dispatch(ctx, "ops", testEvent())).NoError(t)

	mu.Lock()
	defer mu.Unlock()
	gt.A(t, arrivals).Length(3)

	// base, then base*2: each gap must clear its schedule, and the second
	// must be clearly longer than the first.
	gap1 := arrivals[1].Sub(arrivals[0])
	gap2 := arrivals[2].Sub(arrivals[1])
	gt.True(t, gap1 >= base)
	gt.True(t, gap2 >= 2*base)
	gt.True(t, gap1 < 2*base)
	gt.True(t, gap2 < 4*base)
}

func TestMaxRetryClamp(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gt.NoError(t, repo.PutTarget(ctx, testTarget("ops", srv.URL, "")))

	d := dispatcher.New(repo,
		dispatcher.WithBaseDelay(time.Millisecond),
		dispatcher.WithMaxRetry(10),
	)
	gt.R1(d.Dispatch(ctx, "ops", testEvent())).NoError(t)

	gt.Equal(t, calls.Load(), 5)
}
