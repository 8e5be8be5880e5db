package dispatcher

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/oncall-lab/rota/pkg/domain/interfaces"
	"github.com/oncall-lab/rota/pkg/domain/model/errs"
	"github.com/oncall-lab/rota/pkg/domain/model/webhook"
	"github.com/oncall-lab/rota/pkg/domain/types"
	"github.com/oncall-lab/rota/pkg/utils/clock"
	"github.com/oncall-lab/rota/pkg/utils/logging"
	"github.com/oncall-lab/rota/pkg/utils/safe"
)

const (
	// maxRetryCeiling caps operator configuration; no target gets more than
	// five attempts per delivery regardless of settings.
	maxRetryCeiling  = 5
	defaultMaxRetry  = 3
	defaultBaseDelay = time.Second

	signatureHeader = "X-Webhook-Signature"
)

// Dispatcher fans an event out to every matching notification target and
// records each HTTP attempt in the delivery ledger. Delivery failure is an
// operational condition, not a caller error: Dispatch always returns after
// recording whatever happened.
type Dispatcher struct {
	repo      interfaces.Repository
	client    *http.Client
	rules     []Rule
	generic   Formatter
	maxRetry  int
	baseDelay time.Duration
}

type Option func(*Dispatcher)

func WithHTTPClient(client *http.Client) Option {
	return func(x *Dispatcher) {
		x.client = client
	}
}

// WithMaxRetry sets attempts per delivery, clamped to [1, 5].
func WithMaxRetry(n int) Option {
	return func(x *Dispatcher) {
		if n < 1 {
			n = 1
		}
		if n > maxRetryCeiling {
			n = maxRetryCeiling
		}
		x.maxRetry = n
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(x *Dispatcher) {
		if d > 0 {
			x.baseDelay = d
		}
	}
}

// WithRules replaces the URL-matching rules used to pick payload formatters.
func WithRules(rules []Rule) Option {
	return func(x *Dispatcher) {
		x.rules = rules
	}
}

func New(repo interfaces.Repository, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		repo:      repo,
		client:    &http.Client{Timeout: 10 * time.Second},
		rules:     defaultRules(),
		generic:   &GenericFormatter{},
		maxRetry:  defaultMaxRetry,
		baseDelay: defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (x *Dispatcher) formatterFor(url string) Formatter {
	for _, rule := range x.rules {
		if rule.Match(url) {
			return rule.Formatter
		}
	}
	return x.generic
}

// Result aggregates one Dispatch call across all matching targets.
type Result struct {
	Delivered int            `json:"delivered"`
	Total     int            `json:"total"`
	PerTarget []TargetResult `json:"per_target"`
}

// TargetResult is the final outcome of delivering one event to one target.
type TargetResult struct {
	TargetID   types.TargetID   `json:"target_id"`
	DeliveryID types.DeliveryID `json:"delivery_id,omitempty"`
	StatusCode *int             `json:"status_code,omitempty"`
	Success    bool             `json:"success"`
	Error      string           `json:"error,omitempty"`
	Attempts   int              `json:"attempts"`
}

// Dispatch sends the event to every enabled target of the owner subscribed to
// the event's type. Targets are delivered concurrently; the call returns when
// all deliveries have finished (succeeded, exhausted retries, or hit a
// terminal response). Only infrastructure failures before any delivery starts
// are returned as errors.
func (x *Dispatcher) Dispatch(ctx context.Context, owner string, ev *webhook.Event) (*Result, error) {
	targets, err := x.repo.ListTargetsByOwner(ctx, owner)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notification targets",
			goerr.V("owner", owner))
	}

	var selected []*webhook.Target
	for _, t := range targets {
		if t.Enabled && t.Subscribed(ev.Type) {
			selected = append(selected, t)
		}
	}

	result := &Result{
		Total:     len(selected),
		PerTarget: make([]TargetResult, len(selected)),
	}

	var wg sync.WaitGroup
	for i, t := range selected {
		wg.Add(1)
		go func(i int, target *webhook.Target) {
			defer wg.Done()
			result.PerTarget[i] = x.deliver(ctx, target, ev)
		}(i, t)
	}
	wg.Wait()

	for _, tr := range result.PerTarget {
		if tr.Success {
			result.Delivered++
		}
	}
	return result, nil
}

// deliver formats the event for one target and runs the retry loop under a
// fresh delivery ID.
func (x *Dispatcher) deliver(ctx context.Context, target *webhook.Target, ev *webhook.Event) TargetResult {
	formatter := x.formatterFor(target.URL)
	payload, err := formatter.Format(ev)
	if err != nil {
		errs.Handle(ctx, goerr.Wrap(err, "failed to format payload",
			goerr.V("target_id", target.ID), goerr.V("formatter", formatter.Name())))
		return TargetResult{TargetID: target.ID, Error: "payload formatting failed"}
	}

	return x.run(ctx, target, formatter, ev.Type, payload, types.NewDeliveryID(), 1)
}

// run is the bounded retry loop for one target, writing one ledger row per
// attempt. 2xx succeeds; 4xx other than 429 is terminal; 429, 5xx and network
// errors are retried with exponential backoff. Ledger rows are numbered from
// first, so redeliveries continue where the original delivery stopped.
func (x *Dispatcher) run(ctx context.Context, target *webhook.Target, formatter Formatter, eventType types.EventType, payload []byte, deliveryID types.DeliveryID, first int) TargetResult {
	logger := logging.From(ctx).With(
		slog.Any("target_id", target.ID),
		slog.String("url", target.URL),
	)
	res := TargetResult{TargetID: target.ID, DeliveryID: deliveryID}

	for i := 0; i < x.maxRetry; i++ {
		outcome := x.post(ctx, target, formatter, payload)
		x.record(ctx, deliveryID, target, eventType, payload, first+i, outcome)
		res.Attempts = i + 1
		res.StatusCode = outcome.statusCode
		res.Error = outcome.err

		if outcome.success {
			res.Success = true
			logger.Debug("webhook delivered",
				slog.Any("delivery_id", deliveryID),
				slog.Int("attempt", first+i))
			return res
		}
		if outcome.terminal {
			code := 0
			if outcome.statusCode != nil {
				code = *outcome.statusCode
			}
			logger.Warn("webhook delivery rejected",
				slog.Any("delivery_id", deliveryID),
				slog.Int("status_code", code))
			return res
		}
		if i == x.maxRetry-1 {
			break
		}
		if !x.wait(ctx, i) {
			return res
		}
	}

	logger.Warn("webhook delivery failed after retries",
		slog.Any("delivery_id", deliveryID),
		slog.Int("attempts", x.maxRetry))
	return res
}

// RetryDelivery re-runs the delivery that produced the given ledger row, with
// the same retry budget and backoff as a fresh dispatch, continuing the
// delivery's attempt numbering. It replays the recorded payload byte-for-byte,
// so the receiver sees the original notification even if the target's
// formatter rules changed since.
func (x *Dispatcher) RetryDelivery(ctx context.Context, attemptID types.AttemptID) (*TargetResult, error) {
	prev, err := x.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	target, err := x.repo.GetTarget(ctx, prev.TargetID)
	if err != nil {
		return nil, goerr.Wrap(err, "retry target is gone",
			goerr.V("target_id", prev.TargetID))
	}
	if !target.Enabled {
		return nil, goerr.New("retry target is disabled",
			goerr.V("target_id", target.ID), goerr.T(errs.TagInvalidRequest))
	}

	history, err := x.repo.ListAttemptsByDelivery(ctx, prev.DeliveryID)
	if err != nil {
		return nil, err
	}
	next := 1
	for _, a := range history {
		if a.AttemptNumber >= next {
			next = a.AttemptNumber + 1
		}
	}

	res := x.run(ctx, target, x.formatterFor(target.URL), prev.EventType, prev.Payload, prev.DeliveryID, next)
	return &res, nil
}

type outcome struct {
	statusCode *int
	success    bool
	terminal   bool
	err        string
}

func (x *Dispatcher) post(ctx context.Context, target *webhook.Target, formatter Formatter, payload []byte) outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.URL, bytes.NewReader(payload))
	if err != nil {
		return outcome{terminal: true, err: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	if formatter.Signable() && target.Secret != "" {
		req.Header.Set(signatureHeader, sign(target.Secret, payload))
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return outcome{err: err.Error()}
	}
	defer safe.Close(ctx, resp.Body)

	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return outcome{statusCode: &code, success: true}
	case code == http.StatusTooManyRequests:
		return outcome{statusCode: &code, err: resp.Status}
	case code >= 400 && code < 500:
		return outcome{statusCode: &code, terminal: true, err: resp.Status}
	default:
		return outcome{statusCode: &code, err: resp.Status}
	}
}

// sign computes the payload signature: HMAC-SHA256 over the exact request
// body, keyed with the target secret.
func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (x *Dispatcher) record(ctx context.Context, deliveryID types.DeliveryID, target *webhook.Target, eventType types.EventType, payload []byte, attemptNumber int, o outcome) {
	row := x.buildAttempt(ctx, deliveryID, target, eventType, payload, attemptNumber, o)
	if err := x.repo.PutAttempt(ctx, row); err != nil {
		errs.Handle(ctx, goerr.Wrap(err, "failed to record delivery attempt",
			goerr.V("delivery_id", deliveryID), goerr.V("target_id", target.ID)))
	}
}

func (x *Dispatcher) buildAttempt(ctx context.Context, deliveryID types.DeliveryID, target *webhook.Target, eventType types.EventType, payload []byte, attemptNumber int, o outcome) webhook.Attempt {
	return webhook.Attempt{
		ID:            types.NewAttemptID(),
		DeliveryID:    deliveryID,
		TargetID:      target.ID,
		Owner:         target.Owner,
		EventType:     eventType,
		Payload:       payload,
		AttemptNumber: attemptNumber,
		StatusCode:    o.statusCode,
		Success:       o.success,
		Error:         o.err,
		CreatedAt:     clock.Now(ctx),
	}
}

// wait sleeps for baseDelay * 2^i, aborting early on context cancellation.
func (x *Dispatcher) wait(ctx context.Context, i int) bool {
	timer := time.NewTimer(x.baseDelay << uint(i))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
