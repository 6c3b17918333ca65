package lro

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stratoforge/stratoctl/pkg/api"
	"github.com/stratoforge/stratoctl/pkg/telemetry"
	"github.com/stratoforge/stratoctl/pkg/transport"
)

const (
	defaultInitialInterval = 1 * time.Second
	defaultMaxInterval     = 10 * time.Second
)

// Poller submits mutating requests and waits for the resulting operations
// to reach a terminal state. One Submit issues exactly one network call;
// nothing in this type retries a failed submission.
type Poller struct {
	transport transport.Transport
	logger    zerolog.Logger
	metrics   *telemetry.Metrics

	initialInterval time.Duration
	maxInterval     time.Duration
}

// NewPoller creates a poller over the given transport. Metrics may be nil.
func NewPoller(t transport.Transport, logger zerolog.Logger, metrics *telemetry.Metrics) *Poller {
	if metrics == nil {
		metrics = &telemetry.Metrics{}
	}
	return &Poller{
		transport:       t,
		logger:          logger.With().Str("component", "lro-poller").Logger(),
		metrics:         metrics,
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
	}
}

// WithIntervals overrides the poll intervals. Intended for tests and for
// providers with documented minimum poll spacing.
func (p *Poller) WithIntervals(initial, max time.Duration) *Poller {
	if initial > 0 {
		p.initialInterval = initial
	}
	if max > 0 {
		p.maxInterval = max
	}
	return p
}

// Submit issues the mutating request and returns the reference of the
// operation the provider started. Any transport-level failure or non-2xx
// reply surfaces immediately as a request-rejected error with the
// provider's structured payload attached; retry safety is governed by the
// provider's idempotency rules, which this layer does not assume.
func (p *Poller) Submit(ctx context.Context, req *api.PreparedRequest) (*OperationRef, error) {
	body, err := req.EncodeBody()
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	submissionID := uuid.New().String()
	logger := p.logger.With().
		Str("submission_id", submissionID).
		Str("resource_type", req.ResourceType).
		Str("resource", req.ResourceName).
		Logger()

	logger.Info().Str("path", req.Path).Msg("submitting request")

	resp, err := p.transport.Send(ctx, req.Method, req.Path, body)
	if err != nil {
		p.metrics.RecordSubmission(req.ResourceType, "error")
		return nil, NewRequestRejected(nil, err)
	}

	if !resp.OK() {
		p.metrics.RecordSubmission(req.ResourceType, "rejected")
		status := decodeStatus(resp)
		logger.Warn().Int("code", status.Code).Str("message", status.Message).
			Msg("request rejected by provider")
		return nil, NewRequestRejected(status, nil)
	}

	var op api.Operation
	if err := json.Unmarshal(resp.Body, &op); err != nil {
		p.metrics.RecordSubmission(req.ResourceType, "error")
		return nil, NewRequestRejected(nil, fmt.Errorf("failed to decode operation: %w", err))
	}

	p.metrics.RecordSubmission(req.ResourceType, "accepted")
	logger.Info().Str("operation", op.Name).Msg("operation started")

	return &OperationRef{
		Name:         op.Name,
		Scope:        req.Scope,
		APIVersion:   req.APIVersion,
		SubmissionID: submissionID,
		ResourceType: req.ResourceType,
		ResourceName: req.ResourceName,
	}, nil
}

// Await polls the operation until it reaches a terminal state or the
// timeout elapses. The interval starts at one second and doubles to a
// ten-second cap, with ±25% jitter. On timeout or cancellation the remote
// operation is left running; the returned error carries the reference so
// the caller can re-attach later.
func (p *Poller) Await(ctx context.Context, ref *OperationRef, timeout time.Duration) (*api.Operation, error) {
	start := time.Now()
	deadline := start.Add(timeout)
	interval := p.initialInterval

	logger := p.logger.With().Str("operation", ref.Name).Logger()
	logger.Debug().Dur("timeout", timeout).Msg("waiting for operation")

	for {
		if err := ctx.Err(); err != nil {
			p.finishAwait(ref, "cancelled", start)
			return nil, NewCancelled(ref, err)
		}

		op, err := p.poll(ctx, ref)
		switch {
		case err != nil:
			// A failed poll says nothing about the operation itself.
			// Keep polling until the deadline; a persistent failure
			// surfaces as a timeout carrying the reference.
			logger.Warn().Err(err).Msg("poll failed")
			p.metrics.RecordPoll("error")
		case op.Failed():
			p.finishAwait(ref, "failed", start)
			p.metrics.RecordPoll(string(op.Status))
			return nil, NewOperationFailed(ref, op.Error)
		case op.Done():
			p.finishAwait(ref, "succeeded", start)
			p.metrics.RecordPoll(string(op.Status))
			logger.Info().Msg("operation done")
			return op, nil
		default:
			p.metrics.RecordPoll(string(op.Status))
			logger.Debug().Str("status", string(op.Status)).Msg("operation in progress")
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			p.finishAwait(ref, "timeout", start)
			return nil, NewOperationTimeout(ref)
		}

		wait := jitter(interval)
		if wait > remaining {
			wait = remaining
		}

		select {
		case <-ctx.Done():
			p.finishAwait(ref, "cancelled", start)
			return nil, NewCancelled(ref, ctx.Err())
		case <-time.After(wait):
		}

		interval *= 2
		if interval > p.maxInterval {
			interval = p.maxInterval
		}
	}
}

// poll issues one status fetch for the operation.
func (p *Poller) poll(ctx context.Context, ref *OperationRef) (*api.Operation, error) {
	resp, err := p.transport.Send(ctx, http.MethodGet, ref.Path(), nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, decodeStatus(resp)
	}

	var op api.Operation
	if err := json.Unmarshal(resp.Body, &op); err != nil {
		return nil, fmt.Errorf("failed to decode operation: %w", err)
	}
	return &op, nil
}

func (p *Poller) finishAwait(ref *OperationRef, outcome string, start time.Time) {
	p.metrics.RecordAwait(outcome, time.Since(start))
	p.metrics.RecordTerminal(ref.ResourceType, outcome)
}

// jitter spreads the interval by ±25% so concurrent waiters do not align
// their polls.
func jitter(d time.Duration) time.Duration {
	spread := float64(d) * 0.5
	return d - time.Duration(spread/2) + time.Duration(rand.Float64()*spread)
}

// decodeStatus extracts the provider's structured error payload from a
// non-2xx reply. Providers wrap the payload as {"error": {...}}; a body
// that does not parse falls back to the HTTP status code.
func decodeStatus(resp *transport.Response) *api.Status {
	var wrapped struct {
		Error *api.Status `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &wrapped); err == nil && wrapped.Error != nil {
		return wrapped.Error
	}

	var status api.Status
	if err := json.Unmarshal(resp.Body, &status); err == nil && status.Code != 0 {
		return &status
	}

	return &api.Status{
		Code:    resp.StatusCode,
		Message: http.StatusText(resp.StatusCode),
	}
}
