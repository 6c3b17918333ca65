package lro

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/stratoforge/stratoctl/pkg/api"
	"github.com/stratoforge/stratoctl/pkg/telemetry"
	"github.com/stratoforge/stratoctl/pkg/transport"
)

// Result is a resolved resource plus any advisory messages attached to the
// terminal operation. Warnings never indicate failure; the mutation
// succeeded.
type Result struct {
	// Resource is the fetched resource.
	Resource *api.Resource

	// Warnings holds advisory detail strings from the terminal operation.
	Warnings []string
}

// Resolver fetches the final resource named by a successfully terminated
// operation.
type Resolver struct {
	transport transport.Transport
	logger    zerolog.Logger
	metrics   *telemetry.Metrics
}

// NewResolver creates a resolver over the given transport. Metrics may be
// nil.
func NewResolver(t transport.Transport, logger zerolog.Logger, metrics *telemetry.Metrics) *Resolver {
	if metrics == nil {
		metrics = &telemetry.Metrics{}
	}
	return &Resolver{
		transport: t,
		logger:    logger.With().Str("component", "lro-resolver").Logger(),
		metrics:   metrics,
	}
}

// Resolve performs exactly one fetch of the resource the terminal
// operation mutated. A fetch failure is distinct from operation failure:
// the mutation itself already succeeded.
func (r *Resolver) Resolve(ctx context.Context, op *api.Operation) (*Result, error) {
	if !op.Done() {
		return nil, fmt.Errorf("operation %s is not terminal", op.Name)
	}
	if op.Failed() {
		return nil, fmt.Errorf("operation %s terminated with an error; nothing to resolve", op.Name)
	}
	if op.TargetLink == "" {
		r.metrics.RecordResolve("error")
		return nil, NewResourceFetch(op.Name, nil, fmt.Errorf("terminal operation carries no target link"))
	}

	resp, err := r.transport.Send(ctx, http.MethodGet, op.TargetLink, nil)
	if err != nil {
		r.metrics.RecordResolve("error")
		return nil, NewResourceFetch(op.TargetLink, nil, err)
	}
	if !resp.OK() {
		r.metrics.RecordResolve("rejected")
		return nil, NewResourceFetch(op.TargetLink, decodeStatus(resp), nil)
	}

	var resource api.Resource
	if err := json.Unmarshal(resp.Body, &resource); err != nil {
		r.metrics.RecordResolve("error")
		return nil, NewResourceFetch(op.TargetLink, nil, fmt.Errorf("failed to decode resource: %w", err))
	}

	result := &Result{Resource: &resource}
	if op.Detail != "" {
		result.Warnings = append(result.Warnings, op.Detail)
	}

	r.metrics.RecordResolve("ok")
	r.logger.Info().Str("resource", resource.Name).Msg("resolved resource")
	return result, nil
}
