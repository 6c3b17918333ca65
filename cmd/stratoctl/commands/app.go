package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/stratoforge/stratoctl/internal/cliconfig"
	"github.com/stratoforge/stratoctl/pkg/api"
	"github.com/stratoforge/stratoctl/pkg/cache"
	"github.com/stratoforge/stratoctl/pkg/lro"
	"github.com/stratoforge/stratoctl/pkg/options"
	"github.com/stratoforge/stratoctl/pkg/policy"
	"github.com/stratoforge/stratoctl/pkg/telemetry"
	"github.com/stratoforge/stratoctl/pkg/transport"
)

// app bundles the wired components a command needs. Each command builds
// one app, uses it, and closes it before returning.
type app struct {
	cfg     *cliconfig.Config
	logger  zerolog.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer

	transport transport.Transport
	poller    *lro.Poller
	resolver  *lro.Resolver
	preflight *policy.Engine

	channel options.ReleaseChannel

	closers []func() error
}

// newApp loads configuration, overlays the global flags, and wires the
// transport, poller, resolver, preflight engine, and telemetry.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := cliconfig.Load(configPath)
	if err != nil {
		return nil, err
	}

	// Flag overrides
	if flagProject != "" {
		cfg.Project = flagProject
	}
	if flagLocation != "" {
		cfg.Location = flagLocation
	}
	if flagChannel != "" {
		cfg.Channel = flagChannel
	}
	if flagEndpoint != "" {
		cfg.Endpoint = flagEndpoint
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	channel, err := options.ParseReleaseChannel(cfg.Channel)
	if err != nil {
		return nil, err
	}

	logger, err := telemetry.NewLogger(cfg.Telemetry.Logging)
	if err != nil {
		return nil, err
	}

	metrics, err := telemetry.NewMetrics(cfg.Telemetry.Metrics)
	if err != nil {
		return nil, err
	}

	tracer, err := telemetry.NewTracer(cfg.Telemetry.Tracing, cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		channel: channel,
	}
	a.closers = append(a.closers, func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tracer.Shutdown(shutdownCtx)
	})

	tcfg := transport.Config{
		Endpoint:  cfg.Endpoint,
		UserAgent: "stratoctl/" + cfg.Telemetry.ServiceVersion,
		Token:     cfg.Token,
		Timeout:   cfg.Timeout,
		Bastion:   cfg.Bastion,
	}
	if cfg.Bastion != nil {
		bc, err := transport.NewBastionClient(tcfg, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.transport = bc
		a.closers = append(a.closers, bc.Close)
	} else {
		hc, err := transport.NewHTTPClient(tcfg, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.transport = hc
	}

	a.poller = lro.NewPoller(a.transport, logger, metrics)
	a.resolver = lro.NewResolver(a.transport, logger, metrics)

	engine, err := policy.NewEngine(logger, metrics)
	if err != nil {
		a.close()
		return nil, err
	}
	if len(cfg.PolicyPaths) > 0 {
		loader := policy.NewLoader(logger)
		policies, err := loader.LoadFromPaths(cfg.PolicyPaths)
		if err != nil {
			a.close()
			return nil, err
		}
		if err := engine.LoadPolicies(policies); err != nil {
			a.close()
			return nil, err
		}
	}
	a.preflight = engine

	return a, nil
}

// close releases everything the app holds, in reverse wiring order.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close component")
		}
	}
}

// scope builds the request scope from config, requiring both parts.
func (a *app) scope() (api.Scope, error) {
	if a.cfg.Project == "" {
		return api.Scope{}, fmt.Errorf("project is required (set --project or the config file)")
	}
	if a.cfg.Location == "" {
		return api.Scope{}, fmt.Errorf("location is required (set --location or the config file)")
	}
	return api.Scope{Project: a.cfg.Project, Location: a.cfg.Location}, nil
}

// openCache opens the operation cache, applying migrations.
func (a *app) openCache(ctx context.Context) (*cache.Store, error) {
	store, err := cache.NewStore(cache.Config{Path: a.cfg.CachePath})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// runPreflight evaluates local policies against a prepared request.
// Warnings are logged; a blocking violation aborts unless skip is set.
func (a *app) runPreflight(ctx context.Context, req *api.PreparedRequest, skip bool) error {
	if skip {
		a.logger.Debug().Msg("Preflight checks skipped")
		return nil
	}

	input, err := policy.NewInput(req, a.channel)
	if err != nil {
		return err
	}
	result, err := a.preflight.Evaluate(ctx, input)
	if err != nil {
		return err
	}

	for _, v := range result.Violations {
		switch v.Severity {
		case policy.SeverityError:
			a.logger.Error().Str("policy", v.Policy).Msg(v.Message)
		default:
			a.logger.Warn().Str("policy", v.Policy).Msg(v.Message)
		}
	}
	if !result.Allowed {
		return fmt.Errorf("preflight checks failed; use --skip-preflight to submit anyway")
	}
	return nil
}

// submitOp submits a prepared request inside a trace span and records
// the accepted operation in the cache.
func (a *app) submitOp(ctx context.Context, req *api.PreparedRequest) (*lro.OperationRef, error) {
	ctx, span := a.tracer.Start(ctx, "submit",
		attribute.String("resource_type", req.ResourceType),
		attribute.String("resource", req.ResourceName))
	ref, err := a.poller.Submit(ctx, req)
	telemetry.EndSpan(span, err)
	if err != nil {
		return nil, err
	}
	a.cacheOperation(ctx, ref, nil)
	return ref, nil
}

// awaitOp polls the operation inside a trace span, keeping the cached
// record in step with the last state the poller saw. A failed or
// timed-out wait still updates the record so "operations list" does not
// report the operation as pending forever.
func (a *app) awaitOp(ctx context.Context, ref *lro.OperationRef, timeout time.Duration) (*api.Operation, error) {
	ctx, span := a.tracer.Start(ctx, "await", attribute.String("operation", ref.Name))
	op, err := a.poller.Await(ctx, ref, timeout)
	telemetry.EndSpan(span, err)
	if err == nil {
		a.cacheOperation(ctx, ref, op)
		return op, nil
	}

	var lroErr *lro.Error
	if errors.As(err, &lroErr) {
		switch lroErr.Kind {
		case lro.KindOperationFailed:
			a.cacheOperation(ctx, ref, &api.Operation{
				Name:   ref.Name,
				Status: api.StatusDone,
				Error:  lroErr.Provider,
			})
		case lro.KindOperationTimeout:
			a.cacheOperation(ctx, ref, &api.Operation{
				Name:   ref.Name,
				Status: api.StatusRunning,
			})
		}
	}
	return nil, err
}

// resolveOp fetches the final resource inside a trace span.
func (a *app) resolveOp(ctx context.Context, op *api.Operation) (*lro.Result, error) {
	ctx, span := a.tracer.Start(ctx, "resolve", attribute.String("operation", op.Name))
	result, err := a.resolver.Resolve(ctx, op)
	telemetry.EndSpan(span, err)
	return result, err
}

// serveMetrics exposes the Prometheus registry on addr until ctx is
// cancelled. Returns the bound address, which differs from addr when it
// names port 0.
func (a *app) serveMetrics(ctx context.Context, addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	a.logger.Info().Str("address", ln.Addr().String()).Msg("Serving metrics")
	return ln.Addr().String(), nil
}

// cacheOperation records a submitted operation so later invocations can
// find it. Cache failures are logged, never fatal.
func (a *app) cacheOperation(ctx context.Context, ref *lro.OperationRef, op *api.Operation) {
	store, err := a.openCache(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to open operation cache")
		return
	}
	defer store.Close()

	rec := &cache.OperationRecord{
		Name:         ref.Name,
		SubmissionID: ref.SubmissionID,
		Project:      ref.Scope.Project,
		Location:     ref.Scope.Location,
		APIVersion:   ref.APIVersion,
		ResourceType: ref.ResourceType,
		ResourceName: ref.ResourceName,
		Status:       "PENDING",
	}
	if op != nil {
		rec.Status = string(op.Status)
		rec.Detail = op.Detail
		rec.TargetLink = op.TargetLink
		if op.Error != nil {
			rec.Error = op.Error.Message
		}
	}

	if err := store.PutOperation(ctx, rec); err != nil {
		a.logger.Warn().Err(err).Str("operation", ref.Name).Msg("Failed to cache operation")
	}
}
