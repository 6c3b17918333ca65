package commands

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/stratoforge/stratoctl/internal/cliconfig"
	"github.com/stratoforge/stratoctl/pkg/api"
	"github.com/stratoforge/stratoctl/pkg/cache"
	"github.com/stratoforge/stratoctl/pkg/lro"
	"github.com/stratoforge/stratoctl/pkg/options"
	"github.com/stratoforge/stratoctl/pkg/telemetry"
	"github.com/stratoforge/stratoctl/pkg/transport"
)

// scriptedTransport replays canned responses in order, repeating the
// last one once the script runs out.
type scriptedTransport struct {
	responses []*transport.Response
	calls     int
}

func (s *scriptedTransport) Send(ctx context.Context, method, path string, body []byte) (*transport.Response, error) {
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return s.responses[idx], nil
}

func okJSON(body string) *transport.Response {
	return &transport.Response{StatusCode: http.StatusOK, Body: []byte(body)}
}

func newTestApp(t *testing.T, tr transport.Transport) *app {
	t.Helper()

	tracer, err := telemetry.NewTracer(telemetry.TracingConfig{Enabled: false}, "stratoctl-test", "0.0.0")
	if err != nil {
		t.Fatalf("NewTracer: %v", err)
	}
	metrics, err := telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: true, Namespace: "stratoctl_test"})
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	cfg := cliconfig.Default()
	cfg.Project = "demo-project"
	cfg.Location = "us-central1"
	cfg.CachePath = filepath.Join(t.TempDir(), "operations.db")

	logger := zerolog.Nop()
	a := &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		tracer:    tracer,
		transport: tr,
		channel:   options.ChannelGA,
	}
	a.poller = lro.NewPoller(tr, logger, metrics).WithIntervals(time.Millisecond, 2*time.Millisecond)
	a.resolver = lro.NewResolver(tr, logger, metrics)
	return a
}

func testOperationRef(name string) *lro.OperationRef {
	return &lro.OperationRef{
		Name:         name,
		Scope:        api.Scope{Project: "demo-project", Location: "us-central1"},
		APIVersion:   "v1",
		SubmissionID: "sub-" + name,
		ResourceType: "cluster",
		ResourceName: "prod-api",
	}
}

func (a *app) mustGetRecord(t *testing.T, name string) *cache.OperationRecord {
	t.Helper()
	ctx := context.Background()
	store, err := a.openCache(ctx)
	if err != nil {
		t.Fatalf("openCache: %v", err)
	}
	defer store.Close()
	rec, err := store.GetOperation(ctx, name)
	if err != nil {
		t.Fatalf("GetOperation: %v", err)
	}
	return rec
}

func TestResolveRefPrefersCache(t *testing.T) {
	a := newTestApp(t, &scriptedTransport{responses: []*transport.Response{okJSON(`{}`)}})
	ctx := context.Background()

	// Cache an operation submitted under a different scope and version
	// than the current configuration.
	a.cacheOperation(ctx, &lro.OperationRef{
		Name:         "operation-cached",
		Scope:        api.Scope{Project: "other-project", Location: "eu-west1"},
		APIVersion:   "v1beta1",
		SubmissionID: "sub-1",
		ResourceType: "cluster",
		ResourceName: "prod-api",
	}, nil)

	ref, err := a.resolveRef(ctx, "operation-cached")
	if err != nil {
		t.Fatalf("resolveRef: %v", err)
	}
	if ref.APIVersion != "v1beta1" {
		t.Errorf("apiVersion = %q, want the submission-time v1beta1", ref.APIVersion)
	}
	if ref.Scope.Project != "other-project" || ref.Scope.Location != "eu-west1" {
		t.Errorf("scope = %+v, want the cached scope", ref.Scope)
	}
}

func TestResolveRefFallsBackToScope(t *testing.T) {
	a := newTestApp(t, &scriptedTransport{responses: []*transport.Response{okJSON(`{}`)}})

	ref, err := a.resolveRef(context.Background(), "operation-unknown")
	if err != nil {
		t.Fatalf("resolveRef: %v", err)
	}
	if ref.Scope.Project != "demo-project" || ref.APIVersion != "v1" {
		t.Errorf("ref = %+v, want current scope and channel version", ref)
	}
}

func TestAwaitOpRecordsFailure(t *testing.T) {
	tr := &scriptedTransport{responses: []*transport.Response{
		okJSON(`{"name":"operation-1","status":"DONE","error":{"code":409,"message":"conflict","status":"ABORTED"}}`),
	}}
	a := newTestApp(t, tr)
	ctx := context.Background()

	ref := testOperationRef("operation-1")
	a.cacheOperation(ctx, ref, nil)

	_, err := a.awaitOp(ctx, ref, time.Second)
	if !lro.IsOperationFailed(err) {
		t.Fatalf("err = %v, want operation-failed", err)
	}

	rec := a.mustGetRecord(t, "operation-1")
	if rec.Status != "DONE" {
		t.Errorf("cached status = %q, want DONE", rec.Status)
	}
	if rec.Error != "conflict" {
		t.Errorf("cached error = %q, want the provider message", rec.Error)
	}
}

func TestAwaitOpRecordsTimeout(t *testing.T) {
	tr := &scriptedTransport{responses: []*transport.Response{
		okJSON(`{"name":"operation-2","status":"RUNNING"}`),
	}}
	a := newTestApp(t, tr)
	ctx := context.Background()

	ref := testOperationRef("operation-2")
	a.cacheOperation(ctx, ref, nil)

	_, err := a.awaitOp(ctx, ref, 15*time.Millisecond)
	if !lro.IsOperationTimeout(err) {
		t.Fatalf("err = %v, want operation-timeout", err)
	}

	rec := a.mustGetRecord(t, "operation-2")
	if rec.Status != "RUNNING" {
		t.Errorf("cached status = %q, want RUNNING", rec.Status)
	}
}

func TestAwaitOpSuccessUpdatesCache(t *testing.T) {
	tr := &scriptedTransport{responses: []*transport.Response{
		okJSON(`{"name":"operation-3","status":"DONE","targetLink":"/v1/projects/demo-project/locations/us-central1/clusters/prod-api"}`),
	}}
	a := newTestApp(t, tr)
	ctx := context.Background()

	ref := testOperationRef("operation-3")
	op, err := a.awaitOp(ctx, ref, time.Second)
	if err != nil {
		t.Fatalf("awaitOp: %v", err)
	}
	if op.Status != api.StatusDone {
		t.Errorf("status = %q", op.Status)
	}

	rec := a.mustGetRecord(t, "operation-3")
	if rec.Status != "DONE" || rec.TargetLink == "" {
		t.Errorf("record = %+v, want DONE with target link", rec)
	}
}

func TestServeMetrics(t *testing.T) {
	a := newTestApp(t, &scriptedTransport{responses: []*transport.Response{okJSON(`{}`)}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := a.serveMetrics(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("serveMetrics: %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
	if err != nil {
		t.Fatalf("fetching metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
