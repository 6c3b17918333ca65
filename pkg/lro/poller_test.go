package lro

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/stratoforge/stratoctl/pkg/api"
	"github.com/stratoforge/stratoctl/pkg/transport"
)

// fakeTransport replays a scripted sequence of responses and records
// every request it receives. Once the script is exhausted the last step
// repeats.
type fakeTransport struct {
	script []step
	calls  []recordedCall
}

type step struct {
	resp *transport.Response
	err  error
}

type recordedCall struct {
	method string
	path   string
	body   []byte
}

func (f *fakeTransport) Send(_ context.Context, method, path string, body []byte) (*transport.Response, error) {
	f.calls = append(f.calls, recordedCall{method: method, path: path, body: body})

	i := len(f.calls) - 1
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	if i < 0 {
		return nil, fmt.Errorf("no scripted response")
	}
	return f.script[i].resp, f.script[i].err
}

func okJSON(body string) step {
	return step{resp: &transport.Response{StatusCode: 200, Body: []byte(body)}}
}

func httpError(code int, body string) step {
	return step{resp: &transport.Response{StatusCode: code, Body: []byte(body)}}
}

func transportError(msg string) step {
	return step{err: fmt.Errorf("%s", msg)}
}

func newTestPoller(ft *fakeTransport) *Poller {
	return NewPoller(ft, zerolog.Nop(), nil).WithIntervals(time.Millisecond, 2*time.Millisecond)
}

func clusterRequest() *api.PreparedRequest {
	return &api.PreparedRequest{
		Method:       "POST",
		Path:         "/v1/projects/p/locations/us-east1/clusters",
		Body:         api.CreateClusterRequestGA{ClusterCreateCommon: api.ClusterCreateCommon{Name: "app"}},
		Scope:        api.Scope{Project: "p", Location: "us-east1"},
		APIVersion:   "v1",
		ResourceType: "clusters",
		ResourceName: "app",
	}
}

func TestSubmitReturnsOperationRef(t *testing.T) {
	ft := &fakeTransport{script: []step{
		okJSON(`{"name": "operation-123", "status": "PENDING"}`),
	}}
	ref, err := newTestPoller(ft).Submit(context.Background(), clusterRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ref.Name != "operation-123" {
		t.Errorf("expected operation name operation-123, got %s", ref.Name)
	}
	if ref.APIVersion != "v1" {
		t.Errorf("expected api version v1, got %s", ref.APIVersion)
	}
	if ref.SubmissionID == "" {
		t.Errorf("expected a submission ID")
	}
	if ref.ResourceName != "app" {
		t.Errorf("expected resource name app, got %s", ref.ResourceName)
	}

	if len(ft.calls) != 1 {
		t.Fatalf("expected exactly one network call, got %d", len(ft.calls))
	}
	if ft.calls[0].method != "POST" {
		t.Errorf("expected POST, got %s", ft.calls[0].method)
	}
	if len(ft.calls[0].body) == 0 {
		t.Errorf("expected an encoded body")
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	ft := &fakeTransport{script: []step{transportError("connection refused")}}

	_, err := newTestPoller(ft).Submit(context.Background(), clusterRequest())
	if !IsRequestRejected(err) {
		t.Fatalf("expected request-rejected error, got %v", err)
	}
	// A transport failure means no operation started; exactly one attempt.
	if len(ft.calls) != 1 {
		t.Errorf("expected no retry, got %d calls", len(ft.calls))
	}
}

func TestSubmitProviderRejection(t *testing.T) {
	ft := &fakeTransport{script: []step{
		httpError(400, `{"error": {"code": 400, "message": "name already in use"}}`),
	}}

	_, err := newTestPoller(ft).Submit(context.Background(), clusterRequest())
	if !IsRequestRejected(err) {
		t.Fatalf("expected request-rejected error, got %v", err)
	}

	var lroErr *Error
	if !asError(err, &lroErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if lroErr.Provider == nil || lroErr.Provider.Code != 400 {
		t.Errorf("expected provider status 400, got %+v", lroErr.Provider)
	}
	if lroErr.Provider.Message != "name already in use" {
		t.Errorf("expected provider message preserved, got %q", lroErr.Provider.Message)
	}
}

func TestSubmitRejectionWithoutJSONBody(t *testing.T) {
	ft := &fakeTransport{script: []step{httpError(503, "upstream unavailable")}}

	_, err := newTestPoller(ft).Submit(context.Background(), clusterRequest())
	var lroErr *Error
	if !asError(err, &lroErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if lroErr.Provider == nil || lroErr.Provider.Code != 503 {
		t.Errorf("expected fallback status 503, got %+v", lroErr.Provider)
	}
}

func testRef() *OperationRef {
	return &OperationRef{
		Name:         "operation-123",
		Scope:        api.Scope{Project: "p", Location: "us-east1"},
		APIVersion:   "v1",
		SubmissionID: "sub-1",
		ResourceType: "clusters",
		ResourceName: "app",
	}
}

func TestAwaitImmediateSuccess(t *testing.T) {
	ft := &fakeTransport{script: []step{
		okJSON(`{"name": "operation-123", "status": "DONE", "targetLink": "/v1/projects/p/locations/us-east1/clusters/app"}`),
	}}

	op, err := newTestPoller(ft).Await(context.Background(), testRef(), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !op.Done() {
		t.Errorf("expected terminal operation")
	}
	if op.TargetLink == "" {
		t.Errorf("expected target link")
	}
	if len(ft.calls) != 1 {
		t.Errorf("expected one poll, got %d", len(ft.calls))
	}
	if ft.calls[0].path != testRef().Path() {
		t.Errorf("polled wrong path: %s", ft.calls[0].path)
	}
}

func TestAwaitPollsUntilDone(t *testing.T) {
	ft := &fakeTransport{script: []step{
		okJSON(`{"name": "operation-123", "status": "PENDING"}`),
		okJSON(`{"name": "operation-123", "status": "RUNNING"}`),
		okJSON(`{"name": "operation-123", "status": "DONE", "targetLink": "/v1/x"}`),
	}}

	op, err := newTestPoller(ft).Await(context.Background(), testRef(), time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op.Status != api.StatusDone {
		t.Errorf("expected DONE, got %s", op.Status)
	}
	if len(ft.calls) != 3 {
		t.Errorf("expected 3 polls, got %d", len(ft.calls))
	}
}

func TestAwaitOperationFailure(t *testing.T) {
	ft := &fakeTransport{script: []step{
		okJSON(`{"name": "operation-123", "status": "DONE", "error": {"code": 409, "message": "conflict"}}`),
	}}

	_, err := newTestPoller(ft).Await(context.Background(), testRef(), time.Second)
	if !IsOperationFailed(err) {
		t.Fatalf("expected operation-failed error, got %v", err)
	}

	var lroErr *Error
	if !asError(err, &lroErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if lroErr.Provider == nil || lroErr.Provider.Code != 409 {
		t.Errorf("expected provider status 409, got %+v", lroErr.Provider)
	}
	if lroErr.Ref == nil || lroErr.Ref.Name != "operation-123" {
		t.Errorf("expected reference attached, got %+v", lroErr.Ref)
	}
}

func TestAwaitTimeout(t *testing.T) {
	ft := &fakeTransport{script: []step{
		okJSON(`{"name": "operation-123", "status": "RUNNING"}`),
	}}

	start := time.Now()
	_, err := newTestPoller(ft).Await(context.Background(), testRef(), 20*time.Millisecond)
	elapsed := time.Since(start)

	if !IsOperationTimeout(err) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	// The final wait is capped to the remaining budget, so Await returns
	// close to the deadline rather than a full interval past it.
	if elapsed > 150*time.Millisecond {
		t.Errorf("await returned %v after a 20ms deadline", elapsed)
	}

	var lroErr *Error
	if !asError(err, &lroErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if lroErr.Ref == nil {
		t.Errorf("expected reference attached for re-attach")
	}
}

func TestAwaitCancellation(t *testing.T) {
	ft := &fakeTransport{script: []step{
		okJSON(`{"name": "operation-123", "status": "RUNNING"}`),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPoller(ft).Await(ctx, testRef(), time.Second)
	if !IsCancelled(err) {
		t.Fatalf("expected cancelled error, got %v", err)
	}
	if len(ft.calls) != 0 {
		t.Errorf("expected no polls after cancellation, got %d", len(ft.calls))
	}
}

func TestAwaitToleratesPollFailures(t *testing.T) {
	ft := &fakeTransport{script: []step{
		transportError("connection reset"),
		httpError(500, "internal"),
		okJSON(`{"name": "operation-123", "status": "DONE", "targetLink": "/v1/x"}`),
	}}

	op, err := newTestPoller(ft).Await(context.Background(), testRef(), time.Second)
	if err != nil {
		t.Fatalf("expected transient poll failures to be tolerated, got %v", err)
	}
	if !op.Done() {
		t.Errorf("expected terminal operation")
	}
	if len(ft.calls) != 3 {
		t.Errorf("expected 3 polls, got %d", len(ft.calls))
	}
}

func TestJitterBounds(t *testing.T) {
	base := time.Second
	for i := 0; i < 100; i++ {
		d := jitter(base)
		if d < 750*time.Millisecond || d > 1250*time.Millisecond {
			t.Fatalf("jitter %v outside the 25%% spread of %v", d, base)
		}
	}
}
