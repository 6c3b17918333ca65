package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, endpoint string, mutate func(*Config)) *HTTPClient {
	t.Helper()
	cfg := Config{
		Endpoint:  endpoint,
		UserAgent: "stratoctl-test/0.0.0",
		Timeout:   5 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	client, err := NewHTTPClient(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	return client
}

func TestNewHTTPClientRequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPClient(Config{}, zerolog.Nop()); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}

func TestSendHeaders(t *testing.T) {
	var got http.Header
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, func(cfg *Config) {
		cfg.Token = "sekrit"
	})
	resp, err := client.Send(context.Background(), http.MethodPost, "/v1/projects/p/locations/l/clusters", []byte(`{"name":"c"}`))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !resp.OK() {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("method = %q", gotMethod)
	}
	if gotPath != "/v1/projects/p/locations/l/clusters" {
		t.Errorf("path = %q", gotPath)
	}
	if v := got.Get("Accept"); v != "application/json" {
		t.Errorf("Accept = %q", v)
	}
	if v := got.Get("Content-Type"); v != "application/json" {
		t.Errorf("Content-Type = %q", v)
	}
	if v := got.Get("User-Agent"); v != "stratoctl-test/0.0.0" {
		t.Errorf("User-Agent = %q", v)
	}
	if v := got.Get("Authorization"); v != "Bearer sekrit" {
		t.Errorf("Authorization = %q", v)
	}
}

func TestSendNoBodyNoContentType(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	if _, err := client.Send(context.Background(), http.MethodGet, "/v1/operations/op-1", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if v := got.Get("Content-Type"); v != "" {
		t.Errorf("Content-Type = %q on bodyless request", v)
	}
	if v := got.Get("Authorization"); v != "" {
		t.Errorf("Authorization = %q without a token", v)
	}
}

func TestSendNonSuccessIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":{"code":409,"status":"ABORTED"}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	resp, err := client.Send(context.Background(), http.MethodPatch, "/v1/rules/1000", []byte(`{}`))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.OK() {
		t.Error("OK() true for 409")
	}
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if len(resp.Body) == 0 {
		t.Error("error body dropped")
	}
}

func TestSendBodyRoundTrip(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"name":"op-42"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	resp, err := client.Send(context.Background(), http.MethodPost, "/v1/clusters", []byte(`{"name":"prod"}`))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if string(gotBody) != `{"name":"prod"}` {
		t.Errorf("server saw body %q", gotBody)
	}
	if string(resp.Body) != `{"name":"op-42"}` {
		t.Errorf("client saw body %q", resp.Body)
	}
}

func TestSendPathJoin(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	// Trailing slash on the endpoint and leading slash on the path must
	// not produce a double slash.
	client := newTestClient(t, srv.URL+"/", nil)
	if _, err := client.Send(context.Background(), http.MethodGet, "/v1/operations", nil); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotPath != "/v1/operations" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestSendConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := newTestClient(t, srv.URL, nil)
	_, err := client.Send(context.Background(), http.MethodGet, "/v1/operations", nil)
	if err == nil {
		t.Fatal("expected error against closed server")
	}
	var sendErr *SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("err = %T, want *SendError", err)
	}
	if sendErr.Op != "send" {
		t.Errorf("op = %q", sendErr.Op)
	}
}

func TestSendContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(t, srv.URL, nil)
	if _, err := client.Send(ctx, http.MethodGet, "/v1/operations", nil); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
