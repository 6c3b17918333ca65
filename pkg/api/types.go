// Package api defines the JSON wire types exchanged with the Strato
// resource-management API: operations, structured errors, and the
// channel-specific request payloads. Field sets mirror the provider's
// published schemas; omitempty keeps unset options out of the encoded
// request body.
package api

import (
	"encoding/json"
	"fmt"
	"path"
)

// OperationStatus is the lifecycle state of a long-running operation.
type OperationStatus string

const (
	// StatusPending means the operation has been accepted but not started.
	StatusPending OperationStatus = "PENDING"

	// StatusRunning means the operation is in progress.
	StatusRunning OperationStatus = "RUNNING"

	// StatusDone means the operation reached a terminal state. A done
	// operation carries either a success target or an error payload,
	// never both.
	StatusDone OperationStatus = "DONE"
)

// Status is the provider's structured error payload.
type Status struct {
	// Code is the canonical HTTP-style error code.
	Code int `json:"code"`

	// Message is the human-readable error description.
	Message string `json:"message"`

	// Details carries provider-specific detail messages, left opaque.
	Details []json.RawMessage `json:"details,omitempty"`
}

// Error implements the error interface so a Status can be wrapped directly.
func (s *Status) Error() string {
	return fmt.Sprintf("provider error %d: %s", s.Code, s.Message)
}

// Operation is an in-flight or terminal long-running operation as returned
// by the provider.
type Operation struct {
	// Name is the operation identifier, unique within its scope.
	Name string `json:"name"`

	// Zone is the location the operation runs in.
	Zone string `json:"zone,omitempty"`

	// OperationType names the mutation, e.g. "CREATE_CLUSTER".
	OperationType string `json:"operationType,omitempty"`

	// Status is the current lifecycle state.
	Status OperationStatus `json:"status"`

	// Detail is a free-form progress or diagnostic string. A non-empty
	// detail on a done operation is advisory, not an error.
	Detail string `json:"detail,omitempty"`

	// TargetLink is the relative path of the resource the operation
	// mutates. Present on success; used to resolve the final resource.
	TargetLink string `json:"targetLink,omitempty"`

	// SelfLink is the relative path of the operation itself.
	SelfLink string `json:"selfLink,omitempty"`

	// Error is the terminal error payload, set only when Status is DONE
	// and the operation failed.
	Error *Status `json:"error,omitempty"`

	// StartTime and EndTime are provider-reported RFC 3339 timestamps.
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}

// Done reports whether the operation reached a terminal state.
func (o *Operation) Done() bool {
	return o.Status == StatusDone
}

// Failed reports whether the operation terminated with an error payload.
func (o *Operation) Failed() bool {
	return o.Status == StatusDone && o.Error != nil
}

// Resource is the envelope for a fetched resource. Raw retains the full
// provider payload so callers can decode the concrete type.
type Resource struct {
	// Name is the resource name.
	Name string `json:"name"`

	// Location is the zone or region the resource lives in.
	Location string `json:"location,omitempty"`

	// Status is the provider's resource status string, e.g. "RUNNING".
	Status string `json:"status,omitempty"`

	// SelfLink is the relative path of the resource.
	SelfLink string `json:"selfLink,omitempty"`

	// Raw is the complete JSON payload as returned by the provider.
	Raw json.RawMessage `json:"-"`
}

// Decode unmarshals the full provider payload into v.
func (r *Resource) Decode(v any) error {
	if len(r.Raw) == 0 {
		return fmt.Errorf("resource %s has no payload", r.Name)
	}
	return json.Unmarshal(r.Raw, v)
}

// UnmarshalJSON captures both the envelope fields and the raw payload.
func (r *Resource) UnmarshalJSON(data []byte) error {
	type envelope Resource
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	*r = Resource(e)
	r.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// Scope names the project and location a request or operation belongs to.
type Scope struct {
	// Project is the project identifier.
	Project string `json:"project"`

	// Location is the zone or region.
	Location string `json:"location"`
}

// Path returns the scope's URL path prefix under the given API version.
func (s Scope) Path(version string) string {
	return path.Join("/", version, "projects", s.Project, "locations", s.Location)
}

// PreparedRequest is a fully-built mutating request: an HTTP method, a
// relative path, and the typed payload to encode as the body. Prepared
// requests are produced by the request builder and consumed exactly once
// by the poller's Submit.
type PreparedRequest struct {
	// Method is the HTTP method, e.g. "POST" or "PATCH".
	Method string

	// Path is the relative request path, including API version and scope.
	Path string

	// Body is the typed request payload. A nil Body sends no body.
	Body any

	// Scope is the project/location the resulting operation lives in.
	Scope Scope

	// APIVersion is the version segment the request was built for,
	// derived from the release channel.
	APIVersion string

	// ResourceType labels the mutation for logging and metrics, e.g.
	// "cluster" or "firewall-rule".
	ResourceType string

	// ResourceName is the name of the resource being mutated.
	ResourceName string
}

// EncodeBody marshals the request payload. Encoding is deterministic for a
// given payload, so building the same options twice yields byte-identical
// bodies.
func (p *PreparedRequest) EncodeBody() ([]byte, error) {
	if p.Body == nil {
		return nil, nil
	}
	return json.Marshal(p.Body)
}
