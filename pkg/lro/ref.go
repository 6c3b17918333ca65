package lro

import (
	"path"

	"github.com/stratoforge/stratoctl/pkg/api"
)

// OperationRef is the immutable handle to a long-running operation,
// returned by Submit and consumed by Await. It carries everything needed
// to re-poll the operation in a later invocation.
type OperationRef struct {
	// Name is the provider-assigned operation identifier.
	Name string

	// Scope is the project/location the operation lives in.
	Scope api.Scope

	// APIVersion is the version segment the operation was issued under.
	APIVersion string

	// SubmissionID is the client-generated identifier of the submission
	// that produced this operation, used for local correlation only.
	SubmissionID string

	// ResourceType and ResourceName identify the mutated resource.
	ResourceType string
	ResourceName string
}

// Path returns the relative URL path of the operation.
func (r *OperationRef) Path() string {
	return path.Join(r.Scope.Path(r.APIVersion), "operations", r.Name)
}

// String returns the fully-scoped operation name.
func (r *OperationRef) String() string {
	return r.Path()
}
