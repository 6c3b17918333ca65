package cache

import (
	"time"
)

// OperationRecord is a locally cached view of a submitted operation.
// It carries everything needed to re-attach to the operation later:
// the name, the scope it lives in, and the API version it was
// submitted under.
type OperationRecord struct {
	// Name is the provider-assigned operation name.
	Name string `json:"name"`

	// SubmissionID is the client-generated ID attached at submit time.
	SubmissionID string `json:"submission_id"`

	// Project and Location identify the scope the operation lives in.
	Project  string `json:"project"`
	Location string `json:"location"`

	// APIVersion is the version the operation was submitted under.
	// Polling must use the same version.
	APIVersion string `json:"api_version"`

	// ResourceType and ResourceName identify the operation's target.
	ResourceType string `json:"resource_type"`
	ResourceName string `json:"resource_name"`

	// Status is the last observed operation status.
	Status string `json:"status"`

	// Detail is the last observed human-readable progress detail.
	Detail string `json:"detail,omitempty"`

	// TargetLink is the URI of the resource the operation acts on.
	TargetLink string `json:"target_link,omitempty"`

	// Error is the provider error message for failed operations.
	Error string `json:"error,omitempty"`

	// CreatedAt is when the record was first written.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the record was last refreshed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the cached status is a terminal one.
func (r *OperationRecord) Terminal() bool {
	return r.Status == "DONE"
}
