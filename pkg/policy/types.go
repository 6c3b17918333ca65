package policy

import (
	"time"
)

// Severity represents the severity level of a preflight violation.
type Severity string

const (
	// SeverityInfo is for informational findings.
	SeverityInfo Severity = "info"

	// SeverityWarning is for findings that should be reviewed but do not
	// block submission.
	SeverityWarning Severity = "warning"

	// SeverityError is for findings that block submission.
	SeverityError Severity = "error"
)

// Policy is a preflight rule with its Rego source.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name"`

	// Description provides a human-readable description.
	Description string `json:"description"`

	// Rego contains the Rego policy code.
	Rego string `json:"rego"`

	// Severity is the default severity for violations.
	Severity Severity `json:"severity"`

	// Enabled indicates if the policy is active.
	Enabled bool `json:"enabled"`

	// Source records where the policy was loaded from, empty for builtins.
	Source string `json:"source,omitempty"`
}

// Violation is a single preflight finding.
type Violation struct {
	// Policy is the name of the policy that produced the finding.
	Policy string `json:"policy"`

	// Message is a human-readable description of the finding.
	Message string `json:"message"`

	// Severity is the finding severity level.
	Severity Severity `json:"severity"`
}

// Result is the outcome of a preflight evaluation.
type Result struct {
	// Allowed is false when any violation has error severity.
	Allowed bool `json:"allowed"`

	// Violations lists all findings, blocking and advisory.
	Violations []Violation `json:"violations,omitempty"`

	// EvaluatedPolicies lists the names of policies that ran.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	// EvaluatedAt is when the evaluation ran.
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// Input is the document handed to Rego evaluation. It carries the
// request payload exactly as it would go on the wire, plus routing
// metadata the payload itself does not include.
type Input struct {
	// ResourceType is the kind of resource the request targets, for
	// example "clusters" or "firewallPolicies".
	ResourceType string `json:"resource_type"`

	// ResourceName is the name of the resource being created or updated.
	ResourceName string `json:"resource_name"`

	// Channel is the release channel the request was built for.
	Channel string `json:"channel"`

	// Method and Path identify the API call.
	Method string `json:"method"`
	Path   string `json:"path"`

	// Payload is the decoded request body.
	Payload map[string]any `json:"payload"`
}
