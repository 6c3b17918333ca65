package api

import "encoding/json"

// PolicyOverlay bundles the policies and custom constraints whose combined
// effect a violation simulation previews.
type PolicyOverlay struct {
	Policies          []json.RawMessage `json:"policies,omitempty"`
	CustomConstraints []json.RawMessage `json:"customConstraints,omitempty"`
}

// SimulateViolationsRequest asks the provider to preview the violations a
// policy overlay would introduce. Only available on the Alpha channel.
type SimulateViolationsRequest struct {
	Overlay PolicyOverlay `json:"overlay"`
}

// Violation is a single simulated policy violation.
type Violation struct {
	Resource   string `json:"resource"`
	Constraint string `json:"constraint"`
	Message    string `json:"message,omitempty"`
}

// ViolationsPreview is the resource produced by a completed simulation.
type ViolationsPreview struct {
	Name           string      `json:"name"`
	State          string      `json:"state,omitempty"`
	ViolationCount int         `json:"violationsCount,omitempty"`
	Violations     []Violation `json:"violations,omitempty"`
	SelfLink       string      `json:"selfLink,omitempty"`
}
