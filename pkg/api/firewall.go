package api

// Layer4Config is a protocol/port matcher entry, e.g. "tcp:443".
type Layer4Config struct {
	Protocol string   `json:"ipProtocol"`
	Ports    []string `json:"ports,omitempty"`
}

// RuleMatcher is the traffic matcher of a firewall policy rule. Channel
// gating controls which matcher fields may be populated; the builder
// rejects explicit sets of fields the active channel lacks.
type RuleMatcher struct {
	SrcIPRanges     []string       `json:"srcIpRanges,omitempty"`
	DestIPRanges    []string       `json:"destIpRanges,omitempty"`
	Layer4Configs   []Layer4Config `json:"layer4Configs,omitempty"`
	SrcRegionCodes  []string       `json:"srcRegionCodes,omitempty"`
	DestRegionCodes []string       `json:"destRegionCodes,omitempty"`
	SrcFQDNs        []string       `json:"srcFqdns,omitempty"`
	DestFQDNs       []string       `json:"destFqdns,omitempty"`
}

// FirewallRuleCommon is the update payload shared by all channels.
// Pointer fields distinguish "leave unchanged" from "set to zero": only
// explicitly set options are serialized.
type FirewallRuleCommon struct {
	Priority        int          `json:"priority"`
	Action          string       `json:"action,omitempty"`
	Direction       string       `json:"direction,omitempty"`
	Match           *RuleMatcher `json:"match,omitempty"`
	EnableLogging   *bool        `json:"enableLogging,omitempty"`
	Disabled        *bool        `json:"disabled,omitempty"`
	TargetResources []string     `json:"targetResources,omitempty"`
	Description     string       `json:"description,omitempty"`
	NewPriority     *int         `json:"newPriority,omitempty"`

	// Etag carries the optimistic-concurrency token of the rule revision
	// the update was computed against. A stale etag is rejected by the
	// provider with a 409.
	Etag string `json:"etag,omitempty"`
}

// UpdateFirewallRuleRequestGA is the GA rule-update payload.
type UpdateFirewallRuleRequestGA struct {
	FirewallRuleCommon
}

// UpdateFirewallRuleRequestBeta is the Beta rule-update payload. Region
// code matchers are carried inside Match; the type exists so the three
// channels remain structurally distinct on the wire.
type UpdateFirewallRuleRequestBeta struct {
	FirewallRuleCommon
}

// UpdateFirewallRuleRequestAlpha is the Alpha rule-update payload: Beta
// plus the security profile group.
type UpdateFirewallRuleRequestAlpha struct {
	FirewallRuleCommon
	SecurityProfileGroup string `json:"securityProfileGroup,omitempty"`
}

// FirewallRule is the provider's firewall policy rule resource.
type FirewallRule struct {
	Priority    int          `json:"priority"`
	Action      string       `json:"action"`
	Direction   string       `json:"direction"`
	Match       *RuleMatcher `json:"match,omitempty"`
	Disabled    bool         `json:"disabled,omitempty"`
	Description string       `json:"description,omitempty"`
	Etag        string       `json:"etag,omitempty"`
	SelfLink    string       `json:"selfLink,omitempty"`
}
