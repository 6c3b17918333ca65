package policy

// BuiltinPolicies returns the policies compiled into the binary. They
// encode provider-side rejections that are cheap to catch locally.
func BuiltinPolicies() []Policy {
	return []Policy{
		clusterNamingPolicy(),
		privateClusterAccessPolicy(),
		firewallLoggingPolicy(),
	}
}

// clusterNamingPolicy enforces cluster naming conventions before the
// provider rejects them.
func clusterNamingPolicy() Policy {
	return Policy{
		Name:        "cluster-naming",
		Description: "Cluster names must be lowercase alphanumeric with hyphens, at most 40 characters",
		Severity:    SeverityError,
		Enabled:     true,
		Rego: `package stratoctl.preflight.naming

import rego.v1

deny contains violation if {
	input.resource_type == "cluster"
	name := input.resource_name
	not regex.match("^[a-z]([-a-z0-9]*[a-z0-9])?$", name)
	violation := {
		"message": sprintf("cluster name '%s' must start with a letter and contain only lowercase letters, numbers, and hyphens", [name]),
		"severity": "error",
	}
}

deny contains violation if {
	input.resource_type == "cluster"
	name := input.resource_name
	count(name) > 40
	violation := {
		"message": sprintf("cluster name '%s' must not exceed 40 characters", [name]),
		"severity": "error",
	}
}`,
	}
}

// privateClusterAccessPolicy warns when a private cluster has no
// authorized networks, which usually locks the operator out.
func privateClusterAccessPolicy() Policy {
	return Policy{
		Name:        "private-cluster-access",
		Description: "Private clusters should declare master authorized networks",
		Severity:    SeverityWarning,
		Enabled:     true,
		Rego: `package stratoctl.preflight.access

import rego.v1

deny contains violation if {
	input.resource_type == "cluster"
	input.payload.privateClusterConfig.enablePrivateNodes == true
	not input.payload.privateClusterConfig.masterAuthorizedNetworks
	violation := {
		"message": "private cluster has no master authorized networks; the control plane will be unreachable from outside the VPC",
		"severity": "warning",
	}
}`,
	}
}

// firewallLoggingPolicy warns when firewall rules disable logging.
func firewallLoggingPolicy() Policy {
	return Policy{
		Name:        "firewall-logging",
		Description: "Firewall rule updates that disable logging lose audit visibility",
		Severity:    SeverityWarning,
		Enabled:     true,
		Rego: `package stratoctl.preflight.firewall

import rego.v1

deny contains violation if {
	input.resource_type == "firewall-rule"
	input.payload.enableLogging == false
	violation := {
		"message": "rule update disables connection logging",
		"severity": "warning",
	}
}

deny contains violation if {
	input.resource_type == "firewall-rule"
	input.payload.action == "allow"
	some range in input.payload.match.srcIpRanges
	range == "0.0.0.0/0"
	violation := {
		"message": "rule allows ingress from 0.0.0.0/0",
		"severity": "warning",
	}
}`,
	}
}
