// Package policy runs local preflight checks on prepared requests
// before they are submitted to the provider.
//
// Policies are Rego modules whose deny set yields findings. Builtin
// policies cover provider-side rejections that are cheap to catch
// client-side; operators can add their own with --policies, and the
// loader can watch those files and hot-reload them.
//
// A finding with error severity marks the request as not allowed.
// Warning and info findings are surfaced but never block.
package policy
