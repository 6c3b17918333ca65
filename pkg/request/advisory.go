package request

// Advisory is a non-fatal note returned alongside a built request, e.g. a
// hint that the chosen configuration has no public egress. Advisories are
// for display; the builder never logs or prints them itself.
type Advisory string

const (
	advisoryPrivateNoAccess Advisory = "--enable-private-nodes makes the control plane " +
		"unreachable from cluster-external addresses; use --master-authorized-networks " +
		"to allow limited access"
	advisoryIPAliasSizing Advisory = "the pod address range limits the maximum size of " +
		"the cluster"
	advisoryLoggingOff Advisory = "logging is disabled for this rule; denied traffic " +
		"will not be recorded"
)
