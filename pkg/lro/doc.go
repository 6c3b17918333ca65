// Package lro implements the client side of the provider's long-running
// operation protocol: submit a mutating request, poll the resulting
// operation until it terminates, then resolve the final resource.
//
// The flow is three calls with no shared mutable state between them:
//
//	ref, err := poller.Submit(ctx, req)
//	op, err := poller.Await(ctx, ref, timeout)
//	res, err := resolver.Resolve(ctx, op)
//
// Each invocation owns one outstanding request and its poll loop.
// Independent mutations may run these sequences concurrently; nothing here
// coordinates them, conflicts are the provider's to reject.
//
// Every failure surfaces as a classified *Error and is terminal: this
// package never retries. Timeout and cancellation abandon the poll loop
// only; the remote operation keeps running and the returned error carries
// the reference needed to re-attach to it.
package lro
