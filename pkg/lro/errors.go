package lro

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stratoforge/stratoctl/pkg/api"
)

// ErrorKind classifies a terminal outcome. No kind is retried inside this
// package; the caller decides whether to re-invoke.
type ErrorKind string

const (
	// KindConflictingOptions means two mutually exclusive options were
	// both explicitly set. No network call was made.
	KindConflictingOptions ErrorKind = "conflicting_options"

	// KindUnsupportedOption means an option was explicitly set in a
	// channel whose request shape lacks the corresponding field.
	KindUnsupportedOption ErrorKind = "unsupported_option"

	// KindRequestRejected means the provider rejected the initial
	// mutating call. The provider's structured error payload is attached.
	KindRequestRejected ErrorKind = "request_rejected"

	// KindOperationFailed means the operation reached DONE with an error
	// payload.
	KindOperationFailed ErrorKind = "operation_failed"

	// KindOperationTimeout means polling exceeded the caller's deadline.
	// The last-known operation reference is attached; the remote
	// operation keeps running.
	KindOperationTimeout ErrorKind = "operation_timeout"

	// KindCancelled means the invoking context was cancelled while
	// polling. The remote operation is left running.
	KindCancelled ErrorKind = "cancelled"

	// KindResourceFetch means the mutation succeeded but the follow-up
	// fetch of the resulting resource failed.
	KindResourceFetch ErrorKind = "resource_fetch"
)

// Error is the classified error surfaced by the builder, poller, and
// resolver. It carries enough context for the caller to produce a precise
// user-facing message without re-deriving state.
type Error struct {
	// Kind is the outcome classification.
	Kind ErrorKind

	// Message is the human-readable error message.
	Message string

	// Options names the offending option keys for builder errors.
	Options []string

	// Channel is the active release channel for builder errors.
	Channel string

	// Ref is the last-known operation reference, set on timeout and
	// operation-failure errors.
	Ref *OperationRef

	// Provider is the provider's structured error payload, if one was
	// returned.
	Provider *api.Status

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Kind, e.Message)
	if len(e.Options) > 0 {
		fmt.Fprintf(&b, " (options: %s)", strings.Join(e.Options, ", "))
	}
	if e.Provider != nil {
		fmt.Fprintf(&b, ": %s", e.Provider.Error())
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error-chain inspection.
func (e *Error) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Provider != nil {
		return e.Provider
	}
	return nil
}

// Is matches on kind so errors.Is works against sentinel kinds.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithRef attaches an operation reference.
func (e *Error) WithRef(ref *OperationRef) *Error {
	e.Ref = ref
	return e
}

// NewConflictingOptions reports two mutually exclusive options both set.
func NewConflictingOptions(a, b string) *Error {
	return &Error{
		Kind:    KindConflictingOptions,
		Message: fmt.Sprintf("options --%s and --%s are mutually exclusive", a, b),
		Options: []string{a, b},
	}
}

// NewUnsupportedOption reports an option set in a channel that lacks it.
func NewUnsupportedOption(opt, channel string) *Error {
	return &Error{
		Kind:    KindUnsupportedOption,
		Message: fmt.Sprintf("option --%s is not available in the %s channel", opt, channel),
		Options: []string{opt},
		Channel: channel,
	}
}

// NewRequestRejected reports a provider rejection of the initial call.
func NewRequestRejected(status *api.Status, err error) *Error {
	return &Error{
		Kind:     KindRequestRejected,
		Message:  "request rejected by provider",
		Provider: status,
		Err:      err,
	}
}

// NewOperationFailed reports an operation that terminated with an error
// payload.
func NewOperationFailed(ref *OperationRef, status *api.Status) *Error {
	return &Error{
		Kind:     KindOperationFailed,
		Message:  fmt.Sprintf("operation %s failed", ref.Name),
		Ref:      ref,
		Provider: status,
	}
}

// NewOperationTimeout reports an exhausted polling deadline.
func NewOperationTimeout(ref *OperationRef) *Error {
	return &Error{
		Kind:    KindOperationTimeout,
		Message: fmt.Sprintf("timed out waiting for operation %s; the operation is still running", ref.Name),
		Ref:     ref,
	}
}

// NewCancelled reports caller-initiated cancellation during polling.
func NewCancelled(ref *OperationRef, cause error) *Error {
	return &Error{
		Kind:    KindCancelled,
		Message: fmt.Sprintf("wait for operation %s cancelled; the operation is still running", ref.Name),
		Ref:     ref,
		Err:     cause,
	}
}

// NewResourceFetch reports a failed post-success resource fetch.
func NewResourceFetch(name string, status *api.Status, err error) *Error {
	return &Error{
		Kind:     KindResourceFetch,
		Message:  fmt.Sprintf("operation succeeded but fetching %s failed", name),
		Provider: status,
		Err:      err,
	}
}

func isKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsConflictingOptions reports whether err is a conflicting-options error.
func IsConflictingOptions(err error) bool { return isKind(err, KindConflictingOptions) }

// IsUnsupportedOption reports whether err is an unsupported-option error.
func IsUnsupportedOption(err error) bool { return isKind(err, KindUnsupportedOption) }

// IsRequestRejected reports whether err is a provider rejection.
func IsRequestRejected(err error) bool { return isKind(err, KindRequestRejected) }

// IsOperationFailed reports whether err is a terminal operation failure.
func IsOperationFailed(err error) bool { return isKind(err, KindOperationFailed) }

// IsOperationTimeout reports whether err is a polling timeout.
func IsOperationTimeout(err error) bool { return isKind(err, KindOperationTimeout) }

// IsCancelled reports whether err is a caller cancellation.
func IsCancelled(err error) bool { return isKind(err, KindCancelled) }

// IsResourceFetch reports whether err is a post-success fetch failure.
func IsResourceFetch(err error) bool { return isKind(err, KindResourceFetch) }
