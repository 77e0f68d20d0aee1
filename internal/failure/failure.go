// Package failure classifies errors crossing the account provisioning bridge.
package failure

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind is the failure class that drives retry and fallback decisions.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransient failures are retried and eventually fall back to messaging.
	KindTransient
	// KindApplication failures are rejections of the request itself and are never retried.
	KindApplication
	// KindBreakerOpen is a fast-fail without touching the network.
	KindBreakerOpen
	// KindPublishFailure means the broker refused or never acknowledged an event.
	KindPublishFailure
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindApplication:
		return "application"
	case KindBreakerOpen:
		return "breaker_open"
	case KindPublishFailure:
		return "publish_failure"
	default:
		return "unknown"
	}
}

// Error carries a Kind alongside the failing operation and its cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on kind alone, e.g. errors.Is(err, failure.ErrBreakerOpen).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrTransient   = &Error{Kind: KindTransient}
	ErrApplication = &Error{Kind: KindApplication}
	ErrBreakerOpen = &Error{Kind: KindBreakerOpen}
	ErrPublish     = &Error{Kind: KindPublishFailure}
)

func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Transient(op string, err error) error   { return New(KindTransient, op, err) }
func Application(op string, err error) error { return New(KindApplication, op, err) }
func BreakerOpen(op string, err error) error { return New(KindBreakerOpen, op, err) }
func Publish(op string, err error) error     { return New(KindPublishFailure, op, err) }

// KindOf returns the kind of the first *Error in err's chain.
// Bare context errors count as transient.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	return KindUnknown
}

func IsTransient(err error) bool   { return KindOf(err) == KindTransient }
func IsApplication(err error) bool { return KindOf(err) == KindApplication }
func IsBreakerOpen(err error) bool { return KindOf(err) == KindBreakerOpen }

// FromRPC maps a gRPC transport or status error onto the taxonomy.
func FromRPC(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Transient(op, err)
	}

	switch status.Code(err) {
	case codes.InvalidArgument,
		codes.AlreadyExists,
		codes.FailedPrecondition,
		codes.NotFound,
		codes.PermissionDenied,
		codes.Unauthenticated,
		codes.OutOfRange,
		codes.Unimplemented:
		return Application(op, err)
	default:
		// Unavailable, DeadlineExceeded, ResourceExhausted, Aborted, Canceled,
		// Internal and Unknown are all worth another attempt.
		return Transient(op, err)
	}
}
