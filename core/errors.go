package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateSubscription is delivered to any subscriber beyond the first
// one a merge operator accepts.
var ErrDuplicateSubscription = errors.New("operator accepts exactly one subscriber")

// ErrDuplicateOnSubscribe reports a protocol violation where a source
// delivered OnSubscribe more than once. The extra subscription is cancelled
// and the violation is routed to the dropped-error hook.
var ErrDuplicateOnSubscribe = errors.New("OnSubscribe delivered more than once")

// ConfigurationError reports invalid constructor arguments. It is raised
// eagerly at construction time, never deferred to subscription.
type ConfigurationError struct {
	Option string
	Reason string
}

func (e ConfigurationError) Error() string {
	if e.Option != "" {
		return fmt.Sprintf("invalid configuration: %s: %s", e.Option, e.Reason)
	}
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// MapperError wraps a failure of the user-supplied mapping function,
// whether returned or recovered from a panic.
type MapperError struct {
	Cause error
}

func (e MapperError) Error() string {
	return fmt.Sprintf("mapper failed: %v", e.Cause)
}

func (e MapperError) Unwrap() error { return e.Cause }

// NullItemError reports a disallowed empty result: a mapper that produced
// a nil publisher, or a source that produced a nil item. This is a protocol
// violation, not something to skip silently.
type NullItemError struct {
	Origin string
}

func (e NullItemError) Error() string {
	return fmt.Sprintf("%s produced a nil result", e.Origin)
}

// OverflowError reports a producer that delivered more items than it was
// granted. It always terminates the whole merge, even under delay-error.
type OverflowError struct {
	Source string
}

func (e OverflowError) Error() string {
	return fmt.Sprintf("%s produced more items than requested", e.Source)
}

// AggregateError is the composite terminal failure of delay-error mode when
// more than one source failed. Causes are kept in the order the failures
// were observed.
type AggregateError struct {
	Causes []error
}

func (e AggregateError) Error() string {
	msgs := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		msgs[i] = c.Error()
	}
	return fmt.Sprintf("%d sources failed: [%s]", len(e.Causes), strings.Join(msgs, "; "))
}

// Unwrap exposes the causes to errors.Is and errors.As.
func (e AggregateError) Unwrap() []error { return e.Causes }
