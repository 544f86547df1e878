package exc

import (
	"fmt"

	"github.com/extbind/extbind/errors"
	"github.com/extbind/extbind/ffi"
)

// Kind names a host exception type. The set is closed; each kind maps
// 1:1 to a concrete exception type on the host side.
type Kind string

const (
	TypeError           Kind = "TypeError"
	ValueError          Kind = "ValueError"
	RuntimeError        Kind = "RuntimeError"
	ZeroDivisionError   Kind = "ZeroDivisionError"
	OverflowError       Kind = "OverflowError"
	AttributeError      Kind = "AttributeError"
	IndexError          Kind = "IndexError"
	KeyError            Kind = "KeyError"
	MemoryError         Kind = "MemoryError"
	StopIteration       Kind = "StopIteration"
	NotImplementedError Kind = "NotImplementedError"

	// InternalError is the defensive fallback raised when a callee
	// violated the "failure implies pending exception" contract, or
	// when an error escapes every mapping entry.
	InternalError Kind = "SystemError"
)

// Raised is the sentinel error returned by Raise: it records what was
// set pending so Go-side callers can still inspect the failure, but its
// real payload is the host's pending exception state.
type Raised struct {
	Kind    Kind
	Message string
}

// Error implements the error interface.
func (r *Raised) Error() string {
	return string(r.Kind) + ": " + r.Message
}

// Is matches any Raised of the same kind.
func (r *Raised) Is(target error) bool {
	if t, ok := target.(*Raised); ok {
		return t.Kind == "" || t.Kind == r.Kind
	}
	return false
}

// Raise sets host pending exception state and returns the sentinel
// failure error for native code to propagate. The caller contract: any
// function signaling failure upward must have called Raise (or another
// pending-state setter) first.
func Raise(h ffi.Host, kind Kind, msg string) error {
	h.SetPending(string(kind), msg)
	return &Raised{Kind: kind, Message: msg}
}

// Raisef is Raise with formatting.
func Raisef(h ffi.Host, kind Kind, format string, args ...any) error {
	return Raise(h, kind, fmt.Sprintf(format, args...))
}

// IsPending reports whether the host has a pending exception.
func IsPending(h ffi.Host) bool {
	_, _, ok := h.Pending()
	return ok
}

// Clear drops any pending exception.
func Clear(h ffi.Host) {
	h.ClearPending()
}

// EnsurePending is the dispatch layer's defensive fallback: if a callee
// reported failure without setting pending state, raise InternalError
// so the contract violation is visible instead of masked. Returns the
// error describing what is now pending.
func EnsurePending(h ffi.Host, context string) error {
	if kind, msg, ok := h.Pending(); ok {
		return &Raised{Kind: Kind(kind), Message: msg}
	}
	err := errors.Contract("failure reported without pending exception in " + context)
	Raise(h, InternalError, err.Error())
	return err
}
