// Package ffi defines the raw object protocol of the managed-object host.
//
// This is the lowest layer of the binding stack: an opaque reference type
// (Ref), a closed set of host type tags, and the Host interface of
// uninterpreted primitives - reference counting, singletons, scalar and
// container construction/access, attribute access, calls, the pending
// exception slot, and the interpreter lock.
//
// Nothing here is checked. Primitives enforce no ownership discipline and
// raise no errors of their own beyond the NilRef/false conventions
// documented per method. Safety is built entirely by the layers above:
//
//	ffi       raw protocol (this package)
//	object    ownership wrappers and typed views
//	convert   marshaling engine
//	dispatch  argument binding and call adapters
//	registry  module and class registration
//
// # Ownership conventions
//
// A reference is either owned (the holder must balance it with exactly
// one DecRef) or borrowed (the holder must not DecRef it and must not
// outlive the value it was borrowed from). Each Host method documents
// which convention its results follow. The object package wraps these
// conventions in a checked Handle type; code above the ffi layer should
// not call IncRef/DecRef directly.
//
// # Concurrency
//
// The host serializes all object access behind a single interpreter-wide
// lock. Callers hold the lock across every primitive; AllowThreads is the
// one escape hatch, releasing the lock around a native region that
// touches no references.
//
// # Implementations
//
// The pyhost package provides the in-process reference implementation
// used for embedding and testing. Out-of-process targets (a real
// interpreter reached over its C ABI) implement the same interface from
// collaborator build tooling; the binding layer is agnostic.
package ffi
