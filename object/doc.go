// Package object builds the ownership discipline over raw ffi
// references.
//
// # Handles
//
// A Handle pairs a reference with an ownership tag:
//
//	Borrowed(host, ref)  non-owning view, no refcount change
//	Adopt(host, ref)     take over an owned reference (call results)
//	Share(host, ref)     new owning reference (incref)
//
// The invariant: an owned handle is released exactly once on every path
// out of the scope that created it; a borrowed handle is never released
// and must not outlive the value it was borrowed from. Release is
// idempotent on a given *Handle so unconditional deferred release is
// safe. The zero Handle is the "absent" sentinel used for omitted
// optional arguments.
//
// # Scopes
//
// There is no implicit destructor for a plain value, so code paths that
// create several intermediate handles use a Scope to reach every
// release on every exit path:
//
//	s := object.NewScope()
//	defer s.Close()
//	args := s.Adopt(host, host.NewTuple(a.Ref(), b.Ref()))
//
// Results that escape the scope are never registered in it.
//
// # Typed views
//
// Bytes, List, Dict and Tuple assert a host type tag over a Handle and
// add type-specific operations while preserving the underlying
// ownership contract. View accessors return borrowed handles; Share
// what must outlive the container. DictIterator is a single-pass cursor
// over a mapping's entries; obtain a fresh one for each pass.
package object
