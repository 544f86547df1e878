// Package errors provides structured error types for the binding layer.
//
// Every error carries a Phase (where in the pipeline it happened) and a
// Kind (what went wrong), plus optional type and path context:
//
//	[convert] overflow at b: Go type int32 - value 4294967296 overflows int32
//	[bind] unknown_keyword at z: add() got an unexpected keyword argument 'z'
//
// # Phases
//
//	register  descriptor validation, module/type construction
//	convert   marshaling between native values and host objects
//	bind      positional/keyword argument binding
//	dispatch  adapter invocation and result handling
//	runtime   native function execution
//	host      raw host protocol operations
//
// # Relationship to host exceptions
//
// These errors travel on the Go side of the boundary only. Crossing into
// the host is always "pending exception state + sentinel return"; the exc
// package owns that translation. The Kind values here line up with the
// exception taxonomy so the mapping is mechanical: type_mismatch and the
// binding kinds surface as the host's TypeError, overflow as
// OverflowError, allocation as MemoryError, contract as the internal
// fallback.
//
// Use errors.Is to match on (Phase, Kind) pairs:
//
//	if errors.Is(err, &errors.Error{Phase: errors.PhaseBind, Kind: errors.KindArity}) {
//	    ...
//	}
package errors
