// Package exc maps binding-layer failures onto host exceptions.
//
// The host signals errors through global pending-exception state, not
// through unwinding: a failing operation sets the pending slot and
// returns a sentinel value (NilRef/false) upward. This package owns
// that protocol on the Go side.
//
// # The caller contract
//
// Any function that reports failure to the dispatch layer must have set
// pending state first. Dispatch does not re-check beyond the
// EnsurePending fallback - deliberately, so a genuine host exception is
// never masked by a generic one raised on its behalf. A callee that
// breaks the contract surfaces as InternalError naming the violation.
//
// # Error mapping
//
// Mapping translates a closed set of native error values into host
// exceptions, first match in declared order winning:
//
//	var mapping = exc.Mapping{
//	    {Err: ErrNotFound, Kind: exc.KeyError, Message: "item not found"},
//	    {Err: ErrInvalid, Kind: exc.ValueError, Message: "invalid input"},
//	}
//	...
//	if err := store.Fetch(key); err != nil {
//	    return nil, mapping.Raise(host, err)
//	}
//
// An unmapped error raises InternalError, never a silent success.
package exc
