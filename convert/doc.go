// Package convert marshals values between native Go types and host
// objects.
//
// Two surfaces are provided. The generic functions As and From cover
// direct conversions for Go code holding handles: all integer widths
// with range checks, floats, bool, string, []byte, and handle
// pass-through. The Type schema describes parameter and result shapes
// for dispatch: scalar kinds plus OptionalOf, ListOf, MapOf and
// TupleOf composites, each decoding a borrowed reference into a plain
// Go value.
//
// Every failure sets the host's pending exception state before
// returning: TypeError for shape mismatches, OverflowError for values
// outside the target range, ValueError for invalid UTF-8 and wrong
// tuple arity. Conversions never partially succeed; container decodes
// release any handles accumulated before a failure.
package convert
