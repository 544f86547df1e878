// Package dispatch binds host calls to native Go functions.
//
// A MethodDescriptor declares a callable's name, docstring and
// parameter schema. An Adapter compiled from it performs the full
// calling convention on every invocation: positional binding in
// declaration order, keyword binding by parameter name, arity and
// duplicate checks with host-style TypeError messages, schema-driven
// decoding of each argument, invocation of the native Func, and
// encoding of the result back into an owned host reference.
//
// Failures never cross the boundary as Go panics. Binding and
// conversion errors raise the matching host exception and return the
// nil reference; errors returned by the native function are translated
// through the descriptor's error mapping; panics inside native code
// are recovered and raised as RuntimeError.
package dispatch
