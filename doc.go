// Package extbind exposes native Go functions, classes and constants
// to a reference-counted, garbage-collected managed-object runtime.
//
// A module is declared once and materialized on a host:
//
//	mod := extbind.NewModule("calc", "arithmetic helpers").
//		AddMethod(&extbind.Method{
//			Name: "add",
//			Params: []extbind.Param{
//				{Name: "a", Type: convert.Int},
//				{Name: "b", Type: convert.Int},
//				{Name: "c", Type: convert.Int, Optional: true},
//			},
//			Fn: func(c *extbind.Call) (any, error) {
//				return c.Int(0) + c.Int(1) + c.OptInt(2, 0), nil
//			},
//		})
//
//	host := extbind.NewHost()
//	handle, err := mod.Create(host)
//
// The packages layer bottom-up:
//
//	errors    structured errors with phase and kind
//	ffi       raw host protocol: references, type tags, the Host interface
//	exc       host exception kinds, pending state, error mapping
//	object    ownership-tracked handles, scopes and typed views
//	convert   marshaling between Go values and host objects
//	dispatch  argument binding and the native calling convention
//	registry  module, class and manifest assembly
//	pyhost    in-process reference host for embedding and tests
//
// Ownership is explicit throughout: owned handles are released exactly
// once, borrowed handles never are, and every failure crossing the
// boundary is a pending host exception plus a sentinel return, never a
// Go panic.
package extbind
