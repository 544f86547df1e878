package extbind

import (
	"github.com/extbind/extbind/dispatch"
	"github.com/extbind/extbind/exc"
	"github.com/extbind/extbind/ffi"
	"github.com/extbind/extbind/pyhost"
	"github.com/extbind/extbind/registry"
)

// Aliases for the declaration types, so simple modules need only this
// package and the convert schema kinds.
type (
	Module  = registry.ModuleDescriptor
	Class   = registry.ClassDescriptor
	Attr    = registry.Attr
	Method  = dispatch.MethodDescriptor
	Param   = dispatch.Param
	Call    = dispatch.Call
	Mapping = exc.Mapping
)

// NewModule starts an empty module descriptor.
func NewModule(name, doc string) *Module {
	return registry.NewModule(name, doc)
}

// NewHost returns the in-process reference host, primarily for
// embedding and tests.
func NewHost() ffi.Host {
	return pyhost.New()
}
