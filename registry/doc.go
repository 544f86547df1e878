// Package registry assembles native modules: named collections of
// functions, classes and constants exposed to the host runtime.
//
// A ModuleDescriptor is declarative. Validation runs before anything
// touches the host, so a malformed descriptor fails with a Go error
// instead of a half-built module. Create then materializes the module
// object: each method descriptor compiles to a dispatch adapter, each
// class compiles to a host type with lifecycle hooks bridged to its
// native state, and each constant converts through the standard value
// conversions. The host loader finds the module entry point under
// ExportName (PyInit_<name>).
//
// Class instances carry opaque Go state allocated by the class's New
// hook; methods retrieve it with State. The Traverse, Clear and
// Finalize hooks let the host's cycle collector see and break
// reference cycles that run through native state.
//
// The Manifest type serializes the exported surface for host-side
// tooling, with a JSON schema available from ManifestSchema.
package registry
