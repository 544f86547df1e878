// Package pyhost is the in-process reference implementation of the host
// object protocol defined by the ffi package.
//
// It provides a reference-counted object graph (none/bool singletons,
// ints, floats, text, bytes, lists, dicts, tuples, functions, types,
// class instances, modules), a host-global pending-exception slot, the
// interpreter lock, and a cycle collector cooperating with registered
// types through traverse/clear/finalize hooks.
//
// pyhost serves two roles: the embedded target when a Go process hosts
// the managed runtime directly, and the host used by the binding layer's
// own tests. Production deployments that bind a real external
// interpreter implement ffi.Host against that interpreter's C ABI
// instead; the layers above never know the difference.
//
// # Storage
//
// Objects live in a slab with a free list; a reference is the slot
// index plus one, so reference 0 is always invalid and stale references
// to reused slots are the caller's bug, not a crash.
//
// # Reference counting
//
// IncRef/DecRef are unchecked and cheap. DecRef to zero destroys the
// object iteratively, dropping every internal reference it held. The
// singletons are immortal and ignore counting entirely.
//
// # Cycle collection
//
// Containers, instances, bound methods and modules are tracked. Collect
// uses trial deletion: subtract every tracked-to-tracked edge from a
// scratch copy of the refcounts; whatever stays positive is externally
// reachable and seeds a mark pass; the unmarked remainder is garbage.
// Instance finalize hooks run before any edge is broken and at most
// once per instance; clear hooks may run twice (collection and ordinary
// deallocation) and must be idempotent.
//
// # Concurrency
//
// One interpreter-wide lock serializes all host-visible code. Runtime
// methods never lock internally; callers bracket work with Lock/Unlock
// and use AllowThreads for long native regions that touch no
// references.
package pyhost
