package pyhost

import (
	"sync"

	"github.com/extbind/extbind/ffi"
)

// object is one slot in the runtime's object slab.
type object struct {
	payload  any
	refs     int
	tag      ffi.TypeTag
	valid    bool
	immortal bool
	tracked  bool // participates in cycle collection

	// collector scratch, meaningful only during Collect
	gcrefs int
	marked bool
}

// Runtime is the in-process reference host: a reference-counted object
// graph with a single interpreter lock, a pending-exception slot and a
// cycle collector. It implements ffi.Host.
//
// Runtime methods do not lock; per the host concurrency contract the
// caller holds the interpreter lock (Lock/Unlock) around every
// host-visible operation.
type Runtime struct {
	mu      sync.Mutex
	objects []object
	free    []ffi.Ref

	none   ffi.Ref
	vtrue  ffi.Ref
	vfalse ffi.Ref

	pendingKind string
	pendingMsg  string
	hasPending  bool
}

var _ ffi.Host = (*Runtime)(nil)

// New creates a runtime with the none/bool singletons allocated.
func New() *Runtime {
	r := &Runtime{
		objects: make([]object, 0, 64),
		free:    make([]ffi.Ref, 0, 16),
	}
	r.none = r.alloc(ffi.TagNone, nil)
	r.vtrue = r.alloc(ffi.TagBool, true)
	r.vfalse = r.alloc(ffi.TagBool, false)
	for _, s := range []ffi.Ref{r.none, r.vtrue, r.vfalse} {
		r.obj(s).immortal = true
	}
	return r
}

// alloc stores a payload and returns an owned reference (refcount 1).
func (r *Runtime) alloc(tag ffi.TypeTag, payload any) ffi.Ref {
	o := object{
		payload: payload,
		refs:    1,
		tag:     tag,
		valid:   true,
	}
	switch tag {
	case ffi.TagList, ffi.TagDict, ffi.TagTuple, ffi.TagObject, ffi.TagModule:
		o.tracked = true
	}

	if n := len(r.free); n > 0 {
		ref := r.free[n-1]
		r.free = r.free[:n-1]
		r.objects[ref-1] = o
		return ref
	}
	r.objects = append(r.objects, o)
	return ffi.Ref(len(r.objects))
}

// obj resolves a reference to its slot, or nil for invalid references.
func (r *Runtime) obj(ref ffi.Ref) *object {
	if ref == 0 || int(ref) > len(r.objects) {
		return nil
	}
	o := &r.objects[ref-1]
	if !o.valid {
		return nil
	}
	return o
}

// IncRef increments the reference count. No-op on dead references.
func (r *Runtime) IncRef(ref ffi.Ref) {
	if o := r.obj(ref); o != nil && !o.immortal {
		o.refs++
	}
}

// DecRef decrements the reference count, destroying the object when it
// reaches zero. No-op on dead references.
func (r *Runtime) DecRef(ref ffi.Ref) {
	o := r.obj(ref)
	if o == nil || o.immortal {
		return
	}
	o.refs--
	if o.refs <= 0 {
		r.destroy(ref)
	}
}

// RefCount returns the current count, or 0 for dead references.
func (r *Runtime) RefCount(ref ffi.Ref) int {
	if o := r.obj(ref); o != nil {
		return o.refs
	}
	return 0
}

// destroy tears down ref and everything its internal references keep
// alive. Iterative so deep structures cannot overflow the Go stack.
func (r *Runtime) destroy(ref ffi.Ref) {
	work := []ffi.Ref{ref}
	for len(work) > 0 {
		cur := work[len(work)-1]
		work = work[:len(work)-1]

		o := r.obj(cur)
		if o == nil || o.immortal {
			continue
		}

		if o.tag == ffi.TagObject {
			r.finalizeInstance(cur, o)
			// Finalize/Clear run native code that may allocate and grow
			// the slab; slot pointers taken before a hook are stale after.
			if o = r.obj(cur); o == nil {
				continue
			}
		}

		edges := r.internalEdges(o)
		// Traverse is a hook too.
		if o = r.obj(cur); o == nil {
			continue
		}
		o.valid = false
		o.payload = nil
		r.free = append(r.free, cur)

		for _, e := range edges {
			t := r.obj(e)
			if t == nil || t.immortal {
				continue
			}
			t.refs--
			if t.refs <= 0 {
				work = append(work, e)
			}
		}
	}
}

// finalizeInstance runs the type's Finalize and Clear hooks. Finalize
// runs at most once per instance; Clear must tolerate being called both
// here and during cycle collection.
func (r *Runtime) finalizeInstance(ref ffi.Ref, o *object) {
	p, ok := o.payload.(*payloadInstance)
	if !ok {
		return
	}
	spec := r.typeSpec(p.typ)
	if spec == nil {
		return
	}
	if !p.finalized {
		p.finalized = true
		if spec.Finalize != nil {
			spec.Finalize(ref)
		}
	}
	if spec.Clear != nil {
		spec.Clear(ref)
	}
}

// typeSpec returns the TypeSpec backing a type reference, or nil.
func (r *Runtime) typeSpec(typ ffi.Ref) *ffi.TypeSpec {
	o := r.obj(typ)
	if o == nil {
		return nil
	}
	p, ok := o.payload.(*payloadType)
	if !ok {
		return nil
	}
	return &p.spec
}

// internalEdges lists the host-visible references held by o: container
// items, attribute values, the bound receiver of a method, an
// instance's type, and natively held references reported by the type's
// Traverse hook.
func (r *Runtime) internalEdges(o *object) []ffi.Ref {
	var edges []ffi.Ref
	switch p := o.payload.(type) {
	case *payloadList:
		edges = append(edges, p.items...)
	case *payloadTuple:
		edges = append(edges, p.items...)
	case *payloadDict:
		edges = append(edges, p.keys...)
		edges = append(edges, p.vals...)
	case *payloadFunc:
		if p.self != ffi.NilRef {
			edges = append(edges, p.self)
		}
	case *payloadInstance:
		edges = append(edges, p.typ)
		for _, name := range p.names {
			edges = append(edges, p.attrs[name])
		}
		if spec := r.typeSpec(p.typ); spec != nil && spec.Traverse != nil {
			spec.Traverse(p.self, func(e ffi.Ref) {
				if e != ffi.NilRef {
					edges = append(edges, e)
				}
			})
		}
	case *payloadModule:
		for _, name := range p.names {
			edges = append(edges, p.attrs[name])
		}
	}
	return edges
}

// Lock acquires the interpreter lock.
func (r *Runtime) Lock() { r.mu.Lock() }

// Unlock releases the interpreter lock.
func (r *Runtime) Unlock() { r.mu.Unlock() }

// AllowThreads releases the interpreter lock around f and reacquires it
// afterward. f must not touch any reference; reacquisition blocks until
// the lock is available.
func (r *Runtime) AllowThreads(f func()) {
	r.mu.Unlock()
	defer r.mu.Lock()
	f()
}

// SetPending records a pending exception, replacing any previous one.
func (r *Runtime) SetPending(kind, msg string) {
	r.pendingKind = kind
	r.pendingMsg = msg
	r.hasPending = true
}

// Pending reports the pending exception, if any.
func (r *Runtime) Pending() (kind, msg string, ok bool) {
	return r.pendingKind, r.pendingMsg, r.hasPending
}

// ClearPending clears the pending exception slot.
func (r *Runtime) ClearPending() {
	r.pendingKind = ""
	r.pendingMsg = ""
	r.hasPending = false
}

// Live returns the number of live objects, excluding the immortal
// singletons. Intended for leak assertions in tests.
func (r *Runtime) Live() int {
	n := 0
	for i := range r.objects {
		if r.objects[i].valid && !r.objects[i].immortal {
			n++
		}
	}
	return n
}
