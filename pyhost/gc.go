package pyhost

import (
	"go.uber.org/zap"

	"github.com/extbind/extbind/ffi"
)

// Collect runs the cycle collector and returns the number of objects
// reclaimed. The caller holds the interpreter lock.
//
// The algorithm is the classic trial-deletion scheme: copy refcounts
// into scratch, subtract every edge between tracked objects, treat
// anything still positive as externally reachable, mark from those
// roots, then break the edges of the unreachable remainder. Finalize
// hooks run before any edge is broken, at most once per instance.
func (r *Runtime) Collect() int {
	var tracked []ffi.Ref
	for i := range r.objects {
		o := &r.objects[i]
		if o.valid && o.tracked && !o.immortal {
			o.gcrefs = o.refs
			o.marked = false
			tracked = append(tracked, ffi.Ref(i+1))
		}
	}

	// subtract internal edges
	for _, ref := range tracked {
		o := r.obj(ref)
		for _, e := range r.internalEdges(o) {
			if t := r.obj(e); t != nil && t.tracked && !t.immortal {
				t.gcrefs--
			}
		}
	}

	// mark everything reachable from externally referenced roots
	var stack []ffi.Ref
	for _, ref := range tracked {
		if o := r.obj(ref); o != nil && o.gcrefs > 0 && !o.marked {
			o.marked = true
			stack = append(stack, ref)
		}
	}
	for len(stack) > 0 {
		ref := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		o := r.obj(ref)
		for _, e := range r.internalEdges(o) {
			if t := r.obj(e); t != nil && t.tracked && !t.immortal && !t.marked {
				t.marked = true
				stack = append(stack, e)
			}
		}
	}

	var garbage []ffi.Ref
	for _, ref := range tracked {
		if o := r.obj(ref); o != nil && !o.marked {
			garbage = append(garbage, ref)
		}
	}
	if len(garbage) == 0 {
		return 0
	}

	// finalize before breaking anything, exactly once per instance
	for _, ref := range garbage {
		o := r.obj(ref)
		if o == nil || o.tag != ffi.TagObject {
			continue
		}
		p := o.payload.(*payloadInstance)
		if p.finalized {
			continue
		}
		p.finalized = true
		if spec := r.typeSpec(p.typ); spec != nil && spec.Finalize != nil {
			spec.Finalize(ref)
		}
	}

	// break cycles: clear hooks first, then drop host-held edges
	reclaimed := len(garbage)
	for _, ref := range garbage {
		o := r.obj(ref)
		if o == nil {
			continue
		}
		if o.tag == ffi.TagObject {
			p := o.payload.(*payloadInstance)
			if spec := r.typeSpec(p.typ); spec != nil && spec.Clear != nil {
				spec.Clear(ref)
			}
		}
		r.clearEdges(ref)
	}

	Logger().Debug("cycle collection finished",
		zap.Int("tracked", len(tracked)),
		zap.Int("reclaimed", reclaimed))
	return reclaimed
}

// clearEdges empties ref's host-held references, dropping one count for
// each. Once every external count is gone the normal DecRef path
// destroys the object.
func (r *Runtime) clearEdges(ref ffi.Ref) {
	o := r.obj(ref)
	if o == nil {
		return
	}
	var dropped []ffi.Ref
	switch p := o.payload.(type) {
	case *payloadList:
		dropped = p.items
		p.items = nil
	case *payloadTuple:
		dropped = p.items
		p.items = nil
	case *payloadDict:
		dropped = append(dropped, p.keys...)
		dropped = append(dropped, p.vals...)
		p.keys, p.vals = nil, nil
		p.index = make(map[string]int)
	case *payloadFunc:
		if p.self != ffi.NilRef {
			dropped = append(dropped, p.self)
			p.self = ffi.NilRef
		}
	case *payloadInstance:
		for _, name := range p.names {
			dropped = append(dropped, p.attrs[name])
		}
		p.names = nil
		p.attrs = make(map[string]ffi.Ref)
	case *payloadModule:
		for _, name := range p.names {
			dropped = append(dropped, p.attrs[name])
		}
		p.names = nil
		p.attrs = make(map[string]ffi.Ref)
	}
	for _, e := range dropped {
		r.DecRef(e)
	}
}
