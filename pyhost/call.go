package pyhost

import (
	"fmt"

	"github.com/extbind/extbind/ffi"
)

// NewFunction creates a host function object backed by fn. Owned.
func (r *Runtime) NewFunction(name, doc string, fn ffi.NativeFunc) ffi.Ref {
	return r.alloc(ffi.TagFunction, &payloadFunc{name: name, doc: doc, fn: fn})
}

// NewType creates a host type from spec. Owned.
func (r *Runtime) NewType(spec *ffi.TypeSpec) ffi.Ref {
	p := &payloadType{
		spec:    *spec,
		methods: make(map[string]ffi.MethodSpec, len(spec.Methods)),
	}
	for _, m := range spec.Methods {
		p.methods[m.Name] = m
	}
	return r.alloc(ffi.TagType, p)
}

// NewModule creates an empty module object. Owned.
func (r *Runtime) NewModule(name, doc string) ffi.Ref {
	return r.alloc(ffi.TagModule, &payloadModule{
		name:  name,
		doc:   doc,
		attrs: make(map[string]ffi.Ref),
	})
}

// GetAttr resolves an attribute. The result is owned; NilRef means
// pending exception state is set (AttributeError).
func (r *Runtime) GetAttr(obj ffi.Ref, name string) ffi.Ref {
	o := r.obj(obj)
	if o == nil {
		r.SetPending("SystemError", "attribute access on dead reference")
		return ffi.NilRef
	}

	if name == "__doc__" {
		if doc, ok := r.docOf(o); ok {
			return r.NewStr(doc)
		}
	}

	switch p := o.payload.(type) {
	case *payloadModule:
		if v, ok := p.attrs[name]; ok {
			r.IncRef(v)
			return v
		}
		r.SetPending("AttributeError",
			fmt.Sprintf("module '%s' has no attribute '%s'", p.name, name))
		return ffi.NilRef

	case *payloadInstance:
		if v, ok := p.attrs[name]; ok {
			r.IncRef(v)
			return v
		}
		if t := r.obj(p.typ); t != nil {
			tp := t.payload.(*payloadType)
			if m, ok := tp.methods[name]; ok {
				f := &payloadFunc{name: name, doc: m.Doc, fn: m.Fn}
				switch {
				case m.Static:
					// no receiver
				case m.Class:
					// the type is the receiver
					r.IncRef(p.typ)
					f.self = p.typ
				default:
					// bound method: retains the instance
					r.IncRef(obj)
					f.self = obj
				}
				return r.alloc(ffi.TagFunction, f)
			}
		}
		r.SetPending("AttributeError",
			fmt.Sprintf("'%s' object has no attribute '%s'", r.TypeName(obj), name))
		return ffi.NilRef

	case *payloadType:
		if m, ok := p.methods[name]; ok {
			f := &payloadFunc{name: name, doc: m.Doc, fn: m.Fn}
			if m.Class {
				r.IncRef(obj)
				f.self = obj
			}
			// otherwise unbound: for plain methods the caller supplies
			// the receiver positionally, static methods take none
			return r.alloc(ffi.TagFunction, f)
		}
		r.SetPending("AttributeError",
			fmt.Sprintf("type '%s' has no attribute '%s'", p.spec.Name, name))
		return ffi.NilRef
	}

	r.SetPending("AttributeError",
		fmt.Sprintf("'%s' object has no attribute '%s'", r.TypeName(obj), name))
	return ffi.NilRef
}

func (r *Runtime) docOf(o *object) (string, bool) {
	switch p := o.payload.(type) {
	case *payloadModule:
		return p.doc, p.doc != ""
	case *payloadFunc:
		return p.doc, p.doc != ""
	case *payloadType:
		return p.spec.Doc, p.spec.Doc != ""
	}
	return "", false
}

// SetAttr stores an attribute on a module or class instance. The target
// retains its own reference to v. False means pending state is set.
func (r *Runtime) SetAttr(obj ffi.Ref, name string, v ffi.Ref) bool {
	o := r.obj(obj)
	if o == nil || r.obj(v) == nil {
		r.SetPending("SystemError", "attribute store on dead reference")
		return false
	}

	switch p := o.payload.(type) {
	case *payloadModule:
		r.storeAttr(&p.names, p.attrs, name, v)
		return true
	case *payloadInstance:
		r.storeAttr(&p.names, p.attrs, name, v)
		return true
	}

	r.SetPending("TypeError",
		fmt.Sprintf("'%s' object has no settable attributes", r.TypeName(obj)))
	return false
}

func (r *Runtime) storeAttr(names *[]string, attrs map[string]ffi.Ref, name string, v ffi.Ref) {
	old, exists := attrs[name]
	r.IncRef(v)
	attrs[name] = v
	if exists {
		r.DecRef(old)
	} else {
		*names = append(*names, name)
	}
}

// Call invokes a callable with a tuple of positional arguments and an
// optional keyword dict. args may be NilRef for a no-argument call. The
// result is owned; NilRef means pending exception state is set.
func (r *Runtime) Call(callable, args, kwargs ffi.Ref) ffi.Ref {
	o := r.obj(callable)
	if o == nil {
		r.SetPending("SystemError", "call through dead reference")
		return ffi.NilRef
	}

	ownArgs := args
	if ownArgs == ffi.NilRef {
		ownArgs = r.NewTuple()
		defer r.DecRef(ownArgs)
	}

	switch p := o.payload.(type) {
	case *payloadFunc:
		if p.self != ffi.NilRef {
			bound := r.prepend(p.self, ownArgs)
			defer r.DecRef(bound)
			return p.fn(bound, kwargs)
		}
		return p.fn(ownArgs, kwargs)

	case *payloadType:
		return r.construct(callable, p, ownArgs, kwargs)

	case *payloadInstance:
		if spec := r.typeSpec(p.typ); spec != nil && spec.Call != nil {
			bound := r.prepend(callable, ownArgs)
			defer r.DecRef(bound)
			return spec.Call(bound, kwargs)
		}
	}

	r.SetPending("TypeError",
		fmt.Sprintf("'%s' object is not callable", r.TypeName(callable)))
	return ffi.NilRef
}

// construct allocates an instance of typ and runs its Init hook.
func (r *Runtime) construct(typ ffi.Ref, tp *payloadType, args, kwargs ffi.Ref) ffi.Ref {
	r.IncRef(typ)
	inst := &payloadInstance{
		typ:   typ,
		attrs: make(map[string]ffi.Ref),
	}
	ref := r.alloc(ffi.TagObject, inst)
	inst.self = ref

	if tp.spec.Init != nil {
		initArgs := r.prepend(ref, args)
		ret := tp.spec.Init(initArgs, kwargs)
		r.DecRef(initArgs)
		if ret == ffi.NilRef {
			r.DecRef(ref)
			return ffi.NilRef
		}
		r.DecRef(ret)
	}
	return ref
}

// prepend builds a new owned tuple (first,)+rest.
func (r *Runtime) prepend(first, rest ffi.Ref) ffi.Ref {
	n := r.TupleLen(rest)
	items := make([]ffi.Ref, 0, n+1)
	items = append(items, first)
	for i := 0; i < n; i++ {
		it, _ := r.TupleGet(rest, i)
		items = append(items, it)
	}
	return r.NewTuple(items...)
}
