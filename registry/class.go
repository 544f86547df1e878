package registry

import (
	"fmt"

	"github.com/extbind/extbind/dispatch"
	"github.com/extbind/extbind/errors"
	"github.com/extbind/extbind/exc"
	"github.com/extbind/extbind/ffi"
)

// ClassDescriptor declares a native class exposed through a module.
// Instances carry opaque native state allocated by New and retrieved
// in methods with State. Methods are bound by default: the receiver is
// delivered on the Call and the declared parameters start after it.
// Methods marked Static take no receiver; ClassMethod methods receive
// the type object.
type ClassDescriptor struct {
	Name    string `validate:"required"`
	Doc     string
	Methods []*dispatch.MethodDescriptor

	// New allocates the native state for a fresh instance, before Init
	// runs. May be nil for stateless classes.
	New func(h ffi.Host) (any, error)

	// Init consumes the constructor arguments. Optional; a class
	// without Init accepts no constructor arguments beyond none.
	Init *dispatch.MethodDescriptor

	// Call makes instances callable.
	Call *dispatch.MethodDescriptor

	// Cycle-collection hooks over the native state. Traverse reports
	// every host reference the state holds, Clear drops them, Finalize
	// runs once before deallocation.
	Traverse func(state any, visit func(ffi.Ref))
	Clear    func(state any)
	Finalize func(state any)
}

// AddMethod appends a method and returns the descriptor for chaining.
func (c *ClassDescriptor) AddMethod(m *dispatch.MethodDescriptor) *ClassDescriptor {
	c.Methods = append(c.Methods, m)
	return c
}

// Validate checks the class descriptor and all its methods.
func (c *ClassDescriptor) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		return errors.Wrap(errors.PhaseRegister, errors.KindRegistration, err, "invalid class descriptor")
	}
	seen := make(map[string]struct{}, len(c.Methods))
	for _, m := range c.Methods {
		if err := m.Validate(); err != nil {
			return errors.Registration(c.Name, m.Name, err)
		}
		if _, dup := seen[m.Name]; dup {
			return errors.New(errors.PhaseRegister, errors.KindRegistration).
				Detail("%s: duplicate method %q", c.Name, m.Name).Build()
		}
		seen[m.Name] = struct{}{}
	}
	if c.Init != nil {
		if err := c.Init.Validate(); err != nil {
			return errors.Registration(c.Name, "__init__", err)
		}
	}
	if c.Call != nil {
		if err := c.Call.Validate(); err != nil {
			return errors.Registration(c.Name, "__call__", err)
		}
	}
	return nil
}

// typeSpec compiles the descriptor into the host's raw type shape.
func (c *ClassDescriptor) typeSpec(host ffi.Host) (*ffi.TypeSpec, error) {
	spec := &ffi.TypeSpec{
		Name: c.Name,
		Doc:  c.Doc,
	}

	for _, m := range c.Methods {
		m.BoundReceiver = !m.Static
		ad, err := dispatch.NewAdapter(host, m)
		if err != nil {
			return nil, errors.Registration(c.Name, m.Name, err)
		}
		spec.Methods = append(spec.Methods, ffi.MethodSpec{
			Name:   m.Name,
			Doc:    m.Doc,
			Fn:     ad.Raw(),
			Static: m.Static,
			Class:  m.ClassMethod,
		})
	}

	var initAdapter *dispatch.Adapter
	if c.Init != nil {
		c.Init.BoundReceiver = true
		ad, err := dispatch.NewAdapter(host, c.Init)
		if err != nil {
			return nil, errors.Registration(c.Name, "__init__", err)
		}
		initAdapter = ad
	}
	spec.Init = func(args, kwargs ffi.Ref) ffi.Ref {
		if c.New != nil {
			self, _ := host.TupleGet(args, 0)
			state, err := c.New(host)
			if err != nil {
				if !exc.IsPending(host) {
					exc.Raise(host, exc.RuntimeError, err.Error())
				}
				return ffi.NilRef
			}
			host.SetNative(self, state)
		}
		if initAdapter != nil {
			return initAdapter.Raw()(args, kwargs)
		}
		if n := host.TupleLen(args); n > 1 {
			e := errors.Arity(c.Name, 0, 0, n-1)
			exc.Raise(host, exc.TypeError, e.Detail)
			return ffi.NilRef
		}
		return host.None()
	}

	if c.Call != nil {
		c.Call.BoundReceiver = true
		ad, err := dispatch.NewAdapter(host, c.Call)
		if err != nil {
			return nil, errors.Registration(c.Name, "__call__", err)
		}
		spec.Call = ad.Raw()
	}

	if c.Traverse != nil {
		spec.Traverse = func(self ffi.Ref, visit func(ffi.Ref)) {
			if st := host.Native(self); st != nil {
				c.Traverse(st, visit)
			}
		}
	}
	if c.Clear != nil {
		spec.Clear = func(self ffi.Ref) {
			if st := host.Native(self); st != nil {
				c.Clear(st)
			}
		}
	}
	if c.Finalize != nil {
		spec.Finalize = func(self ffi.Ref) {
			if st := host.Native(self); st != nil {
				c.Finalize(st)
			}
		}
	}
	return spec, nil
}

// State returns the receiver's native state as T. Calling it with the
// wrong type, or on an instance without state, is a programming error
// and panics; the adapter surfaces the panic as a host RuntimeError.
func State[T any](c *dispatch.Call) T {
	st := c.Host().Native(c.Receiver().Ref())
	v, ok := st.(T)
	if !ok {
		panic(fmt.Sprintf("native state is %T, not the requested type", st))
	}
	return v
}
