package registry_test

import (
	"encoding/json"
	goerrors "errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/extbind/extbind/convert"
	"github.com/extbind/extbind/dispatch"
	"github.com/extbind/extbind/exc"
	"github.com/extbind/extbind/ffi"
	"github.com/extbind/extbind/pyhost"
	"github.com/extbind/extbind/registry"
)

var errNotFound = goerrors.New("no such item")

func demoModule() *registry.ModuleDescriptor {
	return registry.NewModule("demo", "demonstration module").
		AddMethod(&dispatch.MethodDescriptor{
			Name: "add",
			Doc:  "add two or three ints",
			Params: []dispatch.Param{
				{Name: "a", Type: convert.Int},
				{Name: "b", Type: convert.Int},
				{Name: "c", Type: convert.Int, Optional: true},
			},
			Fn: func(c *dispatch.Call) (any, error) {
				return c.Int(0) + c.Int(1) + c.OptInt(2, 0), nil
			},
		}).
		AddMethod(&dispatch.MethodDescriptor{
			Name:   "fetch",
			Params: []dispatch.Param{{Name: "key", Type: convert.Str}},
			Errors: exc.Mapping{
				{Err: errNotFound, Kind: exc.KeyError, Message: "item not found"},
			},
			Fn: func(c *dispatch.Call) (any, error) {
				if c.Str(0) == "present" {
					return "value", nil
				}
				return nil, errNotFound
			},
		}).
		AddAttr("version", "1.2.0").
		AddAttr("max_batch", int64(64))
}

// callInts resolves name on obj (a module, type or instance) and
// invokes it with positional int args.
func callInts(t *testing.T, r *pyhost.Runtime, obj ffi.Ref, name string, vals ...int64) ffi.Ref {
	t.Helper()
	fn := r.GetAttr(obj, name)
	require.NotEqual(t, ffi.NilRef, fn, "lookup %s", name)
	items := make([]ffi.Ref, len(vals))
	for i, v := range vals {
		items[i] = r.NewInt(v)
	}
	args := r.NewTuple(items...)
	for _, it := range items {
		r.DecRef(it)
	}
	res := r.Call(fn, args, ffi.NilRef)
	r.DecRef(args)
	r.DecRef(fn)
	return res
}

func TestModuleCreate(t *testing.T) {
	r := pyhost.New()

	mod, err := demoModule().Create(r)
	require.NoError(t, err)
	require.True(t, mod.Valid())
	require.Equal(t, ffi.TagModule, mod.Type())

	res := callInts(t, r, mod.Ref(), "add", 2, 3)
	v, _ := r.AsInt(res)
	require.EqualValues(t, 5, v)
	r.DecRef(res)

	res = callInts(t, r, mod.Ref(), "add", 2, 3, 4)
	v, _ = r.AsInt(res)
	require.EqualValues(t, 9, v)
	r.DecRef(res)

	res = callInts(t, r, mod.Ref(), "add", 2)
	require.Equal(t, ffi.NilRef, res)
	kind, msg, ok := r.Pending()
	require.True(t, ok)
	require.Equal(t, "TypeError", kind)
	require.Equal(t, "add() expected 2 to 3 arguments (1 given)", msg)
	r.ClearPending()

	mod.Release()
	require.Zero(t, r.Live(), "module graph leaked")
}

func TestModuleAttrs(t *testing.T) {
	r := pyhost.New()

	mod, err := demoModule().Create(r)
	require.NoError(t, err)

	ver := r.GetAttr(mod.Ref(), "version")
	s, _ := r.AsStr(ver)
	require.Equal(t, "1.2.0", s)
	r.DecRef(ver)

	max := r.GetAttr(mod.Ref(), "max_batch")
	n, _ := r.AsInt(max)
	require.EqualValues(t, 64, n)
	r.DecRef(max)

	doc := r.GetAttr(mod.Ref(), "__doc__")
	s, _ = r.AsStr(doc)
	require.Equal(t, "demonstration module", s)
	r.DecRef(doc)

	mod.Release()
}

func TestModuleErrorMapping(t *testing.T) {
	r := pyhost.New()

	mod, err := demoModule().Create(r)
	require.NoError(t, err)

	fn := r.GetAttr(mod.Ref(), "fetch")
	key := r.NewStr("absent")
	args := r.NewTuple(key)
	r.DecRef(key)

	res := r.Call(fn, args, ffi.NilRef)
	require.Equal(t, ffi.NilRef, res)
	kind, msg, _ := r.Pending()
	require.Equal(t, "KeyError", kind)
	require.Equal(t, "item not found", msg)
	r.ClearPending()

	r.DecRef(args)
	r.DecRef(fn)
	mod.Release()
}

func TestExportName(t *testing.T) {
	require.Equal(t, "PyInit_demo", demoModule().ExportName())
}

func TestModuleValidation(t *testing.T) {
	r := pyhost.New()

	// Duplicate member names are rejected before touching the host.
	m := registry.NewModule("dup", "").
		AddAttr("x", int64(1)).
		AddAttr("x", int64(2))
	_, err := m.Create(r)
	require.Error(t, err)
	kind, _, ok := r.Pending()
	require.True(t, ok)
	require.Equal(t, "SystemError", kind)
	r.ClearPending()

	// Nameless modules are rejected.
	_, err = registry.NewModule("", "").Create(r)
	require.Error(t, err)
	r.ClearPending()
}

type counterState struct {
	count int64
}

func counterClass() *registry.ClassDescriptor {
	c := &registry.ClassDescriptor{
		Name: "Counter",
		Doc:  "a counter with a configurable start",
		New: func(h ffi.Host) (any, error) {
			return &counterState{}, nil
		},
		Init: &dispatch.MethodDescriptor{
			Name:   "Counter",
			Params: []dispatch.Param{{Name: "start", Type: convert.Int, Optional: true}},
			Fn: func(c *dispatch.Call) (any, error) {
				registry.State[*counterState](c).count = c.OptInt(0, 0)
				return nil, nil
			},
		},
	}
	c.AddMethod(&dispatch.MethodDescriptor{
		Name:   "increment",
		Params: []dispatch.Param{{Name: "by", Type: convert.Int, Optional: true}},
		Fn: func(c *dispatch.Call) (any, error) {
			st := registry.State[*counterState](c)
			st.count += c.OptInt(0, 1)
			return st.count, nil
		},
	})
	c.AddMethod(&dispatch.MethodDescriptor{
		Name: "value",
		Fn: func(c *dispatch.Call) (any, error) {
			return registry.State[*counterState](c).count, nil
		},
	})
	return c
}

func TestClassLifecycle(t *testing.T) {
	r := pyhost.New()

	mod, err := registry.NewModule("counters", "").AddClass(counterClass()).Create(r)
	require.NoError(t, err)

	typ := r.GetAttr(mod.Ref(), "Counter")
	require.NotEqual(t, ffi.NilRef, typ)

	start := r.NewInt(10)
	args := r.NewTuple(start)
	r.DecRef(start)
	inst := r.Call(typ, args, ffi.NilRef)
	r.DecRef(args)
	require.NotEqual(t, ffi.NilRef, inst)
	require.Equal(t, "Counter", r.TypeName(inst))

	inc := r.GetAttr(inst, "increment")
	by := r.NewInt(5)
	incArgs := r.NewTuple(by)
	r.DecRef(by)
	res := r.Call(inc, incArgs, ffi.NilRef)
	v, _ := r.AsInt(res)
	require.EqualValues(t, 15, v)
	r.DecRef(res)
	r.DecRef(incArgs)

	// Default step.
	res = r.Call(inc, ffi.NilRef, ffi.NilRef)
	v, _ = r.AsInt(res)
	require.EqualValues(t, 16, v)
	r.DecRef(res)
	r.DecRef(inc)

	val := r.GetAttr(inst, "value")
	res = r.Call(val, ffi.NilRef, ffi.NilRef)
	v, _ = r.AsInt(res)
	require.EqualValues(t, 16, v)
	r.DecRef(res)
	r.DecRef(val)

	doc := r.GetAttr(typ, "__doc__")
	s, _ := r.AsStr(doc)
	require.Equal(t, "a counter with a configurable start", s)
	r.DecRef(doc)

	r.DecRef(inst)
	r.DecRef(typ)
	mod.Release()
	require.Zero(t, r.Live())
}

func TestClassConstructorArity(t *testing.T) {
	r := pyhost.New()

	mod, err := registry.NewModule("counters", "").AddClass(counterClass()).Create(r)
	require.NoError(t, err)
	typ := r.GetAttr(mod.Ref(), "Counter")

	args := r.NewTuple()
	a := r.NewInt(1)
	b := r.NewInt(2)
	bad := r.NewTuple(a, b)
	r.DecRef(a)
	r.DecRef(b)
	r.DecRef(args)

	inst := r.Call(typ, bad, ffi.NilRef)
	require.Equal(t, ffi.NilRef, inst)
	kind, msg, _ := r.Pending()
	require.Equal(t, "TypeError", kind)
	require.Equal(t, "Counter() expected 0 to 1 arguments (2 given)", msg)
	r.ClearPending()

	r.DecRef(bad)
	r.DecRef(typ)
	mod.Release()
	require.Zero(t, r.Live())
}

// nodeState retains a peer instance through native state, exercising
// the traverse/clear/finalize bridge.
type nodeState struct {
	peer ffi.Ref
}

func nodeClass(r *pyhost.Runtime, finalized *int) *registry.ClassDescriptor {
	c := &registry.ClassDescriptor{
		Name: "Node",
		New: func(h ffi.Host) (any, error) {
			return &nodeState{}, nil
		},
		Traverse: func(state any, visit func(ffi.Ref)) {
			if st := state.(*nodeState); st.peer != ffi.NilRef {
				visit(st.peer)
			}
		},
		Clear: func(state any) {
			st := state.(*nodeState)
			if st.peer != ffi.NilRef {
				r.DecRef(st.peer)
				st.peer = ffi.NilRef
			}
		},
		Finalize: func(state any) {
			*finalized++
		},
	}
	c.AddMethod(&dispatch.MethodDescriptor{
		Name:   "link",
		Params: []dispatch.Param{{Name: "other", Type: convert.Object}},
		Fn: func(call *dispatch.Call) (any, error) {
			st := registry.State[*nodeState](call)
			other := call.Handle(0).NewRef()
			st.peer = other.Ref()
			return nil, nil
		},
	})
	return c
}

func TestClassCycleCollection(t *testing.T) {
	r := pyhost.New()
	finalized := 0

	mod, err := registry.NewModule("graph", "").AddClass(nodeClass(r, &finalized)).Create(r)
	require.NoError(t, err)
	typ := r.GetAttr(mod.Ref(), "Node")

	a := r.Call(typ, ffi.NilRef, ffi.NilRef)
	b := r.Call(typ, ffi.NilRef, ffi.NilRef)
	require.NotEqual(t, ffi.NilRef, a)
	require.NotEqual(t, ffi.NilRef, b)

	link := func(from, to ffi.Ref) {
		m := r.GetAttr(from, "link")
		args := r.NewTuple(to)
		res := r.Call(m, args, ffi.NilRef)
		require.NotEqual(t, ffi.NilRef, res)
		r.DecRef(res)
		r.DecRef(args)
		r.DecRef(m)
	}
	link(a, b)
	link(b, a)

	r.DecRef(a)
	r.DecRef(b)
	require.NotZero(t, r.Live(), "cycle freed by refcounting alone")

	n := r.Collect()
	require.Equal(t, 2, n)
	require.Equal(t, 2, finalized, "each node finalized exactly once")

	require.Zero(t, r.Collect(), "second collection found garbage")
	require.Equal(t, 2, finalized, "finalizer ran again")

	r.DecRef(typ)
	mod.Release()
	require.Zero(t, r.Live())
}

func TestManifest(t *testing.T) {
	m := demoModule().AddClass(counterClass()).Manifest()

	require.Equal(t, "demo", m.Module)
	require.Equal(t, "PyInit_demo", m.Export)
	require.Len(t, m.Methods, 2)
	require.Equal(t, "add", m.Methods[0].Name)
	require.Equal(t, []registry.ParamInfo{
		{Name: "a", Type: "int"},
		{Name: "b", Type: "int"},
		{Name: "c", Type: "int", Optional: true},
	}, m.Methods[0].Params)
	require.Len(t, m.Classes, 1)
	require.Equal(t, "Counter", m.Classes[0].Name)
	require.Len(t, m.Classes[0].Constructor, 1)
	require.Len(t, m.Classes[0].Methods, 2)
	require.Len(t, m.Attrs, 2)

	raw, err := demoModule().ManifestJSON()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "demo", decoded["module"])
}

func TestManifestSchema(t *testing.T) {
	raw, err := registry.ManifestSchema()
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Contains(t, decoded, "properties")
}

type scalerState struct {
	factor int64
}

// scalerClass makes its instances callable: scaler(x) multiplies x by
// the factor fixed at construction.
func scalerClass() *registry.ClassDescriptor {
	return &registry.ClassDescriptor{
		Name: "Scaler",
		New: func(h ffi.Host) (any, error) {
			return &scalerState{}, nil
		},
		Init: &dispatch.MethodDescriptor{
			Name:   "Scaler",
			Params: []dispatch.Param{{Name: "factor", Type: convert.Int}},
			Fn: func(c *dispatch.Call) (any, error) {
				registry.State[*scalerState](c).factor = c.Int(0)
				return nil, nil
			},
		},
		Call: &dispatch.MethodDescriptor{
			Name:   "Scaler",
			Params: []dispatch.Param{{Name: "x", Type: convert.Int}},
			Fn: func(c *dispatch.Call) (any, error) {
				return registry.State[*scalerState](c).factor * c.Int(0), nil
			},
		},
	}
}

func TestCallableInstance(t *testing.T) {
	r := pyhost.New()

	mod, err := registry.NewModule("scaling", "").AddClass(scalerClass()).Create(r)
	require.NoError(t, err)
	typ := r.GetAttr(mod.Ref(), "Scaler")

	factor := r.NewInt(3)
	args := r.NewTuple(factor)
	r.DecRef(factor)
	inst := r.Call(typ, args, ffi.NilRef)
	r.DecRef(args)
	require.NotEqual(t, ffi.NilRef, inst)

	x := r.NewInt(7)
	callArgs := r.NewTuple(x)
	r.DecRef(x)
	res := r.Call(inst, callArgs, ffi.NilRef)
	r.DecRef(callArgs)
	require.NotEqual(t, ffi.NilRef, res)
	v, _ := r.AsInt(res)
	require.EqualValues(t, 21, v)
	r.DecRef(res)

	// The receiver strip leaves the declared parameters to bind, so
	// arity diagnostics count them exactly.
	res = r.Call(inst, ffi.NilRef, ffi.NilRef)
	require.Equal(t, ffi.NilRef, res)
	kind, msg, _ := r.Pending()
	require.Equal(t, "TypeError", kind)
	require.Equal(t, "Scaler() expected 1 arguments (0 given)", msg)
	r.ClearPending()

	r.DecRef(inst)
	r.DecRef(typ)
	mod.Release()
	require.Zero(t, r.Live())
}

func TestInstanceWithoutCallIsNotCallable(t *testing.T) {
	r := pyhost.New()

	mod, err := registry.NewModule("counters", "").AddClass(counterClass()).Create(r)
	require.NoError(t, err)
	typ := r.GetAttr(mod.Ref(), "Counter")
	inst := r.Call(typ, ffi.NilRef, ffi.NilRef)
	require.NotEqual(t, ffi.NilRef, inst)

	res := r.Call(inst, ffi.NilRef, ffi.NilRef)
	require.Equal(t, ffi.NilRef, res)
	kind, msg, _ := r.Pending()
	require.Equal(t, "TypeError", kind)
	require.Equal(t, "'Counter' object is not callable", msg)
	r.ClearPending()

	r.DecRef(inst)
	r.DecRef(typ)
	mod.Release()
	require.Zero(t, r.Live())
}

func TestStaticMethod(t *testing.T) {
	r := pyhost.New()

	c := counterClass()
	c.AddMethod(&dispatch.MethodDescriptor{
		Name:   "clamp",
		Static: true,
		Params: []dispatch.Param{
			{Name: "v", Type: convert.Int},
			{Name: "hi", Type: convert.Int},
		},
		Fn: func(c *dispatch.Call) (any, error) {
			if v, hi := c.Int(0), c.Int(1); v > hi {
				return hi, nil
			}
			return c.Int(0), nil
		},
	})
	mod, err := registry.NewModule("counters", "").AddClass(c).Create(r)
	require.NoError(t, err)
	typ := r.GetAttr(mod.Ref(), "Counter")
	inst := r.Call(typ, ffi.NilRef, ffi.NilRef)
	require.NotEqual(t, ffi.NilRef, inst)

	// No receiver is delivered: both declared parameters come from the
	// call, whether resolved through the instance or the type.
	res := callInts(t, r, inst, "clamp", 9, 5)
	v, _ := r.AsInt(res)
	require.EqualValues(t, 5, v)
	r.DecRef(res)

	res = callInts(t, r, typ, "clamp", 3, 7)
	v, _ = r.AsInt(res)
	require.EqualValues(t, 3, v)
	r.DecRef(res)

	r.DecRef(inst)
	r.DecRef(typ)
	mod.Release()
	require.Zero(t, r.Live())
}

func TestClassMethod(t *testing.T) {
	r := pyhost.New()

	c := counterClass()
	c.AddMethod(&dispatch.MethodDescriptor{
		Name:        "is_type_receiver",
		ClassMethod: true,
		Fn: func(c *dispatch.Call) (any, error) {
			return c.Host().TypeOf(c.Receiver().Ref()) == ffi.TagType, nil
		},
	})
	mod, err := registry.NewModule("counters", "").AddClass(c).Create(r)
	require.NoError(t, err)
	typ := r.GetAttr(mod.Ref(), "Counter")
	inst := r.Call(typ, ffi.NilRef, ffi.NilRef)
	require.NotEqual(t, ffi.NilRef, inst)

	for _, owner := range []ffi.Ref{inst, typ} {
		res := callInts(t, r, owner, "is_type_receiver")
		b, ok := r.AsBool(res)
		require.True(t, ok)
		require.True(t, b, "receiver is not the type object")
		r.DecRef(res)
	}

	r.DecRef(inst)
	r.DecRef(typ)
	mod.Release()
	require.Zero(t, r.Live())
}

func TestMethodKindValidation(t *testing.T) {
	r := pyhost.New()

	c := counterClass()
	c.AddMethod(&dispatch.MethodDescriptor{
		Name:        "confused",
		Static:      true,
		ClassMethod: true,
		Fn:          func(c *dispatch.Call) (any, error) { return nil, nil },
	})
	_, err := registry.NewModule("counters", "").AddClass(c).Create(r)
	require.Error(t, err)
	require.Contains(t, err.Error(), "both static and a classmethod")
	r.ClearPending()
}
