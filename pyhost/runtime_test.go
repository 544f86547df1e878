package pyhost

import (
	"bytes"
	"math"
	"testing"

	"github.com/extbind/extbind/ffi"
)

func TestSingletonsAreImmortal(t *testing.T) {
	r := New()

	none := r.None()
	if r.TypeOf(none) != ffi.TagNone {
		t.Fatalf("None tag = %v", r.TypeOf(none))
	}
	r.DecRef(none)
	r.DecRef(none)
	if r.TypeOf(none) != ffi.TagNone {
		t.Fatal("none died after DecRef")
	}

	if r.Bool(true) != r.Bool(true) {
		t.Fatal("true singleton not interned")
	}
	v, ok := r.AsBool(r.Bool(false))
	if !ok || v {
		t.Fatalf("AsBool(false) = %v, %v", v, ok)
	}
	if r.Live() != 0 {
		t.Fatalf("Live() = %d after touching singletons", r.Live())
	}
}

func TestRefCountLifecycle(t *testing.T) {
	r := New()

	n := r.NewInt(42)
	if got := r.RefCount(n); got != 1 {
		t.Fatalf("fresh refcount = %d", got)
	}
	r.IncRef(n)
	if got := r.RefCount(n); got != 2 {
		t.Fatalf("after IncRef = %d", got)
	}
	r.DecRef(n)
	r.DecRef(n)
	if r.TypeOf(n) != ffi.TagInvalid {
		t.Fatal("object alive after refcount reached zero")
	}
	if r.RefCount(n) != 0 {
		t.Fatal("dead reference reports a refcount")
	}

	// The freed slot is reused and the stale reference stays dead.
	m := r.NewStr("reuse")
	if m != n {
		t.Fatalf("slot not reused: got %d, want %d", m, n)
	}
	if r.Live() != 1 {
		t.Fatalf("Live() = %d", r.Live())
	}
	r.DecRef(m)
}

func TestIntegerRange(t *testing.T) {
	r := New()

	lo := r.NewInt(math.MinInt64)
	if v, ok := r.AsInt(lo); !ok || v != math.MinInt64 {
		t.Fatalf("AsInt(MinInt64) = %d, %v", v, ok)
	}
	if _, ok := r.AsUint(lo); ok {
		t.Fatal("negative int converted to uint")
	}

	hi := r.NewUint(math.MaxUint64)
	if v, ok := r.AsUint(hi); !ok || v != math.MaxUint64 {
		t.Fatalf("AsUint(MaxUint64) = %d, %v", v, ok)
	}
	if _, ok := r.AsInt(hi); ok {
		t.Fatal("MaxUint64 fit in int64")
	}

	if _, ok := r.AsInt(r.None()); ok {
		t.Fatal("AsInt accepted none")
	}
	r.DecRef(lo)
	r.DecRef(hi)
}

func TestScalars(t *testing.T) {
	r := New()

	f := r.NewFloat(2.5)
	if v, ok := r.AsFloat(f); !ok || v != 2.5 {
		t.Fatalf("AsFloat = %v, %v", v, ok)
	}
	s := r.NewStr("héllo")
	if v, ok := r.AsStr(s); !ok || v != "héllo" {
		t.Fatalf("AsStr = %q, %v", v, ok)
	}
	b := r.NewBytes([]byte{0, 1, 2})
	if v, ok := r.AsBytes(b); !ok || !bytes.Equal(v, []byte{0, 1, 2}) {
		t.Fatalf("AsBytes = %v, %v", v, ok)
	}
	if r.TypeName(s) != "str" {
		t.Fatalf("TypeName = %q", r.TypeName(s))
	}
	for _, ref := range []ffi.Ref{f, s, b} {
		r.DecRef(ref)
	}
	if r.Live() != 0 {
		t.Fatalf("leaked %d objects", r.Live())
	}
}

func TestListOps(t *testing.T) {
	r := New()

	list := r.NewList(4)
	a := r.NewInt(1)
	b := r.NewInt(2)
	r.ListAppend(list, a)
	r.ListAppend(list, b)
	r.DecRef(a)
	r.DecRef(b)

	if r.ListLen(list) != 2 {
		t.Fatalf("len = %d", r.ListLen(list))
	}
	it, ok := r.ListGet(list, 1)
	if !ok {
		t.Fatal("ListGet failed")
	}
	if v, _ := r.AsInt(it); v != 2 {
		t.Fatalf("list[1] = %d", v)
	}
	if _, ok := r.ListGet(list, 5); ok {
		t.Fatal("out-of-range get succeeded")
	}

	c := r.NewInt(9)
	if !r.ListSet(list, 0, c) {
		t.Fatal("ListSet failed")
	}
	r.DecRef(c)
	it, _ = r.ListGet(list, 0)
	if v, _ := r.AsInt(it); v != 9 {
		t.Fatalf("list[0] = %d after set", v)
	}

	r.DecRef(list)
	if r.Live() != 0 {
		t.Fatalf("leaked %d objects", r.Live())
	}
}

func TestDictInsertionOrder(t *testing.T) {
	r := New()

	d := r.NewDict()
	for _, key := range []string{"b", "a", "c"} {
		k := r.NewStr(key)
		v := r.NewInt(int64(len(key)))
		if !r.DictSet(d, k, v) {
			t.Fatalf("DictSet(%q) failed", key)
		}
		r.DecRef(k)
		r.DecRef(v)
	}
	if r.DictLen(d) != 3 {
		t.Fatalf("len = %d", r.DictLen(d))
	}

	var order []string
	pos := 0
	for {
		k, _, ok := r.DictNext(d, &pos)
		if !ok {
			break
		}
		s, _ := r.AsStr(k)
		order = append(order, s)
	}
	want := []string{"b", "a", "c"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("iteration order = %v", order)
		}
	}

	k := r.NewStr("a")
	v, ok := r.DictGet(d, k)
	r.DecRef(k)
	if !ok {
		t.Fatal("DictGet missed existing key")
	}
	if n, _ := r.AsInt(v); n != 1 {
		t.Fatalf("d[a] = %d", n)
	}

	// Unhashable key.
	bad := r.NewList(0)
	if r.DictSet(d, bad, r.None()) {
		t.Fatal("list accepted as dict key")
	}
	r.DecRef(bad)
	r.DecRef(d)
}

func TestDictOverwriteReleasesOldValue(t *testing.T) {
	r := New()

	d := r.NewDict()
	k := r.NewStr("k")
	v1 := r.NewInt(1)
	v2 := r.NewInt(2)
	r.DictSet(d, k, v1)
	r.DictSet(d, k, v2)
	r.DecRef(v1)
	if r.TypeOf(v1) != ffi.TagInvalid {
		t.Fatal("overwritten value still retained by dict")
	}
	if r.DictLen(d) != 1 {
		t.Fatalf("len = %d after overwrite", r.DictLen(d))
	}
	r.DecRef(k)
	r.DecRef(v2)
	r.DecRef(d)
	if r.Live() != 0 {
		t.Fatalf("leaked %d objects", r.Live())
	}
}

func TestTupleRetainsItems(t *testing.T) {
	r := New()

	a := r.NewInt(7)
	tup := r.NewTuple(a)
	r.DecRef(a)

	if r.TupleLen(tup) != 1 {
		t.Fatalf("len = %d", r.TupleLen(tup))
	}
	it, ok := r.TupleGet(tup, 0)
	if !ok {
		t.Fatal("TupleGet failed")
	}
	if v, _ := r.AsInt(it); v != 7 {
		t.Fatalf("tuple[0] = %d", v)
	}
	r.DecRef(tup)
	if r.Live() != 0 {
		t.Fatalf("leaked %d objects", r.Live())
	}
}

func TestPendingState(t *testing.T) {
	r := New()

	if _, _, ok := r.Pending(); ok {
		t.Fatal("fresh runtime has pending state")
	}
	r.SetPending("ValueError", "bad value")
	kind, msg, ok := r.Pending()
	if !ok || kind != "ValueError" || msg != "bad value" {
		t.Fatalf("Pending() = %q, %q, %v", kind, msg, ok)
	}
	r.SetPending("TypeError", "replaced")
	kind, _, _ = r.Pending()
	if kind != "TypeError" {
		t.Fatalf("SetPending did not replace: %q", kind)
	}
	r.ClearPending()
	if _, _, ok := r.Pending(); ok {
		t.Fatal("pending state survived ClearPending")
	}
}

func TestModuleAttributes(t *testing.T) {
	r := New()

	mod := r.NewModule("demo", "a demo module")
	v := r.NewInt(3)
	if !r.SetAttr(mod, "version", v) {
		t.Fatal("SetAttr failed")
	}
	r.DecRef(v)

	got := r.GetAttr(mod, "version")
	if got == ffi.NilRef {
		t.Fatal("GetAttr failed")
	}
	if n, _ := r.AsInt(got); n != 3 {
		t.Fatalf("version = %d", n)
	}
	r.DecRef(got)

	doc := r.GetAttr(mod, "__doc__")
	if s, _ := r.AsStr(doc); s != "a demo module" {
		t.Fatalf("__doc__ = %q", s)
	}
	r.DecRef(doc)

	if r.GetAttr(mod, "missing") != ffi.NilRef {
		t.Fatal("missing attribute resolved")
	}
	kind, msg, ok := r.Pending()
	if !ok || kind != "AttributeError" {
		t.Fatalf("pending = %q, %q, %v", kind, msg, ok)
	}
	if msg != "module 'demo' has no attribute 'missing'" {
		t.Fatalf("message = %q", msg)
	}
	r.ClearPending()
	r.DecRef(mod)
}

func TestCallFunction(t *testing.T) {
	r := New()

	fn := r.NewFunction("double", "", func(args, kwargs ffi.Ref) ffi.Ref {
		it, _ := r.TupleGet(args, 0)
		v, _ := r.AsInt(it)
		return r.NewInt(v * 2)
	})
	args := intTuple(r, 21)
	res := r.Call(fn, args, ffi.NilRef)
	if res == ffi.NilRef {
		t.Fatal("call failed")
	}
	if v, _ := r.AsInt(res); v != 42 {
		t.Fatalf("result = %d", v)
	}
	r.DecRef(res)
	r.DecRef(args)
	r.DecRef(fn)
	if r.Live() != 0 {
		t.Fatalf("leaked %d objects", r.Live())
	}
}

func TestCallNotCallable(t *testing.T) {
	r := New()

	n := r.NewInt(5)
	if r.Call(n, ffi.NilRef, ffi.NilRef) != ffi.NilRef {
		t.Fatal("calling an int succeeded")
	}
	kind, msg, _ := r.Pending()
	if kind != "TypeError" || msg != "'int' object is not callable" {
		t.Fatalf("pending = %q, %q", kind, msg)
	}
	r.ClearPending()
	r.DecRef(n)
}

func TestConstructAndBoundMethod(t *testing.T) {
	r := New()

	typ := r.NewType(&ffi.TypeSpec{
		Name: "Counter",
		Doc:  "counts",
		Methods: []ffi.MethodSpec{{
			Name: "value",
			Fn: func(args, kwargs ffi.Ref) ffi.Ref {
				self, _ := r.TupleGet(args, 0)
				st := r.Native(self).(*int64)
				return r.NewInt(*st)
			},
		}},
		Init: func(args, kwargs ffi.Ref) ffi.Ref {
			self, _ := r.TupleGet(args, 0)
			start, _ := r.TupleGet(args, 1)
			v, _ := r.AsInt(start)
			r.SetNative(self, &v)
			return r.None()
		},
	})

	args := intTuple(r, 10)
	inst := r.Call(typ, args, ffi.NilRef)
	r.DecRef(args)
	if inst == ffi.NilRef {
		t.Fatal("construction failed")
	}
	if r.TypeName(inst) != "Counter" {
		t.Fatalf("TypeName = %q", r.TypeName(inst))
	}

	m := r.GetAttr(inst, "value")
	if m == ffi.NilRef {
		t.Fatal("bound method lookup failed")
	}
	res := r.Call(m, ffi.NilRef, ffi.NilRef)
	if v, _ := r.AsInt(res); v != 10 {
		t.Fatalf("value() = %d", v)
	}
	r.DecRef(res)

	// The bound method keeps the receiver alive.
	r.DecRef(inst)
	res = r.Call(m, ffi.NilRef, ffi.NilRef)
	if v, _ := r.AsInt(res); v != 10 {
		t.Fatalf("value() after receiver DecRef = %d", v)
	}
	r.DecRef(res)
	r.DecRef(m)
	r.DecRef(typ)
	if r.Live() != 0 {
		t.Fatalf("leaked %d objects", r.Live())
	}
}

func TestConstructAbortsOnInitFailure(t *testing.T) {
	r := New()

	typ := r.NewType(&ffi.TypeSpec{
		Name: "Strict",
		Init: func(args, kwargs ffi.Ref) ffi.Ref {
			r.SetPending("ValueError", "rejected")
			return ffi.NilRef
		},
	})
	if r.Call(typ, ffi.NilRef, ffi.NilRef) != ffi.NilRef {
		t.Fatal("construction succeeded despite failing init")
	}
	kind, msg, _ := r.Pending()
	if kind != "ValueError" || msg != "rejected" {
		t.Fatalf("pending = %q, %q", kind, msg)
	}
	r.ClearPending()
	r.DecRef(typ)
	if r.Live() != 0 {
		t.Fatalf("leaked %d objects", r.Live())
	}
}

func TestAllowThreadsReleasesLock(t *testing.T) {
	r := New()

	r.Lock()
	acquired := make(chan struct{})
	r.AllowThreads(func() {
		// Another thread can take the interpreter lock while native
		// work runs outside it.
		go func() {
			r.Lock()
			r.Unlock()
			close(acquired)
		}()
		<-acquired
	})
	r.Unlock()
}

// intTuple builds an owned argument tuple from int values.
func intTuple(r *Runtime, vals ...int64) ffi.Ref {
	items := make([]ffi.Ref, len(vals))
	for i, v := range vals {
		items[i] = r.NewInt(v)
	}
	tup := r.NewTuple(items...)
	for _, it := range items {
		r.DecRef(it)
	}
	return tup
}
