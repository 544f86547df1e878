package pyhost

import (
	"math"

	"github.com/extbind/extbind/ffi"
)

// payloadInt stores integers as sign + magnitude so the full int64 and
// uint64 ranges round-trip without loss.
type payloadInt struct {
	mag uint64
	neg bool
}

type payloadList struct {
	items []ffi.Ref
}

// payloadDict keeps insertion order; the index maps hash keys to the
// parallel keys/vals position.
type payloadDict struct {
	keys  []ffi.Ref
	vals  []ffi.Ref
	index map[string]int
}

type payloadTuple struct {
	items []ffi.Ref
}

// payloadFunc backs both plain functions and bound methods; self is
// NilRef for the former.
type payloadFunc struct {
	name string
	doc  string
	fn   ffi.NativeFunc
	self ffi.Ref
}

type payloadType struct {
	spec    ffi.TypeSpec
	methods map[string]ffi.MethodSpec
}

type payloadInstance struct {
	typ       ffi.Ref
	self      ffi.Ref // this instance's own reference, for traverse hooks
	names     []string
	attrs     map[string]ffi.Ref
	native    any
	finalized bool
}

type payloadModule struct {
	name  string
	doc   string
	names []string
	attrs map[string]ffi.Ref
}

// None returns the none singleton (borrowed; immortal).
func (r *Runtime) None() ffi.Ref { return r.none }

// Bool returns a bool singleton (borrowed; immortal).
func (r *Runtime) Bool(v bool) ffi.Ref {
	if v {
		return r.vtrue
	}
	return r.vfalse
}

// NewInt creates an integer object. The result is owned.
func (r *Runtime) NewInt(v int64) ffi.Ref {
	p := payloadInt{}
	if v < 0 {
		p.neg = true
		// two's complement negation avoids overflow at MinInt64
		p.mag = uint64(-(v + 1)) + 1
	} else {
		p.mag = uint64(v)
	}
	return r.alloc(ffi.TagInt, p)
}

// NewUint creates an integer object from an unsigned value. Owned.
func (r *Runtime) NewUint(v uint64) ffi.Ref {
	return r.alloc(ffi.TagInt, payloadInt{mag: v})
}

// NewFloat creates a float object. Owned.
func (r *Runtime) NewFloat(v float64) ffi.Ref {
	return r.alloc(ffi.TagFloat, v)
}

// NewStr creates a text object. Owned. The host stores text as Go
// strings; UTF-8 validity is the conversion engine's concern.
func (r *Runtime) NewStr(v string) ffi.Ref {
	return r.alloc(ffi.TagStr, v)
}

// NewBytes creates a bytes object with a copy of data. Owned.
func (r *Runtime) NewBytes(data []byte) ffi.Ref {
	buf := make([]byte, len(data))
	copy(buf, data)
	return r.alloc(ffi.TagBytes, buf)
}

// TypeOf returns the type tag, or TagInvalid for dead references.
func (r *Runtime) TypeOf(ref ffi.Ref) ffi.TypeTag {
	if o := r.obj(ref); o != nil {
		return o.tag
	}
	return ffi.TagInvalid
}

// TypeName returns the host-facing type name.
func (r *Runtime) TypeName(ref ffi.Ref) string {
	o := r.obj(ref)
	if o == nil {
		return "<invalid>"
	}
	switch p := o.payload.(type) {
	case *payloadType:
		return p.spec.Name
	case *payloadInstance:
		return r.TypeName(p.typ)
	}
	return o.tag.String()
}

// AsInt reads an integer if it fits int64. ok is false on tag mismatch
// or when the magnitude is out of range.
func (r *Runtime) AsInt(ref ffi.Ref) (int64, bool) {
	o := r.obj(ref)
	if o == nil || o.tag != ffi.TagInt {
		return 0, false
	}
	p := o.payload.(payloadInt)
	if p.neg {
		if p.mag > uint64(math.MaxInt64)+1 {
			return 0, false
		}
		return -int64(p.mag-1) - 1, true
	}
	if p.mag > uint64(math.MaxInt64) {
		return 0, false
	}
	return int64(p.mag), true
}

// AsUint reads an integer if it is non-negative. ok is false on tag
// mismatch or for negative values.
func (r *Runtime) AsUint(ref ffi.Ref) (uint64, bool) {
	o := r.obj(ref)
	if o == nil || o.tag != ffi.TagInt {
		return 0, false
	}
	p := o.payload.(payloadInt)
	if p.neg {
		return 0, false
	}
	return p.mag, true
}

// AsFloat reads a float object.
func (r *Runtime) AsFloat(ref ffi.Ref) (float64, bool) {
	o := r.obj(ref)
	if o == nil || o.tag != ffi.TagFloat {
		return 0, false
	}
	return o.payload.(float64), true
}

// AsBool reads a bool object.
func (r *Runtime) AsBool(ref ffi.Ref) (bool, bool) {
	o := r.obj(ref)
	if o == nil || o.tag != ffi.TagBool {
		return false, false
	}
	return o.payload.(bool), true
}

// AsStr exposes the stored text. Valid while the object is alive.
func (r *Runtime) AsStr(ref ffi.Ref) (string, bool) {
	o := r.obj(ref)
	if o == nil || o.tag != ffi.TagStr {
		return "", false
	}
	return o.payload.(string), true
}

// AsBytes exposes the internal byte storage. Valid while the object is
// alive; callers that need the data past that must copy.
func (r *Runtime) AsBytes(ref ffi.Ref) ([]byte, bool) {
	o := r.obj(ref)
	if o == nil || o.tag != ffi.TagBytes {
		return nil, false
	}
	return o.payload.([]byte), true
}

// Native returns the native state attached to an instance.
func (r *Runtime) Native(ref ffi.Ref) any {
	o := r.obj(ref)
	if o == nil {
		return nil
	}
	if p, ok := o.payload.(*payloadInstance); ok {
		return p.native
	}
	return nil
}

// SetNative attaches native state to an instance. Ignored for other
// object kinds.
func (r *Runtime) SetNative(ref ffi.Ref, state any) {
	o := r.obj(ref)
	if o == nil {
		return
	}
	if p, ok := o.payload.(*payloadInstance); ok {
		p.native = state
	}
}
