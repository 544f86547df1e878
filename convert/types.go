package convert

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/extbind/extbind/errors"
	"github.com/extbind/extbind/exc"
	"github.com/extbind/extbind/ffi"
	"github.com/extbind/extbind/object"
)

// Type describes the host-side shape of a parameter or result. A Type
// decodes a borrowed host object into a plain Go value (bool, int64,
// uint64, float64, string, []byte, object.Handle, []any or
// map[string]any) and raises the matching host exception when the
// object does not fit.
type Type interface {
	// FromHost decodes a borrowed reference. On failure the pending
	// exception state is set and nil is returned with the error.
	FromHost(host ffi.Host, ref ffi.Ref) (any, error)

	// String returns the name used in manifests and error messages.
	String() string
}

// Scalar type kinds.
var (
	Bool   Type = scalarType{kind: ffi.TagBool}
	Int    Type = scalarType{kind: ffi.TagInt}
	Uint   Type = scalarType{kind: ffi.TagInt, unsigned: true}
	Float  Type = scalarType{kind: ffi.TagFloat}
	Str    Type = scalarType{kind: ffi.TagStr}
	Bytes  Type = scalarType{kind: ffi.TagBytes}
	Object Type = objectType{}
)

type scalarType struct {
	kind     ffi.TypeTag
	unsigned bool
}

func (t scalarType) String() string {
	if t.unsigned {
		return "uint"
	}
	switch t.kind {
	case ffi.TagBool:
		return "bool"
	case ffi.TagInt:
		return "int"
	case ffi.TagFloat:
		return "float"
	case ffi.TagStr:
		return "str"
	case ffi.TagBytes:
		return "bytes"
	}
	return "object"
}

func (t scalarType) FromHost(host ffi.Host, ref ffi.Ref) (any, error) {
	switch t.kind {
	case ffi.TagBool:
		v, ok := host.AsBool(ref)
		if !ok {
			return nil, schemaMismatch(host, ref, t.String())
		}
		return v, nil

	case ffi.TagInt:
		if host.TypeOf(ref) != ffi.TagInt {
			return nil, schemaMismatch(host, ref, "int")
		}
		if t.unsigned {
			v, ok := host.AsUint(ref)
			if !ok {
				err := errors.Overflow(errors.PhaseConvert, nil, nil, "uint64")
				exc.Raise(host, exc.OverflowError, "value does not fit uint64")
				return nil, err
			}
			return v, nil
		}
		v, ok := host.AsInt(ref)
		if !ok {
			err := errors.Overflow(errors.PhaseConvert, nil, nil, "int64")
			exc.Raise(host, exc.OverflowError, "value does not fit int64")
			return nil, err
		}
		return v, nil

	case ffi.TagFloat:
		switch host.TypeOf(ref) {
		case ffi.TagFloat:
			v, _ := host.AsFloat(ref)
			return v, nil
		case ffi.TagInt:
			v, ok := host.AsInt(ref)
			if !ok {
				err := errors.Overflow(errors.PhaseConvert, nil, nil, "float64")
				exc.Raise(host, exc.OverflowError, "int too large for float64")
				return nil, err
			}
			return float64(v), nil
		}
		return nil, schemaMismatch(host, ref, "float")

	case ffi.TagStr:
		v, ok := host.AsStr(ref)
		if !ok {
			return nil, schemaMismatch(host, ref, "str")
		}
		if !utf8.ValidString(v) {
			err := errors.InvalidUTF8(errors.PhaseConvert, nil, []byte(v))
			exc.Raise(host, exc.ValueError, err.Detail)
			return nil, err
		}
		return v, nil

	case ffi.TagBytes:
		v, ok := host.AsBytes(ref)
		if !ok {
			return nil, schemaMismatch(host, ref, "bytes")
		}
		buf := make([]byte, len(v))
		copy(buf, v)
		return buf, nil
	}
	return nil, schemaMismatch(host, ref, t.String())
}

// objectType passes the host object through untouched. The handle is
// borrowed: the argument container keeps it alive for the duration of
// the call, and callers use NewRef to retain it beyond that.
type objectType struct{}

func (objectType) String() string { return "object" }

func (objectType) FromHost(host ffi.Host, ref ffi.Ref) (any, error) {
	return object.Borrowed(host, ref), nil
}

// OptionalOf wraps a type so that a none argument decodes to nil
// instead of failing.
func OptionalOf(elem Type) Type { return optionalType{elem: elem} }

type optionalType struct{ elem Type }

func (t optionalType) String() string { return "optional[" + t.elem.String() + "]" }

func (t optionalType) FromHost(host ffi.Host, ref ffi.Ref) (any, error) {
	if ref == ffi.NilRef || host.TypeOf(ref) == ffi.TagNone {
		return nil, nil
	}
	return t.elem.FromHost(host, ref)
}

// ListOf decodes a host list into []any with each element decoded by elem.
func ListOf(elem Type) Type { return listType{elem: elem} }

type listType struct{ elem Type }

func (t listType) String() string { return "list[" + t.elem.String() + "]" }

func (t listType) FromHost(host ffi.Host, ref ffi.Ref) (any, error) {
	if host.TypeOf(ref) != ffi.TagList {
		return nil, schemaMismatch(host, ref, t.String())
	}
	n := host.ListLen(ref)
	out := make([]any, 0, n)
	for i := 0; i < n; i++ {
		item, _ := host.ListGet(ref, i)
		v, err := t.elem.FromHost(host, item)
		if err != nil {
			releaseDecoded(out)
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// MapOf decodes a host dict with string keys into map[string]any with
// each value decoded by elem.
func MapOf(elem Type) Type { return mapType{elem: elem} }

type mapType struct{ elem Type }

func (t mapType) String() string { return "dict[str, " + t.elem.String() + "]" }

func (t mapType) FromHost(host ffi.Host, ref ffi.Ref) (any, error) {
	if host.TypeOf(ref) != ffi.TagDict {
		return nil, schemaMismatch(host, ref, t.String())
	}
	out := make(map[string]any, host.DictLen(ref))
	pos := 0
	for {
		k, v, ok := host.DictNext(ref, &pos)
		if !ok {
			break
		}
		key, keyOK := host.AsStr(k)
		if !keyOK {
			releaseDecodedMap(out)
			err := errors.TypeMismatch(errors.PhaseConvert, nil, "str", host.TypeName(k))
			exc.Raisef(host, exc.TypeError, "dict key must be str, got %s", host.TypeName(k))
			return nil, err
		}
		dv, err := t.elem.FromHost(host, v)
		if err != nil {
			releaseDecodedMap(out)
			return nil, err
		}
		out[key] = dv
	}
	return out, nil
}

// TupleOf decodes a fixed-arity host tuple into []any, one decoded
// value per element type.
func TupleOf(elems ...Type) Type { return tupleType{elems: elems} }

type tupleType struct{ elems []Type }

func (t tupleType) String() string {
	names := make([]string, len(t.elems))
	for i, e := range t.elems {
		names[i] = e.String()
	}
	return "tuple[" + strings.Join(names, ", ") + "]"
}

func (t tupleType) FromHost(host ffi.Host, ref ffi.Ref) (any, error) {
	if host.TypeOf(ref) != ffi.TagTuple {
		return nil, schemaMismatch(host, ref, t.String())
	}
	if n := host.TupleLen(ref); n != len(t.elems) {
		err := errors.InvalidInput(errors.PhaseConvert,
			fmt.Sprintf("expected tuple of %d elements, got %d", len(t.elems), n))
		exc.Raise(host, exc.ValueError, err.Detail)
		return nil, err
	}
	out := make([]any, 0, len(t.elems))
	for i, e := range t.elems {
		item, _ := host.TupleGet(ref, i)
		v, err := e.FromHost(host, item)
		if err != nil {
			releaseDecoded(out)
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func schemaMismatch(host ffi.Host, ref ffi.Ref, want string) error {
	got := host.TypeName(ref)
	err := errors.TypeMismatch(errors.PhaseConvert, nil, want, got)
	exc.Raisef(host, exc.TypeError, "expected %s, got %s", want, got)
	return err
}

// releaseDecoded drops handle decodes accumulated before a mid-container
// failure so no references leak.
func releaseDecoded(items []any) {
	for _, it := range items {
		if h, ok := it.(object.Handle); ok {
			h.Release()
		}
	}
}

func releaseDecodedMap(m map[string]any) {
	for _, it := range m {
		if h, ok := it.(object.Handle); ok {
			h.Release()
		}
	}
}
