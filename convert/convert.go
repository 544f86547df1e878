package convert

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/extbind/extbind/errors"
	"github.com/extbind/extbind/exc"
	"github.com/extbind/extbind/ffi"
	"github.com/extbind/extbind/object"
)

// As converts a handle to a native value of type T. Supported targets:
// the signed and unsigned integer types (width-checked), float32/64,
// bool, string (UTF-8 validated), []byte (copied) and object.Handle
// (pass-through, shared reference).
//
// On failure the host's pending exception state is set (TypeError or
// OverflowError) and the zero value is returned with the error; there
// are no partial results.
func As[T any](h object.Handle) (T, error) {
	var zero T
	if !h.Valid() {
		return zero, raiseConvert(h.Host(), errors.InvalidInput(errors.PhaseConvert, "conversion from invalid handle"), exc.TypeError)
	}
	host := h.Host()

	switch out := any(&zero).(type) {
	case *bool:
		v, ok := host.AsBool(h.Ref())
		if !ok {
			return zero, typeMismatch(host, h, "bool")
		}
		*out = v

	case *int64:
		v, err := asInt(h, math.MinInt64, math.MaxInt64, "int64")
		if err != nil {
			return zero, err
		}
		*out = v
	case *int32:
		v, err := asInt(h, math.MinInt32, math.MaxInt32, "int32")
		if err != nil {
			return zero, err
		}
		*out = int32(v)
	case *int16:
		v, err := asInt(h, math.MinInt16, math.MaxInt16, "int16")
		if err != nil {
			return zero, err
		}
		*out = int16(v)
	case *int8:
		v, err := asInt(h, math.MinInt8, math.MaxInt8, "int8")
		if err != nil {
			return zero, err
		}
		*out = int8(v)
	case *int:
		v, err := asInt(h, math.MinInt, math.MaxInt, "int")
		if err != nil {
			return zero, err
		}
		*out = int(v)

	case *uint64:
		v, err := asUint(h, math.MaxUint64, "uint64")
		if err != nil {
			return zero, err
		}
		*out = v
	case *uint32:
		v, err := asUint(h, math.MaxUint32, "uint32")
		if err != nil {
			return zero, err
		}
		*out = uint32(v)
	case *uint16:
		v, err := asUint(h, math.MaxUint16, "uint16")
		if err != nil {
			return zero, err
		}
		*out = uint16(v)
	case *uint8:
		v, err := asUint(h, math.MaxUint8, "uint8")
		if err != nil {
			return zero, err
		}
		*out = uint8(v)
	case *uint:
		v, err := asUint(h, math.MaxUint, "uint")
		if err != nil {
			return zero, err
		}
		*out = uint(v)

	case *float64:
		v, err := asFloat(h)
		if err != nil {
			return zero, err
		}
		*out = v
	case *float32:
		v, err := asFloat(h)
		if err != nil {
			return zero, err
		}
		*out = float32(v)

	case *string:
		v, ok := host.AsStr(h.Ref())
		if !ok {
			return zero, typeMismatch(host, h, "str")
		}
		if !utf8.ValidString(v) {
			err := errors.InvalidUTF8(errors.PhaseConvert, nil, []byte(v))
			exc.Raise(host, exc.ValueError, err.Detail)
			return zero, err
		}
		*out = v

	case *[]byte:
		v, ok := host.AsBytes(h.Ref())
		if !ok {
			return zero, typeMismatch(host, h, "bytes")
		}
		buf := make([]byte, len(v))
		copy(buf, v)
		*out = buf

	case *object.Handle:
		*out = h.NewRef()

	default:
		err := errors.Unsupported(errors.PhaseConvert,
			fmt.Sprintf("no conversion to Go type %T", zero))
		exc.Raise(host, exc.TypeError, err.Detail)
		return zero, err
	}
	return zero, nil
}

func typeMismatch(host ffi.Host, h object.Handle, want string) error {
	err := errors.TypeMismatch(errors.PhaseConvert, nil, want, h.TypeName())
	exc.Raisef(host, exc.TypeError, "expected %s, got %s", want, h.TypeName())
	return err
}

func asInt(h object.Handle, min, max int64, goType string) (int64, error) {
	host := h.Host()
	if host.TypeOf(h.Ref()) != ffi.TagInt {
		return 0, typeMismatch(host, h, "int")
	}
	v, ok := host.AsInt(h.Ref())
	if !ok || v < min || v > max {
		err := errors.Overflow(errors.PhaseConvert, nil, nil, goType)
		exc.Raisef(host, exc.OverflowError, "value does not fit %s", goType)
		return 0, err
	}
	return v, nil
}

func asUint(h object.Handle, max uint64, goType string) (uint64, error) {
	host := h.Host()
	if host.TypeOf(h.Ref()) != ffi.TagInt {
		return 0, typeMismatch(host, h, "int")
	}
	v, ok := host.AsUint(h.Ref())
	if !ok || v > max {
		err := errors.Overflow(errors.PhaseConvert, nil, nil, goType)
		exc.Raisef(host, exc.OverflowError, "value does not fit %s", goType)
		return 0, err
	}
	return v, nil
}

// asFloat accepts float objects and promotes integers, matching the
// host's own numeric coercion for float parameters.
func asFloat(h object.Handle) (float64, error) {
	host := h.Host()
	switch host.TypeOf(h.Ref()) {
	case ffi.TagFloat:
		v, _ := host.AsFloat(h.Ref())
		return v, nil
	case ffi.TagInt:
		v, ok := host.AsInt(h.Ref())
		if !ok {
			err := errors.Overflow(errors.PhaseConvert, nil, nil, "float64")
			exc.Raise(host, exc.OverflowError, "int too large for float64")
			return 0, err
		}
		return float64(v), nil
	}
	return 0, typeMismatch(host, h, "float")
}

// From converts a native Go value to an owned handle. Supported:
// nil (→ none), bool, the integer and float types, string (UTF-8
// validated), []byte, object.Handle (shared), []any and
// map[string]any (recursive).
//
// On failure the pending exception state is set and an invalid handle
// is returned with the error.
func From(host ffi.Host, v any) (object.Handle, error) {
	switch x := v.(type) {
	case nil:
		return object.None(host), nil
	case bool:
		return object.Borrowed(host, host.Bool(x)), nil
	case int:
		return object.Adopt(host, host.NewInt(int64(x))), nil
	case int8:
		return object.Adopt(host, host.NewInt(int64(x))), nil
	case int16:
		return object.Adopt(host, host.NewInt(int64(x))), nil
	case int32:
		return object.Adopt(host, host.NewInt(int64(x))), nil
	case int64:
		return object.Adopt(host, host.NewInt(x)), nil
	case uint8:
		return object.Adopt(host, host.NewUint(uint64(x))), nil
	case uint16:
		return object.Adopt(host, host.NewUint(uint64(x))), nil
	case uint32:
		return object.Adopt(host, host.NewUint(uint64(x))), nil
	case uint64:
		return object.Adopt(host, host.NewUint(x)), nil
	case uint:
		return object.Adopt(host, host.NewUint(uint64(x))), nil
	case float32:
		return object.Adopt(host, host.NewFloat(float64(x))), nil
	case float64:
		return object.Adopt(host, host.NewFloat(x)), nil
	case string:
		if !utf8.ValidString(x) {
			err := errors.InvalidUTF8(errors.PhaseConvert, nil, []byte(x))
			exc.Raise(host, exc.ValueError, err.Detail)
			return object.Handle{}, err
		}
		return object.Adopt(host, host.NewStr(x)), nil
	case []byte:
		return object.Adopt(host, host.NewBytes(x)), nil
	case object.Handle:
		if !x.Valid() {
			return object.None(host), nil
		}
		return x.NewRef(), nil
	case []any:
		return fromSlice(host, x)
	case map[string]any:
		return fromMap(host, x)
	}

	err := errors.Unsupported(errors.PhaseConvert,
		fmt.Sprintf("no conversion from Go type %T", v))
	exc.Raise(host, exc.TypeError, err.Detail)
	return object.Handle{}, err
}

func fromSlice(host ffi.Host, items []any) (object.Handle, error) {
	list := object.NewList(host, len(items))
	for _, it := range items {
		elem, err := From(host, it)
		if err != nil {
			list.Release()
			return object.Handle{}, err
		}
		appErr := list.Append(elem)
		elem.Release()
		if appErr != nil {
			list.Release()
			return object.Handle{}, appErr
		}
	}
	return list.Handle, nil
}

func fromMap(host ffi.Host, m map[string]any) (object.Handle, error) {
	dict := object.NewDict(host)
	for k, v := range m {
		elem, err := From(host, v)
		if err != nil {
			dict.Release()
			return object.Handle{}, err
		}
		setErr := dict.SetStr(k, elem)
		elem.Release()
		if setErr != nil {
			dict.Release()
			return object.Handle{}, setErr
		}
	}
	return dict.Handle, nil
}

func raiseConvert(host ffi.Host, err *errors.Error, kind exc.Kind) error {
	if host != nil {
		exc.Raise(host, kind, err.Detail)
	}
	return err
}
