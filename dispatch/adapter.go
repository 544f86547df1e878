package dispatch

import (
	stderrors "errors"

	"go.uber.org/zap"

	"github.com/extbind/extbind/convert"
	"github.com/extbind/extbind/errors"
	"github.com/extbind/extbind/exc"
	"github.com/extbind/extbind/ffi"
	"github.com/extbind/extbind/object"
)

// Adapter turns a method descriptor into a host-callable function. It
// binds positional and keyword arguments to declared parameters,
// decodes them through the parameter schema, invokes the native
// implementation and encodes the result. Every failure path leaves the
// host with a pending exception and yields the nil reference; panics
// in native code are caught and surfaced as RuntimeError.
type Adapter struct {
	host  ffi.Host
	desc  *MethodDescriptor
	types []convert.Type
	index map[string]int
	min   int
}

// NewAdapter validates the descriptor and prepares the binding tables.
func NewAdapter(host ffi.Host, desc *MethodDescriptor) (*Adapter, error) {
	if host == nil {
		return nil, errors.InvalidInput(errors.PhaseRegister, "nil host")
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	a := &Adapter{
		host:  host,
		desc:  desc,
		types: make([]convert.Type, len(desc.Params)),
		index: make(map[string]int, len(desc.Params)),
		min:   desc.minArity(),
	}
	for i, p := range desc.Params {
		t := p.Type
		if p.Optional {
			t = convert.OptionalOf(t)
		}
		a.types[i] = t
		a.index[p.Name] = i
	}
	return a, nil
}

// Raw returns the function to register with the host.
func (a *Adapter) Raw() ffi.NativeFunc { return a.invoke }

func (a *Adapter) invoke(args, kwargs ffi.Ref) ffi.Ref {
	host := a.host
	desc := a.desc

	total := host.TupleLen(args)
	offset := 0
	recv := object.Handle{}
	if desc.BoundReceiver {
		if total == 0 {
			exc.Raise(host, exc.TypeError,
				desc.Name+"() called without a receiver")
			return ffi.NilRef
		}
		self, _ := host.TupleGet(args, 0)
		recv = object.Borrowed(host, self)
		offset = 1
	}

	nparams := len(desc.Params)
	npos := total - offset
	if npos > nparams {
		e := errors.Arity(desc.Name, a.min, nparams, npos)
		exc.Raise(host, exc.TypeError, e.Detail)
		return ffi.NilRef
	}

	slots := make([]ffi.Ref, nparams)
	filled := make([]bool, nparams)
	for i := 0; i < npos; i++ {
		slots[i], _ = host.TupleGet(args, offset+i)
		filled[i] = true
	}

	kwCount := 0
	if kwargs != ffi.NilRef {
		pos := 0
		for {
			k, v, ok := host.DictNext(kwargs, &pos)
			if !ok {
				break
			}
			name, strOK := host.AsStr(k)
			if !strOK {
				exc.Raise(host, exc.TypeError, "keywords must be strings")
				return ffi.NilRef
			}
			idx, known := a.index[name]
			if !known {
				e := errors.UnknownKeyword(desc.Name, name)
				exc.Raise(host, exc.TypeError, e.Detail)
				return ffi.NilRef
			}
			if filled[idx] {
				e := errors.DuplicateBinding(desc.Name, name)
				exc.Raise(host, exc.TypeError, e.Detail)
				return ffi.NilRef
			}
			slots[idx] = v
			filled[idx] = true
			kwCount++
		}
	}

	for i, p := range desc.Params {
		if filled[i] || p.Optional {
			continue
		}
		// No keywords at all reads as a plain arity mistake; with
		// keywords present, name the parameter that is missing.
		var e *errors.Error
		if kwCount == 0 {
			e = errors.Arity(desc.Name, a.min, nparams, npos)
		} else {
			e = errors.MissingArgument(desc.Name, p.Name)
		}
		exc.Raise(host, exc.TypeError, e.Detail)
		return ffi.NilRef
	}

	decoded := make([]any, nparams)
	for i := range desc.Params {
		if !filled[i] {
			continue
		}
		v, err := a.types[i].FromHost(host, slots[i])
		if err != nil {
			return ffi.NilRef
		}
		decoded[i] = v
	}

	res, err := a.call(&Call{host: host, recv: recv, args: decoded})
	if err != nil {
		a.raiseError(err)
		return ffi.NilRef
	}
	return a.encodeResult(res)
}

func (a *Adapter) call(c *Call) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			Logger().Error("panic in native function",
				zap.String("function", a.desc.Name),
				zap.Any("panic", r))
			err = exc.Raisef(a.host, exc.RuntimeError,
				"panic in %s(): %v", a.desc.Name, r)
		}
	}()
	return a.desc.Fn(c)
}

// raiseError translates a Go error from the native implementation into
// pending exception state. An exception already raised during the call
// wins; an explicit *exc.Raised is re-raised as-is; otherwise the
// descriptor's error mapping applies, falling back to RuntimeError.
func (a *Adapter) raiseError(err error) {
	if exc.IsPending(a.host) {
		return
	}
	var raised *exc.Raised
	if stderrors.As(err, &raised) {
		exc.Raise(a.host, raised.Kind, raised.Message)
		return
	}
	if a.desc.Errors != nil {
		a.desc.Errors.Raise(a.host, err)
		return
	}
	exc.Raise(a.host, exc.RuntimeError, err.Error())
}

// encodeResult converts the native return value into an owned host
// reference. A returned handle transfers ownership when owned and is
// retained when borrowed; an invalid handle and a nil value both
// encode as none.
func (a *Adapter) encodeResult(res any) ffi.Ref {
	if h, ok := res.(object.Handle); ok {
		if !h.Valid() {
			return a.host.None()
		}
		if h.Owned() {
			return h.Ref()
		}
		nr := h.NewRef()
		return nr.Ref()
	}
	out, err := convert.From(a.host, res)
	if err != nil {
		return ffi.NilRef
	}
	return out.Ref()
}
