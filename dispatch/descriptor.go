package dispatch

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/extbind/extbind/convert"
	"github.com/extbind/extbind/errors"
	"github.com/extbind/extbind/exc"
)

var (
	validatorInstance *validator.Validate
	validatorOnce     sync.Once
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInstance = validator.New(validator.WithRequiredStructEnabled())
	})
	return validatorInstance
}

// Func is the native implementation behind a bound method or module
// function. Arguments arrive decoded on the Call; the return value is
// converted back to a host object by the adapter. Returning an error
// raises the corresponding host exception.
type Func func(c *Call) (any, error)

// Param describes one declared parameter.
type Param struct {
	Name     string `validate:"required"`
	Type     convert.Type
	Optional bool
}

// MethodDescriptor declares a callable exposed to the host: its name,
// docstring, parameter schema and implementation. Optional parameters
// must trail required ones; an omitted optional, or an explicit none
// argument for one, is delivered as absent.
type MethodDescriptor struct {
	Name          string `validate:"required"`
	Doc           string
	Params        []Param
	BoundReceiver bool
	Fn            Func

	// Static marks a class method with no receiver: the declared
	// parameters bind from the first argument. ClassMethod binds the
	// type object as the receiver instead of the instance. Both are
	// ignored for module-level functions.
	Static      bool
	ClassMethod bool

	// Errors maps Go errors returned by Fn to host exception kinds.
	// First match wins; unmatched errors surface as SystemError.
	Errors exc.Mapping
}

// Validate checks the descriptor before it is bound to a host.
func (d *MethodDescriptor) Validate() error {
	if err := getValidator().Struct(d); err != nil {
		return errors.Wrap(errors.PhaseRegister, errors.KindRegistration, err, "invalid method descriptor")
	}
	if d.Fn == nil {
		return errors.New(errors.PhaseRegister, errors.KindRegistration).
			Detail("%s: Fn must not be nil", d.Name).Build()
	}
	if d.Static && d.ClassMethod {
		return errors.New(errors.PhaseRegister, errors.KindRegistration).
			Detail("%s: method cannot be both static and a classmethod", d.Name).Build()
	}
	seen := make(map[string]struct{}, len(d.Params))
	optionalSeen := false
	for i, p := range d.Params {
		if p.Name == "" {
			return errors.New(errors.PhaseRegister, errors.KindRegistration).
				Detail("%s: parameter %d has no name", d.Name, i).Build()
		}
		if p.Type == nil {
			return errors.New(errors.PhaseRegister, errors.KindRegistration).
				Detail("%s: parameter %q has no type", d.Name, p.Name).Build()
		}
		if _, dup := seen[p.Name]; dup {
			return errors.New(errors.PhaseRegister, errors.KindRegistration).
				Detail("%s: duplicate parameter %q", d.Name, p.Name).Build()
		}
		seen[p.Name] = struct{}{}
		if p.Optional {
			optionalSeen = true
		} else if optionalSeen {
			return errors.New(errors.PhaseRegister, errors.KindRegistration).
				Detail("%s: required parameter %q follows an optional one", d.Name, p.Name).Build()
		}
	}
	return nil
}

// minArity returns the number of required parameters.
func (d *MethodDescriptor) minArity() int {
	n := 0
	for _, p := range d.Params {
		if !p.Optional {
			n++
		}
	}
	return n
}
