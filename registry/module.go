package registry

import (
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/extbind/extbind/convert"
	"github.com/extbind/extbind/dispatch"
	"github.com/extbind/extbind/errors"
	"github.com/extbind/extbind/exc"
	"github.com/extbind/extbind/ffi"
	"github.com/extbind/extbind/object"
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

// Attr declares a module-level constant. Value may be any type
// convert.From accepts.
type Attr struct {
	Name  string `validate:"required"`
	Value any
}

// ModuleDescriptor declares a native module: its functions, classes
// and constants. Create builds the live module object on a host.
type ModuleDescriptor struct {
	Name    string `validate:"required"`
	Doc     string
	Methods []*dispatch.MethodDescriptor
	Classes []*ClassDescriptor
	Attrs   []Attr
}

// NewModule starts an empty module descriptor.
func NewModule(name, doc string) *ModuleDescriptor {
	return &ModuleDescriptor{Name: name, Doc: doc}
}

// AddMethod appends a module-level function.
func (m *ModuleDescriptor) AddMethod(d *dispatch.MethodDescriptor) *ModuleDescriptor {
	m.Methods = append(m.Methods, d)
	return m
}

// AddClass appends a class.
func (m *ModuleDescriptor) AddClass(c *ClassDescriptor) *ModuleDescriptor {
	m.Classes = append(m.Classes, c)
	return m
}

// AddAttr appends a module constant.
func (m *ModuleDescriptor) AddAttr(name string, value any) *ModuleDescriptor {
	m.Attrs = append(m.Attrs, Attr{Name: name, Value: value})
	return m
}

// ExportName returns the entry-point symbol the host loader looks up
// for this module.
func (m *ModuleDescriptor) ExportName() string {
	return "PyInit_" + m.Name
}

// Validate checks the descriptor tree and name uniqueness.
func (m *ModuleDescriptor) Validate() error {
	if err := getValidator().Struct(m); err != nil {
		return errors.Wrap(errors.PhaseRegister, errors.KindRegistration, err, "invalid module descriptor")
	}
	seen := make(map[string]struct{})
	claim := func(name string) error {
		if _, dup := seen[name]; dup {
			return errors.New(errors.PhaseRegister, errors.KindRegistration).
				Detail("%s: duplicate member %q", m.Name, name).Build()
		}
		seen[name] = struct{}{}
		return nil
	}
	for _, d := range m.Methods {
		if err := d.Validate(); err != nil {
			return errors.Registration(m.Name, d.Name, err)
		}
		if err := claim(d.Name); err != nil {
			return err
		}
	}
	for _, c := range m.Classes {
		if err := c.Validate(); err != nil {
			return err
		}
		if err := claim(c.Name); err != nil {
			return err
		}
	}
	for _, a := range m.Attrs {
		if a.Name == "" {
			return errors.New(errors.PhaseRegister, errors.KindRegistration).
				Detail("%s: attribute with empty name", m.Name).Build()
		}
		if err := claim(a.Name); err != nil {
			return err
		}
	}
	return nil
}

// Create builds the module object on host. The returned handle is
// owned by the caller. On failure the host's pending exception state
// is set and an invalid handle is returned with the error.
func (m *ModuleDescriptor) Create(host ffi.Host) (object.Handle, error) {
	if err := m.Validate(); err != nil {
		exc.Raise(host, exc.InternalError, err.Error())
		return object.Handle{}, err
	}

	mod := object.Adopt(host, host.NewModule(m.Name, m.Doc))
	fail := func(err error) (object.Handle, error) {
		mod.Release()
		if !exc.IsPending(host) {
			exc.Raise(host, exc.InternalError, err.Error())
		}
		return object.Handle{}, err
	}

	for _, d := range m.Methods {
		ad, err := dispatch.NewAdapter(host, d)
		if err != nil {
			return fail(errors.Registration(m.Name, d.Name, err))
		}
		fn := host.NewFunction(d.Name, d.Doc, ad.Raw())
		ok := host.SetAttr(mod.Ref(), d.Name, fn)
		host.DecRef(fn)
		if !ok {
			return fail(errors.Registration(m.Name, d.Name, nil))
		}
	}

	for _, c := range m.Classes {
		spec, err := c.typeSpec(host)
		if err != nil {
			return fail(err)
		}
		typ := host.NewType(spec)
		ok := host.SetAttr(mod.Ref(), c.Name, typ)
		host.DecRef(typ)
		if !ok {
			return fail(errors.Registration(m.Name, c.Name, nil))
		}
	}

	for _, a := range m.Attrs {
		v, err := convert.From(host, a.Value)
		if err != nil {
			return fail(errors.Registration(m.Name, a.Name, err))
		}
		ok := host.SetAttr(mod.Ref(), a.Name, v.Ref())
		v.Release()
		if !ok {
			return fail(errors.Registration(m.Name, a.Name, nil))
		}
	}

	Logger().Debug("module created",
		zap.String("module", m.Name),
		zap.Int("methods", len(m.Methods)),
		zap.Int("classes", len(m.Classes)),
		zap.Int("attrs", len(m.Attrs)))
	return mod, nil
}
