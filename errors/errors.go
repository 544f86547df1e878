package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in the binding pipeline the error occurred
type Phase string

const (
	PhaseRegister Phase = "register" // descriptor validation and module/type construction
	PhaseConvert  Phase = "convert"  // marshaling between native values and host objects
	PhaseBind     Phase = "bind"     // positional/keyword argument binding
	PhaseDispatch Phase = "dispatch" // adapter invocation and result handling
	PhaseRuntime  Phase = "runtime"  // native function execution
	PhaseHost     Phase = "host"     // raw host protocol operations
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch     Kind = "type_mismatch"
	KindOverflow         Kind = "overflow"
	KindInvalidUTF8      Kind = "invalid_utf8"
	KindArity            Kind = "arity"
	KindMissingArgument  Kind = "missing_argument"
	KindUnknownKeyword   Kind = "unknown_keyword"
	KindDuplicateBinding Kind = "duplicate_binding"
	KindAllocation       Kind = "allocation"
	KindNotFound         Kind = "not_found"
	KindInvalidInput     Kind = "invalid_input"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindUnsupported      Kind = "unsupported"
	KindRegistration     Kind = "registration"
	KindContract         Kind = "contract" // failure signaled without pending exception
	KindClosed           Kind = "closed"
)

// Error is the structured error type used throughout the binding layer
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	HostType string
	Detail   string
	Path     []string
}

// Error renders "[phase] kind at path: types - detail (caused by: ...)"
// with the optional pieces omitted when unset.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Phase, e.Kind)
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " at %s", strings.Join(e.Path, "."))
	}
	switch types := e.typeContext(); {
	case types != "" && e.Detail != "":
		fmt.Fprintf(&b, ": %s - %s", types, e.Detail)
	case types != "":
		fmt.Fprintf(&b, ": %s", types)
	case e.Detail != "":
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, " (caused by: %s)", e.Cause)
	}
	return b.String()
}

func (e *Error) typeContext() string {
	switch {
	case e.GoType != "" && e.HostType != "":
		return "Go type " + e.GoType + ", host type " + e.HostType
	case e.GoType != "":
		return "Go type " + e.GoType
	case e.HostType != "":
		return "host type " + e.HostType
	}
	return ""
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the value path (parameter name, container index)
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// HostType sets the host type name
func (b *Builder) HostType(t string) *Builder {
	b.err.HostType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, hostType string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTypeMismatch,
		Path:     path,
		GoType:   goType,
		HostType: hostType,
	}
}

// Overflow creates a numeric overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		GoType: targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// Arity creates an argument count error. The detail mirrors the host's
// own calling-convention message so callers see familiar diagnostics.
func Arity(fn string, min, max, got int) *Error {
	detail := fmt.Sprintf("%s() expected %d arguments (%d given)", fn, max, got)
	if min != max {
		detail = fmt.Sprintf("%s() expected %d to %d arguments (%d given)", fn, min, max, got)
	}
	return &Error{
		Phase:  PhaseBind,
		Kind:   KindArity,
		Detail: detail,
		Value:  got,
	}
}

// MissingArgument creates a missing required argument error
func MissingArgument(fn, param string) *Error {
	return &Error{
		Phase:  PhaseBind,
		Kind:   KindMissingArgument,
		Path:   []string{param},
		Detail: fmt.Sprintf("%s() missing required argument: '%s'", fn, param),
	}
}

// UnknownKeyword creates an unexpected keyword argument error
func UnknownKeyword(fn, keyword string) *Error {
	return &Error{
		Phase:  PhaseBind,
		Kind:   KindUnknownKeyword,
		Path:   []string{keyword},
		Detail: fmt.Sprintf("%s() got an unexpected keyword argument '%s'", fn, keyword),
	}
}

// DuplicateBinding creates a positional/keyword conflict error
func DuplicateBinding(fn, param string) *Error {
	return &Error{
		Phase:  PhaseBind,
		Kind:   KindDuplicateBinding,
		Path:   []string{param},
		Detail: fmt.Sprintf("%s() got multiple values for argument '%s'", fn, param),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %s", what),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Registration creates a registration error
func Registration(module, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s.%s", module, name),
		Cause:  cause,
	}
}

// Contract creates an internal contract violation error. It is the
// defensive fallback for callees that signal failure without leaving
// the host's pending exception state set.
func Contract(detail string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindContract,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
