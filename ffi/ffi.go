package ffi

// Ref is an opaque reference into the host's object graph.
// Ref 0 is reserved and always invalid.
type Ref uint64

// NilRef is the invalid reference. Primitives return NilRef to signal
// failure; by contract the host's pending exception state is already set
// when they do.
const NilRef Ref = 0

// TypeTag identifies the concrete host type of an object.
type TypeTag uint8

const (
	TagInvalid TypeTag = iota
	TagNone
	TagBool
	TagInt
	TagFloat
	TagStr
	TagBytes
	TagList
	TagDict
	TagTuple
	TagFunction
	TagType
	TagModule
	TagObject // instance of a registered class
)

// String returns the host-facing name of the tag.
func (t TypeTag) String() string {
	switch t {
	case TagNone:
		return "NoneType"
	case TagBool:
		return "bool"
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagStr:
		return "str"
	case TagBytes:
		return "bytes"
	case TagList:
		return "list"
	case TagDict:
		return "dict"
	case TagTuple:
		return "tuple"
	case TagFunction:
		return "function"
	case TagType:
		return "type"
	case TagModule:
		return "module"
	case TagObject:
		return "object"
	default:
		return "<invalid>"
	}
}

// NativeFunc is the raw calling convention for host-visible native
// functions. args is a tuple reference (never NilRef), kwargs a dict
// reference or NilRef. For bound methods the receiver is prepended to
// args by the host. A NilRef return signals failure; the callee must
// have set pending exception state first.
//
// The callee borrows args and kwargs. The returned reference is owned
// by the caller.
type NativeFunc func(args Ref, kwargs Ref) Ref

// MethodSpec describes one method wired into a host type's method table.
// By default lookup through an instance yields a bound method with the
// instance prepended to args. Static methods never receive a receiver;
// class methods receive the type object instead of the instance.
type MethodSpec struct {
	Name   string
	Doc    string
	Fn     NativeFunc
	Static bool
	Class  bool
}

// TypeSpec describes a host type created via Host.NewType. The lifecycle
// hooks receive the instance reference; they run with the host lock held
// and must not assume it is free.
type TypeSpec struct {
	Name    string
	Doc     string
	Methods []MethodSpec

	// Init runs after allocation when the type is called. It receives
	// the new instance prepended to the constructor arguments and must
	// return the host's none (or NilRef with pending state to abort
	// construction).
	Init NativeFunc

	// Call makes instances callable. The instance is prepended to args.
	Call NativeFunc

	// Traverse visits every reference held natively by the instance
	// (outside host-managed attribute slots). Required for cycle
	// collection of natively held edges; host-side attribute slots are
	// traversed automatically.
	Traverse func(self Ref, visit func(Ref))

	// Clear drops the natively held references found by Traverse,
	// breaking cycles during collection.
	Clear func(self Ref)

	// Finalize runs user finalization. Invoked at most once per
	// instance, before deallocation.
	Finalize func(self Ref)
}

// Host is the raw object protocol of the managed-object runtime.
//
// Every primitive is unchecked: no ownership discipline, no argument
// validation beyond what the signature forces. All safety is built by
// the layers above (object, convert, dispatch). Unless noted otherwise,
// returned references are borrowed and boolean results report tag or
// bounds mismatches without touching pending exception state.
//
// Callers hold the interpreter lock for every method except Lock,
// Unlock and AllowThreads themselves.
type Host interface {
	// Reference counting. IncRef and DecRef on NilRef or a dead
	// reference are no-ops.
	IncRef(Ref)
	DecRef(Ref)
	RefCount(Ref) int

	// Singletons. Returned references are borrowed (the singletons are
	// immortal).
	None() Ref
	Bool(bool) Ref

	// Scalar constructors. Returned references are owned by the caller.
	NewInt(int64) Ref
	NewUint(uint64) Ref
	NewFloat(float64) Ref
	NewStr(string) Ref
	NewBytes([]byte) Ref

	// Type inspection.
	TypeOf(Ref) TypeTag
	TypeName(Ref) string

	// Scalar accessors. ok is false on tag mismatch or, for the integer
	// accessors, when the stored value does not fit the result type.
	// AsBytes and AsStr expose the host's internal storage; the result
	// is valid only while the object is alive.
	AsInt(Ref) (int64, bool)
	AsUint(Ref) (uint64, bool)
	AsFloat(Ref) (float64, bool)
	AsBool(Ref) (bool, bool)
	AsStr(Ref) (string, bool)
	AsBytes(Ref) ([]byte, bool)

	// List protocol. NewList returns an owned reference. ListGet
	// returns a borrowed item. ListSet and ListAppend retain their own
	// reference to v (the caller keeps ownership of what it passed).
	NewList(capHint int) Ref
	ListLen(Ref) int
	ListGet(list Ref, i int) (Ref, bool)
	ListSet(list Ref, i int, v Ref) bool
	ListAppend(list Ref, v Ref) bool

	// Dict protocol. Keys must be hashable (none, bool, int, str,
	// bytes); DictSet reports false for unhashable keys. DictGet
	// returns a borrowed value. DictNext is a single-pass cursor in
	// insertion order: start with pos = 0, stop when ok is false; the
	// yielded pair is borrowed.
	NewDict() Ref
	DictLen(Ref) int
	DictGet(dict, key Ref) (Ref, bool)
	DictSet(dict, key, v Ref) bool
	DictNext(dict Ref, pos *int) (key, value Ref, ok bool)

	// Tuple protocol. NewTuple retains its own references to the items
	// and returns an owned tuple. TupleGet returns a borrowed item.
	NewTuple(items ...Ref) Ref
	TupleLen(Ref) int
	TupleGet(tuple Ref, i int) (Ref, bool)

	// Attribute access and calls. These are the primitives that raise:
	// a NilRef or false result means pending exception state is set.
	// GetAttr and Call return owned references.
	GetAttr(obj Ref, name string) Ref
	SetAttr(obj Ref, name string, v Ref) bool
	Call(callable, args, kwargs Ref) Ref

	// Construction of callables, types and modules. Returned references
	// are owned by the caller.
	NewFunction(name, doc string, fn NativeFunc) Ref
	NewType(spec *TypeSpec) Ref
	NewModule(name, doc string) Ref

	// Native state attached to class instances. Invisible to the host's
	// attribute protocol; edges held in native state must be reported by
	// the type's Traverse hook.
	Native(Ref) any
	SetNative(Ref, any)

	// Pending exception state. Host-global: at most one exception is
	// pending at a time; SetPending replaces any previous one.
	SetPending(kind, msg string)
	Pending() (kind, msg string, ok bool)
	ClearPending()

	// Interpreter lock. Exactly one thread executes host-visible code
	// at a time. AllowThreads releases the lock around f and reacquires
	// it afterward; f must not touch any reference.
	Lock()
	Unlock()
	AllowThreads(f func())

	// Collect runs the cycle collector and returns the number of
	// objects reclaimed.
	Collect() int
}
