package object

import (
	"github.com/extbind/extbind/ffi"
)

// Handle wraps a host reference with an explicit ownership tag.
//
// An owned handle must be released exactly once on every path out of
// the scope that created it; Release is idempotent per Handle value via
// pointer receiver, but two copies of the same owned Handle are two
// obligations. A borrowed handle is never released and must not outlive
// the value it was borrowed from.
type Handle struct {
	host  ffi.Host
	ref   ffi.Ref
	owned bool
}

// Borrowed wraps ref as a non-owning view. No refcount change.
func Borrowed(host ffi.Host, ref ffi.Ref) Handle {
	return Handle{host: host, ref: ref}
}

// Adopt takes over an already-owned raw reference (a constructor or
// call result). No refcount change; the Handle now carries the release
// obligation.
func Adopt(host ffi.Host, ref ffi.Ref) Handle {
	if ref == ffi.NilRef {
		return Handle{}
	}
	return Handle{host: host, ref: ref, owned: true}
}

// Share creates an owning handle from a raw reference by incrementing
// its count. The source keeps its own obligation.
func Share(host ffi.Host, ref ffi.Ref) Handle {
	if ref == ffi.NilRef {
		return Handle{}
	}
	host.IncRef(ref)
	return Handle{host: host, ref: ref, owned: true}
}

// Valid reports whether the handle refers to anything. The zero Handle
// is the "absent" sentinel used for omitted optional arguments.
func (h Handle) Valid() bool { return h.ref != ffi.NilRef }

// Owned reports whether this handle carries a release obligation.
func (h Handle) Owned() bool { return h.owned }

// Ref exposes the raw reference for ffi-level calls.
func (h Handle) Ref() ffi.Ref { return h.ref }

// Host returns the host this handle belongs to.
func (h Handle) Host() ffi.Host { return h.host }

// Type returns the host type tag.
func (h Handle) Type() ffi.TypeTag {
	if !h.Valid() {
		return ffi.TagInvalid
	}
	return h.host.TypeOf(h.ref)
}

// TypeName returns the host-facing type name.
func (h Handle) TypeName() string {
	if !h.Valid() {
		return "<invalid>"
	}
	return h.host.TypeName(h.ref)
}

// IsNone reports whether the handle is the host's none singleton.
func (h Handle) IsNone() bool {
	return h.Valid() && h.host.TypeOf(h.ref) == ffi.TagNone
}

// NewRef returns a fresh owning handle to the same object.
func (h Handle) NewRef() Handle {
	if !h.Valid() {
		return Handle{}
	}
	return Share(h.host, h.ref)
}

// Release drops an owned handle's reference and invalidates the
// receiver. Releasing a borrowed or already-released handle is a no-op,
// so every exit path can release unconditionally.
func (h *Handle) Release() {
	if h.owned && h.ref != ffi.NilRef {
		h.host.DecRef(h.ref)
	}
	h.ref = ffi.NilRef
	h.owned = false
}

// None returns a borrowed handle to the host's none singleton.
func None(host ffi.Host) Handle {
	return Borrowed(host, host.None())
}
