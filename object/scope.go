package object

import (
	"github.com/extbind/extbind/ffi"
)

// Scope collects owned handles and guarantees their release on every
// exit path. It mirrors a finally/defer discipline for code that
// creates many intermediate handles:
//
//	s := object.NewScope()
//	defer s.Close()
//	v := s.Adopt(host, host.NewInt(42))
//	...
//
// Handles registered in a scope must not be released individually;
// results that escape the scope are simply never registered.
type Scope struct {
	handles []Handle
	closed  bool
}

// NewScope creates an empty scope.
func NewScope() *Scope {
	return &Scope{}
}

// Own registers an owned handle for release at Close and returns it.
func (s *Scope) Own(h Handle) Handle {
	if h.Valid() && h.Owned() {
		s.handles = append(s.handles, h)
	}
	return h
}

// Adopt takes over a raw owned reference and registers it.
func (s *Scope) Adopt(host ffi.Host, ref ffi.Ref) Handle {
	return s.Own(Adopt(host, ref))
}

// Share creates a new owning reference and registers it.
func (s *Scope) Share(host ffi.Host, ref ffi.Ref) Handle {
	return s.Own(Share(host, ref))
}

// Close releases every registered handle in reverse registration
// order. Safe to call more than once.
func (s *Scope) Close() {
	if s.closed {
		return
	}
	s.closed = true
	for i := len(s.handles) - 1; i >= 0; i-- {
		s.handles[i].Release()
	}
	s.handles = nil
}
