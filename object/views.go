package object

import (
	"github.com/extbind/extbind/errors"
	"github.com/extbind/extbind/exc"
	"github.com/extbind/extbind/ffi"
)

// viewCheck asserts a type tag, raising TypeError on mismatch.
func viewCheck(h Handle, want ffi.TypeTag) error {
	if !h.Valid() {
		return exc.Raise(h.host, exc.InternalError, "view over invalid handle")
	}
	if got := h.host.TypeOf(h.ref); got != want {
		exc.Raisef(h.host, exc.TypeError, "expected %s, got %s", want, got)
		return errors.TypeMismatch(errors.PhaseHost, nil, "", got.String())
	}
	return nil
}

// Bytes is a view over a host bytes object.
type Bytes struct {
	Handle
}

// AsBytes asserts the bytes tag. The view shares the handle's ownership
// state; it does not add a reference.
func AsBytes(h Handle) (Bytes, error) {
	if err := viewCheck(h, ffi.TagBytes); err != nil {
		return Bytes{}, err
	}
	return Bytes{h}, nil
}

// NewBytes creates an owned bytes object copying data.
func NewBytes(host ffi.Host, data []byte) Bytes {
	return Bytes{Adopt(host, host.NewBytes(data))}
}

// Len returns the byte length.
func (b Bytes) Len() int {
	data, _ := b.host.AsBytes(b.ref)
	return len(data)
}

// Data exposes the host's internal storage without copying. Valid only
// while the object is alive; treat as read-only.
func (b Bytes) Data() []byte {
	data, _ := b.host.AsBytes(b.ref)
	return data
}

// Slice returns the [start, end) subrange of the internal storage,
// raising IndexError for an invalid range.
func (b Bytes) Slice(start, end int) ([]byte, error) {
	data, _ := b.host.AsBytes(b.ref)
	if start < 0 || end < start || end > len(data) {
		return nil, exc.Raise(b.host, exc.IndexError, "slice out of bounds")
	}
	return data[start:end], nil
}

// List is a view over a host list object.
type List struct {
	Handle
}

// AsList asserts the list tag.
func AsList(h Handle) (List, error) {
	if err := viewCheck(h, ffi.TagList); err != nil {
		return List{}, err
	}
	return List{h}, nil
}

// NewList creates an owned empty list.
func NewList(host ffi.Host, capHint int) List {
	return List{Adopt(host, host.NewList(capHint))}
}

// Len returns the number of items.
func (l List) Len() int {
	return l.host.ListLen(l.ref)
}

// Get returns the item at i as a borrowed handle; IndexError when out
// of range.
func (l List) Get(i int) (Handle, error) {
	ref, ok := l.host.ListGet(l.ref, i)
	if !ok {
		return Handle{}, exc.Raisef(l.host, exc.IndexError, "list index %d out of range", i)
	}
	return Borrowed(l.host, ref), nil
}

// Set replaces the item at i. The list takes its own reference; the
// caller keeps ownership of v.
func (l List) Set(i int, v Handle) error {
	if !l.host.ListSet(l.ref, i, v.Ref()) {
		return exc.Raisef(l.host, exc.IndexError, "list assignment index %d out of range", i)
	}
	return nil
}

// Append appends v; the list takes its own reference.
func (l List) Append(v Handle) error {
	if !l.host.ListAppend(l.ref, v.Ref()) {
		return exc.Raise(l.host, exc.InternalError, "append on dead list")
	}
	return nil
}

// Dict is a view over a host mapping object.
type Dict struct {
	Handle
}

// AsDict asserts the dict tag.
func AsDict(h Handle) (Dict, error) {
	if err := viewCheck(h, ffi.TagDict); err != nil {
		return Dict{}, err
	}
	return Dict{h}, nil
}

// NewDict creates an owned empty dict.
func NewDict(host ffi.Host) Dict {
	return Dict{Adopt(host, host.NewDict())}
}

// Len returns the number of entries.
func (d Dict) Len() int {
	return d.host.DictLen(d.ref)
}

// Get returns the borrowed value for key, or ok=false when absent.
// Absence is not an error; unhashable keys raise TypeError.
func (d Dict) Get(key Handle) (Handle, bool, error) {
	ref, ok := d.host.DictGet(d.ref, key.Ref())
	if !ok {
		switch d.host.TypeOf(key.Ref()) {
		case ffi.TagNone, ffi.TagBool, ffi.TagInt, ffi.TagStr, ffi.TagBytes:
			return Handle{}, false, nil
		default:
			return Handle{}, false, exc.Raisef(d.host, exc.TypeError,
				"unhashable type: '%s'", key.TypeName())
		}
	}
	return Borrowed(d.host, ref), true, nil
}

// GetStr is Get with a Go string key.
func (d Dict) GetStr(key string) (Handle, bool) {
	k := Adopt(d.host, d.host.NewStr(key))
	defer k.Release()
	ref, ok := d.host.DictGet(d.ref, k.Ref())
	if !ok {
		return Handle{}, false
	}
	return Borrowed(d.host, ref), true
}

// Set stores key → v; the dict takes its own references to both.
func (d Dict) Set(key, v Handle) error {
	if !d.host.DictSet(d.ref, key.Ref(), v.Ref()) {
		return exc.Raisef(d.host, exc.TypeError, "unhashable type: '%s'", key.TypeName())
	}
	return nil
}

// SetStr is Set with a Go string key.
func (d Dict) SetStr(key string, v Handle) error {
	k := Adopt(d.host, d.host.NewStr(key))
	defer k.Release()
	return d.Set(k, v)
}

// Iter starts a single-pass cursor over the entries. A fresh iterator
// must be obtained for every pass.
func (d Dict) Iter() *DictIterator {
	return &DictIterator{dict: d}
}

// DictIterator yields borrowed (key, value) pairs in insertion order.
// Single-pass: once Next returns false the iterator is exhausted for
// good.
type DictIterator struct {
	dict Dict
	pos  int
	done bool
}

// Next advances the cursor. The yielded handles are borrowed from the
// dict and must not outlive it.
func (it *DictIterator) Next() (key, value Handle, ok bool) {
	if it.done {
		return Handle{}, Handle{}, false
	}
	k, v, ok := it.dict.host.DictNext(it.dict.ref, &it.pos)
	if !ok {
		it.done = true
		return Handle{}, Handle{}, false
	}
	return Borrowed(it.dict.host, k), Borrowed(it.dict.host, v), true
}

// Tuple is a view over a host fixed-size tuple object.
type Tuple struct {
	Handle
}

// AsTuple asserts the tuple tag.
func AsTuple(h Handle) (Tuple, error) {
	if err := viewCheck(h, ffi.TagTuple); err != nil {
		return Tuple{}, err
	}
	return Tuple{h}, nil
}

// NewTuple creates an owned tuple; the tuple takes its own references
// to the items, the caller keeps ownership of what it passed.
func NewTuple(host ffi.Host, items ...Handle) Tuple {
	refs := make([]ffi.Ref, len(items))
	for i, it := range items {
		refs[i] = it.Ref()
	}
	return Tuple{Adopt(host, host.NewTuple(refs...))}
}

// Len returns the tuple length.
func (t Tuple) Len() int {
	return t.host.TupleLen(t.ref)
}

// Get returns the item at i as a borrowed handle; IndexError when out
// of range.
func (t Tuple) Get(i int) (Handle, error) {
	ref, ok := t.host.TupleGet(t.ref, i)
	if !ok {
		return Handle{}, exc.Raisef(t.host, exc.IndexError, "tuple index %d out of range", i)
	}
	return Borrowed(t.host, ref), nil
}
