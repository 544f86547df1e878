package pyhost

import (
	"strconv"

	"github.com/extbind/extbind/ffi"
)

// NewList creates an empty list. Owned.
func (r *Runtime) NewList(capHint int) ffi.Ref {
	if capHint < 0 {
		capHint = 0
	}
	return r.alloc(ffi.TagList, &payloadList{items: make([]ffi.Ref, 0, capHint)})
}

func (r *Runtime) listOf(ref ffi.Ref) *payloadList {
	o := r.obj(ref)
	if o == nil || o.tag != ffi.TagList {
		return nil
	}
	return o.payload.(*payloadList)
}

// ListLen returns the list length, or 0 for non-lists.
func (r *Runtime) ListLen(ref ffi.Ref) int {
	if p := r.listOf(ref); p != nil {
		return len(p.items)
	}
	return 0
}

// ListGet returns a borrowed item.
func (r *Runtime) ListGet(list ffi.Ref, i int) (ffi.Ref, bool) {
	p := r.listOf(list)
	if p == nil || i < 0 || i >= len(p.items) {
		return ffi.NilRef, false
	}
	return p.items[i], true
}

// ListSet replaces an item. The list retains its own reference to v and
// drops its reference to the replaced item.
func (r *Runtime) ListSet(list ffi.Ref, i int, v ffi.Ref) bool {
	p := r.listOf(list)
	if p == nil || i < 0 || i >= len(p.items) || r.obj(v) == nil {
		return false
	}
	old := p.items[i]
	r.IncRef(v)
	p.items[i] = v
	r.DecRef(old)
	return true
}

// ListAppend appends v; the list retains its own reference.
func (r *Runtime) ListAppend(list ffi.Ref, v ffi.Ref) bool {
	p := r.listOf(list)
	if p == nil || r.obj(v) == nil {
		return false
	}
	r.IncRef(v)
	p.items = append(p.items, v)
	return true
}

// NewDict creates an empty dict. Owned.
func (r *Runtime) NewDict() ffi.Ref {
	return r.alloc(ffi.TagDict, &payloadDict{index: make(map[string]int)})
}

func (r *Runtime) dictOf(ref ffi.Ref) *payloadDict {
	o := r.obj(ref)
	if o == nil || o.tag != ffi.TagDict {
		return nil
	}
	return o.payload.(*payloadDict)
}

// hashKey derives the lookup key for a hashable object. Only none,
// bool, int, str and bytes are hashable here.
func (r *Runtime) hashKey(key ffi.Ref) (string, bool) {
	o := r.obj(key)
	if o == nil {
		return "", false
	}
	switch o.tag {
	case ffi.TagNone:
		return "N", true
	case ffi.TagBool:
		if o.payload.(bool) {
			return "b1", true
		}
		return "b0", true
	case ffi.TagInt:
		p := o.payload.(payloadInt)
		s := strconv.FormatUint(p.mag, 16)
		if p.neg {
			return "i-" + s, true
		}
		return "i" + s, true
	case ffi.TagStr:
		return "s" + o.payload.(string), true
	case ffi.TagBytes:
		return "y" + string(o.payload.([]byte)), true
	}
	return "", false
}

// DictLen returns the number of entries, or 0 for non-dicts.
func (r *Runtime) DictLen(ref ffi.Ref) int {
	if p := r.dictOf(ref); p != nil {
		return len(p.keys)
	}
	return 0
}

// DictGet returns the borrowed value for key, or false when the key is
// absent, unhashable, or dict is not a dict.
func (r *Runtime) DictGet(dict, key ffi.Ref) (ffi.Ref, bool) {
	p := r.dictOf(dict)
	if p == nil {
		return ffi.NilRef, false
	}
	hk, ok := r.hashKey(key)
	if !ok {
		return ffi.NilRef, false
	}
	i, ok := p.index[hk]
	if !ok {
		return ffi.NilRef, false
	}
	return p.vals[i], true
}

// DictSet stores key → v, replacing an existing entry in place. The
// dict retains its own references to both. False for unhashable keys.
func (r *Runtime) DictSet(dict, key, v ffi.Ref) bool {
	p := r.dictOf(dict)
	if p == nil || r.obj(key) == nil || r.obj(v) == nil {
		return false
	}
	hk, ok := r.hashKey(key)
	if !ok {
		return false
	}
	if i, exists := p.index[hk]; exists {
		old := p.vals[i]
		r.IncRef(v)
		p.vals[i] = v
		r.DecRef(old)
		return true
	}
	r.IncRef(key)
	r.IncRef(v)
	p.index[hk] = len(p.keys)
	p.keys = append(p.keys, key)
	p.vals = append(p.vals, v)
	return true
}

// DictNext advances a single-pass cursor over entries in insertion
// order. The yielded pair is borrowed.
func (r *Runtime) DictNext(dict ffi.Ref, pos *int) (key, value ffi.Ref, ok bool) {
	p := r.dictOf(dict)
	if p == nil || pos == nil || *pos < 0 || *pos >= len(p.keys) {
		return ffi.NilRef, ffi.NilRef, false
	}
	i := *pos
	*pos = i + 1
	return p.keys[i], p.vals[i], true
}

// NewTuple creates a tuple retaining its own references to the items.
// Owned.
func (r *Runtime) NewTuple(items ...ffi.Ref) ffi.Ref {
	p := &payloadTuple{items: make([]ffi.Ref, 0, len(items))}
	for _, it := range items {
		if r.obj(it) == nil {
			it = r.none
		}
		r.IncRef(it)
		p.items = append(p.items, it)
	}
	return r.alloc(ffi.TagTuple, p)
}

func (r *Runtime) tupleOf(ref ffi.Ref) *payloadTuple {
	o := r.obj(ref)
	if o == nil || o.tag != ffi.TagTuple {
		return nil
	}
	return o.payload.(*payloadTuple)
}

// TupleLen returns the tuple length, or 0 for non-tuples.
func (r *Runtime) TupleLen(ref ffi.Ref) int {
	if p := r.tupleOf(ref); p != nil {
		return len(p.items)
	}
	return 0
}

// TupleGet returns a borrowed item.
func (r *Runtime) TupleGet(tuple ffi.Ref, i int) (ffi.Ref, bool) {
	p := r.tupleOf(tuple)
	if p == nil || i < 0 || i >= len(p.items) {
		return ffi.NilRef, false
	}
	return p.items[i], true
}
