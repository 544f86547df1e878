package exc

import (
	goerrors "errors"

	"github.com/extbind/extbind/ffi"
)

// Entry translates one native error value into a host exception.
type Entry struct {
	Err     error
	Kind    Kind
	Message string
}

// Mapping is an ordered list of error translations. Order is
// significant: the first entry whose Err matches wins, even when later
// entries would also match. Matching uses errors.Is, so wrapped errors
// and sentinel values both work.
type Mapping []Entry

// Raise translates err and sets host pending state. An error that
// matches no entry raises InternalError carrying the error text, never
// a silent success.
func (m Mapping) Raise(h ffi.Host, err error) error {
	for _, e := range m {
		if goerrors.Is(err, e.Err) {
			msg := e.Message
			if msg == "" {
				msg = err.Error()
			}
			return Raise(h, e.Kind, msg)
		}
	}
	return Raise(h, InternalError, "unmapped error: "+err.Error())
}
