package dispatch

import (
	"fmt"

	"github.com/extbind/extbind/ffi"
	"github.com/extbind/extbind/object"
)

// Call carries the decoded arguments of one invocation. Index order
// follows the declared parameter order; an absent optional occupies
// its slot as nil. Typed accessors assume the declared schema: asking
// for a type the schema did not produce is a programming error and
// panics (the adapter converts such panics into a host RuntimeError).
type Call struct {
	host ffi.Host
	recv object.Handle
	args []any
}

// Host returns the host the call executes against.
func (c *Call) Host() ffi.Host { return c.host }

// Receiver returns the bound receiver as a borrowed handle. Invalid
// for module-level functions.
func (c *Call) Receiver() object.Handle { return c.recv }

// Len returns the number of declared parameters.
func (c *Call) Len() int { return len(c.args) }

// Has reports whether argument i was supplied. Optionals that were
// omitted, or passed as none, report false.
func (c *Call) Has(i int) bool { return c.args[i] != nil }

// Any returns the decoded argument as-is, nil when absent.
func (c *Call) Any(i int) any { return c.args[i] }

func (c *Call) Int(i int) int64 {
	v, ok := c.args[i].(int64)
	if !ok {
		panic(fmt.Sprintf("argument %d is not int (got %T)", i, c.args[i]))
	}
	return v
}

// OptInt returns argument i, or def when it is absent.
func (c *Call) OptInt(i int, def int64) int64 {
	if c.args[i] == nil {
		return def
	}
	return c.Int(i)
}

func (c *Call) Uint(i int) uint64 {
	v, ok := c.args[i].(uint64)
	if !ok {
		panic(fmt.Sprintf("argument %d is not uint (got %T)", i, c.args[i]))
	}
	return v
}

func (c *Call) Float(i int) float64 {
	v, ok := c.args[i].(float64)
	if !ok {
		panic(fmt.Sprintf("argument %d is not float (got %T)", i, c.args[i]))
	}
	return v
}

func (c *Call) OptFloat(i int, def float64) float64 {
	if c.args[i] == nil {
		return def
	}
	return c.Float(i)
}

func (c *Call) Bool(i int) bool {
	v, ok := c.args[i].(bool)
	if !ok {
		panic(fmt.Sprintf("argument %d is not bool (got %T)", i, c.args[i]))
	}
	return v
}

func (c *Call) Str(i int) string {
	v, ok := c.args[i].(string)
	if !ok {
		panic(fmt.Sprintf("argument %d is not str (got %T)", i, c.args[i]))
	}
	return v
}

func (c *Call) OptStr(i int, def string) string {
	if c.args[i] == nil {
		return def
	}
	return c.Str(i)
}

func (c *Call) Bytes(i int) []byte {
	v, ok := c.args[i].([]byte)
	if !ok {
		panic(fmt.Sprintf("argument %d is not bytes (got %T)", i, c.args[i]))
	}
	return v
}

// Handle returns argument i as a borrowed handle. Invalid when absent.
func (c *Call) Handle(i int) object.Handle {
	if c.args[i] == nil {
		return object.Handle{}
	}
	v, ok := c.args[i].(object.Handle)
	if !ok {
		panic(fmt.Sprintf("argument %d is not a handle (got %T)", i, c.args[i]))
	}
	return v
}

// List returns argument i decoded by a ListOf schema.
func (c *Call) List(i int) []any {
	v, ok := c.args[i].([]any)
	if !ok {
		panic(fmt.Sprintf("argument %d is not a list (got %T)", i, c.args[i]))
	}
	return v
}

// Map returns argument i decoded by a MapOf schema.
func (c *Call) Map(i int) map[string]any {
	v, ok := c.args[i].(map[string]any)
	if !ok {
		panic(fmt.Sprintf("argument %d is not a dict (got %T)", i, c.args[i]))
	}
	return v
}
