package runtime

import "github.com/embjs/embjs/engine"

// Ref is a collector-tracked value cell. The collector rewrites the
// cell in place when the referenced object moves, so reading it through
// Get after an allocating call yields the current location.
type Ref = engine.Ref

// PushRef registers a new stack-discipline cell. It must be released
// with PopRef in strict LIFO order relative to other pushed cells.
func (c *Context) PushRef() *Ref { return c.vm.PushRef() }

// PopRef deregisters the most recently pushed cell and returns its
// final value.
func (c *Context) PopRef() engine.Value { return c.vm.PopRef() }

// AddRef registers a list-discipline cell that may be removed in any
// order with DeleteRef. Strictly more expensive than the stack form
// because it grows the collector's per-cycle scan set.
func (c *Context) AddRef() *Ref { return c.vm.AddRef() }

// DeleteRef deregisters a list-discipline cell.
func (c *Context) DeleteRef(r *Ref) { c.vm.DeleteRef(r) }

// RefDepth returns the current stack-discipline nesting depth.
func (c *Context) RefDepth() int { return c.vm.RefDepth() }

// WithPinned pins v for the duration of fn, making the LIFO discipline
// structurally hard to violate: the cell is pushed before fn runs and
// popped on every exit path, including panics. fn reads the possibly
// relocated value through the cell.
func (c *Context) WithPinned(v engine.Value, fn func(*Ref) error) error {
	r := c.PushRef()
	r.Set(v)
	defer c.PopRef()
	return fn(r)
}
