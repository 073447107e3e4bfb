package runtime

import (
	"go.uber.org/zap"

	"github.com/embjs/embjs"
	"github.com/embjs/embjs/engine"
	"github.com/embjs/embjs/errors"
)

// Context is one engine instance plus the host-side state needed to use
// it safely. A Context is confined to a single goroutine at a time;
// Values and Refs from one Context are meaningless on another.
type Context struct {
	vm     *engine.VM
	logger *zap.Logger
	closed bool
}

// Option configures a Context at creation.
type Option func(*config)

type config struct {
	logger    *zap.Logger
	seed      uint64
	interrupt embjs.InterruptHandler
	userData  any
}

// WithLogger installs a structured logger for binding and engine
// diagnostics. The default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithRandomSeed makes Math.random deterministic for reproducible runs.
func WithRandomSeed(seed uint64) Option {
	return func(c *config) { c.seed = seed }
}

// WithInterruptHandler installs the cooperative cancellation hook. The
// engine calls it periodically during evaluation; a nonzero return
// aborts the run with a pending "interrupted" exception.
func WithInterruptHandler(h embjs.InterruptHandler) Option {
	return func(c *config) { c.interrupt = h }
}

// WithUserData attaches an opaque value retrievable from the interrupt
// handler.
func WithUserData(ud any) Option {
	return func(c *config) { c.userData = ud }
}

// NewContext creates a context backed by a fixed arena of capacity
// bytes with the given standard library installed.
//
// Capacity must be at least std.MinCapacity. Violating that is a fatal
// precondition, not a recoverable error: the engine panics rather than
// corrupting its own tables. Callers own this check; NewContext only
// rejects capacities that are invalid on their face.
func NewContext(capacity int, std engine.Stdlib, opts ...Option) (*Context, error) {
	if capacity <= 0 {
		return nil, errors.InvalidInput(errors.PhaseContext, "capacity must be positive")
	}
	cfg := config{logger: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}

	eopts := []engine.Option{
		engine.WithLogger(cfg.logger),
		engine.WithRandomSeed(cfg.seed),
		engine.WithUserData(cfg.userData),
	}
	if cfg.interrupt != nil {
		eopts = append(eopts, engine.WithInterruptHandler(cfg.interrupt))
	}

	ctx := &Context{
		vm:     engine.New(capacity, std, eopts...),
		logger: cfg.logger,
	}
	ctx.logger.Debug("context created",
		zap.Int("capacity", capacity),
		zap.String("stdlib", std.Name))
	return ctx, nil
}

// Close releases the arena. Every Value and Ref derived from the
// context is invalid afterwards. A second Close reports KindClosed.
func (c *Context) Close() error {
	if c.closed {
		return errors.Closed(errors.PhaseContext, "context")
	}
	c.closed = true
	c.vm.Close()
	c.logger.Debug("context closed")
	return nil
}

// Closed reports whether Close has been called.
func (c *Context) Closed() bool { return c.closed }

// SetUserData replaces the opaque value handed to engine callbacks.
func (c *Context) SetUserData(ud any) { c.vm.SetUserData(ud) }

// UserData returns the opaque callback value.
func (c *Context) UserData() any { return c.vm.UserData() }

// SetInterruptHandler replaces the cooperative cancellation hook.
func (c *Context) SetInterruptHandler(h embjs.InterruptHandler) {
	c.vm.SetInterruptHandler(h)
}

// Global returns the global object. Like any ref-tagged value it goes
// stale across allocations; re-derive or pin it as usual.
func (c *Context) Global() engine.Value { return c.vm.Global() }

// GC forces a full collection cycle. Useful in tests and after large
// temporary object graphs are dropped.
func (c *Context) GC() { c.vm.GC() }

// Collections returns the number of collection cycles so far.
func (c *Context) Collections() int { return c.vm.Collections() }

// UsedWords returns the number of arena words currently allocated.
func (c *Context) UsedWords() int { return c.vm.UsedWords() }
