package rt

// FatalFunc is invoked for unrecoverable runtime errors. It must not
// return; the default hook panics with the error.
type FatalFunc func(*RTError)

// Context is the per-thread runtime context: the heap, tracing, the
// effect-yield flag, and the fatal-error path. Forcing is synchronous and
// single-threaded within one context.
type Context struct {
	Heap *Heap

	yielding bool
	fatal    FatalFunc
	eb       errorBuilder
}

// NewContext creates a context with a fresh heap.
func NewContext() *Context {
	ctx := &Context{Heap: &Heap{}}
	ctx.eb.ctx = ctx
	return ctx
}

// SetFatalHook overrides the fatal-error path. The hook must not return;
// tests install a hook that counts invocations and panics with the error.
func (ctx *Context) SetFatalHook(hook FatalFunc) {
	ctx.fatal = hook
}

// Yielding reports whether the effect subsystem requested a suspension
// during the last evaluator call.
func (ctx *Context) Yielding() bool {
	return ctx.yielding
}

// SetYielding sets the effect-yield flag. Only the effect subsystem (or a
// test standing in for it) writes this.
func (ctx *Context) SetYielding(y bool) {
	ctx.yielding = y
}

// Fatal reports an unrecoverable error. It never returns.
func (ctx *Context) Fatal(code PanicCode, msg string) {
	err := ctx.eb.makeError(code, msg)
	if ctx.fatal != nil {
		ctx.fatal(err)
	}
	panic(err)
}
