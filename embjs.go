package embjs

// InterruptHandler is invoked periodically by the engine during
// long-running evaluation, with the VM's opaque user data. Returning a
// nonzero value aborts the current evaluation, which then surfaces as a
// pending "interrupted" exception. Handlers must only inspect state or
// request cancellation; evaluating more script from inside a handler is
// not supported.
type InterruptHandler func(userData any) int

// MaxScriptSize is the default cap applied when reading script files from
// disk. Callers feeding sources from other channels may ignore it.
const MaxScriptSize = 64 << 20
