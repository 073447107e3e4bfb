// Package bridge injects the minimal host shims evaluated code relies
// on: console-style logging, buffered until an explicit flush point, and
// a read-only scriptArgs array of process arguments.
//
// Install runs once right after context creation:
//
//	ctx, _ := runtime.NewContext(1<<20, engine.StdBasic)
//	defer ctx.Close()
//	bridge.Install(ctx, os.Args[2:])
//
// Scripts then log normally; nothing reaches the host until Flush:
//
//	ctx.Eval(`console.log("Hello", "World")`, "hello.js", 0)
//	bridge.Flush(ctx, os.Stdout, os.Stderr)
//
// console.log and console.info buffer to the informational channel;
// console.warn, console.error and console.debug buffer to the error
// channel. Each flush drains a channel completely: one newline-joined
// block plus a single trailing newline, and nothing at all for an empty
// channel. The buffers live inside the engine's object graph, so they
// persist across evaluations on the same context.
package bridge
