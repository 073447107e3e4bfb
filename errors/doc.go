// Package errors provides structured error types for the embjs binding.
//
// Errors are categorized by Phase (where the error occurred) and Kind
// (error category). The Error type includes context: Go type name, detail
// message and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConvert, errors.KindTypeMismatch).
//		GoType("chan int").
//		Detail("no engine representation").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TooLarge(errors.PhaseIO, size, limit)
//	err := errors.Closed(errors.PhaseEval, "context")
//
// All errors implement the standard error interface and support
// errors.Is/As.
//
// Script-level errors deliberately do not appear here: a throw inside
// evaluated code is a pending exception on the context, retrieved as a
// runtime.ScriptError, never as a host-level *Error.
package errors
