// Package errors provides structured error types for the emit library.
//
// Errors are categorized by Phase (which stage of an invocation failed) and
// Kind (error category). The Error type includes the offending specifier,
// a detail message and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseResolve, errors.KindImportMap).
//		Specifier("file:///map.json").
//		Detail("body is not import-map JSON").
//		Cause(parseErr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Config("sourceMap and inlineSourceMap are mutually exclusive")
//	err := errors.NotFound("file:///missing.ts")
//
// All errors implement the standard error interface and support errors.Is/As.
// Is matches on Phase and Kind, so failure classes are distinguished by
// type, never by message text.
package errors
