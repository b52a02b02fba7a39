package errors

import (
	"fmt"
	"strings"
)

// Phase indicates the stage of an emit invocation the error originated from
type Phase string

const (
	PhaseValidate Phase = "validate" // compiler-option checks, before any I/O
	PhaseResolve  Phase = "resolve"  // root location and import-map resolution
	PhaseLoad     Phase = "load"     // module fetching through the loader
	PhaseEmit     Phase = "emit"     // the compiler engine call itself
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidOptions  Kind = "invalid_options"
	KindInvalidLocation Kind = "invalid_location"
	KindImportMap       Kind = "import_map"
	KindLoadFailed      Kind = "load_failed"
	KindNotFound        Kind = "not_found"
	KindEngine          Kind = "engine"
	KindUnsupported     Kind = "unsupported"
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause     error
	Phase     Phase
	Kind      Kind
	Specifier string
	Detail    string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Specifier != "" {
		b.WriteString(" for ")
		b.WriteString(fmt.Sprintf("%q", e.Specifier))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two Errors match when their
// Phase and Kind agree, so callers discriminate failure classes without
// string matching on messages.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Specifier sets the module specifier the error relates to
func (b *Builder) Specifier(s string) *Builder {
	b.err.Specifier = s
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Config creates a compiler-option invariant violation. Always raised before
// any resolution or I/O begins.
func Config(detail string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindInvalidOptions,
		Detail: detail,
	}
}

// Unsupported creates an error for an option value rejected before dispatch
func Unsupported(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindUnsupported,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// Location creates an error for a value that is neither a parseable URL nor
// a representable filesystem path
func Location(value string, cause error) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindInvalidLocation,
		Detail: fmt.Sprintf("cannot resolve location %q", value),
		Cause:  cause,
	}
}

// ImportMap creates an import-map resolution error, distinct from module
// load failures so callers can tell the two stages apart
func ImportMap(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindImportMap,
		Detail: detail,
		Cause:  cause,
	}
}

// LoadFailed creates an error for a loader failure on a required specifier
func LoadFailed(specifier string, cause error) *Error {
	return &Error{
		Phase:     PhaseLoad,
		Kind:      KindLoadFailed,
		Specifier: specifier,
		Detail:    "load failed",
		Cause:     cause,
	}
}

// NotFound creates an error for a specifier the loader could not provide
func NotFound(specifier string) *Error {
	return &Error{
		Phase:     PhaseLoad,
		Kind:      KindNotFound,
		Specifier: specifier,
		Detail:    "module not found",
	}
}

// Engine wraps an error thrown by the compiler engine. The cause is carried
// verbatim and is never rewritten.
func Engine(cause error) *Error {
	return &Error{
		Phase: PhaseEmit,
		Kind:  KindEngine,
		Cause: cause,
	}
}
