// Package loader defines the module-loading contract between callers and
// the compiler engine.
//
// A Loader fetches content for one specifier at a time, tagged with a
// dynamic-import flag and a cache setting. Responses form a closed union
// over Kind: module (with content), external, builtIn, or nil for not found.
//
// Bridge sits between any Loader and the engine: it normalizes textual
// module content to UTF-8 bytes (the engine's marshaling layer only accepts
// byte sequences) while preserving the response kind exactly. Fetch is the
// default loader used when callers supply none.
package loader
