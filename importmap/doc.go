// Package importmap resolves an import map from one of its accepted sources
// into the single serialized form the compiler engine expects.
//
// An inline source serializes without I/O, anchored to a base URL that
// defaults to the working directory. A file-backed source is fetched once
// through the same loader used for modules and is anchored to its own
// directory. Exactly one branch runs per invocation; the serialized base URL
// always ends with a slash.
package importmap
